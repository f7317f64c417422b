package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"citizenship-adjudicator/internal/adjudication/casework"
	"citizenship-adjudicator/internal/adjudication/decision"
	"citizenship-adjudicator/internal/adjudication/requirements"
	commonaws "citizenship-adjudicator/internal/common/aws"
	"citizenship-adjudicator/internal/common/config"
	"citizenship-adjudicator/internal/common/database"
	commonhttp "citizenship-adjudicator/internal/common/http"
	"citizenship-adjudicator/internal/common/logger"
	"citizenship-adjudicator/internal/common/observability"
	"citizenship-adjudicator/internal/evidence"
	"citizenship-adjudicator/internal/jobs"
	"citizenship-adjudicator/internal/models"
	"citizenship-adjudicator/internal/results"
)

const (
	connectRetries    = 5
	connectRetryDelay = 2 * time.Second
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

type namedCheck struct {
	name  string
	check func(ctx context.Context) error
}

// app holds everything a command needs, wired from the config.
type app struct {
	cfg    *config.Config
	zapLog *zap.Logger
	log    logger.Logger
	obs    *observability.Observability

	store    *results.MultiStore
	reporter *results.Reporter
	orch     *jobs.Orchestrator

	checks  []namedCheck
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log := logger.NewZapAdapter(zapLog)

	a := &app{
		cfg:    cfg,
		zapLog: zapLog,
		log:    log,
		obs:    observability.New(cfg.App.Name, log),
	}

	if err := a.openStores(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.reporter = results.NewReporter(a.store, log)

	proc, err := a.buildProcessor()
	if err != nil {
		a.Close()
		return nil, err
	}

	notifier, err := a.buildNotifier(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.orch = jobs.NewOrchestrator(
		&jobs.Config{LogTail: cfg.Jobs.LogTail, ReportPath: cfg.Results.ReportPath},
		func(l logger.Logger) jobs.CaseProcessor { return proc.WithLogger(l) },
		a.reporter,
		notifier,
		log,
	)

	zapLog.Info("adjudicator initialized",
		zap.String("environment", cfg.App.Environment),
		zap.String("evidenceProvider", cfg.Evidence.Provider),
		zap.Strings("resultBackends", a.store.Names()),
	)
	return a, nil
}

func (a *app) buildProcessor() (*casework.Processor, error) {
	provider, err := a.buildProvider()
	if err != nil {
		return nil, err
	}

	rules, err := decision.LoadRuleSet(a.cfg.Decision.RulesPath)
	if err != nil {
		return nil, err
	}
	dc, err := decisionConfig(a.cfg.Decision)
	if err != nil {
		return nil, err
	}
	caseType, ok := models.ParseCaseType(a.cfg.Jobs.DefaultCaseType)
	if !ok {
		return nil, fmt.Errorf("jobs.default_case_type: unknown case type %q", a.cfg.Jobs.DefaultCaseType)
	}

	return casework.NewProcessor(
		&casework.Config{
			DefaultCaseType: caseType,
			SessionTTL:      config.GetDuration(a.cfg.Evidence.CacheTTL),
		},
		provider,
		requirements.NewEvaluator(requirements.DefaultPolicies(), a.log),
		decision.NewClassifier(dc, rules, a.log),
		a.store,
		a.obs,
		a.log,
	), nil
}

// buildProvider returns the configured provider behind a single Guarded, so
// every job shares one rate limiter.
func (a *app) buildProvider() (evidence.Provider, error) {
	ec := a.cfg.Evidence

	var p evidence.Provider
	switch ec.Provider {
	case "static":
		sp, err := evidence.LoadStaticProvider(ec.FixturePath)
		if err != nil {
			return nil, fmt.Errorf("load evidence fixture: %w", err)
		}
		p = sp
	default:
		p = evidence.NewHTTPProvider(ec.BaseURL, ec.APIToken, commonhttp.NewClient(config.GetDuration(ec.Timeout)))
	}

	return evidence.NewGuarded(p, ec.Provider, evidence.GuardConfig{
		Timeout:       config.GetDuration(ec.Timeout),
		RatePerSecond: ec.RatePerSecond,
		Burst:         ec.Burst,
		MaxAttempts:   ec.MaxRetries,
		RetryDelay:    config.GetDuration(ec.RetryDelay),
	}, a.log), nil
}

func decisionConfig(dcfg config.DecisionConfig) (decision.Config, error) {
	dc := decision.DefaultConfig()
	dc.DocumentPenalty = dcfg.DocumentPenalty

	for name, bands := range dcfg.Bands {
		ct, ok := models.ParseCaseType(name)
		if !ok {
			return dc, fmt.Errorf("decision.bands: unknown case type %q", name)
		}
		out := make([]decision.Band, 0, len(bands))
		for _, b := range bands {
			kind, ok := models.ParseDecisionKind(b.Decision)
			if !ok {
				return dc, fmt.Errorf("decision.bands.%s: unknown decision %q", name, b.Decision)
			}
			out = append(out, decision.Band{Floor: b.Floor, Kind: kind})
		}
		dc.Bands[ct] = out
	}
	return dc, nil
}

func (a *app) openStores(ctx context.Context) error {
	var backends []results.Backend
	for _, name := range a.cfg.Results.Backends {
		store, err := a.openStore(ctx, name)
		if err != nil {
			for _, b := range backends {
				_ = b.Store.Close()
			}
			return fmt.Errorf("results backend %s: %w", name, err)
		}
		backends = append(backends, results.Backend{Name: name, Store: store})
	}
	a.store = results.NewMultiStore(a.log, backends...)
	return nil
}

func (a *app) openStore(ctx context.Context, name string) (results.Store, error) {
	db := a.cfg.Database

	switch name {
	case "csv":
		return results.NewCSVStore(a.cfg.Results.CSVPath)

	case "postgres":
		var pg *database.PostgresClient
		err := retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(db.Postgres)
			if err != nil {
				return err
			}
			if err := pg.Ping(ctx); err != nil {
				_ = pg.Close()
				return err
			}
			return nil
		}, connectRetries, connectRetryDelay, a.zapLog, "PostgreSQL connection")
		if err != nil {
			return nil, err
		}
		a.zapLog.Info("PostgreSQL connected successfully")
		a.addCheck("postgres", pg.Ping)
		a.closers = append(a.closers, pg.Close)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}

		store, err := results.NewPostgresStore(pg.DB, a.cfg.Results.Table)
		if err != nil {
			return nil, err
		}
		return store, store.EnsureSchema(ctx)

	case "sqlite":
		sqlDB, err := database.OpenSQLite(db.SQLite.Path)
		if err != nil {
			return nil, err
		}
		a.addCheck("sqlite", sqlDB.PingContext)

		store, err := results.NewSQLiteStore(sqlDB, a.cfg.Results.Table)
		if err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		return store, nil

	case "redis":
		var rc *database.RedisClient
		err := retryWithBackoff(func() error {
			var err error
			rc, err = database.NewRedis(db.Redis)
			if err != nil {
				return err
			}
			if err := rc.Ping(ctx); err != nil {
				_ = rc.Close()
				return err
			}
			return nil
		}, connectRetries, connectRetryDelay, a.zapLog, "Redis connection")
		if err != nil {
			return nil, err
		}
		a.zapLog.Info("Redis connected successfully")
		a.addCheck("redis", rc.Ping)
		a.closers = append(a.closers, rc.Close)
		return results.NewRedisStore(rc.Client, rc.Key(a.cfg.Results.RedisKey)), nil

	case "elasticsearch":
		var es *database.ElasticsearchClient
		err := retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(db.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, connectRetries, connectRetryDelay, a.zapLog, "Elasticsearch connection")
		if err != nil {
			return nil, err
		}
		a.zapLog.Info("Elasticsearch connected successfully")
		a.addCheck("elasticsearch", es.Ping)
		if err := es.EnsureIndex(ctx, db.Elasticsearch.Index, results.ElasticsearchMapping); err != nil {
			return nil, err
		}
		return results.NewElasticsearchStore(es.Client, db.Elasticsearch.Index), nil
	}

	return nil, fmt.Errorf("unknown backend %q", name)
}

func (a *app) buildNotifier(ctx context.Context) (jobs.Notifier, error) {
	nc := a.cfg.Notifications
	if !nc.SNS.Enabled && !nc.SES.Enabled {
		return nil, nil
	}

	var (
		snsClient *commonaws.SNSClient
		sesClient *commonaws.SESClient
		err       error
	)
	if nc.SNS.Enabled {
		snsClient, err = commonaws.NewSNSClient(ctx, nc.AWS.Region, nc.SNS.TopicARN)
		if err != nil {
			return nil, fmt.Errorf("sns client: %w", err)
		}
	}
	if nc.SES.Enabled {
		sesClient, err = commonaws.NewSESClient(ctx, nc.AWS.Region, nc.SES.FromEmail, nc.SES.Recipients)
		if err != nil {
			return nil, fmt.Errorf("ses client: %w", err)
		}
	}
	return commonaws.NewNotifier(snsClient, sesClient, a.log), nil
}

func (a *app) addCheck(name string, check func(ctx context.Context) error) {
	a.checks = append(a.checks, namedCheck{name: name, check: check})
}

// ready pings every connected backend.
func (a *app) ready(ctx context.Context) error {
	for _, c := range a.checks {
		if err := c.check(ctx); err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
	}
	return nil
}

func (a *app) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.obs.Shutdown()
	_ = a.zapLog.Sync()
	return errors.Join(errs...)
}
