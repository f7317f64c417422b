// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"citizenship-adjudicator/internal/common/validation"
)

var knownBackends = map[string]bool{
	"csv":           true,
	"postgres":      true,
	"sqlite":        true,
	"redis":         true,
	"elasticsearch": true,
}

var knownDecisions = map[string]bool{
	"DEFERRED":                  true,
	"APPROVED_WITH_RESERVATION": true,
	"DENIED":                    true,
	"SEND_TO_COMMITTEE":         true,
	"MANUAL_REVIEW":             true,
}

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top
// and lets environment variables override any key.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // ignore error if not found

	return build(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// Secrets are commonly injected without the nested key prefix.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Database.Postgres.User == "" {
		cfg.Database.Postgres.User = os.Getenv("DB_USER")
	}
	if cfg.Database.Postgres.Password == "" {
		cfg.Database.Postgres.Password = os.Getenv("DB_PASSWORD")
	}
	if cfg.Evidence.APIToken == "" {
		cfg.Evidence.APIToken = os.Getenv("EVIDENCE_API_TOKEN")
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "citizenship-adjudicator"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = "data/adjudicator.db"
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "case-decisions"
	}

	if cfg.Evidence.Provider == "" {
		cfg.Evidence.Provider = "http"
	}
	if cfg.Evidence.Timeout == 0 {
		cfg.Evidence.Timeout = 30000
	}
	if cfg.Evidence.RatePerSecond == 0 {
		cfg.Evidence.RatePerSecond = 5
	}
	if cfg.Evidence.Burst == 0 {
		cfg.Evidence.Burst = 1
	}
	if cfg.Evidence.MaxRetries == 0 {
		cfg.Evidence.MaxRetries = 3
	}
	if cfg.Evidence.RetryDelay == 0 {
		cfg.Evidence.RetryDelay = 500
	}
	if cfg.Evidence.CacheTTL == 0 {
		cfg.Evidence.CacheTTL = 600000
	}

	if cfg.Jobs.LogTail == 0 {
		cfg.Jobs.LogTail = 50
	}
	if cfg.Jobs.DefaultCaseType == "" {
		cfg.Jobs.DefaultCaseType = "ordinary"
	}
	if cfg.Jobs.InputColumn == "" {
		cfg.Jobs.InputColumn = "codigo"
	}

	if len(cfg.Results.Backends) == 0 {
		cfg.Results.Backends = []string{"csv"}
	}
	if cfg.Results.CSVPath == "" {
		cfg.Results.CSVPath = "results/decisions.csv"
	}
	if cfg.Results.ReportPath == "" {
		cfg.Results.ReportPath = "results/report.csv"
	}
	if cfg.Results.Table == "" {
		cfg.Results.Table = "case_decisions"
	}
	if cfg.Results.RedisKey == "" {
		cfg.Results.RedisKey = "adjudicator:decisions"
	}

	if cfg.Decision.DocumentPenalty == 0 {
		cfg.Decision.DocumentPenalty = 10
	}
	if len(cfg.Decision.Bands) == 0 {
		cfg.Decision.Bands = DefaultBands()
	}

	if cfg.Notifications.AWS.Region == "" {
		cfg.Notifications.AWS.Region = "us-east-1"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// DefaultBands returns the completeness band tables per case type.
func DefaultBands() map[string][]BandConfig {
	return map[string][]BandConfig{
		"ordinary": {
			{Floor: 100, Decision: "DEFERRED"},
			{Floor: 82, Decision: "APPROVED_WITH_RESERVATION"},
		},
		"provisional": {
			{Floor: 100, Decision: "DEFERRED"},
			{Floor: 80, Decision: "APPROVED_WITH_RESERVATION"},
			{Floor: 60, Decision: "SEND_TO_COMMITTEE"},
		},
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	for _, backend := range cfg.Results.Backends {
		if !knownBackends[backend] {
			return fmt.Errorf("results.backends: unknown backend %q", backend)
		}
	}

	if cfg.Results.HasBackend("postgres") {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	}
	if cfg.Results.HasBackend("redis") && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}
	if cfg.Results.HasBackend("elasticsearch") && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses is required")
	}

	switch cfg.Evidence.Provider {
	case "http":
		if cfg.Evidence.BaseURL == "" {
			return fmt.Errorf("evidence.base_url is required for the http provider")
		}
		if !validation.ValidateURL(cfg.Evidence.BaseURL) {
			return fmt.Errorf("evidence.base_url: %q is not an http(s) url", cfg.Evidence.BaseURL)
		}
	case "static":
		if cfg.Evidence.FixturePath == "" {
			return fmt.Errorf("evidence.fixture_path is required for the static provider")
		}
	default:
		return fmt.Errorf("evidence.provider: unknown provider %q", cfg.Evidence.Provider)
	}

	for caseType, bands := range cfg.Decision.Bands {
		prev := 101
		for _, band := range bands {
			if band.Floor < 0 || band.Floor > 100 {
				return fmt.Errorf("decision.bands.%s: floor %d out of range", caseType, band.Floor)
			}
			if band.Floor >= prev {
				return fmt.Errorf("decision.bands.%s: floors must be strictly descending", caseType)
			}
			if !knownDecisions[band.Decision] {
				return fmt.Errorf("decision.bands.%s: unknown decision %q", caseType, band.Decision)
			}
			prev = band.Floor
		}
	}

	if cfg.Notifications.SNS.Enabled && cfg.Notifications.SNS.TopicARN == "" {
		return fmt.Errorf("notifications.sns.topic_arn is required when sns is enabled")
	}
	if cfg.Notifications.SES.Enabled && (cfg.Notifications.SES.FromEmail == "" || len(cfg.Notifications.SES.Recipients) == 0) {
		return fmt.Errorf("notifications.ses.from_email and recipients are required when ses is enabled")
	}
	if cfg.Notifications.SES.Enabled {
		for _, addr := range append([]string{cfg.Notifications.SES.FromEmail}, cfg.Notifications.SES.Recipients...) {
			if !validation.ValidateEmail(addr) {
				return fmt.Errorf("notifications.ses: invalid email address %q", addr)
			}
		}
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
