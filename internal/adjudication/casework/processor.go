// Package casework runs the adjudication pipeline for one case at a time.
package casework

import (
	"context"
	"fmt"
	"strings"
	"time"

	"citizenship-adjudicator/internal/adjudication/decision"
	"citizenship-adjudicator/internal/adjudication/requirements"
	apperrors "citizenship-adjudicator/internal/common/errors"
	"citizenship-adjudicator/internal/common/logger"
	"citizenship-adjudicator/internal/common/metrics"
	"citizenship-adjudicator/internal/common/observability"
	"citizenship-adjudicator/internal/evidence"
	"citizenship-adjudicator/internal/models"
)

// ResultWriter persists one row per processed case.
type ResultWriter interface {
	Append(ctx context.Context, row models.ResultRow) error
}

type Config struct {
	DefaultCaseType models.CaseType
	SessionTTL      time.Duration
}

type jobIDKey struct{}

// WithJobID tags rows persisted under ctx with the job ID.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, jobIDKey{}, jobID)
}

func jobIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(jobIDKey{}).(string)
	return id
}

type Processor struct {
	config     *Config
	provider   evidence.Provider
	evaluator  *requirements.Evaluator
	classifier *decision.Classifier
	store      ResultWriter
	obs        *observability.Observability
	logger     logger.Logger
	now        func() time.Time
}

func NewProcessor(
	config *Config,
	provider evidence.Provider,
	evaluator *requirements.Evaluator,
	classifier *decision.Classifier,
	store ResultWriter,
	obs *observability.Observability,
	log logger.Logger,
) *Processor {
	if config.DefaultCaseType == "" {
		config.DefaultCaseType = models.CaseTypeOrdinary
	}
	return &Processor{
		config:     config,
		provider:   provider,
		evaluator:  evaluator,
		classifier: classifier,
		store:      store,
		obs:        obs,
		logger:     log.WithFields(map[string]interface{}{"component": "casework"}),
		now:        time.Now,
	}
}

// WithLogger returns a processor that logs through l.
func (p *Processor) WithLogger(l logger.Logger) *Processor {
	cp := *p
	cp.logger = l.WithFields(map[string]interface{}{"component": "casework"})
	return &cp
}

// Process adjudicates one case and persists its row before returning. Every
// failure is contained in the returned result; nothing here aborts a job.
func (p *Processor) Process(ctx context.Context, rawCaseID string) models.CaseResult {
	start := p.now()
	caseID := models.NormalizeCaseID(rawCaseID)
	log := p.logger.WithFields(map[string]interface{}{"caseId": caseID})

	result := p.guard(ctx, caseID, rawCaseID, log)
	result.ProcessedAt = p.now().UTC()

	row := result.Row(jobIDFrom(ctx))
	if err := p.store.Append(ctx, row); err != nil {
		se := apperrors.NewResultPersistFailedError("results", err)
		log.Error("failed to persist result", map[string]interface{}{
			"error":    se.Error(),
			"decision": string(result.Decision.Kind),
		})
		result.ErrorCode = string(se.Code)
	} else {
		result.Persisted = true
	}

	elapsed := time.Since(start)
	caseType := string(result.CaseType)
	metrics.CasesProcessed.WithLabelValues(caseType, string(result.Decision.Kind)).Inc()
	metrics.CaseDuration.WithLabelValues(caseType).Observe(elapsed.Seconds())
	p.obs.RecordCaseProcessed(ctx, caseType, string(result.Decision.Kind))
	p.obs.RecordCaseDuration(ctx, elapsed, caseType)

	log.Info("case processed", map[string]interface{}{
		"decision":     string(result.Decision.Kind),
		"completeness": result.Decision.Completeness,
		"status":       string(result.Status),
		"durationMs":   elapsed.Milliseconds(),
	})
	return result
}

func (p *Processor) guard(ctx context.Context, caseID, rawCaseID string, log logger.Logger) (result models.CaseResult) {
	defer func() {
		if r := recover(); r != nil {
			se := apperrors.Recover(apperrors.ErrCodeInternal, r)
			log.Error("case processing panicked", map[string]interface{}{"panic": fmt.Sprint(r)})
			result = errorResult(result.CaseID, result.CaseType, se.Code, se.Error())
		}
	}()
	if caseID == "" {
		se := apperrors.NewNavigationFailedError(strings.TrimSpace(rawCaseID), fmt.Errorf("no digits in case id %q", rawCaseID))
		return errorResult(strings.TrimSpace(rawCaseID), "", se.Code, se.Message)
	}
	result.CaseID = caseID
	return p.adjudicate(ctx, caseID, log)
}

func (p *Processor) adjudicate(ctx context.Context, caseID string, log logger.Logger) models.CaseResult {
	c, err := p.resolveCase(ctx, caseID)
	if err != nil {
		se := apperrors.NewNavigationFailedError(caseID, err)
		log.Warn("navigation failed", map[string]interface{}{"error": err.Error()})
		return errorResult(caseID, "", se.Code, se.Message)
	}

	overrides := p.classifier.ScanOpinion(c.Opinion, c.Type)
	c.Flags = overrides.Flags

	if term, ok := p.classifier.Terminal(overrides); ok {
		log.Info("narrative override", map[string]interface{}{
			"rule":     overrides.Terminal.RuleID,
			"decision": string(term.Kind),
		})
		return models.CaseResult{CaseID: caseID, CaseType: c.Type, Status: models.CaseStatusOK, Decision: term}
	}

	session := evidence.NewSession(p.provider, caseID, p.config.SessionTTL)
	defer session.Close()

	outcome, err := p.evaluator.Evaluate(ctx, c, session)
	if err != nil {
		se, ok := apperrors.AsStandardError(err)
		if !ok {
			se = apperrors.NewInternalError(err)
		}
		log.Warn("requirement evaluation failed", map[string]interface{}{"error": se.Error()})
		return errorResult(caseID, c.Type, se.Code, se.Message)
	}
	outcome.Results = overrides.ApplyForced(outcome.Results)

	in := decision.Input{
		CaseType:     c.Type,
		Overrides:    overrides,
		Requirements: outcome.Results,
	}
	if !outcome.CriticalAlert() {
		in.Documents, in.Completeness = p.classifier.ScoreDocuments(ctx, c.Type, session)
	}

	d, err := p.classifier.Classify(in)
	result := models.CaseResult{
		CaseID:       caseID,
		CaseType:     c.Type,
		Status:       models.CaseStatusOK,
		Decision:     d,
		Requirements: outcome.Results,
		Documents:    in.Documents,
	}
	if err != nil {
		result.Status = models.CaseStatusError
		result.ErrorCode = string(apperrors.CodeOf(err))
	}
	return result
}

// resolveCase navigates to the case and reads its structured fields.
func (p *Processor) resolveCase(ctx context.Context, caseID string) (*models.Case, error) {
	facts, err := p.provider.Navigate(ctx, caseID)
	if err != nil {
		return nil, err
	}
	fields, err := p.provider.ReadFields(ctx, caseID)
	if err != nil {
		return nil, err
	}

	c := &models.Case{
		ID:        caseID,
		Type:      facts.Type,
		StartDate: facts.StartDate,
		Opinion:   facts.Opinion,
		Fields:    fields,
	}
	if c.Type == "" {
		if ct, ok := models.ParseCaseType(c.Field(models.FieldCaseType)); ok {
			c.Type = ct
		} else {
			c.Type = p.config.DefaultCaseType
		}
	}
	if birth, err := models.ParseDate(c.Field(models.FieldBirthDate)); err == nil {
		c.BirthDate = &birth
	}
	return c, nil
}

func errorResult(caseID string, caseType models.CaseType, code apperrors.ErrorCode, reason string) models.CaseResult {
	return models.CaseResult{
		CaseID:    caseID,
		CaseType:  caseType,
		Status:    models.CaseStatusError,
		ErrorCode: string(code),
		Decision: models.Decision{
			Kind:    models.DecisionError,
			Reasons: []string{reason},
		},
	}
}
