// Package decision turns requirement results, document checks and narrative
// overrides into one adjudication outcome.
package decision

import (
	"context"
	"fmt"

	apperrors "citizenship-adjudicator/internal/common/errors"
	"citizenship-adjudicator/internal/common/logger"
	"citizenship-adjudicator/internal/models"
)

const (
	ReasonAnnex         = "Anexo I da Portaria 623/2020"
	ReasonCriticalAlert = "Revisão manual: prazo de residência não identificado"
)

// InsufficientDocumentation is the reason given below every band.
func InsufficientDocumentation(completeness int) string {
	return fmt.Sprintf("Documentação insuficiente: %d%% de completude", completeness)
}

type Config struct {
	Bands           map[models.CaseType][]Band
	Catalogs        map[models.CaseType][]CatalogEntry
	DocumentPenalty int
}

// DefaultConfig returns the built-in bands, catalogs and penalty.
func DefaultConfig() Config {
	return Config{
		Bands:           DefaultBands(),
		Catalogs:        DefaultCatalogs(),
		DocumentPenalty: DefaultDocumentPenalty,
	}
}

// Input is everything the final decision depends on.
type Input struct {
	CaseType     models.CaseType
	Overrides    Overrides
	Requirements []models.RequirementResult
	Documents    []models.DocumentCheck
	Completeness int
}

type Classifier struct {
	config Config
	rules  *RuleSet
	logger logger.Logger
}

func NewClassifier(cfg Config, rules *RuleSet, log logger.Logger) *Classifier {
	if cfg.Bands == nil {
		cfg.Bands = DefaultBands()
	}
	if cfg.Catalogs == nil {
		cfg.Catalogs = DefaultCatalogs()
	}
	if cfg.DocumentPenalty <= 0 {
		cfg.DocumentPenalty = DefaultDocumentPenalty
	}
	if rules == nil {
		rules = MustDefaultRuleSet()
	}
	return &Classifier{
		config: cfg,
		rules:  rules,
		logger: log.WithFields(map[string]interface{}{"component": "decision"}),
	}
}

// ScanOpinion runs the narrative rule table for the case type.
func (c *Classifier) ScanOpinion(opinion string, ct models.CaseType) Overrides {
	return c.rules.Scan(opinion, ct)
}

// Terminal returns the decision of a terminal override, if one fired.
// Requirements and documents are not consulted.
func (c *Classifier) Terminal(o Overrides) (models.Decision, bool) {
	if o.Terminal == nil {
		return models.Decision{}, false
	}
	return models.Decision{
		Kind:    terminalKind(o.Terminal.Effect),
		Reasons: []string{o.Terminal.Reason},
	}, true
}

// ScoreDocuments scores the case type's supplementary catalog.
func (c *Classifier) ScoreDocuments(ctx context.Context, ct models.CaseType, ev Evidence) ([]models.DocumentCheck, int) {
	return ScoreDocuments(ctx, ev, c.config.Catalogs[ct], c.config.DocumentPenalty)
}

// Classify produces the final decision. An internal fault, including a
// panic, yields an ERROR decision carrying the fault message together with a
// CLASSIFICATION_FAILED error.
func (c *Classifier) Classify(in Input) (models.Decision, error) {
	return c.guard(func() models.Decision { return c.classify(in) })
}

func (c *Classifier) guard(fn func() models.Decision) (d models.Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.NewClassificationFailedError(fmt.Errorf("panic: %v", r))
			d = models.Decision{Kind: models.DecisionError, Reasons: []string{err.Error()}}
			c.logger.Error("classification panicked", map[string]interface{}{
				"panic": fmt.Sprint(r),
			})
		}
	}()
	return fn(), nil
}

func (c *Classifier) classify(in Input) models.Decision {
	if term, ok := c.Terminal(in.Overrides); ok {
		return term
	}

	for _, r := range in.Requirements {
		if r.CriticalAlert {
			return models.Decision{
				Kind:         models.DecisionManualReview,
				Reasons:      []string{ReasonCriticalAlert},
				Completeness: in.Completeness,
			}
		}
	}

	var reasons reasonList
	for _, r := range in.Requirements {
		if !r.Satisfied {
			reasons.add(r.Reason)
			continue
		}
		if _, forced := in.Overrides.Forced[r.Code]; forced && !r.Waived {
			reasons.add(r.Code.Citation())
		}
	}
	for _, denial := range in.Overrides.Denials {
		reasons.add(denial)
	}
	if len(reasons) > 0 {
		return models.Decision{
			Kind:         models.DecisionDenied,
			Reasons:      reasons,
			Completeness: in.Completeness,
		}
	}

	if in.Completeness >= 100 {
		return models.Decision{Kind: models.DecisionDeferred, Reasons: []string{}, Completeness: 100}
	}

	missing := missingDocumentReasons(in.Documents, c.config.Catalogs[in.CaseType])
	for _, band := range c.config.Bands[in.CaseType] {
		if in.Completeness >= band.Floor {
			return models.Decision{
				Kind:         band.Kind,
				Reasons:      missing,
				Completeness: in.Completeness,
			}
		}
	}

	below := reasonList{InsufficientDocumentation(in.Completeness)}
	for _, m := range missing {
		below.add(m)
	}
	return models.Decision{
		Kind:         models.DecisionDenied,
		Reasons:      below,
		Completeness: in.Completeness,
	}
}

// reasonList keeps insertion order and drops duplicates and blanks.
type reasonList []string

func (l *reasonList) add(reason string) {
	if reason == "" {
		return
	}
	for _, existing := range *l {
		if existing == reason {
			return
		}
	}
	*l = append(*l, reason)
}
