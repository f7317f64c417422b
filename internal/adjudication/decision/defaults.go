package decision

import (
	"citizenship-adjudicator/internal/models"
	"citizenship-adjudicator/pkg/registry"
)

// DefaultRuleTable is the built-in narrative rule table. Patterns are matched
// after accent and case folding.
func DefaultRuleTable() *registry.RuleTable {
	return &registry.RuleTable{
		Version:     "1.0.0",
		LastUpdated: "2025-01-01",
		Rules: []registry.Rule{
			{
				ID:          "manual-review.no-residency-term",
				Description: "Revisão manual: sem prazo de residência especificado",
				Priority:    10,
				Effect:      registry.EffectManualReview,
				Patterns:    []string{"sem prazo de residencia especificado"},
			},
			{
				ID:          "committee.referral",
				Description: "Encaminhamento ao comitê",
				Priority:    20,
				Effect:      registry.EffectSendToCommittee,
				Patterns:    []string{"encaminhar ao comite", "propor arquivamento"},
			},
			{
				ID:          "automatic-denial.narrative",
				Description: "Indeferimento automático",
				Priority:    30,
				Effect:      registry.EffectAutomaticDenial,
				Patterns: []string{
					"requerente nao esta no pais",
					"indeferimento automatico",
					"excedeu limite de ausencia",
					"requerente nao compareceu",
					"ausencia de coleta biometrica",
				},
			},
			{
				ID:          "automatic-denial.residency-after-ten",
				Description: "Indeferimento automático: residência iniciada após os 10 anos",
				Priority:    30,
				Effect:      registry.EffectAutomaticDenial,
				Patterns: []string{
					"apos completar 10 (dez) anos",
					"depois de completar 10 (dez) anos",
					"apos completar 10 anos",
					"depois de completar 10 anos",
				},
				CaseTypes: []string{string(models.CaseTypeProvisional)},
			},
			{
				ID:          "deny.incomplete-documents",
				Description: "Documentos não apresentados integralmente",
				Priority:    40,
				Effect:      registry.EffectDeny,
				Patterns:    []string{"documentos nao apresentados integralmente"},
			},
			{
				ID:       "language.not-proven",
				Priority: 50,
				Effect:   registry.EffectForceUnsatisfied,
				Target:   string(models.RequirementLanguageProficiency),
				Patterns: []string{
					"nao consegue se comunicar em portugues",
					"documento de portugues nao comprovado no atendimento presencial",
				},
			},
			{
				ID:       "flag.residency-before-ten",
				Priority: 60,
				Effect:   registry.EffectFlag,
				Target:   models.FlagResidencyBeforeThreshold,
				Patterns: []string{
					"antes de completar 10 (dez) anos",
					"antes de completar 10 anos",
					"antes dos 10 anos",
				},
				CaseTypes: []string{string(models.CaseTypeProvisional)},
			},
		},
	}
}

// Band maps a completeness floor to a decision.
type Band struct {
	Floor int
	Kind  models.DecisionKind
}

// CatalogEntry is a supplementary document and its annex item number. Item
// zero means the document has no annex number.
type CatalogEntry struct {
	Name string
	Item int
}

// DefaultBands returns the completeness bands per case type, highest floor
// first.
func DefaultBands() map[models.CaseType][]Band {
	return map[models.CaseType][]Band{
		models.CaseTypeOrdinary: {
			{Floor: 100, Kind: models.DecisionDeferred},
			{Floor: 82, Kind: models.DecisionApprovedWithReservation},
		},
		models.CaseTypeProvisional: {
			{Floor: 100, Kind: models.DecisionDeferred},
			{Floor: 80, Kind: models.DecisionApprovedWithReservation},
			{Floor: 60, Kind: models.DecisionSendToCommittee},
		},
	}
}

// DefaultCatalogs returns the supplementary document catalog per case type.
func DefaultCatalogs() map[models.CaseType][]CatalogEntry {
	return map[models.CaseType][]CatalogEntry{
		models.CaseTypeOrdinary: {
			{Name: models.DocResidencyProof, Item: 8},
			{Name: models.DocCPFStatus, Item: 4},
			{Name: models.DocCRNM, Item: 3},
			{Name: models.DocTravelDocument, Item: 2},
		},
		models.CaseTypeProvisional: {
			{Name: models.DocLegalRepresentativeID},
			{Name: models.DocCRNM, Item: 3},
			{Name: models.DocResidencyProof, Item: 8},
			{Name: models.DocTravelDocument, Item: 2},
		},
	}
}
