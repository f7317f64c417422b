package decision

import (
	"context"
	"fmt"

	"citizenship-adjudicator/internal/models"
)

// DefaultDocumentPenalty is subtracted per missing or invalid document.
const DefaultDocumentPenalty = 10

// Evidence is the document view of the case under classification.
type Evidence interface {
	CheckDocument(ctx context.Context, name string) (valid bool, text string, err error)
}

// ScoreDocuments checks every catalog document and returns the checks with
// the completeness score. Completeness starts at 100, only decreases and is
// clamped at 0. A failed lookup counts as an invalid document.
func ScoreDocuments(ctx context.Context, ev Evidence, catalog []CatalogEntry, penalty int) ([]models.DocumentCheck, int) {
	if penalty < 0 {
		penalty = 0
	}
	completeness := 100
	checks := make([]models.DocumentCheck, 0, len(catalog))

	for _, entry := range catalog {
		check := models.DocumentCheck{Name: entry.Name, Valid: true}
		valid, _, err := ev.CheckDocument(ctx, entry.Name)
		if err != nil {
			check.Err = err.Error()
			valid = false
		}
		if !valid {
			check.Valid = false
			check.Penalty = penalty
			completeness -= penalty
			if completeness < 0 {
				completeness = 0
			}
		}
		checks = append(checks, check)
	}
	return checks, completeness
}

// missingDocumentReasons lists the annex reference followed by one entry per
// failed document.
func missingDocumentReasons(docs []models.DocumentCheck, catalog []CatalogEntry) []string {
	items := make(map[string]int, len(catalog))
	for _, e := range catalog {
		items[e.Name] = e.Item
	}

	var reasons []string
	for _, d := range docs {
		if d.Valid {
			continue
		}
		if len(reasons) == 0 {
			reasons = append(reasons, ReasonAnnex)
		}
		if item := items[d.Name]; item > 0 {
			reasons = append(reasons, fmt.Sprintf("Não anexou item %d", item))
		} else {
			reasons = append(reasons, "Não anexou "+d.Name)
		}
	}
	return reasons
}
