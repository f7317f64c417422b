// Package evidence reads case facts and supporting documents from the case
// management system.
package evidence

import (
	"context"

	"citizenship-adjudicator/internal/models"
)

// Provider is the evidence source consumed by the adjudication pipeline.
type Provider interface {
	// Navigate opens a case and returns its start date, opinion text and type.
	Navigate(ctx context.Context, caseID string) (models.CaseFacts, error)
	// CheckDocument reports whether the named document is attached and
	// valid, along with any text extracted from it.
	CheckDocument(ctx context.Context, caseID, documentName string) (bool, string, error)
	// ReadFields returns the structured form fields of a case.
	ReadFields(ctx context.Context, caseID string) (map[string]string, error)
}
