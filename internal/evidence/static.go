package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"citizenship-adjudicator/internal/models"
)

const staticProviderName = "static"

// StaticDocument is a fixture document. A non-empty Error makes every lookup
// fail with that category.
type StaticDocument struct {
	Valid bool          `json:"valid"`
	Text  string        `json:"text,omitempty"`
	Error ErrorCategory `json:"error,omitempty"`
}

// StaticCase is a fixture case.
type StaticCase struct {
	CaseType  string                    `json:"caseType,omitempty"`
	StartDate string                    `json:"startDate"`
	Opinion   string                    `json:"opinion,omitempty"`
	Fields    map[string]string         `json:"fields,omitempty"`
	Documents map[string]StaticDocument `json:"documents,omitempty"`
}

type staticFixture struct {
	Cases map[string]StaticCase `json:"cases"`
}

// StaticProvider serves evidence from memory. It backs offline runs from a
// JSON fixture and the tests.
type StaticProvider struct {
	mu    sync.RWMutex
	cases map[string]StaticCase
	calls map[string]int
}

func NewStaticProvider(cases map[string]StaticCase) *StaticProvider {
	if cases == nil {
		cases = map[string]StaticCase{}
	}
	return &StaticProvider{cases: cases, calls: map[string]int{}}
}

// LoadStaticProvider reads a fixture of the form {"cases": {"<id>": {...}}}.
func LoadStaticProvider(path string) (*StaticProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read evidence fixture: %w", err)
	}
	var fixture staticFixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("parse evidence fixture %s: %w", path, err)
	}
	return NewStaticProvider(fixture.Cases), nil
}

// Put adds or replaces a case.
func (p *StaticProvider) Put(caseID string, c StaticCase) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cases[caseID] = c
}

// Calls returns how many times op was invoked; op is one of navigate,
// check_document or read_fields.
func (p *StaticProvider) Calls(op string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.calls[op]
}

func (p *StaticProvider) lookup(op, caseID string) (StaticCase, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[op]++
	c, ok := p.cases[caseID]
	if !ok {
		return StaticCase{}, NewProviderError(ErrorNotFound, staticProviderName, op, "case "+caseID+" not found", nil)
	}
	return c, nil
}

func (p *StaticProvider) Navigate(ctx context.Context, caseID string) (models.CaseFacts, error) {
	if err := ctx.Err(); err != nil {
		return models.CaseFacts{}, err
	}
	c, err := p.lookup("navigate", caseID)
	if err != nil {
		return models.CaseFacts{}, err
	}
	start, err := models.ParseDate(c.StartDate)
	if err != nil {
		return models.CaseFacts{}, NewProviderError(ErrorBadData, staticProviderName, "navigate", "invalid start date", err)
	}
	facts := models.CaseFacts{CaseID: caseID, StartDate: start, Opinion: c.Opinion}
	if ct, ok := models.ParseCaseType(c.CaseType); ok {
		facts.Type = ct
	}
	return facts, nil
}

func (p *StaticProvider) CheckDocument(ctx context.Context, caseID, documentName string) (bool, string, error) {
	if err := ctx.Err(); err != nil {
		return false, "", err
	}
	c, err := p.lookup("check_document", caseID)
	if err != nil {
		return false, "", err
	}
	doc, ok := c.Documents[documentName]
	if !ok {
		return false, "", nil
	}
	if doc.Error != "" {
		return false, "", NewProviderError(doc.Error, staticProviderName, "check_document", documentName, nil)
	}
	return doc.Valid, doc.Text, nil
}

func (p *StaticProvider) ReadFields(ctx context.Context, caseID string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := p.lookup("read_fields", caseID)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(c.Fields))
	for k, v := range c.Fields {
		fields[k] = v
	}
	return fields, nil
}
