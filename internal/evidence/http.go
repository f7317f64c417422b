package evidence

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	commonhttp "citizenship-adjudicator/internal/common/http"
	"citizenship-adjudicator/internal/models"
)

const httpProviderName = "http"

type caseResponse struct {
	CaseID    string `json:"caseId"`
	CaseType  string `json:"caseType"`
	StartDate string `json:"startDate"`
	Opinion   string `json:"opinion"`
}

type documentResponse struct {
	Valid bool   `json:"valid"`
	Text  string `json:"text"`
}

// HTTPProvider reads evidence from the REST gateway in front of the case
// management system:
//
//	GET {base}/cases/{id}
//	GET {base}/cases/{id}/fields
//	GET {base}/cases/{id}/documents/{name}
type HTTPProvider struct {
	baseURL string
	client  *commonhttp.Client
}

func NewHTTPProvider(baseURL, apiToken string, client *commonhttp.Client) *HTTPProvider {
	if apiToken != "" {
		client = client.WithHeader("Authorization", "Bearer "+apiToken)
	}
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (p *HTTPProvider) Navigate(ctx context.Context, caseID string) (models.CaseFacts, error) {
	const op = "navigate"
	var body caseResponse
	if err := p.get(ctx, op, p.caseURL(caseID), &body); err != nil {
		return models.CaseFacts{}, err
	}

	start, err := models.ParseDate(body.StartDate)
	if err != nil {
		return models.CaseFacts{}, NewProviderError(ErrorBadData, httpProviderName, op, "invalid start date", err)
	}
	facts := models.CaseFacts{
		CaseID:    caseID,
		StartDate: start,
		Opinion:   body.Opinion,
	}
	if ct, ok := models.ParseCaseType(body.CaseType); ok {
		facts.Type = ct
	}
	return facts, nil
}

func (p *HTTPProvider) CheckDocument(ctx context.Context, caseID, documentName string) (bool, string, error) {
	const op = "check_document"
	var body documentResponse
	err := p.get(ctx, op, p.caseURL(caseID)+"/documents/"+url.PathEscape(documentName), &body)
	if err != nil {
		// A document that is not attached is a valid answer, not a failure.
		if CategoryOf(err) == ErrorNotFound {
			return false, "", nil
		}
		return false, "", err
	}
	return body.Valid, body.Text, nil
}

func (p *HTTPProvider) ReadFields(ctx context.Context, caseID string) (map[string]string, error) {
	fields := map[string]string{}
	if err := p.get(ctx, "read_fields", p.caseURL(caseID)+"/fields", &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func (p *HTTPProvider) caseURL(caseID string) string {
	return fmt.Sprintf("%s/cases/%s", p.baseURL, url.PathEscape(caseID))
}

func (p *HTTPProvider) get(ctx context.Context, op, target string, out interface{}) error {
	status, err := p.client.GetJSON(ctx, target, out)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return NewProviderError(ErrorTimeout, httpProviderName, op, "request timed out", err)
		case status >= 200 && status <= 299:
			return NewProviderError(ErrorBadData, httpProviderName, op, "malformed response", err)
		default:
			return NewProviderError(ErrorUnavailable, httpProviderName, op, "request failed", err)
		}
	}
	if status < 200 || status > 299 {
		return NewProviderError(categoryForStatus(status), httpProviderName, op, fmt.Sprintf("unexpected status %d", status), nil)
	}
	return nil
}
