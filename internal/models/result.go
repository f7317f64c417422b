// internal/models/result.go
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ReasonSeparator joins reasons inside a single result column.
const ReasonSeparator = "; "

// CaseStatus says whether the case ran to a decision.
type CaseStatus string

const (
	CaseStatusOK    CaseStatus = "ok"
	CaseStatusError CaseStatus = "error"
)

// CaseResult is everything the processor learned about one case.
type CaseResult struct {
	CaseID       string              `json:"caseId"`
	CaseType     CaseType            `json:"caseType,omitempty"`
	Status       CaseStatus          `json:"status"`
	Decision     Decision            `json:"decision"`
	Requirements []RequirementResult `json:"requirements,omitempty"`
	Documents    []DocumentCheck     `json:"documents,omitempty"`
	ErrorCode    string              `json:"errorCode,omitempty"`
	Persisted    bool                `json:"persisted"`
	ProcessedAt  time.Time           `json:"processedAt"`
}

// Row flattens the result into the persisted row shape.
func (r CaseResult) Row(jobID string) ResultRow {
	return ResultRow{
		CaseID:       r.CaseID,
		Decision:     r.Decision.Kind,
		Completeness: r.Decision.Completeness,
		Reasons:      strings.Join(r.Decision.Reasons, ReasonSeparator),
		Timestamp:    r.ProcessedAt.UTC(),
		CaseType:     r.CaseType,
		Status:       r.Status,
		JobID:        jobID,
	}
}

// ResultRow is one persisted per-case outcome. Completeness is 0 when the
// documents were never scored: terminal overrides, critical alerts and error
// rows all skip scoring.
type ResultRow struct {
	CaseID       string       `json:"case_id"`
	Decision     DecisionKind `json:"decision"`
	Completeness int          `json:"completeness"`
	Reasons      string       `json:"reasons"`
	Timestamp    time.Time    `json:"timestamp"`
	CaseType     CaseType     `json:"case_type,omitempty"`
	Status       CaseStatus   `json:"status"`
	JobID        string       `json:"job_id,omitempty"`
}

// RowColumns is the column order of tabular result files.
var RowColumns = []string{"case_id", "decision", "completeness", "reasons", "timestamp", "case_type", "status", "job_id"}

// Record renders the row in RowColumns order.
func (r ResultRow) Record() []string {
	return []string{
		r.CaseID,
		string(r.Decision),
		strconv.Itoa(r.Completeness),
		r.Reasons,
		r.Timestamp.UTC().Format(time.RFC3339Nano),
		string(r.CaseType),
		string(r.Status),
		r.JobID,
	}
}

// ParseRecord reads a row written by Record. Trailing optional columns may be
// missing in files produced by older versions.
func ParseRecord(rec []string) (ResultRow, error) {
	if len(rec) < 5 {
		return ResultRow{}, fmt.Errorf("result record has %d columns, want at least 5", len(rec))
	}
	completeness, err := strconv.Atoi(rec[2])
	if err != nil {
		return ResultRow{}, fmt.Errorf("completeness %q: %w", rec[2], err)
	}
	ts, err := time.Parse(time.RFC3339Nano, rec[4])
	if err != nil {
		return ResultRow{}, fmt.Errorf("timestamp %q: %w", rec[4], err)
	}
	row := ResultRow{
		CaseID:       rec[0],
		Decision:     DecisionKind(rec[1]),
		Completeness: completeness,
		Reasons:      rec[3],
		Timestamp:    ts.UTC(),
		Status:       CaseStatusOK,
	}
	if len(rec) > 5 {
		row.CaseType = CaseType(rec[5])
	}
	if len(rec) > 6 && rec[6] != "" {
		row.Status = CaseStatus(rec[6])
	}
	if len(rec) > 7 {
		row.JobID = rec[7]
	}
	return row, nil
}

// ReasonList splits the joined reasons column.
func (r ResultRow) ReasonList() []string {
	if r.Reasons == "" {
		return nil
	}
	return strings.Split(r.Reasons, ReasonSeparator)
}
