package results

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"citizenship-adjudicator/internal/common/logger"
	"citizenship-adjudicator/internal/models"
)

// Consolidate merges row sets into one row per case. The latest timestamp
// wins; on equal timestamps the row seen later wins. The result is ordered
// by case ID.
func Consolidate(sets ...[]models.ResultRow) []models.ResultRow {
	latest := make(map[string]models.ResultRow)
	for _, rows := range sets {
		for _, row := range rows {
			if row.CaseID == "" {
				continue
			}
			if cur, ok := latest[row.CaseID]; ok && row.Timestamp.Before(cur.Timestamp) {
				continue
			}
			latest[row.CaseID] = row
		}
	}

	out := make([]models.ResultRow, 0, len(latest))
	for _, row := range latest {
		out = append(out, row)
	}
	sortByCaseID(out)
	return out
}

// sortByCaseID orders digit IDs numerically: shorter IDs first, then
// lexicographically.
func sortByCaseID(rows []models.ResultRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].CaseID, rows[j].CaseID
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
}

// Reporter writes the consolidated report from a result store.
type Reporter struct {
	source Store
	logger logger.Logger
}

func NewReporter(source Store, log logger.Logger) *Reporter {
	return &Reporter{
		source: source,
		logger: log.WithFields(map[string]interface{}{"component": "report"}),
	}
}

// WriteReport consolidates the store's rows, merged over any report already
// at path, and atomically replaces the file. It returns the number of rows
// written.
func (r *Reporter) WriteReport(ctx context.Context, path string) (int, error) {
	existing, err := readCSVRows(path)
	if err != nil {
		return 0, fmt.Errorf("read existing report: %w", err)
	}
	rows, err := r.source.Rows(ctx)
	if err != nil {
		return 0, fmt.Errorf("read results: %w", err)
	}

	merged := Consolidate(existing, rows)
	if err := writeFileAtomic(path, merged); err != nil {
		return 0, err
	}

	r.logger.Info("report written", map[string]interface{}{
		"path":     path,
		"rows":     len(merged),
		"existing": len(existing),
	})
	return len(merged), nil
}

func writeFileAtomic(path string, rows []models.ResultRow) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".report-*.csv")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeCSVRows(tmp, rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
