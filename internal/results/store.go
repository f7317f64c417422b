// Package results persists per-case rows and builds the consolidated report.
package results

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "citizenship-adjudicator/internal/common/errors"
	"citizenship-adjudicator/internal/common/logger"
	"citizenship-adjudicator/internal/common/metrics"
	"citizenship-adjudicator/internal/models"
)

// Store is one result backend.
type Store interface {
	Append(ctx context.Context, row models.ResultRow) error
	Rows(ctx context.Context) ([]models.ResultRow, error)
	Close() error
}

// Backend names a Store for logs and metrics.
type Backend struct {
	Name  string
	Store Store
}

// MultiStore appends every row to all backends concurrently. Rows are read
// back from the first backend.
type MultiStore struct {
	backends []Backend
	logger   logger.Logger
}

func NewMultiStore(log logger.Logger, backends ...Backend) *MultiStore {
	return &MultiStore{
		backends: backends,
		logger:   log.WithFields(map[string]interface{}{"component": "results"}),
	}
}

// Append fails when any backend fails; backends that succeeded keep the row.
func (m *MultiStore) Append(ctx context.Context, row models.ResultRow) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, b := range m.backends {
		b := b
		g.Go(func() error {
			if err := b.Store.Append(gctx, row); err != nil {
				metrics.RowsPersisted.WithLabelValues(b.Name, "error").Inc()
				m.logger.Error("failed to append result row", map[string]interface{}{
					"backend": b.Name,
					"caseId":  row.CaseID,
					"error":   err.Error(),
				})
				return apperrors.NewResultPersistFailedError(b.Name, err)
			}
			metrics.RowsPersisted.WithLabelValues(b.Name, "ok").Inc()
			return nil
		})
	}
	return g.Wait()
}

func (m *MultiStore) Rows(ctx context.Context) ([]models.ResultRow, error) {
	if len(m.backends) == 0 {
		return nil, nil
	}
	return m.backends[0].Store.Rows(ctx)
}

func (m *MultiStore) Close() error {
	var errs []error
	for _, b := range m.backends {
		if err := b.Store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Names lists the configured backends in order.
func (m *MultiStore) Names() []string {
	names := make([]string, 0, len(m.backends))
	for _, b := range m.backends {
		names = append(names, b.Name)
	}
	return names
}

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func validIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// sortByTime orders rows by timestamp, keeping the input order on ties.
func sortByTime(rows []models.ResultRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})
}

func parseTimestamp(s string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}
