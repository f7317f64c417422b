package results

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"citizenship-adjudicator/internal/models"
)

// CSVStore appends rows to a CSV file. Each row is flushed and synced before
// Append returns, so a crash loses at most the case in flight.
type CSVStore struct {
	mu   sync.Mutex
	path string
}

func NewCSVStore(path string) (*CSVStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating results directory: %w", err)
	}
	return &CSVStore{path: path}, nil
}

func (s *CSVStore) Path() string { return s.path }

func (s *CSVStore) Append(_ context.Context, row models.ResultRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(models.RowColumns); err != nil {
			return err
		}
	}
	if err := w.Write(row.Record()); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Sync()
}

func (s *CSVStore) Rows(_ context.Context) ([]models.ResultRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readCSVRows(s.path)
}

func (s *CSVStore) Close() error { return nil }

// readCSVRows reads a result file written by CSVStore or WriteReport. A
// missing file has no rows.
func readCSVRows(path string) ([]models.ResultRow, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var rows []models.ResultRow
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if first {
			first = false
			if len(rec) > 0 && rec[0] == models.RowColumns[0] {
				continue
			}
		}
		row, err := models.ParseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func writeCSVRows(w io.Writer, rows []models.ResultRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.RowColumns); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row.Record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
