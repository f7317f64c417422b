package results

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"citizenship-adjudicator/internal/models"
)

// sortableTimeLayout keeps a fixed width so text timestamps order correctly.
const sortableTimeLayout = "2006-01-02T15:04:05.000000000Z"

const postgresCreateSQL = `CREATE TABLE IF NOT EXISTS %[1]s (
	id BIGSERIAL PRIMARY KEY,
	case_id TEXT NOT NULL,
	job_id TEXT NOT NULL DEFAULT '',
	decision TEXT NOT NULL,
	completeness INTEGER NOT NULL,
	reasons TEXT NOT NULL DEFAULT '',
	case_type TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	decided_at TIMESTAMPTZ NOT NULL,
	UNIQUE (job_id, case_id)
)`

const postgresUpsertSQL = `INSERT INTO %[1]s (case_id, job_id, decision, completeness, reasons, case_type, status, decided_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (job_id, case_id) DO UPDATE SET
	decision = EXCLUDED.decision,
	completeness = EXCLUDED.completeness,
	reasons = EXCLUDED.reasons,
	case_type = EXCLUDED.case_type,
	status = EXCLUDED.status,
	decided_at = EXCLUDED.decided_at`

const sqliteCreateSQL = `CREATE TABLE IF NOT EXISTS %[1]s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	case_id TEXT NOT NULL,
	job_id TEXT NOT NULL DEFAULT '',
	decision TEXT NOT NULL,
	completeness INTEGER NOT NULL,
	reasons TEXT NOT NULL DEFAULT '',
	case_type TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	decided_at TEXT NOT NULL,
	UNIQUE (job_id, case_id)
)`

const sqliteUpsertSQL = `INSERT INTO %[1]s (case_id, job_id, decision, completeness, reasons, case_type, status, decided_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (job_id, case_id) DO UPDATE SET
	decision = excluded.decision,
	completeness = excluded.completeness,
	reasons = excluded.reasons,
	case_type = excluded.case_type,
	status = excluded.status,
	decided_at = excluded.decided_at`

const selectRowsSQL = `SELECT case_id, job_id, decision, completeness, reasons, case_type, status, decided_at
FROM %[1]s ORDER BY decided_at, id`

type dialect struct {
	name      string
	createSQL string
	upsertSQL string
	textTime  bool // timestamps stored as text
}

var (
	postgresDialect = dialect{name: "postgres", createSQL: postgresCreateSQL, upsertSQL: postgresUpsertSQL}
	sqliteDialect   = dialect{name: "sqlite", createSQL: sqliteCreateSQL, upsertSQL: sqliteUpsertSQL, textTime: true}
)

// sqlStore keeps one row per (job, case); re-running a case inside the same
// job overwrites it.
type sqlStore struct {
	db      *sql.DB
	table   string
	dialect dialect
}

func newSQLStore(db *sql.DB, table string, d dialect) (*sqlStore, error) {
	if !validIdentifier(table) {
		return nil, fmt.Errorf("%s: invalid table name %q", d.name, table)
	}
	return &sqlStore{db: db, table: table, dialect: d}, nil
}

// EnsureSchema creates the results table when it does not exist.
func (s *sqlStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(s.dialect.createSQL, s.table)); err != nil {
		return fmt.Errorf("%s: create table %s: %w", s.dialect.name, s.table, err)
	}
	return nil
}

func (s *sqlStore) Append(ctx context.Context, row models.ResultRow) error {
	var decidedAt interface{} = row.Timestamp.UTC()
	if s.dialect.textTime {
		decidedAt = row.Timestamp.UTC().Format(sortableTimeLayout)
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(s.dialect.upsertSQL, s.table),
		row.CaseID,
		row.JobID,
		string(row.Decision),
		row.Completeness,
		row.Reasons,
		string(row.CaseType),
		string(row.Status),
		decidedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: insert into %s: %w", s.dialect.name, s.table, err)
	}
	return nil
}

func (s *sqlStore) Rows(ctx context.Context) ([]models.ResultRow, error) {
	rs, err := s.db.QueryContext(ctx, fmt.Sprintf(selectRowsSQL, s.table))
	if err != nil {
		return nil, fmt.Errorf("%s: select from %s: %w", s.dialect.name, s.table, err)
	}
	defer rs.Close()

	var out []models.ResultRow
	for rs.Next() {
		var (
			row                        models.ResultRow
			decision, caseType, status string
			decidedText                string
			decidedTime                time.Time
		)
		dest := []interface{}{&row.CaseID, &row.JobID, &decision, &row.Completeness, &row.Reasons, &caseType, &status}
		if s.dialect.textTime {
			dest = append(dest, &decidedText)
		} else {
			dest = append(dest, &decidedTime)
		}
		if err := rs.Scan(dest...); err != nil {
			return nil, err
		}
		if s.dialect.textTime {
			if decidedTime, err = parseTimestamp(decidedText); err != nil {
				return nil, fmt.Errorf("%s: decided_at %q: %w", s.dialect.name, decidedText, err)
			}
		}
		row.Decision = models.DecisionKind(decision)
		row.CaseType = models.CaseType(caseType)
		row.Status = models.CaseStatus(status)
		row.Timestamp = decidedTime.UTC()
		out = append(out, row)
	}
	return out, rs.Err()
}

// PostgresStore persists rows in a PostgreSQL table.
type PostgresStore struct {
	*sqlStore
}

// NewPostgresStore does not own db; Close is a no-op.
func NewPostgresStore(db *sql.DB, table string) (*PostgresStore, error) {
	s, err := newSQLStore(db, table, postgresDialect)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{s}, nil
}

func (s *PostgresStore) Close() error { return nil }

// SQLiteStore persists rows in a local SQLite table and owns the handle.
type SQLiteStore struct {
	*sqlStore
}

func NewSQLiteStore(db *sql.DB, table string) (*SQLiteStore, error) {
	s, err := newSQLStore(db, table, sqliteDialect)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{s}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
