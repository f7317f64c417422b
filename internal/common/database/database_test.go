package database

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citizenship-adjudicator/internal/common/config"
)

// ==========================
// PostgreSQL
// ==========================

func TestPostgresDSN(t *testing.T) {
	cfg := config.PostgresConfig{
		Host:     "db",
		Port:     5432,
		Database: "adjudicator",
		User:     "svc",
		SSLMode:  "disable",
	}
	assert.NotContains(t, cfg.GetDSN(), "search_path")

	cfg.Schema = "adjudication"
	assert.Contains(t, cfg.GetDSN(), "search_path=adjudication")
	assert.Contains(t, cfg.GetDSN(), "application_name=adjudicator")
}

func TestPostgresEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	client := &PostgresClient{DB: db, schema: "adjudication"}
	mock.ExpectExec(regexp.QuoteMeta(`CREATE SCHEMA IF NOT EXISTS "adjudication"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, client.EnsureSchema(context.Background()))

	mock.ExpectExec("CREATE SCHEMA").WillReturnError(errors.New("permission denied"))
	err = client.EnsureSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create schema adjudication")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEnsureSchema_NoSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	client := &PostgresClient{DB: db}
	require.NoError(t, client.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Redis
// ==========================

func TestRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedis(config.RedisConfig{Address: mr.Addr(), KeyPrefix: "prod:"})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, "prod:adjudicator:decisions", client.Key("adjudicator:decisions"))

	bare, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer bare.Close()
	assert.Equal(t, "adjudicator:decisions", bare.Key("adjudicator:decisions"))

	_, err = NewRedis(config.RedisConfig{})
	assert.Error(t, err)
}

// ==========================
// Elasticsearch
// ==========================

type esCall struct {
	method string
	path   string
	body   string
}

func setupElasticsearch(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*ElasticsearchClient, func() []esCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []esCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, esCall{method: r.Method, path: r.URL.Path, body: string(body)})
		mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client, func() []esCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]esCall(nil), calls...)
	}
}

func TestElasticsearchEnsureIndex_Creates(t *testing.T) {
	client, calls := setupElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"acknowledged": true}`))
	})

	mapping := `{"mappings": {"properties": {"case_id": {"type": "keyword"}}}}`
	require.NoError(t, client.EnsureIndex(context.Background(), "case-decisions", mapping))

	got := calls()
	require.Len(t, got, 2)
	assert.Equal(t, http.MethodHead, got[0].method)
	assert.Equal(t, http.MethodPut, got[1].method)
	assert.Equal(t, "/case-decisions", got[1].path)
	assert.JSONEq(t, mapping, got[1].body)
}

func TestElasticsearchEnsureIndex_Exists(t *testing.T) {
	client, calls := setupElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.EnsureIndex(context.Background(), "case-decisions", `{}`))
	assert.Len(t, calls(), 1)
}

func TestElasticsearchEnsureIndex_Errors(t *testing.T) {
	tests := []struct {
		name    string
		create  string
		status  int
		wantErr bool
	}{
		{"lost creation race", `{"error": {"type": "resource_already_exists_exception"}}`, http.StatusBadRequest, false},
		{"invalid mapping", `{"error": {"type": "mapper_parsing_exception"}}`, http.StatusBadRequest, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := setupElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodHead {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.create))
			})

			err := client.EnsureIndex(context.Background(), "case-decisions", `{}`)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewElasticsearch_RequiresAddresses(t *testing.T) {
	_, err := NewElasticsearch(config.ElasticsearchConfig{})
	assert.Error(t, err)
}

// ==========================
// SQLite
// ==========================

func TestOpenSQLite_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "adjudicator.db")

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
	assert.FileExists(t, path)
}
