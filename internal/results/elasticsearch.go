package results

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"citizenship-adjudicator/internal/models"
)

const maxSearchRows = 10000

// ElasticsearchMapping types the row fields so searches can sort on timestamp
// and filter on the keyword columns.
const ElasticsearchMapping = `{
	"mappings": {
		"properties": {
			"case_id":      {"type": "keyword"},
			"decision":     {"type": "keyword"},
			"completeness": {"type": "integer"},
			"reasons":      {"type": "text"},
			"timestamp":    {"type": "date"},
			"case_type":    {"type": "keyword"},
			"status":       {"type": "keyword"},
			"job_id":       {"type": "keyword"}
		}
	}
}`

// ElasticsearchStore indexes one document per job and case.
type ElasticsearchStore struct {
	client *elasticsearch.Client
	index  string
}

// NewElasticsearchStore does not own client; Close is a no-op.
func NewElasticsearchStore(client *elasticsearch.Client, index string) *ElasticsearchStore {
	return &ElasticsearchStore{client: client, index: index}
}

func (s *ElasticsearchStore) Append(ctx context.Context, row models.ResultRow) error {
	body, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("elasticsearch: encode row: %w", err)
	}

	res, err := s.client.Index(
		s.index,
		bytes.NewReader(body),
		s.client.Index.WithDocumentID(fieldFor(row)),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: index %s: %w", s.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch: index %s: %s", s.index, res.Status())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.ResultRow `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Rows returns up to 10000 rows ordered by timestamp. A missing index has
// no rows.
func (s *ElasticsearchStore) Rows(ctx context.Context) ([]models.ResultRow, error) {
	query := fmt.Sprintf(`{"size": %d, "sort": [{"timestamp": "asc"}], "query": {"match_all": {}}}`, maxSearchRows)

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(strings.NewReader(query)),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: search %s: %w", s.index, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch: search %s: %s", s.index, res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("elasticsearch: decode search response: %w", err)
	}

	rows := make([]models.ResultRow, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		rows = append(rows, hit.Source)
	}
	sortByTime(rows)
	return rows, nil
}

func (s *ElasticsearchStore) Close() error { return nil }
