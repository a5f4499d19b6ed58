// Package elastic publishes daily records to Elasticsearch for the reporting dashboard.
package elastic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"leadflow-workers/internal/common/database"
	"leadflow-workers/internal/models"
	"leadflow-workers/internal/rollup"
)

var ErrMissingIndex = errors.New("index name is required")

var _ rollup.Indexer = (*RecordIndex)(nil)

const recordMapping = `{
  "mappings": {
    "properties": {
      "id":                {"type": "keyword"},
      "serverId":          {"type": "keyword"},
      "date":              {"type": "date", "format": "yyyy-MM-dd"},
      "totalLeads":        {"type": "integer"},
      "totalConversions":  {"type": "integer"},
      "totalSpent":        {"type": "double"},
      "conversionRate":    {"type": "double"},
      "costPerLead":       {"type": "double"},
      "costPerConversion": {"type": "double"},
      "finalized":         {"type": "boolean"},
      "updatedAt":         {"type": "date"}
    }
  }
}`

// RecordIndex holds one document per server and day.
type RecordIndex struct {
	es    *database.ElasticsearchClient
	index string
}

func NewRecordIndex(es *database.ElasticsearchClient, index string) (*RecordIndex, error) {
	if index == "" {
		return nil, ErrMissingIndex
	}
	return &RecordIndex{es: es, index: index}, nil
}

// DocumentID keys a record by server and day, so re-indexing replaces it.
func DocumentID(serverID, date string) string {
	return serverID + "_" + date
}

func (r *RecordIndex) IndexDailyRecord(ctx context.Context, rec models.DailyRecord) error {
	return r.es.IndexDocument(ctx, r.index, DocumentID(rec.ServerID, rec.Date), rec)
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (r *RecordIndex) EnsureIndex(ctx context.Context) error {
	client := r.es.Client
	res, err := client.Indices.Exists([]string{r.index}, client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.index, err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = client.Indices.Create(r.index,
		client.Indices.Create.WithContext(ctx),
		client.Indices.Create.WithBody(strings.NewReader(recordMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", r.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("create index %s: %s: %s", r.index, res.Status(), string(msg))
	}
	return nil
}

// RecordQuery selects a server's records between two dates, inclusive.
// Empty fields are not filtered on.
type RecordQuery struct {
	ServerID string
	From     string
	To       string
	Size     int
}

func buildRecordQuery(q RecordQuery) map[string]interface{} {
	filters := []interface{}{}
	if q.ServerID != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"serverId": q.ServerID},
		})
	}
	if q.From != "" || q.To != "" {
		rng := map[string]interface{}{}
		if q.From != "" {
			rng["gte"] = q.From
		}
		if q.To != "" {
			rng["lte"] = q.To
		}
		filters = append(filters, map[string]interface{}{
			"range": map[string]interface{}{"date": rng},
		})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		},
		"sort": []interface{}{
			map[string]interface{}{"date": map[string]interface{}{"order": "desc"}},
			map[string]interface{}{"serverId": map[string]interface{}{"order": "asc"}},
		},
	}
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source models.DailyRecord `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search returns matching records, newest first, and the total hit count.
func (r *RecordIndex) Search(ctx context.Context, q RecordQuery) ([]models.DailyRecord, int64, error) {
	size := q.Size
	if size < 1 {
		size = 31
	}
	if size > 500 {
		size = 500
	}

	body, err := json.Marshal(buildRecordQuery(q))
	if err != nil {
		return nil, 0, fmt.Errorf("encode query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{r.index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}
	res, err := req.Do(ctx, r.es.Client)
	if err != nil {
		return nil, 0, fmt.Errorf("search %s: %w", r.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return nil, 0, fmt.Errorf("search %s: %s: %s", r.index, res.Status(), string(msg))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, 0, fmt.Errorf("decode search response: %w", err)
	}

	records := make([]models.DailyRecord, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		records = append(records, h.Source)
	}
	return records, parsed.Hits.Total.Value, nil
}
