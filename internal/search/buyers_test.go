package search

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"wholesale-crm/internal/common/errors"
	"wholesale-crm/internal/common/logger"
	"wholesale-crm/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helpers
// ==========================

type fakeES struct {
	mu       sync.Mutex
	requests map[string]string
	search   string
	bulk     string
	status   int
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests[r.Method+" "+r.URL.Path] = string(body)
	status := f.status
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
		io.WriteString(w, `{"error":{"type":"index_not_found_exception"}}`)
		return
	}

	switch {
	case strings.HasSuffix(r.URL.Path, "/_search"):
		io.WriteString(w, f.search)
	case strings.HasSuffix(r.URL.Path, "/_bulk"):
		io.WriteString(w, f.bulk)
	case strings.HasSuffix(r.URL.Path, "/_delete_by_query"):
		io.WriteString(w, `{"deleted":1}`)
	default:
		io.WriteString(w, `{"acknowledged":true}`)
	}
}

func (f *fakeES) body(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[key]
}

func newTestIndex(t *testing.T) (*BuyerIndex, *fakeES) {
	fake := &fakeES{
		requests: make(map[string]string),
		bulk:     `{"errors":false,"items":[]}`,
	}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	return NewBuyerIndex(client, "", logger.NewTestLogger(t)), fake
}

// ==========================
// Tests
// ==========================

func TestBuyerIndex_Reindex(t *testing.T) {
	idx, fake := newTestIndex(t)

	buyers := []models.Buyer{
		{ID: "b1", Name: "Ann", Status: models.BuyerStatusActive},
		{ID: "b2", Name: "Bob", Status: models.BuyerStatusCold},
	}
	require.NoError(t, idx.Reindex(context.Background(), buyers))

	lines := []string{}
	sc := bufio.NewScanner(strings.NewReader(fake.body("POST /crm-buyers/_bulk")))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.Len(t, lines, 4)
	assert.JSONEq(t, `{"index":{"_id":"b1"}}`, lines[0])
	assert.Contains(t, lines[1], `"name":"Ann"`)
	assert.JSONEq(t, `{"index":{"_id":"b2"}}`, lines[2])

	prune := fake.body("POST /crm-buyers/_delete_by_query")
	assert.Contains(t, prune, `"values":["b1","b2"]`)
}

func TestBuyerIndex_ReindexReportsRejectedDocuments(t *testing.T) {
	idx, fake := newTestIndex(t)
	fake.bulk = `{"errors":true,"items":[{"index":{"_id":"b1","error":{"type":"mapper_parsing_exception"}}}]}`

	err := idx.Reindex(context.Background(), []models.Buyer{{ID: "b1", Name: "Ann"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1")
}

func TestBuyerIndex_EmptyDirectoryOnlyPrunes(t *testing.T) {
	idx, fake := newTestIndex(t)

	require.NoError(t, idx.Reindex(context.Background(), nil))
	assert.Empty(t, fake.body("POST /crm-buyers/_bulk"))
	assert.Contains(t, fake.body("POST /crm-buyers/_delete_by_query"), `"values":[]`)
}

func TestBuyerIndex_Search(t *testing.T) {
	idx, fake := newTestIndex(t)
	fake.search = `{
		"took": 3,
		"hits": {
			"total": {"value": 1},
			"hits": [{"_source": {"id": "b1", "name": "Ann", "status": "active", "preferredAreas": ["Houston"]}}]
		}
	}`

	res, err := idx.Search(context.Background(), Query{Text: "houston", Status: models.BuyerStatusActive, Size: 500})
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.Total)
	assert.Equal(t, int64(3), res.Took)
	require.Len(t, res.Buyers, 1)
	assert.Equal(t, []string{"Houston"}, res.Buyers[0].PreferredAreas)

	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(fake.body("POST /crm-buyers/_search")), &sent))
	boolQ := sent["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.Len(t, boolQ["must"], 1)
	assert.Len(t, boolQ["filter"], 1)
}

func TestBuyerIndex_SearchFailure(t *testing.T) {
	idx, fake := newTestIndex(t)
	fake.status = http.StatusNotFound

	_, err := idx.Search(context.Background(), Query{Text: "x"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSearchQueryFailed, errors.AsStandardError(err).Code)
}

func TestBuyerIndex_EnsureIndex(t *testing.T) {
	idx, fake := newTestIndex(t)

	require.NoError(t, idx.EnsureIndex(context.Background()))
	assert.Contains(t, fake.body("PUT /crm-buyers"), `"status": {"type": "keyword"}`)
}

func TestBuildQuery_MatchAllWithoutText(t *testing.T) {
	q := buildQuery(Query{Type: models.BuyerTypeFixFlip})
	boolQ := q["query"].(map[string]interface{})["bool"].(map[string]interface{})

	must := boolQ["must"].([]interface{})
	require.Len(t, must, 1)
	assert.Contains(t, must[0], "match_all")
	assert.Len(t, boolQ["filter"], 1)
}
