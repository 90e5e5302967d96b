// Package search mirrors the buyer directory into Elasticsearch for
// free-text lookup.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"wholesale-crm/internal/common/errors"
	"wholesale-crm/internal/common/logger"
	"wholesale-crm/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const (
	DefaultIndex = "crm-buyers"
	DefaultSize  = 20
	MaxSize      = 100
)

const indexMapping = `{
	"mappings": {
		"properties": {
			"id": {"type": "keyword"},
			"name": {"type": "text"},
			"company": {"type": "text"},
			"email": {"type": "keyword"},
			"type": {"type": "keyword"},
			"status": {"type": "keyword"},
			"preferredAreas": {"type": "text"},
			"propertyTypes": {"type": "text"},
			"notes": {"type": "text"},
			"minBudget": {"type": "double"},
			"maxBudget": {"type": "double"},
			"performanceScore": {"type": "integer"}
		}
	}
}`

type BuyerIndex struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewBuyerIndex(client *elasticsearch.Client, index string, log logger.Logger) *BuyerIndex {
	if index == "" {
		index = DefaultIndex
	}
	return &BuyerIndex{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "buyer-index", "index": index}),
	}
}

// EnsureIndex creates the index with its mapping unless it already exists.
func (b *BuyerIndex) EnsureIndex(ctx context.Context) error {
	res, err := esapi.IndicesCreateRequest{
		Index: b.index,
		Body:  strings.NewReader(indexMapping),
	}.Do(ctx, b.client)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && !strings.Contains(readBody(res.Body), "resource_already_exists_exception") {
		return fmt.Errorf("create index: %s", res.Status())
	}
	return nil
}

// Reindex writes every buyer and removes documents for buyers no longer in
// the directory.
func (b *BuyerIndex) Reindex(ctx context.Context, buyers []models.Buyer) error {
	start := time.Now()

	if len(buyers) > 0 {
		var body bytes.Buffer
		enc := json.NewEncoder(&body)
		for _, buyer := range buyers {
			action := map[string]interface{}{"index": map[string]interface{}{"_id": buyer.ID}}
			if err := enc.Encode(action); err != nil {
				return err
			}
			if err := enc.Encode(buyer); err != nil {
				return err
			}
		}

		res, err := esapi.BulkRequest{Index: b.index, Body: &body}.Do(ctx, b.client)
		if err != nil {
			return fmt.Errorf("bulk index: %w", err)
		}
		defer res.Body.Close()

		if res.IsError() {
			return fmt.Errorf("bulk index: %s", res.Status())
		}

		var bulk struct {
			Errors bool `json:"errors"`
			Items  []map[string]struct {
				ID    string          `json:"_id"`
				Error json.RawMessage `json:"error,omitempty"`
			} `json:"items"`
		}
		if err := json.NewDecoder(res.Body).Decode(&bulk); err != nil {
			return fmt.Errorf("decode bulk response: %w", err)
		}
		if bulk.Errors {
			failed := 0
			for _, item := range bulk.Items {
				for _, op := range item {
					if len(op.Error) > 0 {
						failed++
					}
				}
			}
			return fmt.Errorf("bulk index: %d of %d documents rejected", failed, len(buyers))
		}
	}

	if err := b.pruneExcept(ctx, buyers); err != nil {
		return err
	}

	b.logger.Debug("buyers reindexed", map[string]interface{}{
		"count":    len(buyers),
		"duration": time.Since(start).Milliseconds(),
	})
	return nil
}

func (b *BuyerIndex) pruneExcept(ctx context.Context, keep []models.Buyer) error {
	ids := make([]string, len(keep))
	for i, buyer := range keep {
		ids[i] = buyer.ID
	}
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must_not": []interface{}{
					map[string]interface{}{"ids": map[string]interface{}{"values": ids}},
				},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return err
	}

	res, err := esapi.DeleteByQueryRequest{
		Index: []string{b.index},
		Body:  bytes.NewReader(body),
	}.Do(ctx, b.client)
	if err != nil {
		return fmt.Errorf("prune index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("prune index: %s", res.Status())
	}
	return nil
}

type Query struct {
	Text   string
	Status models.BuyerStatus
	Type   models.BuyerType
	From   int
	Size   int
}

type Result struct {
	Buyers []models.Buyer `json:"buyers"`
	Total  int64          `json:"total"`
	Took   int64          `json:"took"`
}

// Search runs a free-text query over name, company, areas, property types
// and notes, optionally filtered by status and type.
func (b *BuyerIndex) Search(ctx context.Context, q Query) (*Result, error) {
	if q.Size <= 0 {
		q.Size = DefaultSize
	}
	if q.Size > MaxSize {
		q.Size = MaxSize
	}
	if q.From < 0 {
		q.From = 0
	}

	body, err := json.Marshal(buildQuery(q))
	if err != nil {
		return nil, errors.NewSearchQueryFailedError(err)
	}

	req := esapi.SearchRequest{
		Index: []string{b.index},
		Body:  bytes.NewReader(body),
		From:  &q.From,
		Size:  &q.Size,
	}

	res, err := req.Do(ctx, b.client)
	if err != nil {
		return nil, errors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.NewSearchQueryFailedError(fmt.Errorf("search failed: %s", res.Status()))
	}

	var r struct {
		Took int64 `json:"took"`
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Buyer `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, errors.NewSearchQueryFailedError(err)
	}

	out := &Result{Buyers: make([]models.Buyer, 0, len(r.Hits.Hits)), Total: r.Hits.Total.Value, Took: r.Took}
	for _, hit := range r.Hits.Hits {
		out.Buyers = append(out.Buyers, hit.Source)
	}
	return out, nil
}

func buildQuery(q Query) map[string]interface{} {
	must := []interface{}{}
	filter := []interface{}{}

	if text := strings.TrimSpace(q.Text); text != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"name^3", "company^2", "preferredAreas^2", "propertyTypes", "notes"},
				"type":   "best_fields",
			},
		})
	} else {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	if q.Status != "" {
		filter = append(filter, map[string]interface{}{"term": map[string]interface{}{"status": string(q.Status)}})
	}
	if q.Type != "" {
		filter = append(filter, map[string]interface{}{"term": map[string]interface{}{"type": string(q.Type)}})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filter,
			},
		},
		"sort": []interface{}{
			"_score",
			map[string]interface{}{"performanceScore": map[string]interface{}{"order": "desc"}},
		},
	}
}

func readBody(r io.Reader) string {
	b, _ := io.ReadAll(r)
	return string(b)
}
