package client

import (
	"context"
	"encoding/json"

	"github.com/elastic/go-elasticsearch/v8"
)

const SearchResultSize = 10

type RefreshRate string

const (
	// Wait for the changes made by the request to be made visible by a refresh before replying.
	Wait RefreshRate = "wait_for"
	// Immediate Refresh the relevant primary and replica shards (not the whole index) immediately after the operation occurs.
	Immediate RefreshRate = "true"
	// Async Take no refresh related actions. The changes made by this request will be made visible at some point after the request returns.
	Async RefreshRate = "false"
)

type CulpritClient interface {
	// BulkIndex indexes (inserts) multiple documents in the same index
	// https://www.elastic.co/guide/en/elasticsearch/reference/master/docs-bulk.html
	BulkIndex(ctx context.Context, metaInfo []MetaMap, documentInfo []DocumentMap, index string) error
	// Search searches for documents in the index
	// https://www.elastic.co/guide/en/elasticsearch/reference/master/search-search.html
	// queryResultSize is the number of results to return, nil for default
	Search(ctx context.Context, query string, indices []string, queryResultSize *int) ([]map[string]interface{}, error)
	// Aggregate runs a search that only returns aggregations, keyed by aggregation name
	// https://www.elastic.co/guide/en/elasticsearch/reference/master/search-aggregations.html
	Aggregate(ctx context.Context, query string, indices []string) (map[string]json.RawMessage, error)
	// Count counts the number of documents in the index matching the query
	// https://www.elastic.co/guide/en/elasticsearch/reference/master/search-count.html
	Count(ctx context.Context, query string, indices []string) (int64, error)
}

type CulpritClientImpl struct {
	es          *elasticsearch.Client
	refreshRate string
}

func NewCulpritClientImpl(es *elasticsearch.Client, refreshRate RefreshRate) *CulpritClientImpl {
	return &CulpritClientImpl{es: es, refreshRate: string(refreshRate)}
}
