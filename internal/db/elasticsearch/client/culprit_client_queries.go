package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Avi18971911/Culprit/internal/db/elasticsearch/model"
)

func (c *CulpritClientImpl) Search(
	ctx context.Context,
	query string,
	indices []string,
	queryResultSize *int,
) ([]map[string]interface{}, error) {
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(indices...),
		c.es.Search.WithBody(strings.NewReader(query)),
		c.es.Search.WithSize(getQuerySize(queryResultSize)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("failed to execute query: %s", res.String())
	}

	var esResponse model.EsResponse
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	return esResponse.Documents(), nil
}

func (c *CulpritClientImpl) Aggregate(
	ctx context.Context,
	query string,
	indices []string,
) (map[string]json.RawMessage, error) {
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(indices...),
		c.es.Search.WithBody(strings.NewReader(query)),
		c.es.Search.WithSize(0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute aggregation: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("failed to execute aggregation: %s", res.String())
	}

	var aggResponse model.EsAggregationResponse
	if err := json.NewDecoder(res.Body).Decode(&aggResponse); err != nil {
		return nil, fmt.Errorf("failed to decode aggregation response body: %w", err)
	}
	return aggResponse.Aggregations, nil
}

func (c *CulpritClientImpl) Count(
	ctx context.Context,
	query string,
	indices []string,
) (int64, error) {
	res, err := c.es.Count(
		c.es.Count.WithContext(ctx),
		c.es.Count.WithIndex(indices...),
		c.es.Count.WithBody(strings.NewReader(query)),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to execute count: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("failed to execute count: %s", res.String())
	}

	var countResponse model.CountResponse
	if err := json.NewDecoder(res.Body).Decode(&countResponse); err != nil {
		return 0, fmt.Errorf("failed to decode count response body: %w", err)
	}
	return int64(countResponse.Count), nil
}

func getQuerySize(querySize *int) int {
	if querySize == nil {
		return SearchResultSize
	}
	return *querySize
}
