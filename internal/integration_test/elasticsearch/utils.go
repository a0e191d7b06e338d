//go:build integration

package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Avi18971911/Culprit/internal/db/elasticsearch/client"
	"github.com/Avi18971911/Culprit/internal/trace/model"
	"github.com/elastic/go-elasticsearch/v8"
)

var testStart = time.Date(2025, 8, 14, 12, 0, 0, 0, time.UTC)

func deleteAllDocumentsFromIndex(es *elasticsearch.Client, index string) error {
	queryJSON, _ := json.Marshal(map[string]interface{}{
		"query": map[string]interface{}{
			"match_all": map[string]interface{}{},
		},
	})
	res, err := es.DeleteByQuery([]string{index}, bytes.NewReader(queryJSON), es.DeleteByQuery.WithRefresh(true))
	if err != nil {
		return fmt.Errorf("failed to delete documents by query: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("failed to delete documents in index %s", res.String())
	}
	return nil
}

func loadDataIntoElasticsearch[Data any](ac client.CulpritClient, data []Data, index string) error {
	metaMap, dataMap, err := client.ToMetaAndDataMap(data)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return ac.BulkIndex(ctx, metaMap, dataMap, index)
}

// span builds a stored span starting offset after testStart. Exclusive durations are
// computed per trace when the spans are loaded.
func span(traceID, spanID, parentID, service, name string, status int, offset, length time.Duration) model.Span {
	start := testStart.Add(offset)
	end := start.Add(length)
	return model.Span{
		Id:           traceID + "-" + spanID,
		SpanID:       spanID,
		ParentSpanID: parentID,
		TraceID:      traceID,
		StatusCode:   status,
		ServiceName:  service,
		SpanName:     name,
		Duration:     model.DurationBetween(start, end),
		StartTime:    start,
		EndTime:      end,
	}
}
