package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const aggregationBody = `{
  "took": 3,
  "timed_out": false,
  "aggregations": {
    "traces": {
      "buckets": [
        {"key": "trace-1", "doc_count": 4, "max_duration": {"value": 2500000.0}},
        {"key": 17, "doc_count": 1, "max_duration": {"value": null}}
      ]
    }
  }
}`

func TestAggregationResponse(t *testing.T) {
	t.Run("should decode buckets with their sub aggregations", func(t *testing.T) {
		var res EsAggregationResponse
		require.NoError(t, json.Unmarshal([]byte(aggregationBody), &res))

		terms, err := DecodeTerms(res.Aggregations, "traces")
		require.NoError(t, err)
		require.Len(t, terms.Buckets, 2)

		first := terms.Buckets[0]
		assert.Equal(t, "trace-1", first.Key)
		assert.Equal(t, 4, first.DocCount)
		maxDuration, err := DecodeMetric(first.Aggregations, "max_duration")
		require.NoError(t, err)
		require.NotNil(t, maxDuration)
		assert.Equal(t, 2500000.0, *maxDuration)

		second := terms.Buckets[1]
		assert.Equal(t, "17", second.Key)
		maxDuration, err = DecodeMetric(second.Aggregations, "max_duration")
		require.NoError(t, err)
		assert.Nil(t, maxDuration)
	})

	t.Run("should treat a missing aggregation as empty", func(t *testing.T) {
		terms, err := DecodeTerms(map[string]json.RawMessage{}, "traces")
		require.NoError(t, err)
		assert.Empty(t, terms.Buckets)
	})
}

func TestDocuments(t *testing.T) {
	res := EsResponse{Hits: Hits{HitArray: []HitSource{
		{ID: "1", Source: map[string]interface{}{"span_id": "a"}},
		{ID: "2"},
	}}}
	docs := res.Documents()
	require.Len(t, docs, 2)
	assert.Equal(t, map[string]interface{}{"span_id": "a", "_id": "1"}, docs[0])
	assert.Equal(t, map[string]interface{}{"_id": "2"}, docs[1])
}
