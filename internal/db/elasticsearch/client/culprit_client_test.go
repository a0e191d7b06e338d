package client

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type document struct {
	Id     string `json:"_id,omitempty"`
	SpanID string `json:"span_id"`
}

func TestToMetaAndDataMap(t *testing.T) {
	t.Run("should move the id into the index action", func(t *testing.T) {
		meta, data, err := ToMetaAndDataMap([]document{{Id: "doc-1", SpanID: "a"}, {SpanID: "b"}})
		require.NoError(t, err)
		require.Len(t, meta, 2)
		assert.Equal(t, MetaMap{"index": map[string]interface{}{"_id": "doc-1"}}, meta[0])
		assert.Equal(t, MetaMap{"index": map[string]interface{}{}}, meta[1])
		assert.Equal(t, DocumentMap{"span_id": "a"}, data[0])
		assert.NotContains(t, data[0], "_id")
	})
}

func TestBuildBulkBody(t *testing.T) {
	t.Run("should interleave action and document lines", func(t *testing.T) {
		body, err := buildBulkBody(
			[]MetaMap{{"index": map[string]interface{}{"_id": "1"}}},
			[]DocumentMap{{"span_id": "a"}, {"span_id": "b"}},
		)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSuffix(string(body), "\n"), "\n")
		assert.Equal(t, []string{
			`{"index":{"_id":"1"}}`,
			`{"span_id":"a"}`,
			`{"index":{}}`,
			`{"span_id":"b"}`,
		}, lines)
	})

	t.Run("should produce nothing for no documents", func(t *testing.T) {
		body, err := buildBulkBody(nil, nil)
		require.NoError(t, err)
		assert.Empty(t, body)
	})
}

func TestGetQuerySize(t *testing.T) {
	size := 42
	assert.Equal(t, SearchResultSize, getQuerySize(nil))
	assert.Equal(t, 42, getQuerySize(&size))
}
