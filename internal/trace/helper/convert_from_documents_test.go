package helper

import (
	"testing"
	"time"

	"github.com/Avi18971911/Culprit/internal/trace/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertFromDocuments(t *testing.T) {
	t.Run("should read well formed span documents", func(t *testing.T) {
		conversion := ConvertFromDocuments([]map[string]interface{}{
			{
				"_id":                "doc",
				"span_id":            "s1",
				"parent_span_id":     "s0",
				"trace_id":           "t1",
				"service_name":       "cart",
				"span_name":          "GetCart",
				"status_code":        float64(2),
				"duration":           float64(1500),
				"exclusive_duration": float64(700),
				"start_time":         "2025-06-14T21:42:43.123456789Z",
			},
		})
		require.Len(t, conversion.Spans, 1)
		span := conversion.Spans[0]
		assert.Equal(t, "doc", span.Id)
		assert.Equal(t, "s0", span.ParentSpanID)
		assert.Equal(t, 2, span.StatusCode)
		assert.True(t, span.IsError())
		assert.Equal(t, int64(1500), span.Duration)
		require.NotNil(t, span.ExclusiveDuration)
		assert.Equal(t, int64(700), *span.ExclusiveDuration)
		assert.Equal(t, time.Date(2025, 6, 14, 21, 42, 43, 123456789, time.UTC), span.StartTime)
		assert.True(t, span.EndTime.IsZero())
	})

	t.Run("should skip documents without ids and count them", func(t *testing.T) {
		conversion := ConvertFromDocuments([]map[string]interface{}{
			{"trace_id": "t1"},
			{"span_id": "s1"},
			{"span_id": 4, "trace_id": "t1"},
			{"span_id": "ok", "trace_id": "t1"},
		})
		assert.Equal(t, 3, conversion.Malformed)
		require.Len(t, conversion.Spans, 1)
		assert.Equal(t, "ok", conversion.Spans[0].SpanID)
		assert.Nil(t, conversion.Spans[0].ExclusiveDuration)
	})

	t.Run("should treat unreadable status codes as not errored", func(t *testing.T) {
		conversion := ConvertFromDocuments([]map[string]interface{}{
			{"span_id": "s1", "trace_id": "t1", "status_code": "ERROR"},
		})
		assert.Equal(t, 1, conversion.InvalidStatus)
		require.Len(t, conversion.Spans, 1)
		assert.False(t, conversion.Spans[0].IsError())
		assert.Equal(t, "1 spans, 0 malformed, 1 invalid status", DescribeConversion(conversion))
	})
}

func TestConvertDurationDocuments(t *testing.T) {
	samples, malformed := ConvertDurationDocuments([]map[string]interface{}{
		{"span_id": "a", "trace_id": "t1", "exclusive_duration": float64(40), "service_name": "cart", "span_name": "GetCart"},
		{"span_id": "b", "trace_id": "t1", "exclusive_duration": float64(10)},
		{"span_id": "c", "trace_id": "t1", "exclusive_duration": "fast"},
		{"trace_id": "t1", "exclusive_duration": float64(3)},
	})
	assert.Equal(t, 2, malformed)
	require.Len(t, samples, 2)
	assert.Equal(t, &model.BaselineKey{ServiceName: "cart", SpanName: "GetCart"}, samples[0].Identity)
	assert.Nil(t, samples[1].Identity)
	assert.Equal(t, int64(10), samples[1].Duration)
}

func TestConvertIdentityDocuments(t *testing.T) {
	identities, malformed := ConvertIdentityDocuments([]map[string]interface{}{
		{"span_id": "a", "service_name": "cart", "span_name": "GetCart"},
		{"span_id": "b", "service_name": "cart"},
	})
	assert.Equal(t, 1, malformed)
	assert.Equal(t, map[string]model.BaselineKey{"a": {ServiceName: "cart", SpanName: "GetCart"}}, identities)
}
