package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timedSpan(id, parent string, startMs, endMs int) Span {
	base := time.Date(2025, 8, 14, 12, 0, 0, 0, time.UTC)
	start := base.Add(time.Duration(startMs) * time.Millisecond)
	end := base.Add(time.Duration(endMs) * time.Millisecond)
	return Span{
		SpanID:       id,
		ParentSpanID: parent,
		TraceID:      "t1",
		StartTime:    start,
		EndTime:      end,
		Duration:     DurationBetween(start, end),
	}
}

func TestAssignExclusiveDurations(t *testing.T) {
	t.Run("should subtract merged child time from the parent", func(t *testing.T) {
		spans := []Span{
			timedSpan("root", "", 0, 100),
			timedSpan("a", "root", 10, 40),
			timedSpan("b", "root", 30, 60),
			timedSpan("c", "root", 80, 120),
			timedSpan("grandchild", "a", 10, 20),
		}
		AssignExclusiveDurations(spans)

		exclusive := make(map[string]int64)
		for _, span := range spans {
			require.NotNil(t, span.ExclusiveDuration)
			exclusive[span.SpanID] = *span.ExclusiveDuration
		}
		// children cover 10-60 and 80-100 of root
		assert.Equal(t, int64(30_000), exclusive["root"])
		assert.Equal(t, int64(20_000), exclusive["a"])
		assert.Equal(t, int64(30_000), exclusive["b"])
		assert.Equal(t, int64(40_000), exclusive["c"])
		assert.Equal(t, int64(10_000), exclusive["grandchild"])
	})

	t.Run("should ignore self references and other traces", func(t *testing.T) {
		other := timedSpan("child", "root", 0, 100)
		other.TraceID = "t2"
		spans := []Span{timedSpan("root", "root", 0, 100), other}
		AssignExclusiveDurations(spans)
		assert.Equal(t, int64(100_000), *spans[0].ExclusiveDuration)
	})

	t.Run("should report zero for inverted intervals", func(t *testing.T) {
		assert.Equal(t, int64(0), DurationBetween(time.Unix(10, 0), time.Unix(5, 0)))
	})
}
