package helper

import (
	"fmt"
	"math"
	"time"

	"github.com/Avi18971911/Culprit/internal/trace/model"
)

// Conversion holds the spans that could be read from query documents and the
// number of documents that could not.
type Conversion struct {
	Spans     []model.Span
	Malformed int
	// InvalidStatus counts spans kept with status 0 because their status code was unreadable.
	InvalidStatus int
}

// ConvertFromDocuments reads span documents. A document without a span or trace id is
// skipped; an unreadable status code is treated as not errored.
func ConvertFromDocuments(res []map[string]interface{}) Conversion {
	conversion := Conversion{Spans: make([]model.Span, 0, len(res))}
	for _, hit := range res {
		doc := model.Span{}

		if id, ok := hit["_id"].(string); ok {
			doc.Id = id
		}

		spanID, ok := hit["span_id"].(string)
		if !ok || spanID == "" {
			conversion.Malformed++
			continue
		}
		doc.SpanID = spanID

		traceID, ok := hit["trace_id"].(string)
		if !ok || traceID == "" {
			conversion.Malformed++
			continue
		}
		doc.TraceID = traceID

		if parentSpanID, ok := hit["parent_span_id"].(string); ok {
			doc.ParentSpanID = parentSpanID
		}
		if serviceName, ok := hit["service_name"].(string); ok {
			doc.ServiceName = serviceName
		}
		if spanName, ok := hit["span_name"].(string); ok {
			doc.SpanName = spanName
		}

		statusCode, err := model.ParseStatusCode(hit["status_code"])
		if err != nil {
			conversion.InvalidStatus++
			statusCode = 0
		}
		doc.StatusCode = statusCode

		if duration, ok := toInt64(hit["duration"]); ok {
			doc.Duration = duration
		}
		if exclusive, ok := toInt64(hit["exclusive_duration"]); ok {
			doc.ExclusiveDuration = &exclusive
		}
		doc.StartTime = toTime(hit["start_time"])
		doc.EndTime = toTime(hit["end_time"])

		conversion.Spans = append(conversion.Spans, doc)
	}
	return conversion
}

// ConvertDurationDocuments reads exclusive duration samples. Documents without a span id
// or a numeric exclusive duration are counted as malformed.
func ConvertDurationDocuments(res []map[string]interface{}) ([]model.SpanDuration, int) {
	samples := make([]model.SpanDuration, 0, len(res))
	malformed := 0
	for _, hit := range res {
		spanID, ok := hit["span_id"].(string)
		if !ok || spanID == "" {
			malformed++
			continue
		}
		duration, ok := toInt64(hit["exclusive_duration"])
		if !ok {
			malformed++
			continue
		}
		sample := model.SpanDuration{SpanID: spanID, Duration: duration}
		if traceID, ok := hit["trace_id"].(string); ok {
			sample.TraceID = traceID
		}
		serviceName, _ := hit["service_name"].(string)
		spanName, _ := hit["span_name"].(string)
		if serviceName != "" && spanName != "" {
			sample.Identity = &model.BaselineKey{ServiceName: serviceName, SpanName: spanName}
		}
		samples = append(samples, sample)
	}
	return samples, malformed
}

// ConvertIdentityDocuments reads (service, span name) pairs keyed by span id. Documents
// missing any of the three fields are counted as malformed.
func ConvertIdentityDocuments(res []map[string]interface{}) (map[string]model.BaselineKey, int) {
	identities := make(map[string]model.BaselineKey, len(res))
	malformed := 0
	for _, hit := range res {
		spanID, _ := hit["span_id"].(string)
		serviceName, _ := hit["service_name"].(string)
		spanName, _ := hit["span_name"].(string)
		if spanID == "" || serviceName == "" || spanName == "" {
			malformed++
			continue
		}
		identities[spanID] = model.BaselineKey{ServiceName: serviceName, SpanName: spanName}
	}
	return identities, malformed
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

func toTime(value interface{}) time.Time {
	s, ok := value.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// DescribeConversion summarises skipped documents for a log line.
func DescribeConversion(c Conversion) string {
	return fmt.Sprintf("%d spans, %d malformed, %d invalid status", len(c.Spans), c.Malformed, c.InvalidStatus)
}
