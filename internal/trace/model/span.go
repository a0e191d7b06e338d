package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrorStatusThreshold is the largest status code that is not considered an error.
const ErrorStatusThreshold = 1

var ErrInvalidStatusCode = errors.New("status code is not numeric")

type Span struct {
	Id                string    `json:"_id,omitempty"`
	SpanID            string    `json:"span_id"`
	ParentSpanID      string    `json:"parent_span_id"`
	TraceID           string    `json:"trace_id"`
	StatusCode        int       `json:"status_code"`
	ServiceName       string    `json:"service_name"`
	SpanName          string    `json:"span_name"`
	Duration          int64     `json:"duration"`
	ExclusiveDuration *int64    `json:"exclusive_duration,omitempty"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
}

func (s Span) IsError() bool {
	return s.StatusCode > ErrorStatusThreshold
}

// Identity returns the baseline key of the span, or nil when either half is unknown.
func (s Span) Identity() *BaselineKey {
	if s.ServiceName == "" || s.SpanName == "" {
		return nil
	}
	return &BaselineKey{ServiceName: s.ServiceName, SpanName: s.SpanName}
}

// ParseStatusCode accepts the shapes a status code takes in query results:
// JSON numbers, integers and numeric strings.
func ParseStatusCode(value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: %v", ErrInvalidStatusCode, v)
		}
		return int(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, nil
		}
		code, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidStatusCode, v)
		}
		return code, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrInvalidStatusCode, value)
	}
}

// ClampDuration clamps d into [0, max].
func ClampDuration(d, max int64) int64 {
	if d < 0 {
		return 0
	}
	if d > max {
		return max
	}
	return d
}
