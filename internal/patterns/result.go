package patterns

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

const CurrentVersion = 1

var ErrUnsupportedResult = errors.New("unsupported pattern result")

// Pattern is one mined pattern expression and the number of records it matched.
type Pattern struct {
	Expression string `json:"expression"`
	Count      int64  `json:"count"`
}

// Result is an ordered list of mined patterns.
type Result struct {
	Version  int       `json:"version"`
	Patterns []Pattern `json:"patterns"`
}

// ParseResult decodes a pattern mining result. Two shapes are accepted: the versioned
// object {"version":1,"patterns":[{"expression":...,"count":...}]} and the columnar
// [[expression...],[count...],...] shape, where columns past the second are ignored.
func ParseResult(data []byte) (Result, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Result{Version: CurrentVersion, Patterns: []Pattern{}}, nil
	}
	switch trimmed[0] {
	case '{':
		return parseVersioned(trimmed)
	case '[':
		return parseColumnar(trimmed)
	default:
		return Result{}, fmt.Errorf("%w: expected a JSON object or array", ErrUnsupportedResult)
	}
}

func parseVersioned(data []byte) (Result, error) {
	var result Result
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&result); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrUnsupportedResult, err)
	}
	if result.Version != CurrentVersion {
		return Result{}, fmt.Errorf("%w: version %d", ErrUnsupportedResult, result.Version)
	}
	if result.Patterns == nil {
		result.Patterns = []Pattern{}
	}
	for i, pattern := range result.Patterns {
		if pattern.Count < 0 {
			return Result{}, fmt.Errorf("%w: pattern %d has a negative count", ErrUnsupportedResult, i)
		}
	}
	return result, nil
}

func parseColumnar(data []byte) (Result, error) {
	var columns []json.RawMessage
	if err := json.Unmarshal(data, &columns); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrUnsupportedResult, err)
	}
	if len(columns) < 2 {
		return Result{}, fmt.Errorf("%w: expected expression and count columns", ErrUnsupportedResult)
	}

	var expressions []*string
	if err := json.Unmarshal(columns[0], &expressions); err != nil {
		return Result{}, fmt.Errorf("%w: expression column: %w", ErrUnsupportedResult, err)
	}
	var counts []*float64
	if err := json.Unmarshal(columns[1], &counts); err != nil {
		return Result{}, fmt.Errorf("%w: count column: %w", ErrUnsupportedResult, err)
	}

	result := Result{Version: CurrentVersion, Patterns: make([]Pattern, 0, len(expressions))}
	for i, expression := range expressions {
		// rows without a count or expression carry no evidence
		if expression == nil || i >= len(counts) || counts[i] == nil {
			continue
		}
		count := *counts[i]
		if count < 0 || count != math.Trunc(count) {
			return Result{}, fmt.Errorf("%w: count %v at row %d", ErrUnsupportedResult, count, i)
		}
		result.Patterns = append(result.Patterns, Pattern{Expression: *expression, Count: int64(count)})
	}
	return result, nil
}
