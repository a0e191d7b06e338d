package model

import (
	"encoding/json"
	"fmt"
)

type EsAggregationResponse struct {
	Took         int                        `json:"took"`
	TimedOut     bool                       `json:"timed_out"`
	Aggregations map[string]json.RawMessage `json:"aggregations"`
}

type TermsAggregation struct {
	Buckets []Bucket `json:"buckets"`
}

// Bucket is one terms bucket. Sub-aggregations appear next to key and doc_count in
// the response and are kept raw in Aggregations.
type Bucket struct {
	Key          string
	DocCount     int
	Aggregations map[string]json.RawMessage
}

func (b *Bucket) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode bucket: %w", err)
	}

	if keyAsString, ok := raw["key_as_string"]; ok {
		if err := json.Unmarshal(keyAsString, &b.Key); err != nil {
			return fmt.Errorf("failed to decode bucket key_as_string: %w", err)
		}
	} else if key, ok := raw["key"]; ok {
		var value interface{}
		if err := json.Unmarshal(key, &value); err != nil {
			return fmt.Errorf("failed to decode bucket key: %w", err)
		}
		b.Key = fmt.Sprintf("%v", value)
	}
	if docCount, ok := raw["doc_count"]; ok {
		if err := json.Unmarshal(docCount, &b.DocCount); err != nil {
			return fmt.Errorf("failed to decode bucket doc_count: %w", err)
		}
	}

	delete(raw, "key")
	delete(raw, "key_as_string")
	delete(raw, "doc_count")
	b.Aggregations = raw
	return nil
}

type MetricAggregation struct {
	Value *float64 `json:"value"`
}

// DecodeTerms decodes the named terms aggregation. A missing aggregation has no buckets.
func DecodeTerms(aggregations map[string]json.RawMessage, name string) (TermsAggregation, error) {
	var terms TermsAggregation
	raw, ok := aggregations[name]
	if !ok {
		return terms, nil
	}
	if err := json.Unmarshal(raw, &terms); err != nil {
		return terms, fmt.Errorf("failed to decode terms aggregation %s: %w", name, err)
	}
	return terms, nil
}

// DecodeMetric decodes the named single value metric aggregation.
func DecodeMetric(aggregations map[string]json.RawMessage, name string) (*float64, error) {
	raw, ok := aggregations[name]
	if !ok {
		return nil, nil
	}
	var metric MetricAggregation
	if err := json.Unmarshal(raw, &metric); err != nil {
		return nil, fmt.Errorf("failed to decode metric aggregation %s: %w", name, err)
	}
	return metric.Value, nil
}
