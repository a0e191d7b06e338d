package patterns

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Avi18971911/Culprit/internal/db/elasticsearch/client"
	"github.com/Avi18971911/Culprit/internal/trace/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseResult(t *testing.T) {
	t.Run("should parse the versioned schema", func(t *testing.T) {
		result, err := ParseResult([]byte(`{"version":1,"patterns":[{"expression":"serviceName=cart","count":12}]}`))
		require.NoError(t, err)
		assert.Equal(t, Result{Version: 1, Patterns: []Pattern{{Expression: "serviceName=cart", Count: 12}}}, result)
	})

	t.Run("should parse the columnar schema and skip rows without counts", func(t *testing.T) {
		result, err := ParseResult([]byte(`[["\"serviceName\"='cart'", "\"serviceName\"='ad'", null], [30, null, 4], [0.5, 0.1, null]]`))
		require.NoError(t, err)
		assert.Equal(t, []Pattern{{Expression: `"serviceName"='cart'`, Count: 30}}, result.Patterns)
	})

	t.Run("should treat empty input as no patterns", func(t *testing.T) {
		result, err := ParseResult([]byte("  null "))
		require.NoError(t, err)
		assert.Empty(t, result.Patterns)
	})

	t.Run("should reject unknown versions and shapes", func(t *testing.T) {
		_, err := ParseResult([]byte(`{"version":2,"patterns":[]}`))
		assert.True(t, errors.Is(err, ErrUnsupportedResult))

		_, err = ParseResult([]byte(`{"version":1,"patterns":[],"extra":true}`))
		assert.True(t, errors.Is(err, ErrUnsupportedResult))

		_, err = ParseResult([]byte(`[["a"]]`))
		assert.True(t, errors.Is(err, ErrUnsupportedResult))

		_, err = ParseResult([]byte(`[["a"],[1.5]]`))
		assert.True(t, errors.Is(err, ErrUnsupportedResult))

		_, err = ParseResult([]byte(`__import__('os')`))
		assert.True(t, errors.Is(err, ErrUnsupportedResult))
	})
}

func TestParseExpression(t *testing.T) {
	t.Run("should parse quoted and bare terms", func(t *testing.T) {
		terms, err := ParseExpression(`"serviceName"='cart' and spanName=GetCart`)
		require.NoError(t, err)
		assert.Equal(t, []Term{
			{Field: "serviceName", Value: "cart"},
			{Field: "spanName", Value: "GetCart"},
		}, terms)
	})

	t.Run("should keep spaces and escaped quotes inside quotes", func(t *testing.T) {
		terms, err := ParseExpression(`spanName='router flagservice egress' AND note='it\'s'`)
		require.NoError(t, err)
		assert.Equal(t, "router flagservice egress", terms[0].Value)
		assert.Equal(t, "it's", terms[1].Value)
	})

	t.Run("should reject malformed expressions", func(t *testing.T) {
		for _, expression := range []string{
			"",
			"serviceName",
			"serviceName=",
			"=cart",
			"serviceName='cart",
			"serviceName=cart OR spanName=x",
			"serviceName=cart spanName=x",
		} {
			_, err := ParseExpression(expression)
			assert.True(t, errors.Is(err, ErrInvalidExpression), "expression %q", expression)
		}
	})

	t.Run("should read back formatted expressions", func(t *testing.T) {
		expression := FormatExpression(Term{Field: FieldServiceName, Value: "cart"}, Term{Field: FieldSpanName, Value: `o'clock`})
		terms, err := ParseExpression(expression)
		require.NoError(t, err)
		assert.Equal(t, []Term{{Field: FieldServiceName, Value: "cart"}, {Field: FieldSpanName, Value: "o'clock"}}, terms)
	})
}

func TestTableCatalog(t *testing.T) {
	catalog := NewTableCatalog(map[string]string{
		"CartService":     "cart",
		"Currency/":       "currency",
		"CurrencyService": "currency",
		"Service":         "generic",
	})

	t.Run("should take service names as they are", func(t *testing.T) {
		service, ok := catalog.ServiceFor(Term{Field: "serviceName", Value: "checkout"})
		assert.True(t, ok)
		assert.Equal(t, "checkout", service)
	})

	t.Run("should prefer the longest matching span name fragment", func(t *testing.T) {
		service, ok := catalog.ServiceFor(Term{Field: "spanName", Value: "oteldemo.CartService/GetCart"})
		assert.True(t, ok)
		assert.Equal(t, "cart", service)
	})

	t.Run("should not resolve unknown span names or fields", func(t *testing.T) {
		_, ok := catalog.ServiceFor(Term{Field: "spanName", Value: "GET /"})
		assert.False(t, ok)
		_, ok = catalog.ServiceFor(Term{Field: "anomaly_label", Value: "true"})
		assert.False(t, ok)
	})
}

func TestRankServices(t *testing.T) {
	catalog := NewTableCatalog(map[string]string{"CartService": "cart"})
	result := Result{Version: 1, Patterns: []Pattern{
		{Expression: `"serviceName"='checkout'`, Count: 5},
		{Expression: `spanName='oteldemo.CartService/AddItem'`, Count: 7},
		{Expression: `"serviceName"='cart' AND spanName=GetCart`, Count: 3},
		{Expression: `"serviceName"='ad'`, Count: 10},
		{Expression: `broken='`, Count: 100},
		{Expression: `spanName=unknown`, Count: 100},
	}}

	t.Run("should sum counts per service", func(t *testing.T) {
		ranking := RankServices(result, catalog, nil)
		assert.Equal(t, []ServiceEvidence{
			{Service: "ad", Count: 10},
			{Service: "cart", Count: 10},
			{Service: "checkout", Count: 5},
		}, ranking.Services)
		assert.Equal(t, 1, ranking.Unparsed)
		assert.Equal(t, 1, ranking.Unmapped)
	})

	t.Run("should keep only candidate services", func(t *testing.T) {
		ranking := RankServices(result, catalog, []string{"checkout", "cart"})
		top, ok := ranking.Top()
		require.True(t, ok)
		assert.Equal(t, ServiceEvidence{Service: "cart", Count: 10}, top)
		assert.Len(t, ranking.Services, 2)
	})

	t.Run("should report nothing for an empty result", func(t *testing.T) {
		_, ok := RankServices(Result{}, catalog, nil).Top()
		assert.False(t, ok)
	})
}

func TestCandidates(t *testing.T) {
	t.Run("should split candidates on the first dot", func(t *testing.T) {
		assert.Equal(t, Candidate{Service: "cart", Kind: "Failure"}, ParseCandidate("cart.Failure"))
		assert.Equal(t, Candidate{Service: "cart"}, ParseCandidate("cart"))
		assert.Equal(t, "cart.cpu", Candidate{Service: "cart", Kind: "cpu"}.String())
	})

	t.Run("should collect services of one kind", func(t *testing.T) {
		services := ServicesOfKind([]string{"cart.Failure", "ad.cpu", "payment.Failure", "cart.Failure"}, KindFailure)
		assert.Equal(t, []string{"cart", "payment"}, services)
	})

	t.Run("should match latency kinds in priority order", func(t *testing.T) {
		candidate, ok := MatchCandidate("cart", []string{"cart.latency", "cart.memory", "ad.cpu"}, LatencyKinds)
		assert.True(t, ok)
		assert.Equal(t, "cart.memory", candidate)

		candidate, ok = MatchCandidate("ad", []string{"ad"}, LatencyKinds)
		assert.True(t, ok)
		assert.Equal(t, "ad", candidate)

		_, ok = MatchCandidate("payment", []string{"ad.cpu"}, LatencyKinds)
		assert.False(t, ok)
	})
}

type fakeAggregator struct {
	client.CulpritClient
	aggregations map[string]json.RawMessage
	err          error
	query        map[string]interface{}
}

func (f *fakeAggregator) Aggregate(ctx context.Context, query string, indices []string) (map[string]json.RawMessage, error) {
	_ = json.Unmarshal([]byte(query), &f.query)
	return f.aggregations, f.err
}

func TestElasticsearchMiner(t *testing.T) {
	t.Run("should turn service and span name buckets into patterns", func(t *testing.T) {
		ac := &fakeAggregator{aggregations: map[string]json.RawMessage{
			"services": json.RawMessage(`{"buckets":[
				{"key":"cart","doc_count":4,"span_names":{"buckets":[{"key":"GetCart","doc_count":1},{"key":"AddItem","doc_count":3}]}},
				{"key":"ad","doc_count":2,"span_names":{"buckets":[{"key":"GetAds","doc_count":2}]}}
			]}`),
		}}
		miner := NewElasticsearchMiner(ac, "span_index", zap.NewNop())
		result, err := miner.GetPatterns(context.Background(), model.TimeWindow{}, []string{"a", "b"})
		require.NoError(t, err)
		assert.Equal(t, []Pattern{
			{Expression: `"serviceName"='cart' AND "spanName"='AddItem'`, Count: 3},
			{Expression: `"serviceName"='ad' AND "spanName"='GetAds'`, Count: 2},
			{Expression: `"serviceName"='cart' AND "spanName"='GetCart'`, Count: 1},
		}, result.Patterns)

		ranking := RankServices(result, NewTableCatalog(nil), nil)
		assert.Equal(t, []ServiceEvidence{{Service: "cart", Count: 4}, {Service: "ad", Count: 2}}, ranking.Services)
	})

	t.Run("should cap the number of mined spans", func(t *testing.T) {
		ac := &fakeAggregator{aggregations: map[string]json.RawMessage{}}
		ids := make([]string, MaxMinedSpans+5)
		for i := range ids {
			ids[i] = "s"
		}
		_, err := NewElasticsearchMiner(ac, "span_index", zap.NewNop()).GetPatterns(context.Background(), model.TimeWindow{}, ids)
		require.NoError(t, err)
		filter := ac.query["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
		terms := filter[0].(map[string]interface{})["terms"].(map[string]interface{})["span_id"].([]interface{})
		assert.Len(t, terms, MaxMinedSpans)
	})

	t.Run("should not query without spans", func(t *testing.T) {
		ac := &fakeAggregator{err: errors.New("unreachable")}
		result, err := NewElasticsearchMiner(ac, "span_index", zap.NewNop()).GetPatterns(context.Background(), model.TimeWindow{}, nil)
		require.NoError(t, err)
		assert.Empty(t, result.Patterns)
	})
}
