package server

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/Avi18971911/Culprit/internal/trace/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protoTrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonV1 "go.opentelemetry.io/proto/otlp/common/v1"
	resourceV1 "go.opentelemetry.io/proto/otlp/resource/v1"
	v1 "go.opentelemetry.io/proto/otlp/trace/v1"
	"go.uber.org/zap"
)

type recordingBuffer struct {
	written [][]model.Span
}

func (r *recordingBuffer) WriteToBuffer(value []model.Span) {
	r.written = append(r.written, value)
}

func (r *recordingBuffer) Flush(ctx context.Context) error {
	return nil
}

func resourceSpans(serviceName string, spans ...*v1.Span) *v1.ResourceSpans {
	return &v1.ResourceSpans{
		Resource: &resourceV1.Resource{Attributes: []*commonV1.KeyValue{{
			Key:   "service.name",
			Value: &commonV1.AnyValue{Value: &commonV1.AnyValue_StringValue{StringValue: serviceName}},
		}}},
		ScopeSpans: []*v1.ScopeSpans{{Spans: spans}},
	}
}

func TestExport(t *testing.T) {
	traceId := []byte{0x0a, 0x0b}
	start := uint64(time.Date(2025, 8, 14, 12, 0, 0, 0, time.UTC).UnixNano())
	ms := uint64(time.Millisecond)

	t.Run("should map spans and compute exclusive durations across resources", func(t *testing.T) {
		buffer := &recordingBuffer{}
		tss := NewTraceServiceServerImpl(zap.NewNop(), buffer)
		req := &protoTrace.ExportTraceServiceRequest{ResourceSpans: []*v1.ResourceSpans{
			resourceSpans("frontend", &v1.Span{
				TraceId:           traceId,
				SpanId:            []byte{0x01},
				Name:              "GET /cart",
				StartTimeUnixNano: start,
				EndTimeUnixNano:   start + 100*ms,
			}),
			resourceSpans("cart", &v1.Span{
				TraceId:           traceId,
				SpanId:            []byte{0x02},
				ParentSpanId:      []byte{0x01},
				Name:              "oteldemo.CartService/GetCart",
				StartTimeUnixNano: start + 10*ms,
				EndTimeUnixNano:   start + 70*ms,
				Status:            &v1.Status{Code: v1.Status_STATUS_CODE_ERROR},
			}),
		}}

		_, err := tss.Export(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, buffer.written, 1)
		spans := buffer.written[0]
		require.Len(t, spans, 2)

		parent, child := spans[0], spans[1]
		assert.Equal(t, "01", parent.SpanID)
		assert.Equal(t, hex.EncodeToString(traceId), parent.TraceID)
		assert.Equal(t, "frontend", parent.ServiceName)
		assert.Equal(t, "GET /cart", parent.SpanName)
		assert.Equal(t, 0, parent.StatusCode)
		assert.Equal(t, int64(100_000), parent.Duration)
		assert.Equal(t, int64(40_000), *parent.ExclusiveDuration)

		assert.Equal(t, "01", child.ParentSpanID)
		assert.Equal(t, "cart", child.ServiceName)
		assert.Equal(t, 2, child.StatusCode)
		assert.True(t, child.IsError())
		assert.Equal(t, int64(60_000), *child.ExclusiveDuration)
		assert.NotEqual(t, parent.Id, child.Id)
	})

	t.Run("should not queue empty exports", func(t *testing.T) {
		buffer := &recordingBuffer{}
		tss := NewTraceServiceServerImpl(zap.NewNop(), buffer)
		_, err := tss.Export(context.Background(), &protoTrace.ExportTraceServiceRequest{})
		require.NoError(t, err)
		assert.Empty(t, buffer.written)
	})

	t.Run("should mark spans of resources without a service name", func(t *testing.T) {
		buffer := &recordingBuffer{}
		tss := NewTraceServiceServerImpl(zap.NewNop(), buffer)
		_, err := tss.Export(context.Background(), &protoTrace.ExportTraceServiceRequest{ResourceSpans: []*v1.ResourceSpans{{
			ScopeSpans: []*v1.ScopeSpans{{Spans: []*v1.Span{{TraceId: traceId, SpanId: []byte{0x03}}}}},
		}}})
		require.NoError(t, err)
		assert.Equal(t, unknownServiceName, buffer.written[0][0].ServiceName)
	})
}
