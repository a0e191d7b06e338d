package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/Avi18971911/Culprit/internal/trace/model"
	"github.com/Avi18971911/Culprit/internal/write_buffer"
	protoTrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	v1 "go.opentelemetry.io/proto/otlp/trace/v1"
	"go.uber.org/zap"
)

const unknownServiceName = "Never Assigned"

// TraceServiceServerImpl receives OTLP trace exports and queues the spans for indexing,
// with exclusive durations computed over each export.
type TraceServiceServerImpl struct {
	protoTrace.UnimplementedTraceServiceServer
	writeBuffer write_buffer.DatabaseWriteBuffer[model.Span]
	logger      *zap.Logger
}

func NewTraceServiceServerImpl(
	logger *zap.Logger,
	dbWriteBuffer write_buffer.DatabaseWriteBuffer[model.Span],
) TraceServiceServerImpl {
	logger.Info("Creating new TraceServiceServerImpl")
	return TraceServiceServerImpl{
		logger:      logger,
		writeBuffer: dbWriteBuffer,
	}
}

func (tss TraceServiceServerImpl) Export(
	ctx context.Context,
	req *protoTrace.ExportTraceServiceRequest,
) (*protoTrace.ExportTraceServiceResponse, error) {
	var typedSpans []model.Span
	for _, resourceSpan := range req.GetResourceSpans() {
		serviceName := getServiceName(resourceSpan)
		if serviceName == unknownServiceName {
			tss.logger.Warn("Service name not found in resource span")
		}
		typedSpans = append(typedSpans, getTypedSpans(resourceSpan, serviceName)...)
	}
	if len(typedSpans) == 0 {
		return &protoTrace.ExportTraceServiceResponse{}, nil
	}

	model.AssignExclusiveDurations(typedSpans)
	tss.writeBuffer.WriteToBuffer(typedSpans)
	tss.logger.Debug("Queued exported spans", zap.Int("count", len(typedSpans)))
	return &protoTrace.ExportTraceServiceResponse{}, nil
}

func getServiceName(resourceSpan *v1.ResourceSpans) string {
	var serviceName = unknownServiceName
	for _, attr := range resourceSpan.GetResource().GetAttributes() {
		if attr.GetKey() == "service.name" {
			serviceName = attr.GetValue().GetStringValue()
		}
	}
	return serviceName
}

func getTypedSpans(resourceSpan *v1.ResourceSpans, serviceName string) []model.Span {
	var typedSpans []model.Span
	for _, scopeSpan := range resourceSpan.GetScopeSpans() {
		for _, span := range scopeSpan.GetSpans() {
			typedSpans = append(typedSpans, getTypedSpan(span, serviceName))
		}
	}
	return typedSpans
}

func getTypedSpan(span *v1.Span, serviceName string) model.Span {
	startTime := time.Unix(0, int64(span.GetStartTimeUnixNano())).UTC()
	endTime := time.Unix(0, int64(span.GetEndTimeUnixNano())).UTC()
	spanId := hex.EncodeToString(span.GetSpanId())
	traceId := hex.EncodeToString(span.GetTraceId())

	return model.Span{
		Id:           generateDocumentId(traceId, spanId),
		SpanID:       spanId,
		ParentSpanID: hex.EncodeToString(span.GetParentSpanId()),
		TraceID:      traceId,
		StatusCode:   getStatusCode(span),
		ServiceName:  serviceName,
		SpanName:     span.GetName(),
		Duration:     model.DurationBetween(startTime, endTime),
		StartTime:    startTime,
		EndTime:      endTime,
	}
}

// getStatusCode keeps the OTLP numbering: 0 unset, 1 ok, 2 error.
func getStatusCode(span *v1.Span) int {
	return int(span.GetStatus().GetCode())
}

// generateDocumentId makes re-exported spans overwrite their earlier copy.
func generateDocumentId(traceId string, spanId string) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:%s", traceId, spanId)))
	return hex.EncodeToString(hash[:])
}
