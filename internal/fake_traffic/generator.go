// Package fake_traffic builds synthetic OTLP trace exports for a small checkout call chain,
// with an optional fault injected into one service.
package fake_traffic

import (
	"fmt"
	"math/rand"
	"time"

	protoTrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonV1 "go.opentelemetry.io/proto/otlp/common/v1"
	resourceV1 "go.opentelemetry.io/proto/otlp/resource/v1"
	v1 "go.opentelemetry.io/proto/otlp/trace/v1"
)

type Fault string

const (
	NoFault      Fault = "none"
	FailureFault Fault = "failure"
	LatencyFault Fault = "latency"
)

func ParseFault(value string) (Fault, error) {
	switch Fault(value) {
	case NoFault, FailureFault, LatencyFault:
		return Fault(value), nil
	default:
		return "", fmt.Errorf("unknown fault %q", value)
	}
}

type call struct {
	service string
	name    string
	// self is the time spent before calling the next hop
	self time.Duration
}

// chain is called front to back, each hop the parent of the next.
var chain = []call{
	{service: "frontend", name: "POST /api/checkout", self: 20 * time.Millisecond},
	{service: "checkout", name: "oteldemo.CheckoutService/PlaceOrder", self: 40 * time.Millisecond},
	{service: "payment", name: "oteldemo.PaymentService/Charge", self: 30 * time.Millisecond},
}

type Generator struct {
	rng          *rand.Rand
	faultService string
	fault        Fault
	faultDelay   time.Duration
}

// NewGenerator injects fault into faultService, which must be one of the chain's services.
func NewGenerator(seed int64, faultService string, fault Fault) (*Generator, error) {
	known := false
	for _, c := range chain {
		if c.service == faultService {
			known = true
		}
	}
	if fault != NoFault && !known {
		return nil, fmt.Errorf("unknown fault service %q", faultService)
	}
	return &Generator{
		rng:          rand.New(rand.NewSource(seed)),
		faultService: faultService,
		fault:        fault,
		faultDelay:   3 * time.Second,
	}, nil
}

func Services() []string {
	services := make([]string, len(chain))
	for i, c := range chain {
		services[i] = c.service
	}
	return services
}

// Request returns one export holding traceCount traces that start at start.
func (g *Generator) Request(start time.Time, traceCount int) *protoTrace.ExportTraceServiceRequest {
	byService := make(map[string][]*v1.Span)
	for i := 0; i < traceCount; i++ {
		traceStart := start.Add(time.Duration(i) * 10 * time.Millisecond)
		for _, span := range g.trace(traceStart) {
			byService[span.service] = append(byService[span.service], span.span)
		}
	}

	req := &protoTrace.ExportTraceServiceRequest{}
	for _, c := range chain {
		spans, ok := byService[c.service]
		if !ok {
			continue
		}
		req.ResourceSpans = append(req.ResourceSpans, &v1.ResourceSpans{
			Resource: &resourceV1.Resource{Attributes: []*commonV1.KeyValue{{
				Key:   "service.name",
				Value: &commonV1.AnyValue{Value: &commonV1.AnyValue_StringValue{StringValue: c.service}},
			}}},
			ScopeSpans: []*v1.ScopeSpans{{Spans: spans}},
		})
	}
	return req
}

type serviceSpan struct {
	service string
	span    *v1.Span
}

// trace builds the chain back to front so each parent covers its child.
func (g *Generator) trace(start time.Time) []serviceSpan {
	traceId := g.bytes(16)
	spanIds := make([][]byte, len(chain))
	for i := range chain {
		spanIds[i] = g.bytes(8)
	}

	spans := make([]serviceSpan, len(chain))
	var childDuration time.Duration
	failing := false
	for i := len(chain) - 1; i >= 0; i-- {
		c := chain[i]
		self := c.self + time.Duration(g.rng.Intn(10))*time.Millisecond
		if c.service == g.faultService && g.fault == LatencyFault {
			self += g.faultDelay
		}
		if c.service == g.faultService && g.fault == FailureFault {
			failing = true
		}
		duration := self + childDuration
		spanStart := start.Add(time.Duration(i) * time.Millisecond)

		span := &v1.Span{
			TraceId:           traceId,
			SpanId:            spanIds[i],
			Name:              c.name,
			StartTimeUnixNano: uint64(spanStart.UnixNano()),
			EndTimeUnixNano:   uint64(spanStart.Add(duration).UnixNano()),
			Status:            &v1.Status{Code: v1.Status_STATUS_CODE_OK},
		}
		if i > 0 {
			span.ParentSpanId = spanIds[i-1]
		}
		if failing {
			span.Status = &v1.Status{Code: v1.Status_STATUS_CODE_ERROR, Message: "downstream failure"}
		}
		spans[i] = serviceSpan{service: c.service, span: span}
		childDuration = duration
	}
	return spans
}

func (g *Generator) bytes(n int) []byte {
	b := make([]byte, n)
	g.rng.Read(b)
	return b
}
