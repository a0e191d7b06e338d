package rootcause

import (
	"github.com/Avi18971911/Culprit/internal/trace/model"
	"go.uber.org/zap"
)

// Finder locates the spans where an error chain originates: spans that errored
// while none of their immediate children did.
type Finder struct {
	logger *zap.Logger
}

func NewFinder(logger *zap.Logger) *Finder {
	return &Finder{logger: logger}
}

// FindRootCauseSpans returns root cause span ids over every trace in spans,
// ordered by trace id and then by first-seen order within the trace.
func (f *Finder) FindRootCauseSpans(spans []model.Span) []string {
	rootCauses := make([]string, 0)
	if len(spans) == 0 {
		return rootCauses
	}

	traces := model.GroupByTrace(spans)
	for _, trace := range traces {
		traceRootCauses := RootCauseSpansForTrace(trace)
		f.logger.Debug(
			"Root cause spans for trace",
			zap.String("trace_id", trace.TraceID),
			zap.Strings("span_ids", traceRootCauses),
		)
		rootCauses = append(rootCauses, traceRootCauses...)
	}

	f.logger.Info(
		"Found root cause spans",
		zap.Int("span_count", len(spans)),
		zap.Int("trace_count", len(traces)),
		zap.Int("root_cause_count", len(rootCauses)),
	)
	return rootCauses
}

// RootCauseSpansForTrace applies the immediate-children check to a single trace.
// A repeated span id keeps its first-seen position and its last status.
func RootCauseSpansForTrace(trace model.Trace) []string {
	var order []string
	status := make(map[string]int, len(trace.Spans))
	for _, span := range trace.Spans {
		if _, seen := status[span.SpanID]; !seen {
			order = append(order, span.SpanID)
		}
		status[span.SpanID] = span.StatusCode
	}

	children := make(map[string][]string)
	for _, span := range trace.Spans {
		parentID := span.ParentSpanID
		if parentID == "" || parentID == span.SpanID {
			continue
		}
		// dangling parents have no entry in status and are treated as unknown
		if _, ok := status[parentID]; !ok {
			continue
		}
		children[parentID] = append(children[parentID], span.SpanID)
	}

	var rootCauses []string
	for _, spanID := range order {
		if status[spanID] <= model.ErrorStatusThreshold {
			continue
		}
		if hasErroredChild(children[spanID], status) {
			continue
		}
		rootCauses = append(rootCauses, spanID)
	}
	return rootCauses
}

func hasErroredChild(childIDs []string, status map[string]int) bool {
	for _, childID := range childIDs {
		if status[childID] > model.ErrorStatusThreshold {
			return true
		}
	}
	return false
}
