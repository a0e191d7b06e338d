package model

import (
	"sort"
	"time"
)

// DurationUnit is the unit of Span.Duration and of every exclusive duration.
const DurationUnit = time.Microsecond

// DurationBetween returns end - start in DurationUnit, or 0 when end is not after start.
func DurationBetween(start, end time.Time) int64 {
	if !end.After(start) {
		return 0
	}
	return int64(end.Sub(start) / DurationUnit)
}

type interval struct {
	start time.Time
	end   time.Time
}

// AssignExclusiveDurations sets ExclusiveDuration on every span: its own time minus the
// time covered by its children in spans, with child intervals clipped to the parent's.
func AssignExclusiveDurations(spans []Span) {
	children := make(map[string][]int)
	for i, span := range spans {
		if span.ParentSpanID == "" || span.ParentSpanID == span.SpanID {
			continue
		}
		key := span.TraceID + "/" + span.ParentSpanID
		children[key] = append(children[key], i)
	}

	for i := range spans {
		span := &spans[i]
		var intervals []interval
		for _, c := range children[span.TraceID+"/"+span.SpanID] {
			child := spans[c]
			start, end := child.StartTime, child.EndTime
			if start.Before(span.StartTime) {
				start = span.StartTime
			}
			if end.After(span.EndTime) {
				end = span.EndTime
			}
			if end.After(start) {
				intervals = append(intervals, interval{start: start, end: end})
			}
		}
		exclusive := span.Duration - coveredDuration(intervals)
		if exclusive < 0 {
			exclusive = 0
		}
		span.ExclusiveDuration = &exclusive
	}
}

func coveredDuration(intervals []interval) int64 {
	if len(intervals) == 0 {
		return 0
	}
	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].start.Before(intervals[j].start)
	})
	var covered int64
	current := intervals[0]
	for _, next := range intervals[1:] {
		if !next.start.After(current.end) {
			if next.end.After(current.end) {
				current.end = next.end
			}
			continue
		}
		covered += DurationBetween(current.start, current.end)
		current = next
	}
	return covered + DurationBetween(current.start, current.end)
}
