package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const windowLayout = "2006-01-02 15:04:05"

var ErrInvalidWindow = errors.New("invalid time window")

type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Key is a stable identifier for the window, used to cache per-window results.
func (w TimeWindow) Key() string {
	return fmt.Sprintf("%d-%d", w.Start.UnixNano(), w.End.UnixNano())
}

func (w TimeWindow) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// ParseTimeWindow parses both bounds. Each bound may be "2006-01-02 15:04:05"
// (UTC), RFC3339, or unix seconds.
func ParseTimeWindow(start, end string) (TimeWindow, error) {
	from, err := parseTime(start)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("%w: start: %w", ErrInvalidWindow, err)
	}
	to, err := parseTime(end)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("%w: end: %w", ErrInvalidWindow, err)
	}
	if to.Before(from) {
		return TimeWindow{}, fmt.Errorf("%w: end %s is before start %s", ErrInvalidWindow, to, from)
	}
	return TimeWindow{Start: from, End: to}, nil
}

func parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(seconds, 0).UTC(), nil
	}
	if t, err := time.Parse(windowLayout, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
	}
	return t.UTC(), nil
}
