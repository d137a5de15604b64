package parser

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalidWindow is wrapped by every start/delta parsing failure.
var ErrInvalidWindow = errors.New("invalid time window")

// startLayouts are tried in order; the first one is the documented format.
var startLayouts = []string{
	"2/Jan/2006",
	"2/Jan/2006:15",
	"2/Jan/2006:15:04",
	"2/Jan/2006:15:04:05",
}

var deltaPattern = regexp.MustCompile(`^(\d+)([smhd])$`)

var deltaUnits = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
}

// ParseStart parses a window start such as "12/Dec/2019" (start of that day,
// UTC). An hour, minute and second may follow: "12/Dec/2019:10:30".
func ParseStart(s string) (time.Time, error) {
	for _, layout := range startLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: start %q (expected DD/Mon/YYYY[:HH[:MM[:SS]]])", ErrInvalidWindow, s)
}

// ParseDelta parses a window length such as "3d", "12h", "30m" or "45s".
// Go duration syntax ("1h30m") is accepted too. Negative values are rejected.
func ParseDelta(s string) (time.Duration, error) {
	if m := deltaPattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.ParseInt(m[1], 10, 64)
		unit := deltaUnits[m[2]]
		if err != nil || n > math.MaxInt64/int64(unit) {
			return 0, fmt.Errorf("%w: delta %q is out of range", ErrInvalidWindow, s)
		}
		return time.Duration(n) * unit, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: delta %q (expected <integer><s|m|h|d>)", ErrInvalidWindow, s)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: delta %q must not be negative", ErrInvalidWindow, s)
	}
	return d, nil
}

// Window is the time range a log line must fall into to be yielded.
// A zero Start means no window; a zero End means no upper bound.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow builds a Window from the raw start and delta strings. Empty
// strings mean "not given". A delta without a start has no effect.
func NewWindow(start, delta string) (Window, error) {
	var w Window
	if start != "" {
		t, err := ParseStart(start)
		if err != nil {
			return Window{}, err
		}
		w.Start = t
	}

	if delta != "" {
		d, err := ParseDelta(delta)
		if err != nil {
			return Window{}, err
		}
		if !w.Start.IsZero() {
			w.End = w.Start.Add(d)
		}
	}

	return w, nil
}

// IsZero reports whether no window is configured.
func (w Window) IsZero() bool {
	return w.Start.IsZero()
}

// Contains reports whether ts falls inside the window. Both bounds are
// inclusive.
func (w Window) Contains(ts time.Time) bool {
	if w.Start.IsZero() {
		return true
	}
	if ts.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && ts.After(w.End) {
		return false
	}
	return true
}
