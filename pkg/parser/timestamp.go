package parser

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// AcceptDateLayout is the Go time layout of the HAProxy accept date,
// e.g. 09/Dec/2013:12:59:46.633.
const AcceptDateLayout = "02/Jan/2006:15:04:05.000"

// acceptDatePattern captures the bracketed accept date of an HTTP log line.
var acceptDatePattern = regexp.MustCompile(`\[(\d{2}/[A-Za-z]{3}/\d{4}:\d{2}:\d{2}:\d{2}\.\d{3})\]`)

// ErrNoTimestamp is returned when a line carries no timestamp substring.
var ErrNoTimestamp = errors.New("timestamp pattern did not match")

// TimestampExtractor extracts and parses timestamps from log lines.
type TimestampExtractor struct {
	pattern *regexp.Regexp
	layout  string
}

// NewTimestampExtractor creates a new timestamp extractor.
func NewTimestampExtractor(pattern *regexp.Regexp, layout string) *TimestampExtractor {
	return &TimestampExtractor{
		pattern: pattern,
		layout:  layout,
	}
}

// Extract attempts to extract and parse a timestamp from a log line.
// Returns the parsed time and nil error on success.
// Returns zero time and error if the pattern doesn't match or parsing fails.
func (e *TimestampExtractor) Extract(line string) (time.Time, error) {
	matches := e.pattern.FindStringSubmatch(line)
	if len(matches) < 2 {
		return time.Time{}, ErrNoTimestamp
	}

	tsStr := matches[1]

	ts, err := time.Parse(e.layout, tsStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", tsStr, err)
	}

	return ts, nil
}

var acceptDateExtractor = NewTimestampExtractor(acceptDatePattern, AcceptDateLayout)

// Classify reports whether line is a valid HAProxy log line and, if so,
// returns its accept date in UTC. It has no side effects.
func Classify(line string) (time.Time, bool) {
	ts, err := acceptDateExtractor.Extract(line)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
