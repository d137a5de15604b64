package parser

import (
	"context"
)

// LogSource provides an iterator over accepted log lines.
// Implementations must be safe for sequential access (not concurrent).
type LogSource interface {
	// Next returns the next accepted log line.
	// Returns io.EOF when no more lines are available.
	// Lines without a valid accept date, or outside the time window, are skipped.
	Next(ctx context.Context) (*ParsedLine, error)

	// Close releases any resources held by the source.
	Close() error
}

var (
	_ LogSource = (*LogFile)(nil)
	_ LogSource = (*MergedSource)(nil)
)
