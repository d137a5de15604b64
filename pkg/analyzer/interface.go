package analyzer

import (
	"context"

	"github.com/ccollicutt/haplog/pkg/haproxy"
)

// Command aggregates parsed records into one report section.
// Each analysis (counter, top_ips, ...) implements this interface.
type Command interface {
	// Name returns the command name used on the command line.
	Name() string

	// Description returns a one-line summary for listings.
	Description() string

	// Process handles a single record, updating internal state.
	Process(ctx context.Context, rec *haproxy.Record) error

	// Finalize returns the aggregated result.
	// Called after all records have been processed.
	Finalize(ctx context.Context) (*CommandResult, error)

	// Reset clears internal state for reuse.
	Reset()
}
