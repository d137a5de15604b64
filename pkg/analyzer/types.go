// Package analyzer runs report commands over the accepted lines of HAProxy
// log files.
package analyzer

import (
	"time"

	"github.com/ccollicutt/haplog/pkg/parser"
)

// ResultKind tells formatters how to render a CommandResult.
type ResultKind string

const (
	// KindCount is a single number.
	KindCount ResultKind = "count"

	// KindCounter is a key/count table sorted by count, highest first.
	KindCounter ResultKind = "counter"

	// KindSeries is a key/count table in chronological order.
	KindSeries ResultKind = "series"

	// KindAverage is a single mean value.
	KindAverage ResultKind = "average"

	// KindValues is a list of numbers.
	KindValues ResultKind = "values"

	// KindLines is a list of raw log lines.
	KindLines ResultKind = "lines"
)

// CommandResult is the output of one command.
// Only the field matching Kind is populated.
type CommandResult struct {
	// Name is the command that produced this result.
	Name string `json:"name"`

	// Description is the command's one-line summary.
	Description string `json:"description"`

	// Kind selects the populated field below.
	Kind ResultKind `json:"kind"`

	Count   int        `json:"count"`
	Counts  []KeyCount `json:"counts,omitempty"`
	Average float64    `json:"average,omitempty"`
	Values  []int      `json:"values,omitempty"`
	Lines   []string   `json:"lines,omitempty"`

	// Records is the number of records the command processed.
	Records int `json:"records"`
}

// KeyCount is one row of a counter or series.
type KeyCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// FileStats holds the line counters of one log file after analysis.
type FileStats struct {
	Path string `json:"path"`
	parser.Counters

	// AcceptedLines is the number of valid lines inside the time window.
	AcceptedLines int `json:"accepted_lines"`
}

// AnalysisResult contains the complete analysis output.
type AnalysisResult struct {
	// Results contains one entry per command, in the order requested.
	Results []*CommandResult

	// Files contains per-file line counters, in the order given.
	Files []FileStats

	// Metadata provides context about the analysis.
	Metadata AnalysisMetadata
}

// AnalysisMetadata provides context about the analysis run.
type AnalysisMetadata struct {
	// Sources lists the log files that were analyzed.
	Sources []string

	// Window is the time filter applied; zero when none.
	Window parser.Window

	// StartTime is when analysis began.
	StartTime time.Time

	// EndTime is when analysis completed.
	EndTime time.Time

	// AcceptedLines is the number of lines handed to the record parser.
	AcceptedLines int

	// UnparsedLines is the number of accepted lines the record parser rejected.
	UnparsedLines int
}

// Totals sums the line counters of all files.
func (r *AnalysisResult) Totals() parser.Counters {
	var total parser.Counters
	for _, f := range r.Files {
		total = total.Add(f.Counters)
	}
	return total
}

// HasInvalidLines returns true if any file contained invalid lines.
func (r *AnalysisResult) HasInvalidLines() bool {
	return r.Totals().InvalidLines > 0
}
