// Package output provides formatting and output generation for analysis results.
package output

import (
	"time"

	"github.com/google/uuid"

	"github.com/ccollicutt/haplog/pkg/analyzer"
)

// Report is the complete analysis output.
type Report struct {
	// ID identifies this analysis run, so webhook receivers can deduplicate.
	ID uuid.UUID `json:"id"`

	// Summary provides aggregate statistics.
	Summary Summary `json:"summary"`

	// Files holds per-file line counters.
	Files []analyzer.FileStats `json:"files"`

	// Results contains the output of each command.
	Results []*analyzer.CommandResult `json:"results"`

	// Metadata provides context about the analysis.
	Metadata Metadata `json:"metadata"`
}

// Summary provides aggregate statistics.
type Summary struct {
	// Files is the number of log files analyzed.
	Files int `json:"files"`

	// TotalLines is the number of lines scanned across all files.
	TotalLines int `json:"total_lines"`

	// ValidLines is the number of lines with a valid accept date.
	ValidLines int `json:"valid_lines"`

	// InvalidLines is the number of lines without a valid accept date.
	InvalidLines int `json:"invalid_lines"`

	// AcceptedLines is the number of valid lines inside the time window.
	AcceptedLines int `json:"accepted_lines"`

	// UnparsedLines is the number of accepted lines outside the HTTP log format.
	UnparsedLines int `json:"unparsed_lines"`

	// Commands is the number of commands that ran.
	Commands int `json:"commands"`
}

// Metadata provides context about the analysis run.
type Metadata struct {
	// ConfigFile is the path to the configuration file used.
	ConfigFile string `json:"config_file,omitempty"`

	// Sources lists the log files that were analyzed.
	Sources []string `json:"sources"`

	// TimeRange is the time filter that was applied, if any.
	TimeRange *TimeRange `json:"time_range,omitempty"`

	// AnalyzedAt is when the analysis was performed.
	AnalyzedAt time.Time `json:"analyzed_at"`

	// Duration is how long the analysis took.
	Duration time.Duration `json:"duration"`
}

// TimeRange represents a time window for filtering. End is zero when the
// window has no upper bound.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end,omitzero"`
}

// NewReport creates a Report from analysis results.
func NewReport(result *analyzer.AnalysisResult, configFile string) *Report {
	totals := result.Totals()

	report := &Report{
		ID:      uuid.New(),
		Files:   result.Files,
		Results: result.Results,
		Metadata: Metadata{
			ConfigFile: configFile,
			Sources:    result.Metadata.Sources,
			AnalyzedAt: result.Metadata.EndTime,
			Duration:   result.Metadata.EndTime.Sub(result.Metadata.StartTime),
		},
		Summary: Summary{
			Files:         len(result.Files),
			TotalLines:    totals.TotalLines,
			ValidLines:    totals.ValidLines,
			InvalidLines:  totals.InvalidLines,
			AcceptedLines: result.Metadata.AcceptedLines,
			UnparsedLines: result.Metadata.UnparsedLines,
			Commands:      len(result.Results),
		},
	}

	if w := result.Metadata.Window; !w.IsZero() {
		report.Metadata.TimeRange = &TimeRange{Start: w.Start, End: w.End}
	}

	return report
}

// HasIssues returns true if any scanned line was invalid.
func (r *Report) HasIssues() bool {
	return r.Summary.InvalidLines > 0
}
