// Package parser reads HAProxy access logs, classifies each line and yields
// the lines that fall inside an optional time window.
package parser

import "time"

// ParsedLine represents a single accepted log line with extracted metadata.
type ParsedLine struct {
	// Raw is the original line content.
	Raw string

	// Timestamp is the accept date extracted from the log line.
	Timestamp time.Time

	// Source is the file path this line came from.
	Source string

	// LineNum is the 1-based line number in the source file.
	LineNum int
}

// Counters holds running line totals for one or more log files.
type Counters struct {
	TotalLines   int `json:"total_lines"`
	ValidLines   int `json:"valid_lines"`
	InvalidLines int `json:"invalid_lines"`
}

// Add returns the sum of c and o.
func (c Counters) Add(o Counters) Counters {
	return Counters{
		TotalLines:   c.TotalLines + o.TotalLines,
		ValidLines:   c.ValidLines + o.ValidLines,
		InvalidLines: c.InvalidLines + o.InvalidLines,
	}
}
