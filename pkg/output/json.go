package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// JSONFormatter writes the report as indented JSON. In quiet mode it writes
// a single compact line, so repeated runs append cleanly to a JSON Lines file.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns "json".
func (f *JSONFormatter) Name() string {
	return "json"
}

// quietReport is the one-line form of a report.
type quietReport struct {
	ID        uuid.UUID  `json:"id"`
	Summary   Summary    `json:"summary"`
	TimeRange *TimeRange `json:"time_range,omitempty"`
}

// Format renders the report.
func (f *JSONFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	if f.opts.Quiet {
		if err := enc.Encode(quietReport{
			ID:        report.ID,
			Summary:   report.Summary,
			TimeRange: report.Metadata.TimeRange,
		}); err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
		return nil
	}

	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
