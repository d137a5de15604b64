package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/ccollicutt/haplog/pkg/analyzer"
)

const defaultWidth = 80

// windowLayout matches the accept date layout users pass to --start.
const windowLayout = "02/Jan/2006:15:04:05"

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(_ context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	_, err := fmt.Fprintf(w, "haplog: %d lines, %d valid, %d invalid, %d in window\n",
		report.Summary.TotalLines,
		report.Summary.ValidLines,
		report.Summary.InvalidLines,
		report.Summary.AcceptedLines)
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	width := f.width(w)

	fmt.Fprintln(w, "=== haplog Analysis Report ===")
	fmt.Fprintln(w)

	for _, result := range report.Results {
		f.formatResult(result, width, w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d file(s), %d lines, %d valid, %d invalid\n",
		report.Summary.Files,
		report.Summary.TotalLines,
		report.Summary.ValidLines,
		report.Summary.InvalidLines)

	if tr := report.Metadata.TimeRange; tr != nil {
		end := "open"
		if !tr.End.IsZero() {
			end = tr.End.Format(windowLayout)
		}
		fmt.Fprintf(w, "Window: %s to %s, %d line(s) inside\n",
			tr.Start.Format(windowLayout), end, report.Summary.AcceptedLines)
	}

	if report.Summary.UnparsedLines > 0 {
		fmt.Fprintf(w, "Skipped %d line(s) outside the HTTP log format\n", report.Summary.UnparsedLines)
	}

	if f.opts.Verbose {
		for _, fs := range report.Files {
			fmt.Fprintf(w, "  %s: %d lines, %d valid, %d invalid, %d in window\n",
				fs.Path, fs.TotalLines, fs.ValidLines, fs.InvalidLines, fs.AcceptedLines)
		}
		fmt.Fprintf(w, "Run ID: %s\n", report.ID)
		_, err := fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(1e6))
		return err
	}

	return nil
}

func (f *TextFormatter) formatResult(result *analyzer.CommandResult, width int, w io.Writer) {
	fmt.Fprintf(w, "[%s] %s\n", strings.ToUpper(string(result.Kind)), result.Name)

	if result.Description != "" && f.opts.Verbose {
		fmt.Fprintf(w, "  %s\n", result.Description)
	}

	switch result.Kind {
	case analyzer.KindCount:
		fmt.Fprintf(w, "  %d\n", result.Count)
	case analyzer.KindAverage:
		fmt.Fprintf(w, "  %.2f ms\n", result.Average)
	case analyzer.KindCounter, analyzer.KindSeries:
		formatCounts(result.Counts, width, w)
	case analyzer.KindValues:
		if len(result.Values) == 0 {
			fmt.Fprintln(w, "  none")
		}
		for _, v := range result.Values {
			fmt.Fprintf(w, "  %d ms\n", v)
		}
	case analyzer.KindLines:
		for _, line := range result.Lines {
			fmt.Fprintln(w, line)
		}
	}

	fmt.Fprintln(w)
}

// formatCounts prints one row per key with a bar scaled to the largest count.
// Keys get at most 40% of the width.
func formatCounts(rows []analyzer.KeyCount, width int, w io.Writer) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "  none")
		return
	}

	keyLen, maxCount := 0, 0
	for _, r := range rows {
		keyLen = max(keyLen, len(r.Key))
		maxCount = max(maxCount, r.Count)
	}
	keyLen = min(keyLen, int(float64(width)*0.4))

	countLen := len(fmt.Sprint(maxCount))
	barLen := width - keyLen - countLen - 6

	for _, r := range rows {
		key := r.Key
		if len(key) > keyLen {
			key = key[:max(keyLen-1, 0)] + "~"
		}
		bar := ""
		if barLen > 0 && maxCount > 0 {
			bar = strings.Repeat("#", max(r.Count*barLen/maxCount, 1))
		}
		fmt.Fprintf(w, "  %-*s %*d %s\n", keyLen, key, countLen, r.Count, bar)
	}
}

// width resolves the report width from options, then the terminal behind w.
func (f *TextFormatter) width(w io.Writer) int {
	if f.opts.Width > 0 {
		return f.opts.Width
	}
	if file, ok := w.(*os.File); ok {
		if cols, _, err := term.GetSize(int(file.Fd())); err == nil && cols > 0 {
			return cols
		}
	}
	return defaultWidth
}
