package output

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ccollicutt/haplog/pkg/analyzer"
	"github.com/ccollicutt/haplog/pkg/parser"
)

func TestNewTextFormatter(t *testing.T) {
	f := NewTextFormatter(FormatOptions{})
	if f == nil {
		t.Fatal("NewTextFormatter() returned nil")
	}
	if f.Name() != "text" {
		t.Errorf("Name() = %q, want %q", f.Name(), "text")
	}
}

func TestTextFormatter_Format_Empty(t *testing.T) {
	f := NewTextFormatter(FormatOptions{Width: 80})
	report := &Report{Results: []*analyzer.CommandResult{}}

	var buf bytes.Buffer
	if err := f.Format(context.Background(), report, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "haplog Analysis Report") {
		t.Error("Output missing header")
	}
	if !strings.Contains(output, "0 file(s), 0 lines") {
		t.Errorf("Output missing summary:\n%s", output)
	}
}

func TestTextFormatter_Format(t *testing.T) {
	f := NewTextFormatter(FormatOptions{Width: 60})
	report := createTestReport()

	var buf bytes.Buffer
	if err := f.Format(context.Background(), report, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := buf.String()
	wants := []string{
		"[COUNT] counter\n  3\n",
		"[COUNTER] top_ips",
		"10.0.0.1",
		"[AVERAGE] average_response_time\n  12.50 ms\n",
		"[VALUES] slow_requests\n  1500 ms\n",
		"[SERIES] requests_per_minute",
		"2013-12-09 10:00",
		"3 file(s)",
		"4 invalid",
		"Window: 09/Dec/2013:00:00:00 to 10/Dec/2013:00:00:00, 3 line(s) inside",
		"Skipped 1 line(s) outside the HTTP log format",
	}
	for _, want := range wants {
		if !strings.Contains(output, want) {
			t.Errorf("Output missing %q:\n%s", want, output)
		}
	}
	if strings.Contains(output, "Run ID") {
		t.Error("Non-verbose output should not include the run ID")
	}
}

func TestTextFormatter_Format_Quiet(t *testing.T) {
	f := NewTextFormatter(FormatOptions{Quiet: true})
	report := createTestReport()

	var buf bytes.Buffer
	if err := f.Format(context.Background(), report, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	want := "haplog: 10 lines, 6 valid, 4 invalid, 3 in window\n"
	if buf.String() != want {
		t.Errorf("Format() = %q, want %q", buf.String(), want)
	}
}

func TestTextFormatter_Format_Verbose(t *testing.T) {
	f := NewTextFormatter(FormatOptions{Verbose: true, Width: 80})
	report := createTestReport()

	var buf bytes.Buffer
	if err := f.Format(context.Background(), report, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"Count valid lines",
		"a.log: 4 lines, 3 valid, 1 invalid, 3 in window",
		"Run ID: " + report.ID.String(),
		"Duration:",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Verbose output missing %q:\n%s", want, output)
		}
	}
}

func TestFormatCounts(t *testing.T) {
	rows := []analyzer.KeyCount{
		{Key: strings.Repeat("k", 50), Count: 10},
		{Key: "short", Count: 5},
	}

	var buf bytes.Buffer
	formatCounts(rows, 40, &buf)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	for _, line := range lines {
		if len(line) > 40 {
			t.Errorf("line %q is wider than 40 columns", line)
		}
	}
	if !strings.Contains(lines[0], "~") {
		t.Errorf("long key was not truncated: %q", lines[0])
	}
	if strings.Count(lines[0], "#") <= strings.Count(lines[1], "#") {
		t.Errorf("bar for the larger count is not longer:\n%s", buf.String())
	}
}

func TestFormatCounts_Empty(t *testing.T) {
	var buf bytes.Buffer
	formatCounts(nil, 80, &buf)
	if buf.String() != "  none\n" {
		t.Errorf("formatCounts(nil) = %q", buf.String())
	}
}

func TestNewReport(t *testing.T) {
	start := time.Date(2013, 12, 9, 0, 0, 0, 0, time.UTC)
	result := &analyzer.AnalysisResult{
		Results: []*analyzer.CommandResult{{Name: "counter", Kind: analyzer.KindCount, Count: 2}},
		Files: []analyzer.FileStats{
			{Path: "a.log", Counters: parser.Counters{TotalLines: 3, ValidLines: 2, InvalidLines: 1}, AcceptedLines: 2},
		},
		Metadata: analyzer.AnalysisMetadata{
			Sources:       []string{"a.log"},
			Window:        parser.Window{Start: start},
			StartTime:     start,
			EndTime:       start.Add(time.Second),
			AcceptedLines: 2,
		},
	}

	report := NewReport(result, "haplog.yaml")

	if report.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("ID is the nil UUID")
	}
	if NewReport(result, "").ID == report.ID {
		t.Error("two reports share an ID")
	}
	if report.Summary.TotalLines != 3 || report.Summary.InvalidLines != 1 || report.Summary.AcceptedLines != 2 {
		t.Errorf("Summary = %+v", report.Summary)
	}
	if report.Metadata.Duration != time.Second {
		t.Errorf("Duration = %v, want 1s", report.Metadata.Duration)
	}
	if report.Metadata.TimeRange == nil || !report.Metadata.TimeRange.End.IsZero() {
		t.Errorf("TimeRange = %+v, want open-ended range", report.Metadata.TimeRange)
	}
	if !report.HasIssues() {
		t.Error("HasIssues() = false, want true")
	}

	result.Metadata.Window = parser.Window{}
	if NewReport(result, "").Metadata.TimeRange != nil {
		t.Error("TimeRange set without a window")
	}
}

func TestNewFormatter(t *testing.T) {
	for _, name := range []string{"", "text", "json"} {
		if _, err := NewFormatter(name, FormatOptions{}); err != nil {
			t.Errorf("NewFormatter(%q) error = %v", name, err)
		}
	}
	if _, err := NewFormatter("xml", FormatOptions{}); err == nil {
		t.Error("NewFormatter(xml) expected error")
	}
}

func createTestReport() *Report {
	start := time.Date(2013, 12, 9, 0, 0, 0, 0, time.UTC)
	result := &analyzer.AnalysisResult{
		Results: []*analyzer.CommandResult{
			{Name: "counter", Description: "Count valid lines inside the time window", Kind: analyzer.KindCount, Count: 3, Records: 3},
			{Name: "top_ips", Kind: analyzer.KindCounter, Counts: []analyzer.KeyCount{{Key: "10.0.0.1", Count: 2}, {Key: "10.0.0.2", Count: 1}}},
			{Name: "average_response_time", Kind: analyzer.KindAverage, Average: 12.5},
			{Name: "slow_requests", Kind: analyzer.KindValues, Values: []int{1500}},
			{Name: "requests_per_minute", Kind: analyzer.KindSeries, Counts: []analyzer.KeyCount{{Key: "2013-12-09 10:00", Count: 3}}},
		},
		Files: []analyzer.FileStats{
			{Path: "a.log", Counters: parser.Counters{TotalLines: 4, ValidLines: 3, InvalidLines: 1}, AcceptedLines: 3},
			{Path: "b.log", Counters: parser.Counters{TotalLines: 3, ValidLines: 2, InvalidLines: 1}},
			{Path: "c.log", Counters: parser.Counters{TotalLines: 3, ValidLines: 1, InvalidLines: 2}},
		},
		Metadata: analyzer.AnalysisMetadata{
			Sources:       []string{"a.log", "b.log", "c.log"},
			Window:        parser.Window{Start: start, End: start.Add(24 * time.Hour)},
			StartTime:     start,
			EndTime:       start.Add(50 * time.Millisecond),
			AcceptedLines: 3,
			UnparsedLines: 1,
		},
	}
	return NewReport(result, "")
}
