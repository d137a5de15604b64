package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ccollicutt/haplog/pkg/haproxy"
	"github.com/ccollicutt/haplog/pkg/parser"
)

// Analyzer runs a set of commands over the accepted lines of log files.
type Analyzer struct {
	commands []Command
	logger   *slog.Logger
}

// AnalyzerOption configures analyzer behavior.
type AnalyzerOption func(*Analyzer)

// WithLogger sets the logger used for per-file and per-line diagnostics.
func WithLogger(l *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAnalyzer creates an analyzer for the named commands. Duplicate names
// run once. With no names, DefaultCommand runs.
func NewAnalyzer(names []string, opts ...AnalyzerOption) (*Analyzer, error) {
	a := &Analyzer{logger: slog.Default()}

	for _, opt := range opts {
		opt(a)
	}

	if len(names) == 0 {
		names = []string{DefaultCommand}
	}

	seen := make(map[string]bool)
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		cmd, err := NewCommand(name)
		if err != nil {
			return nil, err
		}
		a.commands = append(a.commands, cmd)
	}

	return a, nil
}

// Commands returns the names of the commands that will run, in order.
func (a *Analyzer) Commands() []string {
	names := make([]string, len(a.commands))
	for i, c := range a.commands {
		names[i] = c.Name()
	}
	return names
}

// Analyze reads every file once and returns per-file counters plus the
// command results. Several files are merged into one chronological stream.
// The files are closed before Analyze returns.
func (a *Analyzer) Analyze(ctx context.Context, files []*parser.LogFile) (*AnalysisResult, error) {
	result := &AnalysisResult{
		Results: make([]*CommandResult, 0, len(a.commands)),
		Metadata: AnalysisMetadata{
			StartTime: time.Now(),
		},
	}

	if len(files) > 0 {
		result.Metadata.Window = files[0].Window()
	}

	for _, cmd := range a.commands {
		cmd.Reset()
	}

	source := newSource(files)
	defer source.Close()

	accepted := make(map[string]int)

	for {
		line, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading log source: %w", err)
		}

		accepted[line.Source]++
		result.Metadata.AcceptedLines++

		rec, err := haproxy.Parse(line.Raw)
		if err != nil {
			result.Metadata.UnparsedLines++
			a.logger.Debug("skipping line outside the http log format",
				"source", line.Source, "line", line.LineNum, "error", err)
			continue
		}

		for _, cmd := range a.commands {
			if err := cmd.Process(ctx, rec); err != nil {
				return nil, fmt.Errorf("processing line with command %q: %w", cmd.Name(), err)
			}
		}
	}

	for _, f := range files {
		stats := FileStats{
			Path:          f.Path(),
			Counters:      f.Counters(),
			AcceptedLines: accepted[f.Path()],
		}
		result.Files = append(result.Files, stats)
		result.Metadata.Sources = append(result.Metadata.Sources, f.Path())

		a.logger.Debug("scanned log file",
			"path", stats.Path,
			"total", stats.TotalLines,
			"valid", stats.ValidLines,
			"invalid", stats.InvalidLines,
			"accepted", stats.AcceptedLines)
	}

	for _, cmd := range a.commands {
		cmdResult, err := cmd.Finalize(ctx)
		if err != nil {
			return nil, fmt.Errorf("finalizing command %q: %w", cmd.Name(), err)
		}
		result.Results = append(result.Results, cmdResult)
	}

	result.Metadata.EndTime = time.Now()

	return result, nil
}

// newSource reads a single file directly and merges several by timestamp.
func newSource(files []*parser.LogFile) parser.LogSource {
	if len(files) == 1 {
		return files[0]
	}
	sources := make([]parser.LogSource, len(files))
	for i, f := range files {
		sources[i] = f
	}
	return parser.NewMergedSource(sources...)
}
