// Package detector samples a log file and reports whether it looks like an
// HAProxy log haplog can analyze.
package detector

import (
	"bufio"
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ccollicutt/haplog/pkg/parser"
)

// DefaultSampleSize is the number of non-empty lines read from the file head.
const DefaultSampleSize = 100

// maxLineSize bounds a single sampled line.
const maxLineSize = 1 << 20

// DetectionResult holds the result of analyzing a log file.
type DetectionResult struct {
	Matches      []FormatMatch // Formats that matched, sorted by confidence descending
	SampledLines int           // Number of lines sampled
	ValidLines   int           // Lines carrying an HAProxy accept date
	RecordLines  int           // Lines matching the full HTTP log grammar
	FirstSeen    time.Time     // Earliest accept date in the sample
	LastSeen     time.Time     // Latest accept date in the sample
	Note         string        // Hint when the file is not a plain HTTP log
}

// FormatMatch represents a format that matched with its confidence score.
type FormatMatch struct {
	Format     *LogFormat
	Confidence float64   // 0.0 to 1.0 (percentage of lines matched)
	MatchCount int       // Number of lines that matched
	SampleLine string    // Example line that matched
	ParsedTime time.Time // Parsed timestamp from sample
}

// Detector analyzes log files to identify their format.
type Detector struct {
	formats    []*LogFormat
	sampleSize int
}

// Option configures the Detector.
type Option func(*Detector)

// WithSampleSize sets the number of lines to sample (default 100).
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// New creates a new Detector with default formats.
func New(opts ...Option) *Detector {
	d := &Detector{
		formats:    DefaultFormats(),
		sampleSize: DefaultSampleSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectFromFile analyzes the head of a log file. Compressed files are read
// through the same decoders the analyzer uses.
func (d *Detector) DetectFromFile(ctx context.Context, path string) (*DetectionResult, error) {
	lines, err := d.sampleFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return d.DetectFromLines(lines), nil
}

// DetectFromLines analyzes a slice of log lines.
func (d *Detector) DetectFromLines(lines []string) *DetectionResult {
	result := &DetectionResult{
		SampledLines: len(lines),
	}

	if len(lines) == 0 {
		return result
	}

	type formatStats struct {
		order      int
		format     *LogFormat
		matchCount int
		sampleLine string
		parsedTime time.Time
	}

	stats := make(map[string]*formatStats)

	for _, line := range lines {
		if ts, ok := parser.Classify(line); ok {
			result.ValidLines++
			if result.FirstSeen.IsZero() || ts.Before(result.FirstSeen) {
				result.FirstSeen = ts
			}
			if ts.After(result.LastSeen) {
				result.LastSeen = ts
			}
		}

		for i, format := range d.formats {
			ts, ok := format.Match(line)
			if !ok {
				continue
			}

			if stats[format.Name] == nil {
				stats[format.Name] = &formatStats{
					order:      i,
					format:     format,
					sampleLine: line,
					parsedTime: ts,
				}
			}
			stats[format.Name].matchCount++
		}
	}

	order := make(map[string]int, len(stats))
	for _, s := range stats {
		order[s.format.Name] = s.order
		result.Matches = append(result.Matches, FormatMatch{
			Format:     s.format,
			Confidence: float64(s.matchCount) / float64(len(lines)),
			MatchCount: s.matchCount,
			SampleLine: s.sampleLine,
			ParsedTime: s.parsedTime,
		})
		if s.order == 0 {
			result.RecordLines = s.matchCount
		}
	}

	// Sort by confidence descending, then by specificity (list order)
	sort.Slice(result.Matches, func(i, j int) bool {
		if result.Matches[i].Confidence != result.Matches[j].Confidence {
			return result.Matches[i].Confidence > result.Matches[j].Confidence
		}
		return order[result.Matches[i].Format.Name] < order[result.Matches[j].Format.Name]
	})

	switch {
	case result.ValidLines == 0:
		result.Note = "No line carries an HAProxy accept date ([DD/Mon/YYYY:HH:MM:SS.mmm]). " +
			"Every line would be counted as invalid."
	case result.RecordLines < result.ValidLines:
		result.Note = "Some lines carry an accept date but are not HTTP-mode logs (TCP mode or a custom log-format?). " +
			"They count as valid but are skipped by the report commands."
	}

	return result
}

// sampleFile reads up to sampleSize non-empty lines from a file.
// Uses simple head sampling for efficiency.
func (d *Detector) sampleFile(ctx context.Context, path string) ([]string, error) {
	rc, err := parser.OpenLog(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var lines []string
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for len(lines) < d.sampleSize && scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

// BestMatch returns the highest confidence match, or nil if none found.
func (r *DetectionResult) BestMatch() *FormatMatch {
	if len(r.Matches) == 0 {
		return nil
	}
	return &r.Matches[0]
}

// HasMatch returns true if at least one format matched.
func (r *DetectionResult) HasMatch() bool {
	return len(r.Matches) > 0
}

// Supported returns true if the best match is a format haplog can analyze.
func (r *DetectionResult) Supported() bool {
	best := r.BestMatch()
	return best != nil && best.Format.Supported
}
