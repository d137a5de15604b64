package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/haplog/pkg/analyzer"
	"github.com/ccollicutt/haplog/pkg/detector"
)

// DetectOptions holds command-line options for the detect command.
type DetectOptions struct {
	Output      string
	SampleSize  int
	ShowAll     bool
	WriteConfig string
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	opts := &DetectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <log-file>",
		Short: "Check whether a file is an HAProxy log haplog can analyze",
		Long: `Sample the head of a log file and report its format.

Counts how many sampled lines carry an HAProxy accept date and how many match
the full HTTP log format, and shows the range of accept dates seen. Files
in other formats (Apache/NGINX, ISO 8601) are named so the mistake is obvious.

Optionally generates a starter config file with --write-config.

Example:
  haplog detect /var/log/haproxy.log
  haplog detect --sample 500 /var/log/haproxy.log.1.gz
  haplog detect -w haplog.yaml /var/log/haproxy.log`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVarP(&opts.SampleSize, "sample", "n", detector.DefaultSampleSize, "Number of lines to sample")
	cmd.Flags().BoolVar(&opts.ShowAll, "all", false, "Show all detected formats, not just the best match")
	cmd.Flags().StringVarP(&opts.WriteConfig, "write-config", "w", "", "Write starter config to file (will not overwrite)")

	return cmd
}

func runDetect(cmd *cobra.Command, args []string, opts *DetectOptions) error {
	logFile := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	w := cmd.OutOrStdout()

	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		return fmt.Errorf("log file not found: %s", logFile)
	}

	d := detector.New(detector.WithSampleSize(opts.SampleSize))

	result, err := d.DetectFromFile(ctx, logFile)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	if opts.WriteConfig != "" {
		if err := writeStarterConfig(w, result, logFile, opts.WriteConfig); err != nil {
			return err
		}
	}

	switch opts.Output {
	case "json":
		return outputDetectJSON(w, result, logFile, opts)
	default:
		return outputDetectText(w, result, logFile, opts)
	}
}

const detectTimeLayout = "02/Jan/2006:15:04:05.000"

func outputDetectText(w io.Writer, result *detector.DetectionResult, logFile string, opts *DetectOptions) error {
	fmt.Fprintln(w, "=== HAProxy Log Detection ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "File: %s\n", logFile)
	fmt.Fprintf(w, "Lines sampled: %d\n", result.SampledLines)
	fmt.Fprintf(w, "Lines with an accept date: %d\n", result.ValidLines)
	fmt.Fprintf(w, "Lines in HTTP log format: %d\n", result.RecordLines)
	if result.ValidLines > 0 {
		fmt.Fprintf(w, "Accept dates: %s to %s\n",
			result.FirstSeen.Format(detectTimeLayout), result.LastSeen.Format(detectTimeLayout))
	}
	fmt.Fprintln(w)

	if !result.HasMatch() {
		fmt.Fprintln(w, "No known log format detected.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Tip: check that the file is an HAProxy log with \"option httplog\" enabled.")
		return nil
	}

	best := result.BestMatch()
	fmt.Fprintf(w, "Detected Format: %s\n", best.Format.Name)
	fmt.Fprintf(w, "Confidence: %.1f%% (%d/%d lines matched)\n",
		best.Confidence*100, best.MatchCount, result.SampledLines)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Sample match:\n  %s\n", best.SampleLine)
	fmt.Fprintf(w, "Parsed as: %s\n", best.ParsedTime.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintln(w)

	if !best.Format.Supported {
		fmt.Fprintln(w, "WARNING: haplog cannot analyze this format.")
		fmt.Fprintln(w)
	}
	if result.Note != "" {
		fmt.Fprintf(w, "Note: %s\n", result.Note)
		fmt.Fprintln(w)
	}

	if opts.ShowAll && len(result.Matches) > 1 {
		fmt.Fprintln(w, "--- Alternative formats detected ---")
		for i, m := range result.Matches[1:] {
			fmt.Fprintf(w, "%d. %s (%.1f%% confidence)\n", i+2, m.Format.Name, m.Confidence*100)
		}
		fmt.Fprintln(w)
	}

	return nil
}

// JSONMatch represents a format match in JSON output.
type JSONMatch struct {
	Name       string  `json:"name"`
	Pattern    string  `json:"pattern,omitempty"`
	Supported  bool    `json:"supported"`
	Confidence float64 `json:"confidence"`
	MatchCount int     `json:"match_count"`
	SampleLine string  `json:"sample_line"`
}

// JSONOutput represents the full JSON output.
type JSONOutput struct {
	File         string      `json:"file"`
	Matches      []JSONMatch `json:"matches"`
	SampledLines int         `json:"sampled_lines"`
	ValidLines   int         `json:"valid_lines"`
	RecordLines  int         `json:"record_lines"`
	FirstSeen    *time.Time  `json:"first_seen,omitempty"`
	LastSeen     *time.Time  `json:"last_seen,omitempty"`
	Note         string      `json:"note,omitempty"`
}

func outputDetectJSON(w io.Writer, result *detector.DetectionResult, logFile string, opts *DetectOptions) error {
	out := JSONOutput{
		File:         logFile,
		SampledLines: result.SampledLines,
		ValidLines:   result.ValidLines,
		RecordLines:  result.RecordLines,
		Note:         result.Note,
		Matches:      make([]JSONMatch, 0),
	}
	if result.ValidLines > 0 {
		out.FirstSeen = &result.FirstSeen
		out.LastSeen = &result.LastSeen
	}

	matches := result.Matches
	if !opts.ShowAll && len(matches) > 1 {
		matches = matches[:1] // Only show best match
	}

	for _, m := range matches {
		out.Matches = append(out.Matches, JSONMatch{
			Name:       m.Format.Name,
			Pattern:    m.Format.PatternStr,
			Supported:  m.Format.Supported,
			Confidence: m.Confidence,
			MatchCount: m.MatchCount,
			SampleLine: m.SampleLine,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// writeStarterConfig generates a starter config file for the sampled log.
func writeStarterConfig(w io.Writer, result *detector.DetectionResult, logFile, configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s (will not overwrite)", configPath)
	}

	if !result.Supported() {
		return fmt.Errorf("cannot generate config: %s is not an HAProxy log", logFile)
	}

	content := generateStarterConfig(logFile, result)

	// #nosec G306 - config file doesn't need restrictive permissions
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(w, "Wrote starter config to: %s\n\n", configPath)
	return nil
}

// generateStarterConfig creates a YAML config template. The commented start
// is the first day seen in the sample.
func generateStarterConfig(logFile string, result *detector.DetectionResult) string {
	absLogFile := logFile
	if abs, err := filepath.Abs(logFile); err == nil {
		absLogFile = abs
	}

	best := result.BestMatch()
	start := result.FirstSeen.Format("02/Jan/2006")

	return fmt.Sprintf(`# haplog configuration
# Generated by: haplog detect
# Detected format: %s (%.0f%% confidence)

log_sources:
  - %s
  # Add rotated or compressed files with globs:
  # - %s.*

# Only analyze lines inside a time window:
# start: "%s"
# delta: 1d

commands:
  - %s
  # Run 'haplog commands' for the full list, e.g.:
  # - top_ips
  # - status_codes_counter
  # - slow_requests_counter

output: text

# webhooks:
#   - name: ops
#     url: https://example.com/hooks/haplog
#     token: ${HAPLOG_WEBHOOK_TOKEN}
#     trigger: on_invalid
`, best.Format.Name, best.Confidence*100,
		absLogFile,
		absLogFile,
		start,
		analyzer.DefaultCommand)
}
