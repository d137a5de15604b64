package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/haplog/pkg/analyzer"
	"github.com/ccollicutt/haplog/pkg/config"
	"github.com/ccollicutt/haplog/pkg/detector"
	"github.com/ccollicutt/haplog/pkg/parser"
)

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Verbose bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

const diagnoseSampleSize = 20

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <config-file>",
		Short: "Diagnose common configuration issues",
		Long: `Diagnose common configuration issues.

This command checks your configuration file for common problems:
- Config file syntax and structure
- Log source file existence and accessibility
- Whether the log files are HAProxy HTTP logs
- Whether the time window overlaps the logged accept dates

Example:
  haplog diagnose haplog.yaml
  haplog diagnose -v haplog.yaml  # verbose output, also probes webhooks`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runDiagnose(ctx, cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, configPath string, opts *DiagnoseOptions) error {
	results := []DiagnosticResult{}

	result := checkConfigExists(configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	cfg, result := checkConfigParseable(ctx, configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	results = append(results, checkSettings(cfg)...)

	files, logResults := checkLogSources(cfg)
	results = append(results, logResults...)

	results = append(results, checkLogFormat(ctx, cfg, files, opts)...)
	results = append(results, checkWebhooks(ctx, cfg, opts)...)

	printDiagnostics(w, results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"Use 'haplog detect <log-file> --write-config haplog.yaml' to generate a starter config",
		}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = "error"
		result.Message = "Config file is empty"
		result.Suggests = []string{
			"Use 'haplog detect <log-file> --write-config haplog.yaml' to generate a starter config",
		}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

// checkConfigParseable only reads the file; semantic problems are reported
// one by one by checkSettings.
func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Read(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to parse config: %v", err)
		if strings.Contains(err.Error(), "yaml") {
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			}
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "Config file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Log sources: %d", len(cfg.LogSources)),
		fmt.Sprintf("Commands: %d", len(cfg.Commands)),
	}
	return cfg, result
}

// checkSettings reports on the window, the commands and the output format.
func checkSettings(cfg *config.Config) []DiagnosticResult {
	results := []DiagnosticResult{}

	window := DiagnosticResult{Check: "Time Window"}
	w, err := parser.NewWindow(cfg.Start, cfg.Delta)
	switch {
	case err != nil:
		window.Status = "error"
		window.Message = err.Error()
		window.Suggests = []string{
			"start uses the accept date layout: 12/Dec/2019, 12/Dec/2019:10 or 12/Dec/2019:10:30:00",
			"delta is a number and a unit (s, m, h, d), e.g. 3d",
		}
	case w.IsZero() && cfg.Delta != "":
		window.Status = "warning"
		window.Message = "delta is set without start and has no effect"
		window.Suggests = []string{"Set start to restrict the analysis to a time window"}
	default:
		window.Status = "ok"
		window.Message = describeWindow(w)
	}
	results = append(results, window)

	commands := DiagnosticResult{Check: "Commands"}
	var unknown []string
	for _, name := range cfg.Commands {
		if !analyzer.IsCommand(name) {
			unknown = append(unknown, name)
		}
	}
	switch {
	case len(unknown) > 0:
		commands.Status = "error"
		commands.Message = fmt.Sprintf("%d unknown command(s)", len(unknown))
		commands.Details = unknown
		commands.Suggests = []string{"Run 'haplog commands' to list the available commands"}
	case len(cfg.Commands) == 0:
		commands.Status = "ok"
		commands.Message = fmt.Sprintf("None configured, %s will run", analyzer.DefaultCommand)
	default:
		commands.Status = "ok"
		commands.Message = strings.Join(cfg.Commands, ", ")
	}
	results = append(results, commands)

	if cfg.Output != "" && cfg.Output != "text" && cfg.Output != "json" {
		results = append(results, DiagnosticResult{
			Check:    "Output",
			Status:   "error",
			Message:  fmt.Sprintf("Unknown output format %q", cfg.Output),
			Suggests: []string{"Use text or json"},
		})
	}

	return results
}

// checkLogSources expands every source and returns the readable files.
func checkLogSources(cfg *config.Config) ([]string, []DiagnosticResult) {
	results := []DiagnosticResult{}

	if len(cfg.LogSources) == 0 {
		results = append(results, DiagnosticResult{
			Check:   "Log Sources",
			Status:  "error",
			Message: "No log sources defined",
			Suggests: []string{
				"Add log_sources section to your config",
				"Example: log_sources:\n  - /var/log/haproxy.log*",
			},
		})
		return nil, results
	}

	var found []string
	for _, source := range cfg.LogSources {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Log Source: %s", source),
		}

		files, err := parser.ExpandGlobs([]string{source})
		if err != nil {
			result.Status = "error"
			result.Message = err.Error()
			results = append(results, result)
			continue
		}

		var readable, empty []string
		var missing string
		for _, f := range files {
			info, err := os.Stat(f)
			switch {
			case err != nil:
				missing = f
			case info.IsDir():
				// directories are expanded by ExpandGlobs; a nested one is skipped
			case info.Size() == 0:
				empty = append(empty, f)
			default:
				readable = append(readable, f)
			}
		}

		switch {
		case len(readable) == 0 && missing != "":
			result.Status = "error"
			result.Message = "No files match this source"
			result.Suggests = []string{
				"Check if the log file path is correct",
				"Verify the glob pattern syntax",
			}
		case len(readable) == 0:
			result.Status = "warning"
			result.Message = "All matching files are empty"
			result.Details = empty
		default:
			result.Status = "ok"
			result.Message = fmt.Sprintf("Matches %d file(s)", len(readable))
			result.Details = readable
			if len(empty) > 0 {
				result.Details = append(result.Details, fmt.Sprintf("%d empty file(s) skipped", len(empty)))
			}
		}
		found = append(found, readable...)
		results = append(results, result)
	}

	if len(found) == 0 {
		results = append(results, DiagnosticResult{
			Check:   "Log Files Summary",
			Status:  "error",
			Message: "No accessible log files found",
			Suggests: []string{
				"Ensure at least one log file exists and is readable",
			},
		})
	}

	return found, results
}

// checkLogFormat samples the first file and checks it is an HTTP log whose
// accept dates overlap the configured window.
func checkLogFormat(ctx context.Context, cfg *config.Config, files []string, opts *DiagnoseOptions) []DiagnosticResult {
	if len(files) == 0 {
		return nil
	}
	logFile := files[0]

	result := DiagnosticResult{
		Check: fmt.Sprintf("Format Test: %s", logFile),
	}

	d := detector.New(detector.WithSampleSize(diagnoseSampleSize))
	det, err := d.DetectFromFile(ctx, logFile)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot read file: %v", err)
		return []DiagnosticResult{result}
	}

	switch {
	case det.ValidLines == 0:
		result.Status = "error"
		result.Message = "No sampled line carries an HAProxy accept date"
		result.Suggests = []string{"Use 'haplog detect " + logFile + "' to see what the file contains"}
		if best := det.BestMatch(); best != nil {
			result.Details = []string{fmt.Sprintf("Looks like: %s", best.Format.Name)}
		}
	case det.RecordLines < det.SampledLines/2:
		result.Status = "warning"
		result.Message = fmt.Sprintf("Only %d/%d sampled lines are in the HTTP log format", det.RecordLines, det.SampledLines)
		result.Suggests = []string{"Enable \"option httplog\" on the HAProxy frontends"}
		if det.Note != "" {
			result.Details = []string{det.Note}
		}
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("%d/%d sampled lines are in the HTTP log format", det.RecordLines, det.SampledLines)
		if opts.Verbose && det.BestMatch() != nil {
			result.Details = []string{
				"Sample match:",
				truncate(det.BestMatch().SampleLine, 80),
			}
		}
	}

	results := []DiagnosticResult{result}

	w, err := parser.NewWindow(cfg.Start, cfg.Delta)
	if err != nil || w.IsZero() || det.ValidLines == 0 {
		return results
	}

	overlap := DiagnosticResult{
		Check: "Window Overlap",
		Details: []string{
			fmt.Sprintf("First accept date: %s", det.FirstSeen.Format(detectTimeLayout)),
			fmt.Sprintf("Window: %s", describeWindow(w)),
		},
	}
	if !w.End.IsZero() && w.End.Before(det.FirstSeen) {
		overlap.Status = "warning"
		overlap.Message = "Window ends before the first line of the file"
		overlap.Suggests = []string{"Check start and delta against the dates in the log"}
	} else {
		overlap.Status = "ok"
		overlap.Message = "Window can match lines in the file"
	}
	return append(results, overlap)
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== haplog Configuration Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		fmt.Fprintln(w, "\nFix the errors above before running analysis.")
	} else if warnCount > 0 {
		fmt.Fprintln(w, "\nConfiguration is usable but has warnings.")
	} else {
		fmt.Fprintln(w, "\nConfiguration looks good!")
	}
}

func checkWebhooks(ctx context.Context, cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  "ok",
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	for _, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		result := DiagnosticResult{
			Check: fmt.Sprintf("Webhook: %s", name),
		}

		issues := []string{}
		warnings := []string{}

		if wh.URL == "" {
			issues = append(issues, "Missing url")
		} else {
			u, err := url.Parse(wh.URL)
			if err != nil {
				issues = append(issues, fmt.Sprintf("Invalid URL: %v", err))
			} else if u.Scheme != "http" && u.Scheme != "https" {
				issues = append(issues, fmt.Sprintf("URL scheme must be http or https, got %q", u.Scheme))
			} else if u.Host == "" {
				issues = append(issues, "URL must have a host")
			}
		}

		switch wh.Trigger {
		case "", config.WebhookTriggerOnInvalid, config.WebhookTriggerAlways, config.WebhookTriggerNever:
		default:
			issues = append(issues, fmt.Sprintf("Invalid trigger %q (use on_invalid, always, or never)", wh.Trigger))
		}

		if strings.HasPrefix(wh.Token, "$") && os.ExpandEnv(wh.Token) == "" {
			warnings = append(warnings, fmt.Sprintf("Token references an unset env var: %s", wh.Token))
		}

		if len(issues) > 0 {
			result.Status = "error"
			result.Message = fmt.Sprintf("%d configuration issue(s)", len(issues))
			result.Details = issues
		} else if len(warnings) > 0 {
			result.Status = "warning"
			result.Message = fmt.Sprintf("%d warning(s)", len(warnings))
			result.Details = warnings
		} else {
			trigger := wh.Trigger
			if trigger == "" {
				trigger = config.WebhookTriggerOnInvalid
			}
			result.Status = "ok"
			result.Message = fmt.Sprintf("Trigger: %s", trigger)
			if opts.Verbose {
				result.Details = []string{fmt.Sprintf("URL: %s", wh.URL)}
				if wh.Token != "" {
					result.Details = append(result.Details, "Token: configured")
				}
			}
		}

		results = append(results, result)

		if opts.Verbose && len(issues) == 0 {
			conn := checkWebhookConnectivity(ctx, wh)
			conn.Check = fmt.Sprintf("Webhook Connectivity: %s", name)
			results = append(results, conn)
		}
	}

	return results
}

func checkWebhookConnectivity(ctx context.Context, wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, wh.URL, nil)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}

	if wh.Token != "" {
		req.Header.Set("Authorization", "Bearer "+wh.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = "ok"
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{
			"The endpoint may only accept POST (the real webhook send uses POST)",
			"Check authentication if using a token",
		}
	}

	return result
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
