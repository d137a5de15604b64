package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/haplog/pkg/analyzer"
	"github.com/ccollicutt/haplog/pkg/config"
	"github.com/ccollicutt/haplog/pkg/output"
	"github.com/ccollicutt/haplog/pkg/parser"
	"github.com/ccollicutt/haplog/pkg/webhook"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// AnalyzeOptions holds command-line options for the analyze command.
type AnalyzeOptions struct {
	Config   string
	Start    string
	Delta    string
	Commands []string
	Output   string
	Verbose  bool
	Quiet    bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze [log-file...]",
		Short: "Analyze HAProxy HTTP logs",
		Long: `Analyze HAProxy log files and run report commands over them.

Every line is checked for an HAProxy accept date ([09/Dec/2013:12:59:46.633]).
Lines without one are counted as invalid. Valid lines inside the optional
time window (--start, --delta) are handed to the report commands.

Log files may be plain, gzip (.gz) or zstd (.zst) compressed. Several files
are merged into one chronological stream. Globs and directories are expanded.

Examples:
  haplog analyze /var/log/haproxy.log
  haplog analyze -s 12/Dec/2019 -d 3d -c top_ips -c status_codes_counter /var/log/haproxy.log*
  haplog analyze --config haplog.yaml -o json

Exit codes:
  0 - All lines carry a valid accept date
  1 - Invalid lines found
  2 - Configuration or runtime error`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "Configuration file (YAML)")
	cmd.Flags().StringVarP(&opts.Start, "start", "s", "", "Window start, e.g. 12/Dec/2019 or 12/Dec/2019:10:30")
	cmd.Flags().StringVarP(&opts.Delta, "delta", "d", "", "Window length after start, e.g. 30s, 15m, 12h, 3d")
	cmd.Flags().StringSliceVarP(&opts.Commands, "command", "c", nil, "Report command(s) to run (can be repeated, see 'haplog commands')")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", config.DefaultOutput, "Output format (text|json)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show per-file counters and timing")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", string(config.WebhookTriggerOnInvalid), "When to fire webhook (on_invalid|always|never)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string, opts *AnalyzeOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := buildConfig(ctx, cmd, args, opts)
	if err != nil {
		return err
	}

	if cfg.Delta != "" && cfg.Start == "" {
		slog.Warn("delta has no effect without a start", "delta", cfg.Delta)
	}

	files, err := parser.ExpandGlobs(cfg.LogSources)
	if err != nil {
		return fmt.Errorf("expanding log sources: %w", err)
	}

	if len(files) == 0 {
		return fmt.Errorf("no log files matched patterns: %v", cfg.LogSources)
	}

	logFiles := make([]*parser.LogFile, 0, len(files))
	for _, path := range files {
		lf, err := parser.NewLogFile(path, cfg.Start, cfg.Delta)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		logFiles = append(logFiles, lf)
	}

	a, err := analyzer.NewAnalyzer(cfg.Commands, analyzer.WithLogger(slog.Default()))
	if err != nil {
		return fmt.Errorf("creating analyzer: %w", err)
	}

	slog.Debug("starting analysis", "files", len(logFiles), "commands", a.Commands())

	result, err := a.Analyze(ctx, logFiles)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	report := output.NewReport(result, opts.Config)

	formatter, err := output.NewFormatter(cfg.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
	if err != nil {
		return err
	}

	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	// Webhook failures are logged but don't fail the analysis
	sendWebhooks(ctx, cfg.Webhooks, report)

	if report.HasIssues() {
		ExitCode = 1
	}

	return nil
}

// buildConfig loads the optional config file and lets explicit flags and
// positional log files override it.
func buildConfig(ctx context.Context, cmd *cobra.Command, args []string, opts *AnalyzeOptions) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.Config != "" {
		var err error
		cfg, err = config.Read(ctx, opts.Config)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	if len(args) > 0 {
		cfg.LogSources = args
	}
	if cmd.Flags().Changed("start") {
		cfg.Start = opts.Start
	}
	if cmd.Flags().Changed("delta") {
		cfg.Delta = opts.Delta
	}
	if cmd.Flags().Changed("command") {
		cfg.Commands = opts.Commands
	}
	if cmd.Flags().Changed("output") || cfg.Output == "" {
		cfg.Output = opts.Output
	}

	if len(cfg.LogSources) == 0 {
		return nil, errors.New("no log files given (pass them as arguments or set log_sources in --config)")
	}

	if opts.WebhookURL != "" {
		wh, err := cliWebhook(opts)
		if err != nil {
			return nil, err
		}
		cfg.Webhooks = append(cfg.Webhooks, wh)
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// cliWebhook builds a webhook definition from the --webhook-* flags.
func cliWebhook(opts *AnalyzeOptions) (config.WebhookConfig, error) {
	wh := config.WebhookConfig{
		Name:    "cli",
		URL:     opts.WebhookURL,
		Token:   opts.WebhookToken,
		Trigger: config.WebhookTrigger(opts.WebhookTrigger),
	}
	if err := config.ValidateWebhook(&wh); err != nil {
		return config.WebhookConfig{}, fmt.Errorf("webhook flags: %w", err)
	}
	return wh, nil
}

// sendWebhooks sends the report to every webhook whose trigger matches.
// Errors are logged but don't fail the analysis.
func sendWebhooks(ctx context.Context, webhooks []config.WebhookConfig, report *output.Report) {
	if len(webhooks) == 0 {
		return
	}

	client := webhook.NewClient()

	for _, wh := range webhooks {
		if !shouldFireWebhook(wh.Trigger, report.HasIssues()) {
			continue
		}

		resp := client.Send(ctx, report, webhook.SendOptions{
			URL:     wh.URL,
			Token:   wh.Token,
			Timeout: wh.Timeout,
			Retries: wh.Retries,
		})

		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		if resp.Success() {
			slog.Info("webhook sent", "webhook", name, "status", resp.StatusCode, "duration", resp.Duration)
		} else {
			slog.Warn("webhook failed", "webhook", name, "attempts", resp.Attempts, "error", resp.Error)
		}
	}
}

// shouldFireWebhook determines if a webhook should fire based on trigger and
// whether invalid lines were found.
func shouldFireWebhook(trigger config.WebhookTrigger, hasIssues bool) bool {
	switch trigger {
	case config.WebhookTriggerAlways:
		return true
	case config.WebhookTriggerNever:
		return false
	default:
		return hasIssues
	}
}
