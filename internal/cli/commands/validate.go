package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/haplog/pkg/analyzer"
	"github.com/ccollicutt/haplog/pkg/config"
	"github.com/ccollicutt/haplog/pkg/parser"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a haplog configuration file without running analysis.

Checks:
  - YAML syntax
  - Required fields
  - Start and delta syntax
  - Command names
  - Webhook URLs and triggers
  - Log source file existence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Validating %s...\n", configPath)

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	commands := cfg.Commands
	if len(commands) == 0 {
		commands = []string{analyzer.DefaultCommand}
	}

	fmt.Fprintf(w, "\nConfiguration valid!\n")
	fmt.Fprintf(w, "  Log sources: %d pattern(s)\n", len(cfg.LogSources))
	fmt.Fprintf(w, "  Window:      %s\n", describeWindow(cfg.Window()))
	fmt.Fprintf(w, "  Commands:    %v\n", commands)
	fmt.Fprintf(w, "  Output:      %s\n", cfg.Output)
	fmt.Fprintf(w, "  Webhooks:    %d\n", len(cfg.Webhooks))

	if cfg.Delta != "" && cfg.Start == "" {
		fmt.Fprintf(w, "\nWarning: delta %q has no effect without a start\n", cfg.Delta)
	}

	// Check if log sources exist (warnings only)
	files, err := parser.ExpandGlobs(cfg.LogSources)
	if err != nil {
		fmt.Fprintf(w, "\nWarning: Error expanding log source patterns: %v\n", err)
		return nil
	}

	fmt.Fprintf(w, "\nLog files matched: %d\n", len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			fmt.Fprintf(w, "  - %s (warning: not readable)\n", f)
			continue
		}
		fmt.Fprintf(w, "  - %s\n", f)
	}

	return nil
}

func describeWindow(w parser.Window) string {
	const layout = "02/Jan/2006:15:04:05"
	switch {
	case w.IsZero():
		return "none (all lines)"
	case w.End.IsZero():
		return "from " + w.Start.Format(layout)
	default:
		return w.Start.Format(layout) + " to " + w.End.Format(layout)
	}
}
