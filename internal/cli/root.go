// Package cli provides the command-line interface for haplog.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/haplog/internal/cli/commands"
	"github.com/ccollicutt/haplog/internal/logging"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	return execute(NewRootCommand(), os.Args[1:])
}

func execute(rootCmd *cobra.Command, args []string) int {
	commands.ExitCode = 0
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		// SilenceErrors keeps Cobra from printing it.
		_, _ = fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "haplog",
		Short: "Analyze HAProxy HTTP logs",
		Long: `haplog reads HAProxy HTTP logs, counts valid and invalid lines, and runs
report commands (top IPs, status codes, slow requests, ...) over the lines
inside an optional time window.

A line is valid when it carries an HAProxy accept date such as
[09/Dec/2013:12:59:46.633]. Plain, gzip and zstd files are supported.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			jsonOutput := false
			if f := cmd.Flags().Lookup("output"); f != nil {
				jsonOutput = f.Value.String() == "json"
			}
			logging.Init(cmd.ErrOrStderr(), jsonOutput, logging.ParseLevel(logLevel))
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")

	rootCmd.AddCommand(commands.NewAnalyzeCommand())
	rootCmd.AddCommand(commands.NewCommandsCommand())
	rootCmd.AddCommand(commands.NewDetectCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
