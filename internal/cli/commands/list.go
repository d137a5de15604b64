package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/haplog/pkg/analyzer"
)

// NewCommandsCommand creates the command that lists report commands.
func NewCommandsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List the available report commands",
		Long: `List the report commands that analyze can run with --command.

Without --command, analyze runs "` + analyzer.DefaultCommand + `".`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printCommands(cmd.OutOrStdout())
		},
	}
}

func printCommands(w io.Writer) {
	infos := analyzer.ListCommands()

	width := 0
	for _, info := range infos {
		width = max(width, len(info.Name))
	}

	for _, info := range infos {
		fmt.Fprintf(w, "  %-*s  %s\n", width, info.Name, info.Description)
	}
}
