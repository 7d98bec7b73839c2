// Package cli defines the wikifreq command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/version"
	wferrors "github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/errors"
)

// NewRootCommand builds the command tree. out receives the run summary and
// command output; errOut receives usage errors.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "wikifreq",
		Short: "Word frequency list from a Wikipedia multistream dump",
		Long: `wikifreq counts how often each word of a reference vocabulary (the
titles of a Wiktionary multistream index) occurs in the article text of a
Wikipedia multistream bzip2 dump, and writes the ranked list as
"word count" lines.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Version = version.Version
	root.SetVersionTemplate(fmt.Sprintf("wikifreq %s\n", version.String()))
	root.SetOut(out)
	root.SetErr(errOut)

	root.AddCommand(newCountCommand())
	root.AddCommand(newTopCommand())
	root.AddCommand(newVersionCommand())
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, out, errOut io.Writer) int {
	root := NewRootCommand(out, errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var stageErr *wferrors.StageError
	if wferrors.As(err, &stageErr) {
		slog.Error("run failed", "stage", stageErr.Stage, "error", err)
	} else {
		fmt.Fprintln(errOut, "Error:", err)
	}
	return wferrors.ExitCode(err)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wikifreq %s\n", version.String())
		},
	}
}
