package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/output"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/config"
	wferrors "github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/errors"
)

func newTopCommand() *cobra.Command {
	var (
		n           int
		compression string
	)
	cmd := &cobra.Command{
		Use:   "top [list]",
		Short: "Print the most frequent words of a written frequency list",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Default().Output.Path
			if len(args) == 1 {
				path = args[0]
			}
			c, err := output.ResolveCompression(path, compression)
			if err != nil {
				return wferrors.Wrap(wferrors.ErrConfig, wferrors.StageOutput, err, "list %s", path)
			}
			entries, err := output.ReadTop(path, c, n)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, e := range entries {
				fmt.Fprintf(out, "%5d  %-24s %d\n", i+1, e.Word, e.Count)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "number", "n", 20, "Number of words to print (0 for all)")
	cmd.Flags().StringVar(&compression, "compression", "auto", "List encoding: auto, none, gzip or zstd")
	return cmd
}
