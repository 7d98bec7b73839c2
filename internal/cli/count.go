package cli

import (
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/app"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/report"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/config"
	wferrors "github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/logger"
)

type countOptions struct {
	configPath string
	dump       string
	index      string
	vocabulary string
	searchDir  string
	output     string
	workers    int
	maxBlocks  int
	logLevel   string
	quiet      bool
}

func newCountCommand() *cobra.Command {
	opts := &countOptions{}
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count vocabulary words in a dump and write the frequency list",
		Long: `Count reads every compressed block of the dump through its index, counts
the vocabulary words of each page's text in parallel and writes the merged
list, most frequent first. Paths left empty are discovered in the search
directory: enwiki-<date>-pages-articles-multistream.xml.bz2, its
-index.txt.bz2 sibling and enwiktionary-<date>-pages-articles-multistream-index.txt.bz2.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config(cmd)
			if err != nil {
				return err
			}
			if err := logger.Setup(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format); err != nil {
				return wferrors.Wrap(wferrors.ErrConfig, wferrors.StageStartup, err, "configuring logging")
			}

			summary, err := app.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if !opts.quiet {
				report.Render(cmd.OutOrStdout(), summary)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	f.StringVarP(&opts.dump, "dump", "d", "", "Multistream xml bz2 dump file")
	f.StringVarP(&opts.index, "index", "i", "", "Multistream dump index (defaults to <dump>-index.txt.bz2)")
	f.StringVarP(&opts.vocabulary, "windex", "w", "", "Wiktionary multistream index used as vocabulary")
	f.StringVar(&opts.searchDir, "search-dir", "", "Directory searched for inputs that are not given")
	f.StringVarP(&opts.output, "output", "o", "", "Output path; a .gz or .zst suffix compresses it")
	f.IntVarP(&opts.workers, "workers", "j", 0, "Worker goroutines (0 = GOMAXPROCS)")
	f.IntVar(&opts.maxBlocks, "max-blocks", 0, "Stop after this many blocks (0 = whole dump)")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print the run summary")
	return cmd
}

// config loads the file and environment configuration and applies the flags
// the user set explicitly.
func (o *countOptions) config(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, wferrors.Wrap(wferrors.ErrConfig, wferrors.StageStartup, err, "loading configuration")
	}
	flags := cmd.Flags()
	if flags.Changed("dump") {
		cfg.Input.Dump = o.dump
	}
	if flags.Changed("index") {
		cfg.Input.Index = o.index
	}
	if flags.Changed("windex") {
		cfg.Input.Vocabulary = o.vocabulary
	}
	if flags.Changed("search-dir") {
		cfg.Input.SearchDir = o.searchDir
	}
	if flags.Changed("output") {
		cfg.Output.Path = o.output
	}
	if flags.Changed("workers") {
		cfg.Pipeline.Workers = o.workers
	}
	if flags.Changed("max-blocks") {
		cfg.Pipeline.MaxBlocks = o.maxBlocks
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, nil
}
