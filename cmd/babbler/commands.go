package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/CTAG07/Babbler/pkg/ngram"
	"github.com/spf13/cobra"
)

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print key and frequency totals for every stored level",
		Args:  argsBetween(0, 0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			logger := newLogger(config.LogLevel, cmd.ErrOrStderr())
			store, closeStore, err := openStore(config, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			stats, err := ngram.StoreStats(cmd.Context(), store, config.Boundary)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "level\tkeys\ttotal\tstarters\t")
			for _, s := range stats {
				fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t\n", s.Level, s.Keys, s.TotalFrequency, s.StartingKeys)
			}
			return tw.Flush()
		},
	}
}

func newExportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "export <level>",
		Short: "Write the model of a level to stdout as JSON",
		Args:  argsBetween(1, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			level, err := parseLevel(args[0], config.MaxDepth)
			if err != nil {
				return err
			}
			logger := newLogger(config.LogLevel, cmd.ErrOrStderr())
			store, closeStore, err := openStore(config, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			return ngram.ExportModel(cmd.Context(), store, level, cmd.OutOrStdout())
		},
	}
}

func newImportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>...",
		Short: "Merge exported models into the configured store",
		Long: `import reads model artifacts written by export (or by a file store) and adds
their counts to the model already stored for the same level.`,
		Args: argsBetween(1, -1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			logger := newLogger(config.LogLevel, cmd.ErrOrStderr())
			store, closeStore, err := openStore(config, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("could not open %s: %w", path, err)
				}
				m, err := ngram.ImportModel(cmd.Context(), store, f)
				_ = f.Close()
				if err != nil {
					return fmt.Errorf("importing %s: %w", path, err)
				}
				if err = ngram.ValidateLevel(m.Level, config.MaxDepth); err != nil {
					logger.Warn("Imported model is deeper than max_depth", "file", path, "level", m.Level)
				}
				logger.Info("Model imported",
					"file", path,
					"level", m.Level,
					"keys", m.Len(),
					"total_frequency", m.Total(),
				)
			}
			return nil
		},
	}
}

func newPruneCmd(opts *options) *cobra.Command {
	var minFreq uint64
	cmd := &cobra.Command{
		Use:   "prune <level>",
		Short: "Drop rare n-grams from the stored model of a level",
		Args:  argsBetween(1, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			level, err := parseLevel(args[0], config.MaxDepth)
			if err != nil {
				return err
			}
			logger := newLogger(config.LogLevel, cmd.ErrOrStderr())
			store, closeStore, err := openStore(config, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			removed, err := ngram.PruneModel(cmd.Context(), store, level, minFreq, logger)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d keys from level %d\n", removed, level)
			return err
		},
	}
	cmd.Flags().Uint64Var(&minFreq, "min-freq", 1, "remove keys seen this many times or fewer")
	return cmd
}
