package main

import (
	"github.com/IvanShishkin/indexscan/internal/config"
	"github.com/IvanShishkin/indexscan/internal/core"
	"github.com/IvanShishkin/indexscan/internal/report"
	"github.com/IvanShishkin/indexscan/pkg/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// scanFlags holds the scan command's flag values
type scanFlags struct {
	include        []string
	ignore         []string
	maxSize        string
	concurrency    int
	followSymlinks bool
	absolute       bool
	sampleBytes    int
	output         string
	sort           bool
	summary        bool
}

// scanCmd creates the scan command
func scanCmd() *cobra.Command {
	var f scanFlags

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a directory and write NDJSON records",
		Long: `Recursively scan a directory and write one JSON object per matched file:
rel_path, abs_path (with --absolute), size, mtime_ms and binary.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				logger.Error("Failed to load config", zap.Error(err))
				return err
			}

			// Override config with CLI flags
			if len(args) == 1 {
				cfg.Root = args[0]
			}
			flags := cmd.Flags()
			if flags.Changed("include") {
				cfg.Include = f.include
			}
			if flags.Changed("ignore") {
				cfg.Ignore = f.ignore
			}
			if flags.Changed("max-size") {
				cfg.MaxSize = f.maxSize
			}
			if flags.Changed("concurrency") {
				cfg.Concurrency = f.concurrency
			}
			if flags.Changed("follow-symlinks") {
				cfg.FollowSymlinks = f.followSymlinks
			}
			if flags.Changed("absolute") {
				cfg.Absolute = f.absolute
			}
			if flags.Changed("sample-bytes") {
				cfg.SampleBytes = f.sampleBytes
			}
			if flags.Changed("output") {
				cfg.Output = f.output
			}
			if flags.Changed("sort") {
				cfg.Sort = f.sort
			}

			opts, err := cfg.ScanOptions()
			if err != nil {
				return err
			}

			scanner := core.NewScanner(opts, logger)
			var stats *models.ScanStats
			run := func(w *report.NDJSONWriter) error {
				var err error
				if !cfg.Sort {
					stats, err = scanner.Scan(cmd.Context(), w.Write)
					return err
				}

				var records []models.FileRecord
				records, stats, err = scanner.Collect(cmd.Context())
				if err != nil {
					return err
				}
				report.SortRecords(records)
				for i := range records {
					if err := w.Write(&records[i]); err != nil {
						return err
					}
				}
				return nil
			}

			if cfg.Output == "" || cfg.Output == "-" {
				w := report.NewNDJSONWriter(cmd.OutOrStdout())
				err = run(w)
				if flushErr := w.Flush(); err == nil {
					err = flushErr
				}
			} else {
				err = report.WriteFile(cfg.Output, run)
			}
			if err != nil {
				return err
			}

			if f.summary && stats != nil {
				report.PrintSummary(cmd.ErrOrStderr(), stats)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&f.include, "include", nil, "Include globs, gitignore syntax; \"!glob\" excludes (default **/*)")
	cmd.Flags().StringSliceVar(&f.ignore, "ignore", nil, "Extra ignore patterns, applied last")
	cmd.Flags().StringVar(&f.maxSize, "max-size", "", "Maximum file size (e.g., 650K, 5M); \"none\" disables (default 5M)")
	cmd.Flags().IntVarP(&f.concurrency, "concurrency", "j", 0, "Number of worker goroutines (default: NumCPU*2)")
	cmd.Flags().BoolVar(&f.followSymlinks, "follow-symlinks", false, "Follow symbolic links")
	cmd.Flags().BoolVar(&f.absolute, "absolute", false, "Include abs_path in every record")
	cmd.Flags().IntVar(&f.sampleBytes, "sample-bytes", 0, "Bytes sampled for text/binary detection (default 4096)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&f.sort, "sort", false, "Sort records by path before writing")
	cmd.Flags().BoolVar(&f.summary, "summary", false, "Print run statistics to stderr")

	return cmd
}
