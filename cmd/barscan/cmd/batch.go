package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/batch"
)

func newBatchCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [flags] PATH...",
		Short: "Decode barcodes from many images in parallel",
		Long: `Decode one barcode from every image found in the given files and
directories using a pool of readers.

Directories are scanned for supported image files (jpg, png, gif, bmp, tiff,
webp). Include and exclude patterns are matched against file names.

Examples:
  barscan batch scans/
  barscan batch --recursive --workers 8 --format csv --output out.csv scans/
  barscan batch --include "*.png" --exclude "thumb_*" scans/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.config()
			formats, opts, err := readerSettings(cmd, cfg)
			if err != nil {
				return err
			}
			format, outputFile, err := outputSettings(cmd, cfg)
			if err != nil {
				return err
			}

			bc := &batch.Config{
				CropWidth:       cfg.Reader.CropWidth,
				CropHeight:      cfg.Reader.CropHeight,
				Format:          format,
				OutputFile:      outputFile,
				Workers:         cfg.Batch.Workers,
				ContinueOnError: cfg.Batch.ContinueOnError,
				Recursive:       cfg.Batch.Recursive,
				IncludePatterns: cfg.Batch.Include,
				ExcludePatterns: cfg.Batch.Exclude,
			}
			f := cmd.Flags()
			if f.Changed("workers") {
				bc.Workers, _ = f.GetInt("workers")
			}
			if f.Changed("recursive") {
				bc.Recursive, _ = f.GetBool("recursive")
			}
			if f.Changed("continue-on-error") {
				bc.ContinueOnError, _ = f.GetBool("continue-on-error")
			}
			if f.Changed("include") {
				bc.IncludePatterns, _ = f.GetStringSlice("include")
			}
			if f.Changed("exclude") {
				bc.ExcludePatterns, _ = f.GetStringSlice("exclude")
			}
			bc.Quiet, _ = f.GetBool("quiet")

			if bc.Workers < 1 {
				return fmt.Errorf("invalid worker count: %d (must be positive)", bc.Workers)
			}

			pool, err := barcode.NewReaderPool(bc.Workers, formats, opts)
			if err != nil {
				return fmt.Errorf("failed to create reader pool: %w", err)
			}
			defer func() { _ = pool.Close() }()

			result, err := batch.ProcessBatch(cmd.Context(), pool, args, bc)
			if err != nil {
				return err
			}

			if err := result.SaveResults(cmd.OutOrStdout(), bc.Format, bc.OutputFile, bc.Quiet); err != nil {
				return err
			}
			result.PrintStats(cmd.ErrOrStderr(), bc.Quiet)

			if stats := result.Stats(); stats.Failed > 0 {
				return fmt.Errorf("%d of %d image(s) could not be decoded", stats.Failed, stats.Total)
			}
			return nil
		},
	}

	addReaderFlags(cmd)
	addOutputFlags(cmd)
	cmd.Flags().IntP("workers", "w", 4, "number of parallel readers")
	cmd.Flags().BoolP("recursive", "r", false, "scan directories recursively")
	cmd.Flags().Bool("continue-on-error", true, "keep going when an image cannot be decoded")
	cmd.Flags().StringSlice("include", nil, "file name patterns to include (e.g. *.png)")
	cmd.Flags().StringSlice("exclude", nil, "file name patterns to exclude")
	cmd.Flags().BoolP("quiet", "q", false, "suppress statistics and status messages")
	return cmd
}
