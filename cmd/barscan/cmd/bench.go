package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/barscan/internal/benchmark"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

func newBenchCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench [flags] IMAGE...",
		Short: "Measure decoding throughput",
		Long: `Decode the given images repeatedly and report timings for a single
reader per image and for a reader pool decoding all images concurrently.

Examples:
  barscan bench label.png
  barscan bench --iterations 50 --workers 8 scans/*.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.config()
			formats, opts, err := readerSettings(cmd, cfg)
			if err != nil {
				return err
			}
			iterations, _ := cmd.Flags().GetInt("iterations")
			workers, _ := cmd.Flags().GetInt("workers")
			if iterations < 1 {
				return fmt.Errorf("invalid iterations: %d (must be positive)", iterations)
			}

			images := make([]benchmark.Image, 0, len(args))
			for _, path := range args {
				img, _, err := utils.LoadImage(path)
				if err != nil {
					return err
				}
				images = append(images, benchmark.Image{Name: filepath.Base(path), Image: img})
			}

			suite := benchmark.NewSuite()
			release, err := benchmark.AddDecodeCases(suite, images, benchmark.DecodeOptions{
				Formats:    formats,
				Reader:     opts,
				Workers:    workers,
				CropWidth:  cfg.Reader.CropWidth,
				CropHeight: cfg.Reader.CropHeight,
			})
			if err != nil {
				return err
			}
			defer release()

			results := suite.RunAll(cmd.Context(), iterations)
			suite.PrintResults(cmd.OutOrStdout())
			for _, r := range results {
				if r.Error != nil {
					return fmt.Errorf("benchmark %s failed: %w", r.Name, r.Error)
				}
			}
			return nil
		},
	}

	addReaderFlags(cmd)
	cmd.Flags().IntP("iterations", "n", 10, "iterations per case")
	cmd.Flags().IntP("workers", "w", 4, "reader pool size for the concurrent case")
	return cmd
}
