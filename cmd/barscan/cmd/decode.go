package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/batch"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

func newDecodeCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode [flags] IMAGE...",
		Short: "Decode one barcode from each image",
		Long: `Decode one barcode from each image using a single reader.

An image without a barcode is reported as "no barcode found" and does not
make the command fail. Images that cannot be read or decoded do.

Examples:
  barscan decode label.png
  barscan decode --formats qr,ean-13 --format json a.png b.jpg
  barscan decode --crop-width 300 --crop-height 120 shelf.jpg`,
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

			reader, err := barcode.NewReaderWithOptions(formats, opts)
			if err != nil {
				return fmt.Errorf("failed to create reader: %w", err)
			}
			defer reader.Release()

			start := time.Now()
			result := &batch.Result{WorkerCount: 1}
			for _, path := range args {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				result.Files = append(result.Files, decodeFile(reader, path, cfg.Reader.CropWidth, cfg.Reader.CropHeight))
			}
			result.Duration = time.Since(start)

			if err := result.SaveResults(cmd.OutOrStdout(), format, outputFile, false); err != nil {
				return err
			}

			stats := result.Stats()
			slog.Debug("Decode finished", "images", stats.Total, "found", stats.Found, "failed", stats.Failed,
				"duration", result.Duration)
			if stats.Failed > 0 {
				return fmt.Errorf("%d of %d image(s) could not be decoded", stats.Failed, stats.Total)
			}
			return nil
		},
	}

	addReaderFlags(cmd)
	addOutputFlags(cmd)
	return cmd
}

// decodeFile loads path and decodes it with reader, recording failures in
// the returned FileResult.
func decodeFile(reader *barcode.Reader, path string, cropWidth, cropHeight int) (fr batch.FileResult) {
	start := time.Now()
	fr.Path = path
	defer func() { fr.Duration = time.Since(start) }()

	img, _, err := utils.LoadImage(path)
	if err != nil {
		fr.Error = err.Error()
		return fr
	}
	if err := utils.ValidateImageConstraints(img, utils.DefaultImageConstraints()); err != nil {
		fr.Error = err.Error()
		return fr
	}

	res, err := reader.Decode(img, cropWidth, cropHeight)
	if err != nil {
		fr.Error = err.Error()
		return fr
	}
	fr.Barcode = res
	return fr
}
