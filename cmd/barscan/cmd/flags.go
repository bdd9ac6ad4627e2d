package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/config"
)

// addReaderFlags registers the decoding flags shared by decode, batch, pdf
// and serve.
func addReaderFlags(cmd *cobra.Command) {
	cmd.Flags().String("formats", "", "comma-separated barcode formats to search for (default all, see 'barscan formats')")
	cmd.Flags().Int("crop-width", 0, "width of the centered region to decode (0 = full width)")
	cmd.Flags().Int("crop-height", 0, "height of the centered region to decode (0 = full height)")
	cmd.Flags().Bool("try-harder", true, "spend more time looking for a barcode")
	cmd.Flags().Bool("try-rotate", false, "also search the region rotated by 90, 180 and 270 degrees")
	cmd.Flags().Bool("try-invert", false, "also search the color-inverted region")
	cmd.Flags().Bool("try-downscale", false, "also search a downscaled copy of large regions")
	cmd.Flags().Bool("pure", false, "the region contains only a barcode with no border noise")
	cmd.Flags().String("charset", "", "character set for byte-mode payloads (e.g. UTF-8, ISO-8859-1)")
}

// applyReaderFlags overrides the reader section of cfg with the flags the
// user set explicitly.
func applyReaderFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("formats") {
		cfg.Reader.Formats, _ = f.GetString("formats")
	}
	if f.Changed("crop-width") {
		cfg.Reader.CropWidth, _ = f.GetInt("crop-width")
	}
	if f.Changed("crop-height") {
		cfg.Reader.CropHeight, _ = f.GetInt("crop-height")
	}
	if f.Changed("try-harder") {
		cfg.Reader.TryHarder, _ = f.GetBool("try-harder")
	}
	if f.Changed("try-rotate") {
		cfg.Reader.TryRotate, _ = f.GetBool("try-rotate")
	}
	if f.Changed("try-invert") {
		cfg.Reader.TryInvert, _ = f.GetBool("try-invert")
	}
	if f.Changed("try-downscale") {
		cfg.Reader.TryDownscale, _ = f.GetBool("try-downscale")
	}
	if f.Changed("pure") {
		cfg.Reader.Pure, _ = f.GetBool("pure")
	}
	if f.Changed("charset") {
		cfg.Reader.CharacterSet, _ = f.GetString("charset")
	}

	if cfg.Reader.CropWidth < 0 || cfg.Reader.CropHeight < 0 {
		return fmt.Errorf("invalid crop size %dx%d: must not be negative", cfg.Reader.CropWidth, cfg.Reader.CropHeight)
	}
	return nil
}

// readerSettings resolves the format set and options for cmd.
func readerSettings(cmd *cobra.Command, cfg *config.Config) (barcode.FormatSet, barcode.Options, error) {
	if err := applyReaderFlags(cmd, cfg); err != nil {
		return nil, barcode.Options{}, err
	}
	formats, err := cfg.FormatSet()
	if err != nil {
		return nil, barcode.Options{}, err
	}
	return formats, cfg.ToReaderOptions(), nil
}

// addOutputFlags registers --format and --output.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", "text", "output format: text, json, csv")
	cmd.Flags().StringP("output", "o", "", "write results to a file instead of stdout")
}

func outputSettings(cmd *cobra.Command, cfg *config.Config) (format, file string, err error) {
	format, file = cfg.Output.Format, cfg.Output.File
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	if cmd.Flags().Changed("output") {
		file, _ = cmd.Flags().GetString("output")
	}
	switch format {
	case "text", "json", "csv":
		return format, file, nil
	default:
		return "", "", fmt.Errorf("unsupported output format: %s (must be text, json or csv)", format)
	}
}
