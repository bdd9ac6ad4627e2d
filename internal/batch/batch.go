// Package batch decodes barcodes from many image files concurrently.
package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

// Decoder decodes one barcode from the centered crop of an image.
// *barcode.ReaderPool satisfies it.
type Decoder interface {
	Decode(ctx context.Context, img image.Image, cropWidth, cropHeight int) (*barcode.Result, error)
}

// ProcessBatch discovers the image files named by paths and decodes one
// barcode from each with at most config.Workers files in flight. Results keep
// discovery order. Unless ContinueOnError is set, the first failing file
// cancels the rest of the batch.
func ProcessBatch(ctx context.Context, dec Decoder, paths []string, config *Config) (*Result, error) {
	files, err := discoverImageFiles(paths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}

	if len(files) == 0 {
		return nil, errors.New("no image files found")
	}

	workers := config.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	startTime := time.Now()
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = FileResult{Path: path, Error: err.Error()}
				return err
			}
			res := processSingleImage(gctx, dec, path, config.CropWidth, config.CropHeight)
			results[i] = res
			if res.Error != "" && !config.ContinueOnError {
				return fmt.Errorf("%s: %s", path, res.Error)
			}
			return nil
		})
	}
	err = g.Wait()
	duration := time.Since(startTime)

	if err != nil {
		return nil, fmt.Errorf("batch processing failed: %w", err)
	}

	slog.Debug("Batch processed", "files", len(files), "workers", workers, "duration", duration)
	return &Result{
		Files:       results,
		Duration:    duration,
		WorkerCount: workers,
	}, nil
}

// processSingleImage loads path and decodes it. Failures are recorded in the
// returned FileResult.
func processSingleImage(ctx context.Context, dec Decoder, path string, cropWidth, cropHeight int) FileResult {
	start := time.Now()
	out := FileResult{Path: path}

	img, err := loadAndValidateImage(path)
	if err == nil {
		out.Barcode, err = dec.Decode(ctx, img, cropWidth, cropHeight)
		if err != nil {
			err = fmt.Errorf("decode failed for %s: %w", path, err)
		}
	}
	if err != nil {
		out.Error = err.Error()
		slog.Warn("Batch file failed", "file", path, "error", err)
	}
	out.Duration = time.Since(start)
	return out
}

// loadAndValidateImage loads an image and validates it meets constraints.
func loadAndValidateImage(path string) (image.Image, error) {
	if !utils.IsSupportedImage(path) {
		return nil, fmt.Errorf("unsupported image format: %s", path)
	}

	img, _, err := utils.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	if err := utils.ValidateImageConstraints(img, utils.DefaultImageConstraints()); err != nil {
		return nil, err
	}

	return img, nil
}
