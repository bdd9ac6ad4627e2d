package benchmark

import (
	"context"
	"fmt"
	"image"

	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/barscan/internal/barcode"
)

// Image is a named input for the decode cases.
type Image struct {
	Name  string
	Image image.Image
}

// DecodeOptions configures the readers used by the decode cases.
type DecodeOptions struct {
	Formats    barcode.FormatSet
	Reader     barcode.Options
	Workers    int
	CropWidth  int
	CropHeight int
}

// AddDecodeCases adds one single-reader case per image ("reader/<name>")
// and one case decoding every image concurrently through a ReaderPool
// ("pool/all"). The returned release func frees the readers.
func AddDecodeCases(s *Suite, images []Image, opts DecodeOptions) (release func(), err error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images to benchmark")
	}
	workers := max(opts.Workers, 1)

	reader, err := barcode.NewReaderWithOptions(opts.Formats, opts.Reader)
	if err != nil {
		return nil, fmt.Errorf("create reader: %w", err)
	}
	pool, err := barcode.NewReaderPool(workers, opts.Formats, opts.Reader)
	if err != nil {
		reader.Release()
		return nil, fmt.Errorf("create reader pool: %w", err)
	}

	for _, img := range images {
		s.Add("reader/"+img.Name, func(context.Context) error {
			_, err := reader.Decode(img.Image, opts.CropWidth, opts.CropHeight)
			return err
		})
	}

	s.Add("pool/all", func(ctx context.Context) error {
		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for _, img := range images {
			g.Go(func() error {
				_, err := pool.Decode(ctx, img.Image, opts.CropWidth, opts.CropHeight)
				return err
			})
		}
		return g.Wait()
	})

	return func() {
		reader.Release()
		_ = pool.Close()
	}, nil
}
