package pdf

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/barscan/internal/barcode"
)

// Decoder decodes one barcode from the centered crop of an image.
// *barcode.ReaderPool satisfies it.
type Decoder interface {
	Decode(ctx context.Context, img image.Image, cropWidth, cropHeight int) (*barcode.Result, error)
}

// ScanOptions controls which pages are scanned and how images are cropped.
type ScanOptions struct {
	PageRange   string
	CropWidth   int
	CropHeight  int
	Credentials *PasswordCredentials
}

// Scanner decodes the barcodes embedded as images in PDF documents.
type Scanner struct {
	decoder   Decoder
	extract   func(filename, pageRange string) (map[int][]image.Image, error)
	pageCount func(filename string) (int, error)
}

// NewScanner creates a Scanner that decodes with d.
func NewScanner(d Decoder) *Scanner {
	return &Scanner{
		decoder:   d,
		extract:   ExtractImages,
		pageCount: PageCount,
	}
}

// Scan extracts every image on the selected pages of filename and decodes
// one barcode per image. Per-image decode failures are recorded in the
// result; extraction failures and cancellation abort the scan.
func (s *Scanner) Scan(ctx context.Context, filename string, opts ScanOptions) (*DocumentResult, error) {
	start := time.Now()

	source, cleanup, err := decryptToTemp(filename, opts.Credentials)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	totalPages, err := s.pageCount(source)
	if err != nil {
		return nil, err
	}

	extractStart := time.Now()
	pageImages, err := s.extract(source, opts.PageRange)
	if err != nil {
		return nil, err
	}
	extractTime := time.Since(extractStart)

	decodeStart := time.Now()
	doc := &DocumentResult{
		Filename:   filename,
		TotalPages: totalPages,
		Pages:      make([]PageResult, 0, len(pageImages)),
	}
	for _, pageNum := range sortedPages(pageImages) {
		page := PageResult{PageNumber: pageNum}
		for i, img := range pageImages[pageNum] {
			res, err := s.decoder.Decode(ctx, img, opts.CropWidth, opts.CropHeight)
			if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
				return nil, fmt.Errorf("scan %s page %d: %w", filename, pageNum, err)
			}
			ir := ImageResult{
				ImageIndex: i,
				Width:      img.Bounds().Dx(),
				Height:     img.Bounds().Dy(),
				Barcode:    res,
			}
			if err != nil {
				ir.Error = err.Error()
				slog.Warn("Barcode decode failed", "file", filename, "page", pageNum, "image", i, "error", err)
			}
			page.Images = append(page.Images, ir)
		}
		doc.Pages = append(doc.Pages, page)
	}

	doc.Processing = ProcessingInfo{
		ExtractionTimeMs: extractTime.Milliseconds(),
		DecodeTimeMs:     time.Since(decodeStart).Milliseconds(),
		TotalTimeMs:      time.Since(start).Milliseconds(),
	}
	slog.Debug("PDF scanned", "file", filename, "pages", len(doc.Pages), "barcodes", len(doc.Barcodes()))
	return doc, nil
}
