package pdf

import (
	"github.com/MeKo-Tech/barscan/internal/barcode"
)

// DocumentResult holds the barcodes found in a PDF document.
type DocumentResult struct {
	Filename   string         `json:"filename"`
	TotalPages int            `json:"total_pages"`
	Pages      []PageResult   `json:"pages"`
	Processing ProcessingInfo `json:"processing"`
}

// PageResult holds the results for the images extracted from one page.
type PageResult struct {
	PageNumber int           `json:"page_number"`
	Images     []ImageResult `json:"images"`
}

// ImageResult is the decode outcome for a single embedded image.
type ImageResult struct {
	ImageIndex int             `json:"image_index"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Barcode    *barcode.Result `json:"barcode,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// ProcessingInfo contains timing information.
type ProcessingInfo struct {
	ExtractionTimeMs int64 `json:"extraction_time_ms"`
	DecodeTimeMs     int64 `json:"decode_time_ms"`
	TotalTimeMs      int64 `json:"total_time_ms"`
}

// PageBarcode is a barcode together with where it was found.
type PageBarcode struct {
	PageNumber int
	ImageIndex int
	Result     *barcode.Result
}

// Barcodes flattens the document into the barcodes that were found, in page order.
func (d *DocumentResult) Barcodes() []PageBarcode {
	var out []PageBarcode
	for _, p := range d.Pages {
		for _, img := range p.Images {
			if img.Barcode != nil {
				out = append(out, PageBarcode{PageNumber: p.PageNumber, ImageIndex: img.ImageIndex, Result: img.Barcode})
			}
		}
	}
	return out
}
