package batch

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MeKo-Tech/barscan/internal/barcode"
)

// Config holds all configuration for batch processing.
type Config struct {
	// Decoding settings
	CropWidth  int
	CropHeight int

	// Output settings
	Format     string
	OutputFile string

	// Parallel processing settings
	Workers         int
	ContinueOnError bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	Quiet bool
}

// FileResult is the outcome of decoding one file. Barcode is nil when the
// file decoded cleanly but held no barcode; Error is set when it could not
// be loaded or decoded.
type FileResult struct {
	Path     string          `json:"file"`
	Barcode  *barcode.Result `json:"barcode"`
	Error    string          `json:"error,omitempty"`
	Duration time.Duration   `json:"-"`
}

// Found reports whether a barcode was decoded from the file.
func (f FileResult) Found() bool { return f.Barcode != nil }

// Result holds the result of batch processing, in discovery order.
type Result struct {
	Files       []FileResult
	Duration    time.Duration
	WorkerCount int
}

// Stats summarizes a batch run.
type Stats struct {
	Total            int
	Found            int
	NotFound         int
	Failed           int
	WorkerCount      int
	TotalDuration    time.Duration
	AveragePerImage  time.Duration
	ThroughputPerSec float64
}

// Stats calculates processing statistics.
func (r *Result) Stats() Stats {
	s := Stats{
		Total:         len(r.Files),
		WorkerCount:   r.WorkerCount,
		TotalDuration: r.Duration,
	}
	for _, f := range r.Files {
		switch {
		case f.Error != "":
			s.Failed++
		case f.Found():
			s.Found++
		default:
			s.NotFound++
		}
	}
	if s.Total > 0 {
		s.AveragePerImage = r.Duration / time.Duration(s.Total)
	}
	if r.Duration > 0 {
		s.ThroughputPerSec = float64(s.Total) / r.Duration.Seconds()
	}
	return s
}

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r.Files, format)
}

// SaveResults writes the formatted results to outputFile, or to w when
// outputFile is empty.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
		}
	} else {
		_, _ = fmt.Fprint(w, output)
	}

	return nil
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer, quiet bool) {
	if quiet {
		return
	}
	stats := r.Stats()
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total images: %d\n", stats.Total)
	_, _ = fmt.Fprintf(w, "  Barcodes found: %d\n", stats.Found)
	_, _ = fmt.Fprintf(w, "  No barcode: %d\n", stats.NotFound)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", stats.Failed)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", stats.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", stats.TotalDuration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Avg per image: %v\n", stats.AveragePerImage.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Throughput: %.1f images/sec\n", stats.ThroughputPerSec)
}
