package batch

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/barscan/internal/barcode"
)

func TestResultStats(t *testing.T) {
	result := &Result{Files: sampleFiles(), Duration: 3 * time.Second, WorkerCount: 2}

	stats := result.Stats()
	assert.Equal(t, Stats{
		Total:            3,
		Found:            1,
		NotFound:         1,
		Failed:           1,
		WorkerCount:      2,
		TotalDuration:    3 * time.Second,
		AveragePerImage:  time.Second,
		ThroughputPerSec: 1,
	}, stats)
}

func TestResultStatsEmpty(t *testing.T) {
	stats := (&Result{}).Stats()
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.AveragePerImage)
	assert.Zero(t, stats.ThroughputPerSec)
}

func TestFileResultFound(t *testing.T) {
	assert.True(t, FileResult{Barcode: &barcode.Result{}}.Found())
	assert.False(t, FileResult{}.Found())
}

func TestSaveResults_Writer(t *testing.T) {
	result := &Result{Files: sampleFiles()}

	var buf bytes.Buffer
	require.NoError(t, result.SaveResults(&buf, "text", "", false))
	assert.Contains(t, buf.String(), "CODE_128: ABC-123")
}

func TestSaveResults_File(t *testing.T) {
	result := &Result{Files: sampleFiles()}
	out := filepath.Join(t.TempDir(), "results.csv")

	var buf bytes.Buffer
	require.NoError(t, result.SaveResults(&buf, "csv", out, false))
	assert.Equal(t, "Results written to "+out+"\n", buf.String())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "/scans/label.png,CODE_128,ABC-123")

	buf.Reset()
	require.NoError(t, result.SaveResults(&buf, "csv", out, true))
	assert.Empty(t, buf.String())
}

func TestSaveResults_UnwritableFile(t *testing.T) {
	result := &Result{Files: sampleFiles()}
	err := result.SaveResults(&bytes.Buffer{}, "json", filepath.Join(t.TempDir(), "missing", "out.json"), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write output file")
}

func TestPrintStats(t *testing.T) {
	result := &Result{Files: sampleFiles(), Duration: time.Second, WorkerCount: 4}

	var buf bytes.Buffer
	result.PrintStats(&buf, false)
	out := buf.String()
	assert.Contains(t, out, "Total images: 3")
	assert.Contains(t, out, "Barcodes found: 1")
	assert.Contains(t, out, "Failed: 1")
	assert.Contains(t, out, "Workers: 4")

	buf.Reset()
	result.PrintStats(&buf, true)
	assert.Empty(t, buf.String())
}
