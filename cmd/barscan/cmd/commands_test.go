package cmd

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/testutil"
)

func writeQRCode(t *testing.T, dir, name, text string) string {
	t.Helper()
	return testutil.WriteFile(t, dir, name, testutil.QRCodePNG(t, text, 256))
}

func writeBlank(t *testing.T, dir, name string) string {
	t.Helper()
	return testutil.WriteFile(t, dir, name, testutil.EncodePNG(t, testutil.BlankImage(64, 64)))
}

func TestDecodeCommand_Text(t *testing.T) {
	path := writeQRCode(t, t.TempDir(), "label.png", "hello barscan")

	out, _, err := execute(t, "decode", path)
	require.NoError(t, err)
	assert.Contains(t, out, "# "+path)
	assert.Contains(t, out, "QR_CODE: hello barscan")
}

func TestDecodeCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	qr := writeQRCode(t, dir, "qr.png", "json payload")
	blank := writeBlank(t, dir, "blank.png")

	out, _, err := execute(t, "decode", "--format", "json", qr, blank)
	require.NoError(t, err)

	var doc struct {
		Images []struct {
			File    string          `json:"file"`
			Barcode *barcode.Result `json:"barcode"`
		} `json:"images"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Images, 2)
	assert.Equal(t, qr, doc.Images[0].File)
	require.NotNil(t, doc.Images[0].Barcode)
	assert.Equal(t, barcode.FormatQRCode, doc.Images[0].Barcode.Format)
	assert.Equal(t, "json payload", doc.Images[0].Barcode.Text)
	assert.Nil(t, doc.Images[1].Barcode)
}

func TestDecodeCommand_NoBarcodeIsNotAnError(t *testing.T) {
	path := writeBlank(t, t.TempDir(), "blank.png")

	out, _, err := execute(t, "decode", path)
	require.NoError(t, err)
	assert.Contains(t, out, "no barcode found")
}

func TestDecodeCommand_FormatRestriction(t *testing.T) {
	path := writeQRCode(t, t.TempDir(), "qr.png", "not an ean")

	out, _, err := execute(t, "decode", "--formats", "ean-13", path)
	require.NoError(t, err)
	assert.Contains(t, out, "no barcode found")
}

func TestDecodeCommand_Failures(t *testing.T) {
	dir := t.TempDir()
	corrupt := testutil.WriteFile(t, dir, "corrupt.png", []byte("not a png"))
	qr := writeQRCode(t, dir, "qr.png", "still decoded")

	out, _, err := execute(t, "decode", corrupt, qr, filepath.Join(dir, "missing.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3 image(s) could not be decoded")
	assert.Contains(t, out, "QR_CODE: still decoded")
	assert.Equal(t, 2, strings.Count(out, "error: "))
}

func TestDecodeCommand_InvalidFlags(t *testing.T) {
	path := writeBlank(t, t.TempDir(), "blank.png")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown format", []string{"--formats", "bogus"}, "unknown barcode format"},
		{"negative crop", []string{"--crop-width", "-5"}, "invalid crop size"},
		{"output format", []string{"--format", "xml"}, "unsupported output format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, append(append([]string{"decode"}, tt.args...), path)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecodeCommand_RequiresArgs(t *testing.T) {
	_, _, err := execute(t, "decode")
	require.Error(t, err)
}

func TestDecodeCommand_OutputFile(t *testing.T) {
	dir := t.TempDir()
	path := writeQRCode(t, dir, "qr.png", "to a file")
	outFile := filepath.Join(dir, "result.csv")

	out, _, err := execute(t, "decode", "--format", "csv", "--output", outFile, path)
	require.NoError(t, err)
	assert.Contains(t, out, "Results written to "+outFile)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"file", "format", "text", "x", "y", "width", "height", "error"}, records[0])
	assert.Equal(t, "QR_CODE", records[1][1])
	assert.Equal(t, "to a file", records[1][2])
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	writeQRCode(t, dir, "a.png", "first")
	writeQRCode(t, dir, "b.png", "second")
	writeBlank(t, dir, "c.png")
	testutil.WriteFile(t, dir, "notes.txt", []byte("ignored"))

	out, stderr, err := execute(t, "batch", "--workers", "2", "--format", "csv", dir)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, filepath.Join(dir, "a.png"), records[1][0])
	assert.Equal(t, "first", records[1][2])
	assert.Equal(t, "second", records[2][2])
	assert.Empty(t, records[3][1])

	assert.Contains(t, stderr, "Total images: 3")
	assert.Contains(t, stderr, "Barcodes found: 2")
	assert.Contains(t, stderr, "Workers: 2")
}

func TestBatchCommand_IncludeExcludeAndQuiet(t *testing.T) {
	dir := t.TempDir()
	writeQRCode(t, dir, "keep.png", "kept")
	writeQRCode(t, dir, "skip.png", "skipped")
	writeQRCode(t, dir, "other.gif.png", "other")

	out, stderr, err := execute(t, "batch", "--quiet", "--include", "*.png", "--exclude", "skip*,other*", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "QR_CODE: kept")
	assert.NotContains(t, out, "skipped")
	assert.NotContains(t, out, "other")
	assert.NotContains(t, stderr, "Processing Statistics")
}

func TestBatchCommand_Recursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	writeQRCode(t, dir, "top.png", "top")
	writeQRCode(t, sub, "deep.png", "deep")

	out, _, err := execute(t, "batch", "-q", dir)
	require.NoError(t, err)
	assert.NotContains(t, out, "deep")

	out, _, err = execute(t, "batch", "-q", "--recursive", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "QR_CODE: deep")
	assert.Contains(t, out, "QR_CODE: top")
}

func TestBatchCommand_FailedImages(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "broken.png", []byte("garbage"))
	writeQRCode(t, dir, "ok.png", "fine")

	out, _, err := execute(t, "batch", "-q", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 image(s) could not be decoded")
	assert.Contains(t, out, "QR_CODE: fine")
}

func TestBatchCommand_Errors(t *testing.T) {
	empty := t.TempDir()

	_, _, err := execute(t, "batch", empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no image files found")

	_, _, err = execute(t, "batch", "--workers", "0", empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid worker count")

	_, _, err = execute(t, "batch", filepath.Join(empty, "nope"))
	require.Error(t, err)
}

func TestPDFCommand_Errors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := execute(t, "pdf", filepath.Join(dir, "missing.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to scan")

	_, _, err = execute(t, "pdf", "--pages", "3-1", filepath.Join(dir, "missing.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid page range")

	_, _, err = execute(t, "pdf")
	require.Error(t, err)
}

func TestServeCommand_InvalidPort(t *testing.T) {
	_, _, err := execute(t, "serve", "--port", "70000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port number")
}

func TestServeCommand_UnsupportedFormat(t *testing.T) {
	_, _, err := execute(t, "serve", "--formats", "maxicode", "--port", "18081")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize server")
	assert.ErrorIs(t, err, barcode.ErrUnsupportedFormat)
}

func TestFormatsCommand(t *testing.T) {
	out, _, err := execute(t, "formats")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, barcode.SupportedFormats().Len())
	assert.Contains(t, lines, "QR_CODE")
	assert.Contains(t, lines, "EAN_13")

	out, _, err = execute(t, "formats", "--json")
	require.NoError(t, err)
	var names []string
	require.NoError(t, json.Unmarshal([]byte(out), &names))
	assert.Equal(t, lines, names)
}

func TestConfigInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "barscan.yaml")

	out, _, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration written to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "server:")
	assert.Contains(t, string(data), "port: 8080")

	_, _, err = execute(t, "config", "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = execute(t, "config", "init", "--force", path)
	require.NoError(t, err)
}

func TestConfigShowCommand(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "custom.yaml", []byte("server:\n  port: 9999\nreader:\n  formats: qr\n"))

	out, _, err := execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "# config file: "+path)
	assert.Contains(t, out, "port: 9999")
	assert.Contains(t, out, "formats: qr")
	assert.Contains(t, out, "workers: 4")
}

func TestConfigShowCommand_Environment(t *testing.T) {
	t.Setenv("BARSCAN_SERVER_PORT", "7070")

	out, _, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "port: 7070")
}

func TestConfigFile_Invalid(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "bad.yaml", []byte("output:\n  format: xml\n"))

	_, _, err := execute(t, "--config", path, "formats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")

	_, _, err = execute(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "formats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestBenchCommand(t *testing.T) {
	path := writeQRCode(t, t.TempDir(), "bench.png", "benchmark")

	out, _, err := execute(t, "bench", "--iterations", "2", "--workers", "2", path)
	require.NoError(t, err)
	assert.Contains(t, out, "reader/bench.png: 2 iterations")
	assert.Contains(t, out, "pool/all: 2 iterations")

	_, _, err = execute(t, "bench", "--iterations", "0", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid iterations")
}
