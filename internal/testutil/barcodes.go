package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	zxingqr "github.com/makiuchi-d/gozxing/qrcode"
	goqrcode "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/require"
)

// QRCodeImage renders text as a size x size QR code with a quiet zone.
func QRCodeImage(t *testing.T, text string, size int) image.Image {
	t.Helper()

	bm, err := zxingqr.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, size, size, nil)
	require.NoError(t, err, "Failed to encode QR code")
	return bitMatrixImage(bm)
}

// Code128Image renders text as a Code 128 symbol of the given size.
func Code128Image(t *testing.T, text string, width, height int) image.Image {
	t.Helper()

	bm, err := oned.NewCode128Writer().Encode(text, gozxing.BarcodeFormat_CODE_128, width, height, nil)
	require.NoError(t, err, "Failed to encode Code 128 barcode")
	return bitMatrixImage(bm)
}

func bitMatrixImage(bm *gozxing.BitMatrix) image.Image {
	w, h := bm.GetWidth(), bm.GetHeight()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if bm.Get(x, y) {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

// QRCodePNG returns PNG bytes of a QR code, as produced by a typical
// third-party generator.
func QRCodePNG(t *testing.T, text string, size int) []byte {
	t.Helper()

	data, err := goqrcode.Encode(text, goqrcode.Medium, size)
	require.NoError(t, err, "Failed to generate QR code PNG")
	return data
}

// BlankImage returns a white image.
func BlankImage(width, height int) image.Image {
	return imaging.New(width, height, color.White)
}

// PlaceOnCanvas pastes img onto a white canvas with its top-left corner at pos.
func PlaceOnCanvas(img image.Image, width, height int, pos image.Point) image.Image {
	return imaging.Paste(imaging.New(width, height, color.White), img, pos)
}

// EncodePNG encodes img as PNG.
func EncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img), "Failed to encode PNG image")
	return buf.Bytes()
}

// WriteFile writes data to dir/name, creating dir if needed, and returns the path.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()

	require.NoError(t, os.MkdirAll(dir, 0o750), "Failed to create directory %s", dir)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600), "Failed to write %s", path)
	return path
}
