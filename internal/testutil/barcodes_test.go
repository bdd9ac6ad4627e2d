package testutil

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRCodeImage(t *testing.T) {
	img := QRCodeImage(t, "hello", 200)
	assert.Equal(t, image.Rect(0, 0, 200, 200), img.Bounds())
}

func TestCode128Image(t *testing.T) {
	img := Code128Image(t, "ABC-123", 300, 80)
	assert.Equal(t, 300, img.Bounds().Dx())
	assert.Equal(t, 80, img.Bounds().Dy())
}

func TestQRCodePNG(t *testing.T) {
	data := QRCodePNG(t, "hello", 128)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
}

func TestPlaceOnCanvas(t *testing.T) {
	qr := QRCodeImage(t, "x", 50)
	canvas := PlaceOnCanvas(qr, 300, 200, image.Pt(10, 20))
	assert.Equal(t, image.Rect(0, 0, 300, 200), canvas.Bounds())
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := WriteFile(t, dir+"/nested", "a.png", EncodePNG(t, BlankImage(4, 4)))
	assert.FileExists(t, path)
}
