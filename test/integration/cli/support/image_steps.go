package support

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/cucumber/godog"
	goqrcode "github.com/skip2/go-qrcode"
)

func (testCtx *TestContext) aQRCodeImageContaining(name, text string) error {
	data, err := goqrcode.Encode(text, goqrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to encode QR code: %w", err)
	}
	return testCtx.writeFile(name, data)
}

func (testCtx *TestContext) aBlankImage(name string) error {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("failed to encode blank image: %w", err)
	}
	return testCtx.writeFile(name, buf.Bytes())
}

func (testCtx *TestContext) aCorruptImage(name string) error {
	return testCtx.writeFile(name, []byte("this is not an image"))
}

func (testCtx *TestContext) aFileWithContent(name string, content *godog.DocString) error {
	return testCtx.writeFile(name, []byte(content.Content))
}

// RegisterImageSteps registers fixture steps.
func (testCtx *TestContext) RegisterImageSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a QR code image "([^"]*)" containing "([^"]*)"$`, testCtx.aQRCodeImageContaining)
	sc.Step(`^a blank image "([^"]*)"$`, testCtx.aBlankImage)
	sc.Step(`^a corrupt image "([^"]*)"$`, testCtx.aCorruptImage)
	sc.Step(`^a file "([^"]*)" with:$`, testCtx.aFileWithContent)
}
