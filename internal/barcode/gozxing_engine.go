package barcode

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/aztec"
	"github.com/makiuchi-d/gozxing/datamatrix"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
	"golang.org/x/text/encoding/ianaindex"
)

// downscaleThreshold is the longest side above which TryDownscale kicks in.
const downscaleThreshold = 500

// zxingReaders lists the symbologies gozxing can read.
var zxingReaders = map[Format]func() gozxing.Reader{
	FormatAztec:      func() gozxing.Reader { return aztec.NewAztecReader() },
	FormatCodabar:    func() gozxing.Reader { return oned.NewCodaBarReader() },
	FormatCode39:     func() gozxing.Reader { return oned.NewCode39Reader() },
	FormatCode93:     func() gozxing.Reader { return oned.NewCode93Reader() },
	FormatCode128:    func() gozxing.Reader { return oned.NewCode128Reader() },
	FormatDataMatrix: func() gozxing.Reader { return datamatrix.NewDataMatrixReader() },
	FormatEAN8:       func() gozxing.Reader { return oned.NewEAN8Reader() },
	FormatEAN13:      func() gozxing.Reader { return oned.NewEAN13Reader() },
	FormatITF:        func() gozxing.Reader { return oned.NewITFReader() },
	FormatQRCode:     func() gozxing.Reader { return qrcode.NewQRCodeReader() },
	FormatUPCA:       func() gozxing.Reader { return oned.NewUPCAReader() },
	FormatUPCE:       func() gozxing.Reader { return oned.NewUPCEReader() },
}

// SupportedFormats returns the formats the default engine can decode.
func SupportedFormats() FormatSet {
	var out FormatSet
	for _, f := range AllFormats() {
		if _, ok := zxingReaders[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

type formatReader struct {
	format Format
	reader gozxing.Reader
}

type gozxingEngine struct {
	readers []formatReader
	allowed FormatSet
	hints   map[gozxing.DecodeHintType]interface{}
	opts    Options
}

// NewGozxingEngine builds the default engine. The format set is resolved to
// gozxing readers here, once; an empty set selects SupportedFormats.
func NewGozxingEngine(formats FormatSet, opts Options) (Engine, error) {
	if len(formats) == 0 {
		formats = SupportedFormats()
	}

	e := &gozxingEngine{
		hints: make(map[gozxing.DecodeHintType]interface{}),
		opts:  opts,
	}
	for _, f := range formats.dedupe() {
		if !f.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
		}
		newReader, ok := zxingReaders[f]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
		}
		e.readers = append(e.readers, formatReader{format: f, reader: newReader()})
		e.allowed = append(e.allowed, f)
	}

	if opts.TryHarder {
		e.hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}
	if opts.Pure {
		e.hints[gozxing.DecodeHintType_PURE_BARCODE] = true
	}
	if opts.CharacterSet != "" {
		name, err := canonicalCharset(opts.CharacterSet)
		if err != nil {
			return nil, err
		}
		e.hints[gozxing.DecodeHintType_CHARACTER_SET] = name
	}
	return e, nil
}

func canonicalCharset(name string) (string, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return "", fmt.Errorf("unknown character set %q: %w", name, err)
	}
	if enc == nil {
		// Registered but without a decoder; gozxing may still know it.
		return name, nil
	}
	canonical, err := ianaindex.IANA.Name(enc)
	if err != nil {
		return name, nil
	}
	return canonical, nil
}

// variant is one transformed view of the region; toRegion maps a point in
// the variant back into region-local coordinates.
type variant struct {
	name     string
	img      image.Image
	toRegion func(x, y float64) (float64, float64)
}

func identity(x, y float64) (float64, float64) { return x, y }

func (e *gozxingEngine) variants(region image.Image) []variant {
	w, h := region.Bounds().Dx(), region.Bounds().Dy()
	out := []variant{{name: "original", img: region, toRegion: identity}}

	if e.opts.TryInvert {
		out = append(out, variant{name: "inverted", img: imaging.Invert(region), toRegion: identity})
	}
	if e.opts.TryRotate {
		fw, fh := float64(w-1), float64(h-1)
		out = append(out,
			variant{
				name: "rotate90",
				img:  imaging.Rotate90(region),
				toRegion: func(x, y float64) (float64, float64) {
					return fw - y, x
				},
			},
			variant{
				name: "rotate180",
				img:  imaging.Rotate180(region),
				toRegion: func(x, y float64) (float64, float64) {
					return fw - x, fh - y
				},
			},
			variant{
				name: "rotate270",
				img:  imaging.Rotate270(region),
				toRegion: func(x, y float64) (float64, float64) {
					return y, fh - x
				},
			},
		)
	}
	if e.opts.TryDownscale {
		for side := max(w, h); side > downscaleThreshold; side /= 2 {
			scale := float64(side/2) / float64(max(w, h))
			dw := max(1, int(math.Round(float64(w)*scale)))
			dh := max(1, int(math.Round(float64(h)*scale)))
			out = append(out, variant{
				name: fmt.Sprintf("downscale%dx%d", dw, dh),
				img:  imaging.Resize(region, dw, dh, imaging.Box),
				toRegion: func(x, y float64) (float64, float64) {
					return x / scale, y / scale
				},
			})
		}
	}
	return out
}

func (e *gozxingEngine) Decode(img image.Image, region Region) (*Match, error) {
	if e.readers == nil {
		return nil, errors.New("gozxing engine used after destroy")
	}
	rect := region.Rect(img.Bounds().Min)
	src := subImage(img, rect)

	for _, v := range e.variants(src) {
		bmp, err := gozxing.NewBinaryBitmapFromImage(v.img)
		if err != nil {
			return nil, fmt.Errorf("prepare %s bitmap: %w", v.name, err)
		}
		for _, fr := range e.readers {
			res, err := fr.reader.Decode(bmp, e.hints)
			fr.reader.Reset()
			if err != nil {
				if isNoMatch(err) {
					continue
				}
				return nil, fmt.Errorf("%s reader: %w", fr.format, err)
			}
			f, ok := formatFromZXing(res.GetBarcodeFormat())
			if !ok || !e.allowed.Contains(f) {
				continue
			}
			return &Match{
				Format: f,
				Text:   res.GetText(),
				Points: mapPoints(res.GetResultPoints(), v.toRegion, rect.Min),
			}, nil
		}
	}
	return nil, nil
}

func (e *gozxingEngine) Destroy() {
	for _, fr := range e.readers {
		fr.reader.Reset()
	}
	e.readers = nil
}

// isNoMatch reports whether err is gozxing's not-found, checksum or format
// failure, all of which mean "no barcode here" rather than a broken engine.
func isNoMatch(err error) bool {
	var re gozxing.ReaderException
	return errors.As(err, &re)
}

func mapPoints(pts []gozxing.ResultPoint, toRegion func(x, y float64) (float64, float64), offset image.Point) []image.Point {
	if len(pts) == 0 {
		return nil
	}
	out := make([]image.Point, 0, len(pts))
	for _, p := range pts {
		if p == nil {
			continue
		}
		x, y := toRegion(p.GetX(), p.GetY())
		out = append(out, image.Pt(int(math.Round(x)), int(math.Round(y))).Add(offset))
	}
	return out
}

func cropImage(img image.Image, rect image.Rectangle) image.Image {
	return imaging.Crop(img, rect)
}
