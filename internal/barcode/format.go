package barcode

import (
	"fmt"
	"strings"

	gozxing "github.com/makiuchi-d/gozxing"
)

// Format represents a barcode symbology.
type Format int

const (
	FormatAztec Format = iota
	FormatCodabar
	FormatCode39
	FormatCode93
	FormatCode128
	FormatDataMatrix
	FormatEAN8
	FormatEAN13
	FormatITF
	FormatMaxiCode
	FormatPDF417
	FormatQRCode
	FormatRSS14
	FormatRSSExpanded
	FormatUPCA
	FormatUPCE
	FormatUPCEANExtension

	formatCount int = iota
)

type formatEntry struct {
	format  Format
	name    string
	zxing   gozxing.BarcodeFormat
	aliases []string
}

// formatTable is the single mapping between Format, its names and the
// engine's symbology identifiers. It is indexed by Format.
var formatTable = [formatCount]formatEntry{
	{FormatAztec, "AZTEC", gozxing.BarcodeFormat_AZTEC, nil},
	{FormatCodabar, "CODABAR", gozxing.BarcodeFormat_CODABAR, nil},
	{FormatCode39, "CODE_39", gozxing.BarcodeFormat_CODE_39, []string{"code39", "code-39"}},
	{FormatCode93, "CODE_93", gozxing.BarcodeFormat_CODE_93, []string{"code93", "code-93"}},
	{FormatCode128, "CODE_128", gozxing.BarcodeFormat_CODE_128, []string{"code128", "code-128"}},
	{FormatDataMatrix, "DATA_MATRIX", gozxing.BarcodeFormat_DATA_MATRIX, []string{"datamatrix", "dm"}},
	{FormatEAN8, "EAN_8", gozxing.BarcodeFormat_EAN_8, []string{"ean8", "ean-8"}},
	{FormatEAN13, "EAN_13", gozxing.BarcodeFormat_EAN_13, []string{"ean13", "ean-13"}},
	{FormatITF, "ITF", gozxing.BarcodeFormat_ITF, []string{"interleaved2of5", "i2of5"}},
	{FormatMaxiCode, "MAXICODE", gozxing.BarcodeFormat_MAXICODE, nil},
	{FormatPDF417, "PDF_417", gozxing.BarcodeFormat_PDF_417, []string{"pdf417", "pdf-417"}},
	{FormatQRCode, "QR_CODE", gozxing.BarcodeFormat_QR_CODE, []string{"qr", "qrcode"}},
	{FormatRSS14, "RSS_14", gozxing.BarcodeFormat_RSS_14, []string{"rss14", "databar"}},
	{FormatRSSExpanded, "RSS_EXPANDED", gozxing.BarcodeFormat_RSS_EXPANDED, []string{"databar-expanded"}},
	{FormatUPCA, "UPC_A", gozxing.BarcodeFormat_UPC_A, []string{"upca", "upc-a"}},
	{FormatUPCE, "UPC_E", gozxing.BarcodeFormat_UPC_E, []string{"upce", "upc-e"}},
	{FormatUPCEANExtension, "UPC_EAN_EXTENSION", gozxing.BarcodeFormat_UPC_EAN_EXTENSION, nil},
}

// Valid reports whether f is a member of the enumeration.
func (f Format) Valid() bool {
	return f >= 0 && int(f) < formatCount
}

func (f Format) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return formatTable[f].name
}

// MarshalText encodes the format by its canonical name.
func (f Format) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("invalid barcode format %d", int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText accepts any name understood by ParseFormat.
func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

func (f Format) toZXing() (gozxing.BarcodeFormat, bool) {
	if !f.Valid() {
		return 0, false
	}
	return formatTable[f].zxing, true
}

func formatFromZXing(bf gozxing.BarcodeFormat) (Format, bool) {
	for _, e := range formatTable {
		if e.zxing == bf {
			return e.format, true
		}
	}
	return 0, false
}

// ParseFormat resolves a case-insensitive format name or alias.
func ParseFormat(s string) (Format, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return 0, fmt.Errorf("empty barcode format")
	}
	for _, e := range formatTable {
		if strings.EqualFold(e.name, key) || strings.ReplaceAll(strings.ToLower(e.name), "_", "") == key {
			return e.format, nil
		}
		for _, a := range e.aliases {
			if a == key {
				return e.format, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown barcode format %q", s)
}

// AllFormats returns every format in enumeration order.
func AllFormats() FormatSet {
	out := make(FormatSet, 0, formatCount)
	for _, e := range formatTable {
		out = append(out, e.format)
	}
	return out
}
