package barcode

import "image"

// Match is what an engine reports for a successful decode.
type Match struct {
	Format Format
	Text   string
	Points []image.Point
}

// Engine is the decoding backend owned by a Reader.
//
// Decode searches region of img and returns (nil, nil) when nothing is
// found; a non-nil error means the engine itself failed. Destroy frees the
// engine and is called exactly once by the owning Reader. Engines are not
// required to be safe for concurrent use.
type Engine interface {
	Decode(img image.Image, region Region) (*Match, error)
	Destroy()
}

// EngineFactory creates an engine for the given formats. The format set is
// fixed for the engine's lifetime.
type EngineFactory func(formats FormatSet, opts Options) (Engine, error)
