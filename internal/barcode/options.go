package barcode

// Options tunes how the engine searches a region. The zero value decodes
// the region once, as-is.
type Options struct {
	// TryHarder trades speed for a more exhaustive search.
	TryHarder bool

	// TryRotate also searches the region rotated by 90, 180 and 270 degrees.
	TryRotate bool

	// TryInvert also searches the color-inverted region (light on dark codes).
	TryInvert bool

	// TryDownscale also searches a downscaled copy of large regions.
	TryDownscale bool

	// Pure declares that the region holds only a barcode with no border noise.
	Pure bool

	// CharacterSet names the IANA charset used for byte-mode payloads.
	// Empty selects the engine default.
	CharacterSet string

	// Engine overrides the decoding engine. Nil selects the gozxing engine.
	Engine EngineFactory
}

func (o Options) factory() EngineFactory {
	if o.Engine != nil {
		return o.Engine
	}
	return NewGozxingEngine
}
