package barcode

import (
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"sync/atomic"
)

// noCopy lets `go vet -copylocks` flag copies of a Reader.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// handle is the engine owned by exactly one Reader.
type handle struct {
	engine   Engine
	released atomic.Bool
}

// destroy frees the engine once. It reports whether this call did the work.
func (h *handle) destroy() bool {
	if !h.released.CompareAndSwap(false, true) {
		return false
	}
	h.engine.Destroy()
	return true
}

// Reader decodes barcodes of a fixed FormatSet. A Reader is not safe for
// concurrent Decode calls; use one Reader per goroutine or a ReaderPool.
type Reader struct {
	_       noCopy
	h       *handle
	formats FormatSet
	cleanup runtime.Cleanup
}

// NewReader creates a Reader for formats with default options.
func NewReader(formats FormatSet) (*Reader, error) {
	return NewReaderWithOptions(formats, Options{})
}

// NewReaderWithOptions creates a Reader for formats. The engine is created
// here and held until Release. On failure the returned error matches
// ErrResourceAllocation.
func NewReaderWithOptions(formats FormatSet, opts Options) (*Reader, error) {
	engine, err := opts.factory()(formats.Clone(), opts)
	if err != nil {
		return nil, allocationError("create engine", err)
	}
	if engine == nil {
		return nil, allocationError("create engine", nil)
	}

	r := &Reader{
		h:       &handle{engine: engine},
		formats: formats.Clone(),
	}
	r.cleanup = runtime.AddCleanup(r, releaseLeaked, r.h)
	slog.Debug("Barcode reader created", "formats", r.formats.String())
	return r, nil
}

func releaseLeaked(h *handle) {
	if h.destroy() {
		slog.Warn("Barcode reader was garbage collected without Release")
	}
}

// Decode searches the centered cropWidth x cropHeight region of img for one
// barcode. A non-positive crop dimension means the full image dimension.
// It returns (nil, nil) when no barcode is found.
func (r *Reader) Decode(img image.Image, cropWidth, cropHeight int) (*Result, error) {
	if r.h.released.Load() {
		return nil, ErrUseAfterRelease
	}
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidImage)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: empty bounds %v", ErrInvalidImage, b)
	}

	region := ComputeRegion(b.Dx(), b.Dy(), cropWidth, cropHeight)
	m, err := r.h.engine.Decode(img, region)
	runtime.KeepAlive(r)
	if err != nil {
		return nil, fmt.Errorf("decode region %+v: %w", region, err)
	}
	if m == nil {
		return nil, nil
	}
	return &Result{Format: m.Format, Text: m.Text, Points: m.Points}, nil
}

// Release frees the engine. It is safe to call more than once.
func (r *Reader) Release() {
	if r.h.destroy() {
		r.cleanup.Stop()
		slog.Debug("Barcode reader released")
	}
}

// Close releases the reader and always returns nil.
func (r *Reader) Close() error {
	r.Release()
	return nil
}

// Released reports whether Release has been called.
func (r *Reader) Released() bool {
	return r.h.released.Load()
}

// Formats returns a copy of the configured format set.
func (r *Reader) Formats() FormatSet {
	return r.formats.Clone()
}

// WithReader creates a Reader, passes it to fn, and releases it on every
// exit path, panics included.
func WithReader(formats FormatSet, opts Options, fn func(*Reader) error) error {
	r, err := NewReaderWithOptions(formats, opts)
	if err != nil {
		return err
	}
	defer r.Release()
	return fn(r)
}
