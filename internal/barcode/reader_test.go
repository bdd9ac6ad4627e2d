package barcode

import (
	"errors"
	"image"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReader(t *testing.T, formats FormatSet, engine *fakeEngine) *Reader {
	t.Helper()

	r, err := NewReaderWithOptions(formats, Options{Engine: engine.factory()})
	require.NoError(t, err)
	t.Cleanup(r.Release)
	return r
}

func TestReaderDecodeNoMatch(t *testing.T) {
	engine := &fakeEngine{}
	r := newTestReader(t, FormatSet{}, engine)

	res, err := r.Decode(image.NewGray(image.Rect(0, 0, 640, 480)), 0, 0)
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Equal(t, 1, engine.decodeCalls())
}

func TestReaderDecodeMatch(t *testing.T) {
	engine := &fakeEngine{match: &Match{
		Format: FormatQRCode,
		Text:   "hello",
		Points: []image.Point{{X: 310, Y: 320}, {X: 380, Y: 390}},
	}}
	r := newTestReader(t, FormatSet{FormatQRCode, FormatEAN13}, engine)

	res, err := r.Decode(image.NewGray(image.Rect(0, 0, 1000, 1000)), 400, 400)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, FormatQRCode, res.Format)
	assert.Equal(t, "hello", res.Text)
	assert.Equal(t, image.Rect(310, 320, 380, 390), res.Bounds())

	require.Len(t, engine.regions, 1)
	assert.Equal(t, Region{Left: 300, Top: 300, Width: 400, Height: 400}, engine.regions[0])
}

func TestReaderPassesFormatsInOrder(t *testing.T) {
	engine := &fakeEngine{}
	formats := FormatSet{FormatEAN13, FormatQRCode, FormatEAN13}
	r := newTestReader(t, formats, engine)

	assert.Equal(t, formats, engine.formats)
	assert.Equal(t, formats, r.Formats())

	// Mutating the caller's slice must not reach the reader.
	formats[0] = FormatAztec
	assert.Equal(t, FormatEAN13, r.Formats()[0])
}

func TestReaderRoundTripReportsConfiguredFormat(t *testing.T) {
	r, err := NewReaderWithOptions(FormatSet{FormatCode128, FormatQRCode}, Options{Engine: matchFirst("A-1")})
	require.NoError(t, err)
	defer r.Release()

	res, err := r.Decode(image.NewGray(image.Rect(0, 0, 10, 10)), 0, 0)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, FormatCode128, res.Format)
	assert.Equal(t, "A-1", res.Text)
}

func TestReaderUseAfterRelease(t *testing.T) {
	engine := &fakeEngine{match: &Match{Format: FormatQRCode, Text: "x"}}
	r := newTestReader(t, nil, engine)

	r.Release()
	assert.True(t, r.Released())

	res, err := r.Decode(image.NewGray(image.Rect(0, 0, 10, 10)), 0, 0)
	require.ErrorIs(t, err, ErrUseAfterRelease)
	assert.Nil(t, res)
	assert.Equal(t, 0, engine.decodeCalls())
}

func TestReaderReleaseIsIdempotent(t *testing.T) {
	engine := &fakeEngine{}
	r := newTestReader(t, nil, engine)

	r.Release()
	r.Release()
	require.NoError(t, r.Close())
	assert.Equal(t, int32(1), engine.destroys.Load())
}

func TestReaderConcurrentRelease(t *testing.T) {
	engine := &fakeEngine{}
	r := newTestReader(t, nil, engine)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), engine.destroys.Load())
}

func TestReaderAllocationFailure(t *testing.T) {
	cause := errors.New("out of engines")
	failing := func(FormatSet, Options) (Engine, error) { return nil, cause }

	r, err := NewReaderWithOptions(FormatSet{FormatQRCode}, Options{Engine: failing})
	require.Error(t, err)
	assert.Nil(t, r)
	require.ErrorIs(t, err, ErrResourceAllocation)
	require.ErrorIs(t, err, cause)

	var resErr *ResourceError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "create engine", resErr.Op)
}

func TestReaderNilEngineIsAllocationFailure(t *testing.T) {
	nilEngine := func(FormatSet, Options) (Engine, error) { return nil, nil }

	_, err := NewReaderWithOptions(nil, Options{Engine: nilEngine})
	require.ErrorIs(t, err, ErrResourceAllocation)
}

func TestReaderInvalidImage(t *testing.T) {
	engine := &fakeEngine{}
	r := newTestReader(t, nil, engine)

	_, err := r.Decode(nil, 0, 0)
	require.ErrorIs(t, err, ErrInvalidImage)

	_, err = r.Decode(image.NewGray(image.Rect(0, 0, 0, 10)), 0, 0)
	require.ErrorIs(t, err, ErrInvalidImage)

	assert.Equal(t, 0, engine.decodeCalls())
}

func TestReaderEngineFailure(t *testing.T) {
	engine := &fakeEngine{err: errors.New("engine crashed")}
	r := newTestReader(t, nil, engine)

	res, err := r.Decode(image.NewGray(image.Rect(0, 0, 10, 10)), 0, 0)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "engine crashed")
	assert.NotErrorIs(t, err, ErrUseAfterRelease)
}

func TestReaderRegionUsesImageOrigin(t *testing.T) {
	engine := &fakeEngine{}
	r := newTestReader(t, nil, engine)

	img := image.NewGray(image.Rect(50, 50, 250, 150))
	_, err := r.Decode(img, 100, 100)
	require.NoError(t, err)

	require.Len(t, engine.regions, 1)
	assert.Equal(t, Region{Left: 50, Top: 0, Width: 100, Height: 100}, engine.regions[0])
}

func TestWithReaderReleases(t *testing.T) {
	engine := &fakeEngine{}
	opts := Options{Engine: engine.factory()}

	var captured *Reader
	err := WithReader(FormatSet{FormatQRCode}, opts, func(r *Reader) error {
		captured = r
		return errors.New("caller failed")
	})
	require.EqualError(t, err, "caller failed")
	assert.True(t, captured.Released())
	assert.Equal(t, int32(1), engine.destroys.Load())
}

func TestWithReaderReleasesOnPanic(t *testing.T) {
	engine := &fakeEngine{}
	opts := Options{Engine: engine.factory()}

	assert.Panics(t, func() {
		_ = WithReader(nil, opts, func(*Reader) error {
			panic("boom")
		})
	})
	assert.Equal(t, int32(1), engine.destroys.Load())
}

func TestWithReaderAllocationFailure(t *testing.T) {
	failing := func(FormatSet, Options) (Engine, error) { return nil, errors.New("no") }

	called := false
	err := WithReader(nil, Options{Engine: failing}, func(*Reader) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrResourceAllocation)
	assert.False(t, called)
}

func TestLeakedReaderIsCleanedUp(t *testing.T) {
	engine := &fakeEngine{}
	func() {
		_, err := NewReaderWithOptions(nil, Options{Engine: engine.factory()})
		require.NoError(t, err)
	}()

	assert.Eventually(t, func() bool {
		runtime.GC()
		return engine.destroys.Load() == 1
	}, 5*time.Second, 10*time.Millisecond)
}
