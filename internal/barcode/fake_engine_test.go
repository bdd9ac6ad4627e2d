package barcode

import (
	"image"
	"sync"
	"sync/atomic"
)

// fakeEngine records every call and answers Decode from a canned match.
type fakeEngine struct {
	mu       sync.Mutex
	formats  FormatSet
	match    *Match
	err      error
	regions  []Region
	destroys atomic.Int32
}

func (f *fakeEngine) Decode(_ image.Image, region Region) (*Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regions = append(f.regions, region)
	if f.err != nil {
		return nil, f.err
	}
	if f.match == nil {
		return nil, nil
	}
	m := *f.match
	return &m, nil
}

func (f *fakeEngine) Destroy() { f.destroys.Add(1) }

func (f *fakeEngine) decodeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.regions)
}

// factory returns an EngineFactory handing out f and recording the formats
// it was created with.
func (f *fakeEngine) factory() EngineFactory {
	return func(formats FormatSet, _ Options) (Engine, error) {
		f.formats = formats
		return f, nil
	}
}

// matchFirst is an engine that reports the first configured format.
func matchFirst(text string) EngineFactory {
	return func(formats FormatSet, _ Options) (Engine, error) {
		if len(formats) == 0 {
			return &fakeEngine{}, nil
		}
		return &fakeEngine{match: &Match{Format: formats[0], Text: text}}, nil
	}
}
