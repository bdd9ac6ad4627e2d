package barcode

import (
	"context"
	"fmt"
	"image"
	"sync"
)

// ReaderPool hands out Readers with identical configuration to concurrent
// callers, one caller per Reader at a time.
type ReaderPool struct {
	readers chan *Reader
	all     []*Reader
	formats FormatSet

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
	once   sync.Once
}

// NewReaderPool creates size Readers up front. If any of them fails, the
// ones already created are released and the error is returned.
func NewReaderPool(size int, formats FormatSet, opts Options) (*ReaderPool, error) {
	if size < 1 {
		return nil, fmt.Errorf("reader pool size must be at least 1, got %d", size)
	}
	p := &ReaderPool{
		readers: make(chan *Reader, size),
		all:     make([]*Reader, 0, size),
		formats: formats.Clone(),
		done:    make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		r, err := NewReaderWithOptions(formats, opts)
		if err != nil {
			for _, created := range p.all {
				created.Release()
			}
			return nil, fmt.Errorf("create pooled reader %d: %w", i, err)
		}
		p.all = append(p.all, r)
		p.readers <- r
	}
	return p, nil
}

// Size returns the number of Readers owned by the pool.
func (p *ReaderPool) Size() int { return len(p.all) }

// Formats returns the format set shared by every pooled Reader.
func (p *ReaderPool) Formats() FormatSet { return p.formats.Clone() }

// Acquire waits for a free Reader. The caller must hand it back with Put.
func (p *ReaderPool) Acquire(ctx context.Context) (*Reader, error) {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return nil, ErrPoolClosed
	}

	select {
	case r := <-p.readers:
		return r, nil
	case <-p.done:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Put returns a Reader obtained from Acquire.
func (p *ReaderPool) Put(r *Reader) {
	if r == nil {
		return
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		r.Release()
		return
	}
	p.readers <- r
}

// Decode acquires a Reader, decodes img with it and returns it to the pool.
func (p *ReaderPool) Decode(ctx context.Context, img image.Image, cropWidth, cropHeight int) (*Result, error) {
	r, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Put(r)
	return r.Decode(img, cropWidth, cropHeight)
}

// Close releases the idle Readers. Readers still checked out are released
// when they come back through Put.
func (p *ReaderPool) Close() error {
	p.once.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.closed = true
		close(p.done)
		for {
			select {
			case r := <-p.readers:
				r.Release()
			default:
				return
			}
		}
	})
	return nil
}
