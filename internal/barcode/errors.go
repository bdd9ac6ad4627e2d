package barcode

import (
	"errors"
	"fmt"
)

var (
	// ErrResourceAllocation means the decoding engine could not be created.
	ErrResourceAllocation = errors.New("barcode: engine allocation failed")

	// ErrUseAfterRelease is returned by Decode on a released Reader.
	ErrUseAfterRelease = errors.New("barcode: reader used after release")

	// ErrUnsupportedFormat means the engine cannot read a requested format.
	ErrUnsupportedFormat = errors.New("barcode: unsupported format")

	// ErrInvalidImage is returned for nil or zero-sized images.
	ErrInvalidImage = errors.New("barcode: invalid image")

	// ErrPoolClosed is returned by a ReaderPool after Close.
	ErrPoolClosed = errors.New("barcode: reader pool closed")
)

// ResourceError records the operation that failed while managing a Reader's engine.
type ResourceError struct {
	Op  string
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// allocationError wraps cause so that it matches ErrResourceAllocation.
func allocationError(op string, cause error) error {
	switch {
	case cause == nil:
		return &ResourceError{Op: op, Err: ErrResourceAllocation}
	case errors.Is(cause, ErrResourceAllocation):
		return &ResourceError{Op: op, Err: cause}
	}
	return &ResourceError{Op: op, Err: fmt.Errorf("%w: %w", ErrResourceAllocation, cause)}
}
