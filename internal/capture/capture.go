// Package capture abstracts the frame acquisition device used during a
// scan attempt. A Source is owned exclusively by one attempt for its
// lifetime and must be released on every exit path.
package capture

import (
	"context"
	"errors"
	"image"
)

// ErrClosed is returned by ReadFrame after the source has been released.
var ErrClosed = errors.New("capture: source closed")

// Source yields frames until released.
type Source interface {
	// Open prepares the device. It must be called before the first read.
	Open(ctx context.Context) error
	// ReadFrame blocks until a frame is available, the context ends, or the
	// source is released.
	ReadFrame(ctx context.Context) (image.Image, error)
	// Release frees the device. Safe to call more than once.
	Release() error
}
