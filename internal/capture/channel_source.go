package capture

import (
	"context"
	"image"
	"sync"
)

// ChannelSource is a Source fed by frames pushed from the API layer.
// Clients upload frames over HTTP and the scan loop consumes them here.
type ChannelSource struct {
	frames chan image.Image
	closed chan struct{}
	once   sync.Once
}

// NewChannelSource builds a source buffering up to buffer frames.
func NewChannelSource(buffer int) *ChannelSource {
	if buffer <= 0 {
		buffer = 8
	}
	return &ChannelSource{
		frames: make(chan image.Image, buffer),
		closed: make(chan struct{}),
	}
}

// Open is a no-op; the source is ready as soon as it is constructed.
func (s *ChannelSource) Open(context.Context) error {
	select {
	case <-s.closed:
		return ErrClosed
	default:
		return nil
	}
}

// Push hands a frame to the consuming scan loop. Frames pushed while the
// buffer is full are dropped so a slow consumer cannot block uploads.
func (s *ChannelSource) Push(frame image.Image) error {
	select {
	case <-s.closed:
		return ErrClosed
	default:
	}
	select {
	case s.frames <- frame:
	default:
	}
	return nil
}

// ReadFrame blocks for the next pushed frame.
func (s *ChannelSource) ReadFrame(ctx context.Context) (image.Image, error) {
	select {
	case frame := <-s.frames:
		return frame, nil
	case <-s.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release closes the source. Pending and future reads fail with ErrClosed.
func (s *ChannelSource) Release() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}
