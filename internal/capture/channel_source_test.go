package capture

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelSourcePushAndRead(t *testing.T) {
	source := NewChannelSource(2)
	require.NoError(t, source.Open(context.Background()))

	frame := image.NewGray(image.Rect(0, 0, 10, 10))
	require.NoError(t, source.Push(frame))

	got, err := source.ReadFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, frame, got)
}

func TestChannelSourceDropsWhenFull(t *testing.T) {
	source := NewChannelSource(1)

	first := image.NewGray(image.Rect(0, 0, 1, 1))
	second := image.NewGray(image.Rect(0, 0, 2, 2))
	require.NoError(t, source.Push(first))
	require.NoError(t, source.Push(second))

	got, err := source.ReadFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func TestChannelSourceReleaseUnblocksReads(t *testing.T) {
	source := NewChannelSource(1)

	errCh := make(chan error, 1)
	go func() {
		_, err := source.ReadFrame(context.Background())
		errCh <- err
	}()

	require.NoError(t, source.Release())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("read did not unblock after release")
	}

	assert.ErrorIs(t, source.Open(context.Background()), ErrClosed)
	assert.ErrorIs(t, source.Push(image.NewGray(image.Rect(0, 0, 1, 1))), ErrClosed)
	require.NoError(t, source.Release())
}

func TestChannelSourceReadHonoursContext(t *testing.T) {
	source := NewChannelSource(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := source.ReadFrame(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
