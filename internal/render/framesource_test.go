package render

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandguard/brandguard/pkg/utils"
)

// mockSurface is a scriptable DecodeSurface that records every call.
type mockSurface struct {
	mu       sync.Mutex
	position float64
	playing  bool

	seekAndWaitFunc func(ctx context.Context, seconds float64) (*Frame, error)

	inCapture   bool
	overlapSeen bool
	captures    int
}

func (m *mockSurface) SeekAndWait(ctx context.Context, seconds float64) (*Frame, error) {
	m.mu.Lock()
	if m.inCapture {
		m.overlapSeen = true
	}
	m.inCapture = true
	m.captures++
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inCapture = false
		m.mu.Unlock()
	}()

	if m.seekAndWaitFunc != nil {
		return m.seekAndWaitFunc(ctx, seconds)
	}
	m.mu.Lock()
	m.position = seconds
	m.mu.Unlock()
	return &Frame{Data: []byte("jpeg"), Width: 640, Height: 360}, nil
}

func (m *mockSurface) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *mockSurface) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

func (m *mockSurface) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
}

func (m *mockSurface) Play() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = true
}

func (m *mockSurface) Seek(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = seconds
}

func TestCaptureFrameSuccess(t *testing.T) {
	surface := &mockSurface{position: 12.5, playing: true}
	fs := NewFrameSource(surface, time.Second, utils.NewTestLogger())

	frame, err := fs.CaptureFrame(context.Background(), 5.0)
	require.NoError(t, err)
	assert.Equal(t, 640, frame.Width)

	// Position and play state restored after the capture.
	assert.Equal(t, 12.5, surface.Position())
	assert.True(t, surface.Playing())
}

func TestCaptureFrameRestoresStateOnError(t *testing.T) {
	surface := &mockSurface{position: 3.25, playing: true}
	surface.seekAndWaitFunc = func(ctx context.Context, seconds float64) (*Frame, error) {
		return nil, ErrCaptureForbidden
	}
	fs := NewFrameSource(surface, time.Second, utils.NewTestLogger())

	_, err := fs.CaptureFrame(context.Background(), 9.0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCaptureForbidden)

	assert.Equal(t, 3.25, surface.Position())
	assert.True(t, surface.Playing())
}

func TestCaptureFrameRestoresStateOnCancellation(t *testing.T) {
	surface := &mockSurface{position: 1.0, playing: false}
	surface.seekAndWaitFunc = func(ctx context.Context, seconds float64) (*Frame, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	fs := NewFrameSource(surface, 20*time.Millisecond, utils.NewTestLogger())

	_, err := fs.CaptureFrame(context.Background(), 2.0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCaptureTimeout)

	assert.Equal(t, 1.0, surface.Position())
	assert.False(t, surface.Playing())
}

func TestCaptureFramePausedDuringCapture(t *testing.T) {
	surface := &mockSurface{playing: true}
	var playingDuringCapture bool
	surface.seekAndWaitFunc = func(ctx context.Context, seconds float64) (*Frame, error) {
		playingDuringCapture = surface.Playing()
		return &Frame{Data: []byte("jpeg"), Width: 1, Height: 1}, nil
	}
	fs := NewFrameSource(surface, time.Second, utils.NewTestLogger())

	_, err := fs.CaptureFrame(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, playingDuringCapture, "playback must be paused while capturing")
	assert.True(t, surface.Playing(), "play state must be restored afterwards")
}

func TestConcurrentCapturesAreSerialized(t *testing.T) {
	surface := &mockSurface{}
	surface.seekAndWaitFunc = func(ctx context.Context, seconds float64) (*Frame, error) {
		time.Sleep(10 * time.Millisecond)
		return &Frame{Data: []byte("jpeg"), Width: 1, Height: 1}, nil
	}
	fs := NewFrameSource(surface, time.Second, utils.NewTestLogger())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := fs.CaptureFrame(context.Background(), float64(n))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, surface.captures)
	assert.False(t, surface.overlapSeen, "captures must not run concurrently on the shared surface")
}

func TestCaptureFrameNoSurface(t *testing.T) {
	fs := NewFrameSource(nil, time.Second, utils.NewTestLogger())
	_, err := fs.CaptureFrame(context.Background(), 1.0)
	assert.True(t, errors.Is(err, ErrNoSurface))
}
