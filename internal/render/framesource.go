package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Frame is one rasterized video frame, JPEG-encoded, with pixel dimensions.
type Frame struct {
	Data   []byte
	Width  int
	Height int
}

// DecodeSurface is the capability interface over the single stateful
// video-playback resource frames are captured from. Implementations must make
// SeekAndWait block until the decoder has a fully decoded frame at the target
// position; returning early with a stale or partially decoded frame is a
// contract violation.
type DecodeSurface interface {
	// SeekAndWait seeks to the given position and blocks until the decoded
	// frame at that position is ready, then returns it rasterized. Respects
	// ctx cancellation and deadline.
	SeekAndWait(ctx context.Context, seconds float64) (*Frame, error)

	// Position reports the current playback position in seconds.
	Position() float64

	// Playing reports whether playback is currently running.
	Playing() bool

	// Pause halts playback, keeping the current position.
	Pause()

	// Play resumes playback from the current position.
	Play()

	// Seek moves the playback position without waiting for a frame.
	Seek(seconds float64)
}

// FrameSource wraps exactly one decode surface per export session and exposes
// seek-and-capture with guaranteed state restoration. Captures are serialized
// because the underlying surface is a single shared resource; concurrent
// callers queue on the mutex.
type FrameSource struct {
	surface DecodeSurface
	timeout time.Duration
	logger  *zap.Logger

	mu sync.Mutex
}

// NewFrameSource creates a frame source over the given surface. timeout bounds
// each individual seek-and-capture; an expired timeout is reported as a
// capture failure, never left waiting indefinitely.
func NewFrameSource(surface DecodeSurface, timeout time.Duration, logger *zap.Logger) *FrameSource {
	return &FrameSource{
		surface: surface,
		timeout: timeout,
		logger:  logger,
	}
}

// CaptureFrame captures the frame at the given position. The surface's
// playback position and play state are restored on every exit path, including
// capture errors and caller cancellation.
func (fs *FrameSource) CaptureFrame(ctx context.Context, seconds float64) (*Frame, error) {
	if fs.surface == nil {
		return nil, ErrNoSurface
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	originalPos := fs.surface.Position()
	wasPlaying := fs.surface.Playing()
	fs.surface.Pause()

	// Restoration is mandatory cleanup, not success-path behavior.
	defer func() {
		fs.surface.Seek(originalPos)
		if wasPlaying {
			fs.surface.Play()
		}
	}()

	captureCtx, cancel := context.WithTimeout(ctx, fs.timeout)
	defer cancel()

	frame, err := fs.surface.SeekAndWait(captureCtx, seconds)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(captureCtx.Err(), context.DeadlineExceeded) {
			fs.logger.Warn("Frame capture timed out",
				zap.Float64("seconds", seconds),
				zap.Duration("timeout", fs.timeout))
			return nil, fmt.Errorf("%w: at %.3fs", ErrCaptureTimeout, seconds)
		}
		fs.logger.Warn("Frame capture failed",
			zap.Float64("seconds", seconds),
			zap.Error(err))
		return nil, err
	}

	return frame, nil
}

// fileSurface is a DecodeSurface over a local video file. Decoding is
// delegated to an ffmpeg process per seek; the blocking wait for the decoded
// frame is the process itself running to completion.
type fileSurface struct {
	path       string
	ffmpegPath string

	mu       sync.Mutex
	position float64
	playing  bool
}

// NewFileSurface creates a decode surface for a locally stored video file.
func NewFileSurface(path, ffmpegPath string) DecodeSurface {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &fileSurface{
		path:       path,
		ffmpegPath: ffmpegPath,
	}
}

func (s *fileSurface) SeekAndWait(ctx context.Context, seconds float64) (*Frame, error) {
	// -ss before -i seeks on the demuxer; decoding then runs to the first
	// complete frame, so a successful exit guarantees the frame is ready.
	cmd := exec.CommandContext(ctx, s.ffmpegPath,
		"-ss", strconv.FormatFloat(seconds, 'f', 3, 64),
		"-i", s.path,
		"-frames:v", "1",
		"-f", "image2",
		"-c:v", "mjpeg",
		"-q:v", "3",
		"pipe:1",
	)

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrCaptureForbidden, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no frame at %.3fs", ErrCaptureForbidden, seconds)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("decode captured frame: %w", err)
	}

	s.mu.Lock()
	s.position = seconds
	s.mu.Unlock()

	return &Frame{Data: out, Width: cfg.Width, Height: cfg.Height}, nil
}

func (s *fileSurface) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *fileSurface) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *fileSurface) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
}

func (s *fileSurface) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = true
}

func (s *fileSurface) Seek(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = seconds
}
