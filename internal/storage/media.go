package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brandguard/brandguard/internal/models"
	"github.com/brandguard/brandguard/internal/render"
)

// ErrExternalMedia marks submissions whose media lives on an external host
// and cannot be loaded for analysis.
var ErrExternalMedia = errors.New("external media cannot be loaded")

// MediaStore serves submission media from the local media directory and
// writes export artifacts to the export directory. Locators are paths
// relative to the media directory; anything escaping it is rejected.
type MediaStore struct {
	mediaDir       string
	exportDir      string
	ffmpegPath     string
	captureTimeout time.Duration
	logger         *zap.Logger
}

// NewMediaStore creates a media store.
func NewMediaStore(mediaDir, exportDir, ffmpegPath string, captureTimeout time.Duration, logger *zap.Logger) *MediaStore {
	return &MediaStore{
		mediaDir:       mediaDir,
		exportDir:      exportDir,
		ffmpegPath:     ffmpegPath,
		captureTimeout: captureTimeout,
		logger:         logger,
	}
}

// ResolvePath maps a submission locator to an absolute path inside the media
// directory.
func (s *MediaStore) ResolvePath(locator string) (string, error) {
	absBase, err := filepath.Abs(s.mediaDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve media directory: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(absBase, locator))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return "", fmt.Errorf("locator escapes media directory: %s", locator)
	}
	return absPath, nil
}

// LoadBaseImage returns the encoded base image for analysis: the stored
// image itself, or the opening frame of a stored video.
func (s *MediaStore) LoadBaseImage(ctx context.Context, sub *models.Submission) ([]byte, string, error) {
	switch sub.SourceKind {
	case models.SourceImage:
		return s.loadImage(ctx, sub.SourceLocator)
	case models.SourceVideo:
		return s.loadVideoFrame(ctx, sub.SourceLocator)
	default:
		return nil, "", fmt.Errorf("%w: %s", ErrExternalMedia, sub.SourceLocator)
	}
}

func (s *MediaStore) loadImage(ctx context.Context, locator string) ([]byte, string, error) {
	var data []byte
	if isRemote(locator) {
		fetched, err := s.fetchRemote(ctx, locator)
		if err != nil {
			return nil, "", fmt.Errorf("failed to fetch image URL: %w", err)
		}
		data = fetched
	} else {
		path, err := s.ResolvePath(locator)
		if err != nil {
			return nil, "", err
		}
		read, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read media file: %w", err)
		}
		data = read
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("unsupported image format: %w", err)
	}
	return data, format, nil
}

func isRemote(locator string) bool {
	return strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://")
}

// fetchRemote downloads a direct image URL. Cancellation and deadlines come
// from the caller's context.
func (s *MediaStore) fetchRemote(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}

func (s *MediaStore) loadVideoFrame(ctx context.Context, locator string) ([]byte, string, error) {
	path, err := s.ResolvePath(locator)
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, "", fmt.Errorf("failed to stat media file: %w", err)
	}

	surface := render.NewFileSurface(path, s.ffmpegPath)
	frames := render.NewFrameSource(surface, s.captureTimeout, s.logger)

	frame, err := frames.CaptureFrame(ctx, 0)
	if err != nil {
		return nil, "", fmt.Errorf("failed to capture analysis frame: %w", err)
	}
	return frame.Data, "jpeg", nil
}

// FrameSource builds a frame source over a stored video for evidence
// rendering.
func (s *MediaStore) FrameSource(locator string) (*render.FrameSource, error) {
	path, err := s.ResolvePath(locator)
	if err != nil {
		return nil, err
	}
	surface := render.NewFileSurface(path, s.ffmpegPath)
	return render.NewFrameSource(surface, s.captureTimeout, s.logger), nil
}

// MediaPath returns the absolute on-disk path for a local submission, or the
// locator unchanged for external URLs and remote image links.
func (s *MediaStore) MediaPath(sub *models.Submission) (string, error) {
	if sub.SourceKind == models.SourceExternalURL || isRemote(sub.SourceLocator) {
		return sub.SourceLocator, nil
	}
	return s.ResolvePath(sub.SourceLocator)
}

// SaveMedia stores an uploaded media file and returns its locator relative to
// the media directory. Filenames are prefixed to avoid collisions between
// uploads.
func (s *MediaStore) SaveMedia(filename string, content []byte) (string, error) {
	if err := os.MkdirAll(s.mediaDir, 0755); err != nil {
		s.logger.Error("Failed to create media directory",
			zap.String("path", s.mediaDir),
			zap.Error(err))
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}

	locator := uuid.NewString() + "-" + filepath.Base(filename)
	path, err := s.ResolvePath(locator)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		s.logger.Error("Failed to write media file",
			zap.String("path", path),
			zap.Error(err))
		return "", fmt.Errorf("failed to write media file: %w", err)
	}

	s.logger.Debug("Media file saved",
		zap.String("locator", locator),
		zap.Int("size", len(content)))
	return locator, nil
}

// SaveExport writes an export artifact and returns its full path.
func (s *MediaStore) SaveExport(filename string, content []byte) (string, error) {
	if err := os.MkdirAll(s.exportDir, 0755); err != nil {
		s.logger.Error("Failed to create export directory",
			zap.String("path", s.exportDir),
			zap.Error(err))
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	fullPath := filepath.Join(s.exportDir, filepath.Base(filename))
	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write export artifact",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to write export artifact: %w", err)
	}

	s.logger.Debug("Export artifact saved",
		zap.String("path", fullPath),
		zap.Int("size", len(content)))
	return fullPath, nil
}
