package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/brandguard/brandguard/internal/models"
)

// FallbackReason classifies why visual evidence could not be obtained.
type FallbackReason string

const (
	// FallbackNoEvidence: the issue carries no evidence descriptor at all.
	FallbackNoEvidence FallbackReason = "NO_EVIDENCE"

	// FallbackFetchError: fetching or decoding the base image failed.
	FallbackFetchError FallbackReason = "FETCH_ERROR"

	// FallbackCaptureForbidden: the decode surface refused or timed out.
	FallbackCaptureForbidden FallbackReason = "CAPTURE_FORBIDDEN"

	// FallbackUnsupportedHost: external URL on a recognized video host.
	FallbackUnsupportedHost FallbackReason = "UNSUPPORTED_HOST"

	// FallbackGenericExternal: any other external URL.
	FallbackGenericExternal FallbackReason = "GENERIC_EXTERNAL"
)

var fallbackMessages = map[FallbackReason]string{
	FallbackNoEvidence:       "No visual evidence attached to this issue.",
	FallbackFetchError:       "Source image could not be loaded for evidence rendering.",
	FallbackCaptureForbidden: "Frame capture unavailable for this video source.",
	FallbackUnsupportedHost:  "Screenshots unavailable for this host. Please refer to the timestamp.",
	FallbackGenericExternal:  "Visual evidence not available for external URLs.",
}

// Fallback is a typed, non-fatal substitute for visual evidence.
type Fallback struct {
	Reason  FallbackReason
	Message string
}

// FallbackFor builds the fallback carrying the reason's standard message.
func FallbackFor(reason FallbackReason) *Fallback {
	return &Fallback{Reason: reason, Message: fallbackMessages[reason]}
}

// EvidenceImage is a resolved evidence image: encoded bytes plus pixel
// dimensions. Format is the encoding name as the stdlib decoders report it
// ("jpeg" or "png").
type EvidenceImage struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// youtubeRe matches the URL shapes YouTube serves video IDs under.
var youtubeRe = regexp.MustCompile(`(?:youtu\.be/|youtube\.com/(?:v/|u/\w/|embed/|watch\?v=)|[?&]v=)([^#&?]{11})`)

// IsRecognizedVideoHost reports whether the URL points at a video host we
// know cannot be captured from.
func IsRecognizedVideoHost(url string) bool {
	return youtubeRe.MatchString(url)
}

// Resolver resolves evidence images for one export session. It owns the
// session-scoped base image cache for image submissions and delegates video
// capture to the session's FrameSource. Resolution never fails the export:
// every failure mode degrades to a typed Fallback.
type Resolver struct {
	submission *models.Submission
	frames     *FrameSource
	client     *http.Client
	logger     *zap.Logger

	// Base image fetch happens at most once per session; both the decoded
	// image and a failed outcome are cached.
	baseFetched bool
	baseImage   *EvidenceImage
}

// NewResolver creates a resolver for one export session. frames may be nil
// for non-video submissions.
func NewResolver(submission *models.Submission, frames *FrameSource, fetchTimeout time.Duration, logger *zap.Logger) *Resolver {
	return &Resolver{
		submission: submission,
		frames:     frames,
		client:     &http.Client{Timeout: fetchTimeout},
		logger:     logger,
	}
}

// Resolve produces the evidence image for one issue, or a typed fallback.
// Issues are resolved lazily, one at a time, in report order; an issue
// without an evidence descriptor never touches media.
func (r *Resolver) Resolve(ctx context.Context, issue *models.Issue) (*EvidenceImage, *Fallback) {
	if issue.Evidence == nil {
		return nil, FallbackFor(FallbackNoEvidence)
	}

	switch r.submission.SourceKind {
	case models.SourceExternalURL:
		if IsRecognizedVideoHost(r.submission.SourceLocator) {
			return nil, FallbackFor(FallbackUnsupportedHost)
		}
		return nil, FallbackFor(FallbackGenericExternal)

	case models.SourceImage:
		img := r.BaseImage(ctx)
		if img == nil {
			return nil, FallbackFor(FallbackFetchError)
		}
		return img, nil

	case models.SourceVideo:
		if issue.Evidence.TimestampRange == nil {
			// No temporal evidence to seek to; nothing capturable.
			return nil, FallbackFor(FallbackNoEvidence)
		}
		seconds := float64(issue.Evidence.TimestampRange.StartMS) / 1000.0
		frame, err := r.frames.CaptureFrame(ctx, seconds)
		if err != nil {
			r.logger.Warn("Evidence capture degraded to fallback",
				zap.String("issue_id", issue.IssueID),
				zap.Float64("seconds", seconds),
				zap.Error(err))
			return nil, FallbackFor(FallbackCaptureForbidden)
		}
		return &EvidenceImage{Data: frame.Data, Format: "jpeg", Width: frame.Width, Height: frame.Height}, nil
	}

	return nil, FallbackFor(FallbackGenericExternal)
}

// BaseImage returns the submission's base image, fetching and decoding it on
// first use. Returns nil if the fetch or decode failed; the failure is cached
// for the rest of the session.
func (r *Resolver) BaseImage(ctx context.Context) *EvidenceImage {
	if r.baseFetched {
		return r.baseImage
	}
	r.baseFetched = true

	data, err := r.fetchSource(ctx)
	if err != nil {
		r.logger.Warn("Base image fetch failed",
			zap.String("submission_id", r.submission.ID),
			zap.Error(err))
		return nil
	}

	img, err := rasterize(data)
	if err != nil {
		r.logger.Warn("Base image decode failed",
			zap.String("submission_id", r.submission.ID),
			zap.Error(err))
		return nil
	}

	r.baseImage = img
	return r.baseImage
}

// fetchSource reads the submission's source bytes, from the network for URL
// locators or from local storage for uploaded files.
func (r *Resolver) fetchSource(ctx context.Context) ([]byte, error) {
	locator := r.submission.SourceLocator
	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
		if err != nil {
			return nil, err
		}
		resp, err := r.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, locator)
		}
		return io.ReadAll(resp.Body)
	}
	return os.ReadFile(locator)
}

// rasterize decodes source bytes into an evidence image. Bitmap formats go
// through the stdlib decoders; anything else (PDF one-pager creatives) is
// rasterized with mupdf.
func rasterize(data []byte) (*EvidenceImage, error) {
	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		return &EvidenceImage{Data: data, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("unsupported image source: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("source document has no pages")
	}

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize page: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode page: %w", err)
	}

	bounds := img.Bounds()
	return &EvidenceImage{
		Data:   buf.Bytes(),
		Format: "jpeg",
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
