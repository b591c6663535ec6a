package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandguard/brandguard/internal/models"
	"github.com/brandguard/brandguard/pkg/utils"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func imageSubmission(locator string) *models.Submission {
	return &models.Submission{
		ID:            "s-1",
		SourceKind:    models.SourceImage,
		SourceLocator: locator,
	}
}

func issueWithCoords() *models.Issue {
	return &models.Issue{
		IssueID:  "i1",
		Category: models.CategoryColors,
		Severity: models.SeverityHigh,
		Evidence: &models.Evidence{
			Coordinates: &models.Coordinates{X: 0.1, Y: 0.2, W: 0.3, H: 0.1},
		},
	}
}

func TestResolveNoEvidenceShortCircuits(t *testing.T) {
	var fetches int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		w.Write(testPNG(t, 4, 4))
	}))
	defer srv.Close()

	r := NewResolver(imageSubmission(srv.URL), nil, time.Second, utils.NewTestLogger())
	img, fallback := r.Resolve(context.Background(), &models.Issue{IssueID: "i1"})

	assert.Nil(t, img)
	require.NotNil(t, fallback)
	assert.Equal(t, FallbackNoEvidence, fallback.Reason)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fetches), "no media fetch for evidence-less issues")
}

func TestResolveImageCachedAcrossIssues(t *testing.T) {
	var fetches int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		w.Write(testPNG(t, 32, 16))
	}))
	defer srv.Close()

	r := NewResolver(imageSubmission(srv.URL), nil, time.Second, utils.NewTestLogger())

	for i := 0; i < 3; i++ {
		img, fallback := r.Resolve(context.Background(), issueWithCoords())
		require.Nil(t, fallback)
		require.NotNil(t, img)
		assert.Equal(t, 32, img.Width)
		assert.Equal(t, 16, img.Height)
		assert.Equal(t, "png", img.Format)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches), "base image fetched once per session")
}

func TestResolveImageFetchErrorCached(t *testing.T) {
	var fetches int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	r := NewResolver(imageSubmission(srv.URL), nil, time.Second, utils.NewTestLogger())

	for i := 0; i < 2; i++ {
		img, fallback := r.Resolve(context.Background(), issueWithCoords())
		assert.Nil(t, img)
		require.NotNil(t, fallback)
		assert.Equal(t, FallbackFetchError, fallback.Reason)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches), "failed fetch is not retried within the session")
}

func TestResolveExternalURLFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		reason FallbackReason
	}{
		{"youtube watch URL", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", FallbackUnsupportedHost},
		{"youtube short URL", "https://youtu.be/dQw4w9WgXcQ", FallbackUnsupportedHost},
		{"generic site", "https://example.com/campaign", FallbackGenericExternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &models.Submission{
				ID:            "s-1",
				SourceKind:    models.SourceExternalURL,
				SourceLocator: tt.url,
			}
			r := NewResolver(sub, nil, time.Second, utils.NewTestLogger())
			img, fallback := r.Resolve(context.Background(), issueWithCoords())
			assert.Nil(t, img)
			require.NotNil(t, fallback)
			assert.Equal(t, tt.reason, fallback.Reason)
			assert.NotEmpty(t, fallback.Message)
		})
	}
}

func TestResolveVideoCaptureForbiddenDegrades(t *testing.T) {
	surface := &mockSurface{}
	surface.seekAndWaitFunc = func(ctx context.Context, seconds float64) (*Frame, error) {
		return nil, ErrCaptureForbidden
	}
	frames := NewFrameSource(surface, time.Second, utils.NewTestLogger())

	sub := &models.Submission{
		ID:            "s-1",
		SourceKind:    models.SourceVideo,
		SourceLocator: "/data/media/s-1/clip.mp4",
	}
	r := NewResolver(sub, frames, time.Second, utils.NewTestLogger())

	issue := &models.Issue{
		IssueID:  "i1",
		Evidence: &models.Evidence{TimestampRange: &models.TimestampRange{StartMS: 5000, EndMS: 7000}},
	}
	img, fallback := r.Resolve(context.Background(), issue)
	assert.Nil(t, img)
	require.NotNil(t, fallback)
	assert.Equal(t, FallbackCaptureForbidden, fallback.Reason)
}

func TestResolveVideoCapturesAtStartMS(t *testing.T) {
	surface := &mockSurface{}
	var captured float64
	surface.seekAndWaitFunc = func(ctx context.Context, seconds float64) (*Frame, error) {
		captured = seconds
		return &Frame{Data: []byte("jpeg"), Width: 1280, Height: 720}, nil
	}
	frames := NewFrameSource(surface, time.Second, utils.NewTestLogger())

	sub := &models.Submission{
		ID:            "s-1",
		SourceKind:    models.SourceVideo,
		SourceLocator: "/data/media/s-1/clip.mp4",
	}
	r := NewResolver(sub, frames, time.Second, utils.NewTestLogger())

	issue := &models.Issue{
		IssueID:  "i1",
		Evidence: &models.Evidence{TimestampRange: &models.TimestampRange{StartMS: 5000, EndMS: 7000}},
	}
	img, fallback := r.Resolve(context.Background(), issue)
	require.Nil(t, fallback)
	assert.Equal(t, 5.0, captured)
	assert.Equal(t, 1280, img.Width)
	assert.Equal(t, "jpeg", img.Format)
}

func TestResolveVideoWithoutTimestamp(t *testing.T) {
	surface := &mockSurface{}
	frames := NewFrameSource(surface, time.Second, utils.NewTestLogger())
	sub := &models.Submission{
		ID:         "s-1",
		SourceKind: models.SourceVideo,
	}
	r := NewResolver(sub, frames, time.Second, utils.NewTestLogger())

	issue := &models.Issue{
		IssueID:  "i1",
		Evidence: &models.Evidence{Coordinates: &models.Coordinates{X: 0.1, Y: 0.1, W: 0.2, H: 0.2}},
	}
	img, fallback := r.Resolve(context.Background(), issue)
	assert.Nil(t, img)
	require.NotNil(t, fallback)
	assert.Equal(t, FallbackNoEvidence, fallback.Reason)
	assert.Equal(t, 0, surface.captures, "no capture without temporal evidence")
}

func TestIsRecognizedVideoHost(t *testing.T) {
	assert.True(t, IsRecognizedVideoHost("https://www.youtube.com/watch?v=abcdefghijk"))
	assert.True(t, IsRecognizedVideoHost("https://www.youtube.com/embed/abcdefghijk"))
	assert.False(t, IsRecognizedVideoHost("https://vimeo.com/12345"))
	assert.False(t, IsRecognizedVideoHost("https://example.com/watch"))
}
