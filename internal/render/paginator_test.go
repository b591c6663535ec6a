package render

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandguard/brandguard/internal/models"
)

// fixedMeasurer wraps at a fixed number of characters per line, independent
// of font size, so pagination is fully deterministic in tests.
type fixedMeasurer struct {
	charsPerLine int
}

func (m fixedMeasurer) WrapText(text string, width, fontSize float64) []string {
	if text == "" {
		return []string{""}
	}
	var lines []string
	for len(text) > m.charsPerLine {
		lines = append(lines, text[:m.charsPerLine])
		text = text[m.charsPerLine:]
	}
	return append(lines, text)
}

// stubEvidence serves scripted results per issue ID.
type stubEvidence struct {
	images    map[string]*EvidenceImage
	fallbacks map[string]*Fallback
	resolved  []string
}

func (s *stubEvidence) Resolve(ctx context.Context, issue *models.Issue) (*EvidenceImage, *Fallback) {
	s.resolved = append(s.resolved, issue.IssueID)
	if img, ok := s.images[issue.IssueID]; ok {
		return img, nil
	}
	if fb, ok := s.fallbacks[issue.IssueID]; ok {
		return nil, fb
	}
	return nil, FallbackFor(FallbackNoEvidence)
}

func reportSubmission(issues ...models.Issue) *models.Submission {
	return &models.Submission{
		ID:         "s-42",
		Version:    3,
		SourceKind: models.SourceImage,
		Status:     models.StatusChangesRequested,
		Report: &models.Report{
			Overall: models.Overall{
				Score:    64,
				Decision: models.DecisionNeedsChanges,
				Summary:  "Multiple violations found.",
			},
			Issues: issues,
		},
	}
}

func pageTexts(page *Page) []string {
	var out []string
	for _, el := range page.Elements {
		if txt, ok := el.(TextElement); ok {
			out = append(out, txt.Lines...)
		}
	}
	return out
}

func containsText(page *Page, substr string) bool {
	for _, line := range pageTexts(page) {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

var testClock = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func buildTestDoc(t *testing.T, sub *models.Submission, evidence EvidenceSource) *Document {
	t.Helper()
	p := NewPaginator(DefaultPageConfig(), fixedMeasurer{charsPerLine: 60})
	return p.Build(context.Background(), sub, evidence, "BrandGuard", testClock)
}

func TestBuildDocumentPageStructure(t *testing.T) {
	issues := []models.Issue{
		{IssueID: "i1", Severity: models.SeverityLow, Category: models.CategoryColors, Title: "A", Description: "d"},
		{IssueID: "i2", Severity: models.SeverityBlocker, Category: models.CategoryLogo, Title: "B", Description: "d"},
		{IssueID: "i3", Severity: models.SeverityMedium, Category: models.CategoryLayout, Title: "C", Description: "d"},
	}
	doc := buildTestDoc(t, reportSubmission(issues...), &stubEvidence{})

	// Page 1 for the overview, one page per issue regardless of space.
	require.Len(t, doc.Pages, 4)
	assert.True(t, containsText(doc.Pages[0], "BrandGuard Compliance Report"))
	assert.True(t, containsText(doc.Pages[0], "Submission ID: s-42"))
	assert.True(t, containsText(doc.Pages[0], "64/100"))
	assert.True(t, containsText(doc.Pages[0], "Decision: NEEDS_CHANGES"))
	assert.True(t, containsText(doc.Pages[1], "Issue: A"))
	assert.True(t, containsText(doc.Pages[2], "Issue: B"))
	assert.True(t, containsText(doc.Pages[3], "Issue: C"))
}

// The summary table mirrors report order; severities are not re-sorted.
func TestIssueTableOrderMirrorsReport(t *testing.T) {
	issues := []models.Issue{
		{IssueID: "i1", Severity: models.SeverityLow, Category: models.CategoryColors, Title: "first"},
		{IssueID: "i2", Severity: models.SeverityBlocker, Category: models.CategoryLogo, Title: "second"},
		{IssueID: "i3", Severity: models.SeverityMedium, Category: models.CategoryLayout, Title: "third"},
	}
	doc := buildTestDoc(t, reportSubmission(issues...), &stubEvidence{})

	texts := pageTexts(doc.Pages[0])
	idxLow, idxBlocker, idxMedium := -1, -1, -1
	for i, line := range texts {
		switch line {
		case "LOW":
			idxLow = i
		case "BLOCKER":
			idxBlocker = i
		case "MEDIUM":
			idxMedium = i
		}
	}
	require.NotEqual(t, -1, idxLow)
	require.NotEqual(t, -1, idxBlocker)
	require.NotEqual(t, -1, idxMedium)
	assert.Less(t, idxLow, idxBlocker)
	assert.Less(t, idxBlocker, idxMedium)
}

func TestIssueTableTitleTruncation(t *testing.T) {
	long := strings.Repeat("x", 55)
	doc := buildTestDoc(t, reportSubmission(models.Issue{
		IssueID: "i1", Severity: models.SeverityLow, Category: models.CategoryOther, Title: long,
	}), &stubEvidence{})

	truncated := strings.Repeat("x", 37) + "..."
	assert.True(t, containsText(doc.Pages[0], truncated))
	assert.False(t, containsText(doc.Pages[0], long))
}

func TestIssuePageWithCoordinatesOverlay(t *testing.T) {
	img := &EvidenceImage{Data: []byte("img"), Format: "jpeg", Width: 800, Height: 600}
	evidence := &stubEvidence{images: map[string]*EvidenceImage{"i1": img}}

	issue := models.Issue{
		IssueID:     "i1",
		Severity:    models.SeverityHigh,
		Category:    models.CategoryLogo,
		Title:       "Logo too small",
		Description: "The logo is below the minimum size.",
		Evidence: &models.Evidence{
			Coordinates: &models.Coordinates{X: 0.1, Y: 0.2, W: 0.3, H: 0.1},
		},
	}
	doc := buildTestDoc(t, reportSubmission(issue), evidence)
	require.Len(t, doc.Pages, 2)
	page := doc.Pages[1]

	var imageEl *ImageElement
	var rects []RectElement
	for _, el := range page.Elements {
		switch e := el.(type) {
		case ImageElement:
			imageEl = &e
		case RectElement:
			rects = append(rects, e)
		}
	}
	require.NotNil(t, imageEl)
	assert.Equal(t, evidenceImageWidth, imageEl.Rect.W)
	assert.Equal(t, evidenceImageHeight, imageEl.Rect.H)

	// One stroked overlay box plus one filled label tag.
	var overlay, tag *RectElement
	for i := range rects {
		if rects[i].Fill {
			tag = &rects[i]
		} else {
			overlay = &rects[i]
		}
	}
	require.NotNil(t, overlay)
	require.NotNil(t, tag)

	assert.InDelta(t, imageEl.Rect.X+0.1*evidenceImageWidth, overlay.Rect.X, 1e-9)
	assert.InDelta(t, imageEl.Rect.Y+0.2*evidenceImageHeight, overlay.Rect.Y, 1e-9)
	assert.InDelta(t, 0.3*evidenceImageWidth, overlay.Rect.W, 1e-9)
	assert.InDelta(t, 0.1*evidenceImageHeight, overlay.Rect.H, 1e-9)
	assert.Equal(t, overlay.Rect.Y-4, tag.Rect.Y)
	assert.True(t, containsText(page, violationTag))
}

func TestIssuePageImageWithoutCoordinates(t *testing.T) {
	img := &EvidenceImage{Data: []byte("img"), Format: "jpeg", Width: 800, Height: 600}
	evidence := &stubEvidence{images: map[string]*EvidenceImage{"i1": img}}

	issue := models.Issue{
		IssueID:  "i1",
		Severity: models.SeverityMedium,
		Category: models.CategoryVideo,
		Title:    "Off-brand intro",
		Evidence: &models.Evidence{
			TimestampRange: &models.TimestampRange{StartMS: 5000, EndMS: 7000},
		},
	}
	doc := buildTestDoc(t, reportSubmission(issue), evidence)
	page := doc.Pages[1]

	hasImage := false
	for _, el := range page.Elements {
		switch el.(type) {
		case ImageElement:
			hasImage = true
		case RectElement:
			t.Fatal("no overlay rectangles expected without coordinates")
		}
	}
	assert.True(t, hasImage)
	assert.True(t, containsText(page, "Time: 0:05"))
	assert.False(t, containsText(page, violationTag))
}

func TestIssuePageFallbackText(t *testing.T) {
	evidence := &stubEvidence{fallbacks: map[string]*Fallback{
		"i1": FallbackFor(FallbackUnsupportedHost),
		"i2": FallbackFor(FallbackCaptureForbidden),
	}}
	issues := []models.Issue{
		{IssueID: "i1", Severity: models.SeverityLow, Category: models.CategoryVideo, Title: "A",
			Evidence: &models.Evidence{TimestampRange: &models.TimestampRange{StartMS: 1000, EndMS: 2000}}},
		{IssueID: "i2", Severity: models.SeverityLow, Category: models.CategoryVideo, Title: "B",
			Evidence: &models.Evidence{TimestampRange: &models.TimestampRange{StartMS: 3000, EndMS: 4000}}},
	}
	doc := buildTestDoc(t, reportSubmission(issues...), evidence)

	assert.True(t, containsText(doc.Pages[1], "Screenshots unavailable for this host"))
	// One issue's capture failure never prevents rendering the next.
	assert.True(t, containsText(doc.Pages[2], "Frame capture unavailable"))
}

func TestEvidenceResolvedLazilyInReportOrder(t *testing.T) {
	evidence := &stubEvidence{}
	issues := []models.Issue{
		{IssueID: "i3", Severity: models.SeverityLow, Category: models.CategoryOther, Title: "c"},
		{IssueID: "i1", Severity: models.SeverityLow, Category: models.CategoryOther, Title: "a"},
		{IssueID: "i2", Severity: models.SeverityLow, Category: models.CategoryOther, Title: "b"},
	}
	buildTestDoc(t, reportSubmission(issues...), evidence)
	assert.Equal(t, []string{"i3", "i1", "i2"}, evidence.resolved)
}

func TestRecommendationRendered(t *testing.T) {
	issue := models.Issue{
		IssueID:  "i1",
		Severity: models.SeverityHigh,
		Category: models.CategoryTypography,
		Title:    "Wrong typeface",
		Recommendation: &models.Recommendation{
			Action: "Switch body copy to Inter",
		},
	}
	doc := buildTestDoc(t, reportSubmission(issue), &stubEvidence{})
	assert.True(t, containsText(doc.Pages[1], "Recommendation: Switch body copy to Inter"))
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "0:00"},
		{5000, "0:05"},
		{65000, "1:05"},
		{600000, "10:00"},
		{3599999, "59:59"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTimestamp(tt.ms))
	}
}

func TestBuildDeterministic(t *testing.T) {
	issues := []models.Issue{
		{IssueID: "i1", Severity: models.SeverityLow, Category: models.CategoryColors, Title: "A",
			Description: strings.Repeat("long description ", 30)},
	}
	docA := buildTestDoc(t, reportSubmission(issues...), &stubEvidence{})
	docB := buildTestDoc(t, reportSubmission(issues...), &stubEvidence{})

	require.Equal(t, len(docA.Pages), len(docB.Pages))
	for i := range docA.Pages {
		assert.Equal(t, docA.Pages[i].Elements, docB.Pages[i].Elements)
	}
}
