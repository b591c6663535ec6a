package export

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/brandguard/brandguard/internal/models"
	"github.com/brandguard/brandguard/internal/render"
	"github.com/brandguard/brandguard/pkg/utils"
)

var exportClock = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type stubEvidence struct {
	img      *render.EvidenceImage
	fallback *render.Fallback
}

func (s *stubEvidence) Resolve(ctx context.Context, issue *models.Issue) (*render.EvidenceImage, *render.Fallback) {
	return s.img, s.fallback
}

func (s *stubEvidence) BaseImage(ctx context.Context) *render.EvidenceImage {
	return s.img
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func exportSubmission() *models.Submission {
	return &models.Submission{
		ID:         "sub-9",
		Version:    2,
		SourceKind: models.SourceImage,
		Status:     models.StatusChangesRequested,
		Report: &models.Report{
			Overall: models.Overall{
				Score:    58,
				Decision: models.DecisionNeedsChanges,
				Summary:  "Logo and color violations present.",
			},
			Issues: []models.Issue{
				{
					IssueID:     "issue-1",
					Severity:    models.SeverityHigh,
					Category:    models.CategoryLogo,
					Title:       "Logo below minimum size",
					Description: "The logo renders at half the permitted minimum.",
					Confidence:  0.92,
					Recommendation: &models.Recommendation{
						Action: "Scale the logo to at least 48px height",
					},
					Evidence: &models.Evidence{
						Coordinates: &models.Coordinates{X: 0.1, Y: 0.2, W: 0.3, H: 0.1},
					},
				},
				{
					IssueID:     "issue-2",
					Severity:    models.SeverityMedium,
					Category:    models.CategoryVideo,
					Title:       "Off-brand intro frame",
					Description: "The opening frame uses an unapproved background.",
					Confidence:  0.7,
					Evidence: &models.Evidence{
						TimestampRange: &models.TimestampRange{StartMS: 5000, EndMS: 8000},
					},
				},
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"pdf", FormatPDF, false},
		{"PDF", FormatPDF, false},
		{"doc", FormatDoc, false},
		{"xlsx", FormatExcel, false},
		{"docx", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got)
	}
}

func TestFilename(t *testing.T) {
	sub := &models.Submission{ID: "abc"}
	assert.Equal(t, "BrandGuard-Report-abc.pdf", Filename("BrandGuard", sub, FormatPDF))
	assert.Equal(t, "BrandGuard-Report-abc.doc", Filename("BrandGuard", sub, FormatDoc))
	assert.Equal(t, "BrandGuard-Report-abc.xlsx", Filename("BrandGuard", sub, FormatExcel))
}

func TestPDFExportDeterministic(t *testing.T) {
	exporter := NewPDFExporter("BrandGuard", utils.NewTestLogger())
	sub := exportSubmission()
	evidence := &stubEvidence{img: &render.EvidenceImage{
		Data: testPNG(t, 8, 4), Format: "png", Width: 8, Height: 4,
	}}

	first, err := exporter.Export(context.Background(), sub, evidence, exportClock)
	require.NoError(t, err)
	second, err := exporter.Export(context.Background(), sub, evidence, exportClock)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(first, []byte("%PDF")))
	assert.Equal(t, first, second)
}

func TestPDFExportRequiresReport(t *testing.T) {
	exporter := NewPDFExporter("BrandGuard", utils.NewTestLogger())
	_, err := exporter.Export(context.Background(), &models.Submission{ID: "x"}, &stubEvidence{}, exportClock)
	assert.Error(t, err)
}

func TestWordExportContent(t *testing.T) {
	exporter := NewWordExporter("BrandGuard", utils.NewTestLogger())
	sub := exportSubmission()
	evidence := &stubEvidence{img: &render.EvidenceImage{
		Data: []byte("rawimg"), Format: "jpeg", Width: 8, Height: 4,
	}}

	out, err := exporter.Export(context.Background(), sub, evidence, exportClock)
	require.NoError(t, err)
	doc := string(out)

	assert.Contains(t, doc, "BrandGuard Compliance Report")
	assert.Contains(t, doc, "Submission ID: sub-9")
	assert.Contains(t, doc, "58/100")
	assert.Contains(t, doc, "Decision: NEEDS_CHANGES")
	assert.Contains(t, doc, "Issue: Logo below minimum size")
	assert.Contains(t, doc, "Time: 0:05")
	assert.Contains(t, doc, "Recommendation: Scale the logo to at least 48px height")
	assert.Contains(t, doc, "data:image/jpeg;base64,")

	// Block order matches the PDF layout.
	idxHeader := strings.Index(doc, "Compliance Report")
	idxScore := strings.Index(doc, "Overall Score")
	idxSummary := strings.Index(doc, "Executive Summary")
	idxIssue := strings.Index(doc, "Issue: Logo below minimum size")
	assert.Less(t, idxHeader, idxScore)
	assert.Less(t, idxScore, idxSummary)
	assert.Less(t, idxSummary, idxIssue)
}

func TestWordExportBaseImagePlacement(t *testing.T) {
	exporter := NewWordExporter("BrandGuard", utils.NewTestLogger())
	evidence := &stubEvidence{img: &render.EvidenceImage{
		Data: []byte("rawimg"), Format: "png", Width: 8, Height: 4,
	}}

	sub := exportSubmission()
	out, err := exporter.Export(context.Background(), sub, evidence, exportClock)
	require.NoError(t, err)
	doc := string(out)

	// Image submissions show the reviewed creative before the score box.
	idxImg := strings.Index(doc, "<img")
	idxScore := strings.Index(doc, "Overall Score")
	require.NotEqual(t, -1, idxImg)
	assert.Less(t, idxImg, idxScore)

	// Video submissions have no single base frame to embed up top.
	sub = exportSubmission()
	sub.SourceKind = models.SourceVideo
	out, err = exporter.Export(context.Background(), sub, evidence, exportClock)
	require.NoError(t, err)
	doc = string(out)

	idxImg = strings.Index(doc, "<img")
	idxScore = strings.Index(doc, "Overall Score")
	require.NotEqual(t, -1, idxImg)
	assert.Greater(t, idxImg, idxScore)
}

func TestWordExportFallbackText(t *testing.T) {
	exporter := NewWordExporter("BrandGuard", utils.NewTestLogger())
	sub := exportSubmission()
	evidence := &stubEvidence{fallback: render.FallbackFor(render.FallbackUnsupportedHost)}

	out, err := exporter.Export(context.Background(), sub, evidence, exportClock)
	require.NoError(t, err)

	assert.Contains(t, string(out), "Screenshots unavailable for this host")
	assert.NotContains(t, string(out), "data:image/")
}

func TestWordExportEscapesReportText(t *testing.T) {
	exporter := NewWordExporter("BrandGuard", utils.NewTestLogger())
	sub := exportSubmission()
	sub.Report.Issues[0].Description = `Uses <script>alert("x")</script> in copy`

	out, err := exporter.Export(context.Background(), sub, &stubEvidence{fallback: render.FallbackFor(render.FallbackNoEvidence)}, exportClock)
	require.NoError(t, err)

	assert.NotContains(t, string(out), "<script>alert")
}

func TestExcelExportRoundTrip(t *testing.T) {
	exporter := NewExcelExporter("BrandGuard", utils.NewTestLogger())
	sub := exportSubmission()

	out, err := exporter.Export(sub, exportClock)
	require.NoError(t, err)

	file, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer file.Close()

	assert.Equal(t, []string{"Violations"}, file.GetSheetList())

	header, err := file.GetCellValue(violationsSheet, cellProduct)
	require.NoError(t, err)
	assert.Equal(t, "BrandGuard Compliance Report - generated 2025-06-01 12:00:00 UTC", header)

	sev, err := file.GetCellValue(violationsSheet, "B6")
	require.NoError(t, err)
	assert.Equal(t, "HIGH", sev)

	title, err := file.GetCellValue(violationsSheet, "D6")
	require.NoError(t, err)
	assert.Equal(t, "Logo below minimum size", title)

	ts, err := file.GetCellValue(violationsSheet, "G7")
	require.NoError(t, err)
	assert.Equal(t, "0:05", ts)

	rec, err := file.GetCellValue(violationsSheet, "F6")
	require.NoError(t, err)
	assert.Equal(t, "Scale the logo to at least 48px height", rec)
}
