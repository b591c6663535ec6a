package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/brandguard/brandguard/internal/models"
	"github.com/brandguard/brandguard/internal/render"
)

// WordExporter renders a submission's report as a Word-compatible HTML
// document. Word documents flow rather than paginate, so the exporter walks
// the report directly instead of going through the page model: header, the
// reviewed image if available, score box, then one block per issue.
type WordExporter struct {
	product string
	logger  *zap.Logger
	tmpl    *template.Template
}

// NewWordExporter creates a Word exporter.
func NewWordExporter(product string, logger *zap.Logger) *WordExporter {
	return &WordExporter{
		product: product,
		logger:  logger,
		tmpl:    template.Must(template.New("report").Parse(wordTemplate)),
	}
}

// baseImageSource is the optional capability to expose the export session's
// cached base image. *render.Resolver implements it.
type baseImageSource interface {
	BaseImage(ctx context.Context) *render.EvidenceImage
}

type wordIssueView struct {
	Title          string
	Severity       string
	Category       string
	Timestamp      string
	Description    string
	Recommendation string
	ImageSrc       template.URL
	FallbackText   string
}

type wordReportView struct {
	Product      string
	SubmissionID string
	Version      int
	Status       string
	Generated    string
	BaseImageSrc template.URL
	Score        int
	ScoreColor   string
	Decision     string
	Summary      string
	Issues       []wordIssueView
}

// Export builds the Word-HTML document. Evidence is resolved per issue in
// report order, exactly as the PDF path does.
func (e *WordExporter) Export(ctx context.Context, sub *models.Submission, evidence render.EvidenceSource, generatedAt time.Time) ([]byte, error) {
	if sub.Report == nil {
		return nil, fmt.Errorf("submission %s has no report", sub.ID)
	}
	report := sub.Report

	view := wordReportView{
		Product:      e.product,
		SubmissionID: sub.ID,
		Version:      sub.Version,
		Status:       string(sub.Status),
		Generated:    generatedAt.Format("2006-01-02 15:04:05 MST"),
		Score:        report.Overall.Score,
		ScoreColor:   "#dc2626",
		Decision:     strings.ToUpper(string(report.Overall.Decision)),
		Summary:      report.Overall.Summary,
	}
	if report.Overall.Score > 80 {
		view.ScoreColor = "#16a34a"
	}

	// Image submissions embed the reviewed creative between the header and
	// the score box. The session cache means per-issue evidence below reuses
	// the same fetch.
	if sub.SourceKind == models.SourceImage {
		if src, isBase := evidence.(baseImageSource); isBase {
			if img := src.BaseImage(ctx); img != nil {
				view.BaseImageSrc = dataURI(img)
			}
		}
	}

	for i := range report.Issues {
		issue := &report.Issues[i]
		iv := wordIssueView{
			Title:       issue.Title,
			Severity:    strings.ToUpper(string(issue.Severity)),
			Category:    string(issue.Category),
			Description: issue.Description,
		}
		if issue.Evidence != nil && issue.Evidence.TimestampRange != nil {
			iv.Timestamp = render.FormatTimestamp(issue.Evidence.TimestampRange.StartMS)
		}
		if issue.Recommendation != nil {
			iv.Recommendation = issue.Recommendation.Action
		}

		img, fallback := evidence.Resolve(ctx, issue)
		if img != nil {
			iv.ImageSrc = dataURI(img)
		} else {
			iv.FallbackText = fallback.Message
		}
		view.Issues = append(view.Issues, iv)
	}

	var buf bytes.Buffer
	if err := e.tmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("failed to render document: %w", err)
	}

	e.logger.Debug("Word export complete",
		zap.String("submission_id", sub.ID),
		zap.Int("issues", len(view.Issues)),
		zap.Int("bytes", buf.Len()))

	return buf.Bytes(), nil
}

// dataURI embeds an evidence image inline. Word reads data URIs from HTML
// documents, so no external image files are needed.
func dataURI(img *render.EvidenceImage) template.URL {
	encoded := base64.StdEncoding.EncodeToString(img.Data)
	return template.URL(fmt.Sprintf("data:image/%s;base64,%s", img.Format, encoded))
}

const wordTemplate = `<html xmlns:o="urn:schemas-microsoft-com:office:office" xmlns:w="urn:schemas-microsoft-com:office:word">
<head>
<meta charset="utf-8">
<title>{{.Product}} Compliance Report</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; color: #111827; }
h1 { color: #4f46e5; }
h2 { color: #4f46e5; margin-top: 32px; }
.meta { color: #646464; font-size: 12px; }
.score-box { background: #f3f4f6; padding: 16px; margin: 16px 0; }
.score { font-size: 28px; font-weight: bold; }
.issue-meta { color: #646464; font-size: 11px; }
.recommendation { color: #16a34a; font-style: italic; }
.fallback { color: #969696; font-style: italic; }
table { border-collapse: collapse; width: 100%; }
th, td { border-bottom: 1px solid #e5e7eb; padding: 6px; text-align: left; font-size: 12px; }
th { background: #e5e7eb; }
</style>
</head>
<body>
<h1>{{.Product}} Compliance Report</h1>
<p class="meta">Submission ID: {{.SubmissionID}} &nbsp; Version: {{.Version}}<br>
Generated: {{.Generated}} &nbsp; Status: {{.Status}}</p>

{{if .BaseImageSrc}}<p><img src="{{.BaseImageSrc}}" width="520"></p>{{end}}

<div class="score-box">
<div>Overall Score</div>
<div class="score" style="color: {{.ScoreColor}}">{{.Score}}/100</div>
<div>Decision: {{.Decision}}</div>
</div>

<h2>Executive Summary</h2>
<p>{{.Summary}}</p>

<h2>Violations Summary</h2>
<table>
<tr><th>SEVERITY</th><th>CATEGORY</th><th>ISSUE</th></tr>
{{range .Issues}}<tr><td>{{.Severity}}</td><td>{{.Category}}</td><td>{{.Title}}</td></tr>
{{end}}</table>

{{range .Issues}}
<h2>Issue: {{.Title}}</h2>
<p class="issue-meta">Severity: {{.Severity}} | Category: {{.Category}}{{if .Timestamp}} | Time: {{.Timestamp}}{{end}}</p>
<p>{{.Description}}</p>
{{if .Recommendation}}<p class="recommendation">Recommendation: {{.Recommendation}}</p>{{end}}
{{if .ImageSrc}}<p><img src="{{.ImageSrc}}" width="480"></p>{{else}}<p class="fallback">({{.FallbackText}})</p>{{end}}
{{end}}
</body>
</html>
`
