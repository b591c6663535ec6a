package render

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brandguard/brandguard/internal/models"
)

// TextMeasurer wraps text to a width at a font size, returning the resulting
// lines. Block heights are measured by counting wrapped lines, so pagination
// is deterministic for a given measurer.
type TextMeasurer interface {
	WrapText(text string, width, fontSize float64) []string
}

// EvidenceSource yields evidence for issues as they are rendered. *Resolver
// is the production implementation.
type EvidenceSource interface {
	Resolve(ctx context.Context, issue *models.Issue) (*EvidenceImage, *Fallback)
}

// PageConfig declares the fixed page geometry, in the exporter's layout units.
type PageConfig struct {
	Width  float64
	Height float64
	Margin float64
}

// DefaultPageConfig is A4 portrait in millimeters.
func DefaultPageConfig() PageConfig {
	return PageConfig{Width: 210, Height: 297, Margin: 20}
}

const (
	// violationTag is the fixed marker rendered in the overlay label.
	violationTag = "VIOLATION"

	// titleBudget is the character budget for summary table titles.
	titleBudget = 40

	// Evidence images render at a fixed size within the issue page.
	evidenceImageWidth  = 120.0
	evidenceImageHeight = 80.0

	bodyLineHeight = 5.0
)

// FormatTimestamp renders a millisecond offset as M:SS.
func FormatTimestamp(ms int64) string {
	totalSeconds := ms / 1000
	return fmt.Sprintf("%d:%02d", totalSeconds/60, totalSeconds%60)
}

// TruncateTitle applies the summary table's character budget, appending an
// ellipsis marker when the title is cut.
func TruncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= titleBudget {
		return title
	}
	return string(runes[:titleBudget-3]) + "..."
}

// Paginator lays out a submission's report across fixed-size pages. The
// layout policy is fixed and deterministic: same inputs, same pages.
type Paginator struct {
	cfg      PageConfig
	measurer TextMeasurer

	doc  *Document
	page *Page
	y    float64
}

// NewPaginator creates a paginator with the given geometry and measurer.
func NewPaginator(cfg PageConfig, measurer TextMeasurer) *Paginator {
	return &Paginator{cfg: cfg, measurer: measurer}
}

// Build composes the full paginated document for a submission whose report is
// attached. Evidence is resolved lazily, one issue at a time, in report
// order; a failed resolution renders that issue's fallback text and the rest
// of the document is unaffected.
func (p *Paginator) Build(ctx context.Context, sub *models.Submission, evidence EvidenceSource, product string, generatedAt time.Time) *Document {
	p.doc = &Document{
		Product:     product,
		Submission:  sub,
		GeneratedAt: generatedAt,
		PageWidth:   p.cfg.Width,
		PageHeight:  p.cfg.Height,
	}
	p.newPage()

	report := sub.Report
	p.buildTitleBlock(sub, product, generatedAt)
	p.buildScoreBox(report)
	p.buildSummary(report)
	p.buildIssueTable(report)

	for i := range report.Issues {
		p.buildIssuePage(ctx, &report.Issues[i], evidence)
	}

	return p.doc
}

func (p *Paginator) newPage() {
	p.page = &Page{}
	p.doc.Pages = append(p.doc.Pages, p.page)
	p.y = p.cfg.Margin
}

// ensureSpace starts a new page when the next block's measured height does
// not fit above the bottom margin. Only the flowing page-1 content uses it;
// issue detail pages always start fresh.
func (p *Paginator) ensureSpace(height float64) {
	if p.y+height > p.cfg.Height-p.cfg.Margin {
		p.newPage()
	}
}

func (p *Paginator) text(x, y float64, style TextStyle, lines ...string) {
	p.page.Elements = append(p.page.Elements, TextElement{
		X:          x,
		Y:          y,
		Lines:      lines,
		LineHeight: bodyLineHeight,
		Style:      style,
	})
}

func (p *Paginator) contentWidth() float64 {
	return p.cfg.Width - 2*p.cfg.Margin
}

func (p *Paginator) buildTitleBlock(sub *models.Submission, product string, generatedAt time.Time) {
	m := p.cfg.Margin

	p.text(m, p.y, TextStyle{Size: 26, Bold: true, Color: colorIndigo},
		fmt.Sprintf("%s Compliance Report", product))
	p.y += 15

	meta := TextStyle{Size: 12, Color: colorMidGray}
	p.text(m, p.y, meta, fmt.Sprintf("Submission ID: %s", sub.ID))
	p.text(120, p.y, meta, fmt.Sprintf("Version: %d", sub.Version))
	p.y += 8
	p.text(m, p.y, meta, fmt.Sprintf("Generated: %s", generatedAt.Format("2006-01-02 15:04:05 MST")))
	p.text(120, p.y, meta, fmt.Sprintf("Status: %s", sub.Status))
	p.y += 20
}

func (p *Paginator) buildScoreBox(report *models.Report) {
	p.ensureSpace(45)
	m := p.cfg.Margin

	p.page.Elements = append(p.page.Elements, RectElement{
		Rect:  Rect{X: m, Y: p.y, W: p.contentWidth(), H: 30},
		Color: colorBoxFill,
		Fill:  true,
	})
	p.text(m+10, p.y+12, TextStyle{Size: 14, Color: colorBlack}, "Overall Score")

	scoreColor := colorRed
	if report.Overall.Score > 80 {
		scoreColor = colorGreen
	}
	p.text(m+10, p.y+24, TextStyle{Size: 22, Color: scoreColor},
		fmt.Sprintf("%d/100", report.Overall.Score))

	p.text(100, p.y+20, TextStyle{Size: 12, Color: colorDarkGray},
		fmt.Sprintf("Decision: %s", strings.ToUpper(string(report.Overall.Decision))))
	p.y += 45
}

func (p *Paginator) buildSummary(report *models.Report) {
	m := p.cfg.Margin

	summary := report.Overall.Summary
	if summary == "" {
		summary = "No summary."
	}
	lines := p.measurer.WrapText(summary, p.contentWidth(), 11)

	p.ensureSpace(8 + float64(len(lines))*bodyLineHeight + 15)
	p.text(m, p.y, TextStyle{Size: 14, Bold: true, Color: colorBlack}, "Executive Summary")
	p.y += 8
	p.text(m, p.y, TextStyle{Size: 11, Color: colorBlack}, lines...)
	p.y += float64(len(lines))*bodyLineHeight + 15
}

// buildIssueTable renders one row per issue, in report order. Table order
// mirrors the report; it is never re-sorted by severity.
func (p *Paginator) buildIssueTable(report *models.Report) {
	m := p.cfg.Margin

	p.ensureSpace(30)
	p.text(m, p.y, TextStyle{Size: 14, Bold: true, Color: colorBlack}, "Violations Summary")
	p.y += 10

	p.page.Elements = append(p.page.Elements, RectElement{
		Rect:  Rect{X: m, Y: p.y, W: p.contentWidth(), H: 10},
		Color: colorTableFill,
		Fill:  true,
	})
	header := TextStyle{Size: 10, Bold: true, Color: colorBlack}
	p.text(m+5, p.y+7, header, "SEVERITY")
	p.text(60, p.y+7, header, "CATEGORY")
	p.text(100, p.y+7, header, "ISSUE")
	p.y += 10

	row := TextStyle{Size: 10, Color: colorBlack}
	for i := range report.Issues {
		issue := &report.Issues[i]
		p.ensureSpace(10)

		p.text(m+5, p.y+7, row, strings.ToUpper(string(issue.Severity)))
		p.text(60, p.y+7, row, string(issue.Category))
		p.text(100, p.y+7, row, TruncateTitle(issue.Title))

		p.page.Elements = append(p.page.Elements, LineElement{
			X1: m, Y1: p.y + 10,
			X2: p.cfg.Width - m, Y2: p.y + 10,
			Color: colorTableFill,
		})
		p.y += 10
	}
}

// buildIssuePage lays out one issue's detail page. Each issue always starts a
// new page regardless of remaining space.
func (p *Paginator) buildIssuePage(ctx context.Context, issue *models.Issue, evidence EvidenceSource) {
	p.newPage()
	m := p.cfg.Margin

	p.text(m, p.y, TextStyle{Size: 16, Bold: true, Color: colorIndigo},
		fmt.Sprintf("Issue: %s", issue.Title))
	p.y += 10

	meta := fmt.Sprintf("Severity: %s | Category: %s",
		strings.ToUpper(string(issue.Severity)), issue.Category)
	if issue.Evidence != nil && issue.Evidence.TimestampRange != nil {
		meta += fmt.Sprintf(" | Time: %s", FormatTimestamp(issue.Evidence.TimestampRange.StartMS))
	}
	p.text(m, p.y, TextStyle{Size: 10, Color: colorMidGray}, meta)
	p.y += 15

	descLines := p.measurer.WrapText(issue.Description, p.contentWidth(), 11)
	p.text(m, p.y, TextStyle{Size: 11, Color: colorBlack}, descLines...)
	p.y += float64(len(descLines))*bodyLineHeight + 10

	if issue.Recommendation != nil {
		recLines := p.measurer.WrapText(
			fmt.Sprintf("Recommendation: %s", issue.Recommendation.Action),
			p.contentWidth(), 11)
		p.text(m, p.y, TextStyle{Size: 11, Italic: true, Color: colorGreen}, recLines...)
		p.y += float64(len(recLines))*bodyLineHeight + 10
	}

	p.buildEvidenceBlock(ctx, issue, evidence)
}

func (p *Paginator) buildEvidenceBlock(ctx context.Context, issue *models.Issue, evidence EvidenceSource) {
	m := p.cfg.Margin

	img, fallback := evidence.Resolve(ctx, issue)
	if img == nil {
		p.text(m, p.y+10, TextStyle{Size: 11, Italic: true, Color: colorFaintGray},
			fmt.Sprintf("(%s)", fallback.Message))
		return
	}

	frame := Rect{X: m, Y: p.y, W: evidenceImageWidth, H: evidenceImageHeight}
	p.page.Elements = append(p.page.Elements, ImageElement{
		Image: img,
		Rect:  frame,
		Name:  fmt.Sprintf("evidence-%s", issue.IssueID),
	})

	if issue.Evidence == nil || issue.Evidence.Coordinates == nil {
		return
	}

	overlay := MapToRect(*issue.Evidence.Coordinates, frame)
	p.page.Elements = append(p.page.Elements, RectElement{
		Rect:      overlay,
		Color:     colorRed,
		LineWidth: 1,
	})
	p.page.Elements = append(p.page.Elements, RectElement{
		Rect:  Rect{X: overlay.X, Y: overlay.Y - 4, W: 30, H: 4},
		Color: colorRed,
		Fill:  true,
	})
	p.text(overlay.X+1, overlay.Y-1, TextStyle{Size: 6, Color: colorWhite}, violationTag)
}
