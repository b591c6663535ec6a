package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"

	"github.com/brandguard/brandguard/internal/models"
	"github.com/brandguard/brandguard/internal/render"
)

const pdfFont = "Helvetica"

// PDFExporter renders a submission's report into a paginated PDF. Text
// wrapping is measured with the PDF engine's own font metrics, so the page
// model and the drawn output always agree.
type PDFExporter struct {
	cfg     render.PageConfig
	product string
	logger  *zap.Logger
}

// NewPDFExporter creates a PDF exporter with A4 geometry.
func NewPDFExporter(product string, logger *zap.Logger) *PDFExporter {
	return &PDFExporter{
		cfg:     render.DefaultPageConfig(),
		product: product,
		logger:  logger,
	}
}

// pdfMeasurer wraps text using gofpdf's width metrics for the active font.
type pdfMeasurer struct {
	pdf *gofpdf.Fpdf
}

func (m pdfMeasurer) WrapText(text string, width, fontSize float64) []string {
	m.pdf.SetFont(pdfFont, "", fontSize)
	lines := m.pdf.SplitText(text, width)
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

// Export paginates the submission's report and draws it. The output is
// deterministic for a fixed generatedAt: exporting the same submission twice
// yields identical bytes.
func (e *PDFExporter) Export(ctx context.Context, sub *models.Submission, evidence render.EvidenceSource, generatedAt time.Time) ([]byte, error) {
	if sub.Report == nil {
		return nil, fmt.Errorf("submission %s has no report", sub.ID)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(generatedAt)
	pdf.SetTitle(fmt.Sprintf("%s Compliance Report", e.product), true)
	pdf.SetAutoPageBreak(false, 0)

	paginator := render.NewPaginator(e.cfg, pdfMeasurer{pdf: pdf})
	doc := paginator.Build(ctx, sub, evidence, e.product, generatedAt)

	for _, page := range doc.Pages {
		pdf.AddPage()
		for _, el := range page.Elements {
			e.draw(pdf, el)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}

	e.logger.Debug("PDF export complete",
		zap.String("submission_id", sub.ID),
		zap.Int("pages", len(doc.Pages)),
		zap.Int("bytes", buf.Len()))

	return buf.Bytes(), nil
}

func (e *PDFExporter) draw(pdf *gofpdf.Fpdf, el render.Element) {
	switch v := el.(type) {
	case render.TextElement:
		style := ""
		if v.Style.Bold {
			style += "B"
		}
		if v.Style.Italic {
			style += "I"
		}
		pdf.SetFont(pdfFont, style, v.Style.Size)
		pdf.SetTextColor(v.Style.Color.R, v.Style.Color.G, v.Style.Color.B)
		y := v.Y
		for _, line := range v.Lines {
			pdf.Text(v.X, y, line)
			y += v.LineHeight
		}

	case render.RectElement:
		if v.Fill {
			pdf.SetFillColor(v.Color.R, v.Color.G, v.Color.B)
			pdf.Rect(v.Rect.X, v.Rect.Y, v.Rect.W, v.Rect.H, "F")
			return
		}
		pdf.SetDrawColor(v.Color.R, v.Color.G, v.Color.B)
		if v.LineWidth > 0 {
			pdf.SetLineWidth(v.LineWidth)
		}
		pdf.Rect(v.Rect.X, v.Rect.Y, v.Rect.W, v.Rect.H, "D")

	case render.LineElement:
		pdf.SetDrawColor(v.Color.R, v.Color.G, v.Color.B)
		pdf.SetLineWidth(0.2)
		pdf.Line(v.X1, v.Y1, v.X2, v.Y2)

	case render.ImageElement:
		opts := gofpdf.ImageOptions{ImageType: strings.ToUpper(v.Image.Format)}
		if pdf.GetImageInfo(v.Name) == nil {
			pdf.RegisterImageOptionsReader(v.Name, opts, bytes.NewReader(v.Image.Data))
		}
		pdf.ImageOptions(v.Name, v.Rect.X, v.Rect.Y, v.Rect.W, v.Rect.H, false, opts, 0, "")
	}
}
