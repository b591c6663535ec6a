package render

import (
	"time"

	"github.com/brandguard/brandguard/internal/models"
)

// RGB is an 8-bit color triple.
type RGB struct {
	R, G, B int
}

// Palette used across the rendered report.
var (
	colorIndigo    = RGB{R: 79, G: 70, B: 229}
	colorRed       = RGB{R: 220, G: 38, B: 38}
	colorGreen     = RGB{R: 22, G: 163, B: 74}
	colorBlack     = RGB{}
	colorWhite     = RGB{R: 255, G: 255, B: 255}
	colorMidGray   = RGB{R: 100, G: 100, B: 100}
	colorDarkGray  = RGB{R: 60, G: 60, B: 60}
	colorFaintGray = RGB{R: 150, G: 150, B: 150}
	colorBoxFill   = RGB{R: 243, G: 244, B: 246}
	colorTableFill = RGB{R: 229, G: 231, B: 235}
)

// TextStyle describes how a text element is drawn.
type TextStyle struct {
	Size   float64
	Bold   bool
	Italic bool
	Color  RGB
}

// Element is the sealed interface for drawable page content. Exporters
// consume elements as primitives; all layout decisions are already made.
type Element interface {
	isElement()
}

func (TextElement) isElement()  {}
func (RectElement) isElement()  {}
func (LineElement) isElement()  {}
func (ImageElement) isElement() {}

// TextElement is one or more lines of text. Y is the baseline of the first
// line; subsequent lines advance by LineHeight.
type TextElement struct {
	X          float64
	Y          float64
	Lines      []string
	LineHeight float64
	Style      TextStyle
}

// RectElement is a stroked or filled rectangle.
type RectElement struct {
	Rect      Rect
	Color     RGB
	Fill      bool
	LineWidth float64
}

// LineElement is a straight line segment.
type LineElement struct {
	X1, Y1 float64
	X2, Y2 float64
	Color  RGB
}

// ImageElement places a resolved evidence image into a layout rectangle.
type ImageElement struct {
	Image *EvidenceImage
	Rect  Rect
	// Name uniquely identifies the image within the document so exporters
	// can register it once.
	Name string
}

// Page is one fixed-size page of laid-out elements.
type Page struct {
	Elements []Element
}

// Document is the ephemeral paginated report model, produced fresh per export
// call and never persisted.
type Document struct {
	Product     string
	Submission  *models.Submission
	GeneratedAt time.Time
	PageWidth   float64
	PageHeight  float64
	Pages       []*Page
}
