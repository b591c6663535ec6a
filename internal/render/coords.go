package render

import "github.com/brandguard/brandguard/internal/models"

// Rect is an absolute rectangle in the exporter's layout units.
type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

// MapToRect converts a normalized bounding box into absolute coordinates
// within the target rectangle. The mapping is purely linear: no clamping is
// performed, so out-of-range boxes are reproduced faithfully as the analyzer
// emitted them, and zero-width or zero-height boxes map to degenerate
// rectangles rather than being suppressed.
func MapToRect(box models.Coordinates, target Rect) Rect {
	return Rect{
		X: target.X + box.X*target.W,
		Y: target.Y + box.Y*target.H,
		W: box.W * target.W,
		H: box.H * target.H,
	}
}
