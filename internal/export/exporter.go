package export

import (
	"fmt"
	"strings"

	"github.com/brandguard/brandguard/internal/models"
)

// Format selects the export artifact type.
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatDoc   Format = "doc"
	FormatExcel Format = "xlsx"
)

// ParseFormat maps a request parameter to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatPDF:
		return FormatPDF, nil
	case FormatDoc:
		return FormatDoc, nil
	case FormatExcel:
		return FormatExcel, nil
	}
	return "", fmt.Errorf("unsupported export format: %q", s)
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatDoc:
		return "application/msword"
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}

// Filename builds the download filename for a submission export.
func Filename(product string, sub *models.Submission, format Format) string {
	return fmt.Sprintf("%s-Report-%s.%s", product, sub.ID, format)
}
