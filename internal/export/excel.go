package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/brandguard/brandguard/internal/models"
	"github.com/brandguard/brandguard/internal/render"
)

// Worksheet layout.
const (
	violationsSheet = "Violations"

	// Header section (rows 1-4)
	cellProduct    = "A1"
	cellSubmission = "A2"
	cellScore      = "A3"
	cellDecision   = "B3"

	// Column headers on row 5, data rows from row 6.
	headerRow    = 5
	dataRowStart = 6
)

var violationColumns = []string{"Issue ID", "Severity", "Category", "Title", "Description", "Recommendation", "Time", "Confidence"}

// ExcelExporter writes a submission's violations into a spreadsheet for
// reviewers who track fixes outside the app.
type ExcelExporter struct {
	product string
	logger  *zap.Logger
}

// NewExcelExporter creates an Excel exporter.
func NewExcelExporter(product string, logger *zap.Logger) *ExcelExporter {
	return &ExcelExporter{product: product, logger: logger}
}

// Export builds the workbook in memory.
func (e *ExcelExporter) Export(sub *models.Submission, generatedAt time.Time) ([]byte, error) {
	if sub.Report == nil {
		return nil, fmt.Errorf("submission %s has no report", sub.ID)
	}
	report := sub.Report

	file := excelize.NewFile()
	defer file.Close()

	sheet, err := file.NewSheet(violationsSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	file.SetActiveSheet(sheet)
	if err := file.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	if err := e.fillHeaderSection(file, sub, generatedAt); err != nil {
		return nil, fmt.Errorf("failed to fill header: %w", err)
	}
	if err := e.fillIssueRows(file, report.Issues); err != nil {
		return nil, fmt.Errorf("failed to fill issues: %w", err)
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Debug("Excel export complete",
		zap.String("submission_id", sub.ID),
		zap.Int("issue_count", len(report.Issues)))

	return buf.Bytes(), nil
}

func (e *ExcelExporter) fillHeaderSection(file *excelize.File, sub *models.Submission, generatedAt time.Time) error {
	report := sub.Report

	title := fmt.Sprintf("%s Compliance Report - generated %s", e.product, generatedAt.Format("2006-01-02 15:04:05 MST"))
	if err := file.SetCellValue(violationsSheet, cellProduct, title); err != nil {
		return fmt.Errorf("failed to set title: %w", err)
	}
	meta := fmt.Sprintf("Submission %s (version %d)", sub.ID, sub.Version)
	if err := file.SetCellValue(violationsSheet, cellSubmission, meta); err != nil {
		return fmt.Errorf("failed to set submission: %w", err)
	}
	if err := file.SetCellValue(violationsSheet, cellScore, fmt.Sprintf("Score: %d/100", report.Overall.Score)); err != nil {
		return fmt.Errorf("failed to set score: %w", err)
	}
	if err := file.SetCellValue(violationsSheet, cellDecision, fmt.Sprintf("Decision: %s", strings.ToUpper(string(report.Overall.Decision)))); err != nil {
		return fmt.Errorf("failed to set decision: %w", err)
	}

	for i, name := range violationColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, headerRow)
		if err != nil {
			return fmt.Errorf("failed to build header cell: %w", err)
		}
		if err := file.SetCellValue(violationsSheet, cell, name); err != nil {
			return fmt.Errorf("failed to set header %s: %w", name, err)
		}
	}
	return nil
}

func (e *ExcelExporter) fillIssueRows(file *excelize.File, issues []models.Issue) error {
	for i := range issues {
		issue := &issues[i]
		row := dataRowStart + i

		values := []interface{}{
			issue.IssueID,
			strings.ToUpper(string(issue.Severity)),
			string(issue.Category),
			issue.Title,
			issue.Description,
			"",
			"",
			issue.Confidence,
		}
		if issue.Recommendation != nil {
			values[5] = issue.Recommendation.Action
		}
		if issue.Evidence != nil && issue.Evidence.TimestampRange != nil {
			values[6] = render.FormatTimestamp(issue.Evidence.TimestampRange.StartMS)
		}

		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return fmt.Errorf("failed to build cell at row %d: %w", row, err)
			}
			if err := file.SetCellValue(violationsSheet, cell, v); err != nil {
				return fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}
	return nil
}
