package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseReport decodes and validates a raw analyzer response into a Report.
// This is the single typed validation boundary for analysis output: a report
// that fails here is treated as an analysis failure upstream, and the renderer
// never re-validates what passes. Coordinates are deliberately not range
// checked; downstream rendering reproduces the analyzer's literal output.
func ParseReport(raw []byte) (*Report, error) {
	// Models sometimes wrap JSON in markdown fences despite instructions.
	cleaned := strings.TrimSpace(string(raw))
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var report Report
	decoder := json.NewDecoder(strings.NewReader(cleaned))
	if err := decoder.Decode(&report); err != nil {
		return nil, fmt.Errorf("malformed report JSON: %w", err)
	}

	if err := report.Validate(); err != nil {
		return nil, err
	}
	return &report, nil
}

// Validate checks the report against the analyzer contract.
func (r *Report) Validate() error {
	if r.Overall.Score < 0 || r.Overall.Score > 100 {
		return fmt.Errorf("overall.score must be in [0,100], got %d", r.Overall.Score)
	}
	if r.Overall.Decision != DecisionPass && r.Overall.Decision != DecisionNeedsChanges {
		return fmt.Errorf("overall.decision must be %q or %q, got %q",
			DecisionPass, DecisionNeedsChanges, r.Overall.Decision)
	}

	seen := make(map[string]bool, len(r.Issues))
	for i := range r.Issues {
		if err := r.Issues[i].Validate(); err != nil {
			return fmt.Errorf("issues[%d]: %w", i, err)
		}
		if seen[r.Issues[i].IssueID] {
			return fmt.Errorf("issues[%d]: duplicate issue_id %q", i, r.Issues[i].IssueID)
		}
		seen[r.Issues[i].IssueID] = true
	}

	return nil
}

// Validate checks a single issue against the analyzer contract.
func (iss *Issue) Validate() error {
	if iss.IssueID == "" {
		return fmt.Errorf("issue_id is required")
	}
	if !iss.Category.IsValid() {
		return fmt.Errorf("unknown category %q", iss.Category)
	}
	if !iss.Severity.IsValid() {
		return fmt.Errorf("unknown severity %q", iss.Severity)
	}
	if iss.Confidence < 0 || iss.Confidence > 1 {
		return fmt.Errorf("confidence must be in [0,1], got %g", iss.Confidence)
	}
	if iss.Evidence != nil && iss.Evidence.TimestampRange != nil {
		tr := iss.Evidence.TimestampRange
		if tr.StartMS < 0 {
			return fmt.Errorf("timestamp_range.start_ms must be >= 0, got %d", tr.StartMS)
		}
		if tr.EndMS < tr.StartMS {
			return fmt.Errorf("timestamp_range.end_ms %d precedes start_ms %d", tr.EndMS, tr.StartMS)
		}
	}
	return nil
}
