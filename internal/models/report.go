package models

// Severity classifies how badly an issue violates the brand ruleset.
// Ordering: blocker > high > medium > low.
type Severity string

const (
	SeverityBlocker Severity = "blocker"
	SeverityHigh    Severity = "high"
	SeverityMedium  Severity = "medium"
	SeverityLow     Severity = "low"
)

var severityRank = map[Severity]int{
	SeverityBlocker: 4,
	SeverityHigh:    3,
	SeverityMedium:  2,
	SeverityLow:     1,
}

// IsValid returns true if the severity is a known value.
func (s Severity) IsValid() bool {
	_, ok := severityRank[s]
	return ok
}

// Rank returns the numeric ordering of the severity (higher is worse).
func (s Severity) Rank() int {
	return severityRank[s]
}

// Category identifies which part of the brand ruleset an issue falls under.
type Category string

const (
	CategoryColors     Category = "colors"
	CategoryTypography Category = "typography"
	CategoryLayout     Category = "layout"
	CategoryLogo       Category = "logo"
	CategoryAudio      Category = "audio"
	CategoryVideo      Category = "video"
	CategoryOther      Category = "other"
)

var validCategories = map[Category]bool{
	CategoryColors:     true,
	CategoryTypography: true,
	CategoryLayout:     true,
	CategoryLogo:       true,
	CategoryAudio:      true,
	CategoryVideo:      true,
	CategoryOther:      true,
}

// IsValid returns true if the category is a known value.
func (c Category) IsValid() bool {
	return validCategories[c]
}

// Decision is the analyzer's overall verdict for a submission.
type Decision string

const (
	DecisionPass         Decision = "pass"
	DecisionNeedsChanges Decision = "needs_changes"
)

// Coordinates is a normalized bounding box. Each component is expressed as a
// fraction of the source frame; w and h are fractional width and height.
type Coordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// TimestampRange marks a span of temporal evidence in milliseconds.
type TimestampRange struct {
	StartMS int64 `json:"start_ms"`
	EndMS   int64 `json:"end_ms"`
}

// Evidence ties an issue to a location in the source media. Either field,
// both, or neither may be present: a missing Coordinates means no spatial
// overlay, a missing TimestampRange means no temporal evidence.
type Evidence struct {
	Coordinates    *Coordinates    `json:"coordinates,omitempty"`
	TimestampRange *TimestampRange `json:"timestamp_range,omitempty"`
}

// Recommendation is the analyzer's suggested fix for an issue.
type Recommendation struct {
	Action  string `json:"action"`
	Details string `json:"details"`
}

// Issue is one brand-compliance violation found by the analyzer.
type Issue struct {
	IssueID        string          `json:"issue_id"`
	RuleID         string          `json:"rule_id"`
	Category       Category        `json:"category"`
	Severity       Severity        `json:"severity"`
	Confidence     float64         `json:"confidence"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Evidence       *Evidence       `json:"evidence,omitempty"`
	Recommendation *Recommendation `json:"recommendation,omitempty"`
}

// Overall carries the report-level verdict.
type Overall struct {
	Score    int      `json:"score"`
	Decision Decision `json:"decision"`
	Summary  string   `json:"summary"`
}

// CategoryScore is a per-category breakdown of the overall score.
type CategoryScore struct {
	Category string `json:"category"`
	Score    int    `json:"score"`
	Notes    string `json:"notes"`
}

// EditorAction is a prioritized remediation step referencing one or more issues.
type EditorAction struct {
	Priority        int      `json:"priority"`
	Action          string   `json:"action"`
	RelatedIssueIDs []string `json:"related_issue_ids"`
}

// Report is the structured compliance report attached to a submission once
// analysis completes. Issue order is significant and preserved everywhere
// downstream; the renderer never re-sorts.
type Report struct {
	Overall          Overall         `json:"overall"`
	CategoryScores   []CategoryScore `json:"category_scores"`
	Issues           []Issue         `json:"issues"`
	EditorActionList []EditorAction  `json:"editor_action_list"`
}
