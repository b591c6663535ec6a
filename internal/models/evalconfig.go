package models

import "fmt"

// AllowedColor is one brand-palette entry with a matching tolerance.
type AllowedColor struct {
	Name      string  `json:"name"`
	Hex       string  `json:"hex"`
	Tolerance float64 `json:"tolerance"`
}

// AllowedFont is one approved typeface and its permitted weights.
type AllowedFont struct {
	Family  string `json:"family"`
	Weights []int  `json:"weights"`
}

// LogoRules constrains logo placement and sizing.
type LogoRules struct {
	MinSizePX     int     `json:"min_size_px"`
	SafeMarginPct float64 `json:"safe_margin_percent"`
}

// VideoRules constrains video submissions.
type VideoRules struct {
	MaxDurationSec int    `json:"max_duration_sec"`
	Resolution     string `json:"resolution"`
}

// Scoring sets the pass threshold applied at analysis time.
type Scoring struct {
	PassThreshold int `json:"pass_threshold"`
}

// EvaluationConfig is the brand ruleset fed to the analysis collaborator.
type EvaluationConfig struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Version       int            `json:"version"`
	AllowedColors []AllowedColor `json:"allowed_colors"`
	AllowedFonts  []AllowedFont  `json:"allowed_fonts"`
	LogoRules     LogoRules      `json:"logo_rules"`
	VideoRules    VideoRules     `json:"video_rules"`
	Scoring       Scoring        `json:"scoring"`
	Guidelines    string         `json:"guidelines,omitempty"`
}

// Validate checks the config for values the analyzer cannot work with.
func (c *EvaluationConfig) Validate() error {
	if c.Scoring.PassThreshold < 0 || c.Scoring.PassThreshold > 100 {
		return fmt.Errorf("scoring.pass_threshold must be in [0,100], got %d", c.Scoring.PassThreshold)
	}
	for i, color := range c.AllowedColors {
		if color.Hex == "" {
			return fmt.Errorf("allowed_colors[%d]: hex is required", i)
		}
		if color.Tolerance < 0 || color.Tolerance > 1 {
			return fmt.Errorf("allowed_colors[%d]: tolerance must be in [0,1], got %g", i, color.Tolerance)
		}
	}
	return nil
}

// DefaultEvaluationConfig returns the standard brand guidelines used when a
// project has not configured its own ruleset.
func DefaultEvaluationConfig() *EvaluationConfig {
	return &EvaluationConfig{
		ID:      "c1",
		Name:    "Standard Brand Guidelines v1",
		Version: 1,
		AllowedColors: []AllowedColor{
			{Name: "Brand Blue", Hex: "#0056D2", Tolerance: 0.1},
			{Name: "Accent Orange", Hex: "#FF6B00", Tolerance: 0.1},
			{Name: "White", Hex: "#FFFFFF", Tolerance: 0.05},
		},
		AllowedFonts: []AllowedFont{
			{Family: "Inter", Weights: []int{400, 600, 700}},
			{Family: "Roboto", Weights: []int{400}},
		},
		LogoRules:  LogoRules{MinSizePX: 50, SafeMarginPct: 5},
		VideoRules: VideoRules{MaxDurationSec: 60, Resolution: "1080p"},
		Scoring:    Scoring{PassThreshold: 80},
	}
}
