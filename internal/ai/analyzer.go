package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/brandguard/brandguard/internal/models"
)

// Analysis failure classes. Callers use these to decide whether a failure is
// retryable (transport) or terminal for this submission (malformed report).
var (
	ErrAnalysisRequest = errors.New("analysis request failed")
	ErrNoResponse      = errors.New("model returned no choices")
	ErrMalformedReport = errors.New("model returned a malformed report")
)

// chatCompleter is the slice of the OpenAI client the analyzer uses.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Analyzer runs vision-based brand compliance analysis over submission media
// and returns a validated report.
type Analyzer struct {
	client      chatCompleter
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	logger      *zap.Logger
}

// NewAnalyzer creates a new compliance analyzer. A zero timeout disables the
// per-request deadline.
func NewAnalyzer(apiKey, model string, temperature float32, maxTokens int, timeout time.Duration, logger *zap.Logger) *Analyzer {
	client := openai.NewClient(apiKey)
	return &Analyzer{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		timeout:     timeout,
		logger:      logger,
	}
}

// Analyze evaluates the submission's media against the brand ruleset. The
// image is the submission's base frame (the uploaded image, or a
// representative video frame) already encoded as JPEG or PNG.
func (a *Analyzer) Analyze(ctx context.Context, sub *models.Submission, cfg *models.EvaluationConfig, imageData []byte, imageFormat string) (*models.Report, error) {
	a.logger.Info("Starting compliance analysis",
		zap.String("submission_id", sub.ID),
		zap.String("source_kind", string(sub.SourceKind)),
		zap.String("config", cfg.Name))

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	imageURL := fmt.Sprintf("data:image/%s;base64,%s",
		imageFormat, base64.StdEncoding.EncodeToString(imageData))

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: buildSystemPrompt(cfg),
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: buildUserPrompt(sub),
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    imageURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	})
	if err != nil {
		a.logger.Error("Analysis request failed",
			zap.String("submission_id", sub.ID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrAnalysisRequest, err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoResponse
	}

	content := resp.Choices[0].Message.Content
	report, err := models.ParseReport([]byte(content))
	if err != nil {
		a.logger.Error("Failed to parse analysis result",
			zap.String("submission_id", sub.ID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrMalformedReport, err)
	}

	a.logger.Info("Compliance analysis completed",
		zap.String("submission_id", sub.ID),
		zap.Int("score", report.Overall.Score),
		zap.String("decision", string(report.Overall.Decision)),
		zap.Int("issue_count", len(report.Issues)))

	return report, nil
}

// buildSystemPrompt renders the brand ruleset into the evaluation
// instructions. The response schema matches what ParseReport accepts.
func buildSystemPrompt(cfg *models.EvaluationConfig) string {
	var b strings.Builder

	b.WriteString("You are a brand compliance reviewer. Evaluate the provided media against these brand guidelines and return a JSON report.\n\n")

	b.WriteString("Allowed colors:\n")
	for _, c := range cfg.AllowedColors {
		fmt.Fprintf(&b, "- %s %s (tolerance %.2f)\n", c.Name, c.Hex, c.Tolerance)
	}

	b.WriteString("\nAllowed fonts:\n")
	for _, f := range cfg.AllowedFonts {
		weights := make([]string, len(f.Weights))
		for i, w := range f.Weights {
			weights[i] = fmt.Sprint(w)
		}
		fmt.Fprintf(&b, "- %s (weights %s)\n", f.Family, strings.Join(weights, ", "))
	}

	fmt.Fprintf(&b, "\nLogo rules: minimum size %dpx, safe margin %.1f%% of the shorter edge.\n",
		cfg.LogoRules.MinSizePX, cfg.LogoRules.SafeMarginPct)
	fmt.Fprintf(&b, "Video rules: maximum duration %ds, expected resolution %s.\n",
		cfg.VideoRules.MaxDurationSec, cfg.VideoRules.Resolution)
	fmt.Fprintf(&b, "Score from 0 to 100; the pass threshold is %d. Decision is \"pass\" at or above the threshold, otherwise \"needs_changes\".\n",
		cfg.Scoring.PassThreshold)

	if cfg.Guidelines != "" {
		fmt.Fprintf(&b, "\nAdditional guidelines:\n%s\n", cfg.Guidelines)
	}

	b.WriteString(`
Return only JSON with this structure:
{
  "overall": {"score": int, "decision": "pass"|"needs_changes", "summary": string},
  "issues": [{
    "issue_id": string (unique),
    "rule_id": string (the guideline the issue violates, optional),
    "severity": "blocker"|"high"|"medium"|"low",
    "category": "logo"|"colors"|"typography"|"layout"|"video"|"audio"|"other",
    "title": string,
    "description": string,
    "confidence": float in [0,1],
    "evidence": {
      "coordinates": {"x": float, "y": float, "w": float, "h": float} (fractions of the frame, optional),
      "timestamp_range": {"start_ms": int, "end_ms": int} (optional)
    },
    "recommendation": {"action": string, "details": string} (optional)
  }],
  "category_scores": [{"category": string, "score": int, "notes": string}] (optional),
  "editor_action_list": [{"priority": int, "action": string, "related_issue_ids": [string]}] (optional)
}`)

	return b.String()
}

func buildUserPrompt(sub *models.Submission) string {
	switch sub.SourceKind {
	case models.SourceVideo:
		return "Review this representative frame from a submitted video. Report timestamp ranges for time-based issues where you can infer them."
	default:
		return "Review this submitted image for brand compliance."
	}
}
