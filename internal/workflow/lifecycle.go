package workflow

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/brandguard/brandguard/internal/models"
)

// Trigger names a lifecycle event that moves a submission between statuses.
type Trigger string

const (
	// TriggerAnalysisStarted fires when analysis is dispatched.
	TriggerAnalysisStarted Trigger = "ANALYSIS_STARTED"

	// TriggerAnalysisPassed fires when the report decision is "pass".
	TriggerAnalysisPassed Trigger = "ANALYSIS_PASSED"

	// TriggerAnalysisFlagged fires when the report decision is "needs_changes".
	TriggerAnalysisFlagged Trigger = "ANALYSIS_FLAGGED"

	// TriggerAnalysisFailed fires when analysis errors; the submission is
	// rejected and a new submission is required.
	TriggerAnalysisFailed Trigger = "ANALYSIS_FAILED"

	// Reviewer actions.
	TriggerApprove        Trigger = "APPROVE"
	TriggerRequestChanges Trigger = "REQUEST_CHANGES"
	TriggerReject         Trigger = "REJECT"
)

// transitions maps each status to the triggers it accepts and their targets.
// REJECTED is terminal.
var transitions = map[models.SubmissionStatus]map[Trigger]models.SubmissionStatus{
	models.StatusPendingReview: {
		TriggerAnalysisStarted: models.StatusProcessing,
		TriggerReject:          models.StatusRejected,
	},
	models.StatusProcessing: {
		TriggerAnalysisPassed:  models.StatusApproved,
		TriggerAnalysisFlagged: models.StatusChangesRequested,
		TriggerAnalysisFailed:  models.StatusRejected,
		TriggerReject:          models.StatusRejected,
	},
	models.StatusApproved: {
		TriggerRequestChanges: models.StatusChangesRequested,
		TriggerReject:         models.StatusRejected,
	},
	models.StatusChangesRequested: {
		TriggerApprove: models.StatusApproved,
		TriggerReject:  models.StatusRejected,
	},
	models.StatusRejected: {},
}

// Lifecycle validates and applies submission status transitions.
type Lifecycle struct {
	logger *zap.Logger
}

// NewLifecycle creates a lifecycle validator.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{logger: logger}
}

// Apply returns the status reached by firing trigger from the current
// status, or an error when the trigger is not accepted there.
func (l *Lifecycle) Apply(current models.SubmissionStatus, trigger Trigger) (models.SubmissionStatus, error) {
	accepted, ok := transitions[current]
	if !ok {
		return "", fmt.Errorf("unknown status %q", current)
	}
	next, ok := accepted[trigger]
	if !ok {
		l.logger.Warn("Rejected status transition",
			zap.String("from", string(current)),
			zap.String("trigger", string(trigger)))
		return "", fmt.Errorf("trigger %s not allowed from status %s", trigger, current)
	}
	return next, nil
}

// CanFire reports whether trigger is accepted from the current status.
func (l *Lifecycle) CanFire(current models.SubmissionStatus, trigger Trigger) bool {
	_, err := l.Apply(current, trigger)
	return err == nil
}

// TriggerForDecision maps a report decision to its analysis trigger.
func TriggerForDecision(decision models.Decision) Trigger {
	if decision == models.DecisionPass {
		return TriggerAnalysisPassed
	}
	return TriggerAnalysisFlagged
}

// IsTerminal reports whether the status accepts no further triggers.
func IsTerminal(status models.SubmissionStatus) bool {
	return len(transitions[status]) == 0
}
