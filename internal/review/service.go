package review

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brandguard/brandguard/internal/models"
	"github.com/brandguard/brandguard/internal/workflow"
)

// SystemAuthorID marks comments written by the pipeline itself rather than a
// reviewer or editor.
const SystemAuthorID = "system"

// ProjectStore is the slice of the project repository the service uses.
type ProjectStore interface {
	Create(tx *sql.Tx, project *models.Project) error
	GetByID(id string) (*models.Project, error)
	List(limit, offset int) ([]*models.Project, error)
	TouchActivity(tx *sql.Tx, id string, at time.Time) error
}

// SubmissionStore is the slice of the submission repository the service uses.
type SubmissionStore interface {
	Create(tx *sql.Tx, sub *models.Submission) error
	GetByID(id string) (*models.Submission, error)
	ListByProject(projectID string, limit, offset int) ([]*models.Submission, error)
	NextVersion(tx *sql.Tx, projectID string) (int, error)
	UpdateStatus(tx *sql.Tx, id string, status models.SubmissionStatus) error
	AttachReport(tx *sql.Tx, id string, report *models.Report) error
	ReplaceComments(tx *sql.Tx, id string, comments []models.Comment) error
}

// Analyzer runs compliance analysis over a submission's media.
type Analyzer interface {
	Analyze(ctx context.Context, sub *models.Submission, cfg *models.EvaluationConfig, imageData []byte, imageFormat string) (*models.Report, error)
}

// MediaLoader fetches the base image for analysis: the stored image itself,
// or a representative frame extracted from a stored video.
type MediaLoader interface {
	LoadBaseImage(ctx context.Context, sub *models.Submission) (data []byte, format string, err error)
}

// ConfigProvider resolves a project's evaluation config by ID.
type ConfigProvider interface {
	ConfigByID(id string) (*models.EvaluationConfig, error)
}

// txRunner runs a function inside a database transaction. *database.DB
// satisfies it.
type txRunner interface {
	WithTransaction(fn func(*sql.Tx) error) error
}

// Service orchestrates the submission review lifecycle: creation, analysis
// dispatch, report attachment, reviewer actions, and comments.
type Service struct {
	db          txRunner
	projects    ProjectStore
	submissions SubmissionStore
	analyzer    Analyzer
	media       MediaLoader
	configs     ConfigProvider
	lifecycle   *workflow.Lifecycle
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a review service.
func NewService(
	db txRunner,
	projects ProjectStore,
	submissions SubmissionStore,
	analyzer Analyzer,
	media MediaLoader,
	configs ConfigProvider,
	logger *zap.Logger,
) *Service {
	return &Service{
		db:          db,
		projects:    projects,
		submissions: submissions,
		analyzer:    analyzer,
		media:       media,
		configs:     configs,
		lifecycle:   workflow.NewLifecycle(logger),
		logger:      logger,
		now:         time.Now,
	}
}

// CreateProject registers a new project with the given evaluation config.
func (s *Service) CreateProject(ctx context.Context, name, managerID, configID string) (*models.Project, error) {
	if _, err := s.configs.ConfigByID(configID); err != nil {
		return nil, fmt.Errorf("unknown evaluation config %q: %w", configID, err)
	}

	now := s.now()
	project := &models.Project{
		ID:           uuid.NewString(),
		Name:         name,
		ManagerID:    managerID,
		ConfigID:     configID,
		Status:       models.ProjectActive,
		CreatedAt:    now,
		LastActivity: now,
	}

	if err := s.projects.Create(nil, project); err != nil {
		return nil, err
	}

	s.logger.Info("Project created",
		zap.String("project_id", project.ID),
		zap.String("name", name))
	return project, nil
}

// GetProject fetches one project.
func (s *Service) GetProject(ctx context.Context, id string) (*models.Project, error) {
	project, err := s.projects.GetByID(id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}
	return project, nil
}

// ListProjects lists projects by recent activity.
func (s *Service) ListProjects(ctx context.Context, limit, offset int) ([]*models.Project, error) {
	return s.projects.List(limit, offset)
}

// CreateSubmission registers a new media submission awaiting review. Version
// numbers are monotonic per project, shared by every editor submitting to it.
func (s *Service) CreateSubmission(ctx context.Context, projectID, editorID string, kind models.SourceKind, locator string) (*models.Submission, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSourceKind, kind)
	}

	project, err := s.projects.GetByID(projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}

	now := s.now()
	sub := &models.Submission{
		ID:            uuid.NewString(),
		ProjectID:     projectID,
		EditorID:      editorID,
		SourceKind:    kind,
		SourceLocator: locator,
		Status:        models.StatusPendingReview,
		CreatedAt:     now,
		Comments:      []models.Comment{},
	}

	err = s.db.WithTransaction(func(tx *sql.Tx) error {
		version, err := s.submissions.NextVersion(tx, projectID)
		if err != nil {
			return err
		}
		sub.Version = version

		if err := s.submissions.Create(tx, sub); err != nil {
			return err
		}
		return s.projects.TouchActivity(tx, projectID, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Submission created",
		zap.String("submission_id", sub.ID),
		zap.String("project_id", projectID),
		zap.Int("version", sub.Version),
		zap.String("source_kind", string(kind)))
	return sub, nil
}

// GetSubmission fetches one submission.
func (s *Service) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	sub, err := s.submissions.GetByID(id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrSubmissionNotFound
	}
	return sub, nil
}

// ListSubmissions lists a project's submissions, newest first.
func (s *Service) ListSubmissions(ctx context.Context, projectID string, limit, offset int) ([]*models.Submission, error) {
	return s.submissions.ListByProject(projectID, limit, offset)
}

// ProcessSubmission runs analysis over a pending submission and attaches the
// resulting report. On analysis failure the submission is rejected with a
// system comment recording the reason; the failure is reported to the caller
// as well.
func (s *Service) ProcessSubmission(ctx context.Context, id string) (*models.Submission, error) {
	sub, err := s.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.transition(sub, workflow.TriggerAnalysisStarted); err != nil {
		return nil, err
	}

	report, analyzeErr := s.analyze(ctx, sub)
	if analyzeErr != nil {
		s.logger.Error("Analysis failed, rejecting submission",
			zap.String("submission_id", sub.ID),
			zap.Error(analyzeErr))

		if _, err := s.AddComment(ctx, sub.ID, SystemAuthorID,
			fmt.Sprintf("Automated analysis failed: %v. Please submit a new version.", analyzeErr)); err != nil {
			s.logger.Error("Failed to record analysis failure comment", zap.Error(err))
		}
		if err := s.transition(sub, workflow.TriggerAnalysisFailed); err != nil {
			return nil, err
		}
		return sub, analyzeErr
	}

	err = s.db.WithTransaction(func(tx *sql.Tx) error {
		if err := s.submissions.AttachReport(tx, sub.ID, report); err != nil {
			return err
		}
		next, err := s.lifecycle.Apply(sub.Status, workflow.TriggerForDecision(report.Overall.Decision))
		if err != nil {
			return err
		}
		if err := s.submissions.UpdateStatus(tx, sub.ID, next); err != nil {
			return err
		}
		sub.Status = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	sub.Report = report

	s.logger.Info("Submission processed",
		zap.String("submission_id", sub.ID),
		zap.Int("score", report.Overall.Score),
		zap.String("status", string(sub.Status)))
	return sub, nil
}

func (s *Service) analyze(ctx context.Context, sub *models.Submission) (*models.Report, error) {
	cfg, err := s.configForSubmission(sub)
	if err != nil {
		return nil, err
	}

	imageData, imageFormat, err := s.media.LoadBaseImage(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("failed to load media: %w", err)
	}

	return s.analyzer.Analyze(ctx, sub, cfg, imageData, imageFormat)
}

func (s *Service) configForSubmission(sub *models.Submission) (*models.EvaluationConfig, error) {
	project, err := s.projects.GetByID(sub.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}
	return s.configs.ConfigByID(project.ConfigID)
}

// Approve applies the reviewer's approval to a flagged submission.
func (s *Service) Approve(ctx context.Context, id, reviewerID string) (*models.Submission, error) {
	return s.reviewerAction(ctx, id, reviewerID, workflow.TriggerApprove, "Approved by reviewer.")
}

// RequestChanges reopens an approved submission. The note is recorded as the
// reviewer's comment when present.
func (s *Service) RequestChanges(ctx context.Context, id, reviewerID, note string) (*models.Submission, error) {
	body := "Changes requested by reviewer."
	if note != "" {
		body = note
	}
	return s.reviewerAction(ctx, id, reviewerID, workflow.TriggerRequestChanges, body)
}

// Reject permanently closes a submission.
func (s *Service) Reject(ctx context.Context, id, reviewerID string) (*models.Submission, error) {
	return s.reviewerAction(ctx, id, reviewerID, workflow.TriggerReject, "Rejected by reviewer.")
}

func (s *Service) reviewerAction(ctx context.Context, id, reviewerID string, trigger workflow.Trigger, note string) (*models.Submission, error) {
	sub, err := s.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.transition(sub, trigger); err != nil {
		return nil, err
	}

	if _, err := s.AddComment(ctx, sub.ID, reviewerID, note); err != nil {
		s.logger.Error("Failed to record reviewer action comment",
			zap.String("submission_id", sub.ID),
			zap.Error(err))
	}

	s.logger.Info("Reviewer action applied",
		zap.String("submission_id", sub.ID),
		zap.String("reviewer_id", reviewerID),
		zap.String("trigger", string(trigger)),
		zap.String("status", string(sub.Status)))
	return sub, nil
}

// AddComment appends a comment attributed to the given author.
func (s *Service) AddComment(ctx context.Context, id, authorID, body string) (*models.Comment, error) {
	sub, err := s.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}

	comment := models.Comment{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: s.now(),
	}
	comments := append(sub.Comments, comment)

	if err := s.submissions.ReplaceComments(nil, sub.ID, comments); err != nil {
		return nil, err
	}
	sub.Comments = comments
	return &comment, nil
}

// transition fires the trigger and persists the resulting status, mutating
// sub in place.
func (s *Service) transition(sub *models.Submission, trigger workflow.Trigger) error {
	next, err := s.lifecycle.Apply(sub.Status, trigger)
	if err != nil {
		return err
	}
	if err := s.submissions.UpdateStatus(nil, sub.ID, next); err != nil {
		return err
	}
	sub.Status = next
	return nil
}
