package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/brandguard/brandguard/internal/models"
)

// SubmissionRepository handles submission database operations. The report
// and comments are stored as JSON columns; the renderer consumes them as
// in-memory structures and never queries inside them.
type SubmissionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSubmissionRepository creates a new submission repository
func NewSubmissionRepository(db *sql.DB, logger *zap.Logger) *SubmissionRepository {
	return &SubmissionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new submission
func (r *SubmissionRepository) Create(tx *sql.Tx, sub *models.Submission) error {
	commentsJSON, err := json.Marshal(sub.Comments)
	if err != nil {
		return fmt.Errorf("failed to marshal comments: %w", err)
	}

	var reportJSON sql.NullString
	if sub.Report != nil {
		raw, err := json.Marshal(sub.Report)
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		reportJSON = sql.NullString{String: string(raw), Valid: true}
	}

	query := `
		INSERT INTO submissions (
			id, project_id, editor_id, version, source_kind, source_locator,
			status, report_json, comments_json, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	args := []interface{}{
		sub.ID,
		sub.ProjectID,
		sub.EditorID,
		sub.Version,
		sub.SourceKind,
		sub.SourceLocator,
		sub.Status,
		reportJSON,
		string(commentsJSON),
		sub.CreatedAt,
		sub.CreatedAt,
	}

	if tx != nil {
		_, err = tx.Exec(query, args...)
	} else {
		_, err = r.db.Exec(query, args...)
	}

	if err != nil {
		r.logger.Error("Failed to create submission", zap.String("id", sub.ID), zap.Error(err))
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

const submissionColumns = `
	id, project_id, editor_id, version, source_kind, source_locator,
	status, report_json, comments_json, created_at
`

// GetByID retrieves a submission by ID. Returns nil when no submission exists.
func (r *SubmissionRepository) GetByID(id string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = ?`

	sub, err := r.scanSubmission(r.db.QueryRow(query, id))
	if err != nil {
		r.logger.Error("Failed to get submission", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return sub, nil
}

// ListByProject retrieves a project's submissions, newest first
func (r *SubmissionRepository) ListByProject(projectID string, limit, offset int) ([]*models.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE project_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.Query(query, projectID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list submissions", zap.String("project_id", projectID), zap.Error(err))
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var subs []*models.Submission
	for rows.Next() {
		sub, err := r.scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}

	return subs, rows.Err()
}

// NextVersion returns one past the highest version submitted to the project,
// regardless of which editor submitted it. The first submission is version 1.
func (r *SubmissionRepository) NextVersion(tx *sql.Tx, projectID string) (int, error) {
	query := `
		SELECT COALESCE(MAX(version), 0)
		FROM submissions
		WHERE project_id = ?
	`

	var current int
	var err error
	if tx != nil {
		err = tx.QueryRow(query, projectID).Scan(&current)
	} else {
		err = r.db.QueryRow(query, projectID).Scan(&current)
	}
	if err != nil {
		r.logger.Error("Failed to resolve next version",
			zap.String("project_id", projectID),
			zap.Error(err))
		return 0, fmt.Errorf("failed to resolve next version: %w", err)
	}
	return current + 1, nil
}

// UpdateStatus updates the submission lifecycle status
func (r *SubmissionRepository) UpdateStatus(tx *sql.Tx, id string, status models.SubmissionStatus) error {
	query := `UPDATE submissions SET status = ?, updated_at = ? WHERE id = ?`

	var err error
	if tx != nil {
		_, err = tx.Exec(query, status, time.Now(), id)
	} else {
		_, err = r.db.Exec(query, status, time.Now(), id)
	}

	if err != nil {
		r.logger.Error("Failed to update submission status",
			zap.String("id", id),
			zap.String("status", string(status)),
			zap.Error(err))
		return fmt.Errorf("failed to update submission status: %w", err)
	}
	return nil
}

// AttachReport stores the analysis report for a submission
func (r *SubmissionRepository) AttachReport(tx *sql.Tx, id string, report *models.Report) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `UPDATE submissions SET report_json = ?, updated_at = ? WHERE id = ?`

	if tx != nil {
		_, err = tx.Exec(query, string(raw), time.Now(), id)
	} else {
		_, err = r.db.Exec(query, string(raw), time.Now(), id)
	}

	if err != nil {
		r.logger.Error("Failed to attach report", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to attach report: %w", err)
	}
	return nil
}

// ReplaceComments persists the full comment list for a submission
func (r *SubmissionRepository) ReplaceComments(tx *sql.Tx, id string, comments []models.Comment) error {
	raw, err := json.Marshal(comments)
	if err != nil {
		return fmt.Errorf("failed to marshal comments: %w", err)
	}

	query := `UPDATE submissions SET comments_json = ?, updated_at = ? WHERE id = ?`

	if tx != nil {
		_, err = tx.Exec(query, string(raw), time.Now(), id)
	} else {
		_, err = r.db.Exec(query, string(raw), time.Now(), id)
	}

	if err != nil {
		r.logger.Error("Failed to replace comments", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to replace comments: %w", err)
	}
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *SubmissionRepository) scanSubmission(row rowScanner) (*models.Submission, error) {
	var sub models.Submission
	var reportJSON sql.NullString
	var commentsJSON string

	err := row.Scan(
		&sub.ID,
		&sub.ProjectID,
		&sub.EditorID,
		&sub.Version,
		&sub.SourceKind,
		&sub.SourceLocator,
		&sub.Status,
		&reportJSON,
		&commentsJSON,
		&sub.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan submission: %w", err)
	}

	if reportJSON.Valid {
		var report models.Report
		if err := json.Unmarshal([]byte(reportJSON.String), &report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report for submission %s: %w", sub.ID, err)
		}
		sub.Report = &report
	}
	if err := json.Unmarshal([]byte(commentsJSON), &sub.Comments); err != nil {
		return nil, fmt.Errorf("failed to unmarshal comments for submission %s: %w", sub.ID, err)
	}

	return &sub, nil
}
