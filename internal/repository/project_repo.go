package repository

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/brandguard/brandguard/internal/models"
)

// ProjectRepository handles project database operations
type ProjectRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sql.DB, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new project
func (r *ProjectRepository) Create(tx *sql.Tx, project *models.Project) error {
	query := `
		INSERT INTO projects (
			id, name, manager_id, config_id, status, created_at, last_activity
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	args := []interface{}{
		project.ID,
		project.Name,
		project.ManagerID,
		project.ConfigID,
		project.Status,
		project.CreatedAt,
		project.LastActivity,
	}

	var err error
	if tx != nil {
		_, err = tx.Exec(query, args...)
	} else {
		_, err = r.db.Exec(query, args...)
	}

	if err != nil {
		r.logger.Error("Failed to create project", zap.String("id", project.ID), zap.Error(err))
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetByID retrieves a project by ID. Returns nil when no project exists.
func (r *ProjectRepository) GetByID(id string) (*models.Project, error) {
	query := `
		SELECT id, name, manager_id, config_id, status, created_at, last_activity
		FROM projects
		WHERE id = ?
	`

	var project models.Project
	err := r.db.QueryRow(query, id).Scan(
		&project.ID,
		&project.Name,
		&project.ManagerID,
		&project.ConfigID,
		&project.Status,
		&project.CreatedAt,
		&project.LastActivity,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get project", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &project, nil
}

// List retrieves projects ordered by most recent activity
func (r *ProjectRepository) List(limit, offset int) ([]*models.Project, error) {
	query := `
		SELECT id, name, manager_id, config_id, status, created_at, last_activity
		FROM projects
		ORDER BY last_activity DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list projects", zap.Error(err))
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		var project models.Project
		err := rows.Scan(
			&project.ID,
			&project.Name,
			&project.ManagerID,
			&project.ConfigID,
			&project.Status,
			&project.CreatedAt,
			&project.LastActivity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, &project)
	}

	return projects, rows.Err()
}

// TouchActivity updates the last-activity marker after a submission event
func (r *ProjectRepository) TouchActivity(tx *sql.Tx, id string, at time.Time) error {
	query := `UPDATE projects SET last_activity = ? WHERE id = ?`

	var err error
	if tx != nil {
		_, err = tx.Exec(query, at, id)
	} else {
		_, err = r.db.Exec(query, at, id)
	}

	if err != nil {
		r.logger.Error("Failed to touch project activity", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to touch project activity: %w", err)
	}
	return nil
}

// UpdateStatus updates the project lifecycle status
func (r *ProjectRepository) UpdateStatus(tx *sql.Tx, id string, status models.ProjectStatus) error {
	query := `UPDATE projects SET status = ? WHERE id = ?`

	var err error
	if tx != nil {
		_, err = tx.Exec(query, status, id)
	} else {
		_, err = r.db.Exec(query, status, id)
	}

	if err != nil {
		r.logger.Error("Failed to update project status", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update project status: %w", err)
	}
	return nil
}
