package models

import "time"

// ProjectStatus is the lifecycle status of a project.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "ACTIVE"
	ProjectArchived  ProjectStatus = "ARCHIVED"
	ProjectCompleted ProjectStatus = "COMPLETED"
)

// Project groups the submissions reviewed against one evaluation config.
type Project struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	ManagerID    string        `json:"manager_id"`
	ConfigID     string        `json:"config_id"`
	Status       ProjectStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	LastActivity time.Time     `json:"last_activity"`
}
