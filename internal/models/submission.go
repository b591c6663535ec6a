package models

import (
	"strings"
	"time"
)

// SourceKind identifies what kind of media a submission points at.
type SourceKind string

const (
	SourceImage       SourceKind = "IMAGE"
	SourceVideo       SourceKind = "VIDEO"
	SourceExternalURL SourceKind = "EXTERNAL_URL"
)

// IsValid returns true if the source kind is a known value.
func (k SourceKind) IsValid() bool {
	switch k {
	case SourceImage, SourceVideo, SourceExternalURL:
		return true
	}
	return false
}

// KindForContentType classifies an uploaded file by its MIME type.
func KindForContentType(contentType string) SourceKind {
	if strings.HasPrefix(contentType, "video/") {
		return SourceVideo
	}
	return SourceImage
}

// KindForURL classifies a URL submission. A URL declared as a direct image
// link is analyzed as an IMAGE whose bytes are fetched at analysis time;
// everything else (YouTube links included) is an external source.
func KindForURL(imageURL bool) SourceKind {
	if imageURL {
		return SourceImage
	}
	return SourceExternalURL
}

// SubmissionStatus is the lifecycle status of a submission.
type SubmissionStatus string

const (
	StatusPendingReview    SubmissionStatus = "PENDING_REVIEW"
	StatusProcessing       SubmissionStatus = "PROCESSING"
	StatusApproved         SubmissionStatus = "APPROVED"
	StatusChangesRequested SubmissionStatus = "CHANGES_REQUESTED"
	StatusRejected         SubmissionStatus = "REJECTED"
)

// Comment is a note left on a submission by a reviewer, editor, or the system.
type Comment struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Submission identifies one reviewed media asset. Immutable once created
// except for status and report attachment, which the lifecycle replaces
// wholesale; the renderer only ever reads it.
type Submission struct {
	ID            string           `json:"id"`
	ProjectID     string           `json:"project_id"`
	EditorID      string           `json:"editor_id"`
	Version       int              `json:"version"`
	SourceKind    SourceKind       `json:"source_kind"`
	SourceLocator string           `json:"source_locator"`
	Status        SubmissionStatus `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	Report        *Report          `json:"report,omitempty"`
	Comments      []Comment        `json:"comments"`
}
