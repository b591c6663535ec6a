package review

import "errors"

var (
	ErrProjectNotFound    = errors.New("project not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrInvalidSourceKind  = errors.New("invalid source kind")
)
