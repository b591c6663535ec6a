package render

import "errors"

// Domain errors for evidence capture. All of these are recoverable at the
// document level: the resolver turns them into Fallback renderings and the
// export continues with the next issue.
var (
	// ErrCaptureForbidden is returned when the decode surface cannot produce
	// a readable frame (protected source, no pixel readback).
	ErrCaptureForbidden = errors.New("decode surface forbids frame capture")

	// ErrCaptureTimeout is returned when the decoder does not signal seek
	// completion within the caller-supplied timeout.
	ErrCaptureTimeout = errors.New("frame capture timed out")

	// ErrNoSurface is returned when a capture is requested for a submission
	// with no decode surface attached.
	ErrNoSurface = errors.New("no decode surface for submission")
)
