package service

import (
	"errors"
	"fmt"

	"github.com/maheshrc27/clipposter/internal/models"
)

var ErrRunInProgress = errors.New("scheduler run already in progress")

type InitError struct {
	Err error
}

func (e *InitError) Error() string { return fmt.Sprintf("media init failed: %v", e.Err) }
func (e *InitError) Unwrap() error { return e.Err }

type AppendError struct {
	MediaID string
	Segment int
	Err     error
}

func (e *AppendError) Error() string {
	return fmt.Sprintf("media %s: append of segment %d failed: %v", e.MediaID, e.Segment, e.Err)
}
func (e *AppendError) Unwrap() error { return e.Err }

type FinalizeError struct {
	MediaID string
	Err     error
}

func (e *FinalizeError) Error() string {
	return fmt.Sprintf("media %s: finalize failed: %v", e.MediaID, e.Err)
}
func (e *FinalizeError) Unwrap() error { return e.Err }

// ProcessingError means the remote processing job failed, the status check
// itself failed, or the wait was abandoned.
type ProcessingError struct {
	MediaID string
	Message string
	Err     error
}

func (e *ProcessingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("media %s: processing failed: %s: %v", e.MediaID, e.Message, e.Err)
	}
	return fmt.Sprintf("media %s: processing failed: %s", e.MediaID, e.Message)
}
func (e *ProcessingError) Unwrap() error { return e.Err }

type UnexpectedStateError struct {
	MediaID string
	State   string
}

func (e *UnexpectedStateError) Error() string {
	return fmt.Sprintf("media %s: unexpected processing state %q", e.MediaID, e.State)
}

type PostError struct {
	Reason string
	Err    error
}

func (e *PostError) Error() string { return "post failed: " + e.Reason }
func (e *PostError) Unwrap() error { return e.Err }

// InputError is a rejected owner request.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

// TransitionError is a status change the record lifecycle does not allow.
type TransitionError struct {
	RecordID string
	From     models.Status
	To       models.Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("record %s cannot move from %s to %s", e.RecordID, e.From, e.To)
}
