package wizard

import (
	"errors"
	"fmt"
)

var (
	ErrIllegalTransition   = errors.New("illegal step transition")
	ErrIncompleteSession   = errors.New("booking is incomplete")
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrSubmissionInFlight  = errors.New("submission already in progress")
	ErrServiceMismatch     = errors.New("service does not belong to the selected professional")
	ErrUnknownProfessional = errors.New("unknown professional")
	ErrUnknownService      = errors.New("unknown service")
	ErrInvalidTimeSlot     = errors.New("invalid time slot")
	ErrDateNotSelectable   = errors.New("date is not selectable")
	ErrInvalidInput        = errors.New("invalid input")
	// ErrSuperseded is returned when a newer selection replaced the one a
	// load was started for; its result was dropped.
	ErrSuperseded = errors.New("selection superseded")
)

// AuthError is a rejected sign-up or sign-in.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("auth %s: %v", e.Op, e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// LoadError is a failed catalog read.
type LoadError struct {
	Op  string
	Err error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load %s: %v", e.Op, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

type ProfileResolutionError struct {
	Op     string
	UserID string
	Err    error
}

func (e *ProfileResolutionError) Error() string {
	return fmt.Sprintf("%s for user %s: %v", e.Op, e.UserID, e.Err)
}
func (e *ProfileResolutionError) Unwrap() error { return e.Err }

type SubmissionError struct {
	Op  string
	Err error
}

func (e *SubmissionError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *SubmissionError) Unwrap() error { return e.Err }

func illegal(from, to Step) error {
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}

func wrongStep(op string, at Step) error {
	return fmt.Errorf("%w: %s is not available on step %s", ErrIllegalTransition, op, at)
}
