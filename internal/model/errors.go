package model

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Domain errors wrap one of these so transports can map them
// without knowing every sentinel.
var (
	ErrNotFound           = errors.New("not found")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrInvalidState       = errors.New("invalid state")
	ErrInvalidInput       = errors.New("invalid input")
)

var (
	ErrMissionNotFound    = fmt.Errorf("mission %w", ErrNotFound)
	ErrMissionNotGeocoded = fmt.Errorf("mission has no coordinates, complete the mission address: %w", ErrPreconditionFailed)
)

// Kind classifies an error.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindPreconditionFailed
	KindInvalidState
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindPreconditionFailed:
		return "PreconditionFailed"
	case KindInvalidState:
		return "InvalidState"
	case KindInvalidInput:
		return "InvalidInput"
	default:
		return "Unknown"
	}
}

// KindOf returns the kind of err, or KindUnknown.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrPreconditionFailed):
		return KindPreconditionFailed
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindUnknown
	}
}

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when request input is rejected.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid input"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// Add appends a field error.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns e when it holds at least one field error.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}
