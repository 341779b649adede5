package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	// Ошибки бизнес-логики для обработки в handlers
	ErrValidation          = errors.New("validation failed")
	ErrGenerationFailed    = errors.New("failed to generate responses from the AI service")
	ErrMalformedCompletion = errors.New("completion is missing labeled sections")
	ErrSubmissionFailed    = errors.New("feedback submission failed")
	ErrFeedbackNotFound    = errors.New("feedback not found")
)

// ValidationError содержит сообщения по полям запроса
// errors.Is(err, ErrValidation) == true
type ValidationError struct {
	Fields map[string]string
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

func (e *ValidationError) add(field, message string) {
	e.Fields[field] = message
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
