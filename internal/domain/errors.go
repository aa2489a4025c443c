package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrMalformedSummary = errors.New("weekly summary row is malformed")
	ErrInvalidCategory  = errors.New("invalid notification category")
	ErrInvalidPlanKind  = errors.New("invalid plan kind")
)

// ValidationError lists field-level problems found before any write.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

func (e *ValidationError) Add(field, msg string) {
	e.Fields[field] = msg
}

// OrNil returns nil when no field problems were recorded.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// CooldownError is returned when the student's cooldown has not expired.
type CooldownError struct {
	NextAllowedDate time.Time
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("weekly summary already sent, next one allowed on %s", FormatDate(e.NextAllowedDate))
}
