package services

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound covers missing reports and reports the actor may not touch in their
	// current state. Callers cannot tell the two apart.
	ErrNotFound = errors.New("report not found")
	// ErrForbidden is returned when the actor's role does not allow the operation.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError carries field-level messages keyed by input field name.
type ValidationError struct {
	Fields map[string]string
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
