package openrouter

import "fmt"

// Kind classifies what went wrong talking to the vision API.
type Kind int

const (
	KindAPI Kind = iota + 1
	KindInvalidResponse
	KindImageNotFound
	KindMissingConfiguration
)

// Error is returned by New and Analyze. StatusCode is set for KindAPI.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
}

// Sentinels for errors.Is; only Kind is compared.
var (
	ErrAPI                  = &Error{Kind: KindAPI}
	ErrInvalidResponse      = &Error{Kind: KindInvalidResponse}
	ErrImageNotFound        = &Error{Kind: KindImageNotFound}
	ErrMissingConfiguration = &Error{Kind: KindMissingConfiguration}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindAPI:
		return "OpenRouter API error: " + e.Message
	case KindInvalidResponse:
		return "OpenRouter response error: " + e.Message
	case KindImageNotFound:
		return "OpenRouter image error: " + e.Message
	case KindMissingConfiguration:
		return "OpenRouter configuration missing: " + e.Message
	}
	return "OpenRouter error: " + e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func apiError(message string, status int) *Error {
	return &Error{Kind: KindAPI, Message: message, StatusCode: status}
}

func invalidResponse(message string) *Error {
	return &Error{Kind: KindInvalidResponse, Message: message}
}

func imageNotFound(path string) *Error {
	return &Error{Kind: KindImageNotFound, Message: fmt.Sprintf("Image not found at path: %s", path)}
}

func missingConfiguration(key string) *Error {
	return &Error{Kind: KindMissingConfiguration, Message: key}
}
