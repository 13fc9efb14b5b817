package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryRuntime   Category = "runtime"
	CategoryConstruct Category = "construct"
	CategoryConfig    Category = "config"
	CategoryCLI       Category = "cli"
)

// Sentinels matched with errors.Is against any *Error carrying the code.
var (
	ErrMissingPlugin = stderrors.New("missing plugin")
	ErrCircular      = stderrors.New("circular dependency")
)

// sentinels maps codes to the sentinel they satisfy.
var sentinels = map[string]error{
	"E006": ErrCircular,
	"E101": ErrMissingPlugin,
}

// Error is a structured error with a code, explanation and suggestion.
type Error struct {
	// Code is a unique error identifier (e.g., "E101").
	Code string

	// Category is the error type (runtime, construct, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of this occurrence.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Plugin and Kind name the missing plugin for E101.
	Plugin string
	Kind   string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is the sentinel registered for this code.
func (e *Error) Is(target error) bool {
	if s, ok := sentinels[e.Code]; ok && s == target {
		return true
	}
	if t, ok := target.(*Error); ok {
		return t.Code != "" && t.Code == e.Code
	}
	return false
}

// WithSuggestion adds a fix suggestion to the error.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// New creates an Error from a registered error code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &Error{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new Error with a formatted message (no code).
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in an Error.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return New(code).Wrap(err)
}

// MissingPlugin reports a plugin of the given kind ("adaptor", "component",
// ...) that could not be found anywhere in the view hierarchy.
func MissingPlugin(name, kind string) *Error {
	e := New("E101").
		WithDetail(fmt.Sprintf("Missing %q %s plugin.", name, kind)).
		WithSuggestion(fmt.Sprintf("Register the %s on the instance, its class, or an ancestor instance", kind))
	e.Plugin = name
	e.Kind = kind
	return e
}

// Circular reports a propagation wave that exceeded the allowed depth.
func Circular(depth int) *Error {
	return New("E006").
		WithDetail(fmt.Sprintf("change propagation exceeded %d nested notifications", depth)).
		WithSuggestion("Check for a resolver or computed value that depends on itself")
}
