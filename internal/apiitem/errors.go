package apiitem

import (
	"errors"
	"fmt"
)

// ErrNoApiItems is returned by pipelines handed an empty registry.
var ErrNoApiItems = errors.New("no valid api item found")

// ErrorCode categorizes configuration errors.
type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	ParseError      ErrorCode = "ParseError"
	StructureError  ErrorCode = "StructureError"
	ValidationError ErrorCode = "ValidationError"
)

// ConfigError reports a problem with an api configuration document. Location names the
// group or item inside the document when the problem is structural.
type ConfigError struct {
	Code     ErrorCode
	Path     string
	Location string
	Message  string
	Cause    error
}

func (e *ConfigError) Error() string {
	msg := e.Message
	if e.Location != "" {
		msg = fmt.Sprintf("%s: %s", e.Location, msg)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", e.Path, msg)
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Cause }
