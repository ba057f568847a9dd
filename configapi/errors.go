package configapi

import (
	"encoding/xml"
	"errors"
	"fmt"
)

// ErrorType classifies engine failures.
type ErrorType string

const (
	ErrParse        ErrorType = "parse_error"
	ErrCatastrophic ErrorType = "catastrophic"
	ErrFormat       ErrorType = "format_error"
)

// ConfigError wraps parse/migration issues with context and type.
type ConfigError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsType reports whether err is a *ConfigError of the given type.
func IsType(err error, t ErrorType) bool {
	var ce *ConfigError
	return errors.As(err, &ce) && ce.Type == t
}

func wrapXMLError(err error, context string) error {
	var se *xml.SyntaxError
	if errors.As(err, &se) {
		return &ConfigError{Type: ErrParse, Message: fmt.Sprintf("%s (line %d)", context, se.Line), Err: err}
	}
	return &ConfigError{Type: ErrParse, Message: context, Err: err}
}
