package config

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned by configuration operations.
var (
	// ErrUnsupportedFormat indicates a file extension with no parser.
	ErrUnsupportedFormat = errors.New("config: unsupported format")

	// ErrInvalid is matched by every *ValidationError.
	ErrInvalid = errors.New("config: invalid configuration")
)

// Problem is one failed rule.
type Problem struct {
	// Path is the dotted setting path, or empty for the whole document.
	Path    string
	Message string
}

func (p Problem) String() string {
	if p.Path == "" {
		return p.Message
	}
	return p.Path + ": " + p.Message
}

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	// Source is the file that was loaded, if any.
	Source   string
	Problems []Problem
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	msg := strings.Join(parts, "; ")
	if e.Source != "" {
		return fmt.Sprintf("config: %s: %s", e.Source, msg)
	}
	return "config: " + msg
}

// Is reports whether target is ErrInvalid.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}
