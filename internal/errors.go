package internal

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session id is not in the store
var ErrSessionNotFound = errors.New("session not found")

// StorageError represents errors reading or writing durable session state
type StorageError struct {
	Path string
	Op   string // "open", "load", "save"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ParseError represents a payload that could not be parsed. It never leaves
// the normalizer or interpreter; it only shows up in debug logs.
type ParseError struct {
	Source string // event type or tool name
	Key    string // short excerpt of the offending payload
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error [%s] %s: %v", e.Source, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// TransportError represents a failed or interrupted stream request
type TransportError struct {
	Op      string // "connect", "status", "read"
	Status  int    // HTTP status, when Op is "status"
	Partial bool   // some stream data arrived before the failure
	Err     error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport error: %s (HTTP %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("transport error: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

func excerpt(s string) string {
	const max = 40
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
