// Package errs classifies engine failures so callers can decide how to react
// without string matching.
package errs

import (
	"context"
	"errors"
	"fmt"
)

// Class tells a consumer what to do about a failure.
type Class int

const (
	// Transient failures are swallowed or retried by the worker (unreadable
	// subdirectory during search, vanished path during resolution).
	Transient Class = iota
	// Blocked items are skipped and reported as a warning.
	Blocked
	// Fatal failures end the request they belong to.
	Fatal
	// Cancelled is cooperative termination; never shown as an error.
	Cancelled
)

// String returns a string representation of the class
func (c Class) String() string {
	switch c {
	case Transient:
		return "transient"
	case Blocked:
		return "blocked"
	case Fatal:
		return "fatal"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is a classified engine error.
type Error struct {
	Class   Class
	Op      string
	Path    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Path != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Op, e.Path, msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error.
func New(class Class, op, path, message string, err error) *Error {
	return &Error{Class: class, Op: op, Path: path, Message: message, Err: err}
}

// NewBlocked creates a Blocked error for an item that was skipped.
func NewBlocked(op, path, message string) *Error {
	return New(Blocked, op, path, message, nil)
}

// ClassOf reports the class of err. Context cancellation is Cancelled,
// unclassified errors are Fatal.
func ClassOf(err error) Class {
	if err == nil {
		return Transient
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	if errors.Is(err, context.Canceled) {
		return Cancelled
	}
	return Fatal
}

// IsCancelled reports whether err represents cooperative cancellation.
func IsCancelled(err error) bool {
	return err != nil && ClassOf(err) == Cancelled
}
