// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Kind classifies store failures.
type Kind int

const (
	KindRead Kind = iota + 1
	KindParse
	KindWrite
	KindDirectory
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindRead:
		return "read"
	case KindParse:
		return "parse"
	case KindWrite:
		return "write"
	case KindDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is classification. Use errors.Is(err, ErrParse) rather
// than string matching.
var (
	ErrRead              = errors.New("config read failed")
	ErrParse             = errors.New("config parse failed")
	ErrWrite             = errors.New("config write failed")
	ErrDirectoryCreation = errors.New("config directory creation failed")
)

// Error is the typed failure returned by every Store operation.
type Error struct {
	Kind Kind
	Op   string // "load", "save", "reload"
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s error in %s [%s]: %v", e.Kind, e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s error in %s: %v", e.Kind, e.Op, e.Err)
}

// PublicMessage describes the failure without the file location. Path and
// directory names stay in logs.
func (e *Error) PublicMessage() string {
	return fmt.Sprintf("%s error in %s: %s", e.Kind, e.Op, causeWithoutPath(e.Err))
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrRead:
		return e.Kind == KindRead
	case ErrParse:
		return e.Kind == KindParse
	case ErrWrite:
		return e.Kind == KindWrite
	case ErrDirectoryCreation:
		return e.Kind == KindDirectory
	}
	return false
}

// KindOf returns the kind of a store error, or 0 if err is not one.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

// PublicMessage renders err for callers that must not learn where settings
// are stored.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.PublicMessage()
	}
	return causeWithoutPath(err)
}

// causeWithoutPath drops the file names os errors carry.
func causeWithoutPath(err error) string {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Op + ": " + pe.Err.Error()
	}
	var le *os.LinkError
	if errors.As(err, &le) {
		return le.Op + ": " + le.Err.Error()
	}
	if err == nil {
		return "unknown"
	}
	return err.Error()
}

func newError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func outcomeFor(err error) string {
	if err == nil {
		return "success"
	}
	switch KindOf(err) {
	case KindRead:
		return "read_error"
	case KindParse:
		return "parse_error"
	case KindWrite:
		return "write_error"
	case KindDirectory:
		return "directory_error"
	default:
		return "error"
	}
}
