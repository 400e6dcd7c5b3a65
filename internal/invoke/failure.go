// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package invoke

import (
	"context"
	"errors"

	"github.com/ManuGH/settingsd/internal/store"
)

// Failure kinds carried across the invocation boundary.
const (
	KindRead           = "read"
	KindParse          = "parse"
	KindWrite          = "write"
	KindDirectory      = "directory"
	KindUnknownCommand = "unknown_command"
	KindBadArguments   = "bad_arguments"
	KindCancelled      = "cancelled"
	KindInternal       = "internal"
)

// Failure is the wire shape of a rejected invocation.
type Failure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (f Failure) Error() string {
	return f.Kind + ": " + f.Message
}

// FailureFrom classifies err for the front end. A nil error yields the zero Failure.
func FailureFrom(err error) Failure {
	if err == nil {
		return Failure{}
	}
	var f Failure
	if errors.As(err, &f) {
		return f
	}

	kind := KindInternal
	switch {
	case errors.Is(err, ErrUnknownCommand):
		kind = KindUnknownCommand
	case errors.Is(err, ErrBadArguments):
		kind = KindBadArguments
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = KindCancelled
	default:
		switch store.KindOf(err) {
		case store.KindRead:
			kind = KindRead
		case store.KindParse:
			kind = KindParse
		case store.KindWrite:
			kind = KindWrite
		case store.KindDirectory:
			kind = KindDirectory
		}
	}

	// Store errors carry the settings path; it never leaves the process.
	msg := store.PublicMessage(err)
	if kind == KindInternal && errors.Is(err, errPanic) {
		msg = "internal error"
	}
	return Failure{Kind: kind, Message: msg}
}
