// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package invoke routes named commands from the front end to handlers.
//
// The transport that carries a command (an embedded webview bridge, the
// loopback HTTP API, a test) is not part of this package: it hands the
// router a command name plus raw JSON arguments and gets back a result value
// or an error.
package invoke

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/settingsd/internal/log"
	"github.com/ManuGH/settingsd/internal/metrics"
)

var (
	// ErrUnknownCommand is returned when no handler is registered for a name.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrBadArguments is returned when a command's arguments cannot be decoded.
	ErrBadArguments = errors.New("bad arguments")
	// ErrDuplicateCommand is returned when a name is registered twice.
	ErrDuplicateCommand = errors.New("command already registered")
	// ErrInvalidCommandName is returned for names that do not match [a-z][a-z0-9_]*.
	ErrInvalidCommandName = errors.New("invalid command name")
	// errPanic marks a handler that panicked.
	errPanic = errors.New("handler panicked")
)

var commandName = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// Handler executes one command. args holds the raw JSON arguments and may be
// empty. The result must be JSON-encodable.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Router maps command names to handlers. It is safe for concurrent use.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   zerolog.Logger
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{
		handlers: make(map[string]Handler),
		logger:   xglog.WithComponent("invoke"),
	}
}

// Register binds name to h.
func (r *Router) Register(name string, h Handler) error {
	if !commandName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCommandName, name)
	}
	if h == nil {
		return fmt.Errorf("register %s: nil handler", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, name)
	}
	r.handlers[name] = h
	return nil
}

// Commands lists the registered command names in lexical order.
func (r *Router) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the handler registered for name. A handler that panics is
// reported as an internal failure instead of taking the process down.
func (r *Router) Invoke(ctx context.Context, name string, args json.RawMessage) (result any, err error) {
	start := time.Now()

	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()

	label := name
	if !ok {
		label = "unknown"
	}

	ctx = xglog.ContextWithCommand(ctx, name)
	logger := xglog.WithContext(ctx, r.logger)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().
				Str(xglog.FieldEvent, "invoke.panic").
				Interface("panic_value", rec).
				Msg("panic recovered in command handler")
			result, err = nil, fmt.Errorf("%w: %v", errPanic, rec)
		}

		elapsed := time.Since(start)
		failure := FailureFrom(err)
		outcome := "success"
		if err != nil {
			outcome = failure.Kind
		}
		metrics.RecordInvocation(label, outcome, elapsed)

		evt := logger.Debug()
		if err != nil {
			evt = logger.Warn().Err(err)
		}
		evt.Str(xglog.FieldEvent, "invoke.done").
			Str("outcome", outcome).
			Int64(xglog.FieldDurationMS, elapsed.Milliseconds()).
			Msg("command invoked")
	}()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return h(ctx, args)
}
