// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package store persists the application configuration document.
//
// A Store owns exactly one file. Saves are written to a pending file in the
// same directory, fsynced and renamed over the target, so readers observe
// either the previous or the new document and never a partial one. Writers
// are serialised by the Store; concurrent loads need no coordination.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/rs/zerolog"

	"github.com/ManuGH/settingsd/internal/document"
	xglog "github.com/ManuGH/settingsd/internal/log"
	"github.com/ManuGH/settingsd/internal/metrics"
)

const (
	defaultFileMode os.FileMode = 0o600
	defaultDirMode  os.FileMode = 0o700
	defaultDebounce             = 250 * time.Millisecond
)

// Change describes a document replacement observed by the Store.
type Change struct {
	Old    document.Document
	New    document.Document
	Keys   []string // changed keys, sorted
	Source string   // "save" for writes through the Store, "file" for external edits
}

// Store is the configuration store for one settings file.
type Store struct {
	path     string
	codec    document.Codec
	defaults document.Document
	fileMode os.FileMode
	dirMode  os.FileMode
	debounce time.Duration
	logger   zerolog.Logger

	// mu serialises every operation that writes the file or the snapshot.
	mu       sync.Mutex
	snapshot document.Document
	known    bool

	listenersMu sync.RWMutex
	listeners   []chan<- Change

	wg sync.WaitGroup

	// writeData writes the encoded document into the pending file. Tests
	// replace it to simulate a crash part-way through a write.
	writeData func(w io.Writer, data []byte) error
}

// Option configures a Store.
type Option func(*Store)

// WithCodec overrides the codec chosen from the file extension.
func WithCodec(c document.Codec) Option {
	return func(s *Store) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithDefaults sets the document returned by Load when no file exists yet.
func WithDefaults(d document.Document) Option {
	return func(s *Store) { s.defaults = d }
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithFileMode sets the permissions of the settings file (default 0600).
func WithFileMode(m os.FileMode) Option {
	return func(s *Store) { s.fileMode = m }
}

// WithDirMode sets the permissions of created parent directories (default 0700).
func WithDirMode(m os.FileMode) Option {
	return func(s *Store) { s.dirMode = m }
}

// WithDebounce sets how long the watcher waits for file events to settle.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// New creates a store for the settings file at path. The file and its
// directory are not touched until the first Load or Save.
func New(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("store: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("store: resolve path: %w", err)
	}

	s := &Store{
		path:      abs,
		codec:     document.CodecForPath(abs),
		fileMode:  defaultFileMode,
		dirMode:   defaultDirMode,
		debounce:  defaultDebounce,
		logger:    xglog.WithComponent("store"),
		writeData: writeAll,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str(xglog.FieldPath, s.path).Str(xglog.FieldCodec, s.codec.Name()).Logger()
	return s, nil
}

// Path returns the absolute path of the settings file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the whole document. A missing file is not an error: the
// defaults document is returned instead.
func (s *Store) Load(ctx context.Context) (document.Document, error) {
	start := time.Now()
	doc, found, err := s.read("load")
	logger := xglog.WithContext(ctx, s.logger)

	switch {
	case err != nil:
		metrics.RecordStoreOperation("load", outcomeFor(err), time.Since(start))
		logger.Error().Err(err).Str(xglog.FieldEvent, "config.load_failed").Msg("failed to load configuration")
		return document.Document{}, err
	case !found:
		metrics.RecordStoreOperation("load", "default", time.Since(start))
		logger.Debug().Str(xglog.FieldEvent, "config.load_default").Msg("no configuration file yet, using defaults")
	default:
		metrics.RecordStoreOperation("load", "success", time.Since(start))
		logger.Debug().Str(xglog.FieldEvent, "config.loaded").Int(xglog.FieldKeys, doc.Len()).Msg("configuration loaded")
	}
	metrics.SetDocumentKeys(doc.Len())
	return doc, nil
}

// Save replaces the persisted document with doc.
func (s *Store) Save(ctx context.Context, doc document.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.previousLocked()
	return s.writeLocked(ctx, "save", old, doc)
}

// Get returns the value stored under key in the persisted document.
func (s *Store) Get(ctx context.Context, key string) (ldvalue.Value, bool, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return ldvalue.Null(), false, err
	}
	v, ok := doc.Get(key)
	return v, ok, nil
}

// Set stores value under key and persists the resulting document. A file
// that cannot be read or parsed is left untouched and the error returned.
func (s *Store) Set(ctx context.Context, key string, value ldvalue.Value) (document.Document, error) {
	return s.update(ctx, func(d document.Document) (document.Document, error) {
		return d.With(key, value)
	})
}

// Delete removes key and persists the resulting document.
func (s *Store) Delete(ctx context.Context, key string) (document.Document, error) {
	return s.update(ctx, func(d document.Document) (document.Document, error) {
		return d.Without(key), nil
	})
}

// Subscribe registers ch for change notifications. Sends never block: a
// full channel misses the notification. The returned function unregisters ch.
func (s *Store) Subscribe(ch chan<- Change) (unsubscribe func()) {
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, ch)
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			defer s.listenersMu.Unlock()
			for i, l := range s.listeners {
				if l == ch {
					s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) update(ctx context.Context, fn func(document.Document) (document.Document, error)) (document.Document, error) {
	if err := ctx.Err(); err != nil {
		return document.Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, _, err := s.read("save")
	if err != nil {
		metrics.RecordStoreOperation("save", outcomeFor(err), 0)
		logger := xglog.WithContext(ctx, s.logger)
		logger.Error().Err(err).Str(xglog.FieldEvent, "config.update_failed").Msg("refusing to update unreadable configuration")
		return document.Document{}, err
	}
	next, err := fn(current)
	if err != nil {
		return document.Document{}, err
	}
	if err := s.writeLocked(ctx, "save", current, next); err != nil {
		return document.Document{}, err
	}
	return next, nil
}

// read loads and decodes the file. found is false when the file does not exist.
func (s *Store) read(op string) (doc document.Document, found bool, err error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s.defaults, false, nil
		}
		return document.Document{}, false, newError(KindRead, op, s.path, err)
	}
	doc, err = s.codec.Decode(data)
	if err != nil {
		return document.Document{}, true, newError(KindParse, op, s.path, err)
	}
	return doc, true, nil
}

// previousLocked returns the last document known to be on disk. Callers hold s.mu.
func (s *Store) previousLocked() document.Document {
	if s.known {
		return s.snapshot
	}
	doc, _, err := s.read("save")
	if err != nil {
		return document.Document{}
	}
	return doc
}

// writeLocked persists next atomically. Callers hold s.mu.
func (s *Store) writeLocked(ctx context.Context, op string, old, next document.Document) error {
	start := time.Now()
	logger := xglog.WithContext(ctx, s.logger)

	err := s.commit(op, next)
	metrics.RecordStoreOperation(op, outcomeFor(err), time.Since(start))
	if err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "config.save_failed").Msg("failed to save configuration")
		return err
	}

	s.snapshot = next
	s.known = true
	metrics.SetDocumentKeys(next.Len())

	keys := document.ChangedKeys(old, next)
	logger.Info().
		Str(xglog.FieldEvent, "config.saved").
		Int(xglog.FieldKeys, next.Len()).
		Strs("changed", keys).
		Int64(xglog.FieldDurationMS, time.Since(start).Milliseconds()).
		Msg("configuration saved")

	s.notify(Change{Old: old, New: next, Keys: keys, Source: "save"})
	return nil
}

func (s *Store) commit(op string, doc document.Document) error {
	data, err := s.codec.Encode(doc)
	if err != nil {
		return newError(KindWrite, op, s.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), s.dirMode); err != nil {
		return newError(KindDirectory, op, filepath.Dir(s.path), err)
	}

	// renameio handles: temp file in the target directory, fsync, atomic rename, cleanup on error
	pending, err := renameio.NewPendingFile(s.path, renameio.WithPermissions(s.fileMode))
	if err != nil {
		return newError(KindWrite, op, s.path, fmt.Errorf("create pending file: %w", err))
	}
	defer func() {
		// no-op once committed
		if err := pending.Cleanup(); err != nil {
			s.logger.Debug().Err(err).Msg("cleanup pending config file")
		}
	}()

	if err := s.writeData(pending, data); err != nil {
		return newError(KindWrite, op, s.path, fmt.Errorf("write pending file: %w", err))
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return newError(KindWrite, op, s.path, fmt.Errorf("atomically replace config file: %w", err))
	}
	return nil
}

func (s *Store) notify(c Change) {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()

	for _, ch := range s.listeners {
		select {
		case ch <- c:
		default:
			metrics.IncListenerDrop()
			s.logger.Warn().
				Str(xglog.FieldEvent, "config.listener_skip").
				Str(xglog.FieldSource, c.Source).
				Msg("skipped notifying listener (channel full)")
		}
	}
}

func writeAll(w io.Writer, data []byte) error {
	_, err := w.Write(data)
	return err
}
