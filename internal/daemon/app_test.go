// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/settingsd/internal/document"
	"github.com/ManuGH/settingsd/internal/store"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newApp(t *testing.T, watch bool) (*App, *store.Store, *syncBuffer, string) {
	t.Helper()
	out := &syncBuffer{}
	logger := zerolog.New(out).Level(zerolog.DebugLevel)

	st, err := store.New(filepath.Join(t.TempDir(), "ExampleApp", "app.json"),
		store.WithLogger(logger), store.WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	addr := reserveListenAddr(t)
	mgr, err := NewManager(DefaultServerConfig(addr), Deps{Logger: logger, APIHandler: okHandler()})
	require.NoError(t, err)

	app := NewApp(logger, mgr, st, watch)
	app.reloadSignal = nil
	return app, st, out, addr
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	assert.Eventually(t, cond, 5*time.Second, 20*time.Millisecond)
}

func TestApp_RunServesAndLogsChanges(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	app, st, out, addr := newApp(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.NoError(t, waitForListen(addr, 2*time.Second))
	assert.Equal(t, 200, get(t, "http://"+addr+"/healthz"))

	require.NoError(t, st.Save(ctx, document.FromMap(map[string]any{"theme": "dark"})))
	eventually(t, func() bool { return strings.Contains(out.String(), `"source":"save"`) })

	require.NoError(t, os.WriteFile(st.Path(), []byte(`{"theme":"light"}`), 0o600))
	eventually(t, func() bool { return strings.Contains(out.String(), `"source":"file"`) })

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.Contains(t, out.String(), `"hook":"config-watcher"`)
	assert.Contains(t, out.String(), "Shutdown hook completed")
}

func TestApp_CorruptFileAtStartupIsNotFatal(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	app, st, out, addr := newApp(t, false)
	require.NoError(t, os.MkdirAll(filepath.Dir(st.Path()), 0o700))
	require.NoError(t, os.WriteFile(st.Path(), []byte("{broken"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.NoError(t, waitForListen(addr, 2*time.Second))
	assert.Contains(t, out.String(), `"event":"config.load_failed"`)

	cancel()
	require.NoError(t, <-done)
}

func TestApp_ServerFailureStopsRun(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	app, _, _, addr := newApp(t, true)
	// Occupy the port so the bind fails.
	blocker, err := net.Listen("tcp", addr)
	require.NoError(t, err)
	defer func() { _ = blocker.Close() }()

	err = app.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen on")
}

func TestApp_MissingCollaborators(t *testing.T) {
	app := NewApp(testLogger(), nil, nil, false)
	assert.ErrorIs(t, app.Run(context.Background()), ErrMissingManager)

	mgr, err := NewManager(DefaultServerConfig("127.0.0.1:0"), Deps{Logger: testLogger(), APIHandler: okHandler()})
	require.NoError(t, err)
	app = NewApp(testLogger(), mgr, nil, false)
	assert.ErrorIs(t, app.Run(context.Background()), ErrMissingStore)
}
