// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func waitForChange(t *testing.T, ch <-chan Change, source string) Change {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-ch:
			if c.Source == source {
				return c
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q change", source)
		}
	}
}

func TestWatch_PublishesExternalEdits(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newTestStore(t, "app.json", WithDebounce(20*time.Millisecond))
	require.NoError(t, s.Save(ctx, docOf(t, `{"theme": "dark"}`)))

	ch := make(chan Change, 8)
	s.Subscribe(ch)
	require.NoError(t, s.Watch(ctx))

	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"theme": "light", "telemetry": true}`), 0o600))

	c := waitForChange(t, ch, "file")
	assert.Equal(t, []string{"telemetry", "theme"}, c.Keys)
	v, _ := c.New.Get("theme")
	assert.Equal(t, "light", v.StringValue())
	v, _ = c.Old.Get("theme")
	assert.Equal(t, "dark", v.StringValue())

	cancel()
	s.Wait()
}

func TestWatch_OwnSavesAreNotRepublished(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newTestStore(t, "app.json", WithDebounce(10*time.Millisecond))
	require.NoError(t, s.Watch(ctx))

	ch := make(chan Change, 8)
	s.Subscribe(ch)
	require.NoError(t, s.Save(ctx, docOf(t, `{"a": 1}`)))
	assert.Equal(t, "save", waitForChange(t, ch, "save").Source)

	time.Sleep(200 * time.Millisecond)
	for len(ch) > 0 {
		c := <-ch
		assert.NotEqual(t, "file", c.Source, "own save was republished")
	}

	cancel()
	s.Wait()
}

func TestWatch_CorruptEditKeepsSnapshot(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newTestStore(t, "app.json", WithDebounce(10*time.Millisecond))
	require.NoError(t, s.Save(ctx, docOf(t, `{"a": 1}`)))
	require.NoError(t, s.Watch(ctx))

	ch := make(chan Change, 8)
	s.Subscribe(ch)

	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"a": `), 0o600))
	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, ch)

	// A later valid edit is diffed against the last good document.
	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"a": 2}`), 0o600))
	c := waitForChange(t, ch, "file")
	assert.Equal(t, []string{"a"}, c.Keys)
	v, _ := c.Old.Get("a")
	assert.Equal(t, float64(1), v.Float64Value())

	cancel()
	s.Wait()
}

func TestWatch_RemovedFileResetsToDefaults(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newTestStore(t, "app.json", WithDebounce(10*time.Millisecond))
	require.NoError(t, s.Save(ctx, docOf(t, `{"a": 1}`)))
	require.NoError(t, s.Watch(ctx))

	ch := make(chan Change, 8)
	s.Subscribe(ch)

	require.NoError(t, os.Remove(s.Path()))
	c := waitForChange(t, ch, "file")
	assert.Equal(t, 0, c.New.Len())

	cancel()
	s.Wait()
}

func TestReload_PublishesOnlyOnDifference(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "app.json")
	require.NoError(t, s.Save(ctx, docOf(t, `{"theme": "dark"}`)))

	ch := make(chan Change, 4)
	s.Subscribe(ch)

	require.NoError(t, s.Reload(ctx))
	select {
	case c := <-ch:
		t.Fatalf("unexpected change from unchanged file: %+v", c.Keys)
	default:
	}

	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"theme": "light"}`), 0o600))
	require.NoError(t, s.Reload(ctx))
	c := waitForChange(t, ch, "file")
	assert.Equal(t, []string{"theme"}, c.Keys)
}
