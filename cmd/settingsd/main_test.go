// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/settingsd/internal/version"
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

func reserveListenAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func waitForListen(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return errors.New("listen timeout")
}

func TestRunServe_Version(t *testing.T) {
	var out bytes.Buffer
	code := runServe(context.Background(), []string{"-version"}, nil, &out, io.Discard)
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), version.Version)
}

func TestRunServe_InvalidSettings(t *testing.T) {
	var errOut bytes.Buffer
	code := runServe(context.Background(), nil, []string{"SETTINGSD_LISTEN=nope"}, io.Discard, &errOut)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), "Listen")

	errOut.Reset()
	code = runServe(context.Background(), []string{"-listen", "bad"}, nil, io.Discard, &errOut)
	assert.Equal(t, 1, code)
}

func TestRunServe_BadFlag(t *testing.T) {
	code := runServe(context.Background(), []string{"-nope"}, nil, io.Discard, io.Discard)
	assert.Equal(t, 2, code)
}

func TestRunServe_EndToEnd(t *testing.T) {
	addr := reserveListenAddr(t)
	path := filepath.Join(t.TempDir(), "ExampleApp", "app.json")
	logs := &syncBuffer{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() {
		done <- runServe(ctx, []string{"-config", path, "-watch=false"}, []string{
			"SETTINGSD_LISTEN=" + addr,
			"LOG_LEVEL=debug",
		}, io.Discard, logs)
	}()
	require.NoError(t, waitForListen(addr, 5*time.Second), logs.String())

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: 5 * time.Second}
	post := func(command, body string) (int, string) {
		resp, err := client.Post("http://"+addr+"/invoke/"+command, "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(raw)
	}

	code, body := post("load_config", "")
	require.Equal(t, http.StatusOK, code, body)
	assert.JSONEq(t, `{"result":{}}`, body)

	code, body = post("save_config", `{"config":{"telemetry":true}}`)
	require.Equal(t, http.StatusOK, code, body)

	code, body = post("load_config", "")
	require.Equal(t, http.StatusOK, code)
	var resp struct {
		Result map[string]any `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, map[string]any{"telemetry": true}, resp.Result)

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, 0, code, logs.String())
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
	assert.Contains(t, logs.String(), `"event":"startup"`)
}

func TestRunServe_Readiness(t *testing.T) {
	addr := reserveListenAddr(t)
	path := filepath.Join(t.TempDir(), "app.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() {
		done <- runServe(ctx, []string{"-config", path, "-watch=false"}, []string{"SETTINGSD_LISTEN=" + addr}, io.Discard, &syncBuffer{})
	}()
	require.NoError(t, waitForListen(addr, 5*time.Second))

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + addr + "/readyz")
	require.NoError(t, err)
	var body struct {
		Ready  bool   `json:"ready"`
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body.Ready)
	assert.Equal(t, "degraded", body.Status)

	cancel()
	assert.Equal(t, 0, <-done)
}
