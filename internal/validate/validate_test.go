// SPDX-License-Identifier: MIT

package validate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Accumulates(t *testing.T) {
	v := New()
	assert.True(t, v.IsValid())
	assert.NoError(t, v.Err())

	v.NotEmpty("AppName", "  ")
	v.NonNegative("RateLimit", -1)
	require.False(t, v.IsValid())

	err := v.Err()
	require.Error(t, err)
	var ve ValidationError
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Errors(), 2)
	assert.Equal(t, "AppName", ve.Errors()[0].Field)
	assert.Contains(t, err.Error(), "RateLimit")
	assert.Contains(t, err.Error(), "; ")
}

func TestListenAddr(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:4590": true,
		"localhost:80":   true,
		":8080":          true,
		"[::1]:4590":     true,
		"127.0.0.1":      false,
		"127.0.0.1:0":    false,
		"127.0.0.1:x":    false,
		"example.com:80": false,
		"":               false,
	}
	for addr, ok := range cases {
		v := New()
		v.ListenAddr("Listen", addr)
		assert.Equal(t, ok, v.IsValid(), addr)
	}
}

func TestOrigin(t *testing.T) {
	cases := map[string]bool{
		"tauri://localhost":       true,
		"http://localhost:5173":   true,
		"https://tauri.localhost": true,
		"localhost":               false,
		"http://host/path":        false,
		"http://host?x=1":         false,
	}
	for origin, ok := range cases {
		v := New()
		v.Origin("AllowedOrigins", origin)
		assert.Equal(t, ok, v.IsValid(), origin)
	}
}

func TestPathsAndNames(t *testing.T) {
	v := New()
	v.FileName("ConfigFile", "app.json")
	v.OneOf("LogFormat", "json", LogFormats)
	v.DurationRange("Debounce", 250*time.Millisecond, 0, time.Minute)
	assert.True(t, v.IsValid())

	v = New()
	v.FileName("ConfigFile", "../app.json")
	v.FileName("ConfigFile", "")
	v.OneOf("LogFormat", "xml", LogFormats)
	v.DurationRange("Debounce", 2*time.Minute, 0, time.Minute)
	assert.Len(t, v.Errors(), 4)
}

func TestLogLevel(t *testing.T) {
	for _, l := range LogLevels {
		assert.True(t, LogLevel(l).IsValid(), l)
	}
	assert.False(t, LogLevel("trace").IsValid())
}

func TestRatio(t *testing.T) {
	for value, ok := range map[float64]bool{0: true, 0.25: true, 1: true, -0.1: false, 1.5: false} {
		v := New()
		v.Ratio("Sampling", value)
		assert.Equal(t, ok, v.IsValid(), "%g", value)
	}
}

func TestHostPort(t *testing.T) {
	cases := map[string]bool{
		"collector:4318":  true,
		"127.0.0.1:4318":  true,
		"[::1]:4318":      true,
		":4318":           false,
		"collector":       false,
		"collector:0":     false,
		"collector:http":  false,
		"collector:70000": false,
	}
	for addr, ok := range cases {
		v := New()
		v.HostPort("Endpoint", addr)
		assert.Equal(t, ok, v.IsValid(), addr)
	}
}
