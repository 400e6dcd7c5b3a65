// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/settingsd/internal/platform/paths"
	"github.com/ManuGH/settingsd/internal/validate"
)

func TestLoadFromEnviron_Defaults(t *testing.T) {
	s, err := LoadFromEnviron(nil)
	require.NoError(t, err)

	assert.Equal(t, "settingsd", s.AppName)
	assert.Equal(t, "app.json", s.ConfigFile)
	assert.Equal(t, "127.0.0.1:4590", s.Listen)
	assert.True(t, s.Watch)
	assert.Equal(t, 120, s.RateLimit)
	assert.Equal(t, 250*time.Millisecond, s.Debounce)
	assert.Equal(t, 5*time.Second, s.ShutdownTimeout)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, "json", s.LogFormat)
	assert.Empty(t, s.AllowedOrigins)
	assert.Empty(t, s.OTLPEndpoint)
	assert.Equal(t, 1.0, s.TraceSampling)
}

func TestLoadFromEnviron_Overrides(t *testing.T) {
	s, err := LoadFromEnviron([]string{
		"SETTINGSD_APP_NAME=ExampleApp",
		"SETTINGSD_VENDOR=Acme",
		"SETTINGSD_CONFIG_FILE=app.yaml",
		"SETTINGSD_LISTEN=127.0.0.1:9000",
		"SETTINGSD_WATCH=false",
		"SETTINGSD_RATE_LIMIT=0",
		"SETTINGSD_ALLOWED_ORIGINS=tauri://localhost, http://localhost:5173/",
		"SETTINGSD_DEBOUNCE=1s",
		"SETTINGSD_OTLP_ENDPOINT= collector:4318 ",
		"SETTINGSD_OTLP_INSECURE=true",
		"SETTINGSD_TRACE_SAMPLING=0.25",
		"LOG_LEVEL=DEBUG",
		"LOG_FORMAT=console",
		"UNRELATED=1",
	})
	require.NoError(t, err)

	assert.Equal(t, "ExampleApp", s.AppName)
	assert.Equal(t, "Acme", s.Vendor)
	assert.Equal(t, "app.yaml", s.ConfigFile)
	assert.Equal(t, "127.0.0.1:9000", s.Listen)
	assert.False(t, s.Watch)
	assert.Equal(t, 0, s.RateLimit)
	assert.Equal(t, []string{"tauri://localhost", "http://localhost:5173"}, s.AllowedOrigins)
	assert.Equal(t, time.Second, s.Debounce)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, "console", s.LogFormat)
}

func TestLoadFromEnviron_Invalid(t *testing.T) {
	cases := map[string][]string{
		"empty app name":  {"SETTINGSD_APP_NAME= "},
		"bad listen":      {"SETTINGSD_LISTEN=nope"},
		"negative limit":  {"SETTINGSD_RATE_LIMIT=-1"},
		"unparsable int":  {"SETTINGSD_RATE_LIMIT=lots"},
		"unparsable bool": {"SETTINGSD_WATCH=sometimes"},
		"bad level":       {"LOG_LEVEL=loud"},
		"bad format":      {"LOG_FORMAT=xml"},
		"file with dirs":  {"SETTINGSD_CONFIG_FILE=../app.json"},
		"bad origin":      {"SETTINGSD_ALLOWED_ORIGINS=localhost"},
		"bad endpoint":    {"SETTINGSD_OTLP_ENDPOINT=collector"},
		"bad sampling":    {"SETTINGSD_TRACE_SAMPLING=2"},
	}
	for name, environ := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFromEnviron(environ)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidSettings)
		})
	}
}

func TestValidate_ReportsAllFields(t *testing.T) {
	s, err := LoadFromEnviron(nil)
	require.NoError(t, err)
	s.Listen = "x"
	s.RateLimit = -5

	err = s.Validate()
	require.Error(t, err)
	var ve validate.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Errors(), 2)
}

func TestValidate_ConfigPathSkipsNameChecks(t *testing.T) {
	s, err := LoadFromEnviron([]string{"SETTINGSD_CONFIG_PATH=/tmp/settings.json"})
	require.NoError(t, err)
	s.AppName = ""
	assert.NoError(t, s.Validate())
}

func TestFilePath(t *testing.T) {
	r := paths.Resolver{
		GOOS:    "linux",
		Getenv:  func(string) string { return "" },
		HomeDir: func() (string, error) { return "/home/ada", nil },
	}

	s, err := LoadFromEnviron([]string{"SETTINGSD_APP_NAME=ExampleApp"})
	require.NoError(t, err)
	got, err := s.FilePath(r)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/ada", ".config", "ExampleApp", "app.json"), got)

	override := filepath.Join(t.TempDir(), "custom.yaml")
	s.ConfigPath = override
	got, err = s.FilePath(r)
	require.NoError(t, err)
	assert.Equal(t, override, got)

	s.ConfigPath = t.TempDir()
	_, err = s.FilePath(r)
	assert.Error(t, err)
}

func TestSettingsLogMasksToken(t *testing.T) {
	s, err := LoadFromEnviron([]string{"SETTINGSD_TOKEN=supersecretvalue"})
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	logger.Info().Object("settings", s).Msg("")
	assert.NotContains(t, buf.String(), "supersecretvalue")
	assert.Contains(t, buf.String(), `"token":"su***"`)
	assert.Contains(t, buf.String(), `"listen":"127.0.0.1:4590"`)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "***", maskSecret("short"))
	assert.Equal(t, "ab***", maskSecret("abcdefghijk"))
}
