// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := runConfigCLI(args, nil, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestConfigCLI_Usage(t *testing.T) {
	code, _, errOut := runCLI(t)
	assert.Equal(t, 0, code)
	assert.Contains(t, errOut, "settingsd config show")

	code, _, errOut = runCLI(t, "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "Unknown subcommand")
}

func TestConfigCLI_Path(t *testing.T) {
	resolverBackup := resolver
	t.Cleanup(func() { resolver = resolverBackup })
	home := t.TempDir()
	resolver.GOOS = "linux"
	resolver.Getenv = func(string) string { return "" }
	resolver.HomeDir = func() (string, error) { return home, nil }

	var out bytes.Buffer
	code := runConfigCLI([]string{"path"}, []string{"SETTINGSD_APP_NAME=ExampleApp"}, &out, &bytes.Buffer{})
	require.Equal(t, 0, code)
	assert.Equal(t, filepath.Join(home, ".config", "ExampleApp", "app.json"), strings.TrimSpace(out.String()))
}

func TestConfigCLI_SetGetShowDelete(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.json")

	code, _, errOut := runCLI(t, "set", "-f", file, "theme", "dark")
	require.Equal(t, 0, code, errOut)
	code, _, errOut = runCLI(t, "set", "-f", file, "volume", "7")
	require.Equal(t, 0, code, errOut)

	code, out, _ := runCLI(t, "get", "-f", file, "theme")
	require.Equal(t, 0, code)
	assert.Equal(t, `"dark"`, strings.TrimSpace(out))

	code, out, _ = runCLI(t, "show", "-f", file)
	require.Equal(t, 0, code)
	assert.JSONEq(t, `{"theme":"dark","volume":7}`, out)

	code, out, _ = runCLI(t, "show", "-f", file, "--format", "yaml")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "theme: dark")

	code, _, _ = runCLI(t, "delete", "-f", file, "theme")
	require.Equal(t, 0, code)
	code, _, errOut = runCLI(t, "get", "-f", file, "theme")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not set")
}

func TestConfigCLI_Validate(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.json")

	code, out, _ := runCLI(t, "validate", "-f", file)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "is valid")

	require.NoError(t, os.WriteFile(file, []byte("{broken"), 0o600))
	code, _, errOut := runCLI(t, "validate", "-f", file)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "parse")
}

func TestConfigCLI_ArgumentErrors(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.json")
	code, _, _ := runCLI(t, "get", "-f", file)
	assert.Equal(t, 2, code)
	code, _, _ = runCLI(t, "set", "-f", file, "only-key")
	assert.Equal(t, 2, code)
	code, _, _ = runCLI(t, "show", "-f", file, "--format", "toml")
	assert.Equal(t, 2, code)
}

func TestParseCLIValue(t *testing.T) {
	assert.Equal(t, `"dark"`, parseCLIValue("dark").JSONString())
	assert.Equal(t, `7`, parseCLIValue("7").JSONString())
	assert.Equal(t, `true`, parseCLIValue("true").JSONString())
	assert.Equal(t, `{"a":[1]}`, parseCLIValue(`{"a":[1]}`).JSONString())
}
