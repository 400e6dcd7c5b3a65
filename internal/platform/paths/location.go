// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultFileName is the name of the settings file inside the per-application directory.
const DefaultFileName = "app.json"

var (
	// ErrNoHome is returned when neither the platform environment variable nor a
	// home directory is available to anchor the configuration directory.
	ErrNoHome = errors.New("no per-user configuration directory available")

	// ErrInvalidName is returned for application, vendor or file names that are
	// empty or would escape the configuration directory.
	ErrInvalidName = errors.New("invalid path component")
)

// Resolver derives the per-user configuration file location following the
// host OS convention. Every field is optional; the zero value uses the
// running process' GOOS, environment and home directory.
type Resolver struct {
	GOOS    string
	Getenv  func(string) string
	HomeDir func() (string, error)
}

// Location identifies the settings file of one application.
type Location struct {
	AppName  string
	Vendor   string // optional organisation directory above AppName
	FileName string // defaults to DefaultFileName
}

// ConfigDir returns the per-user configuration root for the platform:
//
//	linux:   $XDG_CONFIG_HOME or ~/.config
//	darwin:  ~/Library/Application Support
//	windows: %APPDATA% or ~\AppData\Roaming
func (r Resolver) ConfigDir() (string, error) {
	switch r.goos() {
	case "windows":
		if appData := r.getenv("APPDATA"); appData != "" {
			return appData, nil
		}
		home, err := r.home()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "AppData", "Roaming"), nil

	case "darwin", "ios":
		home, err := r.home()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support"), nil

	default:
		if xdg := r.getenv("XDG_CONFIG_HOME"); xdg != "" && filepath.IsAbs(xdg) {
			return xdg, nil
		}
		home, err := r.home()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config"), nil
	}
}

// Resolve returns the absolute path of the settings file for loc.
func (r Resolver) Resolve(loc Location) (string, error) {
	if err := validComponent(loc.AppName); err != nil {
		return "", fmt.Errorf("app name %q: %w", loc.AppName, err)
	}
	if loc.Vendor != "" {
		if err := validComponent(loc.Vendor); err != nil {
			return "", fmt.Errorf("vendor %q: %w", loc.Vendor, err)
		}
	}
	fileName := loc.FileName
	if fileName == "" {
		fileName = DefaultFileName
	}
	if err := validComponent(fileName); err != nil {
		return "", fmt.Errorf("file name %q: %w", fileName, err)
	}

	base, err := r.ConfigDir()
	if err != nil {
		return "", err
	}

	parts := []string{base}
	if loc.Vendor != "" {
		parts = append(parts, loc.Vendor)
	}
	parts = append(parts, loc.AppName, fileName)
	return filepath.Join(parts...), nil
}

// ResolveOverride validates an explicitly configured settings path. The file
// does not need to exist, but the path must not name a directory.
func ResolveOverride(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("config path: %w", ErrInvalidName)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	info, err := os.Stat(abs)
	switch {
	case err == nil && info.IsDir():
		return "", fmt.Errorf("config path points to directory: %s", abs)
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("stat config path: %w", err)
	}
	return abs, nil
}

func validComponent(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return ErrInvalidName
	}
	return nil
}

func (r Resolver) goos() string {
	if r.GOOS != "" {
		return r.GOOS
	}
	return runtime.GOOS
}

func (r Resolver) getenv(key string) string {
	if r.Getenv != nil {
		return r.Getenv(key)
	}
	return os.Getenv(key)
}

func (r Resolver) home() (string, error) {
	homeDir := r.HomeDir
	if homeDir == nil {
		homeDir = os.UserHomeDir
	}
	home, err := homeDir()
	if err != nil || home == "" {
		return "", ErrNoHome
	}
	return home, nil
}
