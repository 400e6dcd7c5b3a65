// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config holds the daemon's process settings. These are distinct
// from the application documents the store persists: they decide where that
// document lives and how the daemon serves it.
//
// Settings are read from the environment and may be overridden by flags.
package config
