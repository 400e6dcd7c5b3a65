// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "config" {
		os.Exit(runConfigCLI(args[1:], os.Environ(), os.Stdout, os.Stderr))
	}
	if len(args) > 0 && args[0] == "serve" {
		args = args[1:]
	}

	// Create a context that listens for the interrupt signal from the OS
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(runServe(ctx, args, os.Environ(), os.Stdout, os.Stderr))
}
