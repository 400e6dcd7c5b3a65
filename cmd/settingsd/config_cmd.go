// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"github.com/ManuGH/settingsd/internal/config"
	"github.com/ManuGH/settingsd/internal/document"
	xglog "github.com/ManuGH/settingsd/internal/log"
	"github.com/ManuGH/settingsd/internal/version"
)

func runConfigCLI(args, environ []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stderr)
		return 0
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "path", "show", "get", "set", "delete", "validate":
	default:
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", sub)
		printConfigUsage(stderr)
		return 2
	}

	fs := flag.NewFlagSet("settingsd config "+sub, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var file, format string
	fs.StringVar(&file, "file", "", "settings file path (overrides SETTINGSD_CONFIG_PATH)")
	fs.StringVar(&file, "f", "", "settings file path (shorthand)")
	if sub == "show" {
		fs.StringVar(&format, "format", "json", "output format: json or yaml")
	}
	if err := fs.Parse(rest); err != nil {
		return 2
	}

	settings, err := loadSettings(environ, func(s *config.Settings) {
		if strings.TrimSpace(file) != "" {
			s.ConfigPath = file
		}
	})
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error:\n  %v\n", err)
		return 1
	}
	// Keep CLI output free of store log lines.
	xglog.Configure(xglog.Config{Level: "error", Output: stderr, Version: version.Version})

	st, err := openStore(settings)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	ctx := context.Background()

	switch sub {
	case "path":
		fmt.Fprintln(stdout, st.Path())
		return 0

	case "validate":
		if _, err := st.Load(ctx); err != nil {
			fmt.Fprintf(stderr, "Settings error in %s:\n  %v\n", st.Path(), err)
			return 1
		}
		fmt.Fprintf(stdout, "%s is valid\n", st.Path())
		return 0

	case "show":
		doc, err := st.Load(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		var codec document.Codec
		switch strings.ToLower(strings.TrimSpace(format)) {
		case "json":
			codec = document.JSONCodec{}
		case "yaml", "yml":
			codec = document.YAMLCodec{}
		default:
			fmt.Fprintf(stderr, "Error: unsupported format %q\n", format)
			return 2
		}
		out, err := codec.Encode(doc)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to encode %s: %v\n", codec.Name(), err)
			return 1
		}
		_, _ = stdout.Write(out)
		return 0

	case "get":
		if fs.NArg() != 1 {
			fmt.Fprintln(stderr, "Usage: settingsd config get <key>")
			return 2
		}
		v, found, err := st.Get(ctx, fs.Arg(0))
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if !found {
			fmt.Fprintf(stderr, "Key %q is not set\n", fs.Arg(0))
			return 1
		}
		fmt.Fprintln(stdout, v.JSONString())
		return 0

	case "set":
		if fs.NArg() != 2 {
			fmt.Fprintln(stderr, "Usage: settingsd config set <key> <value>")
			return 2
		}
		if _, err := st.Set(ctx, fs.Arg(0), parseCLIValue(fs.Arg(1))); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0

	case "delete":
		if fs.NArg() != 1 {
			fmt.Fprintln(stderr, "Usage: settingsd config delete <key>")
			return 2
		}
		if _, err := st.Delete(ctx, fs.Arg(0)); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}
	return 2
}

// parseCLIValue reads raw as JSON and falls back to a plain string, so
// `set theme dark` and `set volume 7` both do what they look like.
func parseCLIValue(raw string) ldvalue.Value {
	var v ldvalue.Value
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return ldvalue.String(raw)
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  settingsd config path     [--file|-f app.json]")
	fmt.Fprintln(w, "  settingsd config show     [--file|-f app.json] [--format=json|yaml]")
	fmt.Fprintln(w, "  settingsd config get      [--file|-f app.json] <key>")
	fmt.Fprintln(w, "  settingsd config set      [--file|-f app.json] <key> <json-or-string>")
	fmt.Fprintln(w, "  settingsd config delete   [--file|-f app.json] <key>")
	fmt.Fprintln(w, "  settingsd config validate [--file|-f app.json]")
}
