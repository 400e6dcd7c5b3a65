// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"

	"github.com/ManuGH/settingsd/internal/platform/paths"
	"github.com/ManuGH/settingsd/internal/validate"
)

// ErrInvalidSettings classifies every settings validation failure.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the daemon's process configuration.
type Settings struct {
	AppName    string `env:"SETTINGSD_APP_NAME" envDefault:"settingsd"`
	Vendor     string `env:"SETTINGSD_VENDOR"`
	ConfigFile string `env:"SETTINGSD_CONFIG_FILE" envDefault:"app.json"`
	ConfigPath string `env:"SETTINGSD_CONFIG_PATH"` // bypasses per-OS derivation

	Listen          string        `env:"SETTINGSD_LISTEN" envDefault:"127.0.0.1:4590"`
	Token           string        `env:"SETTINGSD_TOKEN"`
	AllowedOrigins  []string      `env:"SETTINGSD_ALLOWED_ORIGINS" envSeparator:","`
	RateLimit       int           `env:"SETTINGSD_RATE_LIMIT" envDefault:"120"`
	ShutdownTimeout time.Duration `env:"SETTINGSD_SHUTDOWN_TIMEOUT" envDefault:"5s"`

	Watch    bool          `env:"SETTINGSD_WATCH" envDefault:"true"`
	Debounce time.Duration `env:"SETTINGSD_DEBOUNCE" envDefault:"250ms"`

	OTLPEndpoint  string  `env:"SETTINGSD_OTLP_ENDPOINT"` // empty disables tracing
	OTLPInsecure  bool    `env:"SETTINGSD_OTLP_INSECURE" envDefault:"false"`
	TraceSampling float64 `env:"SETTINGSD_TRACE_SAMPLING" envDefault:"1"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// LoadFromEnviron reads Settings from KEY=VALUE pairs. Unset keys take their
// defaults; the result is validated.
func LoadFromEnviron(environ []string) (Settings, error) {
	vars := make(map[string]string, len(environ))
	for _, pair := range environ {
		k, v, ok := strings.Cut(pair, "=")
		if ok {
			vars[k] = v
		}
	}

	var s Settings
	if err := env.Parse(&s, env.Options{Environment: vars}); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	s.normalize()
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s *Settings) normalize() {
	s.AppName = strings.TrimSpace(s.AppName)
	s.Vendor = strings.TrimSpace(s.Vendor)
	s.ConfigPath = strings.TrimSpace(s.ConfigPath)
	s.OTLPEndpoint = strings.TrimSpace(s.OTLPEndpoint)
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))
	s.LogFormat = strings.ToLower(strings.TrimSpace(s.LogFormat))
	origins := s.AllowedOrigins[:0]
	for _, o := range s.AllowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	s.AllowedOrigins = origins
}

// Validate reports every invalid field at once.
func (s Settings) Validate() error {
	v := validate.New()

	if s.ConfigPath == "" {
		v.NotEmpty("AppName", s.AppName)
		v.FileName("ConfigFile", s.ConfigFile)
	}
	v.ListenAddr("Listen", s.Listen)
	v.NonNegative("RateLimit", s.RateLimit)
	v.DurationRange("Debounce", s.Debounce, 0, time.Minute)
	v.DurationRange("ShutdownTimeout", s.ShutdownTimeout, time.Second, 5*time.Minute)
	v.OneOf("LogLevel", s.LogLevel, validate.LogLevels)
	v.OneOf("LogFormat", s.LogFormat, validate.LogFormats)
	for _, o := range s.AllowedOrigins {
		v.Origin("AllowedOrigins", o)
	}
	if s.OTLPEndpoint != "" {
		v.HostPort("OTLPEndpoint", s.OTLPEndpoint)
	}
	v.Ratio("TraceSampling", s.TraceSampling)

	if err := v.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	return nil
}

// FilePath returns the settings document location: ConfigPath when set,
// otherwise the per-user path derived by r.
func (s Settings) FilePath(r paths.Resolver) (string, error) {
	if s.ConfigPath != "" {
		return paths.ResolveOverride(s.ConfigPath)
	}
	return r.Resolve(paths.Location{
		AppName:  s.AppName,
		Vendor:   s.Vendor,
		FileName: s.ConfigFile,
	})
}
