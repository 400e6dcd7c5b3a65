// SPDX-License-Identifier: MIT

package config

import "github.com/rs/zerolog"

// maskSecret hides all but a short prefix of secret values.
func maskSecret(v string) string {
	switch {
	case v == "":
		return ""
	case len(v) <= 8:
		return "***"
	default:
		return v[:2] + "***"
	}
}

// MarshalZerologObject logs the settings with secrets masked.
func (s Settings) MarshalZerologObject(e *zerolog.Event) {
	e.Str("app_name", s.AppName).
		Str("vendor", s.Vendor).
		Str("config_file", s.ConfigFile).
		Str("config_path", s.ConfigPath).
		Str("listen", s.Listen).
		Str("token", maskSecret(s.Token)).
		Strs("allowed_origins", s.AllowedOrigins).
		Int("rate_limit", s.RateLimit).
		Bool("watch", s.Watch).
		Dur("debounce", s.Debounce).
		Str("otlp_endpoint", s.OTLPEndpoint).
		Float64("trace_sampling", s.TraceSampling).
		Str("log_level", s.LogLevel).
		Str("log_format", s.LogFormat)
}
