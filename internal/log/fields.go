// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldCommand   = "command"
	FieldTraceID   = "trace_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldSource    = "source"

	// Path fields
	FieldPath   = "path"
	FieldCodec  = "codec"
	FieldKeys   = "keys"
	FieldLength = "len"

	// Timing
	FieldDurationMS = "duration_ms"

	// HTTP
	FieldMethod = "method"
	FieldStatus = "status"
	FieldRoute  = "route"
)
