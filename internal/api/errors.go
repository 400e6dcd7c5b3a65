// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"

	"github.com/ManuGH/settingsd/internal/invoke"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeFailure writes f with the status its kind maps to
func writeFailure(w http.ResponseWriter, f invoke.Failure) {
	writeJSON(w, statusFor(f.Kind), failureResponse{Error: f})
}

// statusFor maps a failure kind to an HTTP status.
func statusFor(kind string) int {
	switch kind {
	case invoke.KindBadArguments, invoke.KindParse:
		return http.StatusBadRequest
	case invoke.KindUnknownCommand:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
