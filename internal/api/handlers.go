// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/settingsd/internal/invoke"
)

type invokeResponse struct {
	Result any `json:"result"`
}

type failureResponse struct {
	Error invoke.Failure `json:"error"`
}

func (s *server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			writeJSON(w, http.StatusUnsupportedMediaType, failureResponse{Error: invoke.Failure{
				Kind:    invoke.KindBadArguments,
				Message: "content type must be application/json",
			}})
			return
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, failureResponse{Error: invoke.Failure{
			Kind:    invoke.KindBadArguments,
			Message: fmt.Sprintf("read body: %v", err),
		}})
		return
	}

	result, err := s.inv.Invoke(r.Context(), chi.URLParam(r, "command"), json.RawMessage(body))
	if err != nil {
		writeFailure(w, invoke.FailureFrom(err))
		return
	}
	writeJSON(w, http.StatusOK, invokeResponse{Result: result})
}

func (s *server) handleCommands(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"commands": s.inv.Commands()})
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
