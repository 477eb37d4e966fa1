package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/jejulab/landmass/internal/apperr"
)

// envelope is the uniform response shape for every endpoint.
type envelope struct {
	Success bool        `json:"success"`
	Data    any         `json:"data,omitempty"`
	Error   apperr.Kind `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("encode response failed", zap.Error(err))
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, kind apperr.Kind, message string) {
	writeJSON(w, status, envelope{Success: false, Error: kind, Message: message})
}

// writeAppError maps the error kind to an HTTP status.
func writeAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case apperr.KindNotFound, apperr.KindParcelNotFound:
		status = http.StatusNotFound
	case apperr.KindInvalidInput:
		status = http.StatusBadRequest
	case apperr.KindInvalidSetbacks:
		status = http.StatusUnprocessableEntity
	case apperr.KindUpstreamUnavailable:
		status = http.StatusBadGateway
	}
	if kind == "" {
		kind = "INTERNAL"
		zap.L().Error("unhandled error", zap.Error(err))
	}
	writeError(w, status, kind, apperr.MessageOf(err))
}
