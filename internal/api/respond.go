package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// BuildHeader names the build every response was served from.
const BuildHeader = "X-Ansuz-Build"

// apiError is the body of every error response.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respond writes v as JSON, stamped with the build it came from so clients
// can tell stale reads apart after a rebuild.
func (h *Handler) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if m := h.svc.Last(); m != nil {
		w.Header().Set(BuildHeader, m.BuildID)
	}
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", slog.String("error", err.Error()))
	}
}

func (h *Handler) reject(w http.ResponseWriter, status int, code, msg string) {
	h.respond(w, status, apiError{Code: code, Message: msg})
}
