package web

import (
	"encoding/json"
	"net/http"
	"time"

	"aura.app/internal/gateway"
	"aura.app/internal/platform"
	"aura.app/internal/views"
)

const serviceName = "aura-console"

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": s.version,
	})
}

// ready reports whether the API answers its health check.
func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	env := views.NewEnv(s.apiBaseFor(r), s.client, platform.NewMemoryStorage(), &platform.Recorder{})
	ctx, cancel := s.withTimeout(r)
	defer cancel()
	if err := env.API.Health(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  views.Message(err),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":     serviceName,
		"time":     time.Now().UTC().Format(time.RFC3339),
		"version":  s.version,
		"api_base": s.apiBaseFor(r),
	})
}

func (s *Server) apiBaseFor(r *http.Request) string {
	if s.apiBase != "" {
		return s.apiBase
	}
	return gateway.BaseURLFor(r)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}
