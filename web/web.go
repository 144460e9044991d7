// Package web provides the HTTP surface of the registry: the content API,
// session endpoints and the middleware plugins mounted through the [stack]
// configuration.
package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/registryhq/registry/stack"
)

// apiResponse is the envelope of every JSON response.
type apiResponse struct {
	Success bool   `json:"success"`
	Results any    `json:"results,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func writeResults(w http.ResponseWriter, results any) {
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Results: results})
}

func writeCounted(w http.ResponseWriter, results any, count int) {
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Results: results, Count: &count})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiResponse{Success: false, Error: msg})
}

// sessionToken extracts the session token from the request: the
// X-Session-Token header or the session_token query parameter.
func sessionToken(r *http.Request) string {
	if tok := r.Header.Get("X-Session-Token"); tok != "" {
		return tok
	}
	return r.URL.Query().Get("session_token")
}

// requireSession wraps a handler with session verification. The verified
// client name is passed to the handler.
func requireSession(env *stack.Env, next func(w http.ResponseWriter, r *http.Request, clientName string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := env.Sessions.Verify(r.Context(), sessionToken(r))
		if err != nil {
			env.Logger.Error().Err(err).Msg("session verification failed")
			writeError(w, http.StatusInternalServerError, "unknown error")
			return
		}
		if !result.Verified {
			if env.Metrics != nil {
				env.Metrics.AuthFailures.Inc()
			}
			writeError(w, http.StatusUnauthorized, result.Reason)
			return
		}
		next(w, r, result.Session.ClientName)
	}
}

// RequestLog is the middleware plugin registered as
// registry.plugins.request_log.
func RequestLog(env *stack.Env) func(http.Handler) http.Handler {
	logger := env.Logger
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.status).
				Dur("elapsed", time.Since(start)).
				Msg("request")
			if env.Metrics != nil {
				env.Metrics.RequestsTotal.WithLabelValues(
					r.Method, r.URL.Path, strconv.Itoa(ww.status)).Inc()
				env.Metrics.RequestDuration.WithLabelValues(
					r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
			}
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
