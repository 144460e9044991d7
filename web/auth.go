package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/registryhq/registry/app"
	"github.com/registryhq/registry/stack"
)

// AuthRoutes is the route table registered as registry.routes.auth.
func AuthRoutes(env *stack.Env) []stack.Route {
	h := &authHandler{env: env}
	return []stack.Route{
		{Name: "auth:login", Method: http.MethodPost, Path: "/auth/login", Handler: h.login},
		{Name: "auth:logout", Method: http.MethodPost, Path: "/auth/logout", Handler: requireSession(env, h.logout)},
	}
}

// MetricsRoutes exposes the Prometheus scrape endpoint, registered as
// registry.routes.metrics.
func MetricsRoutes(env *stack.Env) []stack.Route {
	return []stack.Route{
		{Name: "metrics", Method: http.MethodGet, Path: "/metrics", Handler: promhttp.Handler().ServeHTTP},
	}
}

type authHandler struct {
	env *stack.Env
}

type loginRequest struct {
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

type sessionJSON struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Name == "" || req.Secret == "" {
		writeError(w, http.StatusBadRequest, "`name` and `secret` must be specified")
		return
	}

	sess, err := h.env.Sessions.Login(r.Context(), req.Name, req.Secret)
	if errors.Is(err, app.ErrBadCredentials) {
		if h.env.Metrics != nil {
			h.env.Metrics.AuthFailures.Inc()
		}
		writeError(w, http.StatusUnauthorized, "bad credentials")
		return
	}
	if err != nil {
		h.env.Logger.Error().Err(err).Str("client", req.Name).Msg("login failed")
		writeError(w, http.StatusInternalServerError, "unknown error")
		return
	}
	writeResults(w, []sessionJSON{{Token: sess.Token, ExpiresAt: sess.ExpiresAt}})
}

func (h *authHandler) logout(w http.ResponseWriter, r *http.Request, clientName string) {
	if err := h.env.Sessions.Logout(r.Context(), sessionToken(r)); err != nil {
		writeError(w, http.StatusInternalServerError, "unknown error")
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true})
}
