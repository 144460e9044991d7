package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/registryhq/registry/app"
	"github.com/registryhq/registry/domain/content"
	"github.com/registryhq/registry/ports"
	"github.com/registryhq/registry/stack"
)

// ContentRoutes is the route table registered as registry.routes.content.
func ContentRoutes(env *stack.Env) []stack.Route {
	h := &contentHandler{env: env}
	return []stack.Route{
		{Name: "content:list", Method: http.MethodGet, Path: "/content", Handler: requireSession(env, h.list)},
		{Name: "content:add", Method: http.MethodPost, Path: "/content", Handler: requireSession(env, h.add)},
		{Name: "content:download", Method: http.MethodGet, Path: "/content/{id}", Handler: h.download},
		{Name: "content:info", Method: http.MethodGet, Path: "/content/{id}/info", Handler: requireSession(env, h.info)},
		{Name: "content:history", Method: http.MethodGet, Path: "/content/{id}/history", Handler: requireSession(env, h.history)},
		{Name: "content:update", Method: http.MethodPut, Path: "/content/{id}", Handler: requireSession(env, h.update)},
		{Name: "content:delete", Method: http.MethodDelete, Path: "/content/{id}", Handler: requireSession(env, h.delete)},
	}
}

type contentHandler struct {
	env *stack.Env
}

// fileJSON is the wire form of a file entry.
type fileJSON struct {
	ID         string     `json:"id"`
	Path       string     `json:"path"`
	ServePath  string     `json:"serve_path"`
	Size       int64      `json:"size"`
	Category   string     `json:"category,omitempty"`
	Uploaded   time.Time  `json:"uploaded"`
	Modified   time.Time  `json:"modified"`
	Expiration *time.Time `json:"expiration,omitempty"`
	Alive      bool       `json:"alive"`
}

func toFileJSON(f content.File) fileJSON {
	return fileJSON{
		ID:         f.ID,
		Path:       f.Path,
		ServePath:  f.ServePath,
		Size:       f.Size,
		Category:   f.Category,
		Uploaded:   f.Uploaded,
		Modified:   f.Modified,
		Expiration: f.Expiration,
		Alive:      f.Alive,
	}
}

func (h *contentHandler) list(w http.ResponseWriter, r *http.Request, clientName string) {
	filters, err := filtersFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	files, err := h.env.Content.List(r.Context(), filters)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out := make([]fileJSON, 0, len(files))
	for _, f := range files {
		out = append(out, toFileJSON(f))
	}
	writeCounted(w, out, len(out))
}

type addRequest struct {
	Path       string     `json:"path"`
	ServePath  string     `json:"serve_path"`
	Category   string     `json:"category"`
	Expiration *time.Time `json:"expiration"`
}

func (h *contentHandler) add(w http.ResponseWriter, r *http.Request, clientName string) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Path == "" || req.ServePath == "" {
		writeError(w, http.StatusBadRequest, "`path` and `serve_path` must be specified")
		return
	}

	f, err := h.env.Content.Add(r.Context(), clientName, app.AddParams{
		Path:       req.Path,
		ServePath:  req.ServePath,
		Category:   req.Category,
		Expiration: req.Expiration,
	})
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, app.ErrDuplicateServePath) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}
	h.countOperation(content.ActionAdd)
	writeResults(w, []fileJSON{toFileJSON(f)})
}

func (h *contentHandler) countOperation(action string) {
	if h.env.Metrics != nil {
		h.env.Metrics.ContentOperations.WithLabelValues(action).Inc()
	}
}

func (h *contentHandler) download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f, err := h.env.Content.Get(r.Context(), content.Filters{ID: id})
	if errors.Is(err, ports.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		h.env.Logger.Error().Err(err).Str("id", id).Msg("content lookup failed")
		writeError(w, http.StatusInternalServerError, "unknown error")
		return
	}

	root := h.env.Content.RootPath()
	rel, err := filepath.Rel(root, f.Path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if _, err := os.Stat(f.Path); err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filepath.Base(f.Path)+"\"")
	http.ServeFile(w, r, f.Path)
}

func (h *contentHandler) info(w http.ResponseWriter, r *http.Request, clientName string) {
	f, err := h.env.Content.Get(r.Context(), content.Filters{ID: chi.URLParam(r, "id")})
	if errors.Is(err, ports.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "unknown error")
		return
	}
	writeResults(w, []fileJSON{toFileJSON(f)})
}

type actionJSON struct {
	FileID       string    `json:"file_id"`
	ClientName   string    `json:"client_name"`
	Action       string    `json:"action"`
	ActionParams string    `json:"action_params,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func (h *contentHandler) history(w http.ResponseWriter, r *http.Request, clientName string) {
	actions, err := h.env.Content.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "unknown error")
		return
	}
	out := make([]actionJSON, 0, len(actions))
	for _, a := range actions {
		out = append(out, actionJSON{
			FileID:       a.FileID,
			ClientName:   a.ClientName,
			Action:       a.Action,
			ActionParams: a.ActionParams,
			Timestamp:    a.Timestamp,
		})
	}
	writeCounted(w, out, len(out))
}

type updateRequest struct {
	Path       *string    `json:"path"`
	ServePath  *string    `json:"serve_path"`
	Category   *string    `json:"category"`
	Expiration *time.Time `json:"expiration"`
	Alive      *bool      `json:"alive"`
}

func (h *contentHandler) update(w http.ResponseWriter, r *http.Request, clientName string) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	f, err := h.env.Content.Update(r.Context(), clientName, chi.URLParam(r, "id"), content.Update{
		Path:       req.Path,
		ServePath:  req.ServePath,
		Category:   req.Category,
		Expiration: req.Expiration,
		Alive:      req.Alive,
	})
	if errors.Is(err, ports.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.countOperation(content.ActionUpdate)
	writeResults(w, []fileJSON{toFileJSON(f)})
}

func (h *contentHandler) delete(w http.ResponseWriter, r *http.Request, clientName string) {
	err := h.env.Content.Delete(r.Context(), clientName, chi.URLParam(r, "id"))
	if errors.Is(err, ports.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.countOperation(content.ActionDelete)
	writeJSON(w, http.StatusOK, apiResponse{Success: true})
}

// filtersFromQuery builds listing filters from query parameters.
func filtersFromQuery(r *http.Request) (content.Filters, error) {
	q := r.URL.Query()
	filters := content.Filters{
		ID:        q.Get("id"),
		Path:      q.Get("path"),
		ServePath: q.Get("serve_path"),
		Category:  q.Get("category"),
	}
	if v := q.Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return content.Filters{}, errors.New("count must be an integer")
		}
		filters.Count = n
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return content.Filters{}, errors.New("since must be an RFC 3339 timestamp")
		}
		filters.Since = t
	}
	if v := q.Get("alive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return content.Filters{}, errors.New("alive must be a boolean")
		}
		filters.Alive = &b
	}
	if v := q.Get("aired"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return content.Filters{}, errors.New("aired must be a boolean")
		}
		filters.Aired = &b
	}
	return filters, nil
}
