// Package stack resolves the dotted paths listed in the [stack]
// configuration section to registered components and hands them to the
// application in the configured order.
//
// Components register under a dotted path such as "registry.routes.content".
// The configuration selects which registered components run and in what
// order; an unknown path is fatal at startup.
package stack

import (
	"context"
	"fmt"
	"net/http"

	"github.com/registryhq/registry/adapters/database"
	"github.com/registryhq/registry/adapters/metrics"
	"github.com/registryhq/registry/app"
	"github.com/registryhq/registry/config"
	"github.com/rs/zerolog"
)

// Env carries everything a component may need.
type Env struct {
	Config    *config.Document
	Logger    zerolog.Logger
	Content   *app.ContentService
	Sessions  *app.SessionService
	Metrics   *metrics.Collector
	Databases *database.Set
}

// Route is one entry of a route table provided by a routes component.
type Route struct {
	Name    string
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// Component signatures, one per lifecycle point.
type (
	// PreInitFunc runs once before the server starts.
	PreInitFunc func(ctx context.Context, env *Env) error

	// PluginFunc returns HTTP middleware installed on the router.
	PluginFunc func(env *Env) func(http.Handler) http.Handler

	// RouteFunc returns a route table to mount.
	RouteFunc func(env *Env) []Route

	// BackgroundFunc runs on every background loop tick.
	BackgroundFunc func(ctx context.Context, env *Env) error

	// PreStopFunc runs once at shutdown.
	PreStopFunc func(ctx context.Context, env *Env) error
)

// Named pairs a resolved component with its dotted path.
type (
	PreInit struct {
		Name string
		Run  PreInitFunc
	}
	Plugin struct {
		Name  string
		Build PluginFunc
	}
	Routes struct {
		Name  string
		Build RouteFunc
	}
	Background struct {
		Name string
		Run  BackgroundFunc
	}
	PreStop struct {
		Name string
		Run  PreStopFunc
	}
)

// Registry holds registered components by dotted path.
type Registry struct {
	preInit    map[string]PreInitFunc
	plugins    map[string]PluginFunc
	routes     map[string]RouteFunc
	background map[string]BackgroundFunc
	preStop    map[string]PreStopFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		preInit:    make(map[string]PreInitFunc),
		plugins:    make(map[string]PluginFunc),
		routes:     make(map[string]RouteFunc),
		background: make(map[string]BackgroundFunc),
		preStop:    make(map[string]PreStopFunc),
	}
}

// RegisterPreInit registers a pre-init hook.
func (r *Registry) RegisterPreInit(name string, fn PreInitFunc) {
	r.preInit[name] = fn
}

// RegisterPlugin registers a middleware plugin.
func (r *Registry) RegisterPlugin(name string, fn PluginFunc) {
	r.plugins[name] = fn
}

// RegisterRoutes registers a route table provider.
func (r *Registry) RegisterRoutes(name string, fn RouteFunc) {
	r.routes[name] = fn
}

// RegisterBackground registers a background task.
func (r *Registry) RegisterBackground(name string, fn BackgroundFunc) {
	r.background[name] = fn
}

// RegisterPreStop registers a shutdown hook.
func (r *Registry) RegisterPreStop(name string, fn PreStopFunc) {
	r.preStop[name] = fn
}

// ResolvePreInit resolves pre-init hooks in the listed order.
func (r *Registry) ResolvePreInit(names []string) ([]PreInit, error) {
	out := make([]PreInit, 0, len(names))
	for _, name := range names {
		fn, ok := r.preInit[name]
		if !ok {
			return nil, unknown("pre_init", name)
		}
		out = append(out, PreInit{Name: name, Run: fn})
	}
	return out, nil
}

// ResolvePlugins resolves plugins in the listed order.
func (r *Registry) ResolvePlugins(names []string) ([]Plugin, error) {
	out := make([]Plugin, 0, len(names))
	for _, name := range names {
		fn, ok := r.plugins[name]
		if !ok {
			return nil, unknown("plugins", name)
		}
		out = append(out, Plugin{Name: name, Build: fn})
	}
	return out, nil
}

// ResolveRoutes resolves route providers in the listed order.
func (r *Registry) ResolveRoutes(names []string) ([]Routes, error) {
	out := make([]Routes, 0, len(names))
	for _, name := range names {
		fn, ok := r.routes[name]
		if !ok {
			return nil, unknown("routes", name)
		}
		out = append(out, Routes{Name: name, Build: fn})
	}
	return out, nil
}

// ResolveBackground resolves background tasks in the listed order.
func (r *Registry) ResolveBackground(names []string) ([]Background, error) {
	out := make([]Background, 0, len(names))
	for _, name := range names {
		fn, ok := r.background[name]
		if !ok {
			return nil, unknown("background", name)
		}
		out = append(out, Background{Name: name, Run: fn})
	}
	return out, nil
}

// ResolvePreStop resolves shutdown hooks in the listed order.
func (r *Registry) ResolvePreStop(names []string) ([]PreStop, error) {
	out := make([]PreStop, 0, len(names))
	for _, name := range names {
		fn, ok := r.preStop[name]
		if !ok {
			return nil, unknown("pre_stop", name)
		}
		out = append(out, PreStop{Name: name, Run: fn})
	}
	return out, nil
}

func unknown(kind, name string) error {
	return fmt.Errorf("stack: unknown %s component %q", kind, name)
}
