// Package bootstrap wires the application together from the configuration
// document: logging, databases, services, and the components listed under
// the [stack] section.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/registryhq/registry/adapters/clock"
	"github.com/registryhq/registry/adapters/database"
	"github.com/registryhq/registry/adapters/hasher"
	"github.com/registryhq/registry/adapters/idgen"
	"github.com/registryhq/registry/adapters/metrics"
	"github.com/registryhq/registry/app"
	"github.com/registryhq/registry/config"
	"github.com/registryhq/registry/logging"
	"github.com/registryhq/registry/stack"
	"github.com/rs/zerolog"
)

// backgroundTick is how often the background loop wakes up. Individual
// tasks throttle themselves against their configured intervals.
const backgroundTick = 5 * time.Second

// App is the assembled application.
type App struct {
	Logger     zerolog.Logger
	Env        *stack.Env
	HTTPServer *http.Server

	holder     *config.Holder
	logCloser  io.Closer
	databases  *database.Set
	background []stack.Background
	preStop    []stack.PreStop

	stopBackground context.CancelFunc
	backgroundDone chan struct{}
}

// New loads the configuration at path and assembles the application.
// Every error here is fatal: a service with a broken configuration must
// not come up.
func New(path string) (*App, error) {
	doc, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := logging.Setup(doc)
	if err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	logger.Info().Str("config", path).Msg("configuration loaded")

	holder, err := config.NewHolder(path, logger)
	if err != nil {
		logCloser.Close()
		return nil, err
	}
	doc = holder.Get()

	a := &App{Logger: logger, holder: holder, logCloser: logCloser}
	if err := a.assemble(doc); err != nil {
		a.closeQuietly()
		return nil, err
	}
	return a, nil
}

func (a *App) assemble(doc *config.Document) error {
	names, err := doc.GetList("database", "names")
	if err != nil {
		return err
	}
	params, err := DatabaseParams(doc)
	if err != nil {
		return err
	}
	dbs, err := database.OpenSet(params, names)
	if err != nil {
		return fmt.Errorf("open databases: %w", err)
	}
	a.databases = dbs

	// The registry database is the home of all built-in stores.
	db, err := dbs.Get("registry")
	if err != nil {
		return errors.New("bootstrap: database.names must include \"registry\"")
	}

	rootPath, err := doc.GetString("registry", "root_path")
	if err != nil {
		return err
	}

	clk := clock.Real{}
	ids := idgen.UUID{}
	collector := metrics.New()

	content := app.NewContentService(
		database.NewContentStore(db),
		database.NewActionStore(db),
		clk, ids, rootPath, a.Logger,
	)
	sessions := app.NewSessionService(
		database.NewSessionStore(db),
		database.NewClientStore(db),
		hasher.NewBcrypt(0),
		clk, ids, app.DefaultSessionTTL, a.Logger,
	)

	a.Env = &stack.Env{
		Config:    doc,
		Logger:    a.Logger,
		Content:   content,
		Sessions:  sessions,
		Metrics:   collector,
		Databases: dbs,
	}

	registry := stack.NewRegistry()
	registerBuiltins(registry)

	router, err := a.buildRouter(registry, doc)
	if err != nil {
		return err
	}

	backgroundNames, err := doc.GetList("stack", "background")
	if err != nil {
		return err
	}
	a.background, err = registry.ResolveBackground(backgroundNames)
	if err != nil {
		return err
	}

	preStopNames, err := doc.GetList("stack", "pre_stop")
	if err != nil {
		return err
	}
	a.preStop, err = registry.ResolvePreStop(preStopNames)
	if err != nil {
		return err
	}

	preInitNames, err := doc.GetList("stack", "pre_init")
	if err != nil {
		return err
	}
	preInit, err := registry.ResolvePreInit(preInitNames)
	if err != nil {
		return err
	}
	ctx := context.Background()
	for _, hook := range preInit {
		a.Logger.Debug().Str("hook", hook.Name).Msg("running pre-init hook")
		if err := hook.Run(ctx, a.Env); err != nil {
			return fmt.Errorf("pre-init hook %s: %w", hook.Name, err)
		}
	}

	host, err := doc.GetString("server", "host")
	if err != nil {
		return err
	}
	port, err := doc.GetInt("server", "port")
	if err != nil {
		return err
	}
	a.HTTPServer = &http.Server{
		Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// buildRouter mounts resolved plugins and route tables on a chi router.
func (a *App) buildRouter(registry *stack.Registry, doc *config.Document) (chi.Router, error) {
	router := chi.NewRouter()

	pluginNames, err := doc.GetList("stack", "plugins")
	if err != nil {
		return nil, err
	}
	plugins, err := registry.ResolvePlugins(pluginNames)
	if err != nil {
		return nil, err
	}
	for _, p := range plugins {
		router.Use(p.Build(a.Env))
	}

	routeNames, err := doc.GetList("stack", "routes")
	if err != nil {
		return nil, err
	}
	providers, err := registry.ResolveRoutes(routeNames)
	if err != nil {
		return nil, err
	}
	for _, provider := range providers {
		for _, rt := range provider.Build(a.Env) {
			a.Logger.Debug().
				Str("provider", provider.Name).
				Str("route", rt.Name).
				Str("method", rt.Method).
				Str("path", rt.Path).
				Msg("mounting route")
			router.Method(rt.Method, rt.Path, rt.Handler)
		}
	}
	return router, nil
}

// DatabaseParams maps the [database] section onto connection parameters.
// Serverless backends only need a path; connection fields stay strings so
// empty values mean "unused".
func DatabaseParams(doc *config.Document) (database.Params, error) {
	backend, err := doc.GetString("database", "backend")
	if err != nil {
		return database.Params{}, err
	}
	p := database.Params{Backend: backend}
	if config.IsServerless(backend) {
		p.Path, err = doc.GetString("database", "path")
		if err != nil {
			return database.Params{}, err
		}
		return p, nil
	}
	if p.Host, err = doc.GetString("database", "host"); err != nil {
		return database.Params{}, err
	}
	if p.Port, err = doc.GetString("database", "port"); err != nil {
		return database.Params{}, err
	}
	if p.User, err = doc.GetString("database", "user"); err != nil {
		return database.Params{}, err
	}
	if p.Password, err = doc.GetString("database", "password"); err != nil {
		return database.Params{}, err
	}
	return p, nil
}

// Run starts the HTTP server and the background loop, then blocks until
// SIGINT/SIGTERM or a server error.
func (a *App) Run() error {
	if err := a.holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watch unavailable")
	}
	a.holder.WatchSignals()

	ctx, cancel := context.WithCancel(context.Background())
	a.stopBackground = cancel
	a.backgroundDone = make(chan struct{})
	go a.backgroundLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", a.HTTPServer.Addr).Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}
	return a.Shutdown()
}

// backgroundLoop ticks every backgroundTick and runs each configured
// background task. Task errors are logged, never fatal.
func (a *App) backgroundLoop(ctx context.Context) {
	defer close(a.backgroundDone)
	ticker := time.NewTicker(backgroundTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for _, task := range a.background {
			if a.Env.Metrics != nil {
				a.Env.Metrics.BackgroundRuns.WithLabelValues(task.Name).Inc()
			}
			if err := task.Run(ctx, a.Env); err != nil {
				if a.Env.Metrics != nil {
					a.Env.Metrics.BackgroundErrors.WithLabelValues(task.Name).Inc()
				}
				a.Logger.Error().Err(err).Str("task", task.Name).Msg("background task failed")
			}
		}
	}
}

// Shutdown stops the server, runs pre-stop hooks in configured order and
// releases resources. Hook errors are logged, not returned.
func (a *App) Shutdown() error {
	if a.stopBackground != nil {
		a.stopBackground()
		<-a.backgroundDone
		a.stopBackground = nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown failed")
		}
	}

	for _, hook := range a.preStop {
		a.Logger.Debug().Str("hook", hook.Name).Msg("running pre-stop hook")
		if err := hook.Run(ctx, a.Env); err != nil {
			a.Logger.Error().Err(err).Str("hook", hook.Name).Msg("pre-stop hook failed")
		}
	}

	a.closeQuietly()
	a.Logger.Info().Msg("stopped")
	return nil
}

func (a *App) closeQuietly() {
	if a.holder != nil {
		a.holder.Stop()
	}
	if a.databases != nil {
		if err := a.databases.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("closing databases")
		}
		a.databases = nil
	}
	if a.logCloser != nil {
		a.logCloser.Close()
		a.logCloser = nil
	}
}
