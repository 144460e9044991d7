package bootstrap

import (
	"context"
	"os"
	"time"

	"github.com/registryhq/registry/stack"
	"github.com/registryhq/registry/web"
)

// registerBuiltins registers every component shipped with the binary.
// The [stack] section selects which of them actually run.
func registerBuiltins(r *stack.Registry) {
	r.RegisterPreInit("registry.hooks.ensure_dirs", ensureDirs)
	r.RegisterPlugin("registry.plugins.request_log", web.RequestLog)
	r.RegisterRoutes("registry.routes.content", web.ContentRoutes)
	r.RegisterRoutes("registry.routes.auth", web.AuthRoutes)
	r.RegisterRoutes("registry.routes.metrics", web.MetricsRoutes)
	r.RegisterBackground("registry.tasks.auth_cleanup", newAuthCleanup())
	r.RegisterPreStop("registry.hooks.goodbye", goodbye)
}

// ensureDirs creates the content root so uploads have somewhere to land.
func ensureDirs(ctx context.Context, env *stack.Env) error {
	root := env.Content.RootPath()
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}
	env.Logger.Debug().Str("root", root).Msg("content root ready")
	return nil
}

// newAuthCleanup builds the expired-session sweeper. The background loop
// ticks faster than the sweep interval, so the task throttles itself
// against auth.cleanup_interval (seconds).
func newAuthCleanup() stack.BackgroundFunc {
	var lastRun time.Time
	return func(ctx context.Context, env *stack.Env) error {
		interval, err := env.Config.GetInt("auth", "cleanup_interval")
		if err != nil {
			return err
		}
		now := time.Now()
		if !lastRun.IsZero() && now.Sub(lastRun) < time.Duration(interval)*time.Second {
			return nil
		}
		lastRun = now

		n, err := env.Sessions.CleanupExpired(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			if env.Metrics != nil {
				env.Metrics.SessionsCleaned.Add(float64(n))
			}
			env.Logger.Info().Int64("sessions", n).Msg("expired sessions removed")
		}
		return nil
	}
}

func goodbye(ctx context.Context, env *stack.Env) error {
	env.Logger.Info().Msg("goodbye")
	return nil
}
