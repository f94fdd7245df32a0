// Package server hosts the generated site for local preview. It can watch
// the posts directory and rebuild on change, and optionally rebuild on a
// fixed schedule.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/inkpress/scribe/internal/logfields"
	"github.com/inkpress/scribe/internal/metrics"
)

// RebuildFunc regenerates the site. Invoked by the watcher and the
// scheduler; errors are logged, never fatal to the server.
type RebuildFunc func(ctx context.Context) error

// Options configures the preview server.
type Options struct {
	Host         string
	Port         int
	SiteDir      string
	WatchDir     string         // posts directory; empty disables watching
	RebuildEvery time.Duration  // zero disables scheduled rebuilds
	Registry     *prom.Registry // nil disables the /metrics endpoint
}

// Server serves the generated site and drives rebuilds.
type Server struct {
	opts    Options
	rebuild RebuildFunc
	echo    *echo.Echo
}

// New creates a preview server. rebuild may be nil when neither watching nor
// scheduled rebuilds are requested.
func New(opts Options, rebuild RebuildFunc) (*Server, error) {
	info, err := os.Stat(opts.SiteDir)
	if err != nil {
		return nil, fmt.Errorf("site directory %s: %w (run generate first)", opts.SiteDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("site directory %s: not a directory", opts.SiteDir)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(requestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	if opts.Registry != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.HTTPHandler(opts.Registry)))
	}
	e.Use(middleware.Static(opts.SiteDir))

	return &Server{opts: opts, rebuild: rebuild, echo: e}, nil
}

// Handler exposes the HTTP handler. Used in tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Run serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	if s.opts.WatchDir != "" && s.rebuild != nil {
		w := newWatcher(s.opts.WatchDir, 500*time.Millisecond, s.rebuild)
		if err := w.start(ctx); err != nil {
			return err
		}
		defer w.stop()
		slog.Info("Watching for changes", logfields.Path(s.opts.WatchDir))
	}

	if s.opts.RebuildEvery > 0 && s.rebuild != nil {
		sched, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("create scheduler: %w", err)
		}
		_, err = sched.NewJob(
			gocron.DurationJob(s.opts.RebuildEvery),
			gocron.NewTask(func() {
				if err := s.rebuild(ctx); err != nil {
					slog.Error("Scheduled rebuild failed", logfields.Error(err))
				}
			}),
		)
		if err != nil {
			return fmt.Errorf("schedule rebuild job: %w", err)
		}
		sched.Start()
		defer func() { _ = sched.Shutdown() }()
		slog.Info("Scheduled rebuilds enabled", slog.Duration("every", s.opts.RebuildEvery))
	}

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	slog.Info("Serving site", logfields.Path(s.opts.SiteDir), slog.String("addr", "http://"+addr))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(addr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

// requestLogger logs each request through slog in the same shape as the rest
// of the process logs.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			slog.Info("Request",
				slog.String("method", c.Request().Method),
				logfields.Path(c.Request().URL.Path),
				slog.Int("status", c.Response().Status),
				logfields.DurationMS(float64(time.Since(start).Milliseconds())))
			return err
		}
	}
}
