package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/inkpress/scribe/internal/config"
	"github.com/inkpress/scribe/internal/initials"
	"github.com/inkpress/scribe/internal/metrics"
	"github.com/inkpress/scribe/internal/pipeline"
	"github.com/inkpress/scribe/internal/server"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Dist         string        `short:"d" help:"Site directory to serve (overrides config output_dir)"`
	Host         string        `help:"Interface to bind" default:"127.0.0.1"`
	Port         int           `short:"p" help:"Port to listen on" default:"3007"`
	Watch        bool          `short:"w" help:"Watch the posts directory and rebuild on change"`
	RebuildEvery time.Duration `name:"rebuild-every" help:"Rebuild on a fixed schedule (e.g. 10m); zero disables"`
	Metrics      bool          `help:"Expose Prometheus metrics on /metrics"`
}

func (s *ServeCmd) Run(_ *Global, cli *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	if s.Dist != "" {
		cfg.OutputDir = s.Dist
	}

	opts := server.Options{
		Host:         s.Host,
		Port:         s.Port,
		SiteDir:      cfg.OutputDir,
		RebuildEvery: s.RebuildEvery,
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if s.Metrics {
		reg := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		opts.Registry = reg
	}

	var rebuild server.RebuildFunc
	if s.Watch || s.RebuildEvery > 0 {
		rebuild = func(ctx context.Context) error {
			b := pipeline.New(cfg).WithRecorder(recorder)
			if cfg.OpenAIAPIKey != "" {
				gen := initials.NewOpenAIGenerator(cfg.OpenAIAPIKey)
				b = b.WithInitials(initials.NewCache(cfg.OutputDir, gen))
			}
			_, err := b.Run(ctx)
			return err
		}
	}
	if s.Watch {
		opts.WatchDir = cfg.PostsDir
	}

	srv, err := server.New(opts, rebuild)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
