package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/inkpress/scribe/internal/config"
	"github.com/inkpress/scribe/internal/history"
	"github.com/inkpress/scribe/internal/initials"
	"github.com/inkpress/scribe/internal/logfields"
	"github.com/inkpress/scribe/internal/pipeline"
)

// GenerateCmd implements the 'generate' command.
type GenerateCmd struct {
	Force bool `short:"f" help:"Regenerate every post, ignoring the build cache"`
}

func (g *GenerateCmd) Run(_ *Global, cli *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}

	b := pipeline.New(cfg).WithForce(g.Force)
	if cfg.OpenAIAPIKey != "" {
		gen := initials.NewOpenAIGenerator(cfg.OpenAIAPIKey)
		b = b.WithInitials(initials.NewCache(cfg.OutputDir, gen))
	} else {
		slog.Debug("No OpenAI API key configured, skipping illuminated initials")
	}

	report, err := b.Run(ctx)
	if report != nil {
		recordBuild(report, cfg.OutputDir)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Site generated: %d post(s), %d regenerated, %d unchanged, %d removed\n",
		report.TotalPosts, report.Stale, report.Unchanged, report.Removed)
	return nil
}

// recordBuild appends the report to the local history database. History is
// advisory, so failures only log.
func recordBuild(report *pipeline.Report, outputDir string) {
	store, err := history.Open(outputDir)
	if err != nil {
		slog.Warn("Could not open build history", logfields.Error(err))
		return
	}
	defer store.Close()

	if err := store.RecordBuild(context.Background(), report); err != nil {
		slog.Warn("Could not record build history", logfields.Error(err))
	}
}
