package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/inkpress/scribe/internal/config"
	"github.com/inkpress/scribe/internal/history"
	"github.com/inkpress/scribe/internal/logfields"
	"github.com/inkpress/scribe/internal/publish"
)

// PinCmd implements the 'pin' command.
type PinCmd struct {
	Dist      string `short:"d" help:"Site directory to publish (overrides config output_dir)"`
	IPFSAPI   string `name:"ipfs-api" help:"IPFS node API URL (overrides config)"`
	Name      string `help:"Pin name (overrides config; defaults to the site title)"`
	Recursive *bool  `help:"Pin recursively (overrides config; default true)"`
}

func (p *PinCmd) Run(_ *Global, cli *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}

	dist := cfg.OutputDir
	if p.Dist != "" {
		dist = p.Dist
	}
	apiURL := cfg.Publish.APIURL
	if p.IPFSAPI != "" {
		apiURL = p.IPFSAPI
	}
	name := cfg.Publish.Name
	if p.Name != "" {
		name = p.Name
	}
	if name == "" {
		name = cfg.Title
	}
	recursive := cfg.PublishRecursive()
	if p.Recursive != nil {
		recursive = *p.Recursive
	}

	gw := publish.NewGateway(apiURL, cfg.PublishTimeout(), cfg.RetryPolicy())
	rec, err := gw.Publish(ctx, dist, name, recursive)
	if err != nil {
		return err
	}
	recordPin(rec, dist)

	fmt.Printf("Pinned %s (%d file(s)) as %q\n", rec.CID, rec.Files, rec.Name)
	fmt.Println("Available at:")
	for _, url := range publish.GatewayURLs(rec.CID) {
		fmt.Printf("  %s\n", url)
	}
	return nil
}

func recordPin(rec *publish.PinRecord, outputDir string) {
	store, err := history.Open(outputDir)
	if err != nil {
		slog.Warn("Could not open build history", logfields.Error(err))
		return
	}
	defer store.Close()

	if err := store.RecordPin(context.Background(), rec); err != nil {
		slog.Warn("Could not record pin history", logfields.Error(err))
	}
}
