package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"config.json"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Generate GenerateCmd `cmd:"" help:"Generate the site from the posts directory"`
	Serve    ServeCmd    `cmd:"" help:"Serve the generated site locally, optionally rebuilding on change"`
	Create   CreateCmd   `cmd:"" help:"Scaffold a new project in a directory"`
	Initials InitialsCmd `cmd:"" help:"Pre-generate illuminated initial images for specific letters"`
	Pin      PinCmd      `cmd:"" help:"Publish the generated site to an IPFS node and pin it"`
	History  HistoryCmd  `cmd:"" help:"Show recent builds and the latest pin"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}
