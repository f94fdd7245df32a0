// Package scaffold creates a new site project: configuration, a welcome
// post, a README, and an initialized git repository.
package scaffold

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/go-git/go-git/v5"

	"github.com/inkpress/scribe/internal/config"
	"github.com/inkpress/scribe/internal/logfields"
)

//go:embed templates/*.tmpl
var templates embed.FS

// Options configures project creation. Zero values fall back to the stock
// defaults.
type Options struct {
	Dir         string
	Title       string
	Description string
	Author      string
	NoGit       bool
}

// Create scaffolds a new project in opts.Dir. The directory may exist but
// must not already contain a config.json; scaffolding never overwrites an
// existing project.
func Create(opts Options) error {
	if opts.Dir == "" {
		return fmt.Errorf("scaffold: target directory required")
	}

	cfg := config.Default()
	if opts.Title != "" {
		cfg.Title = opts.Title
	}
	if opts.Description != "" {
		cfg.Description = opts.Description
	}
	if opts.Author != "" {
		cfg.Author = opts.Author
	}

	configPath := filepath.Join(opts.Dir, "config.json")
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("scaffold: %s already contains a project", opts.Dir)
	}

	if err := os.MkdirAll(filepath.Join(opts.Dir, cfg.PostsDir), 0o755); err != nil {
		return fmt.Errorf("scaffold: create posts directory: %w", err)
	}

	if err := config.Write(configPath, cfg); err != nil {
		return fmt.Errorf("scaffold: write config: %w", err)
	}

	data := map[string]string{
		"Title":       cfg.Title,
		"Description": cfg.Description,
		"Date":        time.Now().Format("2006-01-02"),
	}
	files := map[string]string{
		filepath.Join(cfg.PostsDir, "welcome.md"): "templates/welcome.md.tmpl",
		"README.md":                               "templates/README.md.tmpl",
		".gitignore":                              "templates/gitignore.tmpl",
	}
	for target, src := range files {
		if err := renderTemplate(filepath.Join(opts.Dir, target), src, data); err != nil {
			return err
		}
	}

	if !opts.NoGit {
		if _, err := git.PlainInit(opts.Dir, false); err != nil {
			if errors.Is(err, git.ErrRepositoryAlreadyExists) {
				slog.Debug("Git repository already present", logfields.Path(opts.Dir))
			} else {
				// A project without version control is still usable.
				slog.Warn("Git init failed", logfields.Path(opts.Dir), logfields.Error(err))
			}
		}
	}

	slog.Info("Project created", logfields.Path(opts.Dir), slog.String("title", cfg.Title))
	return nil
}

func renderTemplate(target, src string, data map[string]string) error {
	raw, err := templates.ReadFile(src)
	if err != nil {
		return fmt.Errorf("scaffold: read template %s: %w", src, err)
	}
	tmpl, err := template.New(filepath.Base(src)).Parse(string(raw))
	if err != nil {
		return fmt.Errorf("scaffold: parse template %s: %w", src, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("scaffold: render %s: %w", src, err)
	}
	if err := os.WriteFile(target, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("scaffold: write %s: %w", target, err)
	}
	return nil
}
