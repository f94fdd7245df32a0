package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"

	"github.com/inkpress/scribe/internal/retry"
)

// Config is the site-level configuration, persisted as config.json in the
// project root. Field names match the on-disk JSON contract.
type Config struct {
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	Author       string  `json:"author"`
	URL          string  `json:"url,omitempty"`
	PostsDir     string  `json:"posts_dir"`
	OutputDir    string  `json:"output_dir"`
	OpenAIAPIKey string  `json:"openai_api_key,omitempty"`
	Theme        Theme   `json:"theme"`
	Build        Build   `json:"build,omitempty"`
	Publish      Publish `json:"publish,omitempty"`
}

// Theme holds CSS color variables substituted into the generated stylesheet.
// Passed through to the template layer untouched.
type Theme struct {
	PrimaryColor    string `json:"primary_color"`
	BackgroundColor string `json:"background_color"`
	TextColor       string `json:"text_color"`
	AccentColor     string `json:"accent_color"`
}

// Build holds pipeline tuning knobs.
type Build struct {
	// Workers bounds the render worker pool. Zero means runtime.NumCPU().
	Workers int `json:"workers,omitempty"`
}

// Publish configures the IPFS publish gateway.
type Publish struct {
	APIURL         string `json:"api_url,omitempty"`
	Name           string `json:"name,omitempty"`
	Recursive      *bool  `json:"recursive,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
	MaxRetries     int    `json:"max_retries,omitempty"`
	Backoff        string `json:"backoff,omitempty"` // fixed|linear|exponential
}

const (
	DefaultPostsDir  = "posts"
	DefaultOutputDir = "dist"
	DefaultIPFSAPI   = "http://127.0.0.1:5001"
)

// Default returns the configuration written for newly created projects.
func Default() *Config {
	return &Config{
		Title:       "Scribe",
		Description: "A minimal static site generator",
		Author:      "Author",
		PostsDir:    DefaultPostsDir,
		OutputDir:   DefaultOutputDir,
		Theme:       DefaultTheme(),
	}
}

// DefaultTheme returns the stock dark theme.
func DefaultTheme() Theme {
	return Theme{
		PrimaryColor:    "#f5f5f5",
		BackgroundColor: "#0a0a0a",
		TextColor:       "#f5f5f5",
		AccentColor:     "#8b8b8b",
	}
}

// Load reads the configuration from path. A missing file is not an error: the
// default configuration is written to path and returned, so a bare `scribe
// generate` works in an empty project.
//
// After the file is read, a .env file (if present) and the process
// environment are overlaid: OPENAI_API_KEY always wins over the file value,
// since keys do not belong in committed config files.
func Load(path string) (*Config, error) {
	// Best-effort: absence of .env is the common case.
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if werr := Write(path, cfg); werr != nil {
			return nil, fmt.Errorf("write default config: %w", werr)
		}
		slog.Info("Created default configuration", "path", path)
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.OpenAIAPIKey = key
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Write serializes cfg to path as indented JSON.
func Write(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Validate checks invariants the pipeline depends on.
func (c *Config) Validate() error {
	if c.PostsDir == "" {
		return fmt.Errorf("config: posts_dir must not be empty")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("config: output_dir must not be empty")
	}
	return nil
}

// Workers resolves the render pool size.
func (c *Config) Workers() int {
	if c.Build.Workers > 0 {
		return c.Build.Workers
	}
	return runtime.NumCPU()
}

// PublishRecursive resolves the recursive pin flag (default true).
func (c *Config) PublishRecursive() bool {
	if c.Publish.Recursive == nil {
		return true
	}
	return *c.Publish.Recursive
}

// PublishTimeout resolves the per-attempt publish timeout (default 60s).
func (c *Config) PublishTimeout() time.Duration {
	if c.Publish.TimeoutSeconds > 0 {
		return time.Duration(c.Publish.TimeoutSeconds) * time.Second
	}
	return 60 * time.Second
}

// RetryPolicy builds the publish retry policy from config.
func (c *Config) RetryPolicy() retry.Policy {
	maxRetries := c.Publish.MaxRetries
	if maxRetries == 0 {
		maxRetries = -1 // fall back to policy default
	}
	return retry.NewPolicy(retry.BackoffMode(c.Publish.Backoff), 0, 0, maxRetries)
}

func applyDefaults(c *Config) {
	if c.PostsDir == "" {
		c.PostsDir = DefaultPostsDir
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.Publish.APIURL == "" {
		c.Publish.APIURL = DefaultIPFSAPI
	}
	if c.Theme == (Theme{}) {
		c.Theme = DefaultTheme()
	}
}
