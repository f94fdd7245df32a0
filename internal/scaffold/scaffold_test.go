package scaffold

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inkpress/scribe/internal/config"
	"github.com/inkpress/scribe/internal/post"
)

func TestCreate_ScaffoldsProject(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mysite")

	require.NoError(t, Create(Options{
		Dir:         dir,
		Title:       "My Site",
		Description: "Notes and essays",
		Author:      "Ada",
	}))

	cfg, err := config.Load(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	require.Equal(t, "My Site", cfg.Title)
	require.Equal(t, "Ada", cfg.Author)

	for _, p := range []string{
		filepath.Join("posts", "welcome.md"),
		"README.md",
		".gitignore",
		filepath.Join(".git", "HEAD"),
	} {
		_, statErr := os.Stat(filepath.Join(dir, p))
		require.NoError(t, statErr, p)
	}
}

func TestCreate_WelcomePostParses(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "site")
	require.NoError(t, Create(Options{Dir: dir, Title: "Fresh", NoGit: true}))

	path := filepath.Join(dir, "posts", "welcome.md")
	content, err := os.ReadFile(path)
	require.NoError(t, err)

	p, err := post.Parse(content, path)
	require.NoError(t, err)
	require.Equal(t, "Welcome to Fresh", p.Title)
	require.Equal(t, "welcome", p.Slug)
	require.Equal(t, time.Now().UTC().Format("2006-01-02"), p.Date.Format("2006-01-02"))
}

func TestCreate_RefusesExistingProject(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Create(Options{Dir: dir, NoGit: true}))

	err := Create(Options{Dir: dir, NoGit: true})
	require.Error(t, err)
	require.Contains(t, err.Error(), "already contains a project")
}

func TestCreate_NoGitSkipsRepository(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, Create(Options{Dir: dir, NoGit: true}))

	_, err := os.Stat(filepath.Join(dir, ".git"))
	require.True(t, os.IsNotExist(err))
}

func TestCreate_DefaultsApplied(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "defaults")
	require.NoError(t, Create(Options{Dir: dir, NoGit: true}))

	cfg, err := config.Load(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	require.Equal(t, "Scribe", cfg.Title)
	require.Equal(t, "posts", cfg.PostsDir)
	require.Equal(t, "dist", cfg.OutputDir)
}
