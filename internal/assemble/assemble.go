// Package assemble writes the final site tree: one directory per post with
// an index.html, a top-level index.html listing every post, and the themed
// stylesheet. Posts classified unchanged keep their existing output.
package assemble

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/inkpress/scribe/internal/backlink"
	"github.com/inkpress/scribe/internal/buildcache"
	"github.com/inkpress/scribe/internal/config"
	"github.com/inkpress/scribe/internal/logfields"
	"github.com/inkpress/scribe/internal/post"
)

// initialsDir holds cached illuminated initial data URLs, one file per
// letter, shared between builds.
const initialsDir = "initials"

// reserved are top-level output names a post slug must never displace.
var reserved = map[string]bool{
	initialsDir: true,
	".scribe":   true,
}

// Result summarizes one assembly pass.
type Result struct {
	Written   int
	Unchanged int
	Removed   int
}

// Assembler renders pages into the output directory.
type Assembler struct {
	cfg *config.Config
	out string
}

func New(cfg *config.Config) *Assembler {
	return &Assembler{cfg: cfg, out: cfg.OutputDir}
}

// WriteSite materializes the output tree. Stale posts are regenerated,
// unchanged posts are left alone, and directories for removed posts are
// deleted. The index and stylesheet are rewritten on every build since they
// depend on the whole post set.
func (a *Assembler) WriteSite(posts []*post.Post, idx *backlink.Index, cls buildcache.Classification) (Result, error) {
	var res Result

	if err := os.MkdirAll(a.out, 0o755); err != nil {
		return res, fmt.Errorf("create output directory: %w", err)
	}

	css, err := stylesheet(a.cfg.Theme)
	if err != nil {
		return res, fmt.Errorf("render stylesheet: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(a.out, "style.css"), css); err != nil {
		return res, err
	}

	if err := a.writeIndex(posts); err != nil {
		return res, err
	}

	stale := make(map[string]bool, len(cls.Stale))
	for _, slug := range cls.Stale {
		stale[slug] = true
	}

	for _, p := range posts {
		if !stale[p.Slug] {
			res.Unchanged++
			continue
		}
		if err := a.writePost(p, idx); err != nil {
			return res, err
		}
		res.Written++
	}

	for _, slug := range cls.Removed {
		if reserved[slug] || slug == "" || strings.ContainsAny(slug, "/\\") {
			slog.Warn("Refusing to remove reserved output path", logfields.Slug(slug))
			continue
		}
		if err := os.RemoveAll(filepath.Join(a.out, slug)); err != nil {
			return res, fmt.Errorf("remove output for %s: %w", slug, err)
		}
		res.Removed++
	}

	return res, nil
}

func (a *Assembler) writeIndex(posts []*post.Post) error {
	ordered := make([]*post.Post, len(posts))
	copy(ordered, posts)
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.After(ordered[j].Date)
		}
		return ordered[i].Slug < ordered[j].Slug
	})

	view := indexView{
		SiteTitle:      a.cfg.Title,
		SiteTitleUpper: strings.ToUpper(a.cfg.Title),
	}
	for _, p := range ordered {
		view.Posts = append(view.Posts, indexEntryView{
			Title:    p.Title,
			URL:      "./" + p.Slug + "/",
			DateTime: p.Date.Format(time.RFC3339),
			Date:     p.Date.Format("02/01/2006"),
			Excerpt:  p.Excerpt,
		})
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, view); err != nil {
		return fmt.Errorf("render index: %w", err)
	}
	return writeFileAtomic(filepath.Join(a.out, "index.html"), buf.Bytes())
}

func (a *Assembler) writePost(p *post.Post, idx *backlink.Index) error {
	content := p.HTML
	initial, letter := a.loadInitial(p.FirstLetter)
	if initial != "" {
		// The illuminated image replaces the letter it depicts.
		content = stripFirstParagraphRune(content)
	}

	view := postView{
		SiteTitle:      a.cfg.Title,
		SiteTitleUpper: strings.ToUpper(a.cfg.Title),
		Title:          p.Title,
		Content:        template.HTML(content),
		Initial:        template.URL(initial),
		InitialLetter:  letter,
	}
	for _, ref := range idx.Backlinks(p.Slug) {
		view.Backlinks = append(view.Backlinks, backlinkView{
			Title: ref.Title,
			URL:   "../" + ref.Slug + "/",
		})
	}

	var buf bytes.Buffer
	if err := postTemplate.Execute(&buf, view); err != nil {
		return fmt.Errorf("render post %s: %w", p.Slug, err)
	}

	dir := filepath.Join(a.out, p.Slug)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create post directory %s: %w", dir, err)
	}
	return writeFileAtomic(filepath.Join(dir, "index.html"), buf.Bytes())
}

// loadInitial returns the cached data URL for the post's first letter, or
// empty when the post has no letter or no initial has been generated yet.
// Pages degrade to plain text rather than failing the build.
func (a *Assembler) loadInitial(letter rune) (dataURL, letterStr string) {
	if letter == 0 {
		return "", ""
	}
	path := filepath.Join(a.out, initialsDir, string(letter)+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", ""
	}
	url := strings.TrimSpace(string(data))
	if !strings.HasPrefix(url, "data:image/") {
		slog.Warn("Ignoring malformed initial asset", logfields.Path(path))
		return "", ""
	}
	return url, string(letter)
}

// stripFirstParagraphRune removes the leading rune of the first paragraph's
// text. Nothing is removed when the paragraph opens with markup.
func stripFirstParagraphRune(html []byte) []byte {
	i := bytes.Index(html, []byte("<p>"))
	if i < 0 {
		return html
	}
	start := i + len("<p>")
	if start >= len(html) || html[start] == '<' {
		return html
	}
	_, size := utf8.DecodeRune(html[start:])
	out := make([]byte, 0, len(html)-size)
	out = append(out, html[:start]...)
	out = append(out, html[start+size:]...)
	return out
}

// writeFileAtomic writes via a temp file and rename so readers (and the dev
// server) never observe a truncated page.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
