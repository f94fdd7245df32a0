package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"unicode"

	"github.com/yuin/goldmark"

	"github.com/inkpress/scribe/internal/logfields"
	"github.com/inkpress/scribe/internal/post"
	"github.com/inkpress/scribe/internal/util/sets"
)

// Renderer converts post bodies to HTML and derives each post's outbound
// reference set. Rendering has no cross-post dependency, so posts are
// processed by a bounded worker pool.
//
// Conversion is plain CommonMark via goldmark and is deterministic: the
// fingerprint-based build cache depends on byte-for-byte stable output.
type Renderer struct {
	workers  int
	baseHost string
}

// New creates a renderer. siteURL (optional) lets absolute links to the
// site's own host count as internal references.
func New(siteURL string, workers int) *Renderer {
	if workers < 1 {
		workers = 1
	}
	host := ""
	if siteURL != "" {
		if u, err := url.Parse(siteURL); err == nil {
			host = u.Host
		}
	}
	return &Renderer{workers: workers, baseHost: host}
}

// RenderAll renders every post concurrently. Rendering is fail-soft: a post
// that fails to convert is excluded from the returned set and reported in
// failed, without aborting the rest.
//
// The returned outbound map carries, per slug, the set of other posts' slugs
// the rendered content references. Self references are never included.
func (r *Renderer) RenderAll(ctx context.Context, posts []*post.Post) (rendered []*post.Post, outbound map[string]sets.Set[string], failed []error) {
	slugs := sets.New[string]()
	for _, p := range posts {
		slugs.Add(p.Slug)
	}

	type result struct {
		outbound sets.Set[string]
		err      error
	}
	results := make([]result, len(posts))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i].outbound, results[i].err = r.render(posts[i], slugs)
			}
		}()
	}

feed:
	for i := range posts {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	outbound = make(map[string]sets.Set[string], len(posts))
	for i, p := range posts {
		if results[i].err != nil {
			slog.Warn("Post excluded from output: render failed",
				logfields.Slug(p.Slug), logfields.Error(results[i].err))
			failed = append(failed, fmt.Errorf("render %s: %w", p.SourcePath, results[i].err))
			continue
		}
		rendered = append(rendered, p)
		outbound[p.Slug] = results[i].outbound
	}
	return rendered, outbound, failed
}

// render converts one post and fills its derived fields.
func (r *Renderer) render(p *post.Post, slugs sets.Set[string]) (sets.Set[string], error) {
	var buf bytes.Buffer
	md := goldmark.New()
	if err := md.Convert(p.Body, &buf); err != nil {
		return nil, err
	}

	html := rewriteInternalLinks(buf.Bytes(), func(href string) (string, bool) {
		slug, ok := r.resolveSlug(href, slugs)
		if !ok {
			return "", false
		}
		return "../" + slug + "/", true
	})

	out := sets.New[string]()
	for _, href := range extractHrefs(html) {
		slug, ok := r.resolveSlug(href, slugs)
		if !ok || slug == p.Slug {
			continue // external, dangling, or self reference
		}
		out.Add(slug)
	}

	p.HTML = html
	p.FirstLetter = firstLetter(html)
	return out, nil
}

// resolveSlug maps an href to a known post slug under the site's routing
// convention: a relative link (or absolute link on the site's own host)
// whose final path segment sanitizes to an existing slug. Optional ./ and ../
// prefixes, a trailing slash, and a .md or .html suffix are all accepted as
// authored variants of the same target.
func (r *Renderer) resolveSlug(href string, slugs sets.Set[string]) (string, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if u.Scheme != "" || u.Host != "" {
		if u.Host == "" || u.Host != r.baseHost {
			return "", false
		}
	}
	if u.Path == "" {
		return "", false // pure fragment or query
	}

	segment := strings.TrimSuffix(u.Path, "/")
	if i := strings.LastIndexByte(segment, '/'); i >= 0 {
		segment = segment[i+1:]
	}
	segment = strings.TrimSuffix(segment, ".md")
	segment = strings.TrimSuffix(segment, ".html")
	if segment == "" || segment == "." || segment == ".." {
		return "", false
	}

	slug := post.Sanitize(segment)
	if !slugs.Has(slug) {
		return "", false
	}
	return slug, true
}

// firstLetter returns the upper-cased first alphabetic rune of the first
// paragraph, or 0 when there is none. Drives illuminated initial selection.
func firstLetter(html []byte) rune {
	text := firstParagraphText(html)
	for _, r := range text {
		if unicode.IsLetter(r) {
			return unicode.ToUpper(r)
		}
	}
	return 0
}
