// Package backlink inverts the per-post outbound reference sets into an
// inbound index: for every post, which other posts link to it.
package backlink

import (
	"sort"
	"strings"

	"github.com/inful/mdfp"

	"github.com/inkpress/scribe/internal/post"
	"github.com/inkpress/scribe/internal/util/sets"
)

// Index maps each slug to the set of slugs that reference it. Every rendered
// post has an entry, even when nothing links to it, so "no backlinks" and
// "unknown slug" stay distinguishable.
type Index struct {
	inbound map[string]sets.Set[string]
	bySlug  map[string]*post.Post
}

// Build inverts the outbound reference map over the rendered post set.
// References to slugs outside the set were already dropped by the renderer;
// a second guard here keeps the index closed under the post set regardless.
func Build(posts []*post.Post, outbound map[string]sets.Set[string]) *Index {
	idx := &Index{
		inbound: make(map[string]sets.Set[string], len(posts)),
		bySlug:  make(map[string]*post.Post, len(posts)),
	}
	for _, p := range posts {
		idx.inbound[p.Slug] = sets.New[string]()
		idx.bySlug[p.Slug] = p
	}
	for from, targets := range outbound {
		if _, ok := idx.bySlug[from]; !ok {
			continue
		}
		for to := range targets {
			if in, ok := idx.inbound[to]; ok && to != from {
				in.Add(from)
			}
		}
	}
	return idx
}

// Backlinks returns the posts referencing slug, ordered for display: newest
// first, slug ascending on equal dates. Returns nil for a slug not in the
// index.
func (idx *Index) Backlinks(slug string) []*post.Post {
	in, ok := idx.inbound[slug]
	if !ok {
		return nil
	}
	out := make([]*post.Post, 0, len(in))
	for from := range in {
		out = append(out, idx.bySlug[from])
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Slug < out[j].Slug
	})
	return out
}

// Referrers returns the raw inbound slug set for slug, sorted ascending.
func (idx *Index) Referrers(slug string) []string {
	in, ok := idx.inbound[slug]
	if !ok {
		return nil
	}
	return sets.SortedStrings(in)
}

// Hash returns a stable digest of slug's inbound reference set. The digest
// covers referencing slugs only, sorted ascending, so it changes exactly when
// the set of referrers changes. It feeds the build cache alongside the
// content fingerprint.
func (idx *Index) Hash(slug string) string {
	return mdfp.CalculateFingerprintFromParts("", strings.Join(idx.Referrers(slug), "\n"))
}
