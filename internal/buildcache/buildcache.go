// Package buildcache persists per-post build keys between runs so unchanged
// posts can skip regeneration. A post's key is its content fingerprint plus
// the hash of its inbound reference set; a post is unchanged only when both
// match the previous build.
package buildcache

import (
	"sort"
	"time"
)

// Key identifies one post's build-relevant state. Staleness is decided on
// Fingerprint and BacklinkHash alone; OutputPath and BuiltAt are provenance
// carried along in the record.
type Key struct {
	Fingerprint  string    `json:"fingerprint"`
	BacklinkHash string    `json:"backlink_hash"`
	OutputPath   string    `json:"output_path,omitempty"`
	BuiltAt      time.Time `json:"built_at,omitzero"`
}

// Classification partitions the current post set against a previous record.
type Classification struct {
	Stale     []string // must be regenerated
	Unchanged []string // output from the previous build is still valid
	Removed   []string // present in the record but gone from the source set
}

// Classify compares the current slug keys against the previous record.
// current holds keys for the posts that rendered; loaded lists every slug
// present in the source set, including posts whose rendering failed. Only
// slugs absent from loaded count as removed, so a transient render failure
// never costs a post its published directory. A nil or empty record marks
// everything stale, as does force. All slices come back sorted so downstream
// work and logs are deterministic.
func Classify(prev *Record, current map[string]Key, loaded []string, force bool) Classification {
	present := make(map[string]bool, len(loaded)+len(current))
	for _, slug := range loaded {
		present[slug] = true
	}
	for slug := range current {
		present[slug] = true
	}

	var c Classification
	for slug, key := range current {
		if force || prev == nil {
			c.Stale = append(c.Stale, slug)
			continue
		}
		old, ok := prev.Entries[slug]
		if ok && old.Fingerprint == key.Fingerprint && old.BacklinkHash == key.BacklinkHash {
			c.Unchanged = append(c.Unchanged, slug)
		} else {
			c.Stale = append(c.Stale, slug)
		}
	}
	if prev != nil {
		for slug := range prev.Entries {
			if !present[slug] {
				c.Removed = append(c.Removed, slug)
			}
		}
	}
	sort.Strings(c.Stale)
	sort.Strings(c.Unchanged)
	sort.Strings(c.Removed)
	return c
}
