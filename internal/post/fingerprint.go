package post

import (
	"strings"

	"github.com/inful/mdfp"

	"github.com/inkpress/scribe/internal/frontmatter"
)

// Fingerprint computes the canonical content fingerprint for a post: a hash
// over the deterministically serialized frontmatter plus the raw body bytes.
// Any frontmatter edit (title, date, excerpt, anything else) changes it.
//
// Canonicalization: YAML serialized with sorted keys and LF newlines, single
// trailing newline trimmed before hashing.
func (p *Post) ComputeFingerprint() (string, error) {
	serialized, err := frontmatter.Serialize(p.Frontmatter)
	if err != nil {
		return "", err
	}
	fm := trimSingleTrailingNewline(string(serialized))
	return mdfp.CalculateFingerprintFromParts(fm, string(p.Body)), nil
}

func trimSingleTrailingNewline(s string) string {
	if before, ok := strings.CutSuffix(s, "\r\n"); ok {
		return before
	}
	if before, ok := strings.CutSuffix(s, "\n"); ok {
		return before
	}
	return s
}
