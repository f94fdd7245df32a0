package post

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/inkpress/scribe/internal/frontmatter"
)

// Load failure kinds. All of them abort the whole build: a partially loaded
// post set would corrupt the backlink graph.
var (
	ErrMalformedFrontmatter = errors.New("malformed frontmatter")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInvalidDate          = errors.New("invalid date")
	ErrDuplicateSlug        = errors.New("duplicate slug")
)

// Post is one Markdown source document. Identity is the slug, unique within a
// site. Link edges between posts are not stored here; they live in slug-keyed
// index structures (see the backlink package) to keep the records acyclic.
type Post struct {
	Slug         string
	OriginalSlug string // filename stem before sanitization
	SourcePath   string
	Title        string
	Date         time.Time
	Excerpt      string
	Body         []byte
	Frontmatter  map[string]any

	// Derived by the renderer.
	HTML        []byte
	FirstLetter rune // 0 when the first paragraph has no alphabetic rune
}

// Parse builds a Post from raw file content. path is used for slug derivation
// and error reporting only.
func Parse(content []byte, path string) (*Post, error) {
	raw, body, had, err := frontmatter.Split(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, ErrMalformedFrontmatter)
	}
	if !had {
		return nil, fmt.Errorf("%s: %w: frontmatter block", path, ErrMissingRequiredField)
	}

	fields, err := frontmatter.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, ErrMalformedFrontmatter, err)
	}

	title, _ := fields["title"].(string)
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%s: %w: title", path, ErrMissingRequiredField)
	}

	date, err := parseDate(fields["date"])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	excerpt, _ := fields["excerpt"].(string)

	original := stem(path)
	return &Post{
		Slug:         Sanitize(original),
		OriginalSlug: original,
		SourcePath:   path,
		Title:        title,
		Date:         date,
		Excerpt:      excerpt,
		Body:         body,
		Frontmatter:  fields,
	}, nil
}

// parseDate accepts RFC3339 timestamps and bare dates. Authored posts mostly
// carry date-only strings.
func parseDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case nil:
		return time.Time{}, fmt.Errorf("%w: date", ErrMissingRequiredField)
	case time.Time:
		// yaml.v3 decodes unquoted ISO dates as time.Time directly.
		return d.UTC(), nil
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, d); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, d)
	default:
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidDate, v)
	}
}

var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Sanitize derives a URL-safe slug: diacritics folded, lowercased, runs of
// non-alphanumerics collapsed to single hyphens, hyphens trimmed from the
// ends. An input that sanitizes to nothing becomes "untitled".
func Sanitize(name string) string {
	folded, _, err := transform.String(foldMarks, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	s := strings.TrimRight(b.String(), "-")
	if s == "" {
		return "untitled"
	}
	return s
}

func stem(path string) string {
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}
