// Package initials generates and caches illuminated initial images, one per
// letter. Generated images are stored as data URLs under
// <output>/initials/<letter>.txt so they survive rebuilds and never require a
// second API call for the same letter.
package initials

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/inkpress/scribe/internal/logfields"
)

// Generator produces an illuminated initial image for one letter, returned
// as a data URL.
type Generator interface {
	Generate(ctx context.Context, letter rune) (string, error)
}

// Cache manages the per-letter asset files under the output directory.
type Cache struct {
	dir string
	gen Generator
}

// NewCache creates a cache rooted at <outputDir>/initials.
func NewCache(outputDir string, gen Generator) *Cache {
	return &Cache{dir: filepath.Join(outputDir, "initials"), gen: gen}
}

// Ensure generates assets for every letter that does not already have one,
// returning the letters that were newly generated. Failures are per-letter:
// one bad generation does not stop the rest, and the aggregate count of
// failures is returned alongside.
func (c *Cache) Ensure(ctx context.Context, letters []rune) (generated []rune, failed int, err error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return nil, 0, fmt.Errorf("create initials directory: %w", err)
	}

	for _, letter := range letters {
		if err := ctx.Err(); err != nil {
			return generated, failed, err
		}

		path := c.assetPath(letter)
		if _, statErr := os.Stat(path); statErr == nil {
			slog.Debug("Initial already cached", slog.String("letter", string(letter)))
			continue
		}

		slog.Info("Generating illuminated initial", slog.String("letter", string(letter)))
		dataURL, genErr := c.gen.Generate(ctx, letter)
		if genErr != nil {
			slog.Warn("Initial generation failed",
				slog.String("letter", string(letter)), logfields.Error(genErr))
			failed++
			continue
		}
		if writeErr := os.WriteFile(path, []byte(dataURL), 0o644); writeErr != nil {
			return generated, failed, fmt.Errorf("write initial asset %s: %w", path, writeErr)
		}
		generated = append(generated, letter)
	}
	return generated, failed, nil
}

func (c *Cache) assetPath(letter rune) string {
	return filepath.Join(c.dir, string(letter)+".txt")
}

// ParseLetters accepts both "ABC" and "a,b,c" forms, upper-cases each letter,
// drops non-alphabetic runes, and deduplicates. The result is sorted.
func ParseLetters(spec string) []rune {
	seen := make(map[rune]bool)
	for _, part := range strings.Split(spec, ",") {
		for _, r := range strings.TrimSpace(part) {
			if unicode.IsLetter(r) {
				seen[unicode.ToUpper(r)] = true
			}
		}
	}
	letters := make([]rune, 0, len(seen))
	for r := range seen {
		letters = append(letters, r)
	}
	sort.Slice(letters, func(i, j int) bool { return letters[i] < letters[j] })
	return letters
}

// LettersFor collects the distinct first letters of the given posts' first
// paragraphs, sorted, skipping posts without one.
func LettersFor(firstLetters []rune) []rune {
	seen := make(map[rune]bool)
	for _, r := range firstLetters {
		if r != 0 {
			seen[r] = true
		}
	}
	letters := make([]rune, 0, len(seen))
	for r := range seen {
		letters = append(letters, r)
	}
	sort.Slice(letters, func(i, j int) bool { return letters[i] < letters[j] })
	return letters
}
