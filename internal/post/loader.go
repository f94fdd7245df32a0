package post

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/inkpress/scribe/internal/logfields"
)

// Loader reads and validates every post source under a directory.
//
// Loading is fail-hard: any malformed file aborts the whole load and the
// returned error aggregates every offending file, so authors fix them in one
// round trip. No ordering guarantee is made on the returned slice; display
// ordering is applied at assembly time.
type Loader struct {
	dir     string
	workers int
}

// NewLoader creates a loader over dir with a bounded parse pool.
func NewLoader(dir string, workers int) *Loader {
	if workers < 1 {
		workers = 1
	}
	return &Loader{dir: dir, workers: workers}
}

// Load parses all *.md files under the posts directory. A missing directory
// yields an empty post set, matching first-run behavior in a fresh project.
func (l *Loader) Load(ctx context.Context) ([]*Post, error) {
	paths, err := l.listSources()
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		slog.Info("No posts found", logfields.Path(l.dir))
		return nil, nil
	}

	type result struct {
		post *Post
		err  error
	}

	results := make([]result, len(paths))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < l.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i].post, results[i].err = parseFile(paths[i])
			}
		}()
	}

feed:
	for i := range paths {
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

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var errs []error
	posts := make([]*Post, 0, len(paths))
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		if r.post != nil {
			posts = append(posts, r.post)
		}
	}

	if dupErrs := findDuplicateSlugs(posts); len(dupErrs) > 0 {
		errs = append(errs, dupErrs...)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	slog.Debug("Posts loaded", logfields.Posts(len(posts)), logfields.Path(l.dir))
	return posts, nil
}

func (l *Loader) listSources() ([]string, error) {
	if _, err := os.Stat(l.dir); os.IsNotExist(err) {
		return nil, nil
	}

	var paths []string
	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if strings.EqualFold(filepath.Ext(d.Name()), ".md") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk posts directory %s: %w", l.dir, err)
	}
	// Stable job order keeps error aggregation deterministic.
	sort.Strings(paths)
	return paths, nil
}

func parseFile(path string) (*Post, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(content, path)
}

// findDuplicateSlugs reports every slug claimed by more than one source file.
func findDuplicateSlugs(posts []*Post) []error {
	bySlug := make(map[string][]string, len(posts))
	for _, p := range posts {
		bySlug[p.Slug] = append(bySlug[p.Slug], p.SourcePath)
	}

	slugs := make([]string, 0, len(bySlug))
	for slug, files := range bySlug {
		if len(files) > 1 {
			slugs = append(slugs, slug)
		}
	}
	sort.Strings(slugs)

	var errs []error
	for _, slug := range slugs {
		files := bySlug[slug]
		sort.Strings(files)
		errs = append(errs, fmt.Errorf("%w %q: %s", ErrDuplicateSlug, slug, strings.Join(files, ", ")))
	}
	return errs
}
