package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inkpress/scribe/internal/buildcache"
	"github.com/inkpress/scribe/internal/config"
	"github.com/inkpress/scribe/internal/initials"
	"github.com/inkpress/scribe/internal/post"
)

func testSite(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Title = "Pipeline Test"
	cfg.PostsDir = filepath.Join(root, "posts")
	cfg.OutputDir = filepath.Join(root, "dist")
	require.NoError(t, os.MkdirAll(cfg.PostsDir, 0o755))
	return cfg
}

func writeSource(t *testing.T, cfg *config.Config, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(cfg.PostsDir, name), []byte(content), 0o644))
}

const postA = "---\ntitle: Alpha\ndate: \"2024-01-01\"\nexcerpt: first\n---\nAlpha links to [beta](beta).\n"
const postB = "---\ntitle: Beta\ndate: \"2024-02-01\"\n---\nBeta stands alone.\n"

func TestRun_FullBuildProducesSite(t *testing.T) {
	cfg := testSite(t)
	writeSource(t, cfg, "alpha.md", postA)
	writeSource(t, cfg, "beta.md", postB)

	report, err := New(cfg).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, report.Outcome)
	require.Equal(t, 2, report.TotalPosts)
	require.Equal(t, 2, report.Stale)
	require.NotEmpty(t, report.BuildID)

	for _, p := range []string{"index.html", "style.css",
		filepath.Join("alpha", "index.html"), filepath.Join("beta", "index.html")} {
		_, statErr := os.Stat(filepath.Join(cfg.OutputDir, p))
		require.NoError(t, statErr, p)
	}

	beta, readErr := os.ReadFile(filepath.Join(cfg.OutputDir, "beta", "index.html"))
	require.NoError(t, readErr)
	require.Contains(t, string(beta), "Backlinks")
	require.Contains(t, string(beta), `href="../alpha/"`)
}

func TestRun_SecondBuildIsIncremental(t *testing.T) {
	cfg := testSite(t)
	writeSource(t, cfg, "alpha.md", postA)
	writeSource(t, cfg, "beta.md", postB)

	b := New(cfg)
	_, err := b.Run(context.Background())
	require.NoError(t, err)

	report, err := b.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, report.Stale)
	require.Equal(t, 2, report.Unchanged)
}

func TestRun_EditedPostBecomesStale(t *testing.T) {
	cfg := testSite(t)
	writeSource(t, cfg, "alpha.md", postA)
	writeSource(t, cfg, "beta.md", postB)

	b := New(cfg)
	_, err := b.Run(context.Background())
	require.NoError(t, err)

	writeSource(t, cfg, "beta.md", "---\ntitle: Beta\ndate: \"2024-02-01\"\n---\nEdited.\n")
	report, err := b.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Stale)
	require.Equal(t, 1, report.Unchanged)
}

func TestRun_NewBacklinkInvalidatesTarget(t *testing.T) {
	cfg := testSite(t)
	writeSource(t, cfg, "alpha.md", postA)
	writeSource(t, cfg, "beta.md", postB)

	b := New(cfg)
	_, err := b.Run(context.Background())
	require.NoError(t, err)

	// beta gains a link to alpha; alpha's page must be regenerated even
	// though alpha's own source is untouched.
	writeSource(t, cfg, "beta.md", "---\ntitle: Beta\ndate: \"2024-02-01\"\n---\nNow see [alpha](alpha).\n")
	report, err := b.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.Stale)
	require.Equal(t, 0, report.Unchanged)

	alpha, readErr := os.ReadFile(filepath.Join(cfg.OutputDir, "alpha", "index.html"))
	require.NoError(t, readErr)
	require.Contains(t, string(alpha), "Backlinks")
}

func TestRun_ForceRebuildsEverything(t *testing.T) {
	cfg := testSite(t)
	writeSource(t, cfg, "alpha.md", postA)

	b := New(cfg)
	_, err := b.Run(context.Background())
	require.NoError(t, err)

	report, err := New(cfg).WithForce(true).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Stale)
	require.Equal(t, 0, report.Unchanged)
}

func TestRun_RemovedPostCleanedUp(t *testing.T) {
	cfg := testSite(t)
	writeSource(t, cfg, "alpha.md", postA)
	writeSource(t, cfg, "beta.md", postB)

	b := New(cfg)
	_, err := b.Run(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(cfg.PostsDir, "beta.md")))
	report, err := b.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Removed)

	_, statErr := os.Stat(filepath.Join(cfg.OutputDir, "beta"))
	require.True(t, os.IsNotExist(statErr))
}

func TestRun_RecordCarriesOutputPathAndBuildTime(t *testing.T) {
	cfg := testSite(t)
	writeSource(t, cfg, "alpha.md", postA)

	b := New(cfg)
	_, err := b.Run(context.Background())
	require.NoError(t, err)

	rec := buildcache.NewStore(cfg.OutputDir).Load()
	require.NotNil(t, rec)
	entry := rec.Entries["alpha"]
	require.Equal(t, "alpha/index.html", entry.OutputPath)
	require.False(t, entry.BuiltAt.IsZero())

	// An unchanged post keeps its original build time.
	_, err = b.Run(context.Background())
	require.NoError(t, err)
	rec2 := buildcache.NewStore(cfg.OutputDir).Load()
	require.Equal(t, entry.BuiltAt, rec2.Entries["alpha"].BuiltAt)
}

func TestRecord_UnrenderedPostKeepsPreviousEntry(t *testing.T) {
	cfg := testSite(t)
	b := New(cfg)

	prev := buildcache.NewRecord("earlier")
	prev.Entries["flaky"] = buildcache.Key{Fingerprint: "f", BacklinkHash: "h"}

	// "flaky" loaded but produced no key, as after a render failure.
	st := &State{
		Posts:    []*post.Post{{Slug: "flaky"}},
		Keys:     map[string]buildcache.Key{},
		Previous: prev,
		Report:   &Report{BuildID: "next"},
	}
	require.NoError(t, b.record(context.Background(), st))

	rec := buildcache.NewStore(cfg.OutputDir).Load()
	require.NotNil(t, rec)
	require.Equal(t, prev.Entries["flaky"], rec.Entries["flaky"])
}

type stubGenerator struct {
	calls int
}

func (s *stubGenerator) Generate(_ context.Context, _ rune) (string, error) {
	s.calls++
	return "data:image/png;base64,aW1n", nil
}

func TestRun_InitialsGeneratedAndEmbedded(t *testing.T) {
	cfg := testSite(t)
	writeSource(t, cfg, "alpha.md", postA)

	gen := &stubGenerator{}
	b := New(cfg).WithInitials(initials.NewCache(cfg.OutputDir, gen))
	report, err := b.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, report.Outcome)
	require.Equal(t, 1, gen.calls)

	alpha, readErr := os.ReadFile(filepath.Join(cfg.OutputDir, "alpha", "index.html"))
	require.NoError(t, readErr)
	require.Contains(t, string(alpha), "data:image/png;base64,aW1n")
}

func TestRun_NewInitialInvalidatesCachedPage(t *testing.T) {
	cfg := testSite(t)
	writeSource(t, cfg, "alpha.md", postA)

	// First build without a generator leaves the page un-illuminated.
	_, err := New(cfg).Run(context.Background())
	require.NoError(t, err)

	gen := &stubGenerator{}
	report, err := New(cfg).WithInitials(initials.NewCache(cfg.OutputDir, gen)).
		Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Stale)
	require.Equal(t, 0, report.Unchanged)

	// With the asset now cached, the next build serves from cache again.
	report, err = New(cfg).WithInitials(initials.NewCache(cfg.OutputDir, gen)).
		Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, report.Stale)
	require.Equal(t, 1, report.Unchanged)
	require.Equal(t, 1, gen.calls)
}

func TestRun_MalformedPostFailsBuild(t *testing.T) {
	cfg := testSite(t)
	writeSource(t, cfg, "bad.md", "---\ntitle: No Date\n---\nbody\n")

	report, err := New(cfg).Run(context.Background())
	require.Error(t, err)
	require.Equal(t, OutcomeFailed, report.Outcome)

	var se *StageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, StageLoad, se.Stage)
}

func TestRun_CanceledContextReportsCanceled(t *testing.T) {
	cfg := testSite(t)
	writeSource(t, cfg, "alpha.md", postA)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := New(cfg).Run(ctx)
	require.Error(t, err)
	require.Equal(t, OutcomeCanceled, report.Outcome)
}

func TestRun_ConcurrentBuildRejectedByLock(t *testing.T) {
	cfg := testSite(t)
	writeSource(t, cfg, "alpha.md", postA)

	// Simulate a crashed or concurrent build holding the lock.
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.OutputDir, ".scribe"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.OutputDir, ".scribe", "lock"), []byte("1\n"), 0o644))

	_, err := New(cfg).Run(context.Background())
	require.Error(t, err)
}
