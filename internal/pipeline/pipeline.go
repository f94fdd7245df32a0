// Package pipeline orchestrates a full site build as an ordered sequence of
// stages: load sources, render, index backlinks, classify against the build
// record, assemble output, persist the new record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/inkpress/scribe/internal/assemble"
	"github.com/inkpress/scribe/internal/backlink"
	"github.com/inkpress/scribe/internal/buildcache"
	"github.com/inkpress/scribe/internal/config"
	"github.com/inkpress/scribe/internal/initials"
	"github.com/inkpress/scribe/internal/logfields"
	"github.com/inkpress/scribe/internal/metrics"
	"github.com/inkpress/scribe/internal/post"
	"github.com/inkpress/scribe/internal/render"
)

// Builder runs site builds for one configuration.
type Builder struct {
	cfg      *config.Config
	store    *buildcache.Store
	recorder metrics.Recorder
	initials *initials.Cache
	force    bool
}

// New creates a builder. Metrics default to noop.
func New(cfg *config.Config) *Builder {
	return &Builder{
		cfg:      cfg,
		store:    buildcache.NewStore(cfg.OutputDir),
		recorder: metrics.NoopRecorder{},
	}
}

// WithRecorder injects a metrics recorder.
func (b *Builder) WithRecorder(r metrics.Recorder) *Builder {
	if r != nil {
		b.recorder = r
	}
	return b
}

// WithForce makes Run regenerate every post regardless of the build record.
func (b *Builder) WithForce(force bool) *Builder {
	b.force = force
	return b
}

// WithInitials enables illuminated initial generation during builds.
func (b *Builder) WithInitials(c *initials.Cache) *Builder {
	b.initials = c
	return b
}

// Run executes one build. The output directory is locked for the duration so
// concurrent builds cannot interleave writes. The returned report is non-nil
// whenever a build was started, including failed ones.
func (b *Builder) Run(ctx context.Context) (*Report, error) {
	release, err := b.store.Lock()
	if err != nil {
		return nil, err
	}
	defer release()

	st := &State{
		Report: &Report{
			BuildID:        uuid.NewString(),
			StartedAt:      time.Now(),
			StageDurations: make(map[StageName]time.Duration),
		},
	}
	slog.Info("Build started", logfields.BuildID(st.Report.BuildID))

	stages := []StageDef{
		{StageLoad, b.load},
		{StageRender, b.render},
	}
	if b.initials != nil {
		stages = append(stages, StageDef{StageInitials, b.ensureInitials})
	}
	stages = append(stages,
		StageDef{StageIndex, b.index},
		StageDef{StageClassify, b.classify},
		StageDef{StageAssemble, b.assemble},
		StageDef{StageRecord, b.record},
	)

	err = runStages(ctx, st, stages, b.recorder)
	st.Report.Duration = time.Since(st.Report.StartedAt)
	st.Report.Failed = len(st.Warnings)
	b.finish(st, err)
	return st.Report, err
}

func (b *Builder) finish(st *State, err error) {
	r := st.Report
	switch {
	case err != nil:
		var se *StageError
		if errors.As(err, &se) && se.Canceled {
			r.Outcome = OutcomeCanceled
		} else {
			r.Outcome = OutcomeFailed
		}
	case len(st.Warnings) > 0:
		r.Outcome = OutcomeWarning
	default:
		r.Outcome = OutcomeSuccess
	}

	b.recorder.ObserveBuildDuration(r.Duration)
	b.recorder.IncBuildOutcome(string(r.Outcome))
	b.recorder.SetPostCounts(r.TotalPosts, r.Stale, r.Unchanged)

	slog.Info("Build finished",
		logfields.BuildID(r.BuildID),
		slog.String("outcome", string(r.Outcome)),
		logfields.Posts(r.TotalPosts),
		slog.Int("stale", r.Stale),
		slog.Int("unchanged", r.Unchanged),
		slog.Int("removed", r.Removed),
		slog.Int("failed", r.Failed),
		logfields.DurationMS(float64(r.Duration.Milliseconds())))
}

func (b *Builder) load(ctx context.Context, st *State) error {
	posts, err := post.NewLoader(b.cfg.PostsDir, b.cfg.Workers()).Load(ctx)
	if err != nil {
		return err
	}
	st.Posts = posts
	return nil
}

func (b *Builder) render(ctx context.Context, st *State) error {
	r := render.New(b.cfg.URL, b.cfg.Workers())
	st.Rendered, st.Outbound, st.Warnings = r.RenderAll(ctx, st.Posts)
	if err := ctx.Err(); err != nil {
		return err
	}
	// All posts failing on a non-empty set means there is no site to write.
	if len(st.Posts) > 0 && len(st.Rendered) == 0 {
		return errors.Join(st.Warnings...)
	}
	return nil
}

// ensureInitials generates missing illuminated initial assets for the
// letters this post set needs. Per-letter failures degrade to plain text
// pages, so they count as warnings, not build failures.
func (b *Builder) ensureInitials(ctx context.Context, st *State) error {
	letters := make([]rune, 0, len(st.Rendered))
	for _, p := range st.Rendered {
		letters = append(letters, p.FirstLetter)
	}
	generated, failed, err := b.initials.Ensure(ctx, initials.LettersFor(letters))
	if err != nil {
		return err
	}
	if failed > 0 {
		st.Warnings = append(st.Warnings,
			fmt.Errorf("%d illuminated initial(s) failed to generate", failed))
	}
	st.NewInitials = generated
	return nil
}

func (b *Builder) index(_ context.Context, st *State) error {
	st.Index = backlink.Build(st.Rendered, st.Outbound)
	return nil
}

func (b *Builder) classify(_ context.Context, st *State) error {
	st.Keys = make(map[string]buildcache.Key, len(st.Rendered))
	for _, p := range st.Rendered {
		fp, err := p.ComputeFingerprint()
		if err != nil {
			return err
		}
		st.Keys[p.Slug] = buildcache.Key{
			Fingerprint:  fp,
			BacklinkHash: st.Index.Hash(p.Slug),
		}
	}

	// Removal is decided against the loaded set, not the rendered one, so a
	// post that failed to render keeps its published directory.
	loaded := make([]string, 0, len(st.Posts))
	for _, p := range st.Posts {
		loaded = append(loaded, p.Slug)
	}

	st.Previous = b.store.Load()
	st.Class = buildcache.Classify(st.Previous, st.Keys, loaded, b.force)
	b.invalidateForNewInitials(st)

	st.Report.TotalPosts = len(st.Rendered)
	st.Report.Stale = len(st.Class.Stale)
	st.Report.Unchanged = len(st.Class.Unchanged)
	st.Report.Removed = len(st.Class.Removed)
	return nil
}

// invalidateForNewInitials reclassifies posts whose illuminated initial was
// generated this build: their cached page predates the image and must be
// regenerated even though source and backlinks are unchanged.
func (b *Builder) invalidateForNewInitials(st *State) {
	if len(st.NewInitials) == 0 || len(st.Class.Unchanged) == 0 {
		return
	}
	fresh := make(map[rune]bool, len(st.NewInitials))
	for _, r := range st.NewInitials {
		fresh[r] = true
	}
	letterOf := make(map[string]rune, len(st.Rendered))
	for _, p := range st.Rendered {
		letterOf[p.Slug] = p.FirstLetter
	}

	unchanged := st.Class.Unchanged[:0]
	for _, slug := range st.Class.Unchanged {
		if fresh[letterOf[slug]] {
			st.Class.Stale = append(st.Class.Stale, slug)
			continue
		}
		unchanged = append(unchanged, slug)
	}
	st.Class.Unchanged = unchanged
	sort.Strings(st.Class.Stale)
}

func (b *Builder) assemble(_ context.Context, st *State) error {
	res, err := assemble.New(b.cfg).WriteSite(st.Rendered, st.Index, st.Class)
	if err != nil {
		return err
	}
	st.Output = res
	return nil
}

// record persists the build record last, so an aborted build never claims
// outputs it did not write. Unchanged posts keep their original build time;
// posts that failed to render carry their previous entry forward, so deleting
// their source later still cleans up the published directory.
func (b *Builder) record(_ context.Context, st *State) error {
	rec := buildcache.NewRecord(st.Report.BuildID)

	unchanged := make(map[string]bool, len(st.Class.Unchanged))
	for _, slug := range st.Class.Unchanged {
		unchanged[slug] = true
	}

	now := time.Now().UTC()
	for slug, key := range st.Keys {
		key.OutputPath = path.Join(slug, "index.html")
		key.BuiltAt = now
		if unchanged[slug] && st.Previous != nil {
			if old, ok := st.Previous.Entries[slug]; ok && !old.BuiltAt.IsZero() {
				key.BuiltAt = old.BuiltAt
			}
		}
		rec.Entries[slug] = key
	}

	if st.Previous != nil {
		for _, p := range st.Posts {
			if _, ok := st.Keys[p.Slug]; ok {
				continue
			}
			if old, ok := st.Previous.Entries[p.Slug]; ok {
				rec.Entries[p.Slug] = old
			}
		}
	}
	return b.store.Save(rec)
}
