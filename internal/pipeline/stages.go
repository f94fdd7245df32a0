package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/inkpress/scribe/internal/assemble"
	"github.com/inkpress/scribe/internal/backlink"
	"github.com/inkpress/scribe/internal/buildcache"
	"github.com/inkpress/scribe/internal/post"
	"github.com/inkpress/scribe/internal/util/sets"
)

// StageName is a strongly-typed identifier for a build stage.
type StageName string

// Canonical stage names, in execution order. The initials stage only runs
// when an image generator is configured.
const (
	StageLoad     StageName = "load"
	StageRender   StageName = "render"
	StageInitials StageName = "initials"
	StageIndex    StageName = "index"
	StageClassify StageName = "classify"
	StageAssemble StageName = "assemble"
	StageRecord   StageName = "record"
)

// Stage is a discrete unit of work in the site build.
type Stage func(ctx context.Context, st *State) error

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// State is the shared build state threaded through the stages. Each stage
// reads what earlier stages produced and fills in its own outputs.
type State struct {
	Posts    []*post.Post
	Rendered []*post.Post
	Outbound map[string]sets.Set[string]
	Index    *backlink.Index
	Keys     map[string]buildcache.Key
	Previous *buildcache.Record
	Class    buildcache.Classification
	Output   assemble.Result

	// NewInitials are letters whose illuminated image was generated this
	// build; pages showing them cannot be served from cache.
	NewInitials []rune

	// Warnings collects fail-soft errors (posts excluded from output).
	Warnings []error

	Report *Report
}

// Outcome is the final status of a build.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeWarning  Outcome = "warning"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// Report summarizes one build run.
type Report struct {
	BuildID        string
	StartedAt      time.Time
	Duration       time.Duration
	StageDurations map[StageName]time.Duration
	Outcome        Outcome

	TotalPosts int
	Stale      int
	Unchanged  int
	Removed    int
	Failed     int
}

// StageError wraps a stage failure with its origin.
type StageError struct {
	Stage    StageName
	Canceled bool
	Err      error
}

func (e *StageError) Error() string { return fmt.Sprintf("stage %s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }
