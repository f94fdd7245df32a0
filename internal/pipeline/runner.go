package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/inkpress/scribe/internal/logfields"
	"github.com/inkpress/scribe/internal/metrics"
)

// runStages executes stages in order, recording per-stage timing and stopping
// on the first error. Cancellation is checked between stages so a long build
// stops at the next stage boundary.
func runStages(ctx context.Context, st *State, stages []StageDef, rec metrics.Recorder) error {
	for _, def := range stages {
		select {
		case <-ctx.Done():
			rec.IncStageResult(string(def.Name), metrics.ResultCanceled)
			return &StageError{Stage: def.Name, Canceled: true, Err: ctx.Err()}
		default:
		}

		t0 := time.Now()
		err := def.Fn(ctx, st)
		dur := time.Since(t0)
		st.Report.StageDurations[def.Name] = dur
		rec.ObserveStageDuration(string(def.Name), dur)

		if err != nil {
			rec.IncStageResult(string(def.Name), metrics.ResultFatal)
			return &StageError{Stage: def.Name, Err: err}
		}
		rec.IncStageResult(string(def.Name), metrics.ResultSuccess)
		slog.Debug("Stage complete",
			logfields.Stage(string(def.Name)), logfields.DurationMS(float64(dur.Milliseconds())))
	}
	return nil
}
