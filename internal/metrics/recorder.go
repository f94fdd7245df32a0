// Package metrics defines observability hooks for the build pipeline and the
// publish gateway. Components take a Recorder by injection and default to
// NoopRecorder, so metrics stay optional and no call site needs a nil check.
package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines the metrics surface. Implementations must tolerate nil
// receivers so optional injection stays cheap.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncBuildOutcome(outcome string) // success|warning|failed|canceled
	SetPostCounts(total, stale, unchanged int)
	IncPublishAttempt()
	IncPublishResult(success bool)
	ObservePublishDuration(d time.Duration)
}

// NoopRecorder is the default Recorder; every method is a no-op.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncBuildOutcome(string)                     {}
func (NoopRecorder) SetPostCounts(int, int, int)                {}
func (NoopRecorder) IncPublishAttempt()                         {}
func (NoopRecorder) IncPublishResult(bool)                      {}
func (NoopRecorder) ObservePublishDuration(time.Duration)       {}
