// Package metrics defines the observability hooks used by the task runner,
// the watch loop and the live-reload hub.
package metrics

import "time"

// ResultLabel enumerates task outcome categories.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultSwallow  ResultLabel = "swallowed"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder receives task, watch and live-reload measurements.
type Recorder interface {
	ObserveTaskDuration(task string, d time.Duration)
	IncTaskResult(task string, result ResultLabel)
	IncWatchTrigger(binding string, outcome string)
	SetLiveReloadClients(n int)
	IncLiveReloadEvent(kind string)
}

// NoopRecorder discards everything. It is the default when metrics are off.
type NoopRecorder struct{}

func (NoopRecorder) ObserveTaskDuration(string, time.Duration) {}
func (NoopRecorder) IncTaskResult(string, ResultLabel)         {}
func (NoopRecorder) IncWatchTrigger(string, string)            {}
func (NoopRecorder) SetLiveReloadClients(int)                  {}
func (NoopRecorder) IncLiveReloadEvent(string)                 {}

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
