package dispatch

import (
	"sync"

	"clipfeed/internal/metrics"

	"go.uber.org/zap"
)

// FailureSink receives the outcome of every dispatched task.
type FailureSink interface {
	TaskFailed(name string, err error)
	TaskSucceeded(name string)
}

type NopSink struct{}

func (NopSink) TaskFailed(string, error) {}
func (NopSink) TaskSucceeded(string)     {}

// LogSink logs failures.
type LogSink struct {
	Log *zap.Logger
}

func (s LogSink) TaskFailed(name string, err error) {
	s.Log.Warn("secondary write failed", zap.String("task", name), zap.Error(err))
}

func (s LogSink) TaskSucceeded(string) {}

// MetricsSink counts outcomes per task name.
type MetricsSink struct {
	Metrics *metrics.Metrics
}

func (s MetricsSink) TaskFailed(name string, _ error) { s.Metrics.SecondaryWrite(name, "failed") }
func (s MetricsSink) TaskSucceeded(name string)       { s.Metrics.SecondaryWrite(name, "ok") }

// Sinks fans one outcome out to several sinks.
type Sinks []FailureSink

func (ss Sinks) TaskFailed(name string, err error) {
	for _, s := range ss {
		s.TaskFailed(name, err)
	}
}

func (ss Sinks) TaskSucceeded(name string) {
	for _, s := range ss {
		s.TaskSucceeded(name)
	}
}

// Failure is one recorded task failure.
type Failure struct {
	Task string
	Err  error
}

// Recorder keeps every failure in memory.
type Recorder struct {
	mu       sync.Mutex
	failures []Failure
	ok       []string
}

func (r *Recorder) TaskFailed(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, Failure{Task: name, Err: err})
}

func (r *Recorder) TaskSucceeded(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ok = append(r.ok, name)
}

func (r *Recorder) Failures() []Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Failure{}, r.failures...)
}

func (r *Recorder) Succeeded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.ok...)
}
