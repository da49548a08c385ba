package pipeline

import "time"

// Stage describes a high-level phase of dictionary layout construction.
type Stage string

const (
	// StageLoad is reading discovery logs and fixed-layout blobs.
	StageLoad Stage = "load"
	// StageDiscover is graph marking and descriptor accumulation.
	StageDiscover Stage = "discover"
	// StageFinalize is slot assignment after fixpoint.
	StageFinalize Stage = "finalize"
	// StageEmit is writing the layout blob.
	StageEmit Stage = "emit"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the item is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the item is currently being processed.
	StatusWorking Status = "working"
	// StatusDone indicates the item is done.
	StatusDone Status = "done"
	// StatusError indicates the item failed.
	StatusError Status = "error"
)

// Event reports progress for one item — a canonical owner or method key —
// or for the overall pipeline when Item is empty.
type Event struct {
	Item    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) OnEvent(Event) {}

// Timings holds stage durations.
type Timings struct {
	stages map[Stage]time.Duration
}

// Set stores a duration for the given stage.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
	t.stages[stage] = dur
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	return t.stages[stage]
}

// Total returns the sum across all recorded stages.
func (t Timings) Total() time.Duration {
	var total time.Duration
	for _, d := range t.stages {
		total += d
	}
	return total
}
