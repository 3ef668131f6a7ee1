// Package queue serializes transcription work: one job in flight, FIFO order,
// one FileState per path for the life of the process.
package queue

import (
	"context"
	"time"
)

// Phase is the lifecycle position of a file
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseQueued     Phase = "queued"
	PhaseProcessing Phase = "processing"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// FileState is a snapshot of one file's status. Progress is only non-zero
// while Processing.
type FileState struct {
	Phase     Phase     `json:"phase"`
	Progress  float64   `json:"progress"`
	Result    string    `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	JobID     string    `json:"job_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Update is sent to subscribers on every state change
type Update struct {
	Path  string
	State FileState
}

// Job is a pending unit of work
type Job struct {
	ID         string
	Path       string
	EnqueuedAt time.Time
}

// Exporter receives finished transcripts
type Exporter interface {
	Export(ctx context.Context, mediaPath, transcript string) error
}

// Scheduler accepts submissions and drains them through the engine
type Scheduler interface {
	// Submit queues path unless it is already queued or processing, or its
	// transcript is already complete, in which case the state becomes Done.
	Submit(ctx context.Context, path string) (FileState, error)
	// Status returns the state of path, Idle if unknown
	Status(path string) FileState
	// Snapshot returns the state of every known path
	Snapshot() map[string]FileState
	// Pending returns the number of jobs waiting to start
	Pending() int
	// Clear drops all pending jobs; the in-flight job is not affected
	Clear()
	// Subscribe returns a channel of state changes and a cancel func.
	// Updates are dropped for subscribers that fall behind.
	Subscribe(buffer int) (<-chan Update, func())
	// Run is the worker loop. It returns when ctx is done.
	Run(ctx context.Context) error
}
