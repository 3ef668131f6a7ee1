package queue

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/nguyentantai21042004/folder-scribe/internal/logger"
	"github.com/nguyentantai21042004/folder-scribe/internal/media"
)

func (s *implScheduler) Submit(ctx context.Context, path string) (FileState, error) {
	path, err := media.Canonical(path)
	if err != nil {
		return FileState{}, err
	}

	s.mu.Lock()
	if st := s.stateLocked(path); st.Phase == PhaseQueued || st.Phase == PhaseProcessing {
		snapshot := st
		s.mu.Unlock()
		s.logger.Debug(ctx, "Already %s, ignoring submit: %s", snapshot.Phase, path)
		return snapshot, nil
	}
	s.mu.Unlock()

	// Store reads happen outside the lock so status readers never wait on disk
	done, err := s.store.Completed(path)
	if err != nil {
		return FileState{}, fmt.Errorf("check transcript: %w", err)
	}
	var transcript string
	if done {
		if transcript, _, err = s.store.ReadTranscript(path); err != nil {
			return FileState{}, fmt.Errorf("read transcript: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check: another submit may have won while the lock was released
	if st := s.stateLocked(path); st.Phase == PhaseQueued || st.Phase == PhaseProcessing {
		return st, nil
	}

	if done {
		s.logger.Info(ctx, "Transcript already exists, skipping: %s", filepath.Base(path))
		return s.setLocked(path, FileState{Phase: PhaseDone, Result: transcript}), nil
	}

	job := Job{ID: uuid.NewString(), Path: path, EnqueuedAt: time.Now()}
	s.pending = append(s.pending, job)
	s.metrics.JobsSubmitted.Inc()
	s.metrics.QueueDepth.Set(float64(len(s.pending)))

	select {
	case s.wake <- struct{}{}:
	default:
	}

	s.logger.Info(ctx, "Queued %s (position %d, job %s)", filepath.Base(path), len(s.pending), job.ID)
	return s.setLocked(path, FileState{Phase: PhaseQueued, JobID: job.ID}), nil
}

func (s *implScheduler) Status(path string) FileState {
	if canon, err := media.Canonical(path); err == nil {
		path = canon
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked(path)
}

func (s *implScheduler) Snapshot() map[string]FileState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]FileState, len(s.states))
	for path, st := range s.states {
		out[path] = *st
	}
	return out
}

func (s *implScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *implScheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.pending {
		s.setLocked(job.Path, FileState{Phase: PhaseIdle})
	}
	if n := len(s.pending); n > 0 {
		s.logger.Info(context.Background(), "Cleared %d pending jobs", n)
	}
	s.pending = nil
	s.metrics.QueueDepth.Set(0)
}

func (s *implScheduler) Subscribe(buffer int) (<-chan Update, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Update, buffer)
	s.subscribers[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(c)
		}
	}
	return ch, cancel
}

// Run drains the queue one job at a time until ctx is done
func (s *implScheduler) Run(ctx context.Context) error {
	s.logger.Info(ctx, "Transcription worker started")
	for {
		job, ok := s.next(ctx)
		if !ok {
			s.logger.Info(ctx, "Transcription worker stopped")
			return ctx.Err()
		}
		s.process(ctx, job)
	}
}

// next pops the oldest job and marks it Processing in the same critical
// section, blocking while the queue is empty.
func (s *implScheduler) next(ctx context.Context) (Job, bool) {
	for {
		s.mu.Lock()
		if len(s.pending) > 0 {
			job := s.pending[0]
			s.pending = s.pending[1:]
			s.metrics.QueueDepth.Set(float64(len(s.pending)))
			s.setLocked(job.Path, FileState{Phase: PhaseProcessing, JobID: job.ID})
			s.mu.Unlock()
			return job, true
		}
		s.mu.Unlock()

		select {
		case <-s.wake:
		case <-ctx.Done():
			return Job{}, false
		}
	}
}

func (s *implScheduler) process(ctx context.Context, job Job) {
	startTime := time.Now()
	jobCtx := logger.WithJob(ctx, job.ID)
	name := filepath.Base(job.Path)

	s.logger.Info(jobCtx, "========================================")
	s.logger.Info(jobCtx, "Starting transcription: %s (waited %s)", job.Path, startTime.Sub(job.EnqueuedAt).Round(time.Millisecond))

	transcript, err := s.runEngine(jobCtx, job)

	s.mu.Lock()
	if err != nil {
		s.setLocked(job.Path, FileState{Phase: PhaseFailed, Error: err.Error(), JobID: job.ID})
	} else {
		s.setLocked(job.Path, FileState{Phase: PhaseDone, Result: transcript, JobID: job.ID})
	}
	s.mu.Unlock()

	if err != nil {
		s.metrics.RecordJob("failed", startTime)
		s.logger.Error(jobCtx, "Transcription failed for %s: %v", name, err)
		return
	}

	s.metrics.RecordJob("done", startTime)
	s.logger.Info(jobCtx, "Transcription completed: %s (%s)", name, time.Since(startTime).Round(time.Millisecond))

	if s.exporter != nil {
		if err := s.exporter.Export(jobCtx, job.Path, transcript); err != nil {
			s.logger.Warn(jobCtx, "Failed to export transcript for %s: %v", name, err)
		}
	}
}

// runEngine runs one job, forwarding engine progress into the file state.
// A panic in the engine or an adapter fails the job instead of the worker.
func (s *implScheduler) runEngine(ctx context.Context, job Job) (transcript string, err error) {
	progress := make(chan float64, 16)
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for p := range progress {
			s.setProgress(job.Path, job.ID, p)
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transcription panicked: %v", r)
		}
		close(progress)
		<-forwarded
	}()

	return s.engine.Run(ctx, job.Path, progress)
}

func (s *implScheduler) setProgress(path, jobID string, p float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stateLocked(path)
	if st.Phase != PhaseProcessing || st.JobID != jobID {
		return
	}
	st.Progress = min(max(p, st.Progress), 1)
	s.setLocked(path, st)
}

func (s *implScheduler) stateLocked(path string) FileState {
	if st, ok := s.states[path]; ok {
		return *st
	}
	return FileState{Phase: PhaseIdle}
}

// setLocked stores st for path and notifies subscribers. Progress is
// zeroed outside Processing.
func (s *implScheduler) setLocked(path string, st FileState) FileState {
	if st.Phase != PhaseProcessing {
		st.Progress = 0
	}
	st.UpdatedAt = time.Now()

	if cur, ok := s.states[path]; ok {
		*cur = st
	} else {
		s.states[path] = &st
	}

	for _, ch := range s.subscribers {
		select {
		case ch <- Update{Path: path, State: st}:
		default:
		}
	}
	return st
}
