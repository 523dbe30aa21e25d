// Package rvbscheduler implements the propagation scheduler (spec §5):
// a bounded worker pool that runs one wave-queue task per sensor, where
// submitting a new task for a sensor already running supersedes
// (cancels, then replaces) its predecessor rather than queuing behind
// it.
//
// The bounded-pool-plus-stop-channel shape is grounded on the teacher's
// internal/db.TransitWorker (ticker + StopChan goroutine); supersession
// is grounded on internal/bistatic's Composer, which uses the same
// context.CancelFunc/done-channel idiom to abort superseded biverb and
// envelope tasks.
package rvbscheduler

import (
	"context"
	"runtime"
	"sync"

	"github.com/banshee-data/deepreverb/internal/rvbconfig"
	"github.com/banshee-data/deepreverb/internal/rvblog"
)

// SensorID identifies the sensor whose wave queue a Task propagates.
type SensorID string

// Task is the unit of work scheduled per sensor. Implementations
// should check ctx.Done() between expensive steps (spec §5: "a
// superseded task must observe cancellation promptly, not merely at
// its next submission boundary").
type Task func(ctx context.Context) error

// Scheduler runs at most PoolSize Tasks concurrently across all
// sensors, while guaranteeing at most one Task runs per sensor at a
// time: submitting a new Task for a sensor already running cancels and
// waits out the old one first.
type Scheduler struct {
	sem chan struct{}

	mu    sync.Mutex
	tasks map[SensorID]*running
	wg    sync.WaitGroup
}

type running struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Scheduler. poolSize <= 0 resolves to runtime.NumCPU(),
// matching rvbconfig.TuningConfig.GetWorkerPoolSize()'s "0 means
// caller resolves" convention.
func New(poolSize int) *Scheduler {
	if poolSize <= 0 {
		poolSize = runtime.NumCPU()
	}
	return &Scheduler{
		sem:   make(chan struct{}, poolSize),
		tasks: make(map[SensorID]*running),
	}
}

// NewFromConfig builds a Scheduler sized from cfg.GetWorkerPoolSize().
func NewFromConfig(cfg *rvbconfig.TuningConfig) *Scheduler {
	return New(cfg.GetWorkerPoolSize())
}

// Submit supersedes any in-flight Task for sensor and starts task in
// its place, acquiring a pool slot. Submit itself does not block on
// acquiring that slot; the wait happens in the spawned goroutine so
// callers can supersede a queued-but-not-yet-running task without
// stalling.
func (s *Scheduler) Submit(sensor SensorID, task Task) {
	s.mu.Lock()
	s.supersedeLocked(sensor)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.tasks[sensor] = &running{cancel: cancel, done: done}
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(sensor, ctx, done, task)
}

func (s *Scheduler) run(sensor SensorID, ctx context.Context, done chan struct{}, task Task) {
	defer s.wg.Done()
	defer close(done)

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer func() { <-s.sem }()

	select {
	case <-ctx.Done():
		return
	default:
	}

	if err := task(ctx); err != nil && ctx.Err() == nil {
		rvblog.Warnf("rvbscheduler: task for sensor %q failed: %v", sensor, err)
	}

	s.mu.Lock()
	if s.tasks[sensor] != nil && s.tasks[sensor].done == done {
		delete(s.tasks, sensor)
	}
	s.mu.Unlock()
}

// supersedeLocked cancels and waits out sensor's in-flight task, if
// any. Caller must hold s.mu; it is released and re-acquired around
// the wait so the superseded goroutine's own mu.Lock() in run doesn't
// deadlock against it.
func (s *Scheduler) supersedeLocked(sensor SensorID) {
	prev, ok := s.tasks[sensor]
	if !ok {
		return
	}
	delete(s.tasks, sensor)
	prev.cancel()
	s.mu.Unlock()
	<-prev.done
	s.mu.Lock()
}

// Cancel supersedes sensor's in-flight task without starting a
// replacement.
func (s *Scheduler) Cancel(sensor SensorID) {
	s.mu.Lock()
	s.supersedeLocked(sensor)
	s.mu.Unlock()
}

// Wait blocks until every Task ever submitted has returned (whether
// completed or cancelled). Intended for graceful shutdown once no more
// Submit calls will occur.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Close cancels every in-flight task and waits for them to finish.
func (s *Scheduler) Close() {
	s.mu.Lock()
	sensors := make([]SensorID, 0, len(s.tasks))
	for sensor := range s.tasks {
		sensors = append(sensors, sensor)
	}
	s.mu.Unlock()

	for _, sensor := range sensors {
		s.Cancel(sensor)
	}
	s.wg.Wait()
}

// Active reports how many sensors currently have an in-flight task.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
