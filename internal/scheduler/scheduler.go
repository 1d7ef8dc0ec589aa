// Package scheduler runs periodic triggers on robfig/cron and one-off jobs on a
// bounded worker queue.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"taskhub/internal/logging"
)

type JobFunc func(ctx context.Context) error

type job struct {
	id   string
	name string
	fn   JobFunc
}

type Scheduler struct {
	cron    *cron.Cron
	jobs    chan job
	workers int

	mu      sync.RWMutex
	stopped bool
	started bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(loc *time.Location, workers, queueSize int) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	logger := cron.PrintfLogger(logging.Logger)
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		jobs:    make(chan job, queueSize),
		workers: workers,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Every runs fn at a fixed interval.
func (s *Scheduler) Every(interval time.Duration, name string, fn JobFunc) error {
	if interval <= 0 {
		return fmt.Errorf("schedule %s: interval must be positive", name)
	}
	return s.Cron("@every "+interval.String(), name, fn)
}

// Cron runs fn on a standard five-field cron spec or a descriptor like @daily.
func (s *Scheduler) Cron(spec, name string, fn JobFunc) error {
	_, err := s.cron.AddFunc(spec, func() { s.run(job{id: uuid.NewString(), name: name, fn: fn}) })
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	return nil
}

// Enqueue hands fn to the worker pool without blocking. It returns the job id,
// or false when the queue is full or the scheduler is stopped.
func (s *Scheduler) Enqueue(name string, fn func(ctx context.Context) error) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return "", false
	}
	j := job{id: uuid.NewString(), name: name, fn: fn}
	select {
	case s.jobs <- j:
		return j.id, true
	default:
		logging.Logger.Warnf("[jobs][drop] %s id=%s: queue full", name, j.id)
		return "", false
	}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	s.cron.Start()
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for j := range s.jobs {
		s.run(j)
	}
}

func (s *Scheduler) run(j job) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logging.Logger.Errorf("[jobs][panic] %s id=%s: %v", j.name, j.id, r)
		}
	}()
	if err := j.fn(s.ctx); err != nil {
		logging.Logger.Errorf("[jobs][err] %s id=%s: %v", j.name, j.id, err)
		return
	}
	logging.Logger.Debugf("[jobs][ok] %s id=%s took=%s", j.name, j.id, time.Since(start).Truncate(time.Millisecond))
}

// Stop halts the triggers, lets queued jobs drain and waits for the workers
// until ctx is done. Running jobs see their context cancelled only when ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	started := s.started
	close(s.jobs)
	s.mu.Unlock()

	if !started {
		s.cancel()
		return nil
	}

	cronDone := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// Inline runs every enqueued job immediately on the caller's goroutine.
// The CLI uses it to run a sweep synchronously.
type Inline struct {
	Ctx context.Context
}

func (in Inline) Enqueue(name string, fn func(ctx context.Context) error) (string, bool) {
	ctx := in.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	id := uuid.NewString()
	if err := fn(ctx); err != nil {
		logging.Logger.Errorf("[jobs][err] %s id=%s: %v", name, id, err)
	}
	return id, true
}
