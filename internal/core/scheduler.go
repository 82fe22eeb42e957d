package core

/*
domcheck — domain availability checks over DNS and WHOIS
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zeebo/xxh3"

	"github.com/x-stp/domcheck/internal/metrics"
)

// Scheduler manages a pool of worker goroutines and dispatches jobs to them
// based on a hash of the job key. Each worker drains its own queue in FIFO
// order, so with a single worker jobs run strictly in submission order.
type Scheduler struct {
	numWorkers int
	workers    []*worker
	ctx        context.Context
	cancel     context.CancelFunc
	shutdown   atomic.Bool
	submitMu   sync.RWMutex // held shared by submitters, exclusively by Shutdown
	stop       chan struct{}
	jobPool    sync.Pool
	activeWork sync.WaitGroup // jobs accepted but not finished
	running    sync.WaitGroup // worker goroutines
}

// worker encapsulates a single worker goroutine and its counters.
type worker struct {
	id        int
	queue     chan *Job
	scheduler *Scheduler

	processed atomic.Int64
	errors    atomic.Int64
	panics    atomic.Int64
}

// EffectiveWorkers resolves a requested worker count: non-positive means
// DefaultWorkers, the result never exceeds MaxWorkers nor what the process
// open-file limit can sustain, and is at least one.
func EffectiveWorkers(requested int) int {
	n := requested
	if n <= 0 {
		n = DefaultWorkers
	}
	if n > MaxWorkers {
		n = MaxWorkers
	}
	if limit := fdWorkerLimit(); limit > 0 && n > limit {
		log.Debug().Int("requested", n).Int("limit", limit).Msg("Worker count clamped by open file limit")
		n = limit
	}
	if n < 1 {
		n = 1
	}
	return n
}

// NewScheduler creates and starts a scheduler with EffectiveWorkers(numWorkers)
// workers. Canceling parentCtx cancels the jobs; the workers themselves run
// until Shutdown, so Wait never blocks on a job nobody will pick up.
func NewScheduler(parentCtx context.Context, numWorkers int) (*Scheduler, error) {
	if parentCtx == nil {
		return nil, fmt.Errorf("scheduler: nil context")
	}
	numWorkers = EffectiveWorkers(numWorkers)
	sctx, cancel := context.WithCancel(parentCtx)

	s := &Scheduler{
		numWorkers: numWorkers,
		workers:    make([]*worker, numWorkers),
		ctx:        sctx,
		cancel:     cancel,
		stop:       make(chan struct{}),
		jobPool: sync.Pool{
			New: func() interface{} { return &Job{} },
		},
	}

	for i := 0; i < numWorkers; i++ {
		w := &worker{
			id:        i,
			queue:     make(chan *Job, WorkerQueueCapacity),
			scheduler: s,
		}
		s.workers[i] = w
		s.running.Add(1)
		go w.run()
	}

	log.Debug().Int("workers", numWorkers).Msg("Scheduler initialized")
	return s, nil
}

// NumWorkers returns the number of workers.
func (s *Scheduler) NumWorkers() int {
	return s.numWorkers
}

func (s *Scheduler) shardFor(key string) *worker {
	return s.workers[xxh3.HashString(key)%uint64(s.numWorkers)]
}

func (s *Scheduler) newJob(ctx context.Context, key string, fn JobFunc) *Job {
	job := s.jobPool.Get().(*Job)
	job.Key = key
	job.Run = fn
	job.Ctx = ctx
	job.CreatedAt = time.Now()
	return job
}

func (s *Scheduler) releaseJob(job *Job) {
	job.Key = ""
	job.Run = nil
	job.Ctx = nil
	s.jobPool.Put(job)
}

// TrySubmit queues fn on the worker owning key without blocking. It returns
// ErrQueueFull when that worker's queue is at capacity.
func (s *Scheduler) TrySubmit(ctx context.Context, key string, fn JobFunc) error {
	s.submitMu.RLock()
	defer s.submitMu.RUnlock()
	if s.shutdown.Load() {
		return ErrWorkerShutdown
	}

	target := s.shardFor(key)
	job := s.newJob(ctx, key, fn)
	s.activeWork.Add(1)

	select {
	case target.queue <- job:
		return nil
	default:
		s.activeWork.Done()
		s.releaseJob(job)
		return fmt.Errorf("worker %d for %s: %w", target.id, key, ErrQueueFull)
	}
}

// Submit queues fn on the worker owning key, waiting for queue space until ctx
// ends or the scheduler shuts down.
func (s *Scheduler) Submit(ctx context.Context, key string, fn JobFunc) error {
	s.submitMu.RLock()
	defer s.submitMu.RUnlock()
	if s.shutdown.Load() {
		return ErrWorkerShutdown
	}

	target := s.shardFor(key)
	job := s.newJob(ctx, key, fn)
	s.activeWork.Add(1)

	select {
	case target.queue <- job:
		return nil
	case <-ctx.Done():
		s.activeWork.Done()
		s.releaseJob(job)
		return ctx.Err()
	case <-s.ctx.Done():
		s.activeWork.Done()
		s.releaseJob(job)
		return ErrWorkerShutdown
	}
}

// Wait blocks until every accepted job has finished.
func (s *Scheduler) Wait() {
	s.activeWork.Wait()
}

// Shutdown stops accepting work, stops the workers and discards queued jobs
// that never started. It blocks until the worker goroutines have exited and is
// safe to call more than once.
func (s *Scheduler) Shutdown() {
	if !s.shutdown.CompareAndSwap(false, true) {
		return
	}
	s.cancel()

	// No submitter can be mid-send once the exclusive lock is held.
	s.submitMu.Lock()
	defer s.submitMu.Unlock()
	close(s.stop)
	s.running.Wait()

	dropped := 0
	for _, w := range s.workers {
		for {
			select {
			case job := <-w.queue:
				s.releaseJob(job)
				s.activeWork.Done()
				dropped++
				continue
			default:
			}
			break
		}
	}
	if dropped > 0 {
		log.Debug().Int("dropped", dropped).Msg("Scheduler discarded queued jobs on shutdown")
	}
}

// Stats returns per-worker counters keyed by worker id.
func (s *Scheduler) Stats() map[int]WorkerStats {
	out := make(map[int]WorkerStats, len(s.workers))
	for _, w := range s.workers {
		out[w.id] = WorkerStats{
			Processed: w.processed.Load(),
			Errors:    w.errors.Load(),
			Panics:    w.panics.Load(),
			Queued:    len(w.queue),
		}
	}
	return out
}

// WorkerStats is a snapshot of one worker's counters.
type WorkerStats struct {
	Processed int64
	Errors    int64
	Panics    int64
	Queued    int
}

// run is the main loop of a worker goroutine.
func (w *worker) run() {
	defer w.scheduler.running.Done()
	for {
		select {
		case <-w.scheduler.stop:
			return
		case job := <-w.queue:
			if job == nil {
				continue
			}
			w.execute(job)
			w.scheduler.releaseJob(job)
		}
	}
}

func (w *worker) execute(job *Job) {
	defer w.scheduler.activeWork.Done()
	defer func() {
		if r := recover(); r != nil {
			w.panics.Add(1)
			if metrics.IsMetricsEnabled() {
				metrics.GetMetrics().WorkerPanics.WithLabelValues(strconv.Itoa(w.id)).Inc()
			}
			log.Error().Int("worker", w.id).Str("key", job.Key).Interface("panic", r).Msg("Panic recovered in worker")
		}
	}()

	if metrics.IsMetricsEnabled() {
		m := metrics.GetMetrics()
		m.ScanInFlight.Inc()
		defer m.ScanInFlight.Dec()
	}

	ctx := job.Ctx
	if ctx == nil {
		ctx = w.scheduler.ctx
	}
	err := job.Run(ctx)
	w.processed.Add(1)
	if err != nil {
		w.errors.Add(1)
		log.Debug().Err(err).Int("worker", w.id).Str("key", job.Key).Msg("Job finished with error")
	}
}
