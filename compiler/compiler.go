// Package compiler implements the background pipeline compiler worker
// of spec.md §4.7: a single goroutine servicing three priority queues
// (critical, active, cache) of compilation requests, each tracked
// through a PENDING/EXECUTION/SUCCESS/FAILURE state machine, with
// cancellation semantics tied to that state when a pipeline is
// destroyed mid-compile. Grounded on the teacher's pipeline.go
// (PipelineBuilder, entirely synchronous, no background worker at
// all) generalized into an async producer/consumer the way
// gviegas-neo3's worker-style submission queueing is shaped (design
// only, not copied) and cogentcore-core's worker/mutex+condvar idiom
// survey.
package compiler

import (
	"sync"
	"time"

	"github.com/vkforge/renderbackend/logging"
)

// State is a compilation request's lifecycle per spec.md §3.
type State int32

const (
	Pending State = iota
	Execution
	Success
	Failure
)

func (s State) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Execution:
		return "EXECUTION"
	case Success:
		return "SUCCESS"
	case Failure:
		return "FAILURE"
	default:
		return "UNKNOWN"
	}
}

// Priority selects which of the three queues a Request lives in.
type Priority int

const (
	Critical Priority = iota // user-blocked
	Active                   // user-scheduled
	Cache                    // speculative
)

// CompileFunc performs the actual (blocking) pipeline build. It runs
// with no lock held.
type CompileFunc func() error

// Request is one pipeline compilation request, living in exactly one of
// the worker's three queues until it resolves.
type Request struct {
	mu       sync.Mutex
	state    State
	priority Priority
	compile  CompileFunc
	done     chan struct{}
	err      error
}

// State reports the request's current lifecycle state.
func (r *Request) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Err returns the compile error once the request has resolved to
// FAILURE; nil otherwise (including while still pending/executing).
func (r *Request) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Wait blocks until the request leaves PENDING/EXECUTION.
func (r *Request) Wait() {
	<-r.done
}

// Worker is the single background thread spec.md §4.7 describes: it
// waits on a condition variable until asked to terminate or until any
// queue is non-empty, then services critical requests before active
// before cache.
type Worker struct {
	log *logging.Logger

	mu             sync.Mutex
	cond           *sync.Cond
	critical       []*Request
	active         []*Request
	cache          []*Request
	shouldTerminate bool

	wg sync.WaitGroup
}

// New builds a Worker. Call Start to launch its goroutine.
func New(log *logging.Logger) *Worker {
	w := &Worker{log: log}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Start launches the background compilation loop.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Submit enqueues a new compilation request at the given priority and
// returns it in the PENDING state.
func (w *Worker) Submit(priority Priority, compile CompileFunc) *Request {
	req := &Request{state: Pending, priority: priority, compile: compile, done: make(chan struct{})}

	w.mu.Lock()
	switch priority {
	case Critical:
		w.critical = append(w.critical, req)
	case Active:
		w.active = append(w.active, req)
	default:
		w.cache = append(w.cache, req)
	}
	w.mu.Unlock()
	w.cond.Signal()

	return req
}

// loop is the worker goroutine body.
func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		w.mu.Lock()
		for !w.shouldTerminate && len(w.critical) == 0 && len(w.active) == 0 && len(w.cache) == 0 {
			w.cond.Wait()
		}
		if w.shouldTerminate {
			w.mu.Unlock()
			return
		}

		req := w.popLocked()
		if req == nil {
			w.mu.Unlock()
			continue
		}

		req.mu.Lock()
		req.state = Execution
		req.mu.Unlock()
		w.mu.Unlock()

		err := req.compile()

		req.mu.Lock()
		if err != nil {
			req.state = Failure
			req.err = err
			if w.log != nil {
				w.log.Error.Printf("compiler: request failed: %v", err)
			}
		} else {
			req.state = Success
		}
		req.mu.Unlock()
		close(req.done)
	}
}

// popLocked removes and returns the highest-priority pending request.
// Caller must hold w.mu.
func (w *Worker) popLocked() *Request {
	if n := len(w.critical); n > 0 {
		req := w.critical[0]
		w.critical = w.critical[1:]
		return req
	}
	if n := len(w.active); n > 0 {
		req := w.active[0]
		w.active = w.active[1:]
		return req
	}
	if n := len(w.cache); n > 0 {
		req := w.cache[0]
		w.cache = w.cache[1:]
		return req
	}
	return nil
}

// Cancel implements spec.md §4.7's destruction-time cancellation: if req
// is still PENDING, it is removed from its queue and the caller may
// discard it immediately. If it is EXECUTION, Cancel sleeps in
// increments of pollInterval and retries until the compile finishes
// (bounded, since compilation itself is bounded), then returns. If it
// has already resolved to SUCCESS/FAILURE, Cancel is a no-op.
func (w *Worker) Cancel(req *Request, pollInterval time.Duration) {
	for {
		req.mu.Lock()
		state := req.state
		req.mu.Unlock()

		switch state {
		case Pending:
			if w.removePending(req) {
				return
			}
			continue
		case Execution:
			time.Sleep(pollInterval)
			continue
		default: // Success or Failure
			return
		}
	}
}

// removePending removes req from its queue if it is still PENDING. The
// state is re-checked under w.mu, which the worker also holds while it
// pops a request and marks it EXECUTION, so the two cannot interleave.
func (w *Worker) removePending(req *Request) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if req.State() != Pending {
		return false
	}
	w.critical = removeRequest(w.critical, req)
	w.active = removeRequest(w.active, req)
	w.cache = removeRequest(w.cache, req)
	return true
}

func removeRequest(queue []*Request, target *Request) []*Request {
	for i, r := range queue {
		if r == target {
			return append(queue[:i], queue[i+1:]...)
		}
	}
	return queue
}

// Stop signals the worker to terminate, wakes it, and waits for its
// goroutine to exit, mirroring spec.md §4.7's "main thread sets
// should_terminate, signals the condition, joins the worker". Any
// requests still queued at this point are left untouched for the caller
// to destroy, exactly as the spec directs ("destroys any still-pending
// requests" is the caller's responsibility, not the worker's).
func (w *Worker) Stop() {
	w.mu.Lock()
	w.shouldTerminate = true
	w.mu.Unlock()
	w.cond.Broadcast()
	w.wg.Wait()
}

// QueueLengths reports the current length of each queue, for tests and
// diagnostics.
func (w *Worker) QueueLengths() (critical, active, cache int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.critical), len(w.active), len(w.cache)
}
