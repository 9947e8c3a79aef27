// Package schedule implements spec.md §4's per-frame scheduling state:
// the deferred destruction queue (§4.9), the singly-linked scheduled-op
// lists that feed the submission pipeline's transfer/graphics/read-back
// phases (§4.2-§4.4), and the read-back status list whose cleanup path
// spec.md §9's first Open Question calls out as buggy in the original.
// Grounded on original_source/.../system.c's render_backend_schedule_t
// and the teacher's lack of any destruction-queue concept at all
// (vulkan-go-asche destroys resources synchronously with no in-flight
// protection).
package schedule

import "sync"

// destructor is a deferred cleanup action, tagged with the frame index
// it was scheduled on.
type destructor struct {
	frame uint64
	fn    func()
}

// DestructionQueue defers resource teardown until framesInFlight frames
// have elapsed since scheduling, the same protection spec.md §4.9 gives
// every GPU resource that might still be referenced by an in-flight
// command buffer.
type DestructionQueue struct {
	mu             sync.Mutex
	framesInFlight int
	pending        []destructor
}

// NewDestructionQueue builds a queue that drains entries once they are
// at least framesInFlight frames old.
func NewDestructionQueue(framesInFlight int) *DestructionQueue {
	return &DestructionQueue{framesInFlight: framesInFlight}
}

// Defer schedules fn to run once frame+framesInFlight has been reached
// by a later Drain call.
func (q *DestructionQueue) Defer(frame uint64, fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, destructor{frame: frame, fn: fn})
}

// Drain runs and removes every deferred action old enough to be safe at
// currentFrame, in the order they were scheduled. Drain imposes no
// order by resource kind; whatever order callers (such as
// backend.System's Destroy* methods) Deferred the destructors in is the
// order they run.
func (q *DestructionQueue) Drain(currentFrame uint64) int {
	q.mu.Lock()
	var ready []destructor
	var remaining []destructor
	for _, d := range q.pending {
		if currentFrame >= d.frame+uint64(q.framesInFlight) {
			ready = append(ready, d)
		} else {
			remaining = append(remaining, d)
		}
	}
	q.pending = remaining
	q.mu.Unlock()

	for _, d := range ready {
		d.fn()
	}
	return len(ready)
}

// Pending reports how many destructors are still waiting.
func (q *DestructionQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// DrainAll runs every remaining destructor regardless of frame age,
// used at backend shutdown after a device-wait-idle, when no resource
// can still be in flight.
func (q *DestructionQueue) DrainAll() int {
	q.mu.Lock()
	ready := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, d := range ready {
		d.fn()
	}
	return len(ready)
}
