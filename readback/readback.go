// Package readback implements the reference-counted read-back status
// handle of spec.md §3/§4.4: a caller-visible token tracking whether a
// scheduled buffer/image read-back has finished, failed, or is still
// pending. Grounded on the teacher's lack of any read-back feature at
// all (not present in vulkan-go-asche) and on
// original_source/.../system.c's render_backend_read_back_status_t,
// translated into Go reference-counting instead of the original's
// referenced_in_schedule/referenced_outside boolean pair.
package readback

import "sync/atomic"

// State is the lifecycle of one read-back request.
type State int32

const (
	Scheduled State = iota
	Finished
	Failed
)

func (s State) String() string {
	switch s {
	case Scheduled:
		return "SCHEDULED"
	case Finished:
		return "FINISHED"
	case Failed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Status is a single read-back's externally visible handle. The
// schedule package owns the list Status values live on while they are
// still pending; once a caller (and the schedule) both stop referencing
// one, it is freed. refs replaces the original's separate
// referenced_in_schedule/referenced_outside booleans with a single
// count: the schedule holds one reference while a Status is linked into
// its list, and each outstanding caller handle holds one more.
type Status struct {
	state State
	refs  int32
	data  []byte // populated once state transitions to Finished
}

// New creates a Status in the SCHEDULED state with refs=1, representing
// the schedule's own reference. Call Retain for any caller that also
// needs to observe the result.
func New() *Status {
	return &Status{state: Scheduled, refs: 1}
}

// Retain adds a reference and returns s for chaining.
func (s *Status) Retain() *Status {
	atomic.AddInt32(&s.refs, 1)
	return s
}

// Release drops a reference. Callers must not touch s after their own
// Release call returns.
func (s *Status) Release() {
	atomic.AddInt32(&s.refs, -1)
}

// RefCount reports the current reference count, used by schedule to
// decide whether a Status can be freed once unlinked.
func (s *Status) RefCount() int32 {
	return atomic.LoadInt32(&s.refs)
}

// State reports the current lifecycle state.
func (s *Status) State() State {
	return State(atomic.LoadInt32((*int32)(&s.state)))
}

// Complete transitions a SCHEDULED status to FINISHED with data, or does
// nothing if it has already left the SCHEDULED state.
func (s *Status) Complete(data []byte) {
	if atomic.CompareAndSwapInt32((*int32)(&s.state), int32(Scheduled), int32(Finished)) {
		s.data = data
	}
}

// Fail transitions a SCHEDULED status to FAILED, or does nothing if it
// has already left the SCHEDULED state.
func (s *Status) Fail() {
	atomic.CompareAndSwapInt32((*int32)(&s.state), int32(Scheduled), int32(Failed))
}

// Data returns the read-back bytes once State() is Finished; nil
// otherwise.
func (s *Status) Data() []byte {
	if s.State() != Finished {
		return nil
	}
	return s.data
}
