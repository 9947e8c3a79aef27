package schedule

import (
	"sync"

	"github.com/vkforge/renderbackend/readback"
)

// readBackNode links a read-back status into this frame's schedule.
// This mirrors original_source/.../system.c's
// render_backend_read_back_status_t singly-linked list.
type readBackNode struct {
	status *readback.Status
	next   *readBackNode
}

// ReadBackList is the per-schedule list of read-back requests still
// awaiting completion, plus the cleanup pass that unlinks the ones that
// have left the SCHEDULED state.
type ReadBackList struct {
	mu    sync.Mutex
	first *readBackNode
}

// NewReadBackList builds an empty list.
func NewReadBackList() *ReadBackList { return &ReadBackList{} }

// Append adds status to the end of the list.
func (l *ReadBackList) Append(status *readback.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()

	node := &readBackNode{status: status}
	if l.first == nil {
		l.first = node
		return
	}
	last := l.first
	for last.next != nil {
		last = last.next
	}
	last.next = node
}

// Len counts the current list length, exercised by tests that build a
// fixed-size list and verify removal leaves the right survivors.
func (l *ReadBackList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for node := l.first; node != nil; node = node.next {
		n++
	}
	return n
}

// Statuses returns the statuses currently linked, in list order.
func (l *ReadBackList) Statuses() []*readback.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*readback.Status
	for node := l.first; node != nil; node = node.next {
		out = append(out, node.status)
	}
	return out
}

// CleanupUnscheduled walks the list and removes every status that is
// not (still) in the SCHEDULED state and drops the schedule's reference
// to it. The removed status keeps its state: Fail only acts on a
// SCHEDULED status, so a FINISHED one stays FINISHED. This is the fixed translation of
// original_source/.../system.c's read-back cleanup loop, which contains
// a self-assignment bug:
//
//	if (previous)
//	{
//	    previous->next = previous;   // BUG: should be `previous->next = next`
//	}
//
// That line leaves `previous` pointing at itself instead of skipping
// over the removed node, corrupting the list for every traversal after
// the first removal. The fix below re-links previous.next to next, the
// same unlink a correct singly-linked-list removal always performs.
func (l *ReadBackList) CleanupUnscheduled() {
	l.mu.Lock()
	defer l.mu.Unlock()

	var previous *readBackNode
	node := l.first
	for node != nil {
		next := node.next
		if node.status.State() != readback.Scheduled {
			node.status.Fail()
			node.status.Release()

			if previous != nil {
				previous.next = next
			} else {
				l.first = next
			}
		} else {
			previous = node
		}
		node = next
	}
}
