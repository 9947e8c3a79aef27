package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vkforge/renderbackend/readback"
)

// TestCleanupUnscheduledUnlinksMiddleNode guards against the original's
// `previous->next = previous` self-assignment bug: build a 3-node list,
// mark the middle node non-scheduled, and verify cleanup actually
// removes it and re-links head/tail to each other rather than looping
// the list back on the middle node.
func TestCleanupUnscheduledUnlinksMiddleNode(t *testing.T) {
	l := NewReadBackList()

	head := readback.New()
	middle := readback.New()
	tail := readback.New()

	l.Append(head)
	l.Append(middle)
	l.Append(tail)
	assert.Equal(t, 3, l.Len())

	middle.Complete(nil) // transitions out of SCHEDULED, eligible for cleanup

	l.CleanupUnscheduled()

	assert.Equal(t, 2, l.Len(), "the non-scheduled middle node must be unlinked, not looped back on itself")

	remaining := l.Statuses()
	assert.Same(t, head, remaining[0])
	assert.Same(t, tail, remaining[1])
	assert.Equal(t, readback.Finished, middle.State())
}

func TestCleanupUnscheduledRemovesHead(t *testing.T) {
	l := NewReadBackList()
	head := readback.New()
	tail := readback.New()
	l.Append(head)
	l.Append(tail)

	head.Fail()
	l.CleanupUnscheduled()

	assert.Equal(t, 1, l.Len())
	assert.Same(t, tail, l.Statuses()[0])
}

func TestCleanupUnscheduledKeepsAllScheduled(t *testing.T) {
	l := NewReadBackList()
	l.Append(readback.New())
	l.Append(readback.New())
	l.CleanupUnscheduled()
	assert.Equal(t, 2, l.Len())
}
