package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// newTestScheduler builds a Scheduler with pre-populated slots, bypassing
// New's device calls, to exercise Advance/Current/FrameIndex without a
// live Vulkan device.
func newTestScheduler(n int) *Scheduler {
	s := &Scheduler{}
	for i := 0; i < n; i++ {
		s.slots = append(s.slots, &Slot{})
	}
	return s
}

func TestAdvanceWrapsSlotIndexAndIncrementsFrameCounter(t *testing.T) {
	s := newTestScheduler(3)

	first := s.Current()
	assert.Equal(t, uint64(0), s.FrameIndex())

	s.Advance()
	assert.NotSame(t, first, s.Current())
	assert.Equal(t, uint64(1), s.FrameIndex())

	s.Advance()
	s.Advance()
	assert.Same(t, first, s.Current())
	assert.Equal(t, uint64(3), s.FrameIndex())
}

func TestCurrentReturnsSameSlotUntilAdvance(t *testing.T) {
	s := newTestScheduler(2)
	a := s.Current()
	b := s.Current()
	assert.Same(t, a, b)
}
