package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDestructionQueueDrainsAfterFramesInFlight(t *testing.T) {
	q := NewDestructionQueue(2)
	ran := false
	q.Defer(0, func() { ran = true })

	assert.Equal(t, 0, q.Drain(0))
	assert.Equal(t, 0, q.Drain(1))
	assert.False(t, ran)

	assert.Equal(t, 1, q.Drain(2))
	assert.True(t, ran)
	assert.Equal(t, 0, q.Pending())
}

func TestDestructionQueueRunsInSchedulingOrder(t *testing.T) {
	q := NewDestructionQueue(1)
	var order []int
	q.Defer(0, func() { order = append(order, 1) })
	q.Defer(0, func() { order = append(order, 2) })
	q.Defer(0, func() { order = append(order, 3) })

	q.Drain(1)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestDestructionQueueDrainAllIgnoresFrameAge(t *testing.T) {
	q := NewDestructionQueue(100)
	ran := false
	q.Defer(0, func() { ran = true })

	assert.Equal(t, 1, q.DrainAll())
	assert.True(t, ran)
}
