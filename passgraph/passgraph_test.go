package passgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func idOf(sorted []Sorted, id uint64) int {
	for i, s := range sorted {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func TestSortDependencyDiamond(t *testing.T) {
	a := NewInstance(1, 100, false)
	b := NewInstance(2, 101, false)
	c := NewInstance(3, 102, false)
	d := NewInstance(4, 103, false)
	b.DependsOn(a.ID)
	c.DependsOn(a.ID)
	d.DependsOn(b.ID)
	d.DependsOn(c.ID)

	sorted := Sort([]Instance{a, b, c, d}, nil)
	assert.Len(t, sorted, 4)

	posA, posB, posC, posD := idOf(sorted, 1), idOf(sorted, 2), idOf(sorted, 3), idOf(sorted, 4)
	assert.Less(t, posA, posB)
	assert.Less(t, posA, posC)
	assert.Less(t, posB, posD)
	assert.Less(t, posC, posD)
	for _, s := range sorted {
		assert.False(t, s.CycleRecovered)
	}
}

func TestSortIndependentInstancesAllScheduled(t *testing.T) {
	a := NewInstance(1, 100, false)
	b := NewInstance(2, 101, false)
	sorted := Sort([]Instance{a, b}, nil)
	assert.Len(t, sorted, 2)
}

func TestSortCycleRecoveryForcesProgress(t *testing.T) {
	a := NewInstance(1, 100, false)
	b := NewInstance(2, 101, false)
	a.DependsOn(b.ID)
	b.DependsOn(a.ID)

	var recovered []uint64
	sorted := Sort([]Instance{a, b}, func(id uint64) { recovered = append(recovered, id) })

	assert.Len(t, sorted, 2)
	assert.NotEmpty(t, recovered, "a genuine cycle must trigger the recovery callback")
	assert.True(t, sorted[0].CycleRecovered || sorted[1].CycleRecovered)
}

func TestSortCycleRecoveryPrefersNonSurfaceWriteOnTie(t *testing.T) {
	// Both instances are mutually dependent (tied at 1 remaining
	// dependency each); the one that does not write to a surface should
	// be the one forced out first.
	surfaceWriter := NewInstance(1, 100, true)
	offscreen := NewInstance(2, 101, false)
	surfaceWriter.DependsOn(offscreen.ID)
	offscreen.DependsOn(surfaceWriter.ID)

	var recovered uint64
	Sort([]Instance{surfaceWriter, offscreen}, func(id uint64) { recovered = id })

	assert.EqualValues(t, 2, recovered, "cycle recovery must prefer the instance that does not write to a surface")
}

func TestSortDeterministicOrderAmongIndependents(t *testing.T) {
	a := NewInstance(5, 100, false)
	b := NewInstance(3, 101, false)
	c := NewInstance(9, 102, false)

	first := Sort([]Instance{a, b, c}, nil)
	second := Sort([]Instance{a, b, c}, nil)
	assert.Equal(t, first, second, "identical input must always produce the same order")
}
