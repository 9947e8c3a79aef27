package resources

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryInsertGetRemove(t *testing.T) {
	r := NewRegistry[string]()
	id := r.Insert("triangle-vbo")

	got, ok := r.Get(id)
	assert.True(t, ok)
	assert.Equal(t, "triangle-vbo", got)

	assert.True(t, r.Remove(id))
	_, ok = r.Get(id)
	assert.False(t, ok)
}

func TestRegistryStaleIDAfterRecycleFails(t *testing.T) {
	r := NewRegistry[int]()
	first := r.Insert(1)
	r.Remove(first)
	second := r.Insert(2)

	assert.Equal(t, first.index, second.index)
	assert.NotEqual(t, first.generation, second.generation)

	_, ok := r.Get(first)
	assert.False(t, ok, "a stale ID from before recycling must not resolve to the new occupant")

	got, ok := r.Get(second)
	assert.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestRegistryLenCountsOnlyLive(t *testing.T) {
	r := NewRegistry[int]()
	a := r.Insert(1)
	r.Insert(2)
	r.Remove(a)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryConcurrentInsertIsSafe(t *testing.T) {
	r := NewRegistry[int]()
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Insert(i)
		}()
	}
	wg.Wait()
	assert.Equal(t, 64, r.Len())
}

func TestRegistryEachVisitsOnlyLive(t *testing.T) {
	r := NewRegistry[int]()
	a := r.Insert(10)
	r.Insert(20)
	r.Remove(a)

	seen := 0
	r.Each(func(id ID, v int) {
		seen++
		assert.Equal(t, 20, v)
	})
	assert.Equal(t, 1, seen)
}
