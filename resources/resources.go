// Package resources implements the GPU resource wrappers spec.md §2
// names under "Resource wrappers: buffer, image, framebuffer, pass,
// pipeline, parameter-set layout, sampler (content-addressed cache)" and
// the "resource_registration_lock"-guarded global lists behind them.
// Grounded on the teacher's buffers.go (CoreBuffer), image.go
// (CoreImage), pipeline.go/renderpass.go (pipeline + pass creation), and
// managers.go (the teacher's ad hoc global maps, generalized here into
// one generic, lock-guarded Registry per kind instead of one bespoke map
// per resource type).
package resources

import "sync"

// ID identifies a registered resource by (generation, slot index) instead of a raw
// pointer, spec.md §9's guidance to prefer generational slot maps with
// stable indices over the original's intrusive linked lists.
type ID struct {
	generation uint32
	index      uint32
}

// Pack encodes id as an opaque uint64, the form the schedule package's
// op lists carry a resource reference in without importing this package.
func (id ID) Pack() uint64 {
	return uint64(id.generation)<<32 | uint64(id.index)
}

// UnpackID reverses Pack.
func UnpackID(v uint64) ID {
	return ID{generation: uint32(v >> 32), index: uint32(v)}
}

// Registry is a generational slot map guarded by a single mutex, the
// Go equivalent of the teacher's resource_registration_lock protecting
// its flat maps in managers.go. One Registry[T] exists per resource
// kind (buffers, images, passes, pipelines, parameter-set layouts,
// code modules, framebuffers); samplers are cached by SamplerCache
// instead.
type Registry[T any] struct {
	mu          sync.Mutex
	slots       []slot[T]
	freeList    []uint32
}

type slot[T any] struct {
	value      T
	generation uint32
	occupied   bool
}

// NewRegistry constructs an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{}
}

// Insert stores value and returns its stable ID.
func (r *Registry[T]) Insert(value T) ID {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n := len(r.freeList); n > 0 {
		idx := r.freeList[n-1]
		r.freeList = r.freeList[:n-1]
		r.slots[idx].value = value
		r.slots[idx].occupied = true
		return ID{generation: r.slots[idx].generation, index: idx}
	}

	r.slots = append(r.slots, slot[T]{value: value, generation: 1, occupied: true})
	return ID{generation: 1, index: uint32(len(r.slots) - 1)}
}

// Get resolves id to its value. ok is false if id has been removed or
// was never valid (generation mismatch catches stale IDs from before a
// slot was recycled).
func (r *Registry[T]) Get(id ID) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	if int(id.index) >= len(r.slots) {
		return zero, false
	}
	s := r.slots[id.index]
	if !s.occupied || s.generation != id.generation {
		return zero, false
	}
	return s.value, true
}

// Remove frees id's slot for reuse and bumps its generation so stale IDs
// referring to it fail Get/Remove rather than aliasing new occupants.
func (r *Registry[T]) Remove(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(id.index) >= len(r.slots) {
		return false
	}
	s := &r.slots[id.index]
	if !s.occupied || s.generation != id.generation {
		return false
	}
	var zero T
	s.value = zero
	s.occupied = false
	s.generation++
	r.freeList = append(r.freeList, id.index)
	return true
}

// Len reports the number of live (occupied) entries.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.slots {
		if s.occupied {
			n++
		}
	}
	return n
}

// Each calls fn for every live entry. fn must not call back into the
// registry: Each holds the lock for its duration.
func (r *Registry[T]) Each(fn func(ID, T)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.slots {
		if s.occupied {
			fn(ID{generation: s.generation, index: uint32(i)}, s.value)
		}
	}
}
