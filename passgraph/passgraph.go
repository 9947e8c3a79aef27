// Package passgraph implements the pass-dependency topological sorter
// of spec.md §4.2 step 3c: edges come only from each instance's own
// DependsOn list (pass-level dependency declarations are not expanded
// into instance edges), instances are taken off an "available" list
// as their dependency counters hit zero, and a deterministic cycle
// recovery path (fewest remaining dependencies, tying broken by
// preferring an instance that does not write to a surface) keeps the
// engine from deadlocking if the available list ever empties with
// instances still pending. Grounded on the teacher's renderpass.go
// (single fixed subpass, no dependency graph at all, this is new
// functionality this engine needs that the teacher never attempted) and
// gviegas-neo3's driver/vk/pass.go pass/framebuffer construction for the
// general shape of "a pass can have many instances" (design only, not
// copied).
package passgraph

import "sort"

// Instance is one scheduled execution of a pass this frame. ID is
// caller-assigned and opaque to this package (typically a
// resources.ID-derived value).
type Instance struct {
	ID             uint64
	Pass           uint64 // the resources.ID of the Pass this instance executes
	WritesSurface  bool
	dependencies   []uint64 // instance IDs this instance must run after
}

// NewInstance builds an Instance with no dependencies yet.
func NewInstance(id, pass uint64, writesSurface bool) Instance {
	return Instance{ID: id, Pass: pass, WritesSurface: writesSurface}
}

// DependsOn records that inst must execute after dep.
func (inst *Instance) DependsOn(dep uint64) {
	inst.dependencies = append(inst.dependencies, dep)
}

// Sorted is one successfully scheduled instance, plus whether it was
// resolved through the normal dependency-counter drain or forced out
// through cycle recovery.
type Sorted struct {
	ID            uint64
	CycleRecovered bool
}

// Sort performs the topological sort spec.md §4.2 step 3c describes:
// repeatedly pick any available (zero remaining dependency) instance,
// record it, and decrement its dependents' counters. If the available
// list ever empties with instances remaining, recover by forcing out the
// instance with the fewest remaining dependencies, preferring (on a tie)
// one that does not write to a surface, logging the event via onCycle.
//
// The returned order is topologically consistent with the declared
// dependencies when the graph is acyclic; spec.md §4.2 leaves order
// among mutually-independent instances unspecified, so Sort breaks ties
// by ID for determinism across runs rather than leaving it to map
// iteration order.
func Sort(instances []Instance, onCycle func(id uint64)) []Sorted {
	remaining := make(map[uint64]int, len(instances))
	byID := make(map[uint64]*Instance, len(instances))
	dependents := make(map[uint64][]uint64)

	for i := range instances {
		inst := &instances[i]
		byID[inst.ID] = inst
		remaining[inst.ID] = len(inst.dependencies)
		for _, dep := range inst.dependencies {
			dependents[dep] = append(dependents[dep], inst.ID)
		}
	}

	var available []uint64
	for id, n := range remaining {
		if n == 0 {
			available = append(available, id)
		}
	}

	result := make([]Sorted, 0, len(instances))
	done := make(map[uint64]bool, len(instances))

	release := func(id uint64) {
		result = append(result, Sorted{ID: id})
		done[id] = true
		delete(remaining, id)
		for _, dep := range dependents[id] {
			if _, ok := remaining[dep]; !ok {
				continue
			}
			remaining[dep]--
			if remaining[dep] == 0 {
				available = append(available, dep)
			}
		}
	}

	for len(remaining) > 0 {
		if len(available) == 0 {
			// Cycle recovery: pick the instance with the fewest
			// remaining dependencies; break ties preferring one whose
			// framebuffer does not write to a surface.
			victim := pickCycleVictim(remaining, byID)
			if onCycle != nil {
				onCycle(victim)
			}
			result = append(result, Sorted{ID: victim, CycleRecovered: true})
			done[victim] = true
			delete(remaining, victim)
			for _, dep := range dependents[victim] {
				if _, ok := remaining[dep]; !ok {
					continue
				}
				remaining[dep]--
				if remaining[dep] == 0 {
					available = append(available, dep)
				}
			}
			continue
		}

		sort.Slice(available, func(i, j int) bool { return available[i] < available[j] })
		id := available[0]
		available = available[1:]
		release(id)
	}

	return result
}

func pickCycleVictim(remaining map[uint64]int, byID map[uint64]*Instance) uint64 {
	var best uint64
	bestDeps := -1
	bestWritesSurface := true
	first := true

	ids := make([]uint64, 0, len(remaining))
	for id := range remaining {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		deps := remaining[id]
		writesSurface := byID[id].WritesSurface
		if first {
			best, bestDeps, bestWritesSurface, first = id, deps, writesSurface, false
			continue
		}
		if deps < bestDeps || (deps == bestDeps && !writesSurface && bestWritesSurface) {
			best, bestDeps, bestWritesSurface = id, deps, writesSurface
		}
	}
	return best
}
