package device

import vk "github.com/vulkan-go/vulkan"

// MemoryModel classifies a physical device's memory architecture per
// spec.md §6:
//
//	SEPARATE, a device-local heap exists that is not host-visible.
//	UNIFIED, all device-local heaps are host-visible but at
//	                     least one is not host-coherent.
//	UNIFIED_COHERENT, all device-local heaps are host-visible and
//	                     host-coherent.
type MemoryModel int

const (
	Separate MemoryModel = iota
	Unified
	UnifiedCoherent
)

func (m MemoryModel) String() string {
	switch m {
	case Separate:
		return "SEPARATE"
	case Unified:
		return "UNIFIED"
	case UnifiedCoherent:
		return "UNIFIED_COHERENT"
	default:
		return "UNKNOWN"
	}
}

// ClassifyMemory walks props.MemoryHeaps' backing memory types and
// derives the MemoryModel per spec.md §6.
func ClassifyMemory(props vk.PhysicalDeviceMemoryProperties) MemoryModel {
	props.Deref()

	hostVisible := true
	hostCoherent := true
	sawDeviceLocal := false

	for i := uint32(0); i < props.MemoryTypeCount; i++ {
		props.MemoryTypes[i].Deref()
		mt := props.MemoryTypes[i]
		if mt.PropertyFlags&vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit) == 0 {
			continue
		}
		sawDeviceLocal = true
		visible := mt.PropertyFlags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0
		coherent := mt.PropertyFlags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit) != 0
		if !visible {
			// A device-local heap reachable only through this memory
			// type is not host-visible at all: SEPARATE.
			hostVisible = false
		}
		if !coherent {
			hostCoherent = false
		}
	}

	if !sawDeviceLocal || !hostVisible {
		return Separate
	}
	if !hostCoherent {
		return Unified
	}
	return UnifiedCoherent
}

// FindMemoryType mirrors the teacher's FindRequiredMemoryType
// (extensions.go): it walks typeBits (the bitmask from
// vk.MemoryRequirements.MemoryTypeBits) looking for a memory type whose
// PropertyFlags is a superset of want.
func FindMemoryType(props vk.PhysicalDeviceMemoryProperties, typeBits uint32, want vk.MemoryPropertyFlagBits) (uint32, bool) {
	props.Deref()
	for i := uint32(0); i < vk.MaxMemoryTypes; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		props.MemoryTypes[i].Deref()
		if props.MemoryTypes[i].PropertyFlags&vk.MemoryPropertyFlags(want) == vk.MemoryPropertyFlags(want) {
			return i, true
		}
	}
	return 0, false
}

// FindMemoryTypeFallback behaves like FindMemoryType but, on failure
// with a non-zero want, retries with no property requirements at all,
// mirroring the teacher's FindRequiredMemoryTypeFallback, used when a
// strict match (e.g. host-coherent staging memory) isn't available and
// any device-compatible type will do.
func FindMemoryTypeFallback(props vk.PhysicalDeviceMemoryProperties, typeBits uint32, want vk.MemoryPropertyFlagBits) (uint32, bool) {
	if idx, ok := FindMemoryType(props, typeBits, want); ok {
		return idx, true
	}
	if want != 0 {
		return FindMemoryType(props, typeBits, 0)
	}
	return 0, false
}
