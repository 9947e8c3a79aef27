// Package stagealloc implements the frame-lifetime ring allocator of
// spec.md §4.5: page-based allocation for transient per-frame data
// (staging buffers for uploads, pass-instance scratch), where every
// allocation is tagged with the frame index that produced it and
// retired once that frame has cycled back around F frames later.
// Grounded on the teacher's buffers.go host-visible/coherent buffer
// creation pattern and gviegas-neo3's ring-buffer staging idea (design
// only, not the teacher).
package stagealloc

import (
	"fmt"
	"sync"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/vkforge/renderbackend/device"
	"github.com/vkforge/renderbackend/vkerr"
)

// page is one host-visible buffer the ring carves suballocations out of.
type page struct {
	buffer   vk.Buffer
	memory   vk.DeviceMemory
	mapped   unsafe.Pointer
	size     int64
	cursor   int64
	frameTag uint64 // frame index this page was last allocated from
}

// Allocation is a suballocation returned to a caller. Offset/Size are
// relative to Buffer, and Data is a byte slice view of the mapped host
// memory backing it, ready for a direct write.
type Allocation struct {
	Buffer vk.Buffer
	Offset vk.DeviceSize
	Size   vk.DeviceSize
	Data   []byte
}

// Allocator is a page-based ring allocator: each call to Allocate either
// carves space out of the current page or opens a new one. Pages are
// retired (reset and made available for reuse) once the frame index
// that last wrote them is at least framesInFlight frames in the past,
// the same in-flight-fence-protected lifetime rule spec.md §4.5 assigns
// to staging memory.
type Allocator struct {
	dev             vk.Device
	memProps        vk.PhysicalDeviceMemoryProperties
	pageBytes       int64
	framesInFlight  int

	mu       sync.Mutex
	active   []*page
	retired  []*page // pages whose frame has cycled, ready to be reused/reset
	frame    uint64
}

// New builds an Allocator bound to dev, sizing new pages at pageBytes.
func New(dev vk.Device, memProps vk.PhysicalDeviceMemoryProperties, pageBytes int64, framesInFlight int) *Allocator {
	return &Allocator{dev: dev, memProps: memProps, pageBytes: pageBytes, framesInFlight: framesInFlight}
}

func (a *Allocator) newPage(minSize int64) (*page, error) {
	size := a.pageBytes
	if minSize > size {
		size = minSize
	}

	var buf vk.Buffer
	ret := vk.CreateBuffer(a.dev, &vk.BufferCreateInfo{
		SType: vk.StructureTypeBufferCreateInfo,
		Size:  vk.DeviceSize(size),
		Usage: vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit) | vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &buf)
	if ret != vk.Success {
		return nil, vkerr.Result(ret)
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(a.dev, buf, &req)
	req.Deref()

	want := vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit
	typeIdx, ok := device.FindMemoryTypeFallback(a.memProps, req.MemoryTypeBits, want)
	if !ok {
		vk.DestroyBuffer(a.dev, buf, nil)
		return nil, fmt.Errorf("stagealloc: no host-visible memory type available")
	}

	var mem vk.DeviceMemory
	ret = vk.AllocateMemory(a.dev, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: typeIdx,
	}, nil, &mem)
	if ret != vk.Success {
		vk.DestroyBuffer(a.dev, buf, nil)
		return nil, vkerr.Result(ret)
	}
	if ret := vk.BindBufferMemory(a.dev, buf, mem, 0); ret != vk.Success {
		vk.FreeMemory(a.dev, mem, nil)
		vk.DestroyBuffer(a.dev, buf, nil)
		return nil, vkerr.Result(ret)
	}

	var mapped unsafe.Pointer
	if ret := vk.MapMemory(a.dev, mem, 0, vk.DeviceSize(size), 0, &mapped); ret != vk.Success {
		vk.FreeMemory(a.dev, mem, nil)
		vk.DestroyBuffer(a.dev, buf, nil)
		return nil, vkerr.Result(ret)
	}

	return &page{buffer: buf, memory: mem, mapped: mapped, size: size}, nil
}

// Allocate reserves size bytes tagged with the current frame index,
// aligned to align (use the device's minUniformBufferOffsetAlignment
// for uniform data, or 1 for plain byte copies).
func (a *Allocator) Allocate(size int64, align int64) (Allocation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if align < 1 {
		align = 1
	}

	var target *page
	if n := len(a.active); n > 0 {
		cand := a.active[n-1]
		aligned := alignUp(cand.cursor, align)
		if aligned+size <= cand.size {
			target = cand
			target.cursor = aligned
		}
	}
	if target == nil {
		var reused *page
		if len(a.retired) > 0 {
			reused = a.retired[len(a.retired)-1]
			if reused.size >= size {
				a.retired = a.retired[:len(a.retired)-1]
				reused.cursor = 0
			} else {
				reused = nil
			}
		}
		if reused != nil {
			target = reused
		} else {
			p, err := a.newPage(size)
			if err != nil {
				return Allocation{}, err
			}
			target = p
		}
		target.frameTag = a.frame
		a.active = append(a.active, target)
	}

	offset := target.cursor
	target.cursor += size
	target.frameTag = a.frame

	data := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(target.mapped)+uintptr(offset))), size)

	return Allocation{
		Buffer: target.buffer,
		Offset: vk.DeviceSize(offset),
		Size:   vk.DeviceSize(size),
		Data:   data,
	}, nil
}

// AdvanceFrame marks the start of a new frame and retires any active
// page whose tagged frame is now at least framesInFlight frames in the
// past, mirroring the retirement rule frame.Scheduler applies to the
// deferred destruction queue.
func (a *Allocator) AdvanceFrame(frame uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frame = frame

	var stillActive []*page
	for _, p := range a.active {
		if frame >= p.frameTag+uint64(a.framesInFlight) {
			a.retired = append(a.retired, p)
		} else {
			stillActive = append(stillActive, p)
		}
	}
	a.active = stillActive
}

// Destroy releases every page the allocator owns, active or retired.
func (a *Allocator) Destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, p := range append(a.active, a.retired...) {
		vk.UnmapMemory(a.dev, p.memory)
		vk.FreeMemory(a.dev, p.memory, nil)
		vk.DestroyBuffer(a.dev, p.buffer, nil)
	}
	a.active = nil
	a.retired = nil
}

func alignUp(v, align int64) int64 {
	return (v + align - 1) / align * align
}
