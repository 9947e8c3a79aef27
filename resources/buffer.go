package resources

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/vkforge/renderbackend/device"
	"github.com/vkforge/renderbackend/vkerr"
)

// Buffer is a device buffer plus its backing memory, generalized from
// the teacher's CoreBuffer (buffers.go), which hard-coded a uniform
// buffer's descriptor layout into the buffer type itself. Here a Buffer
// is bare storage; descriptor bindings live in ParameterSetLayout.
type Buffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
	Usage  vk.BufferUsageFlagBits
}

// BufferStore creates and tracks Buffer resources for one logical
// device.
type BufferStore struct {
	dev      vk.Device
	memProps vk.PhysicalDeviceMemoryProperties
	reg      *Registry[Buffer]
}

// NewBufferStore builds a store bound to dev, using memProps (from
// device.Device.MemoryProps) to pick memory types.
func NewBufferStore(dev vk.Device, memProps vk.PhysicalDeviceMemoryProperties) *BufferStore {
	return &BufferStore{dev: dev, memProps: memProps, reg: NewRegistry[Buffer]()}
}

// Create allocates a buffer of size bytes with usage and property flags
// want (e.g. host-visible+coherent for a staging buffer, device-local
// for a GPU-only vertex/index/uniform buffer).
func (s *BufferStore) Create(size vk.DeviceSize, usage vk.BufferUsageFlagBits, want vk.MemoryPropertyFlagBits) (ID, error) {
	var buf vk.Buffer
	ret := vk.CreateBuffer(s.dev, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &buf)
	if ret != vk.Success {
		return ID{}, vkerr.Result(ret)
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(s.dev, buf, &req)
	req.Deref()

	typeIdx, ok := device.FindMemoryTypeFallback(s.memProps, req.MemoryTypeBits, want)
	if !ok {
		vk.DestroyBuffer(s.dev, buf, nil)
		return ID{}, vkerr.NewRecoverable("resources.BufferStore.Create", vk.ErrorOutOfDeviceMemory)
	}

	var mem vk.DeviceMemory
	ret = vk.AllocateMemory(s.dev, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: typeIdx,
	}, nil, &mem)
	if ret != vk.Success {
		vk.DestroyBuffer(s.dev, buf, nil)
		return ID{}, vkerr.Result(ret)
	}

	if ret := vk.BindBufferMemory(s.dev, buf, mem, 0); ret != vk.Success {
		vk.FreeMemory(s.dev, mem, nil)
		vk.DestroyBuffer(s.dev, buf, nil)
		return ID{}, vkerr.Result(ret)
	}

	return s.reg.Insert(Buffer{Handle: buf, Memory: mem, Size: size, Usage: usage}), nil
}

// Get resolves id.
func (s *BufferStore) Get(id ID) (Buffer, bool) { return s.reg.Get(id) }

// Destroy releases the Vulkan objects and frees id's slot. Callers are
// expected to route this through the deferred destruction queue
// (schedule.DestructionQueue) rather than calling it directly while the buffer
// may still be in flight.
func (s *BufferStore) Destroy(id ID) {
	b, ok := s.reg.Get(id)
	if !ok {
		return
	}
	vk.DestroyBuffer(s.dev, b.Handle, nil)
	vk.FreeMemory(s.dev, b.Memory, nil)
	s.reg.Remove(id)
}
