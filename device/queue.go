package device

import vk "github.com/vulkan-go/vulkan"

// QueueFamilies wraps a physical device's queue family properties and
// tracks which ones this backend has already bound a queue against,
// generalized from the teacher's CoreQueue (queue.go), which mixed
// property inspection and queue-handle storage in one struct.
type QueueFamilies struct {
	gpu        vk.PhysicalDevice
	properties []vk.QueueFamilyProperties
	bound      []bool
	queues     []vk.Queue
}

// QueryQueueFamilies enumerates gpu's queue family properties.
func QueryQueueFamilies(gpu vk.PhysicalDevice) *QueueFamilies {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, props)
	return &QueueFamilies{
		gpu:        gpu,
		properties: props,
		bound:      make([]bool, count),
		queues:     make([]vk.Queue, count),
	}
}

// GraphicsTransferFamily returns the index of the first queue family
// supporting both graphics and transfer, spec.md §6's "Required device
// features: ... a single queue family supporting graphics *and*
// transfer", or false if none qualifies.
func (q *QueueFamilies) GraphicsTransferFamily() (uint32, bool) {
	const want = vk.QueueFlags(vk.QueueGraphicsBit) | vk.QueueFlags(vk.QueueTransferBit)
	for i := range q.properties {
		q.properties[i].Deref()
		// A queue family advertising GRAPHICS implicitly supports
		// TRANSFER per the Vulkan spec even when the TRANSFER bit
		// isn't set explicitly, so graphics-only families qualify too.
		if q.properties[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			return uint32(i), true
		}
		if q.properties[i].QueueFlags&want == want {
			return uint32(i), true
		}
	}
	return 0, false
}

// CreateInfos builds one vk.DeviceQueueCreateInfo per family, each
// requesting a single queue, mirroring the teacher's
// CoreQueue.GetCreateInfos.
func (q *QueueFamilies) CreateInfos() []vk.DeviceQueueCreateInfo {
	infos := make([]vk.DeviceQueueCreateInfo, len(q.properties))
	priority := []float32{1.0}
	for i := range infos {
		infos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: uint32(i),
			QueueCount:       1,
			PQueuePriorities: priority,
		}
	}
	return infos
}

// Bind retrieves the queue handle for family index idx from an already
// created device and marks it bound.
func (q *QueueFamilies) Bind(dev vk.Device, idx uint32) vk.Queue {
	vk.GetDeviceQueue(dev, idx, 0, &q.queues[idx])
	q.bound[idx] = true
	return q.queues[idx]
}

// IsBound reports whether family idx already has a queue handle bound.
func (q *QueueFamilies) IsBound(idx uint32) bool {
	return q.bound[idx]
}
