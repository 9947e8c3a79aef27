// Package device implements the device selector component of spec.md §2:
// physical device enumeration, format/memory capability queries, and
// logical device + memory-type classification. Grounded on the
// teacher's device.go/instance.go (CoreDevice, CoreRenderInstance.Init)
// and queue.go (CoreQueue).
package device

import (
	"context"
	"fmt"

	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/sync/errgroup"

	"github.com/vkforge/renderbackend/logging"
	"github.com/vkforge/renderbackend/vkerr"
)

// RequiredDeviceExtensions are the extensions spec.md §6 calls out as
// always-required: swap-chain support.
var RequiredDeviceExtensions = []string{"VK_KHR_swapchain"}

// Candidate is a physical device together with the capability data the
// selector gathered about it.
type Candidate struct {
	Physical        vk.PhysicalDevice
	Properties      vk.PhysicalDeviceProperties
	MemoryProps     vk.PhysicalDeviceMemoryProperties
	MemoryModel     MemoryModel
	Queues          *QueueFamilies
	GraphicsFamily  uint32
	SupportsDevice  bool // has a graphics+transfer family and swapchain ext
	MissingFeatures []string
}

// Device is the selected, fully initialized logical device.
type Device struct {
	Instance       vk.Instance
	Physical       vk.PhysicalDevice
	Properties     vk.PhysicalDeviceProperties
	MemoryProps    vk.PhysicalDeviceMemoryProperties
	MemoryModel    MemoryModel
	Handle         vk.Device
	GraphicsFamily uint32
	GraphicsQueue  vk.Queue
	Queues         *QueueFamilies
}

// Selector drives physical device enumeration and logical device
// creation for one Vulkan instance. A Selector selects at most once;
// selecting twice is a user-input error per spec.md §7.
type Selector struct {
	instance vk.Instance
	log      *logging.Logger
	selected bool
}

// NewSelector builds a Selector bound to instance.
func NewSelector(instance vk.Instance, log *logging.Logger) *Selector {
	return &Selector{instance: instance, log: log}
}

// EnumerateCandidates lists every physical device attached to the
// instance and probes each one's queue families and memory properties
// concurrently (golang.org/x/sync/errgroup fans the per-candidate
// capability queries out and joins them before the caller picks one,
// each vk.PhysicalDevice handle is read-only to query, so this is safe
// even though the logical devices created from them are not shared).
func (s *Selector) EnumerateCandidates() ([]Candidate, error) {
	var count uint32
	if ret := vk.EnumeratePhysicalDevices(s.instance, &count, nil); ret != vk.Success {
		return nil, vkerr.Result(ret)
	}
	if count == 0 {
		return nil, fmt.Errorf("device: no physical devices found")
	}
	gpus := make([]vk.PhysicalDevice, count)
	if ret := vk.EnumeratePhysicalDevices(s.instance, &count, gpus); ret != vk.Success {
		return nil, vkerr.Result(ret)
	}

	candidates := make([]Candidate, count)
	g, _ := errgroup.WithContext(context.Background())
	for i, gpu := range gpus {
		i, gpu := i, gpu
		g.Go(func() error {
			candidates[i] = s.probe(gpu)
			return nil
		})
	}
	_ = g.Wait() // probe never returns an error; see probe's doc comment.
	return candidates, nil
}

// probe gathers properties/memory/queue data for one physical device.
// It never fails: an unsuitable device is reported via
// Candidate.SupportsDevice/MissingFeatures rather than an error, so that
// one bad GPU in a multi-GPU machine doesn't abort enumeration.
func (s *Selector) probe(gpu vk.PhysicalDevice) Candidate {
	c := Candidate{Physical: gpu}

	vk.GetPhysicalDeviceProperties(gpu, &c.Properties)
	c.Properties.Deref()
	vk.GetPhysicalDeviceMemoryProperties(gpu, &c.MemoryProps)
	c.MemoryProps.Deref()
	c.MemoryModel = ClassifyMemory(c.MemoryProps)

	c.Queues = QueryQueueFamilies(gpu)
	family, ok := c.Queues.GraphicsTransferFamily()
	c.GraphicsFamily = family

	actualExt, _ := DeviceExtensions(gpu)
	extSet := NewExtensionSet(nil, RequiredDeviceExtensions, actualExt)
	hasExt, missing := extSet.HasRequired()

	c.SupportsDevice = ok && hasExt
	c.MissingFeatures = missing
	if !ok {
		c.MissingFeatures = append(c.MissingFeatures, "graphics+transfer queue family")
	}
	return c
}

// Select creates a logical device from candidate index idx within
// candidates, enabling requiredExt ∪ wantedExt (whichever are actually
// present) plus validation layers. Returns vkerr.ErrUnknownDevice if idx
// is out of range, or vkerr.ErrDeviceAlreadySelected if called twice.
func (s *Selector) Select(candidates []Candidate, idx int, wantedExt, layers []string) (*Device, error) {
	if s.selected {
		s.log.Error.Printf("device: Select called after a device was already selected")
		return nil, vkerr.ErrDeviceAlreadySelected
	}
	if idx < 0 || idx >= len(candidates) {
		s.log.Error.Printf("device: Select index %d out of range (have %d candidates)", idx, len(candidates))
		return nil, vkerr.ErrUnknownDevice
	}
	cand := candidates[idx]
	if !cand.SupportsDevice {
		s.log.Error.Printf("device: candidate %d missing required features: %v", idx, cand.MissingFeatures)
		return nil, fmt.Errorf("device: candidate %d does not satisfy required features: %v", idx, cand.MissingFeatures)
	}

	actualExt, _ := DeviceExtensions(cand.Physical)
	extSet := NewExtensionSet(wantedExt, RequiredDeviceExtensions, actualExt)
	enabledExt := extSet.Enabled()

	queueInfos := cand.Queues.CreateInfos()

	var handle vk.Device
	ret := vk.CreateDevice(cand.Physical, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(enabledExt)),
		PpEnabledExtensionNames: enabledExt,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}, nil, &handle)
	if ret != vk.Success {
		s.log.Fatal("device: vkCreateDevice failed: %v", vkerr.Result(ret))
		return nil, vkerr.Result(ret)
	}

	queue := cand.Queues.Bind(handle, cand.GraphicsFamily)
	s.selected = true

	return &Device{
		Instance:       s.instance,
		Physical:       cand.Physical,
		Properties:     cand.Properties,
		MemoryProps:    cand.MemoryProps,
		MemoryModel:    cand.MemoryModel,
		Handle:         handle,
		GraphicsFamily: cand.GraphicsFamily,
		GraphicsQueue:  queue,
		Queues:         cand.Queues,
	}, nil
}

// Destroy tears the logical device down.
func (d *Device) Destroy() {
	if d.Handle != vk.NullHandle {
		vk.DestroyDevice(d.Handle, nil)
		d.Handle = nil
	}
}
