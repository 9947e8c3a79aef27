// Package frame implements the frame scheduler of spec.md §2/§3/§4.1:
// N frames-in-flight, each with its own command pool, primary command
// buffer, fence, and acquire/complete semaphores, driven by
// backend.System.NextFrame's acquire → wait-fence → reset-pool →
// drain-destruction-queue → retire-frame-lifetime-allocations →
// submit → present → flip-index sequence. Grounded on the teacher's instance.go
// (`PerFrame`, `CoreRenderInstance.Update`/`acquire_next_image`/
// `present_image`), generalized from the teacher's hard-coded
// swapchain-depth-sized frame array to spec.md §6's independently
// configurable frames-in-flight count `F`.
package frame

import (
	"time"

	vk "github.com/vulkan-go/vulkan"

	"github.com/vkforge/renderbackend/logging"
	"github.com/vkforge/renderbackend/schedule"
	"github.com/vkforge/renderbackend/stagealloc"
	"github.com/vkforge/renderbackend/vkerr"
)

// Slot holds one frame-in-flight's resources, the Go equivalent of the
// teacher's PerFrame, minus the swap-chain coupling (surface.Manager
// owns swap-chain images; a Slot is purely about command recording and
// synchronization).
type Slot struct {
	Pool            vk.CommandPool
	Primary         vk.CommandBuffer
	Fence           vk.Fence
	ImageAcquired   vk.Semaphore
	QueueComplete   vk.Semaphore
	Destruction     *schedule.DestructionQueue
	ReadBacks       *schedule.ReadBackList
	Ops             *schedule.OpLists
	fenceSubmitted  bool
}

// Scheduler owns the F frame slots and the monotonic frame counter
// driving them.
type Scheduler struct {
	dev            vk.Device
	queue          vk.Queue
	queueFamily    uint32
	log            *logging.Logger
	stage          *stagealloc.Allocator
	fenceTimeout   time.Duration
	acquireTimeout time.Duration

	slots        []*Slot
	currentIndex int
	frameCounter uint64
}

// New allocates framesInFlight Slots, each with its own command pool
// (RESET_COMMAND_BUFFER-capable, mirroring the teacher's pools.go flag),
// one primary command buffer, a signaled-by-default fence (so the first
// wait doesn't block), and two semaphores.
func New(dev vk.Device, queue vk.Queue, queueFamily uint32, framesInFlight int, stage *stagealloc.Allocator, log *logging.Logger, fenceTimeout, acquireTimeout time.Duration) (*Scheduler, error) {
	s := &Scheduler{
		dev: dev, queue: queue, queueFamily: queueFamily,
		log: log, stage: stage,
		fenceTimeout: fenceTimeout, acquireTimeout: acquireTimeout,
	}

	for i := 0; i < framesInFlight; i++ {
		slot, err := s.newSlot()
		if err != nil {
			return nil, err
		}
		s.slots = append(s.slots, slot)
	}
	return s, nil
}

func (s *Scheduler) newSlot() (*Slot, error) {
	var pool vk.CommandPool
	ret := vk.CreateCommandPool(s.dev, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: s.queueFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}, nil, &pool)
	if ret != vk.Success {
		return nil, vkerr.Result(ret)
	}

	bufs := make([]vk.CommandBuffer, 1)
	ret = vk.AllocateCommandBuffers(s.dev, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, bufs)
	if ret != vk.Success {
		return nil, vkerr.Result(ret)
	}

	var fence vk.Fence
	ret = vk.CreateFence(s.dev, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}, nil, &fence)
	if ret != vk.Success {
		return nil, vkerr.Result(ret)
	}

	var acquired, complete vk.Semaphore
	vk.CreateSemaphore(s.dev, &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}, nil, &acquired)
	vk.CreateSemaphore(s.dev, &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}, nil, &complete)

	return &Slot{
		Pool:          pool,
		Primary:       bufs[0],
		Fence:         fence,
		ImageAcquired: acquired,
		QueueComplete: complete,
		Destruction:   schedule.NewDestructionQueue(len(s.slots) + 1),
		ReadBacks:     schedule.NewReadBackList(),
		Ops:           schedule.NewOpLists(),
	}, nil
}

// Current returns the frame slot about to be recorded into.
func (s *Scheduler) Current() *Slot { return s.slots[s.currentIndex] }

// FrameIndex returns the monotonic frame counter (not the slot index),
// this is what stagealloc.Allocator.AdvanceFrame and
// schedule.DestructionQueue.Defer tag allocations/destructors with.
func (s *Scheduler) FrameIndex() uint64 { return s.frameCounter }

// AcquireImage acquires the next swap-chain image into the current
// slot's ImageAcquired semaphore, bounded by acquireTimeout. A
// Suboptimal/OutOfDate result, or a timeout, is surfaced as a *vkerr.Recoverable so
// callers can trigger swap-chain recreation rather than treating it as
// fatal (spec.md §7).
func (s *Scheduler) AcquireImage(swapchain vk.Swapchain) (uint32, error) {
	slot := s.Current()
	var imageIndex uint32
	ret := vk.AcquireNextImage(s.dev, swapchain, uint64(s.acquireTimeout.Nanoseconds()), slot.ImageAcquired, vk.NullFence, &imageIndex)
	if vkerr.IsSuboptimalOrOutOfDate(ret) {
		return imageIndex, vkerr.NewRecoverable("frame.AcquireImage", vkerr.Result(ret))
	}
	if ret == vk.Timeout || ret == vk.NotReady {
		return 0, vkerr.NewRecoverable("frame.AcquireImage", vkerr.Result(ret))
	}
	if ret != vk.Success {
		return 0, vkerr.Result(ret)
	}
	return imageIndex, nil
}

// WaitAndReset waits on the current slot's fence (bounding how long the
// CPU can get ahead of the GPU to framesInFlight frames, spec.md §4.1
// step 3), then resets its command pool (step 4), both gated on the
// fence so the reset never races a still-executing command buffer.
func (s *Scheduler) WaitAndReset() error {
	slot := s.Current()
	if slot.fenceSubmitted {
		ret := vk.WaitForFences(s.dev, 1, []vk.Fence{slot.Fence}, vk.True, uint64(s.fenceTimeout.Nanoseconds()))
		if ret == vk.Timeout {
			return vkerr.NewRecoverable("frame.WaitAndReset", vkerr.Result(ret))
		}
		if ret != vk.Success {
			return vkerr.Result(ret)
		}
	}
	vk.ResetFences(s.dev, 1, []vk.Fence{slot.Fence})
	if ret := vk.ResetCommandPool(s.dev, slot.Pool, vk.CommandPoolResetFlags(0)); ret != vk.Success {
		return vkerr.Result(ret)
	}
	return nil
}

// DrainDestructionQueue drains the current slot's deferred destruction
// queue (spec.md §4.9's fixed ordering is the caller's responsibility,
// the order destructors were Deferred in) and retires frame-lifetime
// stagealloc pages now old enough to reuse.
func (s *Scheduler) DrainDestructionQueue() int {
	slot := s.Current()
	n := slot.Destruction.Drain(s.frameCounter)
	if s.stage != nil {
		s.stage.AdvanceFrame(s.frameCounter)
	}
	slot.ReadBacks.CleanupUnscheduled()
	return n
}

// Submit submits the current slot's primary command buffer, waiting on
// ImageAcquired at the color-attachment-output stage and signaling
// QueueComplete, with the slot's fence as the submission's completion
// fence, mirroring the teacher's submit_pipeline.
func (s *Scheduler) Submit() error {
	slot := s.Current()
	waitStage := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	ret := vk.QueueSubmit(s.queue, 1, []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{slot.ImageAcquired},
		PWaitDstStageMask:    []vk.PipelineStageFlags{waitStage},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{slot.Primary},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{slot.QueueComplete},
	}}, slot.Fence)
	if ret != vk.Success {
		if s.log != nil {
			s.log.Fatal("frame: vkQueueSubmit failed: %v", vkerr.Result(ret))
		}
		return vkerr.Result(ret)
	}
	slot.fenceSubmitted = true
	return nil
}

// Present presents imageIndex on swapchain, waiting on the current
// slot's QueueComplete semaphore.
func (s *Scheduler) Present(swapchain vk.Swapchain, imageIndex uint32) error {
	slot := s.Current()
	ret := vk.QueuePresent(s.queue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{slot.QueueComplete},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{swapchain},
		PImageIndices:      []uint32{imageIndex},
	})
	if vkerr.IsSuboptimalOrOutOfDate(ret) {
		return vkerr.NewRecoverable("frame.Present", vkerr.Result(ret))
	}
	if ret != vk.Success {
		return vkerr.Result(ret)
	}
	return nil
}

// Advance flips to the next frame slot and increments the monotonic
// frame counter, spec.md §4.1's final step.
func (s *Scheduler) Advance() {
	s.currentIndex = (s.currentIndex + 1) % len(s.slots)
	s.frameCounter++
}

// Destroy releases every slot's Vulkan objects and drains every
// destruction queue unconditionally. Call only after a
// vk.DeviceWaitIdle.
func (s *Scheduler) Destroy() {
	for _, slot := range s.slots {
		slot.Destruction.DrainAll()
		vk.DestroyFence(s.dev, slot.Fence, nil)
		vk.DestroySemaphore(s.dev, slot.ImageAcquired, nil)
		vk.DestroySemaphore(s.dev, slot.QueueComplete, nil)
		vk.DestroyCommandPool(s.dev, slot.Pool, nil)
	}
	s.slots = nil
}
