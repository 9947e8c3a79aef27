// Package submit implements the submission pipeline of spec.md §4.2: a
// single primary command buffer recorded each frame in a fixed order,
// transfer phase, graphics phase (mip generation, frame-buffer build,
// pass-graph execution, surface blit), read-back phase, and the
// finalize/submit/present tail. Grounded on the teacher's instance.go
// (`setup_command`/`submit_pipeline`), renderpass.go (render-pass
// begin/end and subpass dependencies), and pools.go (command buffer
// allocation idiom), generalized from the teacher's single hard-coded
// "Primary" pass and "default" pipeline into the general pass-graph
// execution spec.md §4.2 step 3c and §4.3 describe.
package submit

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/vkforge/renderbackend/logging"
	"github.com/vkforge/renderbackend/passgraph"
	"github.com/vkforge/renderbackend/readback"
	"github.com/vkforge/renderbackend/resources"
	"github.com/vkforge/renderbackend/schedule"
	"github.com/vkforge/renderbackend/stagealloc"
	"github.com/vkforge/renderbackend/vkerr"
)

// bufferUsage classifies a buffer's content for the transfer phase's
// barrier selection (spec.md §4.2 step 2).
type bufferUsage int

const (
	UsageAttribute bufferUsage = iota
	UsageIndex
	UsageUniform
	UsageStorage
	UsageReadBackStorage
)

// dstBarrier returns the destination stage/access mask a just-uploaded
// buffer of the given usage requires, per spec.md §4.2 step 2's literal
// table.
func dstBarrier(usage bufferUsage) (vk.PipelineStageFlags, vk.AccessFlags, error) {
	switch usage {
	case UsageAttribute:
		return vk.PipelineStageFlags(vk.PipelineStageVertexInputBit),
			vk.AccessFlags(vk.AccessVertexAttributeReadBit), nil
	case UsageIndex:
		return vk.PipelineStageFlags(vk.PipelineStageVertexInputBit),
			vk.AccessFlags(vk.AccessIndexReadBit), nil
	case UsageUniform:
		return vk.PipelineStageFlags(vk.PipelineStageVertexShaderBit) | vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			vk.AccessFlags(vk.AccessUniformReadBit), nil
	case UsageStorage:
		return vk.PipelineStageFlags(vk.PipelineStageVertexShaderBit) | vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			vk.AccessFlags(vk.AccessShaderReadBit) | vk.AccessFlags(vk.AccessShaderWriteBit), nil
	default:
		return 0, 0, vkerr.ErrInvalidTransferTarget
	}
}

// ImageTarget describes a resident GPU image the transfer/graphics/
// read-back phases can transition and copy into.
type ImageTarget struct {
	ID            resources.ID
	Handle        vk.Image
	Aspect        vk.ImageAspectFlags
	MipLevels     uint32
	CanSample     bool
	CurrentLayout vk.ImageLayout
}

// BufferTarget pairs a buffer's resident handle with its usage
// classification for transfer-phase barrier selection.
type BufferTarget struct {
	ID     resources.ID
	Handle vk.Buffer
	Usage  bufferUsage
}

// AttachmentView resolves one framebuffer attachment request ID into the
// image view and current build state the graphics phase needs to check
// buildability and construct the real vk.Framebuffer.
type AttachmentView struct {
	View          vk.ImageView
	Ready         bool
	Width, Height uint32
}

// PassInstance is one scheduled invocation of a resource-pass, carrying
// its secondary command buffer and the attachments it writes, grounded
// on the teacher's renderpass.go CorePass/subpass structure generalized
// to many instances per pass.
type PassInstance struct {
	passgraph.Instance
	RenderPass         vk.RenderPass
	Framebuffer        vk.Framebuffer
	RenderArea         vk.Rect2D
	ClearValues        []vk.ClearValue
	Secondary          vk.CommandBuffer
	ColorAttachments   []ImageTarget
	DepthAttachment    *ImageTarget
	WritesSurfaceImage *ImageTarget // non-nil iff Instance.WritesSurface
}

// BlitRequest asks the graphics phase to blit a resident image onto an
// acquired surface image (spec.md §4.2 step 3d).
type BlitRequest struct {
	Source           ImageTarget
	SurfaceImage     vk.Image
	SurfaceOldLayout vk.ImageLayout
	Extent           vk.Extent3D
}

// ReadBackRequest asks the read-back phase to copy GPU data out into a
// host-visible destination allocation, resolving into a readback.Status
// once the copy is known to have completed on the device.
type ReadBackRequest struct {
	Status       *readback.Status
	Source       ImageTarget // zero value means the source is a buffer, not an image
	SourceBuffer vk.Buffer
	Dest         stagealloc.Allocation
}

// pendingMipGen is a base-level upload awaiting its mip-chain blit pass,
// recorded in the graphics phase per spec.md §4.2 step 3a rather than
// inline in the transfer phase.
type pendingMipGen struct {
	target        ImageTarget
	width, height uint32
}

// Recorder records one frame's primary command buffer. It is
// short-lived: constructed fresh each frame with that frame's pending
// work, then discarded after RecordAndFinalize returns.
type Recorder struct {
	dev vk.Device
	log *logging.Logger
	cmd vk.CommandBuffer

	Ops       *schedule.OpLists
	ReadBacks *schedule.ReadBackList

	// Destruction and FrameIndex let the read-back phase defer
	// readback.Status.Complete calls the same F-frames-later way
	// backend.System defers resource teardown, since a copy this
	// frame's command buffer records is only safe to read from the
	// host once that buffer has retired (spec.md §4.4).
	Destruction *schedule.DestructionQueue
	FrameIndex  uint64

	// Framebuffers builds the vk.Framebuffer objects a scheduled
	// FramebufferRequest resolves into. RenderPasses resolves a
	// request's Pass ID to the render pass it must be built against.
	// Attachments resolves a request's non-surface Attachments IDs to
	// the views the graphics phase builds from.
	Framebuffers *resources.FramebufferStore
	RenderPasses map[uint64]vk.RenderPass
	Attachments  map[uint64]AttachmentView

	Passes  []PassInstance
	Blits   []BlitRequest
	ReadBackRequests []ReadBackRequest

	// SurfaceImages/SurfaceOldLayouts describe the surface(s) acquired
	// this frame for the finalize step. SurfaceViews is the same
	// surface's per-image views, used to fill a FramebufferRequest's
	// SurfaceSlot, one vk.Framebuffer per swap-chain image.
	// SurfaceWidth/SurfaceHeight is that surface's current extent,
	// checked against a FramebufferRequest's Width/Height the same way
	// every other attachment is. Kept as parallel slices/scalars since a
	// frame may target multiple surfaces, but a single FramebufferRequest
	// targets whichever surface is at index 0 (a render pass only ever
	// writes to the one window it was built for).
	SurfaceImages     []vk.Image
	SurfaceOldLayouts []vk.ImageLayout
	SurfaceViews      []vk.ImageView
	SurfaceWidth      uint32
	SurfaceHeight     uint32

	pendingMips []pendingMipGen
}

// New builds a Recorder for cmd, which must already be reset (frame's
// command pool reset happens in frame.Scheduler.WaitAndReset).
// destruction and frameIndex are the frame slot's deferred-destruction
// queue and the scheduler's current frame counter, used to time
// read-back completion the same way resource teardown is timed.
func New(dev vk.Device, log *logging.Logger, cmd vk.CommandBuffer, ops *schedule.OpLists, readBacks *schedule.ReadBackList, destruction *schedule.DestructionQueue, frameIndex uint64) *Recorder {
	return &Recorder{
		dev: dev, log: log, cmd: cmd,
		Ops: ops, ReadBacks: readBacks,
		Destruction: destruction, FrameIndex: frameIndex,
	}
}

// RecordAndFinalize performs the entire §4.2 sequence: begin, transfer
// phase, graphics phase, read-back phase, finalize, end. It does not
// submit or present, frame.Scheduler.Submit/Present do that once this
// returns successfully.
func (r *Recorder) RecordAndFinalize(bufferTargets map[uint64]BufferTarget, imageTargets map[uint64]ImageTarget) error {
	if ret := vk.BeginCommandBuffer(r.cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}); ret != vk.Success {
		return vkerr.Result(ret)
	}

	if err := r.transferPhase(bufferTargets, imageTargets); err != nil {
		return err
	}
	if err := r.graphicsPhase(); err != nil {
		return err
	}
	if err := r.readBackPhase(); err != nil {
		return err
	}
	r.finalize()

	if ret := vk.EndCommandBuffer(r.cmd); ret != vk.Success {
		return vkerr.Result(ret)
	}
	return nil
}

// transferPhase implements spec.md §4.2 step 2: buffer uploads, in-place
// mapped-buffer flushes, image uploads from a staging allocation, and
// device-to-device image copies, each followed by a barrier chosen from
// the target's usage classification.
func (r *Recorder) transferPhase(bufferTargets map[uint64]BufferTarget, imageTargets map[uint64]ImageTarget) error {
	for _, xfer := range r.Ops.DrainTransfers() {
		target, ok := bufferTargets[xfer.Target]
		if !ok {
			continue
		}
		if xfer.InPlace {
			// Host-coherent mapped memory: nothing to copy, only a
			// barrier is needed so subsequent stages observe the write.
			r.bufferBarrier(target)
			continue
		}
		if xfer.StagingBuffer == vk.Buffer(vk.NullHandle) {
			if r.log != nil {
				r.log.Error.Printf("submit: dropping transfer into target %d with no staging source", xfer.Target)
			}
			continue
		}
		if _, _, err := dstBarrier(target.Usage); err != nil {
			if r.log != nil {
				r.log.Error.Printf("submit: dropping transfer into invalid target type %d", target.Usage)
			}
			continue
		}
		vk.CmdCopyBuffer(r.cmd, xfer.StagingBuffer, target.Handle, 1, []vk.BufferCopy{{
			SrcOffset: xfer.StagingOffset,
			Size:      xfer.Size,
		}})
		r.bufferBarrier(target)
	}

	for _, up := range r.Ops.DrainUploads() {
		target, ok := imageTargets[up.Target]
		if !ok {
			continue
		}
		if up.StagingBuffer == vk.Buffer(vk.NullHandle) {
			if r.log != nil {
				r.log.Error.Printf("submit: dropping image upload into target %d with no staging source", up.Target)
			}
			continue
		}

		r.transitionImage(target.Handle, target.Aspect, target.CurrentLayout, vk.ImageLayoutTransferDstOptimal, 0, 1)
		vk.CmdCopyBufferToImage(r.cmd, up.StagingBuffer, target.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{{
			BufferOffset:     up.StagingOffset,
			ImageSubresource: vk.ImageSubresourceLayers{AspectMask: target.Aspect, LayerCount: 1},
			ImageExtent:      vk.Extent3D{Width: up.Width, Height: up.Height, Depth: 1},
		}})
		r.transitionImage(target.Handle, target.Aspect, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal, 0, 1)
		target.CurrentLayout = vk.ImageLayoutShaderReadOnlyOptimal

		if up.GenerateMips && target.MipLevels > 1 {
			r.pendingMips = append(r.pendingMips, pendingMipGen{target: target, width: up.Width, height: up.Height})
		}
		imageTargets[up.Target] = target
	}

	for _, cp := range r.Ops.DrainImageCopies() {
		src, sok := imageTargets[cp.Source]
		dst, dok := imageTargets[cp.Target]
		if !sok || !dok {
			if r.log != nil {
				r.log.Error.Printf("submit: dropping image copy %d -> %d with unresolved target", cp.Source, cp.Target)
			}
			continue
		}
		r.recordImageCopy(src, dst, cp.Width, cp.Height)
		if src.CanSample {
			src.CurrentLayout = vk.ImageLayoutShaderReadOnlyOptimal
			imageTargets[cp.Source] = src
		}
		dst.CurrentLayout = vk.ImageLayoutShaderReadOnlyOptimal
		imageTargets[cp.Target] = dst
	}
	return nil
}

// bufferBarrier records a TRANSFER_WRITE -> (usage-derived) barrier for
// target and reports whether target.Usage was a valid transfer
// destination.
func (r *Recorder) bufferBarrier(target BufferTarget) bool {
	dstStage, dstAccess, err := dstBarrier(target.Usage)
	if err != nil {
		return false
	}
	vk.CmdPipelineBarrier(r.cmd,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit), dstStage,
		0, 0, nil, 1, []vk.BufferMemoryBarrier{{
			SType:               vk.StructureTypeBufferMemoryBarrier,
			SrcAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
			DstAccessMask:       dstAccess,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Buffer:              target.Handle,
			Size:                vk.WholeSize,
		}}, 0, nil)
	return true
}

func (r *Recorder) transitionImage(img vk.Image, aspect vk.ImageAspectFlags, old, new vk.ImageLayout, baseMip, levelCount uint32) {
	if levelCount == 0 {
		return
	}
	vk.CmdPipelineBarrier(r.cmd,
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{{
			SType:               vk.StructureTypeImageMemoryBarrier,
			OldLayout:           old,
			NewLayout:           new,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               img,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:   aspect,
				BaseMipLevel: baseMip,
				LevelCount:   levelCount,
				LayerCount:   1,
			},
		}})
}

// recordImageCopy implements spec.md §4.2 step 2's device-to-device image
// copy: both images transition to their transfer layout, vk.CmdCopyImage
// moves width x height texels from src's mip 0 into dst's mip 0, and both
// transition back to a sampleable layout.
func (r *Recorder) recordImageCopy(src, dst ImageTarget, width, height uint32) {
	r.transitionImage(src.Handle, src.Aspect, src.CurrentLayout, vk.ImageLayoutTransferSrcOptimal, 0, 1)
	r.transitionImage(dst.Handle, dst.Aspect, dst.CurrentLayout, vk.ImageLayoutTransferDstOptimal, 0, 1)

	vk.CmdCopyImage(r.cmd,
		src.Handle, vk.ImageLayoutTransferSrcOptimal,
		dst.Handle, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageCopy{{
			SrcSubresource: vk.ImageSubresourceLayers{AspectMask: src.Aspect, LayerCount: 1},
			DstSubresource: vk.ImageSubresourceLayers{AspectMask: dst.Aspect, LayerCount: 1},
			Extent:         vk.Extent3D{Width: width, Height: height, Depth: 1},
		}})

	r.transitionImage(src.Handle, src.Aspect, vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal, 0, 1)
	r.transitionImage(dst.Handle, dst.Aspect, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal, 0, 1)
}

// generateMips implements spec.md §4.2 step 3a: walk mip levels
// first+1..last, each time transitioning the previous level into
// TRANSFER_SRC (SHADER_READ_ONLY on the first iteration, since the base
// copy already left it there; TRANSFER_DST on later iterations, left
// over from this same loop's own prior transition of what was then the
// new level), transitioning the new level from UNDEFINED into
// TRANSFER_DST, blitting the previous level down into it with linear
// filtering, then transitioning the previous level on to
// SHADER_READ_ONLY. The final level is never a "previous" level for a
// further iteration, so it is transitioned to SHADER_READ_ONLY once the
// loop ends.
func (r *Recorder) generateMips(target ImageTarget, width, height uint32) {
	mipWidth, mipHeight := int32(width), int32(height)
	for mip := uint32(1); mip < target.MipLevels; mip++ {
		prevOld := vk.ImageLayoutTransferDstOptimal
		if mip == 1 {
			prevOld = vk.ImageLayoutShaderReadOnlyOptimal
		}
		r.transitionImage(target.Handle, target.Aspect, prevOld, vk.ImageLayoutTransferSrcOptimal, mip-1, 1)
		r.transitionImage(target.Handle, target.Aspect, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal, mip, 1)

		nextWidth, nextHeight := mipWidth, mipHeight
		if nextWidth > 1 {
			nextWidth /= 2
		}
		if nextHeight > 1 {
			nextHeight /= 2
		}

		blit := vk.ImageBlit{
			SrcSubresource: vk.ImageSubresourceLayers{AspectMask: target.Aspect, MipLevel: mip - 1, LayerCount: 1},
			DstSubresource: vk.ImageSubresourceLayers{AspectMask: target.Aspect, MipLevel: mip, LayerCount: 1},
		}
		blit.SrcOffsets[1] = vk.Offset3D{X: mipWidth, Y: mipHeight, Z: 1}
		blit.DstOffsets[1] = vk.Offset3D{X: nextWidth, Y: nextHeight, Z: 1}

		vk.CmdBlitImage(r.cmd,
			target.Handle, vk.ImageLayoutTransferSrcOptimal,
			target.Handle, vk.ImageLayoutTransferDstOptimal,
			1, []vk.ImageBlit{blit}, vk.FilterLinear)

		r.transitionImage(target.Handle, target.Aspect, vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal, mip-1, 1)

		mipWidth, mipHeight = nextWidth, nextHeight
	}
	r.transitionImage(target.Handle, target.Aspect, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal, target.MipLevels-1, 1)
}

// graphicsPhase implements spec.md §4.2 step 3: mip generation, pending
// frame-buffer builds, pass-graph execution ordered by passgraph.Sort,
// and surface blit requests.
func (r *Recorder) graphicsPhase() error {
	for _, m := range r.pendingMips {
		r.generateMips(m.target, m.width, m.height)
	}
	r.pendingMips = nil

	r.buildFramebuffers()

	instances := make([]passgraph.Instance, len(r.Passes))
	for i, p := range r.Passes {
		instances[i] = p.Instance
	}

	var cycleCount int
	order := passgraph.Sort(instances, func(id uint64) {
		cycleCount++
		if r.log != nil {
			r.log.Error.Printf("submit: pass-graph cycle recovery forced instance %d", id)
		}
	})

	byID := make(map[uint64]PassInstance, len(r.Passes))
	for _, p := range r.Passes {
		byID[p.ID] = p
	}

	for _, entry := range order {
		inst, ok := byID[entry.ID]
		if !ok {
			continue
		}
		r.recordPassInstance(inst)
	}

	for _, blit := range r.Blits {
		r.recordBlit(blit)
	}
	return nil
}

// buildFramebuffers implements spec.md §4.3's framebuffer-creation
// request processing: a request is buildable only if every attachment
// it names has resolved to a live view and every attachment (the surface
// included) agrees on width/height. A buildable request with no surface
// attachment produces exactly one vk.Framebuffer; one with a surface
// attachment produces one per swap-chain image, since the surface
// attachment's view differs per acquired image while every other
// attachment's view is shared across them.
func (r *Recorder) buildFramebuffers() {
	for _, req := range r.Ops.DrainFramebuffers() {
		handles, err := r.buildOneFramebuffer(req)
		if req.Result != nil {
			req.Result.Resolve(handles, err)
		}
		if err != nil && r.log != nil {
			r.log.Error.Printf("submit: framebuffer request for pass %d not built: %v", req.Pass, err)
		}
	}
}

func (r *Recorder) buildOneFramebuffer(req FramebufferRequest) ([]vk.Framebuffer, error) {
	pass, ok := r.RenderPasses[req.Pass]
	if !ok {
		return nil, vkerr.ErrFramebufferUnknownPass
	}

	views := make([]vk.ImageView, len(req.Attachments))
	for i, id := range req.Attachments {
		if req.SurfaceSlot == i {
			continue // filled per swap-chain image below
		}
		att, ok := r.Attachments[id]
		if !ok || !att.Ready {
			return nil, vkerr.ErrFramebufferAttachmentNotReady
		}
		if att.Width != req.Width || att.Height != req.Height {
			return nil, vkerr.ErrFramebufferGeometryMismatch
		}
		views[i] = att.View
	}

	if req.SurfaceSlot < 0 {
		fb, err := r.Framebuffers.Create(pass, views, req.Width, req.Height)
		if err != nil {
			return nil, err
		}
		handle, _ := r.Framebuffers.Get(fb)
		return []vk.Framebuffer{handle.Handle}, nil
	}

	if req.SurfaceSlot >= len(req.Attachments) || len(r.SurfaceViews) == 0 {
		return nil, vkerr.ErrFramebufferAttachmentNotReady
	}
	if r.SurfaceWidth != req.Width || r.SurfaceHeight != req.Height {
		return nil, vkerr.ErrFramebufferGeometryMismatch
	}

	handles := make([]vk.Framebuffer, 0, len(r.SurfaceViews))
	for _, surfaceView := range r.SurfaceViews {
		views[req.SurfaceSlot] = surfaceView
		fb, err := r.Framebuffers.Create(pass, views, req.Width, req.Height)
		if err != nil {
			return nil, err
		}
		handle, _ := r.Framebuffers.Get(fb)
		handles = append(handles, handle.Handle)
	}
	return handles, nil
}

func (r *Recorder) recordPassInstance(inst PassInstance) {
	for _, att := range inst.ColorAttachments {
		newLayout := vk.ImageLayoutColorAttachmentOptimal
		old := att.CurrentLayout
		if inst.WritesSurfaceImage != nil && att.Handle == inst.WritesSurfaceImage.Handle {
			old = vk.ImageLayoutUndefined
		}
		r.transitionImage(att.Handle, att.Aspect, old, newLayout, 0, att.MipLevels)
	}
	if inst.DepthAttachment != nil {
		d := inst.DepthAttachment
		r.transitionImage(d.Handle, d.Aspect, d.CurrentLayout, vk.ImageLayoutDepthStencilAttachmentOptimal, 0, d.MipLevels)
	}

	vk.CmdBeginRenderPass(r.cmd, &vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      inst.RenderPass,
		Framebuffer:     inst.Framebuffer,
		RenderArea:      inst.RenderArea,
		ClearValueCount: uint32(len(inst.ClearValues)),
		PClearValues:    inst.ClearValues,
	}, vk.SubpassContentsSecondaryCommandBuffers)

	if inst.Secondary != vk.CommandBuffer(vk.NullHandle) {
		vk.CmdExecuteCommands(r.cmd, 1, []vk.CommandBuffer{inst.Secondary})
	}

	vk.CmdEndRenderPass(r.cmd)

	for _, att := range inst.ColorAttachments {
		if att.CanSample {
			r.transitionImage(att.Handle, att.Aspect, vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutShaderReadOnlyOptimal, 0, att.MipLevels)
		}
	}
}

func (r *Recorder) recordBlit(req BlitRequest) {
	r.transitionImage(req.Source.Handle, req.Source.Aspect, req.Source.CurrentLayout, vk.ImageLayoutTransferSrcOptimal, 0, req.Source.MipLevels)
	r.transitionImage(req.SurfaceImage, vk.ImageAspectFlags(vk.ImageAspectColorBit), req.SurfaceOldLayout, vk.ImageLayoutTransferDstOptimal, 0, 1)

	region := vk.ImageBlit{
		SrcSubresource: vk.ImageSubresourceLayers{AspectMask: req.Source.Aspect, LayerCount: 1},
		DstSubresource: vk.ImageSubresourceLayers{AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit), LayerCount: 1},
	}
	region.SrcOffsets[1] = vk.Offset3D{X: int32(req.Extent.Width), Y: int32(req.Extent.Height), Z: 1}
	region.DstOffsets[1] = vk.Offset3D{X: int32(req.Extent.Width), Y: int32(req.Extent.Height), Z: 1}

	vk.CmdBlitImage(r.cmd,
		req.Source.Handle, vk.ImageLayoutTransferSrcOptimal,
		req.SurfaceImage, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageBlit{region}, vk.FilterLinear)

	if req.Source.CanSample {
		r.transitionImage(req.Source.Handle, req.Source.Aspect, vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal, 0, req.Source.MipLevels)
	}
}

// readBackPhase implements spec.md §4.2 step 4: validates each pending
// request, records the copy, then defers the request's
// readback.Status.Complete call the same F-frames-later way resource
// teardown is deferred, since the copy this command buffer just recorded
// is only guaranteed visible to the host once this frame's fence has
// signaled and framesInFlight more frames have passed (spec.md §4.4).
func (r *Recorder) readBackPhase() error {
	for _, req := range r.ReadBackRequests {
		if req.Status.State() != readback.Scheduled {
			continue
		}

		if req.Dest.Buffer == vk.Buffer(vk.NullHandle) {
			req.Status.Fail()
			continue
		}

		if req.SourceBuffer != vk.Buffer(vk.NullHandle) {
			vk.CmdCopyBuffer(r.cmd, req.SourceBuffer, req.Dest.Buffer, 1, []vk.BufferCopy{{
				DstOffset: req.Dest.Offset,
				Size:      req.Dest.Size,
			}})
		} else {
			r.transitionImage(req.Source.Handle, req.Source.Aspect, req.Source.CurrentLayout, vk.ImageLayoutTransferSrcOptimal, 0, 1)
			vk.CmdCopyImageToBuffer(r.cmd, req.Source.Handle, vk.ImageLayoutTransferSrcOptimal, req.Dest.Buffer, 1, []vk.BufferImageCopy{{
				BufferOffset:     req.Dest.Offset,
				ImageSubresource: vk.ImageSubresourceLayers{AspectMask: req.Source.Aspect, LayerCount: 1},
				ImageExtent:      vk.Extent3D{Width: 1, Height: 1, Depth: 1},
			}})
			if req.Source.CanSample {
				r.transitionImage(req.Source.Handle, req.Source.Aspect, vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal, 0, 1)
			}
		}

		status := req.Status
		dest := req.Dest
		if r.Destruction != nil {
			r.Destruction.Defer(r.FrameIndex, func() {
				data := make([]byte, dest.Size)
				copy(data, dest.Data[:dest.Size])
				status.Complete(data)
			})
		} else {
			data := make([]byte, dest.Size)
			copy(data, dest.Data[:dest.Size])
			status.Complete(data)
		}
	}
	return nil
}

// finalize implements spec.md §4.2 step 5: transition every acquired
// surface image to PRESENT_SRC_KHR.
func (r *Recorder) finalize() {
	for i, img := range r.SurfaceImages {
		r.transitionImage(img, vk.ImageAspectFlags(vk.ImageAspectColorBit), r.SurfaceOldLayouts[i], vk.ImageLayoutPresentSrc, 0, 1)
	}
}
