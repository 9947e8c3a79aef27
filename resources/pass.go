package resources

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/vkforge/renderbackend/vkerr"
)

// Attachment describes one render-pass attachment slot.
type Attachment struct {
	Format      vk.Format
	FinalLayout vk.ImageLayout
	IsDepth     bool
}

// Pass wraps a vk.RenderPass and the attachment layout it was built
// from, generalized from the teacher's CoreRenderPass
// (renderpass.go), which hard-coded exactly one color + one depth
// attachment and one subpass. A Pass here may declare any attachment
// set; passgraph decides ordering and dependency barriers across passes,
// not this type.
type Pass struct {
	Handle      vk.RenderPass
	Attachments []Attachment
}

// PassStore creates and tracks Pass resources.
type PassStore struct {
	dev vk.Device
	reg *Registry[*Pass]
}

// NewPassStore builds a store bound to dev.
func NewPassStore(dev vk.Device) *PassStore {
	return &PassStore{dev: dev, reg: NewRegistry[*Pass]()}
}

// Create builds a single-subpass render pass over attachments, mirroring
// the teacher's subpass-dependency pattern (external-to-subpass0 and
// subpass0-to-external, both COLOR_ATTACHMENT_OUTPUT-gated) but sized to
// however many color/depth attachments the caller declares rather than
// a fixed one-of-each.
func (s *PassStore) Create(attachments []Attachment) (ID, error) {
	descs := make([]vk.AttachmentDescription, len(attachments))
	var colorRefs, depthRefs []vk.AttachmentReference
	for i, a := range attachments {
		layout := vk.ImageLayoutColorAttachmentOptimal
		if a.IsDepth {
			layout = vk.ImageLayoutDepthStencilAttachmentOptimal
		}
		descs[i] = vk.AttachmentDescription{
			Format:         a.Format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    a.FinalLayout,
		}
		ref := vk.AttachmentReference{Attachment: uint32(i), Layout: layout}
		if a.IsDepth {
			depthRefs = append(depthRefs, ref)
		} else {
			colorRefs = append(colorRefs, ref)
		}
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorRefs)),
		PColorAttachments:    colorRefs,
	}
	if len(depthRefs) > 0 {
		subpass.PDepthStencilAttachment = &depthRefs[0]
	}

	deps := []vk.SubpassDependency{
		{
			SrcSubpass:      vk.SubpassExternal,
			DstSubpass:      0,
			SrcStageMask:    vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
			DstStageMask:    vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			SrcAccessMask:   vk.AccessFlags(vk.AccessMemoryReadBit),
			DstAccessMask:   vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
			DependencyFlags: vk.DependencyFlags(vk.DependencyByRegionBit),
		},
		{
			SrcSubpass:      0,
			DstSubpass:      vk.SubpassExternal,
			SrcStageMask:    vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstStageMask:    vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
			SrcAccessMask:   vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
			DstAccessMask:   vk.AccessFlags(vk.AccessMemoryReadBit),
			DependencyFlags: vk.DependencyFlags(vk.DependencyByRegionBit),
		},
	}

	var handle vk.RenderPass
	ret := vk.CreateRenderPass(s.dev, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(descs)),
		PAttachments:    descs,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(deps)),
		PDependencies:   deps,
	}, nil, &handle)
	if ret != vk.Success {
		return ID{}, vkerr.Result(ret)
	}

	return s.reg.Insert(&Pass{Handle: handle, Attachments: attachments}), nil
}

// Get resolves id.
func (s *PassStore) Get(id ID) (*Pass, bool) { return s.reg.Get(id) }

// Destroy releases the render pass.
func (s *PassStore) Destroy(id ID) {
	p, ok := s.reg.Get(id)
	if !ok {
		return
	}
	vk.DestroyRenderPass(s.dev, p.Handle, nil)
	s.reg.Remove(id)
}
