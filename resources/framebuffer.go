package resources

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/vkforge/renderbackend/vkerr"
)

// Framebuffer wraps a vk.Framebuffer bound to the attachment views it
// was built from. spec.md §4's submission pipeline recognizes a
// "framebuffer-creation request" as a distinct step inside the graphics
// phase, separate from the pass itself, because a pass can be reused
// across many framebuffers (e.g. the same pass, one framebuffer per
// swap-chain image).
type Framebuffer struct {
	Handle vk.Framebuffer
	Width  uint32
	Height uint32
}

// FramebufferStore creates and tracks Framebuffer resources.
type FramebufferStore struct {
	dev vk.Device
	reg *Registry[Framebuffer]
}

// NewFramebufferStore builds a store bound to dev.
func NewFramebufferStore(dev vk.Device) *FramebufferStore {
	return &FramebufferStore{dev: dev, reg: NewRegistry[Framebuffer]()}
}

// Create builds a framebuffer for pass using attachments (one image view
// per attachment, in Pass.Attachments order) at width x height.
func (s *FramebufferStore) Create(pass vk.RenderPass, attachments []vk.ImageView, width, height uint32) (ID, error) {
	var handle vk.Framebuffer
	ret := vk.CreateFramebuffer(s.dev, &vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      pass,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}, nil, &handle)
	if ret != vk.Success {
		return ID{}, vkerr.Result(ret)
	}
	return s.reg.Insert(Framebuffer{Handle: handle, Width: width, Height: height}), nil
}

// Get resolves id.
func (s *FramebufferStore) Get(id ID) (Framebuffer, bool) { return s.reg.Get(id) }

// Destroy releases the framebuffer immediately and frees id's slot. It
// does not wait for in-flight frames; surface recreation does not call
// it for old framebuffers.
func (s *FramebufferStore) Destroy(id ID) {
	f, ok := s.reg.Get(id)
	if !ok {
		return
	}
	vk.DestroyFramebuffer(s.dev, f.Handle, nil)
	s.reg.Remove(id)
}
