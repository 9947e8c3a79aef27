package resources

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/vkforge/renderbackend/device"
	"github.com/vkforge/renderbackend/vkerr"
)

// Image wraps a device image, its view, and its memory. LastLayout
// tracks the image's most recently recorded layout transition, the
// Go equivalent of the teacher's implicit "assume general layout"
// handling, generalized to spec.md §4's "last_command_layout" tracking
// so the submission pipeline can decide whether a barrier is needed
// before the next use.
type Image struct {
	Handle      vk.Image
	View        vk.ImageView
	Memory      vk.DeviceMemory
	Format      vk.Format
	Extent      vk.Extent3D
	MipLevels   uint32
	LastLayout  vk.ImageLayout
	LastCommand uint64 // monotonic submission index that last touched this image
}

// ImageStore creates and tracks Image resources, generalized from the
// teacher's CoreImage (image.go), which kept three parallel
// string-keyed maps (image_views/texture_images/texture_device_memory)
// instead of one resource type.
type ImageStore struct {
	dev      vk.Device
	memProps vk.PhysicalDeviceMemoryProperties
	reg      *Registry[*Image]
}

// NewImageStore builds a store bound to dev.
func NewImageStore(dev vk.Device, memProps vk.PhysicalDeviceMemoryProperties) *ImageStore {
	return &ImageStore{dev: dev, memProps: memProps, reg: NewRegistry[*Image]()}
}

// CreateParams describes a 2D image to create.
type CreateParams struct {
	Width, Height uint32
	MipLevels     uint32
	Format        vk.Format
	Usage         vk.ImageUsageFlagBits
	Aspect        vk.ImageAspectFlagBits
}

// Create allocates a 2D image, its backing device-local memory, and a
// matching image view.
func (s *ImageStore) Create(p CreateParams) (ID, error) {
	mips := p.MipLevels
	if mips == 0 {
		mips = 1
	}
	extent := vk.Extent3D{Width: p.Width, Height: p.Height, Depth: 1}

	var img vk.Image
	ret := vk.CreateImage(s.dev, &vk.ImageCreateInfo{
		SType:       vk.StructureTypeImageCreateInfo,
		ImageType:   vk.ImageType2d,
		Format:      p.Format,
		Extent:      extent,
		MipLevels:   mips,
		ArrayLayers: 1,
		Samples:     vk.SampleCount1Bit,
		Tiling:      vk.ImageTilingOptimal,
		Usage:       vk.ImageUsageFlags(p.Usage),
		SharingMode: vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}, nil, &img)
	if ret != vk.Success {
		return ID{}, vkerr.Result(ret)
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(s.dev, img, &req)
	req.Deref()

	typeIdx, ok := device.FindMemoryType(s.memProps, req.MemoryTypeBits, vk.MemoryPropertyDeviceLocalBit)
	if !ok {
		vk.DestroyImage(s.dev, img, nil)
		return ID{}, vkerr.NewRecoverable("resources.ImageStore.Create", vk.ErrorOutOfDeviceMemory)
	}

	var mem vk.DeviceMemory
	ret = vk.AllocateMemory(s.dev, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: typeIdx,
	}, nil, &mem)
	if ret != vk.Success {
		vk.DestroyImage(s.dev, img, nil)
		return ID{}, vkerr.Result(ret)
	}
	if ret := vk.BindImageMemory(s.dev, img, mem, 0); ret != vk.Success {
		vk.FreeMemory(s.dev, mem, nil)
		vk.DestroyImage(s.dev, img, nil)
		return ID{}, vkerr.Result(ret)
	}

	var view vk.ImageView
	ret = vk.CreateImageView(s.dev, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img,
		ViewType: vk.ImageViewType2d,
		Format:   p.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(p.Aspect),
			LevelCount:     mips,
			LayerCount:     1,
		},
	}, nil, &view)
	if ret != vk.Success {
		vk.FreeMemory(s.dev, mem, nil)
		vk.DestroyImage(s.dev, img, nil)
		return ID{}, vkerr.Result(ret)
	}

	return s.reg.Insert(&Image{
		Handle:     img,
		View:       view,
		Memory:     mem,
		Format:     p.Format,
		Extent:     extent,
		MipLevels:  mips,
		LastLayout: vk.ImageLayoutUndefined,
	}), nil
}

// Get resolves id.
func (s *ImageStore) Get(id ID) (*Image, bool) { return s.reg.Get(id) }

// Destroy releases the Vulkan objects. As with BufferStore.Destroy,
// callers should route this through the schedule package's deferred
// destruction queue rather than calling it while still in flight.
func (s *ImageStore) Destroy(id ID) {
	img, ok := s.reg.Get(id)
	if !ok {
		return
	}
	vk.DestroyImageView(s.dev, img.View, nil)
	vk.DestroyImage(s.dev, img.Handle, nil)
	vk.FreeMemory(s.dev, img.Memory, nil)
	s.reg.Remove(id)
}
