// Package surface implements the surface/swap-chain manager of spec.md
// §2/§3/§4.8: swap-chain creation and resize-triggered recreation, a
// present-mode preference queue, and the render-state FSM
// (RECEIVED_NO_OUTPUT → RECEIVED_DATA_FROM_FRAME_BUFFER →
// RECEIVED_DATA_FROM_BLIT → SENT_DATA_TO_READ_BACK → presented).
// Grounded on the teacher's swapchain.go (CoreSwapchain) and display.go
// (CoreDisplay), generalized from a single hard-coded present mode and
// assert-on-bad-format into a preference queue and a reported error
// (spec.md §9's second Open Question).
package surface

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/vkforge/renderbackend/vkerr"
)

// RenderState is the per-surface presentation state machine of spec.md
// §3.
type RenderState int

const (
	ReceivedNoOutput RenderState = iota
	ReceivedDataFromFrameBuffer
	ReceivedDataFromBlit
	SentDataToReadBack
	Presented
)

func (s RenderState) String() string {
	switch s {
	case ReceivedNoOutput:
		return "RECEIVED_NO_OUTPUT"
	case ReceivedDataFromFrameBuffer:
		return "RECEIVED_DATA_FROM_FRAME_BUFFER"
	case ReceivedDataFromBlit:
		return "RECEIVED_DATA_FROM_BLIT"
	case SentDataToReadBack:
		return "SENT_DATA_TO_READ_BACK"
	case Presented:
		return "PRESENTED"
	default:
		return "UNKNOWN"
	}
}

// requiredUsage is the minimum usage the engine's chosen surface format
// must support on the selected device: the format backs color
// attachments (render target), sampled reads (post-pass consumption),
// and transfer (upload/blit/read-back).
const requiredUsage = vk.FormatFeatureColorAttachmentBit | vk.FormatFeatureSampledImageBit | vk.FormatFeatureTransferSrcBit | vk.FormatFeatureTransferDstBit

// Swapchain holds one swap-chain's images, views, per-image semaphores,
// and render state.
type Swapchain struct {
	Handle       vk.Swapchain
	Format       vk.SurfaceFormat
	Extent       vk.Extent2D
	Images       []vk.Image
	Views        []vk.ImageView
	AcquireSems  []vk.Semaphore
	RenderState  RenderState
	ImageIndex   uint32
	NeedsRecreate bool
}

// Manager owns one window's VkSurface and its current Swapchain, plus
// the present-mode preference queue used whenever a swap-chain is
// (re)created.
type Manager struct {
	dev        vk.Device
	gpu        vk.PhysicalDevice
	surface    vk.Surface
	presentModePreference []vk.PresentMode
	current    *Swapchain
}

// New builds a Manager bound to gpu/dev/surface. presentModePreference
// is tried in order; FIFO is always appended at the end since the
// Vulkan spec guarantees every implementation supports it.
func New(gpu vk.PhysicalDevice, dev vk.Device, surf vk.Surface, presentModePreference []vk.PresentMode) *Manager {
	return &Manager{
		dev:                   dev,
		gpu:                   gpu,
		surface:               surf,
		presentModePreference: append(append([]vk.PresentMode{}, presentModePreference...), vk.PresentModeFifo),
	}
}

// chooseFormat picks the first available surface format, defaulting an
// UNDEFINED report to a fixed sRGB format the way the teacher does, then
// validates it against requiredUsage on this device, spec.md §9's
// second Open Question: a format failing that validation is reported as
// an error instead of asserting, since a user-supplied window/monitor
// combination choosing an exotic format is a recoverable condition, not
// a programming bug.
func (m *Manager) chooseFormat() (vk.SurfaceFormat, error) {
	var count uint32
	if ret := vk.GetPhysicalDeviceSurfaceFormats(m.gpu, m.surface, &count, nil); ret != vk.Success {
		return vk.SurfaceFormat{}, vkerr.Result(ret)
	}
	if count == 0 {
		return vk.SurfaceFormat{}, vkerr.ErrSurfaceFormatUnsupported
	}
	formats := make([]vk.SurfaceFormat, count)
	if ret := vk.GetPhysicalDeviceSurfaceFormats(m.gpu, m.surface, &count, formats); ret != vk.Success {
		return vk.SurfaceFormat{}, vkerr.Result(ret)
	}
	formats[0].Deref()

	format := formats[0]
	if format.Format == vk.FormatUndefined {
		format.Format = vk.FormatB8g8r8a8Srgb
	}

	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(m.gpu, format.Format, &props)
	props.Deref()
	if props.OptimalTilingFeatures&vk.FormatFeatureFlags(requiredUsage) != vk.FormatFeatureFlags(requiredUsage) {
		return vk.SurfaceFormat{}, vkerr.ErrSurfaceFormatUnsupported
	}

	return format, nil
}

func (m *Manager) choosePresentMode() vk.PresentMode {
	var count uint32
	vk.GetPhysicalDeviceSurfacePresentModes(m.gpu, m.surface, &count, nil)
	available := make([]vk.PresentMode, count)
	vk.GetPhysicalDeviceSurfacePresentModes(m.gpu, m.surface, &count, available)
	return selectPresentMode(m.presentModePreference, available)
}

// selectPresentMode returns the first mode in preference order that is
// also present in available, or vk.PresentModeFifo if none match, FIFO
// is guaranteed available by the Vulkan spec, and New always appends it
// to the end of preference, so this only falls through here when
// available itself is empty (a query failure upstream).
func selectPresentMode(preference, available []vk.PresentMode) vk.PresentMode {
	for _, preferred := range preference {
		for _, mode := range available {
			if mode == preferred {
				return preferred
			}
		}
	}
	return vk.PresentModeFifo
}

// Create builds a new swap-chain sized to width/height (typically the
// window's current framebuffer size), destroying any prior swap-chain
// this Manager owned via vk.CreateSwapchain's OldSwapchain field, the
// same overlap-free recreation the teacher's CoreSwapchain performs.
func (m *Manager) Create(width, height uint32, minImages uint32) (*Swapchain, error) {
	format, err := m.chooseFormat()
	if err != nil {
		return nil, err
	}

	var caps vk.SurfaceCapabilities
	if ret := vk.GetPhysicalDeviceSurfaceCapabilities(m.gpu, m.surface, &caps); ret != vk.Success {
		return nil, vkerr.Result(ret)
	}
	caps.Deref()
	caps.CurrentExtent.Deref()

	extent := vk.Extent2D{Width: width, Height: height}
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		extent = caps.CurrentExtent
	}

	desired := minImages
	if caps.MaxImageCount > 0 && desired > caps.MaxImageCount {
		desired = caps.MaxImageCount
	}
	if desired < caps.MinImageCount {
		desired = caps.MinImageCount
	}

	var oldHandle vk.Swapchain
	if m.current != nil {
		oldHandle = m.current.Handle
	}

	presentMode := m.choosePresentMode()

	var handle vk.Swapchain
	ret := vk.CreateSwapchain(m.dev, &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          m.surface,
		MinImageCount:    desired,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit) | vk.ImageUsageFlags(vk.ImageUsageTransferDstBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     oldHandle,
	}, nil, &handle)
	if ret != vk.Success {
		return nil, vkerr.Result(ret)
	}

	if oldHandle != vk.NullSwapchain {
		m.destroySwapchainObjects(m.current)
		vk.DestroySwapchain(m.dev, oldHandle, nil)
	}

	var imageCount uint32
	vk.GetSwapchainImages(m.dev, handle, &imageCount, nil)
	images := make([]vk.Image, imageCount)
	vk.GetSwapchainImages(m.dev, handle, &imageCount, images)

	views := make([]vk.ImageView, imageCount)
	sems := make([]vk.Semaphore, imageCount)
	for i := uint32(0); i < imageCount; i++ {
		var view vk.ImageView
		ret := vk.CreateImageView(m.dev, &vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    images[i],
			ViewType: vk.ImageViewType2d,
			Format:   format.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}, nil, &view)
		if ret != vk.Success {
			return nil, vkerr.Result(ret)
		}
		views[i] = view

		var sem vk.Semaphore
		vk.CreateSemaphore(m.dev, &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}, nil, &sem)
		sems[i] = sem
	}

	sc := &Swapchain{
		Handle:      handle,
		Format:      format,
		Extent:      extent,
		Images:      images,
		Views:       views,
		AcquireSems: sems,
		RenderState: ReceivedNoOutput,
	}
	m.current = sc
	return sc, nil
}

func (m *Manager) destroySwapchainObjects(sc *Swapchain) {
	if sc == nil {
		return
	}
	for _, v := range sc.Views {
		vk.DestroyImageView(m.dev, v, nil)
	}
	for _, s := range sc.AcquireSems {
		vk.DestroySemaphore(m.dev, s, nil)
	}
}

// MarkNeedsRecreate flags the current swap-chain as stale, called after
// a framebuffer-resize callback or an ErrorOutOfDate/Suboptimal present
// result (spec.md §4.1/§4.8).
func (m *Manager) MarkNeedsRecreate() {
	if m.current != nil {
		m.current.NeedsRecreate = true
	}
}

// Current returns the swap-chain currently owned by the manager, or nil
// before the first Create.
func (m *Manager) Current() *Swapchain { return m.current }

// Destroy releases the current swap-chain and its per-image objects.
// The VkSurfaceKHR itself is left alive; the backend destroys it through
// platform.DestroySurface. Call only after a device-wait-idle.
func (m *Manager) Destroy() {
	if m.current != nil {
		m.destroySwapchainObjects(m.current)
		vk.DestroySwapchain(m.dev, m.current.Handle, nil)
		m.current = nil
	}
}
