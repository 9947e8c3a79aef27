// Package backend is the top-level render-backend system: it owns the
// device, every resource store, the frame scheduler, the submission
// recorder, and the background pipeline compiler, and exposes the
// operations spec.md §2 describes a caller driving one render loop
// needs. Grounded on the teacher's core.go (BaseCore) and instance.go
// (CoreRenderInstance), the two types that together play this role in
// the teacher, collapsed into one façade the way the teacher's own
// test/render_test.go drives both through a single `core` value.
package backend

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/vkforge/renderbackend/appsystem"
	"github.com/vkforge/renderbackend/compiler"
	"github.com/vkforge/renderbackend/config"
	"github.com/vkforge/renderbackend/descpool"
	"github.com/vkforge/renderbackend/device"
	"github.com/vkforge/renderbackend/frame"
	"github.com/vkforge/renderbackend/logging"
	"github.com/vkforge/renderbackend/platform"
	"github.com/vkforge/renderbackend/resources"
	"github.com/vkforge/renderbackend/schedule"
	"github.com/vkforge/renderbackend/stagealloc"
	"github.com/vkforge/renderbackend/submit"
	"github.com/vkforge/renderbackend/surface"
	"github.com/vkforge/renderbackend/vkerr"
)

// System is the assembled backend: every collaborator spec.md §6 names,
// wired together, plus the resource stores spec.md §3 names as the
// system's data model.
type System struct {
	Log    *logging.Logger
	Config config.Config
	Tune   config.Tunables

	Instance vk.Instance
	Device   *device.Device
	App      *appsystem.System

	Buffers     *resources.BufferStore
	Images      *resources.ImageStore
	Samplers    *resources.SamplerCache
	ParamSets   *resources.ParameterSetLayoutStore
	CodeModules *resources.CodeModuleStore
	Passes      *resources.PassStore
	Pipelines   *resources.PipelineStore
	Framebuffers *resources.FramebufferStore

	Descriptors *descpool.Allocator
	Staging     *stagealloc.Allocator
	Compiler    *compiler.Worker

	Frames *frame.Scheduler

	surfaces map[platform.WindowHandle]*boundSurface
}

// boundSurface pairs a surface.Manager with the appsystem.Binding that
// drives its lifecycle and its current presentation geometry.
type boundSurface struct {
	manager *surface.Manager
	win     platform.Window
}

// New selects gpuIndex from candidates, creates the logical device, and
// wires every supporting collaborator with tune's parameters. The
// caller has already created instance, enumerated candidates via
// device.Selector, and built an appsystem.System.
func New(log *logging.Logger, cfg config.Config, tune config.Tunables, instance vk.Instance, selector *device.Selector, candidates []device.Candidate, gpuIndex int, app *appsystem.System) (*System, error) {
	dev, err := selector.Select(candidates, gpuIndex, device.RequiredDeviceExtensions, nil)
	if err != nil {
		return nil, fmt.Errorf("backend: selecting device: %w", err)
	}

	stage := stagealloc.New(dev.Handle, dev.MemoryProps, tune.StagingPageBytes, tune.FramesInFlight)
	frames, err := frame.New(dev.Handle, dev.GraphicsQueue, dev.GraphicsFamily, tune.FramesInFlight, stage, log, tune.FenceWaitTimeout, tune.ImageAcquireTimeout)
	if err != nil {
		return nil, fmt.Errorf("backend: building frame scheduler: %w", err)
	}

	comp := compiler.New(log)
	comp.Start()

	s := &System{
		Log:          log,
		Config:       cfg,
		Tune:         tune,
		Instance:     instance,
		Device:       dev,
		App:          app,
		Buffers:      resources.NewBufferStore(dev.Handle, dev.MemoryProps),
		Images:       resources.NewImageStore(dev.Handle, dev.MemoryProps),
		Samplers:     resources.NewSamplerCache(dev.Handle),
		ParamSets:    resources.NewParameterSetLayoutStore(dev.Handle),
		CodeModules:  resources.NewCodeModuleStore(dev.Handle),
		Passes:       resources.NewPassStore(dev.Handle),
		Pipelines:    resources.NewPipelineStore(dev.Handle),
		Framebuffers: resources.NewFramebufferStore(dev.Handle),
		Descriptors:  descpool.New(dev.Handle, tune),
		Staging:      stage,
		Compiler:     comp,
		Frames:       frames,
		surfaces:     make(map[platform.WindowHandle]*boundSurface),
	}
	return s, nil
}

// AttachWindow registers win with the application system and builds a
// surface.Manager for it, creating the initial swap-chain sized to the
// window's current framebuffer, spec.md §4.8's create_swap_chain,
// triggered here the way the teacher's test bootstrap calls
// CreateSurface/CreateSwapchain once up front.
func (s *System) AttachWindow(win platform.Window) (*surface.Manager, error) {
	if s.App == nil {
		return nil, vkerr.ErrNoApplicationSystem
	}

	vkSurface, err := win.CreateSurface(s.Instance)
	if err != nil {
		return nil, fmt.Errorf("backend: creating surface: %w", err)
	}

	mgr := surface.New(s.Device.Physical, s.Device.Handle, vkSurface, nil)
	width, height := win.Size()
	if _, err := mgr.Create(uint32(width), uint32(height), uint32(s.Tune.FramesInFlight)+1); err != nil {
		platform.DestroySurface(s.Instance, vkSurface)
		return nil, fmt.Errorf("backend: creating swap-chain: %w", err)
	}

	handle := win.Handle()
	s.App.RegisterWindow(handle, width, height)
	win.OnFramebufferResize(func(w, h int) {
		s.App.RegisterWindow(handle, w, h)
		mgr.MarkNeedsRecreate()
	})

	bound := &boundSurface{manager: mgr, win: win}
	s.surfaces[handle] = bound

	if err := s.App.AddBinding(handle, &appsystem.Binding{
		Shutdown: func(appsystem.WindowInfo) {
			mgr.Destroy()
			platform.DestroySurface(s.Instance, vkSurface)
			delete(s.surfaces, handle)
		},
	}); err != nil {
		return nil, err
	}

	return mgr, nil
}

// recreateOutdatedSurfaces implements spec.md §4.1 step 1's "if any
// surface is outdated, wait device idle and recreate all outdated
// swap-chains", called from NextFrame before acquiring.
func (s *System) recreateOutdatedSurfaces() error {
	var anyOutdated bool
	for _, b := range s.surfaces {
		if b.manager.Current() == nil || b.manager.Current().NeedsRecreate {
			anyOutdated = true
			break
		}
	}
	if !anyOutdated {
		return nil
	}

	vk.DeviceWaitIdle(s.Device.Handle)
	for _, b := range s.surfaces {
		cur := b.manager.Current()
		if cur == nil || cur.NeedsRecreate {
			width, height := b.win.Size()
			if _, err := b.manager.Create(uint32(width), uint32(height), uint32(s.Tune.FramesInFlight)+1); err != nil {
				return fmt.Errorf("backend: recreating swap-chain: %w", err)
			}
		}
	}
	return nil
}

// NextFrame runs spec.md §4.1's next_frame: recreate any outdated
// surfaces, acquire each surface's next image, wait the in-flight
// fence, reset the command pool, drain the destruction queue, retire
// staging allocations, record this frame's commands via record, submit,
// present, and advance to the next frame slot. Returns (false, nil) on a recoverable
// acquire/fence-timeout condition the caller should simply retry next
// tick.
func (s *System) NextFrame(record func(*submit.Recorder) error) (bool, error) {
	if err := s.recreateOutdatedSurfaces(); err != nil {
		return false, err
	}

	acquired := make(map[platform.WindowHandle]uint32)
	for handle, b := range s.surfaces {
		sc := b.manager.Current()
		if sc == nil {
			continue
		}
		idx, err := s.Frames.AcquireImage(sc.Handle)
		if vkerr.IsRecoverable(err) {
			b.manager.MarkNeedsRecreate()
			return false, nil
		}
		if err != nil {
			return false, err
		}
		acquired[handle] = idx
		sc.ImageIndex = idx
	}

	if err := s.Frames.WaitAndReset(); err != nil {
		if vkerr.IsRecoverable(err) {
			return false, nil
		}
		s.Log.Fatal("backend: wait/reset in-flight fence failed: %v", err)
		return false, err
	}

	s.Frames.DrainDestructionQueue()

	slot := s.Frames.Current()
	rec := submit.New(s.Device.Handle, s.Log, slot.Primary, slot.Ops, slot.ReadBacks, slot.Destruction, s.Frames.FrameIndex())
	rec.Framebuffers = s.Framebuffers

	rec.RenderPasses = make(map[uint64]vk.RenderPass)
	s.Passes.Each(func(id resources.ID, p *resources.Pass) {
		rec.RenderPasses[id.Pack()] = p.Handle
	})
	rec.Attachments = make(map[uint64]submit.AttachmentView)
	s.Images.Each(func(id resources.ID, img *resources.Image) {
		rec.Attachments[id.Pack()] = submit.AttachmentView{
			View: img.View, Ready: true,
			Width: img.Extent.Width, Height: img.Extent.Height,
		}
	})

	for handle, idx := range acquired {
		b := s.surfaces[handle]
		sc := b.manager.Current()
		rec.SurfaceImages = append(rec.SurfaceImages, sc.Images[idx])
		rec.SurfaceOldLayouts = append(rec.SurfaceOldLayouts, vk.ImageLayoutUndefined)
		if len(rec.SurfaceImages) == 1 {
			rec.SurfaceViews = sc.Views
			rec.SurfaceWidth, rec.SurfaceHeight = sc.Extent.Width, sc.Extent.Height
		}
	}
	if record != nil {
		if err := record(rec); err != nil {
			return false, fmt.Errorf("backend: recording frame: %w", err)
		}
	}

	if err := s.Frames.Submit(); err != nil {
		return false, err
	}

	for handle, idx := range acquired {
		b := s.surfaces[handle]
		sc := b.manager.Current()
		if err := s.Frames.Present(sc.Handle, idx); err != nil {
			if vkerr.IsRecoverable(err) {
				b.manager.MarkNeedsRecreate()
				continue
			}
			return false, err
		}
	}

	s.Frames.Advance()
	return true, nil
}

// DestroyBuffer schedules buf for destruction F frames from now
// (spec.md §4.4), rather than destroying it immediately, since the GPU
// may still be reading it in an in-flight command buffer.
func (s *System) DestroyBuffer(id resources.ID) {
	s.Frames.Current().Destruction.Defer(s.Frames.FrameIndex(), func() {
		s.Buffers.Destroy(id)
	})
}

// DestroyImage schedules img for destruction F frames from now.
func (s *System) DestroyImage(id resources.ID) {
	s.Frames.Current().Destruction.Defer(s.Frames.FrameIndex(), func() {
		s.Images.Destroy(id)
	})
}

// DestroyPipeline cancels any outstanding compile request before
// scheduling the pipeline's destruction, per spec.md §4.7's
// cancellation rule: a PENDING request is removed from its queue, an
// EXECUTION one is waited on until it completes, SUCCESS/FAILURE is a
// no-op. The pipeline itself is destroyed through the deferred queue in
// every case.
func (s *System) DestroyPipeline(id resources.ID, pending *compiler.Request) {
	if pending != nil {
		s.Compiler.Cancel(pending, s.Tune.CompilerWaitSleep)
	}
	s.Frames.Current().Destruction.Defer(s.Frames.FrameIndex(), func() {
		s.Pipelines.Destroy(id)
	})
}

// Shutdown waits for the device to go idle, stops the background
// compiler, drains every frame slot's destruction queue unconditionally,
// destroys every surface, and tears down the device, mirroring the
// teacher's release()/teardown() ordering (framebuffers/pools/
// semaphores/pipelines/render-passes/views/swap-chain/surface/device).
func (s *System) Shutdown() {
	vk.DeviceWaitIdle(s.Device.Handle)
	s.Compiler.Stop()

	for _, b := range s.surfaces {
		b.manager.Destroy()
	}

	s.Frames.Destroy()
	s.Descriptors.Destroy()
	s.Samplers.Destroy()
	s.Staging.Destroy()
	s.Device.Destroy()
}
