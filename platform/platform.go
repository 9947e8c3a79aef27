// Package platform is the thin collaborator boundary spec.md §6 calls
// out as "platform: register/unregister native library usage, obtain
// instance-proc-address, enumerate required instance extensions,
// create/destroy a surface handle for a given window handle". It is
// explicitly out of scope to reimplement windowing (spec.md §1); this
// package only adapts github.com/go-gl/glfw/v3.3/glfw, the windowing
// library the teacher and the rest of the retrieved pack converge on,
// to the narrow interface the backend actually needs.
package platform

import (
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// WindowHandle is an opaque identifier the appsystem collaborator uses
// to look up window info (spec.md §6 "query window info by handle").
type WindowHandle uintptr

// Window is the narrow surface this backend needs from a native window.
// A *glfw.Window implements it via the GLFW adapter below; any other
// windowing toolkit can satisfy it too without this module knowing.
type Window interface {
	Handle() WindowHandle
	Size() (width, height int)
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	// OnFramebufferResize registers a callback invoked whenever the
	// window's framebuffer size changes; the surface manager uses this
	// to set a surface's needs_recreation flag (spec.md §4.1 step 1).
	OnFramebufferResize(cb func(width, height int))
}

// glfwWindow adapts *glfw.Window to Window.
type glfwWindow struct {
	win *glfw.Window
}

// NewGLFWWindow wraps an already-created *glfw.Window. Window creation
// itself (glfw.Init, glfw.CreateWindow, window hints) is the caller's
// responsibility, exactly as in the teacher's test/render_test.go,
// which creates the window before ever touching dieselvk.
func NewGLFWWindow(win *glfw.Window) Window {
	return &glfwWindow{win: win}
}

func (w *glfwWindow) Handle() WindowHandle {
	return WindowHandle(uintptr(unsafe.Pointer(w.win)))
}

func (w *glfwWindow) Size() (int, int) {
	return w.win.GetSize()
}

func (w *glfwWindow) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surfPtr, err := w.win.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, err
	}
	return vk.SurfaceFromPointer(surfPtr), nil
}

func (w *glfwWindow) OnFramebufferResize(cb func(width, height int)) {
	w.win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		cb(width, height)
	})
}

// RegisterLibrary performs the one-time native library registration
// GLFW/Vulkan need before any instance-level call succeeds. It mirrors
// the teacher's test bootstrap (vk.SetGetInstanceProcAddr +
// vk.Init()), wrapped so backend.System's own Init doesn't depend on
// the windowing library's package-level globals directly.
func RegisterLibrary() error {
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	return vk.Init()
}

// UnregisterLibrary is a no-op placeholder for symmetry with
// RegisterLibrary; the underlying vulkan-go binding has no teardown call,
// but keeping the pair makes the backend's shutdown sequence obvious at
// the call site.
func UnregisterLibrary() {}

// RequiredInstanceExtensions enumerates the instance extensions GLFW
// needs to create a surface for win (spec.md §6 "enumerate required
// instance extensions").
func RequiredInstanceExtensions(win Window) []string {
	gw, ok := win.(*glfwWindow)
	if !ok {
		return nil
	}
	return gw.win.GetRequiredInstanceExtensions()
}

// DestroySurface destroys a previously created surface handle.
func DestroySurface(instance vk.Instance, surface vk.Surface) {
	if surface != vk.NullSurface {
		vk.DestroySurface(instance, surface, nil)
	}
}
