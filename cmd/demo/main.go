// Command demo drives a minimal render loop against a GLFW window,
// mirroring the teacher's test/render_test.go smoke test: create a
// window, initialize Vulkan, select a device, attach the window's
// surface, then loop next_frame until the window closes.
package main

import (
	"log"
	"os"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"

	"github.com/vkforge/renderbackend/appsystem"
	"github.com/vkforge/renderbackend/backend"
	"github.com/vkforge/renderbackend/config"
	"github.com/vkforge/renderbackend/device"
	"github.com/vkforge/renderbackend/logging"
	"github.com/vkforge/renderbackend/platform"
	"github.com/vkforge/renderbackend/submit"
)

const (
	width  = 1280
	height = 720
)

func main() {
	runtime.LockOSThread()

	logger := logging.New(os.Stderr)

	if err := glfw.Init(); err != nil {
		log.Fatalf("glfw.Init: %v", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.Visible, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	if err := platform.RegisterLibrary(); err != nil {
		log.Fatalf("platform.RegisterLibrary: %v", err)
	}

	glfwWin, err := glfw.CreateWindow(width, height, "render-backend demo", nil, nil)
	if err != nil {
		log.Fatalf("glfw.CreateWindow: %v", err)
	}
	win := platform.NewGLFWWindow(glfwWin)

	cfg := config.Config{ApplicationInfoName: "render-backend demo", VersionMajor: 1}
	tune, err := config.Load("renderbackend.toml")
	if err != nil {
		log.Fatalf("config.Load: %v", err)
	}

	requiredExt := platform.RequiredInstanceExtensions(win)
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   safeCString(cfg.ApplicationInfoName),
		ApplicationVersion: vk.MakeVersion(cfg.VersionMajor, cfg.VersionMinor, cfg.VersionPatch),
		PEngineName:        safeCString("renderbackend"),
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
	}

	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(requiredExt)),
		PpEnabledExtensionNames: requiredExt,
	}, nil, &instance)
	if ret != vk.Success {
		log.Fatalf("vk.CreateInstance: %d", ret)
	}
	vk.InitInstance(instance)

	selector := device.NewSelector(instance, logger)
	candidates, err := selector.EnumerateCandidates()
	if err != nil {
		log.Fatalf("device.EnumerateCandidates: %v", err)
	}

	bestIndex := 0
	for i, c := range candidates {
		if c.SupportsDevice {
			bestIndex = i
			break
		}
	}

	app := appsystem.New()
	sys, err := backend.New(logger, cfg, tune, instance, selector, candidates, bestIndex, app)
	if err != nil {
		log.Fatalf("backend.New: %v", err)
	}
	defer sys.Shutdown()

	if _, err := sys.AttachWindow(win); err != nil {
		log.Fatalf("backend.AttachWindow: %v", err)
	}

	for !glfwWin.ShouldClose() {
		glfw.PollEvents()
		if _, err := sys.NextFrame(recordTriangle); err != nil {
			log.Printf("NextFrame: %v", err)
			break
		}
	}
}

// recordTriangle is a placeholder recording callback: a real
// application supplies its own scene-graph walk here. It demonstrates
// the shape a caller's callback takes, begin/end bracketed by
// backend.System.NextFrame.
func recordTriangle(rec *submit.Recorder) error {
	return rec.RecordAndFinalize(nil, nil)
}

func safeCString(s string) string { return s + "\x00" }
