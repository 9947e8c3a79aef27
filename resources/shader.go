package resources

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/vkforge/renderbackend/vkerr"
)

// CodeModule wraps a compiled vk.ShaderModule built from opaque SPIR-V
// bytecode (spec.md §1 non-goal: no shader source compilation, SPIR-V
// bytes in, module out), generalized from the teacher's
// CoreShader.LoadShaderModule, which read a file from disk and aborted
// the process on failure instead of returning an error.
type CodeModule struct {
	Handle vk.ShaderModule
	Stage  vk.ShaderStageFlagBits
}

// CodeModuleStore creates and tracks CodeModule resources.
type CodeModuleStore struct {
	dev vk.Device
	reg *Registry[CodeModule]
}

// NewCodeModuleStore builds a store bound to dev.
func NewCodeModuleStore(dev vk.Device) *CodeModuleStore {
	return &CodeModuleStore{dev: dev, reg: NewRegistry[CodeModule]()}
}

// Create compiles spirv (a byte slice whose length must be a multiple of
// 4, per the Vulkan spec) into a shader module for stage.
func (s *CodeModuleStore) Create(spirv []byte, stage vk.ShaderStageFlagBits) (ID, error) {
	words := sliceUint32(spirv)

	var handle vk.ShaderModule
	ret := vk.CreateShaderModule(s.dev, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(spirv)),
		PCode:    words,
	}, nil, &handle)
	if ret != vk.Success {
		return ID{}, vkerr.Result(ret)
	}

	return s.reg.Insert(CodeModule{Handle: handle, Stage: stage}), nil
}

// Get resolves id.
func (s *CodeModuleStore) Get(id ID) (CodeModule, bool) { return s.reg.Get(id) }

// Destroy releases the module. Shader modules may be destroyed
// immediately after the pipelines referencing them are built (the
// Vulkan spec allows this), so this bypasses the deferred destruction
// queue unlike Buffer/Image.
func (s *CodeModuleStore) Destroy(id ID) {
	m, ok := s.reg.Get(id)
	if !ok {
		return
	}
	vk.DestroyShaderModule(s.dev, m.Handle, nil)
	s.reg.Remove(id)
}

// sliceUint32 reinterprets a byte slice as the []uint32 Vulkan's SPIR-V
// code pointer expects, mirroring the teacher's sliceUint32 (util.go).
func sliceUint32(data []byte) []uint32 {
	const u32 = 4
	out := make([]uint32, len(data)/u32)
	for i := range out {
		out[i] = uint32(data[i*u32]) |
			uint32(data[i*u32+1])<<8 |
			uint32(data[i*u32+2])<<16 |
			uint32(data[i*u32+3])<<24
	}
	return out
}
