package resources

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/vkforge/renderbackend/vkerr"
)

// ParameterBinding is one binding slot within a parameter-set layout,
// spec.md §2's "parameter-set layout" is this engine's name for a
// descriptor set layout kept separate from any particular buffer, unlike
// the teacher's CoreBuffer which baked one binding into the buffer type
// itself (buffers.go's ubo_layout).
type ParameterBinding struct {
	Location    uint32
	Type        vk.DescriptorType
	Count       uint32
	StageFlags  vk.ShaderStageFlagBits
}

// ParameterSetLayout wraps a vk.DescriptorSetLayout plus the binding
// list it was built from, so descpool can size pools against it.
type ParameterSetLayout struct {
	Handle   vk.DescriptorSetLayout
	Bindings []ParameterBinding
}

// ParameterSetLayoutStore creates and tracks ParameterSetLayout
// resources.
type ParameterSetLayoutStore struct {
	dev vk.Device
	reg *Registry[*ParameterSetLayout]
}

// NewParameterSetLayoutStore builds a store bound to dev.
func NewParameterSetLayoutStore(dev vk.Device) *ParameterSetLayoutStore {
	return &ParameterSetLayoutStore{dev: dev, reg: NewRegistry[*ParameterSetLayout]()}
}

// Create builds a descriptor set layout from bindings.
func (s *ParameterSetLayoutStore) Create(bindings []ParameterBinding) (ID, error) {
	vkBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		vkBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Location,
			DescriptorType:  b.Type,
			DescriptorCount: b.Count,
			StageFlags:      vk.ShaderStageFlags(b.StageFlags),
		}
	}

	var handle vk.DescriptorSetLayout
	ret := vk.CreateDescriptorSetLayout(s.dev, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(vkBindings)),
		PBindings:    vkBindings,
	}, nil, &handle)
	if ret != vk.Success {
		return ID{}, vkerr.Result(ret)
	}

	return s.reg.Insert(&ParameterSetLayout{Handle: handle, Bindings: bindings}), nil
}

// Get resolves id.
func (s *ParameterSetLayoutStore) Get(id ID) (*ParameterSetLayout, bool) { return s.reg.Get(id) }

// Destroy releases the layout.
func (s *ParameterSetLayoutStore) Destroy(id ID) {
	l, ok := s.reg.Get(id)
	if !ok {
		return
	}
	vk.DestroyDescriptorSetLayout(s.dev, l.Handle, nil)
	s.reg.Remove(id)
}
