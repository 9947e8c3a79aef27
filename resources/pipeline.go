package resources

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/vkforge/renderbackend/vkerr"
)

// PipelineSpec describes everything needed to build one graphics
// pipeline, generalized from the teacher's PipelineBuilder
// (pipeline.go), which hard-coded a fixed two-stage vertex+fragment
// triangle pipeline with no vertex input and a single fixed viewport.
// Here stage count, vertex input, and dynamic viewport/scissor are all
// caller-supplied so the same builder serves every pass in a frame
// graph, not just a demo triangle.
type PipelineSpec struct {
	Stages      []vk.PipelineShaderStageCreateInfo
	VertexInput vk.PipelineVertexInputStateCreateInfo
	Topology    vk.PrimitiveTopology
	CullMode    vk.CullModeFlagBits
	Layout      vk.PipelineLayout
	Pass        vk.RenderPass
	Subpass     uint32
	DepthTest   bool
}

// Pipeline wraps a built vk.Pipeline and the layout it was created
// with.
type Pipeline struct {
	Handle vk.Pipeline
	Layout vk.PipelineLayout
}

// PipelineStore builds and tracks graphics pipelines. Pipeline
// compilation itself is also reachable asynchronously through
// the compiler package's background worker; this store is the synchronous
// primitive both that worker and any direct caller build on.
type PipelineStore struct {
	dev vk.Device
	reg *Registry[Pipeline]
}

// NewPipelineStore builds a store bound to dev.
func NewPipelineStore(dev vk.Device) *PipelineStore {
	return &PipelineStore{dev: dev, reg: NewRegistry[Pipeline]()}
}

// Create builds one graphics pipeline from spec, using dynamic
// viewport+scissor state (set at draw time via
// vk.CmdSetViewport/vk.CmdSetScissor) rather than the teacher's
// fixed-at-creation viewport, so the same pipeline survives a swap-chain
// resize.
func (s *PipelineStore) Create(spec PipelineSpec) (ID, error) {
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: spec.Topology,
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(spec.CullMode),
		FrontFace:   vk.FrontFaceCounterClockwise,
		LineWidth:   1.0,
	}

	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
	}

	colorBlendAttachment := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) |
			vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) |
			vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachment},
	}

	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  vk.Bool32(vk.False),
		DepthWriteEnable: vk.Bool32(vk.False),
		DepthCompareOp:   vk.CompareOpLess,
	}
	if spec.DepthTest {
		depthStencil.DepthTestEnable = vk.Bool32(vk.True)
		depthStencil.DepthWriteEnable = vk.Bool32(vk.True)
	}

	infos := []vk.GraphicsPipelineCreateInfo{{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(spec.Stages)),
		PStages:             spec.Stages,
		PVertexInputState:   &spec.VertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamicState,
		Layout:              spec.Layout,
		RenderPass:          spec.Pass,
		Subpass:             spec.Subpass,
	}}

	pipelines := make([]vk.Pipeline, 1)
	ret := vk.CreateGraphicsPipelines(s.dev, vk.NullPipelineCache, 1, infos, nil, pipelines)
	if ret != vk.Success {
		return ID{}, vkerr.Result(ret)
	}

	return s.reg.Insert(Pipeline{Handle: pipelines[0], Layout: spec.Layout}), nil
}

// Get resolves id.
func (s *PipelineStore) Get(id ID) (Pipeline, bool) { return s.reg.Get(id) }

// Destroy releases the pipeline. The layout itself is owned by the
// caller (typically shared across several pipeline variants) and is not
// destroyed here.
func (s *PipelineStore) Destroy(id ID) {
	p, ok := s.reg.Get(id)
	if !ok {
		return
	}
	vk.DestroyPipeline(s.dev, p.Handle, nil)
	s.reg.Remove(id)
}
