// vulkan_texenv.go translates a gx.TevConfig specialization into a
// cached Vulkan graphics pipeline, the Gekko counterpart of
// legacy/voodoo_vulkan.go's PipelineKey/pipelineVariants cache (there
// keyed on depth/blend register bits, here on a full TEV stage list).
package renderer

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/hemisphere-go/hemisphere/internal/gx"
)

// specializationKey renders a gx.TevSpecialization into a comparable
// string. TevSpecialization.Stages is a slice (not map-key-safe on its
// own), so this is the normalization step the teacher's PipelineKey
// got for free by being an all-scalar struct.
func specializationKey(spec gx.TevSpecialization) string {
	var b strings.Builder
	for _, stage := range spec.Stages {
		fmt.Fprintf(&b, "%d:%d,%d,%d,%d,%d,%.3f,%.3f,%t,%d,%d|",
			stage.Color.Kind, stage.Color.A, stage.Color.B, stage.Color.C, stage.Color.D,
			stage.Color.Sign, stage.Color.Bias, stage.Color.Scale, stage.Color.Clamp,
			stage.Color.Compare, stage.Color.OutReg)
		fmt.Fprintf(&b, "%d:%d,%d,%d,%d,%d,%.3f,%.3f,%t,%d,%d;",
			stage.Alpha.Kind, stage.Alpha.A, stage.Alpha.B, stage.Alpha.C, stage.Alpha.D,
			stage.Alpha.Sign, stage.Alpha.Bias, stage.Alpha.Scale, stage.Alpha.Clamp,
			stage.Alpha.Compare, stage.Alpha.OutReg)
	}
	return b.String()
}

// PipelineVertex is the vertex layout fed to every TEV-specialized
// pipeline: clip-space position plus the rasterized color and texture
// coordinate a fragment shader needs to evaluate the stage chain.
type PipelineVertex struct {
	Position [3]float32
	Color    [4]float32
	TexCoord [2]float32
}

// PipelineCache lazily builds and caches one Vulkan graphics pipeline
// per distinct TEV specialization, mirroring VulkanBackend's
// pipelineVariants map and getOrCreatePipeline/createPipelineVariant
// pair, generalized from a six-field depth/blend key to an arbitrary-
// length TEV stage list. The fragment module is expected to branch on
// a push constant carrying the stage count/ops (shader authoring is
// out of scope here, same as the rest of this reference consumer); this
// type owns only the specialization-to-pipeline-handle mapping.
type PipelineCache struct {
	mu sync.Mutex

	device     vk.Device
	layout     vk.PipelineLayout
	renderPass vk.RenderPass
	vertModule vk.ShaderModule
	fragModule vk.ShaderModule
	variants   map[string]vk.Pipeline
}

// NewPipelineCache wraps an already-initialized device/render pass and
// a pair of compiled shader modules. device/renderPass/modules are
// owned by whoever set up the Vulkan context; PipelineCache only owns
// the pipelines it creates.
func NewPipelineCache(device vk.Device, layout vk.PipelineLayout, renderPass vk.RenderPass, vertModule, fragModule vk.ShaderModule) *PipelineCache {
	return &PipelineCache{
		device:     device,
		layout:     layout,
		renderPass: renderPass,
		vertModule: vertModule,
		fragModule: fragModule,
		variants:   make(map[string]vk.Pipeline),
	}
}

// Get returns the pipeline for spec, creating and caching it on first
// use. Safe for concurrent callers: lookup and creation run under the
// cache's mutex.
func (c *PipelineCache) Get(spec gx.TevSpecialization) (vk.Pipeline, error) {
	key := specializationKey(spec)

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.variants[key]; ok {
		return p, nil
	}
	p, err := c.createPipeline()
	if err != nil {
		return vk.NullHandle, err
	}
	c.variants[key] = p
	return p, nil
}

// Count reports how many distinct TEV specializations have been
// compiled into pipelines so far.
func (c *PipelineCache) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.variants)
}

// createPipeline builds one VkGraphicsPipeline. Depth/blend state is
// fixed here (vertex-shaded triangles composited into the Ebiten
// framebuffer); the structural shape otherwise follows
// createPipelineVariant exactly, generalized to three vertex
// attributes (position, color, texcoord) instead of two.
func (c *PipelineCache) createPipeline() (vk.Pipeline, error) {
	vertStage := vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  vk.ShaderStageVertexBit,
		Module: c.vertModule,
		PName:  safeString("main"),
	}
	fragStage := vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  vk.ShaderStageFragmentBit,
		Module: c.fragModule,
		PName:  safeString("main"),
	}
	shaderStages := []vk.PipelineShaderStageCreateInfo{vertStage, fragStage}

	bindingDesc := vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(PipelineVertex{})),
		InputRate: vk.VertexInputRateVertex,
	}
	attrDescs := []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32b32a32Sfloat, Offset: uint32(unsafe.Offsetof(PipelineVertex{}.Color))},
		{Location: 2, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: uint32(unsafe.Offsetof(PipelineVertex{}.TexCoord))},
	}
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{bindingDesc},
		VertexAttributeDescriptionCount: uint32(len(attrDescs)),
		PVertexAttributeDescriptions:    attrDescs,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleList,
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(vk.CullModeNone),
		FrontFace:   vk.FrontFaceCounterClockwise,
		LineWidth:   1,
	}

	multisampling := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
	}

	colorBlendAttachment := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	colorBlending := vk.PipelineColorBlendStateCreateInfo{
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

	pipelineInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(shaderStages)),
		PStages:             shaderStages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PColorBlendState:    &colorBlending,
		PDynamicState:       &dynamicState,
		Layout:              c.layout,
		RenderPass:          c.renderPass,
	}

	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(c.device, vk.PipelineCache(vk.NullHandle), 1, []vk.GraphicsPipelineCreateInfo{pipelineInfo}, nil, pipelines); res != vk.Success {
		return vk.NullHandle, fmt.Errorf("renderer: vkCreateGraphicsPipelines failed: %d", res)
	}
	return pipelines[0], nil
}

func safeString(s string) string {
	return s + "\x00"
}
