package wgpu

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/texpaint/gpucore"
)

//go:embed shaders/blend.wgsl
var blendShaderWGSL string

//go:embed shaders/splat.wgsl
var splatShaderWGSL string

// Kernel entry points.
const (
	entryBlendOver  = "blend_over"
	entryBlendErase = "blend_erase"
	entrySplat      = "splat_main"
)

// workgroupSize matches @workgroup_size in both shaders.
const workgroupSize = 8

// Uniform block sizes. Must match Params in blend.wgsl and Splat in
// splat.wgsl.
const (
	blendUniformSize = 16
	splatUniformSize = 144
)

// kernels holds the shader modules and layouts shared by every pipeline of
// a device.
type kernels struct {
	blendModule hal.ShaderModule
	splatModule hal.ShaderModule

	blendGroupLayout hal.BindGroupLayout
	splatGroupLayout hal.BindGroupLayout
	blendLayout      hal.PipelineLayout
	splatLayout      hal.PipelineLayout
}

func newKernels(dev hal.Device, variant gputypes.Backend) (*kernels, error) {
	k := &kernels{}
	var err error
	if k.blendModule, err = createModule(dev, variant, "texpaint_blend", blendShaderWGSL); err != nil {
		k.destroy(dev)
		return nil, err
	}
	if k.splatModule, err = createModule(dev, variant, "texpaint_splat", splatShaderWGSL); err != nil {
		k.destroy(dev)
		return nil, err
	}

	k.blendGroupLayout, err = dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "texpaint_blend_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			uniformEntry(0, blendUniformSize),
			storageEntry(1, gputypes.BufferBindingTypeStorage),
			storageEntry(2, gputypes.BufferBindingTypeReadOnlyStorage),
		},
	})
	if err != nil {
		k.destroy(dev)
		return nil, fmt.Errorf("wgpu: blend bind group layout: %w", err)
	}
	k.splatGroupLayout, err = dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "texpaint_splat_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			uniformEntry(0, splatUniformSize),
			storageEntry(1, gputypes.BufferBindingTypeStorage),
			storageEntry(2, gputypes.BufferBindingTypeReadOnlyStorage),
			storageEntry(3, gputypes.BufferBindingTypeReadOnlyStorage),
		},
	})
	if err != nil {
		k.destroy(dev)
		return nil, fmt.Errorf("wgpu: splat bind group layout: %w", err)
	}

	k.blendLayout, err = dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "texpaint_blend_pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{k.blendGroupLayout},
	})
	if err != nil {
		k.destroy(dev)
		return nil, fmt.Errorf("wgpu: blend pipeline layout: %w", err)
	}
	k.splatLayout, err = dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "texpaint_splat_pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{k.splatGroupLayout},
	})
	if err != nil {
		k.destroy(dev)
		return nil, fmt.Errorf("wgpu: splat pipeline layout: %w", err)
	}
	return k, nil
}

func uniformEntry(binding uint32, size uint64) gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: gputypes.ShaderStageCompute,
		Buffer: &gputypes.BufferBindingLayout{
			Type:           gputypes.BufferBindingTypeUniform,
			MinBindingSize: size,
		},
	}
}

func storageEntry(binding uint32, typ gputypes.BufferBindingType) gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: gputypes.ShaderStageCompute,
		Buffer:     &gputypes.BufferBindingLayout{Type: typ},
	}
}

// createModule builds a shader module. Vulkan takes SPIR-V compiled by
// naga; other HAL backends translate WGSL themselves.
func createModule(dev hal.Device, variant gputypes.Backend, label, wgsl string) (hal.ShaderModule, error) {
	src := hal.ShaderSource{WGSL: wgsl}
	if variant == gputypes.BackendVulkan {
		words, err := compileSPIRV(wgsl)
		if err != nil {
			return nil, fmt.Errorf("wgpu: compile %s: %w", label, err)
		}
		src = hal.ShaderSource{SPIRV: words}
	}
	m, err := dev.CreateShaderModule(&hal.ShaderModuleDescriptor{Label: label, Source: src})
	if err != nil {
		return nil, fmt.Errorf("wgpu: shader module %s: %w", label, err)
	}
	return m, nil
}

// compileSPIRV compiles WGSL with naga and returns the SPIR-V words.
func compileSPIRV(wgsl string) ([]uint32, error) {
	spirv, err := naga.Compile(wgsl)
	if err != nil {
		return nil, err
	}
	if len(spirv)%4 != 0 {
		return nil, fmt.Errorf("spir-v length %d is not a multiple of 4", len(spirv))
	}
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirv[i*4:])
	}
	return words, nil
}

// pipeline creates the compute pipeline for kind.
func (k *kernels) pipeline(dev hal.Device, kind gpucore.PipelineKind) (hal.ComputePipeline, error) {
	desc := &hal.ComputePipelineDescriptor{Label: "texpaint_" + kind.String()}
	switch kind {
	case gpucore.PipelineBlendOver:
		desc.Layout = k.blendLayout
		desc.Compute = hal.ComputeState{Module: k.blendModule, EntryPoint: entryBlendOver}
	case gpucore.PipelineBlendErase:
		desc.Layout = k.blendLayout
		desc.Compute = hal.ComputeState{Module: k.blendModule, EntryPoint: entryBlendErase}
	case gpucore.PipelineSplat:
		desc.Layout = k.splatLayout
		desc.Compute = hal.ComputeState{Module: k.splatModule, EntryPoint: entrySplat}
	default:
		return nil, fmt.Errorf("wgpu: %w: %v", gpucore.ErrPipelineKind, kind)
	}
	hp, err := dev.CreateComputePipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("wgpu: create %v pipeline: %w", kind, err)
	}
	return hp, nil
}

func (k *kernels) destroy(dev hal.Device) {
	if k.blendLayout != nil {
		dev.DestroyPipelineLayout(k.blendLayout)
		k.blendLayout = nil
	}
	if k.splatLayout != nil {
		dev.DestroyPipelineLayout(k.splatLayout)
		k.splatLayout = nil
	}
	if k.blendGroupLayout != nil {
		dev.DestroyBindGroupLayout(k.blendGroupLayout)
		k.blendGroupLayout = nil
	}
	if k.splatGroupLayout != nil {
		dev.DestroyBindGroupLayout(k.splatGroupLayout)
		k.splatGroupLayout = nil
	}
	if k.blendModule != nil {
		dev.DestroyShaderModule(k.blendModule)
		k.blendModule = nil
	}
	if k.splatModule != nil {
		dev.DestroyShaderModule(k.splatModule)
		k.splatModule = nil
	}
}

// blendUniform encodes the blend Params block.
func blendUniform(w, h int, opacity byte) []byte {
	buf := make([]byte, blendUniformSize)
	writeUint32(buf, 0, uint32(w))
	writeUint32(buf, 4, uint32(h))
	writeUint32(buf, 8, uint32(opacity))
	return buf
}

// splatUniform encodes the Splat block for a size x size destination.
func splatUniform(p *gpucore.SplatParams, size int) []byte {
	buf := make([]byte, splatUniformSize)
	for i, v := range p.ViewProj {
		writeFloat32(buf, i*4, v)
	}
	writeFloat32(buf, 64, p.Eye[0])
	writeFloat32(buf, 68, p.Eye[1])
	writeFloat32(buf, 72, p.Eye[2])
	writeFloat32(buf, 76, p.Radius)
	for i, v := range p.Color {
		writeFloat32(buf, 80+i*4, v)
	}
	writeFloat32(buf, 96, p.Viewport[0])
	writeFloat32(buf, 100, p.Viewport[1])
	writeFloat32(buf, 104, p.Center[0])
	writeFloat32(buf, 108, p.Center[1])
	writeFloat32(buf, 112, p.Opacity)
	writeFloat32(buf, 116, p.Falloff)
	writeFloat32(buf, 120, p.Bias)
	writeUint32(buf, 124, uint32(size))
	writeUint32(buf, 128, uint32(int32(p.Tile.OriginX)))
	writeUint32(buf, 132, uint32(int32(p.Tile.OriginY)))
	writeUint32(buf, 136, uint32(p.Tile.Size))
	if p.Tile.Depth != nil {
		writeUint32(buf, 140, 1)
	}
	return buf
}

// tileDepth encodes the visibility tile. Storage bindings cannot be empty,
// so a missing tile becomes a single unused float.
func tileDepth(t *gpucore.VisibilityTile) []byte {
	if len(t.Depth) == 0 {
		return make([]byte, 4)
	}
	return float32Bytes(t.Depth)
}

func float32Bytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		writeFloat32(buf, i*4, f)
	}
	return buf
}

func writeUint32(buf []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(buf[off:], v)
}

func writeFloat32(buf []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
}
