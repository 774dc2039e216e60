// Package wgpu implements gpucore.Device on the gogpu/wgpu HAL.
//
// Importing the package registers the "wgpu" backend, which opens a Vulkan
// device on the first discrete or integrated GPU:
//
//	import _ "github.com/gogpu/texpaint/backend/wgpu"
//
//	dev, err := backend.Open(backend.NameWGPU)
//
// # Resources
//
// Images are storage buffers of packed little-endian RGBA8 texels rather
// than textures, so the blend and splat kernels address texels directly
// and host copies are plain buffer copies. Surface maps are storage buffers
// of vec4<f32> world positions.
//
// The kernels live in shaders/blend.wgsl and shaders/splat.wgsl. They are
// compiled to SPIR-V with naga for Vulkan and handed to the HAL as WGSL on
// other backends. Their integer arithmetic matches the soft backend, so
// both produce the same bytes for the same commands.
//
// # Queues
//
// The HAL exposes a single queue. The graphics and transfer queue classes
// both submit to it and both report [Family], so the ownership barriers of
// an undo transfer become plain buffer barriers. Semaphore waits are
// satisfied by submission order; waiting on a semaphore whose signal has
// not been submitted is an error.
//
// Fences poll the queue's completed submission index. Host buffers used by
// a submission are retained until its fence completes, and readbacks are
// copied into their host buffers at that point.
package wgpu
