// Package backend selects the device that runs the texpaint compositor.
//
// Backends register a [Factory] from an init() function and are opened by
// name or by priority:
//
//	import (
//		"github.com/gogpu/texpaint/backend"
//		_ "github.com/gogpu/texpaint/backend/soft"
//		_ "github.com/gogpu/texpaint/backend/wgpu"
//	)
//
//	dev, err := backend.Default() // wgpu if a GPU opens, soft otherwise
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close()
//
// # Available Backends
//
//   - "wgpu": compute kernels on github.com/gogpu/wgpu/hal (Vulkan)
//   - "soft": CPU device with a dedicated transfer queue family
package backend
