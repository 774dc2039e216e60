// Package soft implements a CPU [gpucore.Device].
//
// The device runs one goroutine per queue. The graphics queue is family 0
// and, unless [WithSharedTransferFamily] is given, the transfer queue is
// family 1, so images handed between them go through real release/acquire
// barriers. Every image access is validated against the family that owns
// the image at execution time; a violation fails the submission with
// [gpucore.ErrOwnership] and marks the device lost.
//
// Blend and splat kernels split the image into row bands and run them on a
// shared worker pool.
//
// Importing the package registers it with the backend registry:
//
//	import _ "github.com/gogpu/texpaint/backend/soft"
package soft
