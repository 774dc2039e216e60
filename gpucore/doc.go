// Package gpucore provides the device abstraction shared by the texpaint
// compositor and its backends.
//
// A [Device] exposes two queue classes: a rendering/compute capable
// [QueueGraphics] queue and a [QueueTransfer] queue. Backends with a
// dedicated transfer engine report a distinct queue family for it; backends
// with a single queue report the same family for both classes.
//
// # Ownership
//
// Images are owned by exactly one queue family at a time. Moving an image
// between families takes two [ImageBarrier] records with identical
// parameters: a release recorded on the source family and an acquire
// recorded on the destination family, ordered by a [Semaphore]. A barrier
// whose source and destination family are equal is a plain execution
// barrier and does not change ownership.
//
//	rel, _ := dev.NewEncoder(gpucore.QueueGraphics, "release")
//	rel.Barrier(gpucore.ImageBarrier{Image: img, SrcFamily: gfx, DstFamily: xfer})
//	...
//	acq, _ := dev.NewEncoder(gpucore.QueueTransfer, "acquire")
//	acq.Barrier(gpucore.ImageBarrier{Image: img, SrcFamily: gfx, DstFamily: xfer})
//
// # Host memory
//
// Host-visible storage is plain Go memory handed out by a [HostArena] in
// fixed-size [HostBuffer] slots. Backends mark a buffer in flight while a
// submission references it, so its owner can refuse CPU writes until the
// device is done with it.
//
// # Synchronization
//
// Submissions are ordered only by the semaphores they wait on and signal;
// a [Fence] returned from [Queue.Submit] lets the host block until the work
// completes. Device work has no timeout; the context passed to [Fence.Wait]
// bounds only the host-side wait.
package gpucore
