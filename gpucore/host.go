package gpucore

import (
	"fmt"
	"sync/atomic"
)

// HostBuffer is one host-visible slot of a [HostArena].
//
// The in-flight counter is raised by a backend when a submission that
// references the buffer is queued and lowered when that submission
// completes. Owners must not write to Bytes while InFlight reports true.
type HostBuffer struct {
	label    string
	index    int
	data     []byte
	inFlight atomic.Int32
}

// NewHostBuffer allocates a standalone host buffer of n bytes.
func NewHostBuffer(label string, n int) *HostBuffer {
	return &HostBuffer{label: label, data: make([]byte, n)}
}

// Label returns the debug label of the buffer.
func (b *HostBuffer) Label() string { return b.label }

// Index returns the slot index within its arena.
func (b *HostBuffer) Index() int { return b.index }

// Bytes returns the backing memory.
func (b *HostBuffer) Bytes() []byte { return b.data }

// Len returns the buffer size in bytes.
func (b *HostBuffer) Len() int { return len(b.data) }

// InFlight reports whether submitted device work still references b.
func (b *HostBuffer) InFlight() bool { return b.inFlight.Load() > 0 }

// Retain marks b as referenced by a submission.
func (b *HostBuffer) Retain() { b.inFlight.Add(1) }

// Release drops one submission reference.
func (b *HostBuffer) Release() {
	if b.inFlight.Add(-1) < 0 {
		panic("gpucore: HostBuffer released more times than retained")
	}
}

// String implements fmt.Stringer.
func (b *HostBuffer) String() string {
	return fmt.Sprintf("HostBuffer(%s#%d, %d bytes)", b.label, b.index, len(b.data))
}

// HostArena is a fixed set of equally sized host buffers carved from one
// allocation. Nothing is allocated or freed after NewHostArena.
type HostArena struct {
	label    string
	slotSize int
	backing  []byte
	slots    []HostBuffer
}

// NewHostArena allocates count slots of slotSize bytes each.
func NewHostArena(label string, slotSize, count int) (*HostArena, error) {
	if slotSize <= 0 || count <= 0 {
		return nil, fmt.Errorf("gpucore: arena %q: invalid geometry %d x %d", label, count, slotSize)
	}
	a := &HostArena{
		label:    label,
		slotSize: slotSize,
		backing:  make([]byte, slotSize*count),
		slots:    make([]HostBuffer, count),
	}
	for i := range a.slots {
		off := i * slotSize
		a.slots[i].label = label
		a.slots[i].index = i
		// Full slice expression keeps appends from spilling into the next slot.
		a.slots[i].data = a.backing[off : off+slotSize : off+slotSize]
	}
	return a, nil
}

// Slot returns the i-th buffer.
func (a *HostArena) Slot(i int) *HostBuffer {
	return &a.slots[i]
}

// Len returns the number of slots.
func (a *HostArena) Len() int { return len(a.slots) }

// SlotSize returns the size of one slot in bytes.
func (a *HostArena) SlotSize() int { return a.slotSize }

// Bytes returns the total arena size.
func (a *HostArena) Bytes() int { return len(a.backing) }
