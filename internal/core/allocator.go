package core

import "inferd/pkg/types"

// Allocation records one output buffer handed out by an Allocator. The
// memory type and id are the actual placement, which may differ from what
// the caller requested; downstream code must write into the buffer that was
// actually allocated.
type Allocation struct {
	// Buffer is the allocated memory. May be nil for device memory the
	// allocator exposes only through Token.
	Buffer []byte
	// Token is an opaque per-buffer value the allocator associates with
	// this allocation; it is passed back verbatim on release.
	Token any
	// ByteSize is the size requested at allocation time.
	ByteSize uint64
	// MemoryType and MemoryTypeID are the actual placement.
	MemoryType   types.MemoryType
	MemoryTypeID int64
}

// Allocator is the user-supplied output buffer manager captured by a
// response factory. Implementations may substitute a different memory
// type/id than requested (e.g. fall back to pinned host memory when device
// memory is unavailable) and must report the actual placement in the
// returned Allocation.
//
// A successful Allocate must return a non-nil Allocation; the response
// output treats a nil Allocation without an error as an internal failure.
//
// Allocate and Release may be called concurrently from many request
// goroutines; implementations must be safe for that.
type Allocator interface {
	Allocate(tensorName string, byteSize uint64, preferred types.MemoryType,
		preferredID int64, userp any) (*Allocation, error)
	Release(alloc *Allocation) error
}
