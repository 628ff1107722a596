// Package alloc provides the default in-process allocator backing response
// output buffers. Plain CPU requests are served from the Go heap without
// bound; pinned requests draw from a fixed-size accounting pool and fall
// back to plain CPU when the pool is exhausted.
package alloc

import (
	"sync"

	"inferd/internal/core"
	"inferd/internal/status"
	"inferd/pkg/types"
)

// Pool is a memory-type-aware allocator. The pinned pool is accounting only;
// buffers always come from the Go heap, the cap models the budget a real
// pinned region would impose.
type Pool struct {
	mu          sync.Mutex
	pinnedLimit uint64
	pinnedUsed  uint64
}

// NewPool builds a Pool with the given pinned-memory budget in bytes. A zero
// budget disables pinned placement entirely; pinned requests then fall back
// to plain CPU.
func NewPool(pinnedPoolByteSize uint64) *Pool {
	return &Pool{pinnedLimit: pinnedPoolByteSize}
}

// Allocate serves a buffer of byteSize. GPU placement is not available in
// this process; GPU requests are satisfied on plain CPU with the actual
// placement reported back. Zero-size requests succeed with a nil buffer.
func (p *Pool) Allocate(tensorName string, byteSize uint64, preferred types.MemoryType, preferredID int64, userp any) (*core.Allocation, error) {
	actual := preferred
	actualID := preferredID

	switch preferred {
	case types.MemoryCPUPinned:
		if !p.reservePinned(byteSize) {
			actual = types.MemoryCPU
			actualID = 0
		}
	case types.MemoryGPU:
		actual = types.MemoryCPU
		actualID = 0
	case types.MemoryCPU:
	default:
		return nil, status.InvalidArgf("unknown memory type %d for tensor '%s'", preferred, tensorName)
	}

	var buf []byte
	if byteSize > 0 {
		buf = make([]byte, byteSize)
	}
	return &core.Allocation{
		Buffer:       buf,
		ByteSize:     byteSize,
		MemoryType:   actual,
		MemoryTypeID: actualID,
	}, nil
}

// Release returns a buffer. Pinned allocations credit the pool; heap buffers
// are left to the garbage collector.
func (p *Pool) Release(a *core.Allocation) error {
	if a == nil {
		return nil
	}
	if a.MemoryType == types.MemoryCPUPinned {
		p.mu.Lock()
		if a.ByteSize > p.pinnedUsed {
			p.pinnedUsed = 0
		} else {
			p.pinnedUsed -= a.ByteSize
		}
		p.mu.Unlock()
	}
	return nil
}

// PinnedBytesInUse reports the currently reserved pinned budget.
func (p *Pool) PinnedBytesInUse() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pinnedUsed
}

func (p *Pool) reservePinned(n uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pinnedUsed+n > p.pinnedLimit {
		return false
	}
	p.pinnedUsed += n
	return true
}
