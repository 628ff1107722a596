// Package memory provides Reference, an ordered collection of
// heterogeneous-memory buffer segments. A Reference never copies and never
// owns the bytes it points at; the referenced memory must outlive every
// consumer of the Reference.
package memory

import (
	"inferd/internal/status"
	"inferd/pkg/types"
)

// Segment is one contiguous buffer plus its placement.
type Segment struct {
	Buffer       []byte
	MemoryType   types.MemoryType
	MemoryTypeID int64
}

// Reference is an append-only sequence of buffer segments.
type Reference struct {
	segments      []Segment
	totalByteSize uint64
}

// NewReference returns an empty reference. An empty reference reports a
// total byte size of zero and a nil buffer at index 0, which is how
// zero-length tensors are represented.
func NewReference() *Reference { return &Reference{} }

// AddBuffer appends a segment. The buffer contents are not inspected or
// validated; that is the caller's contract.
func (r *Reference) AddBuffer(buf []byte, memType types.MemoryType, memTypeID int64) {
	r.segments = append(r.segments, Segment{Buffer: buf, MemoryType: memType, MemoryTypeID: memTypeID})
	r.totalByteSize += uint64(len(buf))
}

// TotalByteSize returns the sum of all segment lengths.
func (r *Reference) TotalByteSize() uint64 { return r.totalByteSize }

// SegmentCount returns the number of appended segments.
func (r *Reference) SegmentCount() int { return len(r.segments) }

// BufferAt returns the segment at idx. Index 0 of an empty reference yields
// a nil buffer in CPU memory, supporting zero-length tensors.
func (r *Reference) BufferAt(idx int) ([]byte, types.MemoryType, int64, error) {
	if len(r.segments) == 0 && idx == 0 {
		return nil, types.MemoryCPU, 0, nil
	}
	if idx < 0 || idx >= len(r.segments) {
		return nil, types.MemoryCPU, 0, status.NotFoundf(
			"buffer index %d out of range, reference has %d segments", idx, len(r.segments))
	}
	s := r.segments[idx]
	return s.Buffer, s.MemoryType, s.MemoryTypeID, nil
}
