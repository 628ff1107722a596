package core

import (
	"fmt"

	"inferd/internal/memory"
	"inferd/internal/model"
	"inferd/internal/status"
	"inferd/pkg/types"
)

// Input is a per-tensor descriptor of request input data. OriginalShape is
// what the client declared and is never rewritten; Shape is only meaningful
// after the owning request has been normalized.
type Input struct {
	name          string
	dtype         types.DataType
	originalShape []int64
	shape         []int64
	batchByteSize uint64
	data          *memory.Reference
}

// NewInput builds an input with a client-declared shape and optional
// pre-declared batch byte size.
func NewInput(name string, dtype types.DataType, shape []int64, batchByteSize uint64) *Input {
	return &Input{
		name:          name,
		dtype:         dtype,
		originalShape: append([]int64(nil), shape...),
		batchByteSize: batchByteSize,
	}
}

func (in *Input) Name() string             { return in.name }
func (in *Input) DataType() types.DataType { return in.dtype }
func (in *Input) OriginalShape() []int64   { return in.originalShape }

// Shape is the post-normalization, post-reshape shape.
func (in *Input) Shape() []int64 { return in.shape }

func (in *Input) BatchByteSize() uint64   { return in.batchByteSize }
func (in *Input) Data() *memory.Reference { return in.data }

func (in *Input) setDataType(dt types.DataType) { in.dtype = dt }
func (in *Input) setShape(shape []int64)        { in.shape = shape }
func (in *Input) setBatchByteSize(bs uint64)    { in.batchByteSize = bs }

// AppendData appends a buffer segment to the input's data reference,
// creating the reference on first use. Zero-length appends are dropped.
func (in *Input) AppendData(buf []byte, memType types.MemoryType, memTypeID int64) {
	if in.data == nil {
		in.data = memory.NewReference()
	}
	if len(buf) > 0 {
		in.data.AddBuffer(buf, memType, memTypeID)
	}
}

// SetData attaches a complete data reference. Fails if data is already
// attached; use RemoveAllData first to replace.
func (in *Input) SetData(data *memory.Reference) error {
	if in.data != nil {
		return status.InvalidArgf("input '%s' already has data, can't overwrite", in.name)
	}
	in.data = data
	return nil
}

// RemoveAllData detaches the input's data reference.
func (in *Input) RemoveAllData() { in.data = nil }

// Content returns the idx'th data segment. A data-less input reports the
// zero-length segment at index 0.
func (in *Input) Content(idx int) ([]byte, types.MemoryType, int64, error) {
	if in.data == nil {
		if idx == 0 {
			return nil, types.MemoryCPU, 0, nil
		}
		return nil, types.MemoryCPU, 0, status.NotFoundf(
			"input '%s' has no data at index %d", in.name, idx)
	}
	return in.data.BufferAt(idx)
}

func (in *Input) String() string {
	return fmt.Sprintf("input: %s, type: %s, original shape: %s, shape: %s",
		in.name, in.dtype, model.DimsToString(in.originalShape), model.DimsToString(in.shape))
}

// RequestedOutput names an output tensor the client wants returned.
// A zero ClassificationCount means the raw tensor, no top-k labeling.
type RequestedOutput struct {
	name                string
	classificationCount uint32
}

func NewRequestedOutput(name string, classificationCount uint32) *RequestedOutput {
	return &RequestedOutput{name: name, classificationCount: classificationCount}
}

func (o *RequestedOutput) Name() string                { return o.name }
func (o *RequestedOutput) ClassificationCount() uint32 { return o.classificationCount }

func (o *RequestedOutput) String() string {
	return fmt.Sprintf("requested output: %s, class count: %d", o.name, o.classificationCount)
}
