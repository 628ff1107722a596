package core

import (
	"fmt"

	"inferd/internal/metrics"
	"inferd/internal/model"
	"inferd/internal/status"
	"inferd/pkg/types"
)

// ResponseFactory produces responses bound to the allocator registered when
// the request was prepared. The capture is deliberate: later mutation of the
// originating request, or installing a different allocator, never changes
// how an already-created response manages its buffers.
type ResponseFactory struct {
	modelName    string
	modelVersion int64
	id           string
	allocator    Allocator
	userp        any
}

// NewResponseFactory captures the backend identity, response id and
// allocator contract for subsequent responses.
func NewResponseFactory(backend Backend, id string, allocator Allocator, userp any) *ResponseFactory {
	return &ResponseFactory{
		modelName:    backend.Name(),
		modelVersion: backend.Version(),
		id:           id,
		allocator:    allocator,
		userp:        userp,
	}
}

// CreateResponse instantiates a response bound to the factory's capture.
func (f *ResponseFactory) CreateResponse() (*InferenceResponse, error) {
	if f.allocator == nil {
		return nil, status.Internalf(
			"cannot create response for model '%s': no allocator registered", f.modelName)
	}
	return &InferenceResponse{
		id:           f.id,
		modelName:    f.modelName,
		modelVersion: f.modelVersion,
		allocator:    f.allocator,
		userp:        f.userp,
	}, nil
}

// InferenceResponse carries the ordered outputs a backend produces for one
// request.
type InferenceResponse struct {
	id           string
	modelName    string
	modelVersion int64
	err          error
	allocator    Allocator
	userp        any
	outputs      []*Output
}

func (r *InferenceResponse) ID() string          { return r.id }
func (r *InferenceResponse) ModelName() string   { return r.modelName }
func (r *InferenceResponse) ModelVersion() int64 { return r.modelVersion }

// Err returns the response status set by the backend, if any.
func (r *InferenceResponse) Err() error       { return r.err }
func (r *InferenceResponse) SetErr(err error) { r.err = err }

// AddOutput appends an output descriptor. No buffer is allocated until the
// backend asks for one.
func (r *InferenceResponse) AddOutput(name string, dtype types.DataType, shape []int64) *Output {
	out := &Output{
		name:      name,
		dtype:     dtype,
		shape:     append([]int64(nil), shape...),
		allocator: r.allocator,
		userp:     r.userp,
	}
	r.outputs = append(r.outputs, out)
	zlog.Debug().Str("output", out.String()).Msg("add response output")
	return out
}

// Outputs returns the outputs in the order they were added.
func (r *InferenceResponse) Outputs() []*Output { return r.outputs }

// Close releases every output buffer. Release failures during teardown are
// logged and absorbed; teardown cannot fail upward.
func (r *InferenceResponse) Close() {
	for _, out := range r.outputs {
		if err := out.ReleaseBuffer(); err != nil {
			zlog.Error().Err(err).Str("output", out.name).Msg("failed to release buffer for output")
		}
	}
}

func (r *InferenceResponse) String() string {
	return fmt.Sprintf("response id: %s, model: %s, actual version: %d, outputs: %d",
		r.id, r.modelName, r.modelVersion, len(r.outputs))
}

// Output is one response tensor and its (at most one) allocated buffer.
type Output struct {
	name      string
	dtype     types.DataType
	shape     []int64
	allocator Allocator
	userp     any

	allocation *Allocation
}

func (o *Output) Name() string             { return o.name }
func (o *Output) DataType() types.DataType { return o.dtype }
func (o *Output) Shape() []int64           { return o.shape }

// Buffer returns the current allocation state. All zero values when nothing
// is allocated.
func (o *Output) Buffer() ([]byte, uint64, types.MemoryType, int64) {
	if o.allocation == nil {
		return nil, 0, types.MemoryCPU, 0
	}
	a := o.allocation
	return a.Buffer, a.ByteSize, a.MemoryType, a.MemoryTypeID
}

// AllocateBuffer obtains a buffer of byteSize for this output, preferring
// the given memory type/id. The allocator may substitute a different actual
// placement, which is recorded and returned. Buffers are not resizable or
// replaceable in place: a second call fails ALREADY_EXISTS.
func (o *Output) AllocateBuffer(byteSize uint64, preferred types.MemoryType, preferredID int64) ([]byte, types.MemoryType, int64, error) {
	if o.allocation != nil {
		return nil, types.MemoryCPU, 0, status.AlreadyExistsf(
			"allocated buffer for output '%s' already exists", o.name)
	}

	alloc, err := o.allocator.Allocate(o.name, byteSize, preferred, preferredID, o.userp)
	if err != nil {
		return nil, types.MemoryCPU, 0, status.Wrap(status.CodeInternal, err,
			"failed to allocate buffer for output '%s'", o.name)
	}
	if alloc == nil {
		return nil, types.MemoryCPU, 0, status.Internalf(
			"allocator returned no allocation for output '%s'", o.name)
	}
	alloc.ByteSize = byteSize
	o.allocation = alloc

	metrics.OutputBytesAllocated.WithLabelValues(alloc.MemoryType.String()).Add(float64(byteSize))

	return alloc.Buffer, alloc.MemoryType, alloc.MemoryTypeID, nil
}

// ReleaseBuffer returns the output's buffer to the allocator. The recorded
// allocation state is cleared unconditionally; only the returned error
// carries a callback failure. Releasing with nothing allocated is a no-op.
func (o *Output) ReleaseBuffer() error {
	var err error
	if o.allocation != nil {
		err = o.allocator.Release(o.allocation)
	}
	o.allocation = nil
	if err != nil {
		return status.Wrap(status.CodeInternal, err,
			"failed to release buffer for output '%s'", o.name)
	}
	return nil
}

func (o *Output) String() string {
	return fmt.Sprintf("output: %s, type: %s, shape: %s", o.name, o.dtype, model.DimsToString(o.shape))
}
