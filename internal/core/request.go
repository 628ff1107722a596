package core

import (
	"fmt"
	"strings"

	"inferd/internal/metrics"
	"inferd/internal/status"
	"inferd/pkg/types"
)

// normState tracks whether a request's derived tensor state is trustworthy.
type normState int

const (
	// stateStale: a structural mutation happened since the last successful
	// normalization; derived shapes and byte sizes must not be used.
	stateStale normState = iota
	// stateValidating: normalization in progress.
	stateValidating
	// stateReady: derived state is consistent with the model config.
	stateReady
)

func (s normState) String() string {
	switch s {
	case stateStale:
		return "stale"
	case stateValidating:
		return "validating"
	case stateReady:
		return "ready"
	default:
		return fmt.Sprintf("normState(%d)", int(s))
	}
}

// inputIndex addresses an Input record in the request's arena. The name maps
// hold indices, never duplicated Input values, so originals and overrides
// can alias the same record without ownership ambiguity.
type inputIndex int

// InferenceRequest is the aggregate a caller builds per inference call. It
// is owned by one goroutine at a time; nothing here locks.
type InferenceRequest struct {
	id               string
	modelName        string
	requestedVersion int64
	correlationID    uint64
	flags            uint32
	priority         uint32
	timeoutMicros    uint64
	batchSize        int64
	protocol         uint32

	backend    Backend
	onComplete func(error)

	arena            []*Input
	originalInputs   map[string]inputIndex
	overrideInputs   map[string]inputIndex
	effectiveInputs  map[string]inputIndex
	requestedOutputs map[string]*RequestedOutput

	state normState
}

// NewRequest builds an empty request for the named model. Version <= 0 asks
// for the latest ready version at dispatch time. Protocol selects the
// normalization variant and must be 1 or 2.
func NewRequest(modelName string, requestedVersion int64, protocol uint32) *InferenceRequest {
	return &InferenceRequest{
		modelName:        modelName,
		requestedVersion: requestedVersion,
		protocol:         protocol,
		originalInputs:   make(map[string]inputIndex),
		overrideInputs:   make(map[string]inputIndex),
		effectiveInputs:  make(map[string]inputIndex),
		requestedOutputs: make(map[string]*RequestedOutput),
		state:            stateStale,
	}
}

// transition is the single place the normalization state changes. Mutations
// force Stale, PrepareForInference drives Stale -> Validating -> Ready.
func (r *InferenceRequest) transition(to normState) { r.state = to }

func (r *InferenceRequest) ID() string                { return r.id }
func (r *InferenceRequest) SetID(id string)           { r.id = id }
func (r *InferenceRequest) ModelName() string         { return r.modelName }
func (r *InferenceRequest) RequestedVersion() int64   { return r.requestedVersion }
func (r *InferenceRequest) CorrelationID() uint64     { return r.correlationID }
func (r *InferenceRequest) SetCorrelationID(c uint64) { r.correlationID = c }
func (r *InferenceRequest) Flags() uint32             { return r.flags }
func (r *InferenceRequest) SetFlags(f uint32)         { r.flags = f }
func (r *InferenceRequest) Priority() uint32          { return r.priority }
func (r *InferenceRequest) BatchSize() int64          { return r.batchSize }
func (r *InferenceRequest) Protocol() uint32          { return r.protocol }

// TimeoutMicroseconds is advisory; the core transports it unchanged and the
// backend or scheduler enforces it.
func (r *InferenceRequest) TimeoutMicroseconds() uint64      { return r.timeoutMicros }
func (r *InferenceRequest) SetTimeoutMicroseconds(us uint64) { r.timeoutMicros = us }

// SetOnComplete registers a callback invoked exactly once when asynchronous
// execution of the request finishes, with the execution error if any.
func (r *InferenceRequest) SetOnComplete(fn func(error)) { r.onComplete = fn }

// OnComplete returns the registered completion callback, or nil.
func (r *InferenceRequest) OnComplete() func(error) { return r.onComplete }

// SetPriority records the client-requested priority; normalization clamps
// out-of-range values to the model default.
func (r *InferenceRequest) SetPriority(p uint32) {
	r.priority = p
	r.transition(stateStale)
}

// SetBatchSize records the protocol-v1 explicit batch size.
func (r *InferenceRequest) SetBatchSize(bs int64) {
	r.batchSize = bs
	r.transition(stateStale)
}

// Backend returns the backend bound at dispatch time, or nil.
func (r *InferenceRequest) Backend() Backend { return r.backend }

// SetBackend binds the resolved backend used for normalization and
// execution.
func (r *InferenceRequest) SetBackend(b Backend) { r.backend = b }

// ActualVersion is the resolved model version, available once a backend is
// bound.
func (r *InferenceRequest) ActualVersion() int64 {
	if r.backend == nil {
		return -1
	}
	return r.backend.Version()
}

// AddOriginalInput records a client-declared input tensor. Duplicate names
// fail INVALID_ARG.
func (r *InferenceRequest) AddOriginalInput(name string, dtype types.DataType, shape []int64, batchByteSize uint64) (*Input, error) {
	if _, ok := r.originalInputs[name]; ok {
		return nil, status.InvalidArgf("input '%s' already exists in request", name)
	}
	in := NewInput(name, dtype, shape, batchByteSize)
	r.arena = append(r.arena, in)
	r.originalInputs[name] = inputIndex(len(r.arena) - 1)
	r.transition(stateStale)
	zlog.Debug().Str("input", name).Msg("add original input")
	return in, nil
}

// MutableOriginalInput returns the named original input for mutation and
// marks the request stale.
func (r *InferenceRequest) MutableOriginalInput(name string) (*Input, error) {
	idx, ok := r.originalInputs[name]
	if !ok {
		return nil, status.InvalidArgf("input '%s' does not exist in request", name)
	}
	r.transition(stateStale)
	return r.arena[idx], nil
}

// RemoveOriginalInput removes the named original input.
func (r *InferenceRequest) RemoveOriginalInput(name string) error {
	if _, ok := r.originalInputs[name]; !ok {
		return status.InvalidArgf("input '%s' does not exist in request", name)
	}
	delete(r.originalInputs, name)
	r.transition(stateStale)
	return nil
}

// RemoveAllOriginalInputs clears every original input.
func (r *InferenceRequest) RemoveAllOriginalInputs() {
	r.originalInputs = make(map[string]inputIndex)
	r.transition(stateStale)
}

// AddOverrideInput inserts or replaces an override input by name and
// immediately updates the effective-input projection. Overrides are added by
// upstream transformation layers (e.g. ensembling) and supersede originals
// of the same name; PrepareForInference discards them.
func (r *InferenceRequest) AddOverrideInput(name string, dtype types.DataType, shape []int64, batchByteSize uint64) (*Input, error) {
	in := NewInput(name, dtype, shape, batchByteSize)
	in.setShape(append([]int64(nil), in.OriginalShape()...))

	r.arena = append(r.arena, in)
	idx := inputIndex(len(r.arena) - 1)
	r.overrideInputs[name] = idx
	r.effectiveInputs[name] = idx
	r.transition(stateStale)
	zlog.Debug().Str("input", name).Msg("add override input")
	return in, nil
}

// ImmutableInput returns the named input from the effective view (override
// wins over original).
func (r *InferenceRequest) ImmutableInput(name string) (*Input, error) {
	idx, ok := r.effectiveInputs[name]
	if !ok {
		return nil, status.InvalidArgf("input '%s' does not exist in request", name)
	}
	return r.arena[idx], nil
}

// EffectiveInputs returns a snapshot of the effective-input projection.
func (r *InferenceRequest) EffectiveInputs() map[string]*Input {
	out := make(map[string]*Input, len(r.effectiveInputs))
	for name, idx := range r.effectiveInputs {
		out[name] = r.arena[idx]
	}
	return out
}

// OriginalInputs returns a snapshot of the original inputs.
func (r *InferenceRequest) OriginalInputs() map[string]*Input {
	out := make(map[string]*Input, len(r.originalInputs))
	for name, idx := range r.originalInputs {
		out[name] = r.arena[idx]
	}
	return out
}

// AddRequestedOutput records an output the client wants returned. Duplicate
// names fail INVALID_ARG.
func (r *InferenceRequest) AddRequestedOutput(name string, classificationCount uint32) error {
	if _, ok := r.requestedOutputs[name]; ok {
		return status.InvalidArgf("output '%s' already requested", name)
	}
	r.requestedOutputs[name] = NewRequestedOutput(name, classificationCount)
	r.transition(stateStale)
	return nil
}

// MutableRequestedOutput returns the named requested output for mutation and
// marks the request stale.
func (r *InferenceRequest) MutableRequestedOutput(name string) (*RequestedOutput, error) {
	out, ok := r.requestedOutputs[name]
	if !ok {
		return nil, status.InvalidArgf("output '%s' does not exist in request", name)
	}
	r.transition(stateStale)
	return out, nil
}

// RemoveRequestedOutput removes the named requested output.
func (r *InferenceRequest) RemoveRequestedOutput(name string) error {
	if _, ok := r.requestedOutputs[name]; !ok {
		return status.InvalidArgf("output '%s' does not exist in request", name)
	}
	delete(r.requestedOutputs, name)
	r.transition(stateStale)
	return nil
}

// RemoveAllRequestedOutputs clears every requested output.
func (r *InferenceRequest) RemoveAllRequestedOutputs() {
	r.requestedOutputs = make(map[string]*RequestedOutput)
	r.transition(stateStale)
}

// RequestedOutputs returns a snapshot of the requested outputs.
func (r *InferenceRequest) RequestedOutputs() map[string]*RequestedOutput {
	out := make(map[string]*RequestedOutput, len(r.requestedOutputs))
	for name, o := range r.requestedOutputs {
		out[name] = o
	}
	return out
}

// NeedsNormalization reports whether derived state is stale.
func (r *InferenceRequest) NeedsNormalization() bool { return r.state != stateReady }

// PrepareForInference validates and normalizes the request against the bound
// backend's configuration. Overrides from any previous execution are
// discarded, the request is re-normalized from scratch if stale, and the
// effective-input projection is rebuilt from the originals. On failure the
// request stays stale and un-prepared; it is safe to correct and retry.
func (r *InferenceRequest) PrepareForInference() error {
	if r.backend == nil {
		return status.Internalf("request for model '%s' has no backend bound", r.modelName)
	}

	// Overrides belong to a previous execution.
	r.effectiveInputs = make(map[string]inputIndex)
	r.overrideInputs = make(map[string]inputIndex)

	if r.state != stateReady {
		r.transition(stateValidating)
		var err error
		switch r.protocol {
		case 1:
			err = r.normalizeV1()
		case 2:
			err = r.normalizeV2()
		default:
			err = status.InvalidArgf("unsupported protocol version %d", r.protocol)
		}
		if err != nil {
			r.transition(stateStale)
			metrics.NormalizationErrors.WithLabelValues(fmt.Sprintf("v%d", r.protocol)).Inc()
			return err
		}
		r.transition(stateReady)
	}

	// Show the actual inputs as only the originals; overrides added later
	// will land in the effective view as they arrive.
	for name, idx := range r.originalInputs {
		r.effectiveInputs[name] = idx
	}

	zlog.Debug().Str("request", r.String()).Msg("prepared")
	return nil
}

// Run dispatches the request to its bound backend.
func (r *InferenceRequest) Run() error {
	if r.backend == nil {
		return status.Internalf("request for model '%s' has no backend bound", r.modelName)
	}
	return r.backend.Run(r)
}

func (r *InferenceRequest) String() string {
	var b strings.Builder
	fmt.Fprintf(&b,
		"request id: %s, model: %s, requested version: %d, actual version: %d, flags: 0x%x, correlation id: %d, batch size: %d, priority: %d, timeout (us): %d, state: %s",
		r.id, r.modelName, r.requestedVersion, r.ActualVersion(), r.flags,
		r.correlationID, r.batchSize, r.priority, r.timeoutMicros, r.state)
	b.WriteString("\noriginal inputs:")
	for name, idx := range r.originalInputs {
		fmt.Fprintf(&b, "\n[%s] %s", name, r.arena[idx])
	}
	b.WriteString("\noverride inputs:")
	for name, idx := range r.overrideInputs {
		fmt.Fprintf(&b, "\n[%s] %s", name, r.arena[idx])
	}
	b.WriteString("\nrequested outputs:")
	for _, out := range r.requestedOutputs {
		fmt.Fprintf(&b, "\n%s", out)
	}
	return b.String()
}
