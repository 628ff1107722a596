package core

import (
	"testing"

	"inferd/internal/model"
	"inferd/internal/status"
	"inferd/pkg/types"
)

// mockBackend implements Backend over a raw model.Config.
type mockBackend struct {
	cfg         *model.Config
	version     int64
	maxPriority uint32
	defPriority uint32
	runFn       func(*InferenceRequest) error
}

func (b *mockBackend) Name() string          { return b.cfg.Name }
func (b *mockBackend) Version() int64        { return b.version }
func (b *mockBackend) Config() *model.Config { return b.cfg }
func (b *mockBackend) GetInput(name string) (*model.InputConfig, error) {
	return b.cfg.Input(name)
}
func (b *mockBackend) GetOutput(name string) (*model.OutputConfig, error) {
	return b.cfg.Output(name)
}
func (b *mockBackend) MaxPriorityLevel() uint32     { return b.maxPriority }
func (b *mockBackend) DefaultPriorityLevel() uint32 { return b.defPriority }
func (b *mockBackend) Run(req *InferenceRequest) error {
	if b.runFn != nil {
		return b.runFn(req)
	}
	return nil
}

func simpleBackend(maxBatch int) *mockBackend {
	return &mockBackend{
		cfg: &model.Config{
			Name:         "simple",
			MaxBatchSize: maxBatch,
			Inputs: []model.InputConfig{
				{Name: "INPUT0", DataType: types.TypeFP32, Dims: []int64{4}},
			},
			Outputs: []model.OutputConfig{
				{Name: "OUTPUT0", DataType: types.TypeFP32, Dims: []int64{4}},
			},
		},
		version:     1,
		maxPriority: 10,
		defPriority: 5,
	}
}

func TestAddOriginalInputDuplicate(t *testing.T) {
	r := NewRequest("simple", -1, 1)
	if _, err := r.AddOriginalInput("INPUT0", types.TypeFP32, []int64{4}, 0); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := r.AddOriginalInput("INPUT0", types.TypeFP32, []int64{4}, 0); !status.IsInvalidArg(err) {
		t.Fatalf("duplicate add: expected INVALID_ARG, got %v", err)
	}
}

func TestRemoveMissing(t *testing.T) {
	r := NewRequest("simple", -1, 1)
	if err := r.RemoveOriginalInput("nope"); !status.IsInvalidArg(err) {
		t.Fatalf("remove missing input: expected INVALID_ARG, got %v", err)
	}
	if err := r.RemoveRequestedOutput("nope"); !status.IsInvalidArg(err) {
		t.Fatalf("remove missing output: expected INVALID_ARG, got %v", err)
	}
	if _, err := r.MutableOriginalInput("nope"); !status.IsInvalidArg(err) {
		t.Fatalf("mutable missing input: expected INVALID_ARG, got %v", err)
	}
}

func TestMutationsMarkStale(t *testing.T) {
	r := NewRequest("simple", -1, 1)
	r.SetBatchSize(1)
	if _, err := r.AddOriginalInput("INPUT0", types.TypeFP32, []int64{4}, 0); err != nil {
		t.Fatalf("add: %v", err)
	}
	r.SetBackend(simpleBackend(8))
	if err := r.PrepareForInference(); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if r.NeedsNormalization() {
		t.Fatalf("prepared request still needs normalization")
	}

	if err := r.AddRequestedOutput("OUTPUT0", 0); err != nil {
		t.Fatalf("add output: %v", err)
	}
	if !r.NeedsNormalization() {
		t.Fatalf("mutation did not mark request stale")
	}
	if err := r.PrepareForInference(); err != nil {
		t.Fatalf("re-prepare: %v", err)
	}
	if err := r.RemoveRequestedOutput("OUTPUT0"); err != nil {
		t.Fatalf("remove output: %v", err)
	}
	if !r.NeedsNormalization() {
		t.Fatalf("remove did not mark request stale")
	}
}

func TestPrepareWithoutBackend(t *testing.T) {
	r := NewRequest("simple", -1, 1)
	if err := r.PrepareForInference(); !status.IsInternal(err) {
		t.Fatalf("expected INTERNAL without backend, got %v", err)
	}
}

func TestPrepareFailureStaysStale(t *testing.T) {
	r := NewRequest("simple", -1, 1)
	r.SetBatchSize(0) // invalid
	if _, err := r.AddOriginalInput("INPUT0", types.TypeFP32, []int64{4}, 0); err != nil {
		t.Fatalf("add: %v", err)
	}
	r.SetBackend(simpleBackend(8))
	if err := r.PrepareForInference(); !status.IsInvalidArg(err) {
		t.Fatalf("expected INVALID_ARG, got %v", err)
	}
	if !r.NeedsNormalization() {
		t.Fatalf("failed prepare must leave the request stale")
	}
	// Correct and retry.
	r.SetBatchSize(2)
	if err := r.PrepareForInference(); err != nil {
		t.Fatalf("retry after correction: %v", err)
	}
}

func TestPrepareIdempotent(t *testing.T) {
	r := NewRequest("simple", -1, 1)
	r.SetBatchSize(2)
	if _, err := r.AddOriginalInput("INPUT0", types.TypeFP32, []int64{4}, 0); err != nil {
		t.Fatalf("add: %v", err)
	}
	r.SetBackend(simpleBackend(8))
	if err := r.PrepareForInference(); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	in, err := r.ImmutableInput("INPUT0")
	if err != nil {
		t.Fatalf("input: %v", err)
	}
	shape1 := append([]int64(nil), in.Shape()...)
	bs1 := in.BatchByteSize()
	batch1 := r.BatchSize()

	if err := r.PrepareForInference(); err != nil {
		t.Fatalf("second prepare: %v", err)
	}
	in, err = r.ImmutableInput("INPUT0")
	if err != nil {
		t.Fatalf("input after re-prepare: %v", err)
	}
	if !model.CompareDimsWithWildcard(shape1, in.Shape()) || in.BatchByteSize() != bs1 || r.BatchSize() != batch1 {
		t.Fatalf("prepare not idempotent: shape %v->%v byteSize %d->%d batch %d->%d",
			shape1, in.Shape(), bs1, in.BatchByteSize(), batch1, r.BatchSize())
	}
}

func TestOverrideSupersedesOriginal(t *testing.T) {
	r := NewRequest("simple", -1, 1)
	r.SetBatchSize(1)
	if _, err := r.AddOriginalInput("INPUT0", types.TypeFP32, []int64{4}, 0); err != nil {
		t.Fatalf("add: %v", err)
	}
	r.SetBackend(simpleBackend(8))
	if err := r.PrepareForInference(); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	orig, _ := r.ImmutableInput("INPUT0")
	ov, err := r.AddOverrideInput("INPUT0", types.TypeFP32, []int64{1, 4}, 16)
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	got, err := r.ImmutableInput("INPUT0")
	if err != nil {
		t.Fatalf("input after override: %v", err)
	}
	if got != ov || got == orig {
		t.Fatalf("override must win in the effective view")
	}
	// Override's working shape mirrors its declared shape immediately.
	if !model.CompareDimsWithWildcard(ov.Shape(), []int64{1, 4}) {
		t.Fatalf("override shape=%v", ov.Shape())
	}

	// Preparing again discards overrides and restores the originals.
	if err := r.PrepareForInference(); err != nil {
		t.Fatalf("re-prepare: %v", err)
	}
	got, err = r.ImmutableInput("INPUT0")
	if err != nil {
		t.Fatalf("input after re-prepare: %v", err)
	}
	if got != orig {
		t.Fatalf("re-prepare must rebuild the effective view from originals")
	}
}

func TestRemoveAll(t *testing.T) {
	r := NewRequest("simple", -1, 1)
	if _, err := r.AddOriginalInput("INPUT0", types.TypeFP32, []int64{4}, 0); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := r.AddRequestedOutput("OUTPUT0", 0); err != nil {
		t.Fatalf("add output: %v", err)
	}
	r.RemoveAllOriginalInputs()
	r.RemoveAllRequestedOutputs()
	if len(r.OriginalInputs()) != 0 || len(r.RequestedOutputs()) != 0 {
		t.Fatalf("remove-all left entries behind")
	}
}

func TestRunRequiresBackend(t *testing.T) {
	r := NewRequest("simple", -1, 1)
	if err := r.Run(); !status.IsInternal(err) {
		t.Fatalf("expected INTERNAL, got %v", err)
	}
	ran := false
	b := simpleBackend(0)
	b.runFn = func(req *InferenceRequest) error { ran = true; return nil }
	r.SetBackend(b)
	if err := r.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !ran {
		t.Fatalf("backend Run not invoked")
	}
}

func TestRequestedOutputClassification(t *testing.T) {
	r := NewRequest("simple", -1, 1)
	if err := r.AddRequestedOutput("OUTPUT0", 3); err != nil {
		t.Fatalf("add: %v", err)
	}
	out, err := r.MutableRequestedOutput("OUTPUT0")
	if err != nil {
		t.Fatalf("mutable: %v", err)
	}
	if out.ClassificationCount() != 3 {
		t.Fatalf("class count=%d want 3", out.ClassificationCount())
	}
	if !r.NeedsNormalization() {
		t.Fatalf("MutableRequestedOutput must mark the request stale")
	}
	if err := r.AddRequestedOutput("OUTPUT0", 0); !status.IsInvalidArg(err) {
		t.Fatalf("duplicate requested output: expected INVALID_ARG, got %v", err)
	}
}
