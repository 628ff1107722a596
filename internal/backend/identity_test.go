package backend

import (
	"testing"

	"inferd/internal/core"
	"inferd/internal/model"
	"inferd/internal/status"
	"inferd/pkg/types"
)

func identityConfig() *model.Config {
	return &model.Config{
		Name:         "id",
		MaxBatchSize: 8,
		Inputs:       []model.InputConfig{{Name: "IN", DataType: types.TypeFP32, Dims: []int64{4}}},
		Outputs:      []model.OutputConfig{{Name: "OUT", DataType: types.TypeFP32, Dims: []int64{4}}},
	}
}

func TestFactoryNew(t *testing.T) {
	b, err := IdentityFactory{}.New(identityConfig(), 3)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if b.Name() != "id" || b.Version() != 3 {
		t.Fatalf("identity: %s/%d", b.Name(), b.Version())
	}
	if _, err := b.GetInput("IN"); err != nil {
		t.Fatalf("input lookup: %v", err)
	}
	if _, err := b.GetOutput("nope"); !status.IsNotFound(err) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	if _, err := (IdentityFactory{}).New(nil, 1); !status.IsInvalidArg(err) {
		t.Fatalf("expected INVALID_ARG for nil config, got %v", err)
	}
}

func TestRunRequiresPreparedRequest(t *testing.T) {
	b, err := IdentityFactory{}.New(identityConfig(), 1)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	req := core.NewRequest("id", 1, 1)
	req.SetBatchSize(1)
	if _, err := req.AddOriginalInput("IN", types.TypeFP32, []int64{4}, 0); err != nil {
		t.Fatalf("add input: %v", err)
	}
	req.SetBackend(b)

	if err := b.Run(req); !status.IsInternal(err) {
		t.Fatalf("expected INTERNAL for unprepared request, got %v", err)
	}
	if err := req.PrepareForInference(); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := b.Run(req); err != nil {
		t.Fatalf("run: %v", err)
	}
}
