// Package backend hosts the built-in backend implementations. The identity
// backend validates and accepts requests without computing anything; real
// compute backends plug in through the same factory seam.
package backend

import (
	"inferd/internal/core"
	"inferd/internal/model"
	"inferd/internal/status"
)

// IdentityFactory builds identity backends from model configurations.
type IdentityFactory struct{}

func (IdentityFactory) New(cfg *model.Config, version int64) (core.Backend, error) {
	if cfg == nil {
		return nil, status.InvalidArgf("identity backend requires a model configuration")
	}
	return &identity{cfg: cfg, version: version}, nil
}

type identity struct {
	cfg     *model.Config
	version int64
}

func (b *identity) Name() string          { return b.cfg.Name }
func (b *identity) Version() int64        { return b.version }
func (b *identity) Config() *model.Config { return b.cfg }

func (b *identity) GetInput(name string) (*model.InputConfig, error) {
	return b.cfg.Input(name)
}

func (b *identity) GetOutput(name string) (*model.OutputConfig, error) {
	return b.cfg.Output(name)
}

func (b *identity) MaxPriorityLevel() uint32     { return b.cfg.MaxPriority }
func (b *identity) DefaultPriorityLevel() uint32 { return b.cfg.DefaultPriority }

// Run accepts a prepared request and completes immediately. Requests that
// skipped preparation are rejected.
func (b *identity) Run(req *core.InferenceRequest) error {
	if req.NeedsNormalization() {
		return status.Internalf("request for model '%s' was not prepared before execution", b.cfg.Name)
	}
	return nil
}
