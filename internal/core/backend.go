package core

import "inferd/internal/model"

// Backend is the capability set the core needs from a loaded model version.
// Concrete implementations (framework execution engines) live outside this
// module; the orchestration shim and the normalizer depend only on this
// interface.
type Backend interface {
	// Name returns the model name this backend serves.
	Name() string
	// Version returns the concrete version this backend serves.
	Version() int64
	// Config returns the model's declared configuration.
	Config() *model.Config
	// GetInput resolves a declared input tensor config, or NOT_FOUND.
	GetInput(name string) (*model.InputConfig, error)
	// GetOutput resolves a declared output tensor config, or NOT_FOUND.
	GetOutput(name string) (*model.OutputConfig, error)
	// MaxPriorityLevel returns the highest priority the model accepts.
	MaxPriorityLevel() uint32
	// DefaultPriorityLevel returns the priority used when a request does
	// not carry a usable one.
	DefaultPriorityLevel() uint32
	// Run executes a prepared request. It may complete asynchronously;
	// sequencing across requests is the backend's concern.
	Run(req *InferenceRequest) error
}
