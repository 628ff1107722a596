// Package model holds model configuration, shape utilities and the backend
// capability interface consumed by the request core and server.
package model

import (
	"inferd/internal/status"
	"inferd/pkg/types"
)

// Reshape declares an alternate tensor shape the normalized shape is
// rewritten into. Present-but-empty is meaningful (reshape to scalar), so it
// is a pointer field on the tensor configs.
type Reshape struct {
	Shape []int64 `json:"shape" yaml:"shape" toml:"shape"`
}

// InputConfig declares one model input tensor.
type InputConfig struct {
	Name          string         `json:"name" yaml:"name" toml:"name"`
	DataType      types.DataType `json:"data_type" yaml:"data_type" toml:"data_type"`
	Dims          []int64        `json:"dims" yaml:"dims" toml:"dims"`
	Reshape       *Reshape       `json:"reshape,omitempty" yaml:"reshape,omitempty" toml:"reshape,omitempty"`
	IsShapeTensor bool           `json:"is_shape_tensor,omitempty" yaml:"is_shape_tensor,omitempty" toml:"is_shape_tensor,omitempty"`
}

// OutputConfig declares one model output tensor.
type OutputConfig struct {
	Name     string         `json:"name" yaml:"name" toml:"name"`
	DataType types.DataType `json:"data_type" yaml:"data_type" toml:"data_type"`
	Dims     []int64        `json:"dims" yaml:"dims" toml:"dims"`
	Reshape  *Reshape       `json:"reshape,omitempty" yaml:"reshape,omitempty" toml:"reshape,omitempty"`
}

// Config is a model's declared configuration. MaxBatchSize 0 means the model
// does not support batching and requests must use batch size 1.
type Config struct {
	Name            string         `json:"name" yaml:"name" toml:"name"`
	MaxBatchSize    int            `json:"max_batch_size" yaml:"max_batch_size" toml:"max_batch_size"`
	Inputs          []InputConfig  `json:"inputs" yaml:"inputs" toml:"inputs"`
	Outputs         []OutputConfig `json:"outputs" yaml:"outputs" toml:"outputs"`
	MaxPriority     uint32         `json:"max_priority_level,omitempty" yaml:"max_priority_level,omitempty" toml:"max_priority_level,omitempty"`
	DefaultPriority uint32         `json:"default_priority_level,omitempty" yaml:"default_priority_level,omitempty" toml:"default_priority_level,omitempty"`
}

// Input returns the declared input config by name.
func (c *Config) Input(name string) (*InputConfig, error) {
	for i := range c.Inputs {
		if c.Inputs[i].Name == name {
			return &c.Inputs[i], nil
		}
	}
	return nil, status.NotFoundf("unknown input '%s' for model '%s'", name, c.Name)
}

// Output returns the declared output config by name.
func (c *Config) Output(name string) (*OutputConfig, error) {
	for i := range c.Outputs {
		if c.Outputs[i].Name == name {
			return &c.Outputs[i], nil
		}
	}
	return nil, status.NotFoundf("unknown output '%s' for model '%s'", name, c.Name)
}

// Validate checks structural sanity of a parsed configuration.
func (c *Config) Validate() error {
	if c.Name == "" {
		return status.InvalidArgf("model configuration must specify a name")
	}
	if c.MaxBatchSize < 0 {
		return status.InvalidArgf("max_batch_size must be >= 0 for model '%s'", c.Name)
	}
	if len(c.Inputs) == 0 {
		return status.InvalidArgf("model '%s' must declare at least one input", c.Name)
	}
	seen := map[string]bool{}
	for i := range c.Inputs {
		in := &c.Inputs[i]
		if in.Name == "" {
			return status.InvalidArgf("model '%s' has an input with no name", c.Name)
		}
		if seen[in.Name] {
			return status.InvalidArgf("duplicate input '%s' for model '%s'", in.Name, c.Name)
		}
		seen[in.Name] = true
		if in.DataType == types.TypeInvalid {
			return status.InvalidArgf("input '%s' for model '%s' has no datatype", in.Name, c.Name)
		}
		if err := validateDims(in.Dims, in.Name, c.Name); err != nil {
			return err
		}
		if in.Reshape != nil {
			if err := validateReshape(in.Dims, in.Reshape.Shape, in.Name, c.Name); err != nil {
				return err
			}
		}
	}
	seen = map[string]bool{}
	for i := range c.Outputs {
		out := &c.Outputs[i]
		if out.Name == "" {
			return status.InvalidArgf("model '%s' has an output with no name", c.Name)
		}
		if seen[out.Name] {
			return status.InvalidArgf("duplicate output '%s' for model '%s'", out.Name, c.Name)
		}
		seen[out.Name] = true
		if err := validateDims(out.Dims, out.Name, c.Name); err != nil {
			return err
		}
		if out.Reshape != nil {
			if err := validateReshape(out.Dims, out.Reshape.Shape, out.Name, c.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateDims(dims []int64, tensor, model string) error {
	for _, d := range dims {
		if d < 1 && d != WildcardDim {
			return status.InvalidArgf(
				"dimension %d for tensor '%s' of model '%s' must be -1 or >= 1", d, tensor, model)
		}
	}
	return nil
}

// validateReshape checks that a declared reshape is consistent with the
// tensor's dims. Each wildcard in the reshape consumes one wildcard value
// from dims during normalization, so the reshape may not declare more
// wildcards than dims; the products of the fixed dimensions must agree or
// the reshaped tensor would hold a different element count.
func validateReshape(dims, reshape []int64, tensor, model string) error {
	if err := validateDims(reshape, tensor, model); err != nil {
		return err
	}
	dimsWild, dimsFixed := countDims(dims)
	reshapeWild, reshapeFixed := countDims(reshape)
	if reshapeWild > dimsWild {
		return status.InvalidArgf(
			"reshape for tensor '%s' of model '%s' has more variable-size dimensions than dims %s",
			tensor, model, DimsToString(dims))
	}
	if dimsFixed != reshapeFixed {
		return status.InvalidArgf(
			"reshape %s for tensor '%s' of model '%s' does not have the same element count as dims %s",
			DimsToString(reshape), tensor, model, DimsToString(dims))
	}
	return nil
}

func countDims(dims []int64) (wildcards int, fixedProduct int64) {
	fixedProduct = 1
	for _, d := range dims {
		if d == WildcardDim {
			wildcards++
		} else {
			fixedProduct *= d
		}
	}
	return wildcards, fixedProduct
}
