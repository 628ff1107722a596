package model

import (
	"os"
	"path/filepath"
	"testing"

	"inferd/internal/status"
	"inferd/pkg/types"
)

func validConfig() *Config {
	return &Config{
		Name:         "resnet50",
		MaxBatchSize: 8,
		Inputs: []InputConfig{
			{Name: "INPUT0", DataType: types.TypeFP32, Dims: []int64{3, 224, 224}},
		},
		Outputs: []OutputConfig{
			{Name: "OUTPUT0", DataType: types.TypeFP32, Dims: []int64{1000}},
		},
	}
}

func TestValidateOK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"no name", func(c *Config) { c.Name = "" }},
		{"negative batch", func(c *Config) { c.MaxBatchSize = -1 }},
		{"no inputs", func(c *Config) { c.Inputs = nil }},
		{"unnamed input", func(c *Config) { c.Inputs[0].Name = "" }},
		{"no datatype", func(c *Config) { c.Inputs[0].DataType = types.TypeInvalid }},
		{"bad dim", func(c *Config) { c.Inputs[0].Dims = []int64{0} }},
		{"bad reshape dim", func(c *Config) { c.Inputs[0].Reshape = &Reshape{Shape: []int64{-2}} }},
		{"dup input", func(c *Config) { c.Inputs = append(c.Inputs, c.Inputs[0]) }},
		{"dup output", func(c *Config) { c.Outputs = append(c.Outputs, c.Outputs[0]) }},
		{"reshape extra wildcards", func(c *Config) {
			c.Inputs[0].Dims = []int64{-1}
			c.Inputs[0].Reshape = &Reshape{Shape: []int64{-1, -1}}
		}},
		{"reshape element count", func(c *Config) {
			c.Inputs[0].Dims = []int64{2}
			c.Inputs[0].Reshape = &Reshape{Shape: []int64{3}}
		}},
		{"reshape mixed element count", func(c *Config) {
			c.Inputs[0].Dims = []int64{-1, 4}
			c.Inputs[0].Reshape = &Reshape{Shape: []int64{-1, 6}}
		}},
		{"output reshape element count", func(c *Config) {
			c.Outputs[0].Reshape = &Reshape{Shape: []int64{999}}
		}},
	}
	for _, c := range cases {
		cfg := validConfig()
		c.mut(cfg)
		if err := cfg.Validate(); !status.IsInvalidArg(err) {
			t.Fatalf("%s: expected INVALID_ARG, got %v", c.name, err)
		}
	}
}

func TestValidateReshapeAccepts(t *testing.T) {
	cases := []struct {
		name          string
		dims, reshape []int64
	}{
		{"scalar", []int64{-1}, []int64{}},
		{"paired wildcards", []int64{-1, 4, -1}, []int64{-1, -1, 4}},
		{"transpose", []int64{-1, 2}, []int64{2, -1}},
		{"fixed", []int64{2, 3}, []int64{6}},
	}
	for _, c := range cases {
		cfg := validConfig()
		cfg.Inputs[0].Dims = c.dims
		cfg.Inputs[0].Reshape = &Reshape{Shape: c.reshape}
		if err := cfg.Validate(); err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
	}
}

func TestLookup(t *testing.T) {
	cfg := validConfig()
	in, err := cfg.Input("INPUT0")
	if err != nil || in.Name != "INPUT0" {
		t.Fatalf("Input: %v %v", in, err)
	}
	if _, err := cfg.Input("MISSING"); !status.IsNotFound(err) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	out, err := cfg.Output("OUTPUT0")
	if err != nil || out.Name != "OUTPUT0" {
		t.Fatalf("Output: %v %v", out, err)
	}
	if _, err := cfg.Output("MISSING"); !status.IsNotFound(err) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadConfigYAML(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.yaml", `
name: simple
max_batch_size: 4
inputs:
  - name: INPUT0
    data_type: FP32
    dims: [-1]
    reshape:
      shape: []
outputs:
  - name: OUTPUT0
    data_type: FP32
    dims: [1]
`)
	cfg, err := LoadConfig(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != "simple" || cfg.MaxBatchSize != 4 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	in := cfg.Inputs[0]
	if in.DataType != types.TypeFP32 {
		t.Fatalf("datatype=%v", in.DataType)
	}
	if in.Reshape == nil || len(in.Reshape.Shape) != 0 {
		t.Fatalf("reshape-to-scalar not preserved: %+v", in.Reshape)
	}
}

func TestLoadConfigJSONAndTOML(t *testing.T) {
	dir := t.TempDir()
	jp := writeFile(t, dir, "config.json", `{
  "name": "j", "max_batch_size": 2,
  "inputs": [{"name": "IN", "data_type": "INT64", "dims": [4]}],
  "outputs": [{"name": "OUT", "data_type": "INT64", "dims": [4]}]
}`)
	cfg, err := LoadConfig(jp)
	if err != nil {
		t.Fatalf("load json: %v", err)
	}
	if cfg.Inputs[0].DataType != types.TypeInt64 {
		t.Fatalf("json datatype=%v", cfg.Inputs[0].DataType)
	}

	tp := writeFile(t, dir, "config.toml", `
name = "t"
max_batch_size = 0

[[inputs]]
name = "IN"
data_type = "UINT8"
dims = [16]

[[outputs]]
name = "OUT"
data_type = "UINT8"
dims = [16]
`)
	cfg, err = LoadConfig(tp)
	if err != nil {
		t.Fatalf("load toml: %v", err)
	}
	if cfg.Inputs[0].DataType != types.TypeUint8 {
		t.Fatalf("toml datatype=%v", cfg.Inputs[0].DataType)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.ini", "name=x")
	if _, err := LoadConfig(p); err == nil {
		t.Fatalf("expected unsupported-extension error")
	}
	p = writeFile(t, dir, "bad.yaml", "name: [")
	if _, err := LoadConfig(p); err == nil {
		t.Fatalf("expected parse error")
	}
	p = writeFile(t, dir, "invalid.yaml", "name: x\ninputs: []\n")
	if _, err := LoadConfig(p); !status.IsInvalidArg(err) {
		t.Fatalf("expected INVALID_ARG for empty inputs, got %v", err)
	}
}
