package registry

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"inferd/internal/model"
	"inferd/internal/status"
)

// Model repositories are laid out one directory per model, each holding a
// config file and optional numbered version subdirectories:
//
//	<repository>/<model-name>/config.yaml
//	<repository>/<model-name>/1/
//	<repository>/<model-name>/2/
//
// A model with no version subdirectories has the single version 1.

var configNames = []string{"config.yaml", "config.yml", "config.json", "config.toml"}

// Index lists the model names discoverable across the repository paths.
func (r *Registry) Index() ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, root := range r.paths {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() || seen[e.Name()] {
				continue
			}
			if _, err := findConfig(filepath.Join(root, e.Name())); err == nil {
				seen[e.Name()] = true
				out = append(out, e.Name())
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// Load discovers the named model in the repository paths, parses its
// configuration and registers one backend per version. Reloading replaces
// the existing backends.
func (r *Registry) Load(name string) error {
	if r.factory == nil {
		return status.Unavailablef("cannot load model '%s': no backend factory registered", name)
	}

	dir, err := r.findModelDir(name)
	if err != nil {
		return err
	}
	cfgPath, err := findConfig(dir)
	if err != nil {
		return err
	}
	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	if cfg.Name != name {
		return status.InvalidArgf(
			"model directory '%s' declares configuration for '%s'", name, cfg.Name)
	}

	for _, v := range modelVersions(dir) {
		b, err := r.factory.New(cfg, v)
		if err != nil {
			return err
		}
		r.Register(b)
	}
	return nil
}

func (r *Registry) findModelDir(name string) (string, error) {
	for _, root := range r.paths {
		dir := filepath.Join(root, name)
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			return dir, nil
		}
	}
	return "", status.NotFoundf("model '%s' not found in any repository path", name)
}

func findConfig(dir string) (string, error) {
	for _, n := range configNames {
		p := filepath.Join(dir, n)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, nil
		}
	}
	return "", status.NotFoundf("no model configuration file in %s", dir)
}

func modelVersions(dir string) []int64 {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return []int64{1}
	}
	var out []int64
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if v, err := strconv.ParseInt(e.Name(), 10, 64); err == nil && v > 0 {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return []int64{1}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
