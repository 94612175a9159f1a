package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the optional wyrmc.yaml project configuration: default CLI
// flags for a compilation, so `wyrmc compile` can be invoked bare in a
// project that carries one. Grounded on the teacher's internal/manifest
// (status/environment/expected-output schema for example manifests),
// generalized to a compiler driver's own config file.
type Manifest struct {
	Entry   string            `yaml:"entry"`
	OutDir  string            `yaml:"outDir"`
	Backend string            `yaml:"backend"` // "runtime" or "raw"
	Ext     string            `yaml:"ext"`
	Env     map[string]string `yaml:"env,omitempty"`
}

// LoadManifest reads and validates a wyrmc.yaml file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("pipeline: parse manifest %s: %w", path, err)
	}
	if m.Entry == "" {
		return nil, fmt.Errorf("pipeline: manifest %s missing required 'entry'", path)
	}
	if m.Backend == "" {
		m.Backend = "runtime"
	}
	if m.Backend != "runtime" && m.Backend != "raw" {
		return nil, fmt.Errorf("pipeline: manifest %s has unknown backend %q", path, m.Backend)
	}
	if m.Ext == "" {
		if m.Backend == "raw" {
			m.Ext = "zig"
		} else {
			m.Ext = "js"
		}
	}
	if m.OutDir == "" {
		m.OutDir = "dist"
	}
	return &m, nil
}
