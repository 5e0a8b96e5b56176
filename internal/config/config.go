package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/sigraph/internal/graph"
)

// ProjectConfig holds project-level settings loaded from sigraph.yml.
type ProjectConfig struct {
	// StoreBackend selects persistence: "badger" or "memory".
	StoreBackend string `yaml:"storeBackend,omitempty"`
	// StorePath is the badger database directory.
	StorePath string `yaml:"storePath,omitempty"`

	Languages   []string `yaml:"languages,omitempty"`
	ExcludeDirs []string `yaml:"excludeDirs,omitempty"`

	// Sensitivity overrides the per-edge-type signature sensitivity used by
	// the red/green tracker, keyed by edge type.
	Sensitivity map[string]bool `yaml:"sensitivity,omitempty"`

	// CycleEdgeTypes are the edge types checked for cycles at commit time.
	CycleEdgeTypes []string `yaml:"cycleEdgeTypes,omitempty"`
	// BlockingCycles makes cycle findings reject commits.
	BlockingCycles bool `yaml:"blockingCycles,omitempty"`
}

// Load attempts to read sigraph.yml or sigraph.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"sigraph.yml", "sigraph.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		if err := cfg.validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return &cfg, nil
	}
	return &ProjectConfig{}, nil
}

func (c *ProjectConfig) validate() error {
	switch c.StoreBackend {
	case "", "memory", "badger":
	default:
		return fmt.Errorf("unknown storeBackend %q", c.StoreBackend)
	}
	for t := range c.Sensitivity {
		if !graph.EdgeType(t).Valid() {
			return fmt.Errorf("sensitivity: unknown edge type %q", t)
		}
	}
	for _, t := range c.CycleEdgeTypes {
		if !graph.EdgeType(t).Valid() {
			return fmt.Errorf("cycleEdgeTypes: unknown edge type %q", t)
		}
	}
	return nil
}

// Tracker builds the red/green tracker described by the config.
func (c *ProjectConfig) Tracker() *graph.Tracker {
	if len(c.Sensitivity) == 0 {
		return graph.NewTracker()
	}
	overrides := make(map[graph.EdgeType]bool, len(c.Sensitivity))
	for t, sensitive := range c.Sensitivity {
		overrides[graph.EdgeType(t)] = sensitive
	}
	return graph.NewTrackerWithOverrides(overrides)
}

// CycleTypes returns the configured cycle edge types as graph types.
func (c *ProjectConfig) CycleTypes() []graph.EdgeType {
	out := make([]graph.EdgeType, 0, len(c.CycleEdgeTypes))
	for _, t := range c.CycleEdgeTypes {
		out = append(out, graph.EdgeType(t))
	}
	return out
}

// OpenStore opens the configured backing store. The memory backend is the
// default when nothing is configured.
func (c *ProjectConfig) OpenStore() (graph.Store, error) {
	if c.StoreBackend != "badger" {
		return graph.NewMemStore(), nil
	}
	path := c.StorePath
	if path == "" {
		path = filepath.Join(".sigraph", "graph")
	}
	return graph.NewBadgerStore(graph.DefaultBadgerConfig(path))
}
