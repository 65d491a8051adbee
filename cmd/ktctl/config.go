package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joshuapare/kheap/kalloc"
	"github.com/joshuapare/kheap/kalloc/policy"
)

// allocOverrides are the per-command flags layered over --config and
// --boot-args. Negative values leave the configuration alone.
type allocOverrides struct {
	budget   int
	varHeaps int
	seed     uint64
}

// loadConfig builds the allocator configuration: defaults, then the YAML
// file, then the boot arguments, then o.
func loadConfig(o allocOverrides) (kalloc.Config, error) {
	cfg := kalloc.DefaultConfig()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", configPath, err)
		}
		printVerbose("Loaded config: %s\n", configPath)
	}
	if bootArgs != "" {
		if err := cfg.ApplyBootArgs(bootArgs); err != nil {
			return cfg, err
		}
	}
	if o.budget >= 0 {
		cfg.TypeBudget = o.budget
	}
	if o.varHeaps >= 0 {
		cfg.VarHeaps = o.varHeaps
	}
	if o.seed != 0 {
		cfg.Entropy = policy.NewSeededSource(o.seed)
	}
	return cfg, cfg.Validate()
}
