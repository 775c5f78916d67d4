// Package config provides loading of per-task model chains.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModelChainYAML represents the structure of a model chain override file.
type ModelChainYAML struct {
	VerifyComponent []string `yaml:"verify_component"`
	EstimatePricing []string `yaml:"estimate_pricing"`
	EstimateWaste   []string `yaml:"estimate_waste"`
}

// ModelChains returns the model chain per task name. Env values are the base;
// a non-empty list in MODEL_CHAIN_FILE replaces the env list for that task.
func (c Config) ModelChains() (map[string][]string, error) {
	chains := map[string][]string{
		"verify_component": trimAll(c.VerifyModels),
		"estimate_pricing": trimAll(c.PricingModels),
		"estimate_waste":   trimAll(c.WasteModels),
	}
	if c.ModelChainFile == "" {
		return chains, nil
	}
	file, err := LoadModelChainFile(c.ModelChainFile)
	if err != nil {
		return nil, err
	}
	for task, models := range map[string][]string{
		"verify_component": file.VerifyComponent,
		"estimate_pricing": file.EstimatePricing,
		"estimate_waste":   file.EstimateWaste,
	} {
		if m := trimAll(models); len(m) > 0 {
			chains[task] = m
		}
	}
	return chains, nil
}

// LoadModelChainFile reads a model chain override from a YAML file.
func LoadModelChainFile(filePath string) (*ModelChainYAML, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("op=config.LoadModelChainFile: abs path: %w", err)
	}
	data, err := os.ReadFile(absPath) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("op=config.LoadModelChainFile: read %s: %w", absPath, err)
	}
	var out ModelChainYAML
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("op=config.LoadModelChainFile: parse %s: %w", absPath, err)
	}
	return &out, nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
