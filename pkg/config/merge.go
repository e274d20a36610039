package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DeepMerge merges src into dst and returns the result. Maps are merged
// recursively key-by-key; every other value (scalars, slices) from src
// replaces the corresponding value in dst entirely. Neither input is
// mutated.
func DeepMerge(dst, src map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, sv := range src {
		dv, exists := out[k]
		if !exists {
			out[k] = sv
			continue
		}
		dm, dOK := dv.(map[string]interface{})
		sm, sOK := sv.(map[string]interface{})
		if dOK && sOK {
			out[k] = DeepMerge(dm, sm)
			continue
		}
		// Scalars and arrays (and map/non-map mismatches) replace entirely.
		out[k] = sv
	}
	return out
}

// MergeLayers folds an ordered list of sparse config layers into one map
// using DeepMerge, left to right (later layers take precedence).
func MergeLayers(layers ...map[string]interface{}) map[string]interface{} {
	merged := map[string]interface{}{}
	for _, l := range layers {
		if l == nil {
			continue
		}
		merged = DeepMerge(merged, l)
	}
	return merged
}

// Resolve builds the final per-job Config from four layers: defaults.yaml,
// expert config, the caller's config_override patch, and the
// orchestrator's datasource-derived tool-override. Each layer is a sparse
// map (as decoded from YAML/JSON), merged in order.
func Resolve(defaults, expert, override, toolOverride map[string]interface{}) (*Config, error) {
	merged := MergeLayers(defaults, expert, override, toolOverride)

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("build config decoder: %w", err)
	}
	if err := decoder.Decode(merged); err != nil {
		return nil, fmt.Errorf("decode resolved config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("resolved config invalid: %w", err)
	}
	return cfg, nil
}

// ToMap round-trips a Config through its mapstructure tags into a sparse
// map, suitable for use as a merge layer (e.g. a typed tool-override
// produced in Go rather than loaded from YAML).
func ToMap(cfg *Config) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := mapstructure.Decode(cfg, &out); err != nil {
		return nil, fmt.Errorf("encode config to map: %w", err)
	}
	return out, nil
}
