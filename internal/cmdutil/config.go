package cmdutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/loomwork/loom/pkg/config"
)

// LoadDefaultsLayer reads the defaults.yaml layer used as the base of every
// job's Resolved Config merge chain. An empty path yields an empty layer —
// defaults are optional, not required.
func LoadDefaultsLayer(path string) (map[string]interface{}, error) {
	if path == "" {
		return map[string]interface{}{}, nil
	}
	loader, err := config.NewLoader(config.LoaderOptions{Path: path})
	if err != nil {
		return nil, fmt.Errorf("build defaults loader: %w", err)
	}
	raw, err := loader.LoadRaw()
	if err != nil {
		return nil, fmt.Errorf("load defaults from %s: %w", path, err)
	}
	return raw, nil
}

// LoadExpertsLayer reads a directory of per-expert config layers, one YAML
// file per expert named <expert_id>.yaml. An empty dir yields no experts.
func LoadExpertsLayer(dir string) (map[string]map[string]interface{}, error) {
	experts := map[string]map[string]interface{}{}
	if dir == "" {
		return experts, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read experts dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") && !strings.HasSuffix(entry.Name(), ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		loader, err := config.NewLoader(config.LoaderOptions{Path: path})
		if err != nil {
			return nil, fmt.Errorf("build loader for expert file %s: %w", path, err)
		}
		raw, err := loader.LoadRaw()
		if err != nil {
			return nil, fmt.Errorf("load expert file %s: %w", path, err)
		}
		expertID := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		experts[expertID] = raw
	}
	return experts, nil
}
