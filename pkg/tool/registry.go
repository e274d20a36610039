package tool

import (
	"fmt"

	"github.com/loomwork/loom/pkg/registry"
)

// Registry holds every tool a worker process knows about, independent of
// which ones are currently enabled for a job's resolved config. Built
// directly on the same generic BaseRegistry[T] the LLM-provider registry
// uses.
type Registry struct {
	base *registry.BaseRegistry[Tool]
}

func NewRegistry() *Registry {
	return &Registry{base: registry.NewBaseRegistry[Tool]()}
}

func (r *Registry) Register(t Tool) error {
	info := t.Info()
	if info.Name == "" {
		return fmt.Errorf("tool has no name")
	}
	return r.base.Register(info.Name, t)
}

func (r *Registry) Get(name string) (Tool, bool) {
	return r.base.Get(name)
}

func (r *Registry) All() []Tool {
	return r.base.List()
}

// EnabledConfig is the subset of the resolved tool config the registry
// needs to decide visibility: per-category enabled flag, read-only
// restriction, and an optional per-category allowlist of tool names.
type EnabledConfig interface {
	ToolEnabled(category, tool string) bool
	CategoryReadOnly(category string) bool
}

// Visible returns the tools available for the current phase under cfg,
// with write tools dropped from read-only categories.
func (r *Registry) Visible(cfg EnabledConfig, phase Phase) []Tool {
	var out []Tool
	for _, t := range r.All() {
		info := t.Info()
		if !info.Phase.allows(phase) {
			continue
		}
		if !cfg.ToolEnabled(string(info.Category), info.Name) {
			continue
		}
		if cfg.CategoryReadOnly(string(info.Category)) && !info.ReadOnly {
			continue
		}
		out = append(out, t)
	}
	return out
}
