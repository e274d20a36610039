package orchestrator

import (
	"github.com/loomwork/loom/pkg/config"
	"github.com/loomwork/loom/pkg/datasource"
)

// categoryForDatasourceType maps a datasource type to the tool category it
// unlocks, matching the engine's category table (graph/sql/mongodb are
// each gated on exactly one datasource type).
var categoryForDatasourceType = map[datasource.Type]string{
	datasource.TypeNeo4j:      "graph",
	datasource.TypePostgreSQL: "sql",
	datasource.TypeMongoDB:    "mongodb",
}

// resolveDatasources picks, per type, the job-scoped datasource if present,
// else the global one, else none.
func resolveDatasources(attached []datasource.Datasource) []datasource.Datasource {
	byType := map[datasource.Type]datasource.Datasource{}
	for _, ds := range attached {
		existing, ok := byType[ds.Type]
		if !ok || (ds.Scope == datasource.ScopeJobScope && existing.Scope != datasource.ScopeJobScope) {
			byType[ds.Type] = ds
		}
	}
	out := make([]datasource.Datasource, 0, len(byType))
	for _, ds := range byType {
		out = append(out, ds)
	}
	return out
}

// toolOverride builds the config layer described in §4.6: for every
// attached datasource type, ensure its tool category is enabled with the
// appropriate read/write split; for every unattached type, the category is
// left absent so MergeLayers' array-replace rule drops whatever the
// expert/override layers enabled for it.
func toolOverride(resolved []datasource.Datasource) map[string]interface{} {
	tools := map[string]interface{}{}
	for _, ds := range resolved {
		category, ok := categoryForDatasourceType[ds.Type]
		if !ok {
			continue
		}
		tools[category] = map[string]interface{}{
			"enabled":   true,
			"read_only": ds.ReadOnly,
		}
	}
	return map[string]interface{}{"tools": tools}
}

// ResolveConfig produces the immutable per-job-start Resolved Config by
// deep-merging defaults, the expert bundle, the caller's override patch,
// and the orchestrator's datasource-derived tool-override, in that order.
// It returns both the typed config.Config and the sparse map sent to the
// worker verbatim as JobStartPayload.ResolvedConfig, since the worker
// re-decodes it independently rather than trusting the orchestrator's
// in-process struct.
func ResolveConfig(defaults, expert map[string]interface{}, job *Job, attached []datasource.Datasource) (*config.Config, map[string]interface{}, []datasource.Datasource, error) {
	resolved := resolveDatasources(attached)
	override := toolOverride(resolved)

	cfg, err := config.Resolve(defaults, expert, job.ConfigOverride, override)
	if err != nil {
		return nil, nil, nil, err
	}
	if job.Autonomy != "" {
		cfg.Autonomy = job.Autonomy
	}

	asMap, err := config.ToMap(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, asMap, resolved, nil
}
