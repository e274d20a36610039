package worker

import (
	"fmt"

	"github.com/loomwork/loom/pkg/datasource"
	"github.com/loomwork/loom/pkg/todo"
	"github.com/loomwork/loom/pkg/tool"
	"github.com/loomwork/loom/pkg/workspace"
)

// buildRegistry wires every tool category into one Registry. Enablement and
// read-only gating happen later, per call, via Registry.Visible against the
// job's resolved config — this just makes every tool the worker process
// knows how to run available to be filtered.
func buildRegistry(ws *workspace.Workspace, todos *todo.Manager, signal *tool.PhaseSignal, datasources []datasource.Datasource) (*tool.Registry, error) {
	reg := tool.NewRegistry()

	register := func(tools ...tool.Tool) error {
		for _, t := range tools {
			if err := reg.Register(t); err != nil {
				return err
			}
		}
		return nil
	}

	if err := register(
		tool.NewReadFileTool(ws),
		tool.NewListFilesTool(ws),
		tool.NewSearchWorkspaceTool(ws),
		tool.NewWriteFileTool(ws),
		tool.NewAppendToFileTool(ws),
		tool.NewEditFileTool(ws),
	); err != nil {
		return nil, fmt.Errorf("register workspace tools: %w", err)
	}

	if err := register(
		tool.NewListTodosTool(todos),
		tool.NewTodoCompleteTool(todos),
		tool.NewTodoRewindTool(todos),
		tool.NewNextPhaseTodosTool(todos, signal),
		tool.NewJobCompleteTool(signal),
	); err != nil {
		return nil, fmt.Errorf("register core tools: %w", err)
	}

	if err := register(
		tool.NewGitLogTool(ws),
		tool.NewGitDiffTool(ws),
		tool.NewGitShowTool(ws),
		tool.NewGitStatusTool(ws),
	); err != nil {
		return nil, fmt.Errorf("register git tools: %w", err)
	}

	if err := register(tool.NewCitationTools()...); err != nil {
		return nil, fmt.Errorf("register citation tools: %w", err)
	}

	if tool.TavilyAvailable() {
		if err := register(
			tool.NewWebSearchTool(),
			tool.NewExtractWebpageTool(),
			tool.NewCrawlWebsiteTool(),
			tool.NewMapWebsiteTool(),
			tool.NewBrowseWebsiteTool(),
		); err != nil {
			return nil, fmt.Errorf("register research tools: %w", err)
		}
	}

	if err := registerDatasourceTools(reg, register, datasources); err != nil {
		return nil, err
	}

	return reg, nil
}

// registerDatasourceTools resolves each attached datasource into a live
// provider and wires the matching category's tools against it. A job with
// no attached datasource of a given type simply never registers that
// category's tools, so Registry.Visible has nothing to filter either way.
func registerDatasourceTools(reg *tool.Registry, register func(...tool.Tool) error, datasources []datasource.Datasource) error {
	providers := datasource.NewRegistry()
	for _, ds := range datasources {
		if err := providers.Resolve(ds); err != nil {
			return fmt.Errorf("resolve datasource %q: %w", ds.Name, err)
		}

		switch ds.Type {
		case datasource.TypePostgreSQL:
			p, ok := providers.SQL(ds.Name)
			if !ok {
				continue
			}
			if err := register(
				tool.NewSQLQueryTool(p),
				tool.NewSQLSchemaTool(p),
				tool.NewSQLExecuteTool(p),
			); err != nil {
				return fmt.Errorf("register sql tools for %q: %w", ds.Name, err)
			}
		case datasource.TypeNeo4j:
			p, ok := providers.Graph(ds.Name)
			if !ok {
				continue
			}
			if err := register(
				tool.NewCypherQueryTool(p),
				tool.NewGraphSchemaTool(p),
				tool.NewCypherWriteTool(p),
			); err != nil {
				return fmt.Errorf("register graph tools for %q: %w", ds.Name, err)
			}
		case datasource.TypeMongoDB:
			p, ok := providers.Mongo(ds.Name)
			if !ok {
				continue
			}
			if err := register(
				tool.NewMongoQueryTool(p),
				tool.NewMongoAggregateTool(p),
				tool.NewMongoSchemaTool(p),
				tool.NewMongoInsertTool(p),
				tool.NewMongoUpdateTool(p),
			); err != nil {
				return fmt.Errorf("register mongo tools for %q: %w", ds.Name, err)
			}
		}
	}
	return nil
}
