package tool

import (
	"context"
	"fmt"

	"github.com/loomwork/loom/pkg/workspace"
)

// workspace category tools wrap *workspace.Workspace's methods as
// LLM-callable tools, adapting the contract a read_file/file_writer/
// search_replace tool family exposes directly as Tool implementations.

type readFileTool struct{ ws *workspace.Workspace }

func NewReadFileTool(ws *workspace.Workspace) Tool { return readFileTool{ws} }

func (t readFileTool) Info() Info {
	return Info{
		Name:        "read_file",
		Description: "Read the full contents of a workspace file.",
		Category:    CategoryWorkspace,
		Phase:       PhaseBoth,
		ReadOnly:    true,
		Parameters: []Parameter{
			{Name: "path", Type: "string", Description: "Path relative to the workspace root.", Required: true},
		},
	}
}

func (t readFileTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return Result{}, fmt.Errorf("path is required")
	}
	data, err := t.ws.Read(path)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Content: string(data)}, nil
}

type listFilesTool struct{ ws *workspace.Workspace }

func NewListFilesTool(ws *workspace.Workspace) Tool { return listFilesTool{ws} }

func (t listFilesTool) Info() Info {
	return Info{
		Name:        "list_files",
		Description: "List workspace files, optionally filtered by a glob pattern.",
		Category:    CategoryWorkspace,
		Phase:       PhaseBoth,
		ReadOnly:    true,
		Parameters: []Parameter{
			{Name: "glob", Type: "string", Description: "Optional glob pattern, matched against paths relative to the workspace root."},
		},
	}
}

func (t listFilesTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	glob, _ := args["glob"].(string)
	files, err := t.ws.List(glob)
	if err != nil {
		return Result{}, err
	}
	content := ""
	for _, f := range files {
		content += f + "\n"
	}
	return Result{Success: true, Content: content}, nil
}

type searchWorkspaceTool struct{ ws *workspace.Workspace }

func NewSearchWorkspaceTool(ws *workspace.Workspace) Tool { return searchWorkspaceTool{ws} }

func (t searchWorkspaceTool) Info() Info {
	return Info{
		Name:        "search_workspace",
		Description: "Search workspace files for a literal substring, returning matching paths.",
		Category:    CategoryWorkspace,
		Phase:       PhaseBoth,
		ReadOnly:    true,
		Parameters: []Parameter{
			{Name: "query", Type: "string", Description: "Literal substring to search for.", Required: true},
		},
	}
}

func (t searchWorkspaceTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return Result{}, fmt.Errorf("query is required")
	}

	files, err := t.ws.List("")
	if err != nil {
		return Result{}, err
	}

	content := ""
	for _, f := range files {
		data, err := t.ws.Read(f)
		if err != nil {
			continue
		}
		if containsSubstring(string(data), query) {
			content += f + "\n"
		}
	}
	if content == "" {
		content = "no matches"
	}
	return Result{Success: true, Content: content}, nil
}

func containsSubstring(haystack, needle string) bool {
	return len(needle) > 0 && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

type writeFileTool struct{ ws *workspace.Workspace }

func NewWriteFileTool(ws *workspace.Workspace) Tool { return writeFileTool{ws} }

func (t writeFileTool) Info() Info {
	return Info{
		Name:        "write_file",
		Description: "Create or fully overwrite a workspace file.",
		Category:    CategoryWorkspace,
		Phase:       PhaseBoth,
		Parameters: []Parameter{
			{Name: "path", Type: "string", Required: true},
			{Name: "content", Type: "string", Required: true},
		},
	}
}

func (t writeFileTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	path, _ := args["path"].(string)
	content, _ := args["content"].(string)
	if path == "" {
		return Result{}, fmt.Errorf("path is required")
	}
	if err := t.ws.Write(path, []byte(content)); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Content: fmt.Sprintf("wrote %s", path)}, nil
}

type appendToFileTool struct{ ws *workspace.Workspace }

func NewAppendToFileTool(ws *workspace.Workspace) Tool { return appendToFileTool{ws} }

func (t appendToFileTool) Info() Info {
	return Info{
		Name:        "append_to_file",
		Description: "Append content to a workspace file, creating it if absent.",
		Category:    CategoryWorkspace,
		Phase:       PhaseBoth,
		Parameters: []Parameter{
			{Name: "path", Type: "string", Required: true},
			{Name: "content", Type: "string", Required: true},
		},
	}
}

func (t appendToFileTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	path, _ := args["path"].(string)
	content, _ := args["content"].(string)
	if path == "" {
		return Result{}, fmt.Errorf("path is required")
	}
	if err := t.ws.Append(path, []byte(content)); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Content: fmt.Sprintf("appended to %s", path)}, nil
}

type editFileTool struct{ ws *workspace.Workspace }

func NewEditFileTool(ws *workspace.Workspace) Tool { return editFileTool{ws} }

func (t editFileTool) Info() Info {
	return Info{
		Name:        "edit_file",
		Description: "Replace an exact-match substring in a workspace file.",
		Category:    CategoryWorkspace,
		Phase:       PhaseBoth,
		Parameters: []Parameter{
			{Name: "path", Type: "string", Required: true},
			{Name: "old_text", Type: "string", Required: true},
			{Name: "new_text", Type: "string", Required: true},
			{Name: "replace_all", Type: "boolean"},
		},
	}
}

func (t editFileTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	path, _ := args["path"].(string)
	oldText, _ := args["old_text"].(string)
	newText, _ := args["new_text"].(string)
	replaceAll, _ := args["replace_all"].(bool)
	if path == "" || oldText == "" {
		return Result{}, fmt.Errorf("path and old_text are required")
	}
	if err := t.ws.Edit(path, oldText, newText, replaceAll); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Content: fmt.Sprintf("edited %s", path)}, nil
}
