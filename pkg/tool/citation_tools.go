package tool

import (
	"context"
	"fmt"
)

// citation category tools are contract-only: the citation engine itself is
// an external collaborator service, out of scope for this repository. The
// tools are still registered (so a resolved config that enables the
// category presents a stable, documented surface to the LLM) but every
// call reports that no citation engine is wired in this deployment.

type citationStubTool struct {
	name        string
	description string
	parameters  []Parameter
}

func (t citationStubTool) Info() Info {
	return Info{
		Name:        t.name,
		Description: t.description,
		Category:    CategoryCitation,
		Phase:       PhaseBoth,
		ReadOnly:    true,
		Parameters:  t.parameters,
	}
}

func (t citationStubTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	return Result{}, fmt.Errorf("%s: no citation engine is configured for this deployment", t.name)
}

// NewCitationTools returns the full contract-only citation category.
func NewCitationTools() []Tool {
	return []Tool{
		citationStubTool{name: "cite_document", description: "Cite a workspace document.",
			parameters: []Parameter{{Name: "path", Type: "string", Required: true}}},
		citationStubTool{name: "cite_web", description: "Cite a web URL.",
			parameters: []Parameter{{Name: "url", Type: "string", Required: true}}},
		citationStubTool{name: "list_sources", description: "List sources available to cite."},
		citationStubTool{name: "get_citation", description: "Fetch one citation's formatted reference.",
			parameters: []Parameter{{Name: "citation_id", Type: "string", Required: true}}},
		citationStubTool{name: "list_citations", description: "List citations recorded for the current job."},
		citationStubTool{name: "search_library", description: "Search the citation library.",
			parameters: []Parameter{{Name: "query", Type: "string", Required: true}}},
		citationStubTool{name: "annotate_source", description: "Attach an annotation to a source.",
			parameters: []Parameter{{Name: "source_id", Type: "string", Required: true}, {Name: "note", Type: "string", Required: true}}},
		citationStubTool{name: "get_annotations", description: "List annotations on a source.",
			parameters: []Parameter{{Name: "source_id", Type: "string", Required: true}}},
		citationStubTool{name: "tag_source", description: "Tag a source for later retrieval.",
			parameters: []Parameter{{Name: "source_id", Type: "string", Required: true}, {Name: "tag", Type: "string", Required: true}}},
	}
}
