package tools

import "leo/internal/memory"

// DefaultRegistry builds the built-in tool set rooted at workspace.
// store may be nil, in which case the remember tool is left out.
func DefaultRegistry(workspace string, store memory.Store) *Registry {
	r := NewRegistry()

	r.MustRegister(&ReadFileTool{Root: workspace})
	r.MustRegister(&WriteFileTool{Root: workspace})
	r.MustRegister(&EditFileTool{Root: workspace})
	r.MustRegister(&ListDirTool{Root: workspace})
	r.MustRegister(&GlobTool{Root: workspace})
	r.MustRegister(&SearchTool{Root: workspace})
	r.MustRegister(&ExecTool{Root: workspace})
	r.MustRegister(&GitTool{Root: workspace})
	r.MustRegister(NewWebFetchTool())
	r.MustRegister(NewWebSearchTool())
	r.MustRegister(&SSHTool{})

	if store != nil {
		r.MustRegister(&RememberTool{Store: store})
	}

	return r
}
