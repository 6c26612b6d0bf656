package tool

import "time"

// CatalogOption configures the built-in tool catalog.
type CatalogOption func(*catalogConfig)

type catalogConfig struct {
	searchOpts     []WebSearchOption
	commandTimeout time.Duration
}

// WithCatalogSearch passes options through to the search_web tool.
func WithCatalogSearch(opts ...WebSearchOption) CatalogOption {
	return func(c *catalogConfig) {
		c.searchOpts = append(c.searchOpts, opts...)
	}
}

// WithCatalogCommandTimeout sets the execute_command timeout.
func WithCatalogCommandTimeout(d time.Duration) CatalogOption {
	return func(c *catalogConfig) {
		c.commandTimeout = d
	}
}

// Catalog builds the registry of built-in tools.
//
// read_file, list_directory, and search_web run without approval.
// write_file, remove_file, and execute_command mutate the user's
// machine and are flagged dangerous.
func Catalog(opts ...CatalogOption) *Registry {
	cfg := &catalogConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return Must(
		Registration{Tool: ReadFileTool(), Handler: ReadFileHandler()},
		Registration{Tool: ListDirectoryTool(), Handler: ListDirectoryHandler()},
		Registration{Tool: SearchWebTool(), Handler: SearchWebHandler(cfg.searchOpts...)},
		Registration{Tool: WriteFileTool(), Dangerous: true, Handler: WriteFileHandler()},
		Registration{Tool: RemoveFileTool(), Dangerous: true, Handler: RemoveFileHandler()},
		Registration{Tool: ExecuteCommandTool(), Dangerous: true, Handler: ExecuteCommandHandler(cfg.commandTimeout)},
	)
}
