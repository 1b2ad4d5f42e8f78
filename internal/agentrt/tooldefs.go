package agentrt

import "github.com/jholhewres/crewcode/internal/provider"

// toolDefinitions is the fixed catalog of sandboxed tools offered to
// tool-capable providers, one JSON Schema object per tool. Grounded on
// spec.md §4.1's parameter lists; every dialect adapter (openai.go,
// anthropic.go) converts this shape into its own wire format.
func toolDefinitions() []provider.ToolDefinition {
	return []provider.ToolDefinition{
		{
			Name:        "bash",
			Description: "Run a shell command in the project directory and return its combined stdout/stderr.",
			Parameters: schema(`{
				"type": "object",
				"properties": {
					"command": {"type": "string", "description": "Shell command to run via sh -c"},
					"workdir": {"type": "string", "description": "Working directory, relative to the project root"},
					"timeout": {"type": "number", "description": "Timeout in seconds (default 10, max 120)"}
				},
				"required": ["command"]
			}`),
		},
		{
			Name:        "read",
			Description: "Read a text file, returning numbered lines.",
			Parameters: schema(`{
				"type": "object",
				"properties": {
					"path": {"type": "string"},
					"offset": {"type": "number", "description": "1-indexed first line to return"},
					"limit": {"type": "number", "description": "Max lines to return"}
				},
				"required": ["path"]
			}`),
		},
		{
			Name:        "write",
			Description: "Create or overwrite a file with the given content.",
			Parameters: schema(`{
				"type": "object",
				"properties": {
					"path": {"type": "string"},
					"content": {"type": "string"}
				},
				"required": ["path", "content"]
			}`),
		},
		{
			Name:        "edit",
			Description: "Replace an exact substring match in a file.",
			Parameters: schema(`{
				"type": "object",
				"properties": {
					"path": {"type": "string"},
					"old": {"type": "string"},
					"new": {"type": "string"},
					"replaceAll": {"type": "boolean"}
				},
				"required": ["path", "old", "new"]
			}`),
		},
		{
			Name:        "glob",
			Description: "Find files matching a glob pattern (supports **).",
			Parameters: schema(`{
				"type": "object",
				"properties": {
					"pattern": {"type": "string"},
					"path": {"type": "string", "description": "Directory to search from; defaults to the project root"}
				},
				"required": ["pattern"]
			}`),
		},
		{
			Name:        "grep",
			Description: "Search file contents by regular expression.",
			Parameters: schema(`{
				"type": "object",
				"properties": {
					"pattern": {"type": "string"},
					"path": {"type": "string"},
					"include": {"type": "string", "description": "Glob filter on file names, e.g. *.go"}
				},
				"required": ["pattern"]
			}`),
		},
		{
			Name:        "webfetch",
			Description: "Fetch a URL and return its readable content as markdown or plain text.",
			Parameters: schema(`{
				"type": "object",
				"properties": {
					"url": {"type": "string"},
					"format": {"type": "string", "enum": ["markdown", "text"]},
					"timeout": {"type": "number", "description": "Not read: every fetch uses the sandbox's configured webfetch timeout (default 30)"}
				},
				"required": ["url"]
			}`),
		},
	}
}

func schema(raw string) []byte {
	return []byte(raw)
}
