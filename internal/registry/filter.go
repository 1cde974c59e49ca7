package registry

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// writePrefixes mark tools that modify files.
var writePrefixes = []string{"write_", "update_"}

// WriteToolFilter hides tools that modify files unless writes are enabled
// (MCPSHEETS_ENABLE_WRITES).
type WriteToolFilter struct {
	allowWrites bool
}

// NewWriteToolFilter constructs a filter; allowWrites usually comes from
// config.Settings.EnableWrites.
func NewWriteToolFilter(allowWrites bool) *WriteToolFilter {
	return &WriteToolFilter{allowWrites: allowWrites}
}

// AllowsWrites reports whether write tools are visible.
func (f *WriteToolFilter) AllowsWrites() bool { return f.allowWrites }

// IsWriteTool reports whether name is a tool that modifies files.
func IsWriteTool(name string) bool {
	name = strings.ToLower(name)
	for _, p := range writePrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// FilterTools implements server tool filtering semantics.
func (f *WriteToolFilter) FilterTools(_ context.Context, tools []mcp.Tool) []mcp.Tool {
	if f.allowWrites {
		return tools
	}
	out := make([]mcp.Tool, 0, len(tools))
	for _, t := range tools {
		if IsWriteTool(t.Name) {
			continue
		}
		out = append(out, t)
	}
	return out
}
