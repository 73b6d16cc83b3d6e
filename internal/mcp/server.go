package mcp

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/diarist/internal/config"
	"github.com/hpungsan/diarist/internal/store"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"document", "segment", "speaker", "history", "gesture"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"document_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
	"document_fetch": {
		def:     fetchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFetch },
	},
	"document_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"document_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"document_check": {
		def:     checkToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCheck },
	},
	"document_delete": {
		def:     deleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
	"segment_create": {
		def:     segmentCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSegmentCreate },
	},
	"segment_update": {
		def:     segmentUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSegmentUpdate },
	},
	"segment_delete": {
		def:     segmentDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSegmentDelete },
	},
	"speaker_add": {
		def:     speakerAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSpeakerAdd },
	},
	"speaker_remove": {
		def:     speakerRemoveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSpeakerRemove },
	},
	"speaker_rename": {
		def:     speakerRenameToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSpeakerRename },
	},
	"speaker_merge": {
		def:     speakerMergeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSpeakerMerge },
	},
	"history_undo": {
		def:     undoToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUndo },
	},
	"history_redo": {
		def:     redoToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRedo },
	},
	"gesture_replay": {
		def:     gestureReplayToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGestureReplay },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "segment_create" → "segment").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	// Build set of types for O(1) lookup
	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	// Collect tools belonging to disabled types
	tools := make([]string, 0)
	for name := range toolRegistry {
		typ := GetTypeForTool(name)
		if typeSet[typ] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with the annotation tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(st *store.Store, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"diarist",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(st, cfg)

	// Build set of disabled tools: first expand types, then add individual tools
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	// Register tools (skip disabled)
	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(st *store.Store, cfg *config.Config, version string) error {
	s := NewServer(st, cfg, version)
	return server.ServeStdio(s)
}
