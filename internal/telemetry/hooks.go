// Package telemetry logs MCP server lifecycle events.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// Hooks implements mcp-go server lifecycle callbacks for logging. Tool calls
// are timed from the before-call hook to the after-call hook.
type Hooks struct {
	logger zerolog.Logger
	now    func() time.Time

	mu     sync.Mutex
	starts map[string]time.Time
}

// NewHooks constructs a Hooks instance with the provided logger.
func NewHooks(logger zerolog.Logger) *Hooks {
	return &Hooks{logger: logger, now: time.Now, starts: map[string]time.Time{}}
}

// Server returns the callbacks registered with server.WithHooks.
func (h *Hooks) Server() *server.Hooks {
	hooks := &server.Hooks{}

	hooks.AddOnRegisterSession(func(ctx context.Context, session server.ClientSession) {
		h.SessionStarted(session.SessionID())
	})

	hooks.AddOnUnregisterSession(func(ctx context.Context, session server.ClientSession) {
		h.SessionEnded(session.SessionID())
	})

	hooks.AddAfterListTools(func(ctx context.Context, id any, req *mcp.ListToolsRequest, res *mcp.ListToolsResult) {
		h.logger.Info().Int("tools", len(res.Tools)).Msg("list_tools served")
	})

	hooks.AddBeforeCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest) {
		h.ToolStarted(id)
	})

	hooks.AddAfterCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest, res *mcp.CallToolResult) {
		h.ToolFinished(id, req.Params.Name, res)
	})

	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		h.logger.Error().Str("method", string(method)).Err(err).Msg("request error")
	})

	return hooks
}

// SessionStarted records the start of a client session.
func (h *Hooks) SessionStarted(sessionID string) {
	h.logger.Info().Str("session_id", sessionID).Msg("session registered")
}

// SessionEnded records the end of a client session.
func (h *Hooks) SessionEnded(sessionID string) {
	h.logger.Info().Str("session_id", sessionID).Msg("session unregistered")
}

// ToolStarted notes when the call with the given JSON-RPC id began.
func (h *Hooks) ToolStarted(id any) {
	h.mu.Lock()
	h.starts[key(id)] = h.now()
	h.mu.Unlock()
}

// ToolFinished logs the outcome of a tool call. Tool errors are results, not
// transport errors, so they are read from res.IsError.
func (h *Hooks) ToolFinished(id any, tool string, res *mcp.CallToolResult) {
	k := key(id)
	h.mu.Lock()
	start, ok := h.starts[k]
	delete(h.starts, k)
	h.mu.Unlock()

	evt := h.logger.Info()
	if res != nil && res.IsError {
		evt = h.logger.Warn()
		if len(res.Content) > 0 {
			if tc, ok := mcp.AsTextContent(res.Content[0]); ok {
				evt = evt.Str("error", tc.Text)
			}
		}
	}
	evt = evt.Str("tool", tool)
	if ok {
		evt = evt.Dur("duration", h.now().Sub(start))
	}
	evt.Msg("tool call served")
}

// Pending reports how many started calls have not finished.
func (h *Hooks) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.starts)
}

func key(id any) string { return fmt.Sprint(id) }
