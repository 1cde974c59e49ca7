package telemetry

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if l == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(l), &m))
		out = append(out, m)
	}
	return out
}

func TestToolCallIsTimed(t *testing.T) {
	var buf bytes.Buffer
	h := NewHooks(zerolog.New(&buf))
	clock := time.Unix(0, 0)
	h.now = func() time.Time { return clock }

	h.ToolStarted(7)
	require.Equal(t, 1, h.Pending())
	clock = clock.Add(250 * time.Millisecond)
	h.ToolFinished(7, "sort_spreadsheet", mcp.NewToolResultText("ok"))
	require.Zero(t, h.Pending())

	got := lines(t, &buf)
	require.Len(t, got, 1)
	require.Equal(t, "info", got[0]["level"])
	require.Equal(t, "sort_spreadsheet", got[0]["tool"])
	require.EqualValues(t, 250, got[0]["duration"])
}

func TestToolErrorIsWarned(t *testing.T) {
	var buf bytes.Buffer
	h := NewHooks(zerolog.New(&buf))

	h.ToolFinished("abc", "filter_spreadsheet", mcp.NewToolResultError("NOT_FOUND: file not found"))

	got := lines(t, &buf)
	require.Len(t, got, 1)
	require.Equal(t, "warn", got[0]["level"])
	require.Equal(t, "NOT_FOUND: file not found", got[0]["error"])
	require.NotContains(t, got[0], "duration")
}

func TestServerHooksRegistered(t *testing.T) {
	hooks := NewHooks(zerolog.Nop()).Server()
	require.Len(t, hooks.OnRegisterSession, 1)
	require.Len(t, hooks.OnBeforeCallTool, 1)
	require.Len(t, hooks.OnAfterCallTool, 1)
	require.Len(t, hooks.OnError, 1)
}
