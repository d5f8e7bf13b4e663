package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/adapters/logstore"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/sentinel"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/tools"
)

func newTestDispatcher(t *testing.T) (*tools.Dispatcher, *logstore.MockExecutor) {
	t.Helper()
	exec := &logstore.MockExecutor{}
	client := sentinel.NewClient(exec, zap.NewNop())
	return tools.NewDispatcher(&tools.DispatcherConfig{
		Client: client,
		Logger: zap.NewNop(),
	}), exec
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	// Content carries mcp.Content interface values; round-trip through
	// JSON to extract the text.
	raw, err := json.Marshal(result.Content[0])
	require.NoError(t, err)
	var content struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(raw, &content))
	require.Equal(t, "text", content.Type)
	return content.Text
}

func TestRegisterSecurityTools(t *testing.T) {
	d, _ := newTestDispatcher(t)
	srv := NewServer("test", "0.0.1", zap.NewNop())

	err := RegisterSecurityTools(srv.MCP(), d, zap.NewNop())
	require.NoError(t, err)
}

func TestBridgeTool_PreservesSchema(t *testing.T) {
	defs := tools.SentinelDefinitions()
	for _, def := range defs {
		tool, err := bridgeTool(def)
		require.NoError(t, err)

		assert.Equal(t, def.Name, tool.Name)
		assert.Equal(t, def.Description, tool.Description)

		var schema map[string]any
		require.NoError(t, json.Unmarshal(tool.RawInputSchema, &schema))
		assert.Equal(t, "object", schema["type"])
		assert.Contains(t, schema, "properties")

		require.NotNil(t, tool.Annotations.ReadOnlyHint)
		assert.True(t, *tool.Annotations.ReadOnlyHint)
	}
}

func TestToolHandler_DispatchesQuery(t *testing.T) {
	d, exec := newTestDispatcher(t)
	handler := toolHandler(d, tools.ToolQueryIncidents, zap.NewNop())

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{
		"time_window":  "last_24h",
		"min_severity": "High",
	}

	result, err := handler(context.Background(), req)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	assert.Contains(t, payload, "metadata")

	require.Len(t, exec.Calls, 1)
	assert.Equal(t, []string{"High"}, exec.Calls[0].Params.Severities)
}

func TestToolHandler_NoArguments(t *testing.T) {
	d, _ := newTestDispatcher(t)
	handler := toolHandler(d, tools.ToolQueryIncidents, zap.NewNop())

	result, err := handler(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)

	// Dispatcher fills defaults, so an empty call still succeeds.
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	assert.Contains(t, payload, "metadata")
}

func TestToolHandler_UnknownToolAsPayload(t *testing.T) {
	d, _ := newTestDispatcher(t)
	handler := toolHandler(d, "drop_tables", zap.NewNop())

	result, err := handler(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	assert.Equal(t, "Unknown tool: drop_tables", payload["error"])
}

func TestRegisterSecurityTools_KnowledgeGated(t *testing.T) {
	// Without a knowledge base only the five query tools are bridged;
	// registration must still succeed.
	d, _ := newTestDispatcher(t)
	assert.False(t, d.HasKnowledgeBase())

	srv := NewServer("test", "0.0.1", zap.NewNop())
	require.NoError(t, RegisterSecurityTools(srv.MCP(), d, zap.NewNop()))
}
