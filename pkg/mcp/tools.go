package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/llm"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/tools"
)

// RegisterSecurityTools registers every tool the dispatcher supports.
// Schemas are bridged straight from the chat tool registry so the MCP
// surface cannot drift from what the model sees, and every call goes
// through the same dispatcher validation and serialization.
func RegisterSecurityTools(s *server.MCPServer, d *tools.Dispatcher, logger *zap.Logger) error {
	log := logger.Named("mcp.tools")
	for _, def := range tools.Definitions(d.HasKnowledgeBase()) {
		tool, err := bridgeTool(def)
		if err != nil {
			return fmt.Errorf("failed to bridge tool %s: %w", def.Name, err)
		}
		s.AddTool(tool, toolHandler(d, def.Name, log))
	}
	return nil
}

// bridgeTool converts a registry tool definition to an MCP tool using the
// raw JSON Schema it already carries.
func bridgeTool(def llm.ToolDefinition) (mcp.Tool, error) {
	schema, err := json.Marshal(def.Parameters)
	if err != nil {
		return mcp.Tool{}, err
	}
	tool := mcp.NewToolWithRawSchema(def.Name, def.Description, schema)
	tool.Annotations = mcp.ToolAnnotation{
		ReadOnlyHint:   mcp.ToBoolPtr(true),
		IdempotentHint: mcp.ToBoolPtr(true),
		OpenWorldHint:  mcp.ToBoolPtr(false),
	}
	return tool, nil
}

func toolHandler(d *tools.Dispatcher, name string, logger *zap.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		arguments := "{}"
		if req.Params.Arguments != nil {
			raw, err := json.Marshal(req.Params.Arguments)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal arguments: %w", err)
			}
			arguments = string(raw)
		}

		logger.Debug("tool call",
			zap.String("tool", name),
			zap.Int("arguments_bytes", len(arguments)))

		// Dispatch never fails: errors come back as JSON payloads the
		// caller can inspect, same as in the chat loop.
		return mcp.NewToolResultText(d.Dispatch(ctx, name, arguments)), nil
	}
}
