package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mweide/calagent/internal/agent"
)

// RegisterMCPTools exposes every catalog tool on an MCP server. Calls arriving
// over MCP go through the same Dispatch path as the agent loop, so schema
// validation, error classification, metrics, and audit logging behave
// identically on both surfaces.
func RegisterMCPTools(s *mcpserver.MCPServer, c *Catalog) {
	for _, tool := range c.Specs() {
		name := tool.Name
		s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			result := c.Dispatch(ctx, agent.ToolCall{
				ID:        uuid.NewString(),
				Name:      name,
				Arguments: request.GetArguments(),
			})
			if result.IsError {
				return mcp.NewToolResultError(result.Content), nil
			}
			return mcp.NewToolResultText(result.Content), nil
		})
	}
}
