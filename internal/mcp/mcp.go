// Package mcp implements the Model Context Protocol server for the Senate.
//
// The MCP server exposes the same mission-submission and chronicle-lookup
// capabilities as the HTTP API through MCP tools, so MCP-compatible agents
// can submit missions and check precedent without a bespoke client.
package mcp

import (
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/senate/internal/chronicle"
	"github.com/ashita-ai/senate/internal/elder"
)

// serverInstructions is sent to every MCP client during the initialize
// handshake, so every connected agent knows the check-before/submit-after
// workflow without per-project configuration.
const serverInstructions = `You have access to the Senate, a governed code-generation gateway.

WORKFLOW — follow this for every mission:

1. BEFORE submitting: call senate_check_precedent with a short description of
   the mission. This returns prior rulings on similar missions. Use them to
   anticipate whether the mission is likely to be authorized or refused.

2. TO ACT: call senate_submit_mission with the full mission text. The mission
   is run through a fixed-order deliberation (pre-check, forge, adversarial
   review, final judgment) and either an authorized artifact or a permanent,
   appealable refusal comes back.

3. IF REFUSED and you believe the refusal was wrong: call senate_file_appeal
   with the case_id from the refusal, your expanded context, any constraint
   changes, and your reason for appealing.

4. TO CHECK STATUS: call senate_case_status with a case_id to see its current
   ruling and appeal history.

TOOLS:
- senate_submit_mission: submit a mission for deliberation
- senate_check_precedent: look up prior rulings before submitting
- senate_file_appeal: appeal a refused case
- senate_case_status: look up a case's current ruling and appeals

Governance here is mechanical, not advisory: a refusal cannot be argued away
in conversation, only appealed through senate_file_appeal.`

// Server wraps the MCP server with the Senate's domain services.
type Server struct {
	mcpServer *mcpserver.MCPServer
	elder     *elder.Elder
	chronicle *chronicle.Chronicle
	logger    *slog.Logger
}

// New creates and configures a new MCP server with all tools registered.
func New(e *elder.Elder, ch *chronicle.Chronicle, logger *slog.Logger, version string) *Server {
	s := &Server{
		elder:     e,
		chronicle: ch,
		logger:    logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"senate",
		version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithInstructions(serverInstructions),
	)

	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
