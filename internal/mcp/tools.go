package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/ashita-ai/senate/internal/chronicle"
	"github.com/ashita-ai/senate/internal/events"
	"github.com/ashita-ai/senate/internal/model"
)

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcplib.NewTool("senate_submit_mission",
			mcplib.WithDescription(`Submit an engineering mission for governed deliberation.

WHEN TO USE: whenever you want code generated or a change carried out, and
you want that output reviewed by a fixed-order deliberation pipeline before
it reaches you. The pipeline cannot be talked out of a refusal mid-stream;
a refusal becomes a permanent, appealable case — use senate_file_appeal to
contest it, not conversation.

WHAT YOU GET BACK: status (APPROVED or STOP_WORK_ORDER), the votes cast at
each stage, the artifact (if approved), and a case_id you can cite later.`),
			mcplib.WithReadOnlyHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(true),
			mcplib.WithString("mission",
				mcplib.Description("The engineering mission, stated as a natural-language instruction."),
				mcplib.Required(),
			),
		),
		s.handleSubmitMission,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("senate_check_precedent",
			mcplib.WithDescription(`Look up prior rulings before submitting a mission.

WHEN TO USE: BEFORE calling senate_submit_mission, to see whether a similar
mission was already ruled on. Matching is keyword-overlap over the stored
question text, not full semantic search.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("query",
				mcplib.Description("Natural-language description of the mission you're about to submit."),
				mcplib.Required(),
			),
		),
		s.handleCheckPrecedent,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("senate_file_appeal",
			mcplib.WithDescription(`Appeal a refused (STOP_WORK_ORDER or HYDRA_OVERRIDE) case.

WHEN TO USE: when you believe a refusal was wrong and have new context or a
constraint change that addresses the findings that caused it. Each appeal
re-runs full deliberation with the expanded context and escalates liability
by 1.5x per appeal depth — do not file speculatively.`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(true),
			mcplib.WithString("case_id",
				mcplib.Description("The case_id from the original refusal."),
				mcplib.Required(),
			),
			mcplib.WithString("appellant_reason",
				mcplib.Description("Why this ruling should be reconsidered."),
				mcplib.Required(),
			),
			mcplib.WithString("expanded_context",
				mcplib.Description("Additional context not available to the original deliberation, as a JSON object."),
			),
			mcplib.WithString("constraint_changes",
				mcplib.Description("Constraints that changed since the original ruling, as a JSON object."),
			),
		),
		s.handleFileAppeal,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("senate_case_status",
			mcplib.WithDescription(`Look up a case's current ruling and appeal history.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("case_id",
				mcplib.Description("The case_id to look up."),
				mcplib.Required(),
			),
		),
		s.handleCaseStatus,
	)
}

func (s *Server) handleSubmitMission(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	mission := request.GetString("mission", "")
	if mission == "" {
		return errorResult("mission is required"), nil
	}

	outcome, err := s.elder.RunMission(ctx, model.Mission{Text: mission}, events.NoopEmitter{}, false)
	if err != nil {
		return errorResult(fmt.Sprintf("mission persistence failed: %v", err)), nil
	}

	data, _ := json.MarshalIndent(outcome, "", "  ")
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.TextContent{Type: "text", Text: string(data)}},
	}, nil
}

func (s *Server) handleCheckPrecedent(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	query := request.GetString("query", "")
	if query == "" {
		return errorResult("query is required"), nil
	}

	results, err := s.chronicle.RetrievePrecedent(ctx, query)
	if err != nil {
		return errorResult(fmt.Sprintf("precedent lookup failed: %v", err)), nil
	}

	data, _ := json.MarshalIndent(map[string]any{
		"has_precedent": len(results) > 0,
		"count":         len(results),
		"results":       results,
	}, "", "  ")
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.TextContent{Type: "text", Text: string(data)}},
	}, nil
}

func (s *Server) handleFileAppeal(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	caseID := request.GetString("case_id", "")
	if caseID == "" {
		return errorResult("case_id is required"), nil
	}
	appellantReason := request.GetString("appellant_reason", "")
	if appellantReason == "" {
		return errorResult("appellant_reason is required"), nil
	}

	expandedContext := parseJSONObject(request.GetString("expanded_context", ""))
	constraintChanges := parseJSONObject(request.GetString("constraint_changes", ""))

	outcome, err := s.elder.ProcessAppeal(ctx, caseID, expandedContext, constraintChanges, appellantReason)
	if err != nil {
		if errors.Is(err, chronicle.ErrCaseNotFound) {
			return errorResult(fmt.Sprintf("case not found: %s", caseID)), nil
		}
		return errorResult(fmt.Sprintf("appeal failed: %v", err)), nil
	}

	data, _ := json.MarshalIndent(outcome, "", "  ")
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.TextContent{Type: "text", Text: string(data)}},
	}, nil
}

// parseJSONObject parses a JSON object argument, returning nil (rather than
// an error) for empty or malformed input — expanded_context and
// constraint_changes are both optional.
func parseJSONObject(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil
	}
	return obj
}

func (s *Server) handleCaseStatus(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	caseID := request.GetString("case_id", "")
	if caseID == "" {
		return errorResult("case_id is required"), nil
	}

	record, err := s.chronicle.GetCaseByID(ctx, caseID)
	if err != nil {
		return errorResult(fmt.Sprintf("lookup failed: %v", err)), nil
	}
	if record == nil {
		return errorResult(fmt.Sprintf("case not found: %s", caseID)), nil
	}

	appeals, err := s.chronicle.GetAppealsForCase(ctx, caseID)
	if err != nil {
		return errorResult(fmt.Sprintf("appeal lookup failed: %v", err)), nil
	}

	data, _ := json.MarshalIndent(map[string]any{
		"case":         record,
		"appeal_count": len(appeals),
		"appeals":      appeals,
	}, "", "  ")
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.TextContent{Type: "text", Text: string(data)}},
	}, nil
}
