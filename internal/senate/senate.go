// Package senate implements the Senate: the linear four-stage deliberation
// pipeline (pre-check, forge, adversary, final judgment) and the
// constitutional override rule that binds the final judge to the
// adversary's findings.
package senate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ashita-ai/senate/internal/events"
	"github.com/ashita-ai/senate/internal/model"
	"github.com/ashita-ai/senate/internal/reasoner"
)

// Senate drives one mission through the pipeline against a Reasoner.
type Senate struct {
	reason reasoner.Reasoner
}

// New constructs a Senate bound to a Reasoner.
func New(r reasoner.Reasoner) *Senate {
	return &Senate{reason: r}
}

// Convene runs the full pipeline for intent and returns the frozen
// SenateRecord. allowUngoverned short-circuits the entire pipeline: no
// Reasoner calls are made and the record is UNGOVERNED.
func (s *Senate) Convene(ctx context.Context, intent string, allowUngoverned bool, emit events.Emitter) *model.SenateRecord {
	if emit == nil {
		emit = events.NoopEmitter{}
	}

	record := &model.SenateRecord{
		State:    model.StatePending,
		Intent:   intent,
		Findings: []model.HydraFinding{},
		Votes:    []model.Vote{},
		Metadata: map[string]any{},
	}

	// 1. Martial-law short-circuit.
	if allowUngoverned {
		record.State = model.StateUngoverned
		record.Metadata["martial_law"] = true
		return record
	}

	emit.Emit(events.Event{Kind: events.OnyxPrecheckStart})

	// 2. Pre-check (local/sovereign).
	preResult, err := s.reason.Think(ctx, reasoner.RolePreCheck,
		precheckSystemPrompt, intent, reasoner.Options{})
	preVote := precheckVote(preResult, err)
	record.Votes = append(record.Votes, preVote)

	if preVote.Verdict == model.VerdictVeto {
		emit.Emit(events.Event{Kind: events.OnyxPrecheckVeto, Payload: voteSnapshot(preVote)})
		record.State = model.StateNullVerdict
		record.Appealable = true
		return record
	}
	emit.Emit(events.Event{Kind: events.OnyxPrecheckComplete, Payload: voteSnapshot(preVote)})

	// 3. Governance-mode classification.
	governanceMode := classifyGovernanceMode(intent)

	// 4. Forge.
	emit.Emit(events.Event{Kind: events.IgnisForgeStart})
	forgeResult, forgeErr := s.reason.Think(ctx, reasoner.RoleForge,
		forgeSystemPrompt, intent, reasoner.Options{GovernanceMode: governanceMode})
	if forgeErr != nil {
		record.Proposal = fmt.Sprintf("STUB: forge reasoning failed (%v); no artifact was produced.", forgeErr)
	} else {
		record.Proposal = extractProposal(forgeResult)
		checkRosettaViolation(record, forgeResult)
	}
	emit.Emit(events.Event{Kind: events.IgnisForgeComplete, Payload: map[string]any{
		"length":  len(record.Proposal),
		"preview": preview(record.Proposal, 256),
	}})

	s.conveneFromProposal(ctx, record, emit)
	return record
}

// ConveneWithCrucible runs the same pre-check and governance classification
// as Convene, then forges three variants (SPEED/SAFETY/CLARITY) concurrently
// instead of a single proposal, picks a champion, and continues through the
// adversary and final judgment stages exactly as Convene does. It never
// reorders or skips any of the four fixed stages with respect to a single
// champion — the concurrency is across independent variants feeding one
// later adversary/final pass, not a reordering of the pipeline itself.
func (s *Senate) ConveneWithCrucible(ctx context.Context, intent string, emit events.Emitter) *model.SenateRecord {
	if emit == nil {
		emit = events.NoopEmitter{}
	}

	record := &model.SenateRecord{
		State:    model.StatePending,
		Intent:   intent,
		Findings: []model.HydraFinding{},
		Votes:    []model.Vote{},
		Metadata: map[string]any{},
	}

	emit.Emit(events.Event{Kind: events.OnyxPrecheckStart})
	preResult, err := s.reason.Think(ctx, reasoner.RolePreCheck, precheckSystemPrompt, intent, reasoner.Options{})
	preVote := precheckVote(preResult, err)
	record.Votes = append(record.Votes, preVote)
	if preVote.Verdict == model.VerdictVeto {
		emit.Emit(events.Event{Kind: events.OnyxPrecheckVeto, Payload: voteSnapshot(preVote)})
		record.State = model.StateNullVerdict
		record.Appealable = true
		return record
	}
	emit.Emit(events.Event{Kind: events.OnyxPrecheckComplete, Payload: voteSnapshot(preVote)})

	governanceMode := classifyGovernanceMode(intent)

	emit.Emit(events.Event{Kind: events.IgnisForgeStart})
	variants := s.ConveneCrucible(ctx, intent, governanceMode)
	champion, ok := s.SelectChampion(ctx, variants)
	if !ok {
		record.Proposal = "STUB: every crucible variant failed or mismatched its Rosetta signature; no artifact was produced."
	} else {
		record.Proposal = champion.Proposal
		record.Metadata["crucible_strategy"] = string(champion.Strategy)
		if !champion.RosettaValid {
			record.Metadata["rosetta_violation"] = true
		}
	}
	emit.Emit(events.Event{Kind: events.IgnisForgeComplete, Payload: map[string]any{
		"length":  len(record.Proposal),
		"preview": preview(record.Proposal, 256),
	}})

	s.conveneFromProposal(ctx, record, emit)
	return record
}

// conveneFromProposal runs the adversary, finding-extraction, final-judgment,
// and binding-rule stages shared by Convene and ConveneWithCrucible once a
// proposal (single-forged or crucible champion) is already in record.
func (s *Senate) conveneFromProposal(ctx context.Context, record *model.SenateRecord, emit events.Emitter) {
	// 5. Adversary (conditionally skipped).
	if len(record.Proposal) <= 100 {
		record.AdversaryReport = "Skipped (proposal too small)"
		emit.Emit(events.Event{Kind: events.HydraSkipped})
	} else {
		emit.Emit(events.Event{Kind: events.HydraStart})
		adversaryResult, err := s.reason.Think(ctx, reasoner.RoleAdversary,
			adversarySystemPrompt, record.Proposal, reasoner.Options{})
		if err != nil {
			record.AdversaryReport = "No critical findings"
		} else {
			record.AdversaryReport = serializeReport(adversaryResult)
		}
	}

	// 6. Finding extraction.
	record.Findings = extractFindings(record.AdversaryReport)
	emit.Emit(events.Event{Kind: events.HydraComplete, Payload: map[string]any{"findings_count": len(record.Findings)}})

	// 7. Final judgment.
	emit.Emit(events.Event{Kind: events.OnyxFinalStart})
	finalPrompt := buildFinalPrompt(record.Proposal, record.AdversaryReport, record.Findings)
	finalResult, err := s.reason.Think(ctx, reasoner.RoleFinal,
		finalSystemPrompt, finalPrompt, reasoner.Options{})
	finalVote := finalVoteFrom(finalResult, err)
	record.Votes = append(record.Votes, finalVote)
	emit.Emit(events.Event{Kind: events.OnyxFinalComplete, Payload: voteSnapshot(finalVote)})

	// 8. Binding-rule override.
	overridden := applyBindingRule(record, emit)

	// 9. Terminal state.
	switch {
	case overridden:
		record.State = model.StateHydraOverride
		record.Appealable = true
	case finalVote.Verdict == model.VerdictAuthorize:
		record.State = model.StateAuthorized
	default:
		record.State = model.StateNullVerdict
		record.Appealable = true
	}
}

func precheckVote(result map[string]any, err error) model.Vote {
	if err != nil {
		return model.Vote{
			Agent:     model.AgentPreChecker,
			Verdict:   model.VerdictVeto,
			Reasoning: fmt.Sprintf("System Error during Audit: %v", err),
		}
	}
	if status := reasoner.AsString(result, "status"); status == "FAILED" {
		return model.Vote{
			Agent:     model.AgentPreChecker,
			Verdict:   model.VerdictVeto,
			Reasoning: fmt.Sprintf("System Error during Audit: %s", reasoner.AsString(result, "error")),
		}
	}

	verdict := strings.ToUpper(reasoner.AsString(result, "verdict"))
	reason := reasoner.AsString(result, "reason")
	if verdict == "" {
		verdict = strings.ToUpper(reasoner.AsString(result, "vote"))
	}

	v := model.VerdictVeto
	if verdict == "ALLOW" || verdict == "AUTHORIZE" {
		v = model.VerdictAuthorize
	}
	return model.Vote{
		Agent:      model.AgentPreChecker,
		Verdict:    v,
		Reasoning:  reason,
		Confidence: 1.0,
	}
}

func finalVoteFrom(result map[string]any, err error) model.Vote {
	if err != nil {
		return model.Vote{
			Agent:     model.AgentFinalJudge,
			Verdict:   model.VerdictVeto,
			Reasoning: fmt.Sprintf("System Error during Audit: %v", err),
		}
	}
	if status := reasoner.AsString(result, "status"); status == "FAILED" {
		return model.Vote{
			Agent:     model.AgentFinalJudge,
			Verdict:   model.VerdictVeto,
			Reasoning: fmt.Sprintf("System Error during Audit: %s", reasoner.AsString(result, "error")),
		}
	}

	verdict := strings.ToUpper(reasoner.AsString(result, "verdict"))
	reason := reasoner.AsString(result, "reason")

	v := model.VerdictVeto
	if verdict == "AUTHORIZE" {
		v = model.VerdictAuthorize
	}
	return model.Vote{
		Agent:      model.AgentFinalJudge,
		Verdict:    v,
		Reasoning:  reason,
		Confidence: 1.0,
	}
}

// classifyGovernanceMode applies the case-insensitive keyword scan over the
// intent; any hit sets governance_mode = true.
func classifyGovernanceMode(intent string) bool {
	lower := strings.ToLower(intent)
	for _, kw := range governanceKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// extractProposal prefers a "code" field, falls back to serializing the
// whole object, and finally stringifies whatever came back.
func extractProposal(result map[string]any) string {
	if result == nil {
		return ""
	}
	if code, ok := result["code"]; ok {
		if s, ok := code.(string); ok && s != "" {
			return s
		}
	}
	if data, err := json.Marshal(result); err == nil {
		return string(data)
	}
	return fmt.Sprintf("%v", result)
}

func serializeReport(result map[string]any) string {
	if raw := reasoner.AsString(result, "raw_output"); raw != "" {
		return raw
	}
	if data, err := json.Marshal(result); err == nil {
		return string(data)
	}
	return fmt.Sprintf("%v", result)
}

func buildFinalPrompt(proposal, adversaryReport string, findings []model.HydraFinding) string {
	var b strings.Builder
	b.WriteString("PROPOSAL:\n")
	b.WriteString(proposal)
	b.WriteString("\n\nADVERSARY REPORT:\n")
	b.WriteString(adversaryReport)
	if len(findings) > 0 {
		b.WriteString("\n\nBINDING FINDINGS REQUIRING ACKNOWLEDGMENT:\n")
		for _, f := range findings {
			b.WriteString(fmt.Sprintf("- [%s] %s: %s\n", f.Severity, f.Pattern, f.Excerpt))
		}
	}
	return b.String()
}

// checkRosettaViolation surfaces a Rosetta signature mismatch in the
// single-proposal path, even though that path doesn't self-sign the way the
// crucible path does: if the Reasoner happened to return its own
// "rosetta_signature" field alongside both "code" and "intermediate_
// representation", this recomputes the content-hash signature and records
// any mismatch for audit. It never rejects the proposal — only the
// crucible path treats a mismatch as an adversary-stage rejection.
func checkRosettaViolation(record *model.SenateRecord, forgeResult map[string]any) {
	code := reasoner.AsString(forgeResult, "code")
	ir := reasoner.AsString(forgeResult, "intermediate_representation")
	providerSig := reasoner.AsString(forgeResult, "rosetta_signature")
	if code == "" || ir == "" || providerSig == "" {
		return
	}
	if !verifyRosetta(code, ir, providerSig) {
		record.Metadata["rosetta_violation"] = true
	}
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func voteSnapshot(v model.Vote) map[string]any {
	return map[string]any{
		"agent":     v.Agent,
		"verdict":   v.Verdict,
		"reasoning": v.Reasoning,
	}
}

const precheckSystemPrompt = `You are the pre-check auditor. Respond with a JSON object containing "verdict" (ALLOW or BLOCK) and "reason".`

const forgeSystemPrompt = `You are the forger. Produce a JSON object with "code", "explanation", and "intermediate_representation" implementing the requested mission.`

const adversarySystemPrompt = `You are the adversary. Analyze the proposal for exploitable weaknesses and report them.`

const finalSystemPrompt = `You are the final judge. Respond with a JSON object containing "verdict" (AUTHORIZE or VETO) and "reason". If binding findings are listed, you must explicitly acknowledge the risk in your reason to authorize.`
