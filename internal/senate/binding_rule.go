package senate

import (
	"fmt"
	"strings"

	"github.com/ashita-ai/senate/internal/events"
	"github.com/ashita-ai/senate/internal/model"
)

// applyBindingRule implements the Hydra Binding Rule (§4.2.1): it runs after
// the final judge's vote is parsed and before terminal state is set. It is
// pure logic, never a prompt to the model — there is no way for the final
// judge to short-circuit it except by producing one of the fixed
// acknowledgment phrases. Returns true if the override fired, converting
// the record's eventual terminal state to HYDRA_OVERRIDE.
//
// The synthetic vote's agent is "override" rather than "final_judge": the
// Vote.Agent domain explicitly carries a distinct "override (synthetic)"
// value for exactly this case, so a reader scanning Votes can tell the
// binding rule fired without inspecting Reasoning.
func applyBindingRule(record *model.SenateRecord, emit events.Emitter) bool {
	if len(record.Findings) == 0 {
		return false
	}

	idx := len(record.Votes) - 1
	last := record.Votes[idx]
	if last.Verdict != model.VerdictAuthorize {
		return false
	}

	if anyMatch(acknowledgmentPatterns, last.Reasoning) {
		record.Votes[idx].FindingsCited = true
		return false
	}

	patternList := make([]string, len(record.Findings))
	for i, f := range record.Findings {
		patternList[i] = f.Pattern
	}

	override := model.Vote{
		Agent:         model.AgentOverride,
		Verdict:       model.VerdictVeto,
		Confidence:    1.0,
		FindingsCited: false,
		Reasoning: fmt.Sprintf(
			"HYDRA BINDING OVERRIDE: Onyx attempted to AUTHORIZE without acknowledging %d security finding(s). Patterns: [%s]. Original reasoning: %s…",
			len(record.Findings),
			strings.Join(patternList, "; "),
			truncate(last.Reasoning, 200),
		),
	}
	record.Votes = append(record.Votes, override)

	emit.Emit(events.Event{Kind: events.HydraOverrideFired, Payload: map[string]any{
		"unacknowledged_findings": len(record.Findings),
	}})

	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
