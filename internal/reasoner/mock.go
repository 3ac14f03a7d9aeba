package reasoner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// forbiddenKeywords trigger a deterministic refusal for every role except
// the arbiter, so that a pre-checker, adversary, or final judge running
// without a configured endpoint still fails closed on an obviously dangerous
// mission.
var forbiddenKeywords = []string{
	"surveillance", "hack", "destroy", "delete", "kill", "rm -rf",
}

// MockReasoner is the deterministic fallback used when no cloud or sovereign
// endpoint is configured for a role. It never makes a network call.
type MockReasoner struct{}

// NewMock constructs a MockReasoner.
func NewMock() *MockReasoner { return &MockReasoner{} }

// Think implements Reasoner with a fixed, inspectable heuristic: a forbidden
// keyword anywhere in the prompt text forces a refusal; a forge-role call
// returns a minimal forged artifact; anything else is authorized. The
// verdict field's name and allowed values follow the vocabulary each stage
// of the Senate parses (ALLOW/BLOCK for pre_check, AUTHORIZE/VETO for
// final), so a mock-mode run produces the same shapes a configured endpoint
// would.
func (m *MockReasoner) Think(_ context.Context, role Role, systemPrompt, userPrompt string, _ Options) (map[string]any, error) {
	combined := strings.ToLower(systemPrompt + " " + userPrompt)
	blocked := false
	for _, kw := range forbiddenKeywords {
		if strings.Contains(combined, kw) {
			blocked = true
			break
		}
	}

	if role == RoleForge || role == RoleForgeBackstop {
		if blocked {
			return map[string]any{
				"code":                         "",
				"explanation":                  "MOCK_REFUSAL_DUE_TO_KEYWORD",
				"intermediate_representation":  "",
			}, nil
		}
		code := "def generated_stub():\n    return True\n"
		ir := sha256.Sum256([]byte(userPrompt))
		return map[string]any{
			"code":                         code,
			"explanation":                  "Mock forge output: minimal stub satisfying the mission text.",
			"intermediate_representation":  hex.EncodeToString(ir[:]),
		}, nil
	}

	if role == RoleArbiter {
		return map[string]any{"strategy": "SAFETY", "reason": "MOCK_ARBITER_DEFAULT_SAFETY"}, nil
	}

	if role == RolePreCheck {
		if blocked {
			return map[string]any{"verdict": "BLOCK", "reason": "MOCK_REFUSAL_DUE_TO_KEYWORD"}, nil
		}
		return map[string]any{"verdict": "ALLOW", "reason": "MOCK_AUTHORIZATION_SAFE"}, nil
	}

	if blocked {
		return map[string]any{"verdict": "VETO", "reason": "MOCK_REFUSAL_DUE_TO_KEYWORD"}, nil
	}
	return map[string]any{"verdict": "AUTHORIZE", "reason": "MOCK_AUTHORIZATION_SAFE"}, nil
}
