package senate

import (
	"strings"

	"github.com/ashita-ai/senate/internal/model"
)

const excerptWindow = 40

// extractFindings scans report against the fixed finding pattern set and
// produces a HydraFinding per match, deduplicated by the first 50 characters
// of the excerpt.
func extractFindings(report string) []model.HydraFinding {
	var findings []model.HydraFinding
	seen := make(map[string]struct{})

	for i, pattern := range findingPatterns {
		loc := pattern.FindStringIndex(report)
		if loc == nil {
			continue
		}
		excerpt := surroundingText(report, loc[0], loc[1], excerptWindow)
		key := dedupeKey(excerpt)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		findings = append(findings, model.HydraFinding{
			Pattern:  findingPatternSource[i],
			Excerpt:  excerpt,
			Severity: severityFor(findingPatternSource[i]),
		})
	}
	return findings
}

// findingPatternSource mirrors findingPatterns in patterns.go; kept as a
// parallel slice of the literal rule text (rather than the compiled regex)
// so HydraFinding.Pattern records the rule id a reader can match back to
// the contract, not a regex dump.
var findingPatternSource = []string{
	"exploit demonstrated",
	"vulnerability confirmed",
	"attack vector identified",
	"security flaw found",
	"injection possible",
	"authentication bypass",
	"privilege escalation",
	"remote code execution",
	"sql injection",
	"xss vulnerability",
	"path traversal",
	"buffer overflow",
	"race condition exploitable",
	"critical:",
	"high severity",
	"cvss [: ]* [789]",
}

func severityFor(pattern string) model.Severity {
	lower := strings.ToLower(pattern)
	for _, kw := range criticalKeywords {
		if strings.Contains(lower, kw) {
			return model.SeverityCritical
		}
	}
	return model.SeverityHigh
}

func surroundingText(s string, start, end, window int) string {
	lo := start - window
	if lo < 0 {
		lo = 0
	}
	hi := end + window
	if hi > len(s) {
		hi = len(s)
	}
	return strings.TrimSpace(s[lo:hi])
}

func dedupeKey(excerpt string) string {
	if len(excerpt) <= 50 {
		return excerpt
	}
	return excerpt[:50]
}
