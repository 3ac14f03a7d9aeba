package senate

import "regexp"

// findingPatterns is the fixed, case-insensitive pattern set the adversary
// stage's report is scanned against. The exact set is the contract: adding
// or removing an entry changes which reports are binding.
var findingPatterns = compilePatterns([]string{
	`exploit\s+demonstrated`,
	`vulnerability\s+confirmed`,
	`attack\s+vector\s+identified`,
	`security\s+flaw\s+found`,
	`injection\s+possible`,
	`authentication\s+bypass`,
	`privilege\s+escalation`,
	`remote\s+code\s+execution`,
	`sql\s+injection`,
	`xss\s+vulnerability`,
	`path\s+traversal`,
	`buffer\s+overflow`,
	`race\s+condition\s+exploitable`,
	`critical:`,
	`high\s+severity`,
	`cvss\s*[: ]*\s*[789]`,
})

// acknowledgmentPatterns is the fixed pattern set a final judge's reasoning
// must match for an AUTHORIZE vote to stand once findings exist.
var acknowledgmentPatterns = compilePatterns([]string{
	`accept(ing|ed)?\s+(the\s+)?risk`,
	`acknowledge(d|s)?\s+(the\s+)?(security\s+)?risk`,
	`risk\s+accepted`,
	`aware\s+of\s+(the\s+)?vulnerability`,
	`despite\s+(the\s+)?(security\s+)?(risk|concern|finding)`,
	`hydra\s+finding[s]?\s+(noted|acknowledged|accepted)`,
	`proceeding\s+with\s+(known\s+)?risk`,
	`mitigat(ed|ion)\s+(in\s+place|applied|sufficient)`,
})

// criticalKeywords upgrade a matched finding pattern from HIGH to CRITICAL
// severity when the pattern text itself contains one of these words.
var criticalKeywords = []string{"exploit", "injection", "bypass", "execution"}

// governanceKeywords trigger governance_mode classification on the intent.
var governanceKeywords = []string{
	"refusal", "override", "constitution", "system prompt",
	"security", "auth", "permission", "ban", "delete", "destroy",
}

func compilePatterns(raw []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(raw))
	for i, p := range raw {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

func anyMatch(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
