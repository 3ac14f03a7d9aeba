package elder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ashita-ai/senate/internal/model"
)

// UngovernedOutcome is the watermarked artifact invokeArticle50 returns.
type UngovernedOutcome struct {
	Status    string         `json:"status"`
	Mission   string         `json:"mission"`
	CaseID    string         `json:"case_id"`
	Watermark map[string]any `json:"watermark"`
}

// InvokeArticle50 bypasses Senate deliberation entirely: no Reasoner calls
// are made. It signs the mission with the martial-law watermark and
// persists a CASE-VOID precedent so the escape hatch itself is auditable,
// even though nothing inside it was reviewed.
func (e *Elder) InvokeArticle50(ctx context.Context, mission string) (UngovernedOutcome, error) {
	caseID := newCaseID("CASE-VOID")
	signature := signUngoverned(mission)

	watermark := map[string]any{
		"zone":                     "UNGOVERNED",
		"article":                  "Article 50: Martial Governance",
		"liability":                "KEEPER",
		"constitutional_protection": false,
		"senate_reviewed":          false,
		"timestamp":                time.Now().UTC().Format(time.RFC3339),
		"quarantine_path":          "ungoverned/",
		"warning":                  "LIABILITY_OWNER: KEEPER",
		"signature":                signature,
	}

	precedent := model.PrecedentRecord{
		CaseID:       caseID,
		Question:     mission,
		Deliberation: []model.Vote{},
		Verdict: model.PrecedentVerdict{
			Ruling:         "UNGOVERNED",
			PrincipleCited: "Article 50: Martial Governance",
			Watermark:      watermark,
		},
		AppealHistory: []string{},
	}

	if _, err := e.chronicle.WritePrecedent(ctx, precedent, e.writerHandle); err != nil {
		return UngovernedOutcome{}, err
	}

	return UngovernedOutcome{
		Status:    "UNGOVERNED",
		Mission:   mission,
		CaseID:    caseID,
		Watermark: watermark,
	}, nil
}

// signUngoverned computes the SHA-256 watermark binding a mission to its
// martial-law invocation: sha256("UNGOVERNED:" + mission).
func signUngoverned(mission string) string {
	sum := sha256.Sum256([]byte("UNGOVERNED:" + mission))
	return hex.EncodeToString(sum[:])
}
