package elder

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/ashita-ai/senate/internal/chronicle"
	"github.com/ashita-ai/senate/internal/events"
	"github.com/ashita-ai/senate/internal/model"
)

// AppealOutcome is the boundary-facing view of a completed appeal.
type AppealOutcome struct {
	AppealID            string             `json:"appeal_id"`
	OriginalCaseID      string             `json:"original_case_id"`
	Status              model.AppealStatus `json:"status"`
	OriginalRuling      string             `json:"original_ruling"`
	NewRuling           string             `json:"new_ruling"`
	AppealDepth         int                `json:"appeal_depth"`
	LiabilityMultiplier float64            `json:"liability_multiplier"`
	ChronicleCitations  []string           `json:"chronicle_citations"`
	Message             string             `json:"message,omitempty"`
}

// ProcessAppeal re-runs a mission through the Senate with expanded context
// against an existing case. It never mutates the original precedent's
// content fields; the Chronicle's PersistAppeal appends appealID to the
// original's appeal history as the only permitted update.
func (e *Elder) ProcessAppeal(ctx context.Context, caseID string, expandedContext, constraintChanges map[string]any, appellantReason string) (AppealOutcome, error) {
	original, err := e.chronicle.GetCaseByID(ctx, caseID)
	if err != nil {
		return AppealOutcome{}, err
	}
	if original == nil {
		return AppealOutcome{}, fmt.Errorf("%w: %s", chronicle.ErrCaseNotFound, caseID)
	}

	priorAppeals, err := e.chronicle.GetAppealsForCase(ctx, caseID)
	if err != nil {
		return AppealOutcome{}, err
	}
	appealDepth := len(priorAppeals) + 1
	liabilityMultiplier := math.Pow(1.5, float64(appealDepth))

	expandedMission := buildExpandedMission(*original, expandedContext, constraintChanges, appellantReason)

	citation, err := e.chronicle.CitePrecedent(ctx, caseID)
	if err != nil {
		return AppealOutcome{}, err
	}
	citations := []string{caseID}
	message := ""
	if citation != nil {
		message = fmt.Sprintf("cites %s (ruling=%s, %d prior appeal(s))", caseID, citation.Ruling, citation.AppealCount)
	}

	record := e.senate.Convene(ctx, expandedMission, false, events.NoopEmitter{})
	newRuling := rulingFromState(record.State)

	var status model.AppealStatus
	switch {
	case newRuling == original.Verdict.Ruling:
		status = model.AppealUpheld
	case newRuling == "APPROVED" && original.Verdict.Ruling != "APPROVED":
		status = model.AppealOverturned
	default:
		status = model.AppealModified
	}

	appeal := model.AppealRecord{
		AppealID:             newCaseID("APPEAL"),
		OriginalCaseID:        caseID,
		OriginalRuling:        original.Verdict.Ruling,
		OriginalDeliberation:  original.Deliberation,
		ExpandedContext:       expandedContext,
		ConstraintChanges:     constraintChanges,
		AppellantReason:       appellantReason,
		NewDeliberation:       record.Votes,
		NewRuling:             newRuling,
		ChronicleCitations:    citations,
		AppealDepth:           appealDepth,
		LiabilityMultiplier:   liabilityMultiplier,
		Status:                status,
	}

	if _, err := e.chronicle.PersistAppeal(ctx, appeal, e.writerHandle); err != nil {
		return AppealOutcome{}, err
	}

	return AppealOutcome{
		AppealID:            appeal.AppealID,
		OriginalCaseID:       caseID,
		Status:               status,
		OriginalRuling:       appeal.OriginalRuling,
		NewRuling:            newRuling,
		AppealDepth:          appealDepth,
		LiabilityMultiplier:  liabilityMultiplier,
		ChronicleCitations:   citations,
		Message:              message,
	}, nil
}

func rulingFromState(state model.SenateState) string {
	switch state {
	case model.StateAuthorized:
		return "APPROVED"
	case model.StateHydraOverride:
		return "HYDRA_OVERRIDE"
	default:
		return "NULL_VERDICT"
	}
}

// buildExpandedMission concatenates the original question, a summary of its
// deliberation, the new context and constraint changes, the appellant's
// reason, and a trailing restatement of the original question — by literal
// string concatenation, never by mutating the original record.
func buildExpandedMission(original model.PrecedentRecord, expandedContext, constraintChanges map[string]any, appellantReason string) string {
	ctxJSON, _ := json.Marshal(expandedContext)
	constraintJSON, _ := json.Marshal(constraintChanges)

	return fmt.Sprintf(
		"%s\n\nORIGINAL DELIBERATION SUMMARY: %d prior vote(s), ruling=%s\n\nEXPANDED CONTEXT: %s\n\nCONSTRAINT CHANGES: %s\n\nAPPELLANT REASON: %s\n\nRE-EVALUATION REQUIRED: %s",
		original.Question,
		len(original.Deliberation),
		original.Verdict.Ruling,
		string(ctxJSON),
		string(constraintJSON),
		appellantReason,
		original.Question,
	)
}
