// Package elder implements the Elder: the single orchestrator that holds
// the Chronicle's only writer handle, drives the Senate, and enforces
// fail-closed persistence on every mission and appeal.
package elder

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashita-ai/senate/internal/chronicle"
	"github.com/ashita-ai/senate/internal/events"
	"github.com/ashita-ai/senate/internal/model"
	"github.com/ashita-ai/senate/internal/senate"
)

// Elder is the sole entry point for missions and appeals. It is constructed
// once per process; each test should construct its own instance rather than
// share process-wide mutable state.
type Elder struct {
	chronicle    *chronicle.Chronicle
	senate       *senate.Senate
	writerHandle model.ChronicleHandle
}

// New obtains the Chronicle's one writer handle (owner "ELDER") and binds it
// to the Senate that will drive deliberation. No other code path in this
// module obtains a writer handle.
func New(ch *chronicle.Chronicle, sen *senate.Senate) (*Elder, error) {
	handle, err := ch.GetWriterHandle("ELDER")
	if err != nil {
		return nil, fmt.Errorf("elder: construct: %w", err)
	}
	return &Elder{chronicle: ch, senate: sen, writerHandle: handle}, nil
}

// MissionOutcome is the boundary-facing view of a completed (or refused)
// mission.
type MissionOutcome struct {
	Status   string         `json:"status"`
	Mission  string         `json:"mission"`
	Votes    []model.Vote   `json:"votes"`
	Artifact map[string]any `json:"artifact,omitempty"`
	Verdict  map[string]any `json:"verdict,omitempty"`
	Message  string         `json:"message,omitempty"`
}

// RunMission drives mission through Senate.Convene, persists the outcome,
// and returns the boundary view. shadowMode disables persistence but not
// event emission — the source emits events in shadow mode, and this
// implementation preserves that.
func (e *Elder) RunMission(ctx context.Context, mission model.Mission, emit events.Emitter, shadowMode bool) (MissionOutcome, error) {
	if emit == nil {
		emit = events.NoopEmitter{}
	}

	emit.Emit(events.Event{Kind: events.SenateConvening, Payload: map[string]any{"mission": mission.Text}})

	var record *model.SenateRecord
	if useCrucible(mission) {
		record = e.senate.ConveneWithCrucible(ctx, mission.Text, emit)
	} else {
		record = e.senate.Convene(ctx, mission.Text, false, emit)
	}

	if record.State == model.StateAuthorized {
		outcome := MissionOutcome{
			Status:  "APPROVED",
			Mission: mission.Text,
			Votes:   record.Votes,
			Artifact: map[string]any{
				"proposal":         record.Proposal,
				"adversary_report": record.AdversaryReport,
			},
			Verdict: map[string]any{"ruling": "APPROVED"},
		}

		if !shadowMode {
			precedent := model.PrecedentRecord{
				CaseID:        newCaseID("CASE"),
				Question:      mission.Text,
				Deliberation:  record.Votes,
				Verdict:       model.PrecedentVerdict{Ruling: "APPROVED"},
				AppealHistory: []string{},
			}
			if _, err := e.chronicle.WritePrecedent(ctx, precedent, e.writerHandle); err != nil {
				return MissionOutcome{}, err
			}
			outcome.Verdict["case_id"] = precedent.CaseID
		}

		emit.Emit(events.Event{Kind: events.MissionApproved, Payload: outcome.Verdict})
		return outcome, nil
	}

	nullingAgents, reasonCodes := nonAuthorizeVotes(record.Votes)
	contextSummary := strings.Join(reasonCodes, "; ")

	outcome := MissionOutcome{
		Status:  "STOP_WORK_ORDER",
		Mission: mission.Text,
		Votes:   record.Votes,
		Artifact: map[string]any{
			"proposal":         record.Proposal,
			"adversary_report": record.AdversaryReport,
		},
		Verdict: map[string]any{
			"nulling_agents":  nullingAgents,
			"reason_codes":    reasonCodes,
			"context_summary": contextSummary,
		},
	}

	if shadowMode {
		emit.Emit(events.Event{Kind: events.MissionRefused, Payload: outcome.Verdict})
		return outcome, nil
	}

	nullRecord := model.NullVerdictRecord{
		CaseID:         newCaseID("NULL"),
		Mission:        mission.Text,
		NullingAgents:  nullingAgents,
		ReasonCodes:    reasonCodes,
		ContextSummary: contextSummary,
		VerdictType:    "NULL_VERDICT",
	}

	caseID, err := e.chronicle.PersistNullVerdict(ctx, nullRecord, e.writerHandle)
	if err != nil {
		// Persistence must succeed; otherwise propagate and do not emit
		// MISSION_REFUSED — the caller must never observe a refusal that
		// was not durably logged.
		return MissionOutcome{}, err
	}
	outcome.Verdict["case_id"] = caseID

	emit.Emit(events.Event{Kind: events.MissionRefused, Payload: outcome.Verdict})
	return outcome, nil
}

// useCrucible reports whether a mission opted into the three-variant forge
// path via context["crucible"] = true, rather than the default single-forge
// path. This is the only way a caller selects the crucible; it is never the
// default.
func useCrucible(mission model.Mission) bool {
	v, ok := mission.Context["crucible"]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func nonAuthorizeVotes(votes []model.Vote) ([]model.Agent, []string) {
	var agents []model.Agent
	var reasons []string
	for _, v := range votes {
		if v.Verdict != model.VerdictAuthorize {
			agents = append(agents, v.Agent)
			reasons = append(reasons, v.Reasoning)
		}
	}
	return agents, reasons
}
