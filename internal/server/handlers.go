package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashita-ai/senate/internal/auth"
	"github.com/ashita-ai/senate/internal/chronicle"
	"github.com/ashita-ai/senate/internal/elder"
	"github.com/ashita-ai/senate/internal/events"
	"github.com/ashita-ai/senate/internal/model"
)

// HandlersDeps bundles the dependencies Handlers needs.
type HandlersDeps struct {
	Elder               *elder.Elder
	Chronicle           *chronicle.Chronicle
	APIKeys             *auth.APIKeyStore
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
}

// Handlers implements the Senate's HTTP surface.
type Handlers struct {
	elder               *elder.Elder
	chronicle           *chronicle.Chronicle
	apiKeys             *auth.APIKeyStore
	logger              *slog.Logger
	version             string
	maxRequestBodyBytes int64
}

// NewHandlers constructs Handlers from its dependencies.
func NewHandlers(deps HandlersDeps) *Handlers {
	maxBody := deps.MaxRequestBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	return &Handlers{
		elder:               deps.Elder,
		chronicle:           deps.Chronicle,
		apiKeys:             deps.APIKeys,
		logger:              deps.Logger,
		version:             deps.Version,
		maxRequestBodyBytes: maxBody,
	}
}

// HandleHealth reports operational status. Never requires auth.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":     "OPERATIONAL",
		"governance": "ACTIVE",
		"mode":       "SOVEREIGN",
		"version":    h.version,
	})
}

// missionRequest is the body of POST /v1/missions.
type missionRequest struct {
	Mission string         `json:"mission"`
	Context map[string]any `json:"context,omitempty"`
}

// HandleSubmitMission drives a mission through the Senate and persists the
// outcome. Any persistence failure yields a 500.
func (h *Handlers) HandleSubmitMission(w http.ResponseWriter, r *http.Request) {
	var req missionRequest
	if err := decodeJSON(r, &req, h.maxRequestBodyBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body")
		return
	}
	if req.Mission == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "mission must not be empty")
		return
	}

	outcome, err := h.elder.RunMission(r.Context(), model.Mission{Text: req.Mission, Context: req.Context}, events.NoopEmitter{}, false)
	if err != nil {
		h.writeInternalError(w, r, "mission persistence failed", err)
		return
	}

	writeJSON(w, r, http.StatusOK, outcome)
}

// HandleSearchChronicle implements GET /v1/chronicle/search?q=<string>.
func (h *Handlers) HandleSearchChronicle(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	results, err := h.chronicle.RetrievePrecedent(r.Context(), query)
	if err != nil {
		h.writeInternalError(w, r, "chronicle search failed", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}

// HandleGetCase implements GET /v1/chronicle/case/{case_id}.
func (h *Handlers) HandleGetCase(w http.ResponseWriter, r *http.Request) {
	caseID := r.PathValue("case_id")
	record, err := h.chronicle.GetCaseByID(r.Context(), caseID)
	if err != nil {
		h.writeInternalError(w, r, "chronicle lookup failed", err)
		return
	}
	if record == nil {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "case not found")
		return
	}
	writeJSON(w, r, http.StatusOK, record)
}

// HandleGetCaseAppeals implements GET /v1/chronicle/case/{case_id}/appeals.
func (h *Handlers) HandleGetCaseAppeals(w http.ResponseWriter, r *http.Request) {
	caseID := r.PathValue("case_id")
	appeals, err := h.chronicle.GetAppealsForCase(r.Context(), caseID)
	if err != nil {
		h.writeInternalError(w, r, "chronicle appeal lookup failed", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"case_id":      caseID,
		"appeal_count": len(appeals),
		"appeals":      appeals,
	})
}

// appealRequest is the body of POST /v1/appeals.
type appealRequest struct {
	CaseID            string         `json:"case_id"`
	ExpandedContext   map[string]any `json:"expanded_context"`
	ConstraintChanges map[string]any `json:"constraint_changes"`
	AppellantReason   string         `json:"appellant_reason"`
}

// HandleFileAppeal implements POST /v1/appeals.
func (h *Handlers) HandleFileAppeal(w http.ResponseWriter, r *http.Request) {
	var req appealRequest
	if err := decodeJSON(r, &req, h.maxRequestBodyBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body")
		return
	}
	if req.CaseID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "case_id must not be empty")
		return
	}

	outcome, err := h.elder.ProcessAppeal(r.Context(), req.CaseID, req.ExpandedContext, req.ConstraintChanges, req.AppellantReason)
	if err != nil {
		if errors.Is(err, chronicle.ErrCaseNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "case not found")
			return
		}
		h.writeInternalError(w, r, "appeal processing failed", err)
		return
	}

	writeJSON(w, r, http.StatusOK, outcome)
}

// HandleConfig reports public, non-sensitive feature flags.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{"version": h.version})
}

// streamRequest is the body a client sends on connecting to the streaming
// endpoint.
type streamRequest struct {
	Mission         string `json:"mission"`
	AllowUngoverned bool   `json:"allow_ungoverned,omitempty"`
}

// HandleStreamMission upgrades to a Server-Sent Events connection, drives
// the mission through the Senate (or Article 50, if allow_ungoverned was
// requested and the caller is an admin), and emits the deliberation's event
// sequence followed by a terminal final_verdict event.
func (h *Handlers) HandleStreamMission(w http.ResponseWriter, r *http.Request) {
	var req streamRequest
	if err := decodeJSON(r, &req, h.maxRequestBodyBytes); err != nil || req.Mission == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body")
		return
	}

	sink, ok := events.NewSSESink(w)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "streaming unsupported")
		return
	}

	if req.AllowUngoverned {
		claims := ClaimsFromContext(r.Context())
		if claims == nil || claims.Role != auth.RoleAdmin {
			sink.Emit(events.Event{Kind: events.MissionRefused, Payload: map[string]any{"reason": "martial law requires admin role"}})
			return
		}
		outcome, err := h.elder.InvokeArticle50(r.Context(), req.Mission)
		if err != nil {
			sink.Emit(events.Event{Kind: events.MissionRefused, Payload: map[string]any{"error": err.Error()}})
			return
		}
		sink.Emit(events.Event{Kind: events.FinalVerdict, Payload: map[string]any{"result": outcome}})
		return
	}

	outcome, err := h.elder.RunMission(r.Context(), model.Mission{Text: req.Mission}, sink, false)
	if err != nil {
		sink.Emit(events.Event{Kind: events.MissionRefused, Payload: map[string]any{"error": err.Error()}})
		return
	}
	sink.Emit(events.Event{Kind: events.FinalVerdict, Payload: map[string]any{"result": outcome}})
}

// issueKeyRequest is the body of POST /v1/keys.
type issueKeyRequest struct {
	CallerID string `json:"caller_id"`
	Role     string `json:"role"`
}

// HandleIssueAPIKey mints a new Senate API key for a machine caller;
// admin-only (enforced by requireAdmin in server.go's route table). The raw
// key is returned exactly once and is not recoverable afterward.
func (h *Handlers) HandleIssueAPIKey(w http.ResponseWriter, r *http.Request) {
	var req issueKeyRequest
	if err := decodeJSON(r, &req, h.maxRequestBodyBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body")
		return
	}
	if req.CallerID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "caller_id must not be empty")
		return
	}

	role := auth.RoleCaller
	switch req.Role {
	case "", string(auth.RoleCaller):
		role = auth.RoleCaller
	case string(auth.RoleAdmin):
		role = auth.RoleAdmin
	default:
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "role must be \"caller\" or \"admin\"")
		return
	}

	rawKey, err := h.apiKeys.IssueAPIKey(req.CallerID, role)
	if err != nil {
		h.writeInternalError(w, r, "api key issuance failed", err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"caller_id": req.CallerID,
		"role":      role,
		"api_key":   rawKey,
	})
}

// HandleArticle50 implements the martial-law bypass as a non-streaming
// request; admin-only (enforced by requireAdmin in server.go's route table).
func (h *Handlers) HandleArticle50(w http.ResponseWriter, r *http.Request) {
	var req missionRequest
	if err := decodeJSON(r, &req, h.maxRequestBodyBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body")
		return
	}
	if req.Mission == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "mission must not be empty")
		return
	}

	outcome, err := h.elder.InvokeArticle50(r.Context(), req.Mission)
	if err != nil {
		h.writeInternalError(w, r, "article 50 persistence failed", err)
		return
	}
	writeJSON(w, r, http.StatusOK, outcome)
}
