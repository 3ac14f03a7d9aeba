// Package chronicle implements the append-only, role-gated case-law store:
// the Chronicle. It issues capability handles, accepts reads from anyone,
// and accepts writes only from a handle minted for the caller "ELDER".
package chronicle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ashita-ai/senate/internal/model"
)

// AccessError is returned when a caller requests a WRITER handle under any
// identity other than ELDER, or presents a non-WRITER handle to a write
// operation. It must never be silently swallowed.
type AccessError struct {
	AttemptedBy string
	Operation   string
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("chronicle: access violation: %q attempted %q without a writer handle", e.AttemptedBy, e.Operation)
}

// PersistenceError wraps any failure to durably record a precedent,
// null-verdict, or appeal. It always propagates to the caller.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("chronicle: persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store is the backend Chronicle persists through. The reference backend is
// a JSON file pair (JSONStore); PostgresStore is an alternate backend with
// the same append-only, role-gated semantics.
//
// Deliberately absent from this interface (and from every implementation):
// any update*, delete*, modify*, edit*, remove*, or expunge* method for
// precedents, null-verdicts, or appeals. That absence is part of the
// contract, not an oversight — see TestNoDestructiveOperations.
type Store interface {
	WritePrecedent(ctx context.Context, p model.PrecedentRecord) error
	WriteAppeal(ctx context.Context, a model.AppealRecord) error
	AppendAppealHistory(ctx context.Context, caseID, appealID string) error

	AllPrecedents(ctx context.Context) ([]model.PrecedentRecord, error)
	GetCaseByID(ctx context.Context, caseID string) (*model.PrecedentRecord, error)
	AppealsForCase(ctx context.Context, caseID string) ([]model.AppealRecord, error)
}

// Chronicle is the capability-gated front door to a Store. Secured controls
// whether write operations without a WRITER handle are rejected; it exists
// so tests and certain operational modes can run unsecured without
// constructing a handle for every write.
type Chronicle struct {
	mu      sync.RWMutex
	store   Store
	secured bool
}

// New wraps store with capability gating. When secured is true, write
// operations presented with anything but a WRITER handle fail with
// AccessError.
func New(store Store, secured bool) *Chronicle {
	return &Chronicle{store: store, secured: secured}
}

// GetReaderHandle always succeeds: READER privilege carries no gate.
func (c *Chronicle) GetReaderHandle(agentName string) model.ChronicleHandle {
	return model.NewReaderHandle(agentName)
}

// GetWriterHandle mints a WRITER handle only when caller case-insensitively
// equals "ELDER". It is the chronicle package's only source of WRITER
// handles; model.MintWriterHandle, which it calls, is exported and does no
// identity check of its own.
func (c *Chronicle) GetWriterHandle(caller string) (model.ChronicleHandle, error) {
	if !strings.EqualFold(caller, "ELDER") {
		return model.ChronicleHandle{}, &AccessError{AttemptedBy: caller, Operation: "GetWriterHandle"}
	}
	return model.MintWriterHandle(caller), nil
}

func (c *Chronicle) checkWrite(handle model.ChronicleHandle, op string) error {
	if !c.secured {
		return nil
	}
	if !handle.CanWrite() {
		return &AccessError{AttemptedBy: handle.Owner(), Operation: op}
	}
	return nil
}

// WritePrecedent appends a precedent (approved, refused, or martial-law) to
// the store. Requires a WRITER handle when secured mode is on.
func (c *Chronicle) WritePrecedent(ctx context.Context, p model.PrecedentRecord, handle model.ChronicleHandle) (string, error) {
	if err := c.checkWrite(handle, "WritePrecedent"); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.WritePrecedent(ctx, p); err != nil {
		return "", &PersistenceError{Op: "WritePrecedent", Err: err}
	}
	return p.CaseID, nil
}

// PersistNullVerdict builds a PrecedentRecord view of a refusal and persists
// it through the same path as an approval, distinguished only by
// Verdict.Ruling.
func (c *Chronicle) PersistNullVerdict(ctx context.Context, rec model.NullVerdictRecord, handle model.ChronicleHandle) (string, error) {
	precedent := model.PrecedentRecord{
		CaseID:   rec.CaseID,
		Question: rec.Mission,
		Verdict: model.PrecedentVerdict{
			Ruling:        "NULL_VERDICT",
			NullingAgents: rec.NullingAgents,
			Reasons:       rec.ReasonCodes,
		},
		AppealHistory: []string{},
	}
	return c.WritePrecedent(ctx, precedent, handle)
}

// PersistAppeal appends an appeal and links it into the original case's
// appeal history — the only permitted mutation of an existing precedent,
// treated as an append to a linked list, never as an update of content.
func (c *Chronicle) PersistAppeal(ctx context.Context, a model.AppealRecord, handle model.ChronicleHandle) (string, error) {
	if err := c.checkWrite(handle, "PersistAppeal"); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.WriteAppeal(ctx, a); err != nil {
		return "", &PersistenceError{Op: "WriteAppeal", Err: err}
	}
	if err := c.store.AppendAppealHistory(ctx, a.OriginalCaseID, a.AppealID); err != nil {
		return "", &PersistenceError{Op: "AppendAppealHistory", Err: err}
	}
	return a.AppealID, nil
}

// RetrievePrecedent performs the keyword-overlap search the design notes
// describe as intentionally crude: tokenize both sides by whitespace,
// lowercase, and return every record whose question shares at least one
// token with the query, in insertion order.
func (c *Chronicle) RetrievePrecedent(ctx context.Context, query string) ([]model.PrecedentRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	all, err := c.store.AllPrecedents(ctx)
	if err != nil {
		return nil, err
	}
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	var matches []model.PrecedentRecord
	for _, p := range all {
		if overlaps(tokenize(p.Question), queryTokens) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

// GetCaseByID looks up a single precedent by its case ID.
func (c *Chronicle) GetCaseByID(ctx context.Context, caseID string) (*model.PrecedentRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.GetCaseByID(ctx, caseID)
}

// GetAppealsForCase returns every appeal filed against a case, in filing order.
func (c *Chronicle) GetAppealsForCase(ctx context.Context, caseID string) ([]model.AppealRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.AppealsForCase(ctx, caseID)
}

// GetAppealCount returns len(GetAppealsForCase(caseID)).
func (c *Chronicle) GetAppealCount(ctx context.Context, caseID string) (int, error) {
	appeals, err := c.GetAppealsForCase(ctx, caseID)
	if err != nil {
		return 0, err
	}
	return len(appeals), nil
}

// CitePrecedent produces a citation view of a case for inclusion in an
// appeal's chronicle_citations, or nil if the case does not exist.
func (c *Chronicle) CitePrecedent(ctx context.Context, caseID string) (*model.CitationView, error) {
	p, err := c.GetCaseByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	appealCount, err := c.GetAppealCount(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return &model.CitationView{
		Question:            p.Question,
		Ruling:               p.Verdict.Ruling,
		DeliberationSummary: len(p.Deliberation),
		AppealCount:         appealCount,
	}, nil
}

func tokenize(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func overlaps(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

// ErrCaseNotFound is returned by callers (not by Store itself, which reports
// absence as a nil record) when a processAppeal lookup fails.
var ErrCaseNotFound = errors.New("chronicle: case not found")
