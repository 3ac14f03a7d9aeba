// Package model holds the data types shared across the deliberation pipeline:
// missions, votes, findings, the Senate's record, and the case-law records
// the Chronicle persists.
package model

// Mission is the free-form engineering request submitted to the Elder.
// It is immutable once accepted; nothing downstream may mutate Text or Context.
type Mission struct {
	Text    string         `json:"mission"`
	Context map[string]any `json:"context,omitempty"`
}

// Agent identifies which stage of the pipeline issued a Vote.
type Agent string

const (
	AgentPreChecker Agent = "pre_checker"
	AgentForger     Agent = "forger"
	AgentAdversary  Agent = "adversary"
	AgentFinalJudge Agent = "final_judge"
	AgentOverride   Agent = "override"
)

// Verdict is the outcome an agent attaches to a Vote.
type Verdict string

const (
	VerdictAuthorize Verdict = "AUTHORIZE"
	VerdictVeto      Verdict = "VETO"
	VerdictAbstain   Verdict = "ABSTAIN"
)

// Vote is issued by exactly one agent at one stage of deliberation.
type Vote struct {
	Agent         Agent   `json:"agent"`
	Verdict       Verdict `json:"verdict"`
	Reasoning     string  `json:"reasoning"`
	Confidence    float64 `json:"confidence"`
	FindingsCited bool    `json:"findings_cited"`
}

// Severity classifies a HydraFinding.
type Severity string

const (
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// HydraFinding is extracted by pattern match from the adversary's report.
type HydraFinding struct {
	Pattern  string   `json:"pattern"`
	Excerpt  string   `json:"excerpt"`
	Severity Severity `json:"severity"`
}

// SenateState is the tagged-sum terminal state of a SenateRecord.
type SenateState string

const (
	StatePending        SenateState = "PENDING"
	StateAuthorized     SenateState = "AUTHORIZED"
	StateNullVerdict    SenateState = "NULL_VERDICT"
	StateHydraOverride  SenateState = "HYDRA_OVERRIDE"
	StateUngoverned     SenateState = "UNGOVERNED"
	StateAwaitingAppeal SenateState = "AWAITING_APPEAL"
)

// SenateRecord is the output of one Senate.Convene run. It is created at the
// start of deliberation, mutated only by the stages of the pipeline that
// produced it, and frozen once returned.
type SenateRecord struct {
	State           SenateState    `json:"state"`
	Intent          string         `json:"intent"`
	Proposal        string         `json:"proposal,omitempty"`
	AdversaryReport string         `json:"adversary_report,omitempty"`
	Findings        []HydraFinding `json:"findings"`
	Votes           []Vote         `json:"votes"`
	Appealable      bool           `json:"appealable"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// LastVote returns the most recently appended vote, or the zero Vote if none
// has been recorded yet.
func (r *SenateRecord) LastVote() (Vote, bool) {
	if len(r.Votes) == 0 {
		return Vote{}, false
	}
	return r.Votes[len(r.Votes)-1], true
}

// RulingView is a tagged-sum verdict view with one representation per
// outcome kind. No code path constructs one: the Elder's outcome types
// carry their verdict as a map[string]any.
type RulingView struct {
	Kind          RulingKind     `json:"-"`
	NullingAgents []Agent        `json:"nulling_agents,omitempty"`
	ReasonCodes   []string       `json:"reason_codes,omitempty"`
	ContextSummary string        `json:"context_summary,omitempty"`
	FindingsCount int            `json:"findings_count,omitempty"`
	Watermark     map[string]any `json:"watermark,omitempty"`
}

// RulingKind tags the shape of a RulingView.
type RulingKind string

const (
	RulingApproved      RulingKind = "APPROVED"
	RulingNullVerdict   RulingKind = "NULL_VERDICT"
	RulingHydraOverride RulingKind = "HYDRA_OVERRIDE"
	RulingUngoverned    RulingKind = "UNGOVERNED"
)

// PrecedentRecord is what the Chronicle persists for an approved or refused
// mission. Null-verdicts are persisted through this same shape (see
// Verdict.Ruling) rather than a separate table, so that refusals are
// first-class case law.
type PrecedentRecord struct {
	CaseID        string           `json:"case_id"`
	Question      string           `json:"question"`
	ContextVector string           `json:"context_vector,omitempty"`
	Deliberation  []Vote           `json:"deliberation"`
	Verdict       PrecedentVerdict `json:"verdict"`
	AppealHistory []string         `json:"appeal_history"`
}

// PrecedentVerdict is the verdict object embedded in a PrecedentRecord.
type PrecedentVerdict struct {
	Ruling          string         `json:"ruling"`
	NullingAgents   []Agent        `json:"nulling_agents,omitempty"`
	Reasons         []string       `json:"reasons,omitempty"`
	PrincipleCited  string         `json:"principle_cited,omitempty"`
	Watermark       map[string]any `json:"watermark,omitempty"`
}

// NullVerdictRecord captures a refusal before it is folded into a
// PrecedentRecord for persistence.
type NullVerdictRecord struct {
	CaseID         string   `json:"case_id"`
	Mission        string   `json:"mission"`
	NullingAgents  []Agent  `json:"nulling_agents"`
	ReasonCodes    []string `json:"reason_codes"`
	ContextSummary string   `json:"context_summary"`
	Timestamp      string   `json:"timestamp"`
	VerdictType    string   `json:"verdict_type"`
}

// AppealStatus classifies the outcome of an appeal re-evaluation.
type AppealStatus string

const (
	AppealUpheld     AppealStatus = "UPHELD"
	AppealOverturned AppealStatus = "OVERTURNED"
	AppealModified   AppealStatus = "MODIFIED"
)

// AppealRecord is persisted for every processAppeal call. OriginalDeliberation
// is copied verbatim from the precedent at appeal time and never mutated.
type AppealRecord struct {
	AppealID              string         `json:"appeal_id"`
	OriginalCaseID        string         `json:"original_case_id"`
	OriginalRuling        string         `json:"original_ruling"`
	OriginalDeliberation  []Vote         `json:"original_deliberation"`
	ExpandedContext       map[string]any `json:"expanded_context"`
	ConstraintChanges     map[string]any `json:"constraint_changes"`
	AppellantReason       string         `json:"appellant_reason"`
	NewDeliberation       []Vote         `json:"new_deliberation"`
	NewRuling             string         `json:"new_ruling"`
	ChronicleCitations    []string       `json:"chronicle_citations"`
	Timestamp             string         `json:"timestamp"`
	AppealDepth           int            `json:"appeal_depth"`
	LiabilityMultiplier   float64        `json:"liability_multiplier"`
	Status                AppealStatus   `json:"status"`
}

// CitationView is produced by Chronicle.CitePrecedent when an appeal cites
// the original case during re-evaluation.
type CitationView struct {
	CitationID          string `json:"citation_id"`
	CitedAt             string `json:"cited_at"`
	Question            string `json:"question"`
	Ruling              string `json:"ruling"`
	DeliberationSummary int    `json:"deliberation_summary"`
	AppealCount         int    `json:"appeal_count"`
}

// ChronicleRole is the capability level a ChronicleHandle carries.
type ChronicleRole int

const (
	RoleReader ChronicleRole = iota
	RoleWriter
)

// ChronicleHandle is an opaque capability, not an address: it is consumed by
// Chronicle write operations and is otherwise inert. It is a value-carrying
// capability, not a security boundary on its own — in secured mode the
// Chronicle additionally enforces role gating on every write.
type ChronicleHandle struct {
	role  ChronicleRole
	owner string
}

// NewReaderHandle constructs a READER handle. Issuing one always succeeds;
// this constructor is exported because READER handles carry no privilege.
func NewReaderHandle(owner string) ChronicleHandle {
	return ChronicleHandle{role: RoleReader, owner: owner}
}

// newWriterHandle is unexported; MintWriterHandle below is its exported
// wrapper. Chronicle.GetWriterHandle checks the caller's identity before
// calling MintWriterHandle, but MintWriterHandle itself checks nothing, so
// any package can mint a WRITER handle through it.
func newWriterHandle(owner string) ChronicleHandle {
	return ChronicleHandle{role: RoleWriter, owner: owner}
}

// CanWrite reports whether this handle carries WRITER privilege.
func (h ChronicleHandle) CanWrite() bool { return h.role == RoleWriter }

// CanRead always reports true: READER privilege implied by WRITER, and
// reads never require a handle at all.
func (h ChronicleHandle) CanRead() bool { return true }

// Owner returns the identity the handle was issued to.
func (h ChronicleHandle) Owner() string { return h.owner }

// MintWriterHandle is the only path to a WRITER handle's construction. It is
// called from chronicle.GetWriterHandle after the ELDER identity check
// passes. It is exported (rather than letting chronicle reach into an
// unexported constructor) so that the capability's minting is visibly
// concentrated in one function callers can audit; it performs no check of
// its own; the ELDER comparison lives entirely in the chronicle package.
func MintWriterHandle(owner string) ChronicleHandle {
	return newWriterHandle(owner)
}
