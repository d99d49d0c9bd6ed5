package matter

import "time"

// Status is the lifecycle state of a matter. The transition graph below is
// the single source of truth; no call site validates transitions ad hoc.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusPending       Status = "pending"
	StatusConflictCheck Status = "conflict_check"
	StatusMatching      Status = "matching"
	StatusOpen          Status = "open"
	StatusInProgress    Status = "in_progress"
	StatusOnHold        Status = "hold"
	StatusCompleted     Status = "completed"
	StatusClosed        Status = "closed"
	StatusCancelled     Status = "cancelled"
)

// allowedTransitions maps each status to the set of statuses reachable from
// it. Closed and cancelled are terminal.
var allowedTransitions = map[Status][]Status{
	StatusDraft:         {StatusPending, StatusCancelled},
	StatusPending:       {StatusConflictCheck, StatusCancelled},
	StatusConflictCheck: {StatusMatching, StatusCancelled},
	StatusMatching:      {StatusOpen, StatusCancelled},
	StatusOpen:          {StatusInProgress, StatusOnHold, StatusCancelled},
	StatusInProgress:    {StatusOnHold, StatusCompleted, StatusCancelled},
	StatusOnHold:        {StatusInProgress, StatusCancelled},
	StatusCompleted:     {StatusClosed},
}

// AllowedTargets returns the statuses reachable from the given status. The
// returned slice is a copy callers may keep.
func AllowedTargets(from Status) []Status {
	targets := allowedTransitions[from]
	out := make([]Status, len(targets))
	copy(out, targets)
	return out
}

// CanTransition reports whether the edge from -> to exists in the graph.
func CanTransition(from, to Status) bool {
	for _, t := range allowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status has no outgoing edges.
func IsTerminal(s Status) bool {
	return len(allowedTransitions[s]) == 0
}

// ValidStatus reports whether s names a known lifecycle state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusPending, StatusConflictCheck, StatusMatching,
		StatusOpen, StatusInProgress, StatusOnHold, StatusCompleted,
		StatusClosed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Matter mirrors the matters table columns touched by this core.
type Matter struct {
	ID                     string
	ClientID               *string
	AttorneyID             *string
	Title                  string
	Description            string
	PracticeAreaID         *string
	JurisdictionID         *string
	Status                 Status
	ConflictCheckCompleted bool
	ConflictCheckPassed    bool
	ConflictCheckDate      *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
	SubmittedAt            *time.Time
	AssignedAt             *time.Time
	CompletedAt            *time.Time
}

type PartyType string

const (
	PartyIndividual   PartyType = "individual"
	PartyOrganization PartyType = "organization"
	PartyGovernment   PartyType = "government"
)

type PartyRole string

const (
	PartyOpposing PartyRole = "opposing"
	PartyWitness  PartyRole = "witness"
	PartyRelated  PartyRole = "related"
	PartyOther    PartyRole = "other"
)

// Party is a named party tied to exactly one matter. NameHash is derived
// from Name at insert time and the pair is immutable afterwards.
type Party struct {
	ID        string
	MatterID  string
	Name      string
	PartyType PartyType
	Role      PartyRole
	NameHash  string
	CreatedAt time.Time
}

// StatusHistory is one immutable entry in a matter's transition audit trail.
// ActorID is nil for anonymous flows. Rows are never updated or deleted.
type StatusHistory struct {
	ID         int64
	MatterID   string
	FromStatus Status
	ToStatus   Status
	ActorID    *string
	Notes      string
	CreatedAt  time.Time
}
