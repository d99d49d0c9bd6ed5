package conflict

import "time"

// RelationshipType classifies one ledger entry: how the attorney knows the
// named entity.
type RelationshipType string

const (
	RelationshipCurrentClient RelationshipType = "current"
	RelationshipPastClient    RelationshipType = "past"
	RelationshipAdverseParty  RelationshipType = "adverse"
	RelationshipRelatedParty  RelationshipType = "related"
)

// ValidRelationship reports whether t names a known relationship type.
func ValidRelationship(t RelationshipType) bool {
	switch t {
	case RelationshipCurrentClient, RelationshipPastClient, RelationshipAdverseParty, RelationshipRelatedParty:
		return true
	default:
		return false
	}
}

// relationshipLabels back the human-readable conflict descriptions.
var relationshipLabels = map[RelationshipType]string{
	RelationshipCurrentClient: "current client",
	RelationshipPastClient:    "past client",
	RelationshipAdverseParty:  "adverse party",
	RelationshipRelatedParty:  "related party",
}

// Label returns the display form of a relationship type.
func (t RelationshipType) Label() string {
	if label, ok := relationshipLabels[t]; ok {
		return label
	}
	return string(t)
}

// LedgerRecord is one attorney's private record of a relationship to a
// named entity, stored as a digest. (attorney, digest) pairs are unique.
type LedgerRecord struct {
	ID               string
	AttorneyID       string
	NameHash         string
	RelationshipType RelationshipType
	MatterID         *string
	StartDate        *time.Time
	EndDate          *time.Time
	CreatedAt        time.Time
}

// CheckStatus is the lifecycle of one conflict check run.
type CheckStatus string

const (
	CheckPending    CheckStatus = "pending"
	CheckInProgress CheckStatus = "in_progress"
	CheckCompleted  CheckStatus = "completed"
	CheckFailed     CheckStatus = "failed"
)

// CheckResult is the classified verdict of one completed run.
type CheckResult string

const (
	ResultClear     CheckResult = "clear"
	ResultConflict  CheckResult = "conflict"
	ResultPotential CheckResult = "potential"
)

// Classify derives the verdict from the pool and exclusion counts:
// clear iff nobody was excluded, conflict iff the whole non-empty pool was
// excluded, potential otherwise.
func Classify(checked, excluded int) CheckResult {
	switch {
	case excluded == 0:
		return ResultClear
	case excluded == checked:
		return ResultConflict
	default:
		return ResultPotential
	}
}

// Check is one execution of the conflict algorithm against one matter.
// Result is set only once Status is completed. A matter accumulates one
// Check row per run; the row relevant for gating is always the most
// recently completed one.
type Check struct {
	ID                string
	MatterID          string
	RequestedBy       *string
	Status            CheckStatus
	Result            *CheckResult
	NamesCheckedCount int
	CheckedAttorneys  []string
	ExcludedAttorneys []string
	StartedAt         *time.Time
	CompletedAt       *time.Time
	ProcessingTimeMS  *int
	CreatedAt         time.Time
}

// Detail is one matched conflict inside a check: which attorney, which
// digest, and the relationship that caused the exclusion. ClientRecordID is
// a nullable back-reference; details stay historically accurate even if the
// source ledger record is later deleted.
type Detail struct {
	ID             string
	CheckID        string
	AttorneyID     string
	NameHash       string
	ConflictType   RelationshipType
	Description    string
	ClientRecordID *string
	CreatedAt      time.Time
}
