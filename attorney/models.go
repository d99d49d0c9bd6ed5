package attorney

import "time"

// Profile captures the directory view of an attorney: the fields the
// candidate pool and assignment flows need, joined from users and
// attorney_profiles.
type Profile struct {
	UserID    string
	FullName  string
	Email     string
	BarNumber string
	BarState  string
	Verified  bool
	Accepting bool
	IsActive  bool
	CreatedAt time.Time
}

// PoolFilter narrows the candidate pool by the matter's practice area and
// jurisdiction. Nil fields leave the pool unfiltered on that axis.
type PoolFilter struct {
	PracticeAreaID *string
	JurisdictionID *string
}

// PracticeArea is a reference row attorneys and matters point at.
type PracticeArea struct {
	ID       string
	Name     string
	IsActive bool
}

// Jurisdiction is a reference row attorneys and matters point at.
type Jurisdiction struct {
	ID        string
	Name      string
	StateCode string
	Country   string
	IsActive  bool
}
