package models

import "time"

// User represents a registered participant
type User struct {
	ID           int
	Username     string
	PasswordHash string
	Admin        bool
	CreatedAt    time.Time
}

// Caller is the identity attached to every core operation. The core
// never authenticates; it only trusts the Admin flag supplied here.
type Caller struct {
	UserID int
	Admin  bool
}

// Session names one of the three daily posting windows
type Session string

const (
	SessionMorning   Session = "morning"   // 07:00 - 12:59:59
	SessionAfternoon Session = "afternoon" // 13:00 - 18:59:59
	SessionEvening   Session = "evening"   // 19:00 - 06:59:59 next day
)

// BidStatus is the closed set of bid lifecycle states
type BidStatus string

const (
	StatusPending   BidStatus = "pending"
	StatusActive    BidStatus = "active"
	StatusCompleted BidStatus = "completed"
	StatusCancelled BidStatus = "cancelled"
)

// Terminal reports whether no further transitions are permitted from s
func (s BidStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Bid represents a posted cash bid seeking a counterparty
type Bid struct {
	ID             string     `json:"id"`
	OwnerID        int        `json:"owner_id"`
	Amount         float64    `json:"amount"`
	DurationHours  int        `json:"duration_hours"` // 24, 48 or 72
	InterestRate   float64    `json:"interest_rate"`  // stamped at creation, never recomputed
	ExpectedPayout float64    `json:"expected_payout"`
	Status         BidStatus  `json:"status"`
	CreatedAt      time.Time  `json:"created_at"` // decides which session window the bid counts against
	AcceptedBy     *int       `json:"accepted_by,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// EndsAt returns the end of the bid's active window, zero until accepted
func (b Bid) EndsAt() time.Time {
	if b.StartedAt == nil {
		return time.Time{}
	}
	return b.StartedAt.Add(time.Duration(b.DurationHours) * time.Hour)
}

// RemainingAt returns the time left in the active window at the given
// instant, negative once the bid has matured. Derived on demand so the
// stored bid never drifts from the clock.
func (b Bid) RemainingAt(now time.Time) time.Duration {
	if b.StartedAt == nil {
		return 0
	}
	return b.EndsAt().Sub(now)
}

// MaturedAt reports whether the active window has elapsed. A matured
// bid stays Active until the owner confirms payment; settlement is
// off-platform and cannot be assumed from elapsed time alone.
func (b Bid) MaturedAt(now time.Time) bool {
	return b.Status == StatusActive && b.RemainingAt(now) <= 0
}

// Allocation holds the administrator-set capacity for each session window
type Allocation struct {
	Morning   int `json:"morning"`
	Afternoon int `json:"afternoon"`
	Evening   int `json:"evening"`
}

// Of returns the capacity configured for the given session
func (a Allocation) Of(s Session) int {
	switch s {
	case SessionMorning:
		return a.Morning
	case SessionAfternoon:
		return a.Afternoon
	default:
		return a.Evening
	}
}
