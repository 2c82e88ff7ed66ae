package domain

import "time"

// Stage is the current step of a user's registration dialog. Inbound chat
// text is routed by it, so the dialog survives restarts without any
// in-memory handler chaining.
type Stage int

const (
	StageAwaitingBloodType Stage = iota
	StageAwaitingRh
	StageAwaitingDonationDate
	StageRegistered
)

func (s Stage) String() string {
	switch s {
	case StageAwaitingBloodType:
		return "awaiting_blood_type"
	case StageAwaitingRh:
		return "awaiting_rh"
	case StageAwaitingDonationDate:
		return "awaiting_donation_date"
	case StageRegistered:
		return "registered"
	}
	return "unknown"
}

// User is one donor's registration and scheduling state.
type User struct {
	ChatID        int64
	BloodType     BloodType
	Rh            RhFactor
	LastDonatedAt *time.Time // date-granular, UTC midnight
	NextNotifyAt  *time.Time // date-granular, UTC midnight
	Stage         Stage
	CreatedAt     time.Time
}

// Registered reports whether the record finished the dialog and carries the
// full field set the scheduler needs.
func (u *User) Registered() bool {
	return u.Stage == StageRegistered && u.LastDonatedAt != nil && u.NextNotifyAt != nil
}

// Key returns the inventory slot this user matches.
func (u *User) Key() Key {
	return Key{Type: u.BloodType, Rh: u.Rh}
}

// DateOf truncates t to its wall-clock calendar date, normalized to UTC
// midnight for storage and comparison.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
