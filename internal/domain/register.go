package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidInput marks a dialog answer that does not match the current
// step. The record is reset to the blood-type step; the caller sends a
// corrective prompt.
var ErrInvalidInput = errors.New("invalid registration input")

// Donation-date answer labels and the days elapsed they stand for.
const (
	Bucket7  = "7 днів тому"
	Bucket14 = "14 днів тому"
	Bucket30 = "30 днів тому"
	Bucket60 = "60+ днів тому"
)

var donationBuckets = map[string]int{
	Bucket7:  7,
	Bucket14: 14,
	Bucket30: 30,
	Bucket60: 60,
}

// Advance consumes one dialog answer for the record's current stage and
// mutates the record in place. cooldownDays is the minimum interval between
// a donation and the first possible alert; it is the same for everyone (the
// sex-differentiated 2.5/3-month intervals from the reference text are not
// implemented).
func Advance(u *User, input string, today time.Time, cooldownDays int) error {
	input = strings.TrimSpace(input)

	switch u.Stage {
	case StageAwaitingBloodType:
		bt, err := ParseBloodType(input)
		if err != nil {
			resetRegistration(u)
			return ErrInvalidInput
		}
		u.BloodType = bt
		u.Stage = StageAwaitingRh

	case StageAwaitingRh:
		rh, err := ParseRh(input)
		if err != nil {
			resetRegistration(u)
			return ErrInvalidInput
		}
		u.Rh = rh
		u.Stage = StageAwaitingDonationDate

	case StageAwaitingDonationDate:
		days, ok := donationBuckets[input]
		if !ok {
			resetRegistration(u)
			return ErrInvalidInput
		}
		last := DateOf(today).AddDate(0, 0, -days)
		next := last.AddDate(0, 0, cooldownDays)
		u.LastDonatedAt = &last
		u.NextNotifyAt = &next
		u.Stage = StageRegistered

	default:
		// Registered users have no dialog step; nothing to advance.
		return ErrInvalidInput
	}
	return nil
}

// resetRegistration rolls a mid-dialog record back to the first step,
// clearing whatever was collected so far.
func resetRegistration(u *User) {
	u.BloodType = ""
	u.Rh = ""
	u.LastDonatedAt = nil
	u.NextNotifyAt = nil
	u.Stage = StageAwaitingBloodType
}
