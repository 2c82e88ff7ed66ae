package domain

import "time"

// Policy holds the scheduling knobs shared by the evaluator, the
// registration dialog and the scheduler.
type Policy struct {
	CooldownDays  int          // min days between a donation and the first alert
	RealertDays   int          // re-alert cadence after a sent notification
	NotifyWeekday time.Weekday // weekday a shortage alert may fire on
	NotifyHour    int          // hour (0..23) a shortage alert may fire at
}

// Action is what the scheduler should do with one user on one tick.
type Action int

const (
	ActSkip Action = iota
	ActReschedule
	ActNotify
)

// Decision is the evaluator's verdict for one user.
type Decision struct {
	Action Action
	Days   int // reschedule offset in days; meaningful for ActReschedule
}

// Evaluate decides whether a user should be notified, rescheduled or left
// alone, given the snapshot fetched this tick. Pure function: no side
// effects, safe to call concurrently and repeatedly.
//
// The due check is "due or overdue", not date equality, so a user whose
// window fell into process downtime is picked up on the next tick instead of
// silently waiting out a full re-alert cycle.
//
// On ActNotify the caller must move NextNotifyAt to today+RealertDays only
// after the send is confirmed.
func Evaluate(u *User, snap Snapshot, now time.Time, p Policy) Decision {
	if !u.Registered() {
		return Decision{Action: ActSkip}
	}
	if DateOf(now).Before(*u.NextNotifyAt) {
		return Decision{Action: ActSkip}
	}
	status, ok := snap.Lookup(u.Key())
	if !ok {
		// Slot missing from the page: unknown, do not alarm.
		return Decision{Action: ActSkip}
	}
	if status == StatusSufficient {
		// Stocked today; check again tomorrow.
		return Decision{Action: ActReschedule, Days: 1}
	}
	if now.Weekday() == p.NotifyWeekday && now.Hour() == p.NotifyHour {
		return Decision{Action: ActNotify}
	}
	return Decision{Action: ActReschedule, Days: 1}
}
