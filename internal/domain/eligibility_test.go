package domain

import (
	"testing"
	"time"
)

var testPolicy = Policy{
	CooldownDays:  60,
	RealertDays:   7,
	NotifyWeekday: time.Monday,
	NotifyHour:    11,
}

// registeredUser returns a registered I(+) user due on the given date.
func registeredUser(due time.Time) *User {
	last := due.AddDate(0, 0, -60)
	return &User{
		ChatID:        42,
		BloodType:     TypeI,
		Rh:            RhPlus,
		Stage:         StageRegistered,
		LastDonatedAt: &last,
		NextNotifyAt:  &due,
	}
}

// notifySlot is a Monday 11:00, matching testPolicy.
var notifySlot = time.Date(2024, time.March, 4, 11, 30, 0, 0, time.UTC)

func TestEvaluate_UnregisteredAlwaysSkips(t *testing.T) {
	snap := Snapshot{{TypeI, RhPlus}: "low"}
	for _, st := range []Stage{StageAwaitingBloodType, StageAwaitingRh, StageAwaitingDonationDate} {
		u := &User{ChatID: 1, Stage: st, BloodType: TypeI, Rh: RhPlus}
		d := Evaluate(u, snap, notifySlot, testPolicy)
		if d.Action != ActSkip {
			t.Fatalf("stage %v: want skip, got %v", st, d.Action)
		}
	}
}

func TestEvaluate_NotDueSkips(t *testing.T) {
	u := registeredUser(DateOf(notifySlot).AddDate(0, 0, 3))
	d := Evaluate(u, Snapshot{u.Key(): "low"}, notifySlot, testPolicy)
	if d.Action != ActSkip {
		t.Fatalf("want skip for future due date, got %v", d.Action)
	}
}

// Overdue users are due, not skipped: the check is "due or overdue" so a
// missed tick during downtime does not lose the user's window.
func TestEvaluate_OverdueStillFires(t *testing.T) {
	u := registeredUser(DateOf(notifySlot).AddDate(0, 0, -5))
	d := Evaluate(u, Snapshot{u.Key(): "low"}, notifySlot, testPolicy)
	if d.Action != ActNotify {
		t.Fatalf("want notify for overdue user, got %v", d.Action)
	}
}

func TestEvaluate_MissingSlotSkips(t *testing.T) {
	u := registeredUser(DateOf(notifySlot))
	d := Evaluate(u, Snapshot{}, notifySlot, testPolicy)
	if d.Action != ActSkip {
		t.Fatalf("want skip for unknown slot, got %v", d.Action)
	}
}

func TestEvaluate_SufficientReschedulesTomorrow(t *testing.T) {
	u := registeredUser(DateOf(notifySlot))
	d := Evaluate(u, Snapshot{u.Key(): StatusSufficient}, notifySlot, testPolicy)
	if d.Action != ActReschedule || d.Days != 1 {
		t.Fatalf("want reschedule(+1), got %v(+%d)", d.Action, d.Days)
	}
}

func TestEvaluate_LowAtSlotNotifies(t *testing.T) {
	u := registeredUser(DateOf(notifySlot))
	d := Evaluate(u, Snapshot{u.Key(): "критично низький"}, notifySlot, testPolicy)
	if d.Action != ActNotify {
		t.Fatalf("want notify, got %v", d.Action)
	}
}

func TestEvaluate_LowOffHourReschedules(t *testing.T) {
	u := registeredUser(DateOf(notifySlot))
	sameDayWrongHour := notifySlot.Add(3 * time.Hour)
	d := Evaluate(u, Snapshot{u.Key(): "low"}, sameDayWrongHour, testPolicy)
	if d.Action != ActReschedule || d.Days != 1 {
		t.Fatalf("want reschedule(+1), got %v(+%d)", d.Action, d.Days)
	}

	wrongWeekday := notifySlot.AddDate(0, 0, 1)
	d = Evaluate(u, Snapshot{u.Key(): "low"}, wrongWeekday, testPolicy)
	if d.Action != ActReschedule || d.Days != 1 {
		t.Fatalf("wrong weekday: want reschedule(+1), got %v(+%d)", d.Action, d.Days)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	u := registeredUser(DateOf(notifySlot))
	snap := Snapshot{u.Key(): "low"}
	first := Evaluate(u, snap, notifySlot, testPolicy)
	second := Evaluate(u, snap, notifySlot, testPolicy)
	if first != second {
		t.Fatalf("not idempotent: %v vs %v", first, second)
	}
}
