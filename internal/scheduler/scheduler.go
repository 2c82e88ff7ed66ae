package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/disertus/Blood-Donor-Bot/internal/domain"
	"github.com/disertus/Blood-Donor-Bot/internal/store"
)

// Sender is the minimal interface the scheduler needs to send a text
// message. telegram.Router implements it.
type Sender interface {
	SendMessage(chatID int64, text string) error
}

// Fetcher produces one inventory snapshot per tick. inventory.Client
// implements it.
type Fetcher interface {
	Fetch(ctx context.Context) (domain.Snapshot, error)
}

// Scheduler periodically re-fetches the inventory page, evaluates every
// registered donor against it, and fires or reschedules notifications.
type Scheduler struct {
	repo     store.Repo
	log      *zap.Logger
	sender   Sender
	fetcher  Fetcher
	policy   domain.Policy
	interval time.Duration
	loc      *time.Location
	now      func() time.Time // overridable in tests
}

func New(repo store.Repo, log *zap.Logger, sender Sender, fetcher Fetcher,
	policy domain.Policy, interval time.Duration, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		repo:     repo,
		log:      log,
		sender:   sender,
		fetcher:  fetcher,
		policy:   policy,
		interval: interval,
		loc:      loc,
		now:      time.Now,
	}
}

// Run loops until ctx is canceled. Ticks run synchronously, so shutdown
// waits for an in-flight tick to finish; a tick that becomes due while the
// previous one is still running is skipped, not queued.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case <-ticker.C:
			// In-flight work survives shutdown; the loop exit above is the
			// only cancellation point.
			s.tick(context.WithoutCancel(ctx))
			select {
			case <-ticker.C: // drop the tick that queued up while working
			default:
			}
		}
	}
}

// tick performs one cycle: fetch, record history, evaluate every user.
// A failed fetch aborts the whole tick without touching any record; a
// failed per-user evaluation is logged and the batch continues.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now().In(s.loc)

	snap, err := s.fetcher.Fetch(ctx)
	if err != nil {
		s.log.Error("inventory fetch failed, tick aborted", zap.Error(err))
		return
	}

	if err := s.repo.SaveSnapshot(ctx, domain.DateOf(now), snap); err != nil {
		s.log.Warn("snapshot history write failed", zap.Error(err))
	}

	ids, err := s.repo.ListChatIDs(ctx)
	if err != nil {
		s.log.Error("list users failed", zap.Error(err))
		return
	}

	for _, id := range ids {
		if err := s.evaluateOne(ctx, id, snap, now); err != nil {
			s.log.Error("user evaluation failed",
				zap.Int64("chatID", id), zap.Error(err))
		}
	}
}

// evaluateOne applies the evaluator's verdict for a single user. The chat
// send happens outside the store lock; the reschedule after a notification
// is persisted only once the send is confirmed.
func (s *Scheduler) evaluateOne(ctx context.Context, chatID int64, snap domain.Snapshot, now time.Time) error {
	u, err := s.repo.GetUser(ctx, chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil // reset between listing and evaluation
		}
		return err
	}

	d := domain.Evaluate(u, snap, now, s.policy)
	switch d.Action {
	case domain.ActSkip:
		return nil

	case domain.ActReschedule:
		return s.reschedule(ctx, chatID, domain.DateOf(now).AddDate(0, 0, d.Days))

	case domain.ActNotify:
		if err := s.sender.SendMessage(chatID, notifyText(u.Key())); err != nil {
			return fmt.Errorf("notify send: %w", err)
		}
		s.log.Info("shortage notification sent",
			zap.Int64("chatID", chatID), zap.String("slot", u.Key().String()))
		return s.reschedule(ctx, chatID, domain.DateOf(now).AddDate(0, 0, s.policy.RealertDays))
	}
	return nil
}

// reschedule moves NextNotifyAt under the store's atomic mutation. A record
// that stopped being registered in the meantime is left alone.
func (s *Scheduler) reschedule(ctx context.Context, chatID int64, next time.Time) error {
	err := s.repo.MutateUser(ctx, chatID, func(u *domain.User) error {
		if !u.Registered() {
			return store.ErrNoChange
		}
		u.NextNotifyAt = &next
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// notifyText is the shortage alert, per the original wording.
func notifyText(k domain.Key) string {
	return fmt.Sprintf(
		"%s is low - we need YOU to save lives\n\n"+
			"Short reminder: Blood donation will give you 2 days off and a financial remuneration",
		k,
	)
}
