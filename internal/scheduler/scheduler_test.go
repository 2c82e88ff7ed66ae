package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/disertus/Blood-Donor-Bot/internal/domain"
	"github.com/disertus/Blood-Donor-Bot/internal/store"
)

// fakeRepo is an in-memory store.Repo with the same atomic-mutation
// contract as the SQLite implementation.
type fakeRepo struct {
	mu    sync.Mutex
	users map[int64]domain.User

	failGet map[int64]bool // chat ids whose reads fail
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: map[int64]domain.User{}, failGet: map[int64]bool{}}
}

func (f *fakeRepo) GetUser(_ context.Context, chatID int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet[chatID] {
		return nil, errors.New("store unavailable")
	}
	u, ok := f.users[chatID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := u
	return &cp, nil
}

func (f *fakeRepo) PutUser(_ context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ChatID] = *u
	return nil
}

func (f *fakeRepo) DeleteUser(_ context.Context, chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, chatID)
	return nil
}

func (f *fakeRepo) ListChatIDs(context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeRepo) MutateUser(_ context.Context, chatID int64, fn func(*domain.User) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[chatID]
	if !ok {
		return store.ErrNotFound
	}
	if err := fn(&u); err != nil {
		if errors.Is(err, store.ErrNoChange) {
			return nil
		}
		return err
	}
	f.users[chatID] = u
	return nil
}

func (f *fakeRepo) SaveSnapshot(context.Context, time.Time, domain.Snapshot) error {
	return nil
}

func (f *fakeRepo) LatestSnapshot(context.Context) (domain.Snapshot, time.Time, error) {
	return nil, time.Time{}, store.ErrNotFound
}

func (f *fakeRepo) Close() error { return nil }

type fakeSender struct {
	mu   sync.Mutex
	sent []int64
	fail bool
}

func (s *fakeSender) SendMessage(chatID int64, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("transport down")
	}
	s.sent = append(s.sent, chatID)
	return nil
}

type fakeFetcher struct {
	snap domain.Snapshot
	err  error
}

func (f *fakeFetcher) Fetch(context.Context) (domain.Snapshot, error) {
	return f.snap, f.err
}

var policy = domain.Policy{
	CooldownDays:  60,
	RealertDays:   7,
	NotifyWeekday: time.Monday,
	NotifyHour:    11,
}

// Monday 11:05 UTC, inside the notification slot.
var slotTime = time.Date(2024, time.March, 4, 11, 5, 0, 0, time.UTC)

func newTestScheduler(repo store.Repo, sender Sender, fetcher Fetcher, at time.Time) *Scheduler {
	s := New(repo, zap.NewNop(), sender, fetcher, policy, time.Minute, time.UTC)
	s.now = func() time.Time { return at }
	return s
}

func dueUser(chatID int64, bt domain.BloodType, rh domain.RhFactor, due time.Time) domain.User {
	last := due.AddDate(0, 0, -60)
	return domain.User{
		ChatID:        chatID,
		BloodType:     bt,
		Rh:            rh,
		LastDonatedAt: &last,
		NextNotifyAt:  &due,
		Stage:         domain.StageRegistered,
	}
}

func TestTick_FetchFailureLeavesSchedulesUntouched(t *testing.T) {
	repo := newFakeRepo()
	due := domain.DateOf(slotTime)
	repo.users[1] = dueUser(1, domain.TypeI, domain.RhPlus, due)
	repo.users[2] = dueUser(2, domain.TypeII, domain.RhMinus, due)

	sender := &fakeSender{}
	s := newTestScheduler(repo, sender, &fakeFetcher{err: errors.New("boom")}, slotTime)
	s.tick(context.Background())

	assert.Empty(t, sender.sent)
	for id, before := range map[int64]time.Time{1: due, 2: due} {
		got, err := repo.GetUser(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, got.NextNotifyAt.Equal(before), "user %d rescheduled on failed fetch", id)
	}
}

func TestTick_SufficientReschedulesWithoutNotify(t *testing.T) {
	repo := newFakeRepo()
	due := domain.DateOf(slotTime)
	repo.users[1] = dueUser(1, domain.TypeI, domain.RhPlus, due)

	snap := domain.Snapshot{{Type: domain.TypeI, Rh: domain.RhPlus}: domain.StatusSufficient}
	sender := &fakeSender{}
	s := newTestScheduler(repo, sender, &fakeFetcher{snap: snap}, slotTime)
	s.tick(context.Background())

	assert.Empty(t, sender.sent)
	got, err := repo.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, got.NextNotifyAt.Equal(due.AddDate(0, 0, 1)))
}

func TestTick_LowAtSlotNotifiesAndReschedulesWeekly(t *testing.T) {
	repo := newFakeRepo()
	due := domain.DateOf(slotTime)
	repo.users[1] = dueUser(1, domain.TypeI, domain.RhPlus, due)

	snap := domain.Snapshot{{Type: domain.TypeI, Rh: domain.RhPlus}: "низький"}
	sender := &fakeSender{}
	s := newTestScheduler(repo, sender, &fakeFetcher{snap: snap}, slotTime)
	s.tick(context.Background())

	assert.Equal(t, []int64{1}, sender.sent)
	got, err := repo.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, got.NextNotifyAt.Equal(due.AddDate(0, 0, 7)))
}

func TestTick_LowOffHourReschedulesTomorrow(t *testing.T) {
	repo := newFakeRepo()
	offHour := slotTime.Add(4 * time.Hour)
	due := domain.DateOf(offHour)
	repo.users[1] = dueUser(1, domain.TypeI, domain.RhPlus, due)

	snap := domain.Snapshot{{Type: domain.TypeI, Rh: domain.RhPlus}: "низький"}
	sender := &fakeSender{}
	s := newTestScheduler(repo, sender, &fakeFetcher{snap: snap}, offHour)
	s.tick(context.Background())

	assert.Empty(t, sender.sent)
	got, err := repo.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, got.NextNotifyAt.Equal(due.AddDate(0, 0, 1)))
}

func TestTick_SendFailureKeepsSchedule(t *testing.T) {
	repo := newFakeRepo()
	due := domain.DateOf(slotTime)
	repo.users[1] = dueUser(1, domain.TypeI, domain.RhPlus, due)

	snap := domain.Snapshot{{Type: domain.TypeI, Rh: domain.RhPlus}: "низький"}
	s := newTestScheduler(repo, &fakeSender{fail: true}, &fakeFetcher{snap: snap}, slotTime)
	s.tick(context.Background())

	// Reschedule happens only after send confirmation, so the user stays
	// due and is retried next tick.
	got, err := repo.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, got.NextNotifyAt.Equal(due))
}

func TestTick_PerUserFailureDoesNotAbortBatch(t *testing.T) {
	repo := newFakeRepo()
	due := domain.DateOf(slotTime)
	repo.users[1] = dueUser(1, domain.TypeI, domain.RhPlus, due)
	repo.users[2] = dueUser(2, domain.TypeI, domain.RhPlus, due)
	repo.failGet[1] = true

	snap := domain.Snapshot{{Type: domain.TypeI, Rh: domain.RhPlus}: "низький"}
	sender := &fakeSender{}
	s := newTestScheduler(repo, sender, &fakeFetcher{snap: snap}, slotTime)
	s.tick(context.Background())

	assert.Equal(t, []int64{2}, sender.sent, "healthy user must still be served")
}

// blockingFetcher parks every Fetch call until the test releases it,
// simulating a slow inventory source.
type blockingFetcher struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
}

func (f *blockingFetcher) Fetch(context.Context) (domain.Snapshot, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	<-f.release
	return domain.Snapshot{}, nil
}

func (f *blockingFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func waitForCalls(t *testing.T, f *blockingFetcher, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f.callCount() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d fetch calls, got %d", n, f.callCount())
}

func TestRun_SkipsTickQueuedBehindSlowTick(t *testing.T) {
	fetcher := &blockingFetcher{release: make(chan struct{})}
	s := New(newFakeRepo(), zap.NewNop(), &fakeSender{}, fetcher, policy,
		200*time.Millisecond, time.UTC)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	waitForCalls(t, fetcher, 1)
	// Hold the tick long enough for more ticks to become due behind it.
	time.Sleep(450 * time.Millisecond)
	fetcher.release <- struct{}{}

	// The queued tick is dropped, so no second fetch starts before the
	// next interval boundary.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, fetcher.callCount(), "tick queued behind a slow tick must be dropped")

	cancel()
	close(fetcher.release)
	<-done
}

func TestRun_ShutdownWaitsForInFlightTick(t *testing.T) {
	fetcher := &blockingFetcher{release: make(chan struct{})}
	s := New(newFakeRepo(), zap.NewNop(), &fakeSender{}, fetcher, policy,
		20*time.Millisecond, time.UTC)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	waitForCalls(t, fetcher, 1)
	cancel()

	select {
	case <-done:
		t.Fatal("Run returned while a tick was still in flight")
	case <-time.After(60 * time.Millisecond):
	}

	close(fetcher.release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the in-flight tick finished")
	}
}

func TestTick_UnregisteredUsersUntouched(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = domain.User{ChatID: 1, Stage: domain.StageAwaitingRh, BloodType: domain.TypeI}

	snap := domain.Snapshot{{Type: domain.TypeI, Rh: domain.RhPlus}: "низький"}
	sender := &fakeSender{}
	s := newTestScheduler(repo, sender, &fakeFetcher{snap: snap}, slotTime)
	s.tick(context.Background())

	assert.Empty(t, sender.sent)
	got, err := repo.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, got.NextNotifyAt)
	assert.Equal(t, domain.StageAwaitingRh, got.Stage)
}
