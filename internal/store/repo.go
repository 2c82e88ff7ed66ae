package store

import (
	"context"
	"errors"
	"time"

	"github.com/disertus/Blood-Donor-Bot/internal/domain"
)

// ErrNotFound is returned when no record exists for a chat id.
var ErrNotFound = errors.New("user not found")

// ErrNoChange can be returned from a MutateUser callback to abandon the
// mutation without reporting an error; nothing is persisted.
var ErrNoChange = errors.New("no change")

// Repo defines storage operations for donor records and snapshot history.
// Every mutating method is internally atomic: callers never manage locks.
type Repo interface {
	GetUser(ctx context.Context, chatID int64) (*domain.User, error)
	PutUser(ctx context.Context, u *domain.User) error
	DeleteUser(ctx context.Context, chatID int64) error

	// ListChatIDs returns a point-in-time slice of known chat ids, not a
	// live cursor; safe to iterate while registrations mutate the table.
	ListChatIDs(ctx context.Context) ([]int64, error)

	// MutateUser applies fn to the current record and persists the result
	// as one atomic read-compute-write unit. fn must not block on I/O.
	MutateUser(ctx context.Context, chatID int64, fn func(*domain.User) error) error

	SaveSnapshot(ctx context.Context, day time.Time, snap domain.Snapshot) error
	LatestSnapshot(ctx context.Context) (domain.Snapshot, time.Time, error)

	Close() error
}
