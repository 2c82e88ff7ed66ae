package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/disertus/Blood-Donor-Bot/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database. A single
// mutex spans every read-compute-write unit so a registration update and a
// scheduler reschedule can never interleave on the same record.
type SQLiteRepo struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenSQLite opens (or creates) the database at the given path, applies
// PRAGMAs, runs migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// SQLite is a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// GetUser returns a record by chat id, or ErrNotFound.
func (r *SQLiteRepo) GetUser(ctx context.Context, chatID int64) (*domain.User, error) {
	return r.getUser(ctx, chatID)
}

func (r *SQLiteRepo) getUser(ctx context.Context, chatID int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT chat_id, created_at, stage, blood_type, rh_factor,
		       last_donated_at, next_notify_at
		FROM users
		WHERE chat_id = ?`,
		chatID,
	)

	var (
		id        int64
		createdAt int64
		stage     int
		bloodType string
		rhFactor  string
		lastNS    sql.NullInt64
		nextNS    sql.NullInt64
	)
	if err := row.Scan(&id, &createdAt, &stage, &bloodType, &rhFactor, &lastNS, &nextNS); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &domain.User{
		ChatID:        id,
		BloodType:     domain.BloodType(bloodType),
		Rh:            domain.RhFactor(rhFactor),
		LastDonatedAt: dateFromNull(lastNS),
		NextNotifyAt:  dateFromNull(nextNS),
		Stage:         domain.Stage(stage),
		CreatedAt:     time.Unix(createdAt, 0).UTC(),
	}, nil
}

// PutUser inserts or updates a record. The original created_at is kept on
// conflict.
func (r *SQLiteRepo) PutUser(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.putUser(ctx, u)
}

func (r *SQLiteRepo) putUser(ctx context.Context, u *domain.User) error {
	if u == nil {
		return errors.New("nil user")
	}

	created := u.CreatedAt.UTC().Unix()
	if u.CreatedAt.IsZero() {
		created = time.Now().UTC().Unix()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			chat_id, created_at, stage, blood_type, rh_factor,
			last_donated_at, next_notify_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			stage           = excluded.stage,
			blood_type      = excluded.blood_type,
			rh_factor       = excluded.rh_factor,
			last_donated_at = excluded.last_donated_at,
			next_notify_at  = excluded.next_notify_at`,
		u.ChatID, created, int(u.Stage), string(u.BloodType), string(u.Rh),
		dateToNull(u.LastDonatedAt), dateToNull(u.NextNotifyAt),
	)
	return err
}

// DeleteUser removes a record. Deleting a missing record is not an error.
func (r *SQLiteRepo) DeleteUser(ctx context.Context, chatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE chat_id = ?`, chatID)
	return err
}

// ListChatIDs returns a point-in-time slice of all known chat ids.
func (r *SQLiteRepo) ListChatIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT chat_id FROM users ORDER BY chat_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MutateUser applies fn to the current record and persists the result while
// holding the repo lock, so concurrent mutations of the same record cannot
// drop each other's writes.
func (r *SQLiteRepo) MutateUser(ctx context.Context, chatID int64, fn func(*domain.User) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.getUser(ctx, chatID)
	if err != nil {
		return err
	}
	if err := fn(u); err != nil {
		if errors.Is(err, ErrNoChange) {
			return nil
		}
		return err
	}
	return r.putUser(ctx, u)
}

// SaveSnapshot appends one dated inventory row, columns in page slot order.
func (r *SQLiteRepo) SaveSnapshot(ctx context.Context, day time.Time, snap domain.Snapshot) error {
	keys := domain.AllKeys()
	args := make([]any, 0, len(keys)+1)
	args = append(args, day.UTC().Unix())
	for _, k := range keys {
		args = append(args, string(snap[k]))
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO inventory_history (
			fetched_on,
			one_plus, two_plus, three_plus, four_plus,
			one_minus, two_minus, three_minus, four_minus
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...,
	)
	return err
}

// LatestSnapshot returns the most recently stored inventory row and its
// fetch date, or ErrNotFound when nothing has been stored yet.
func (r *SQLiteRepo) LatestSnapshot(ctx context.Context) (domain.Snapshot, time.Time, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT fetched_on,
		       one_plus, two_plus, three_plus, four_plus,
		       one_minus, two_minus, three_minus, four_minus
		FROM inventory_history
		ORDER BY fetched_on DESC, id DESC
		LIMIT 1`,
	)

	var (
		fetchedOn int64
		values    [8]string
	)
	if err := row.Scan(&fetchedOn,
		&values[0], &values[1], &values[2], &values[3],
		&values[4], &values[5], &values[6], &values[7],
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, ErrNotFound
		}
		return nil, time.Time{}, err
	}

	snap := make(domain.Snapshot, 8)
	for i, k := range domain.AllKeys() {
		snap[k] = domain.Status(values[i])
	}
	return snap, time.Unix(fetchedOn, 0).UTC(), nil
}
