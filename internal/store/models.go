package store

import (
	"database/sql"
	"time"
)

// Dates are stored as unix seconds at UTC midnight; nullable for records
// still mid-registration.

func dateToNull(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().Unix(), Valid: true}
}

func dateFromNull(ns sql.NullInt64) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := time.Unix(ns.Int64, 0).UTC()
	return &t
}
