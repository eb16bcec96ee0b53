// Package store persists the per-user work-hour ledger and a cache of
// model extraction results. Two backends implement the same contract:
// a local SQLite file (default) and Postgres when DATABASE_URL is set.
package store

import (
	"context"
	"errors"
	"time"
)

const dateLayout = "2006-01-02"

var (
	// ErrNotFound is returned by lookups and deletes on absent records.
	ErrNotFound = errors.New("store: not found")
	// ErrInvalidRecord rejects writes that violate the ledger constraints
	// (negative hours, zero date) before they reach the database.
	ErrInvalidRecord = errors.New("store: invalid record")
)

// Source marks how a ledger entry was produced.
type Source string

const (
	SourceExtracted Source = "extracted"
	SourceManual    Source = "manual"
)

// WorkDay is one logged day of work for one user.
type WorkDay struct {
	UserID     int64
	Date       time.Time
	Hundredths int64 // hours in hundredths
	Source     Source
}

// CachedExtract is a stored model response for one analyzed image.
type CachedExtract struct {
	ChatID       int64
	ImageHash    string
	Engine       string
	Model        string
	ResultJSON   []byte
	Accepted     bool
	AcceptReason string
	CreatedAt    time.Time
}

// Store is the ledger contract. Upserts are atomic per (user, date) key;
// the database serializes conflicting writes.
type Store interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error

	// UpsertDay writes or overwrites the record for (userID, day).
	UpsertDay(ctx context.Context, userID int64, day time.Time, hundredths int64, source Source) error
	// RangeDays returns records with day in [from, to], ascending by date.
	RangeDays(ctx context.Context, userID int64, from, to time.Time) ([]WorkDay, error)
	// DeleteDay removes one record; ErrNotFound if absent.
	DeleteDay(ctx context.Context, userID int64, day time.Time) error

	GetCachedExtract(ctx context.Context, imageHash, engine, model string, maxAge time.Duration) (*CachedExtract, error)
	SetCachedExtract(ctx context.Context, chatID int64, imageHash, engine, model string, resultJSON []byte) error
	MarkExtractAccepted(ctx context.Context, imageHash, engine, model, reason string) error

	Close() error
}

func validateDay(day time.Time, hundredths int64) error {
	if day.IsZero() || hundredths < 0 {
		return ErrInvalidRecord
	}
	return nil
}

func dateKey(t time.Time) string { return t.Format(dateLayout) }

func parseDateKey(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}
