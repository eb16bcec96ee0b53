package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a local file using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and configures WAL mode.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS work_log (
	user_id          INTEGER NOT NULL,
	work_date        TEXT    NOT NULL,
	hours_hundredths INTEGER NOT NULL CHECK (hours_hundredths >= 0),
	source           TEXT    NOT NULL CHECK (source IN ('extracted', 'manual')),
	created_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (user_id, work_date)
);

CREATE TABLE IF NOT EXISTS extract_cache (
	image_hash    TEXT    NOT NULL,
	engine        TEXT    NOT NULL,
	model         TEXT    NOT NULL,
	chat_id       INTEGER NOT NULL DEFAULT 0,
	result_json   TEXT    NOT NULL,
	accepted      INTEGER NOT NULL DEFAULT 0,
	accept_reason TEXT    NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (image_hash, engine, model)
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) UpsertDay(ctx context.Context, userID int64, day time.Time, hundredths int64, source Source) error {
	if err := validateDay(day, hundredths); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO work_log (user_id, work_date, hours_hundredths, source, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (user_id, work_date) DO UPDATE SET
	hours_hundredths = excluded.hours_hundredths,
	source           = excluded.source,
	updated_at       = excluded.updated_at`,
		userID, dateKey(day), hundredths, string(source), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert day %s", dateKey(day))
}

func (s *SQLiteStore) RangeDays(ctx context.Context, userID int64, from, to time.Time) ([]WorkDay, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT work_date, hours_hundredths, source
FROM work_log
WHERE user_id = ? AND work_date >= ? AND work_date <= ?
ORDER BY work_date ASC`,
		userID, dateKey(from), dateKey(to),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: range days")
	}
	defer rows.Close()
	return scanWorkDays(rows, userID)
}

func (s *SQLiteStore) DeleteDay(ctx context.Context, userID int64, day time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM work_log WHERE user_id = ? AND work_date = ?`,
		userID, dateKey(day),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete day %s", dateKey(day))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) GetCachedExtract(ctx context.Context, imageHash, engine, model string, maxAge time.Duration) (*CachedExtract, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT chat_id, result_json, accepted, accept_reason, created_at
FROM extract_cache
WHERE image_hash = ? AND engine = ? AND model = ?`,
		imageHash, engine, model,
	)
	ce := CachedExtract{ImageHash: imageHash, Engine: engine, Model: model}
	var js string
	if err := row.Scan(&ce.ChatID, &js, &ce.Accepted, &ce.AcceptReason, &ce.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "sqlite: get cached extract")
	}
	if maxAge > 0 && time.Since(ce.CreatedAt) > maxAge {
		return nil, ErrNotFound
	}
	ce.ResultJSON = []byte(js)
	return &ce, nil
}

func (s *SQLiteStore) SetCachedExtract(ctx context.Context, chatID int64, imageHash, engine, model string, resultJSON []byte) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO extract_cache (image_hash, engine, model, chat_id, result_json, accepted, accept_reason, created_at)
VALUES (?, ?, ?, ?, ?, 0, '', ?)
ON CONFLICT (image_hash, engine, model) DO UPDATE SET
	chat_id       = excluded.chat_id,
	result_json   = excluded.result_json,
	accepted      = 0,
	accept_reason = '',
	created_at    = excluded.created_at`,
		imageHash, engine, model, chatID, string(resultJSON), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: set cached extract")
}

func (s *SQLiteStore) MarkExtractAccepted(ctx context.Context, imageHash, engine, model, reason string) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE extract_cache SET accepted = 1, accept_reason = ?
WHERE image_hash = ? AND engine = ? AND model = ?`,
		reason, imageHash, engine, model,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: mark extract accepted")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanWorkDays(rows *sql.Rows, userID int64) ([]WorkDay, error) {
	out := []WorkDay{}
	for rows.Next() {
		var (
			dateStr string
			wd      WorkDay
			src     string
		)
		if err := rows.Scan(&dateStr, &wd.Hundredths, &src); err != nil {
			return nil, eris.Wrap(err, "scan work day")
		}
		d, err := parseDateKey(dateStr)
		if err != nil {
			return nil, eris.Wrapf(err, "bad work_date %q", dateStr)
		}
		wd.UserID = userID
		wd.Date = d
		wd.Source = Source(src)
		out = append(out, wd)
	}
	return out, eris.Wrap(rows.Err(), "iterate work days")
}
