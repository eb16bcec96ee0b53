package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// PostgresStore implements Store on pgxpool, for deployments where the bot
// shares a database server instead of a local file.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a pool using the given connection string.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS work_log (
	user_id          BIGINT NOT NULL,
	work_date        DATE   NOT NULL,
	hours_hundredths BIGINT NOT NULL CHECK (hours_hundredths >= 0),
	source           TEXT   NOT NULL CHECK (source IN ('extracted', 'manual')),
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, work_date)
);

CREATE TABLE IF NOT EXISTS extract_cache (
	image_hash    TEXT   NOT NULL,
	engine        TEXT   NOT NULL,
	model         TEXT   NOT NULL,
	chat_id       BIGINT NOT NULL DEFAULT 0,
	result_json   TEXT   NOT NULL,
	accepted      BOOLEAN NOT NULL DEFAULT FALSE,
	accept_reason TEXT   NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (image_hash, engine, model)
);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) UpsertDay(ctx context.Context, userID int64, day time.Time, hundredths int64, source Source) error {
	if err := validateDay(day, hundredths); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO work_log (user_id, work_date, hours_hundredths, source, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (user_id, work_date) DO UPDATE SET
	hours_hundredths = excluded.hours_hundredths,
	source           = excluded.source,
	updated_at       = now()`,
		userID, dateKey(day), hundredths, string(source),
	)
	return eris.Wrapf(err, "postgres: upsert day %s", dateKey(day))
}

func (s *PostgresStore) RangeDays(ctx context.Context, userID int64, from, to time.Time) ([]WorkDay, error) {
	rows, err := s.pool.Query(ctx, `
SELECT to_char(work_date, 'YYYY-MM-DD'), hours_hundredths, source
FROM work_log
WHERE user_id = $1 AND work_date >= $2 AND work_date <= $3
ORDER BY work_date ASC`,
		userID, dateKey(from), dateKey(to),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: range days")
	}
	defer rows.Close()

	out := []WorkDay{}
	for rows.Next() {
		var (
			dateStr string
			wd      WorkDay
			src     string
		)
		if err := rows.Scan(&dateStr, &wd.Hundredths, &src); err != nil {
			return nil, eris.Wrap(err, "postgres: scan work day")
		}
		d, err := parseDateKey(dateStr)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: bad work_date %q", dateStr)
		}
		wd.UserID = userID
		wd.Date = d
		wd.Source = Source(src)
		out = append(out, wd)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate work days")
}

func (s *PostgresStore) DeleteDay(ctx context.Context, userID int64, day time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM work_log WHERE user_id = $1 AND work_date = $2`,
		userID, dateKey(day),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete day %s", dateKey(day))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetCachedExtract(ctx context.Context, imageHash, engine, model string, maxAge time.Duration) (*CachedExtract, error) {
	row := s.pool.QueryRow(ctx, `
SELECT chat_id, result_json, accepted, accept_reason, created_at
FROM extract_cache
WHERE image_hash = $1 AND engine = $2 AND model = $3`,
		imageHash, engine, model,
	)
	ce := CachedExtract{ImageHash: imageHash, Engine: engine, Model: model}
	var js string
	if err := row.Scan(&ce.ChatID, &js, &ce.Accepted, &ce.AcceptReason, &ce.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "postgres: get cached extract")
	}
	if maxAge > 0 && time.Since(ce.CreatedAt) > maxAge {
		return nil, ErrNotFound
	}
	ce.ResultJSON = []byte(js)
	return &ce, nil
}

func (s *PostgresStore) SetCachedExtract(ctx context.Context, chatID int64, imageHash, engine, model string, resultJSON []byte) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO extract_cache (image_hash, engine, model, chat_id, result_json, accepted, accept_reason, created_at)
VALUES ($1, $2, $3, $4, $5, FALSE, '', now())
ON CONFLICT (image_hash, engine, model) DO UPDATE SET
	chat_id       = excluded.chat_id,
	result_json   = excluded.result_json,
	accepted      = FALSE,
	accept_reason = '',
	created_at    = now()`,
		imageHash, engine, model, chatID, string(resultJSON),
	)
	return eris.Wrap(err, "postgres: set cached extract")
}

func (s *PostgresStore) MarkExtractAccepted(ctx context.Context, imageHash, engine, model, reason string) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE extract_cache SET accepted = TRUE, accept_reason = $1
WHERE image_hash = $2 AND engine = $3 AND model = $4`,
		reason, imageHash, engine, model,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: mark extract accepted")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
