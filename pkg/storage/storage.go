package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a settings key has no stored value.
var ErrNotFound = errors.New("not found")

// Locker serializes writers across processes. *utils.DBLock satisfies it.
type Locker interface {
	Lock() error
	Unlock() error
}

type DB struct {
	sql  *sql.DB
	lock Locker
}

// SetWriteLock makes every write hold l for the duration of its statement.
// Readers never take it.
func (d *DB) SetWriteLock(l Locker) { d.lock = l }

// write runs fn under the write lock, if any.
func (d *DB) write(fn func() error) error {
	if d.lock == nil {
		return fn()
	}
	if err := d.lock.Lock(); err != nil {
		return err
	}
	defer d.lock.Unlock()
	return fn()
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS settings (
  key        TEXT PRIMARY KEY,
  value      TEXT NOT NULL,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS zap_log (
  id           INTEGER PRIMARY KEY,
  run_id       TEXT NOT NULL UNIQUE,
  content_url  TEXT NOT NULL,
  content_id   INTEGER,
  amount_sats  INTEGER NOT NULL,
  outcome      TEXT NOT NULL CHECK (outcome IN ('done','cancelled','failed')),
  payment_hash TEXT,
  message      TEXT,
  occurred_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_zap_log_time ON zap_log(occurred_at);
CREATE INDEX IF NOT EXISTS idx_zap_log_url ON zap_log(content_url);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// GetSetting returns the stored value for key or ErrNotFound.
func (d *DB) GetSetting(ctx context.Context, key string) (string, error) {
	var v string
	err := d.sql.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// PutSetting inserts or replaces the value for key.
func (d *DB) PutSetting(ctx context.Context, key, value string) error {
	return d.write(func() error {
		_, err := d.sql.ExecContext(ctx, `INSERT INTO settings(key, value, updated_at) VALUES(?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`, key, value)
		return err
	})
}

// DeleteSetting removes key. Deleting a missing key is not an error.
func (d *DB) DeleteSetting(ctx context.Context, key string) error {
	return d.write(func() error {
		_, err := d.sql.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key)
		return err
	})
}

// LogZap records the terminal state of one payment run. Logging the same
// run twice keeps the first record.
func (d *DB) LogZap(ctx context.Context, e ZapEntry) error {
	if e.RunID == "" || e.ContentURL == "" {
		return errors.New("invalid zap entry")
	}
	return d.write(func() error {
		_, err := d.sql.ExecContext(ctx, `INSERT INTO zap_log(run_id, content_url, content_id, amount_sats, outcome, payment_hash, message, occurred_at)
VALUES(?,?,?,?,?,?,?,CURRENT_TIMESTAMP) ON CONFLICT(run_id) DO NOTHING`,
			e.RunID, e.ContentURL, nullIfZero(e.ContentID), e.AmountSats, e.Outcome, nullIfEmpty(e.PaymentHash), nullIfEmpty(e.Message))
		return err
	})
}

// ListRecentZaps returns the most recent N runs.
func (d *DB) ListRecentZaps(ctx context.Context, limit int) ([]ZapEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	q := "SELECT run_id, content_url, content_id, amount_sats, outcome, payment_hash, message, occurred_at FROM zap_log ORDER BY occurred_at DESC, id DESC LIMIT ?"
	rows, err := d.sql.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ZapEntry{}
	for rows.Next() {
		var (
			e             ZapEntry
			contentID     sql.NullInt64
			hash, message sql.NullString
			occurredAtStr string
		)
		if err := rows.Scan(&e.RunID, &e.ContentURL, &contentID, &e.AmountSats, &e.Outcome, &hash, &message, &occurredAtStr); err != nil {
			return nil, err
		}
		e.ContentID = contentID.Int64
		e.PaymentHash = hash.String
		e.Message = message.String
		e.OccurredAt = parseTimestamp(occurredAtStr)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// parseTimestamp handles SQLite CURRENT_TIMESTAMP and RFC3339 values.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(n int64) interface{} {
	if n == 0 {
		return nil
	}
	return n
}
