// Package sqlite keeps the small amount of state the composer needs across restarts:
// the draft id per author and board, direct-upload checkpoints, and the draft journal.
package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"

	"github.com/labportal/portal/shared/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS draft_ids (
    user_id    INTEGER NOT NULL,
    board      TEXT    NOT NULL,
    draft_id   TEXT    NOT NULL,
    written_at INTEGER NOT NULL,
    PRIMARY KEY (user_id, board)
);

CREATE TABLE IF NOT EXISTS upload_checkpoints (
    file_hash    TEXT    NOT NULL,
    target_id    TEXT    NOT NULL,
    filename     TEXT    NOT NULL,
    file_size    INTEGER NOT NULL,
    upload_url   TEXT    NOT NULL,
    access_token TEXT    NOT NULL,
    chunk_size   INTEGER NOT NULL,
    acked_offset INTEGER NOT NULL,
    updated_at   INTEGER NOT NULL,
    PRIMARY KEY (file_hash, target_id)
);

CREATE TABLE IF NOT EXISTS draft_journal (
    user_id   INTEGER NOT NULL,
    board     TEXT    NOT NULL,
    draft_id  TEXT    NOT NULL DEFAULT '',
    payload   BLOB    NOT NULL,
    save_type TEXT    NOT NULL,
    saved_at  INTEGER NOT NULL,
    PRIMARY KEY (user_id, board)
);`

// Storage wraps the sqlite database file.
type Storage struct {
	db  *sqlx.DB
	now func() time.Time

	// journal payloads; both are safe for concurrent EncodeAll/DecodeAll
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// New opens (creating if needed) the database at path. ":memory:" works for tests.
func New(path string) (*Storage, error) {
	db, err := sqlx.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// sqlite serialises writers anyway; one connection also keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		db.Close()
		return nil, fmt.Errorf("failed to create journal decoder: %w", err)
	}

	logger.Log.Info("local storage initialized", "path", path)
	return &Storage{db: db, now: time.Now, encoder: encoder, decoder: decoder}, nil
}

func (s *Storage) Cleanup() error {
	s.decoder.Close()
	if err := s.encoder.Close(); err != nil {
		logger.Log.Warn("failed to close journal encoder", "error", err)
	}
	return s.db.Close()
}

// Purge removes checkpoints older than checkpointAge and cached ids and journal
// entries older than draftAge.
func (s *Storage) Purge(ctx context.Context, checkpointAge, draftAge time.Duration) (int64, error) {
	now := s.now()
	var total int64

	stmts := []struct {
		query  string
		cutoff time.Time
	}{
		{`DELETE FROM upload_checkpoints WHERE updated_at < ?`, now.Add(-checkpointAge)},
		{`DELETE FROM draft_ids WHERE written_at < ?`, now.Add(-draftAge)},
		{`DELETE FROM draft_journal WHERE saved_at < ?`, now.Add(-draftAge)},
	}
	for _, st := range stmts {
		res, err := s.db.ExecContext(ctx, st.query, st.cutoff.UnixMilli())
		if err != nil {
			return total, fmt.Errorf("purge failed: %w", err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// StartBackgroundPurge runs Purge every interval until ctx is done.
func (s *Storage) StartBackgroundPurge(ctx context.Context, interval, checkpointAge, draftAge time.Duration) {
	ticker := time.NewTicker(interval)
	logger.Log.Info("started local storage purge", "interval", interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n, err := s.Purge(ctx, checkpointAge, draftAge)
				if err != nil {
					logger.Log.Error("local storage purge failed", "error", err)
					continue
				}
				logger.Log.Debug("local storage purge completed", "removed", n)
			case <-ctx.Done():
				logger.Log.Info("local storage purge stopped")
				return
			}
		}
	}()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}
