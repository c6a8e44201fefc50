package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"


	"github.com/labportal/portal/shared/domain"
)

// UserStore is the per-author view of Storage. The draft manager sees boards only.
type UserStore struct {
	s      *Storage
	userId domain.UserId
}

func (s *Storage) ForUser(userId domain.UserId) *UserStore {
	return &UserStore{s: s, userId: userId}
}

type draftIdRow struct {
	DraftId   string `db:"draft_id"`
	WrittenAt int64  `db:"written_at"`
}

// LoadDraftID returns the cached draft id for board, or a zero id when none is cached.
func (u *UserStore) LoadDraftID(ctx context.Context, board domain.BoardName) (domain.ObjectID, error) {
	var row draftIdRow
	err := u.s.db.GetContext(ctx, &row,
		`SELECT draft_id, written_at FROM draft_ids WHERE user_id = ? AND board = ?`, u.userId, board)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load draft id: %w", err)
	}
	if u.s.now().Sub(fromMillis(row.WrittenAt)) > domain.DraftTTL {
		// the portal has expired it by now
		return "", nil
	}
	return domain.ObjectID(row.DraftId), nil
}

func (u *UserStore) StoreDraftID(ctx context.Context, board domain.BoardName, id domain.ObjectID) error {
	_, err := u.s.db.ExecContext(ctx, `
		INSERT INTO draft_ids (user_id, board, draft_id, written_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, board) DO UPDATE SET draft_id = excluded.draft_id, written_at = excluded.written_at`,
		u.userId, board, id.String(), u.s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to store draft id: %w", err)
	}
	return nil
}

func (u *UserStore) DeleteDraftID(ctx context.Context, board domain.BoardName) error {
	_, err := u.s.db.ExecContext(ctx, `DELETE FROM draft_ids WHERE user_id = ? AND board = ?`, u.userId, board)
	if err != nil {
		return fmt.Errorf("failed to delete draft id: %w", err)
	}
	return nil
}

type journalRow struct {
	DraftId  string `db:"draft_id"`
	Payload  []byte `db:"payload"`
	SaveType string `db:"save_type"`
	SavedAt  int64  `db:"saved_at"`
}

type journalPayload struct {
	Title     string      `json:"title"`
	Content   string      `json:"content"`
	IsPrivate bool        `json:"is_private"`
	Tags      domain.Tags `json:"tags"`
}

// WriteJournal replaces the journal entry for board. Content is zstd-compressed.
func (u *UserStore) WriteJournal(ctx context.Context, board domain.BoardName, entry domain.JournalEntry) error {
	raw, err := json.Marshal(journalPayload{
		Title:     entry.Title,
		Content:   entry.Content,
		IsPrivate: entry.IsPrivate,
		Tags:      entry.Tags,
	})
	if err != nil {
		return err
	}
	payload := u.s.encoder.EncodeAll(raw, nil)

	savedAt := entry.SavedAt
	if savedAt.IsZero() {
		savedAt = u.s.now()
	}
	_, err = u.s.db.ExecContext(ctx, `
		INSERT INTO draft_journal (user_id, board, draft_id, payload, save_type, saved_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, board) DO UPDATE SET
			draft_id = excluded.draft_id, payload = excluded.payload,
			save_type = excluded.save_type, saved_at = excluded.saved_at`,
		u.userId, board, entry.DraftId.String(), payload, string(entry.SaveType), savedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write journal: %w", err)
	}
	return nil
}

// ReadJournal returns nil when nothing is journaled for board.
func (u *UserStore) ReadJournal(ctx context.Context, board domain.BoardName) (*domain.JournalEntry, error) {
	var row journalRow
	err := u.s.db.GetContext(ctx, &row,
		`SELECT draft_id, payload, save_type, saved_at FROM draft_journal WHERE user_id = ? AND board = ?`, u.userId, board)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	raw, err := u.s.decoder.DecodeAll(row.Payload, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress journal: %w", err)
	}
	var p journalPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("corrupt journal entry: %w", err)
	}

	return &domain.JournalEntry{
		DraftId: domain.ObjectID(row.DraftId),
		DraftFields: domain.DraftFields{
			Title:     p.Title,
			Content:   p.Content,
			IsPrivate: p.IsPrivate,
			Tags:      p.Tags,
		},
		SaveType: domain.SaveType(row.SaveType),
		SavedAt:  fromMillis(row.SavedAt),
	}, nil
}

func (u *UserStore) DeleteJournal(ctx context.Context, board domain.BoardName) error {
	_, err := u.s.db.ExecContext(ctx, `DELETE FROM draft_journal WHERE user_id = ? AND board = ?`, u.userId, board)
	if err != nil {
		return fmt.Errorf("failed to delete journal: %w", err)
	}
	return nil
}
