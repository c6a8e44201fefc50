package draft

import (
	"context"
	"time"

	"github.com/labportal/portal/shared/domain"
	internal_errors "github.com/labportal/portal/shared/errors"
)

// Publish turns the draft into a post. A second call while one is outstanding returns
// ErrPublishInProgress without reaching the portal. On failure the session rolls back
// to Created with autosave resumed and the error is a *errors.PublishError.
func (m *Manager) Publish(ctx context.Context, overrides domain.PublishOverrides) (domain.Post, error) {
	m.mu.Lock()
	if m.publishing {
		m.mu.Unlock()
		return domain.Post{}, ErrPublishInProgress
	}
	if m.state == StatePublished {
		m.mu.Unlock()
		return domain.Post{}, ErrPublished
	}
	if m.id.IsZero() && m.fields.Blank() {
		m.mu.Unlock()
		return domain.Post{}, &internal_errors.ValidationError{Field: "content", Message: "title or content is required"}
	}
	m.publishing = true
	prev := m.state
	m.state = StatePublishing
	m.stopIdleLocked()
	m.stopAutosaveLocked()
	id := m.id
	m.mu.Unlock()

	if id.IsZero() {
		var err error
		if id, err = m.obtainID(ctx); err != nil {
			m.rollback(prev)
			return domain.Post{}, &internal_errors.PublishError{Err: err}
		}
	}

	post, err := m.api.PublishDraft(ctx, id, overrides)
	if err != nil {
		operationsTotal.WithLabelValues("publish", "failure").Inc()
		m.log.Warn("publish failed, draft kept", "draft_id", id, "error", err)
		m.rollback(StateCreated)
		return domain.Post{}, &internal_errors.PublishError{Err: err}
	}
	operationsTotal.WithLabelValues("publish", "success").Inc()
	post.DraftId = id

	m.mu.Lock()
	m.publishing = false
	m.state = StatePublished
	m.id = ""
	m.mu.Unlock()

	m.log.Info("draft published", "draft_id", id, "post_id", post.Id)
	m.forget(context.WithoutCancel(ctx))
	return post, nil
}

func (m *Manager) rollback(to State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.publishing = false
	if !m.id.IsZero() {
		to = StateCreated
	}
	m.state = to
	if m.closed {
		return
	}
	switch to {
	case StateCreated:
		m.startAutosaveLocked()
	case StatePending:
		m.resetIdleLocked()
	}
}

// Unload issues one best-effort save of non-blank fields that outlives the caller.
// Without a draft id it goes through the same single create as every other trigger,
// joining one already in flight, and then sends the fields as an unload save.
// Nothing is retried and the result is not reported. The fields also go to the local
// journal.
func (m *Manager) Unload() {
	m.mu.Lock()
	if m.state >= StatePublishing {
		m.mu.Unlock()
		return
	}
	id, fields := m.id, m.fields
	m.closed = true
	m.stopIdleLocked()
	m.stopAutosaveLocked()
	m.mu.Unlock()

	if fields.Blank() {
		return
	}

	m.writeJournal(id, fields)

	m.unloads.Add(1)
	go func() {
		defer m.unloads.Done()
		ctx, cancel := context.WithTimeout(context.Background(), unloadTimeout)
		defer cancel()

		var err error
		if id.IsZero() {
			id, err = m.obtainID(ctx)
		}
		if err == nil {
			_, err = m.api.AutoSaveDraft(ctx, id, fields, domain.SaveTypeUnload)
		}
		if err != nil {
			operationsTotal.WithLabelValues("unload", "failure").Inc()
			m.log.Debug("unload save failed", "draft_id", id, "error", err)
			return
		}
		operationsTotal.WithLabelValues("unload", "success").Inc()
	}()
}

// Discard deletes the draft on the portal (errors are logged), forgets it locally and
// returns the session to Empty.
func (m *Manager) Discard(ctx context.Context) error {
	m.mu.Lock()
	if m.publishing {
		m.mu.Unlock()
		return ErrPublishInProgress
	}
	id := m.id
	m.id = ""
	m.fields = domain.DraftFields{}
	m.state = StateEmpty
	m.epoch++
	m.stopIdleLocked()
	m.stopAutosaveLocked()
	m.mu.Unlock()

	if !id.IsZero() {
		if err := m.api.DeleteDraft(ctx, id); err != nil {
			operationsTotal.WithLabelValues("discard", "failure").Inc()
			m.log.Warn("failed to delete draft", "draft_id", id, "error", err)
		} else {
			operationsTotal.WithLabelValues("discard", "success").Inc()
		}
	}
	m.forget(ctx)
	return nil
}

// forget removes the cached id and the journal for this board.
func (m *Manager) forget(ctx context.Context) {
	if err := m.cache.DeleteDraftID(ctx, m.board); err != nil {
		m.log.Warn("failed to delete cached draft id", "error", err)
	}
	if m.journal != nil {
		if err := m.journal.DeleteJournal(ctx, m.board); err != nil {
			m.log.Warn("failed to delete draft journal", "error", err)
		}
	}
}

func (m *Manager) writeJournal(id domain.ObjectID, fields domain.DraftFields) {
	if m.journal == nil {
		return
	}
	entry := domain.JournalEntry{
		DraftId:     id,
		DraftFields: fields,
		SaveType:    domain.SaveTypeUnload,
		SavedAt:     time.Now(),
	}
	if err := m.journal.WriteJournal(context.Background(), m.board, entry); err != nil {
		m.log.Warn("failed to write draft journal", "error", err)
	}
}

// RecoverJournal returns the composition last written on unload for this board, or
// nil. The entry stays until ClearJournal, publish or discard.
func (m *Manager) RecoverJournal(ctx context.Context) (*domain.JournalEntry, error) {
	if m.journal == nil {
		return nil, nil
	}
	return m.journal.ReadJournal(ctx, m.board)
}

// ClearJournal forgets the recovered composition without touching the draft.
func (m *Manager) ClearJournal(ctx context.Context) error {
	if m.journal == nil {
		return nil
	}
	return m.journal.DeleteJournal(ctx, m.board)
}
