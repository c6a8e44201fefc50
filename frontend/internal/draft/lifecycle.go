package draft

import (
	"context"
	"time"

	"github.com/labportal/portal/shared/domain"
	internal_errors "github.com/labportal/portal/shared/errors"
	"github.com/labportal/portal/shared/validation"
)

// Resume reattaches to the draft cached for this board, if any, and starts autosave.
// A malformed cached id is dropped.
func (m *Manager) Resume(ctx context.Context) (domain.ObjectID, error) {
	id, err := m.cache.LoadDraftID(ctx, m.board)
	if err != nil {
		return "", err
	}
	if id.IsZero() {
		return "", nil
	}
	if !validation.IsObjectID(id.String()) {
		m.log.Warn("dropping malformed cached draft id", "draft_id", id)
		if err := m.cache.DeleteDraftID(ctx, m.board); err != nil {
			m.log.Warn("failed to delete cached draft id", "error", err)
		}
		return "", nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || !m.id.IsZero() || m.state >= StatePublishing {
		return m.id, nil
	}
	m.id = id
	m.state = StateCreated
	m.stopIdleLocked()
	m.startAutosaveLocked()
	return id, nil
}

// Update records the latest fields. Without a draft id, non-blank fields (re)arm the
// idle timer and blank fields return the session to Empty.
func (m *Manager) Update(fields domain.DraftFields) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StatePublished {
		return m.state
	}
	m.fields = fields

	if !m.id.IsZero() || m.state >= StateCreated {
		return m.state
	}
	if fields.Blank() {
		m.stopIdleLocked()
		m.state = StateEmpty
		return m.state
	}
	m.state = StatePending
	if !m.closed {
		m.resetIdleLocked()
	}
	return m.state
}

func (m *Manager) resetIdleLocked() {
	m.stopIdleLocked()
	gen := m.idleGen
	m.idle = time.AfterFunc(m.idleDelay, func() { m.onIdle(gen) })
}

func (m *Manager) stopIdleLocked() {
	m.idleGen++
	if m.idle != nil {
		m.idle.Stop()
		m.idle = nil
	}
}

// onIdle decides at fire time: the attach path may have created the draft already.
func (m *Manager) onIdle(gen uint64) {
	m.mu.Lock()
	fire := gen == m.idleGen && m.state == StatePending && m.id.IsZero() && !m.fields.Blank()
	m.mu.Unlock()
	if !fire {
		return
	}

	if _, err := m.EnsureDraft(m.base); err != nil {
		m.log.Warn("idle draft creation failed", "error", err)
	}
}

// EnsureDraft returns the session's draft id, creating the draft if needed. Concurrent
// callers share one create call and a session never creates a second draft.
func (m *Manager) EnsureDraft(ctx context.Context) (domain.ObjectID, error) {
	m.mu.Lock()
	switch {
	case m.state == StatePublished:
		m.mu.Unlock()
		return "", ErrPublished
	case m.publishing:
		m.mu.Unlock()
		return "", ErrPublishInProgress
	case !m.id.IsZero():
		id := m.id
		m.mu.Unlock()
		return id, nil
	}
	m.mu.Unlock()

	return m.obtainID(ctx)
}

// obtainID creates the draft through singleflight. The create runs detached from
// ctx cancellation: once sent, its id must be recorded or the draft is lost.
func (m *Manager) obtainID(ctx context.Context) (domain.ObjectID, error) {
	v, err, _ := m.creates.Do("create", func() (any, error) {
		return m.create(context.WithoutCancel(ctx))
	})
	if err != nil {
		return "", err
	}
	return v.(domain.ObjectID), nil
}

func (m *Manager) create(ctx context.Context) (domain.ObjectID, error) {
	m.mu.Lock()
	if !m.id.IsZero() {
		id := m.id
		m.mu.Unlock()
		return id, nil
	}
	fields, epoch := m.fields, m.epoch
	m.mu.Unlock()

	draft, err := m.api.CreateDraft(ctx, m.board, fields)
	if err != nil {
		operationsTotal.WithLabelValues("create", "failure").Inc()
		return "", err
	}
	operationsTotal.WithLabelValues("create", "success").Inc()

	m.mu.Lock()
	if epoch != m.epoch || m.state == StatePublished {
		m.mu.Unlock()
		m.log.Info("deleting draft created after discard", "draft_id", draft.Id)
		if err := m.api.DeleteDraft(ctx, draft.Id); err != nil {
			m.log.Warn("failed to delete orphaned draft", "draft_id", draft.Id, "error", err)
		}
		return "", ErrDiscarded
	}
	m.id = draft.Id
	m.stopIdleLocked()
	if m.state < StateCreated {
		m.state = StateCreated
		if !m.closed {
			m.startAutosaveLocked()
		}
	}
	m.mu.Unlock()

	m.log.Info("draft created", "draft_id", draft.Id)
	if err := m.cache.StoreDraftID(ctx, m.board, draft.Id); err != nil {
		m.log.Warn("failed to cache draft id", "draft_id", draft.Id, "error", err)
	}
	return draft.Id, nil
}

func (m *Manager) startAutosaveLocked() {
	if m.autosaveCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(m.base)
	m.autosaveCancel = cancel

	go func() {
		ticker := time.NewTicker(m.autosaveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.autosave(ctx)
			}
		}
	}()
}

func (m *Manager) stopAutosaveLocked() {
	if m.autosaveCancel != nil {
		m.autosaveCancel()
		m.autosaveCancel = nil
	}
}

// autosave pushes the current fields. Failures are logged and leave the state alone.
func (m *Manager) autosave(ctx context.Context) {
	m.mu.Lock()
	if m.state != StateCreated || m.id.IsZero() || m.fields.Blank() {
		m.mu.Unlock()
		return
	}
	id, fields := m.id, m.fields
	m.mu.Unlock()

	if _, err := m.api.AutoSaveDraft(ctx, id, fields, domain.SaveTypeAuto); err != nil {
		if ctx.Err() != nil {
			return
		}
		operationsTotal.WithLabelValues("autosave", "failure").Inc()
		m.log.Warn("autosave failed", "draft_id", id, "error", &internal_errors.AutosaveError{Err: err})
		return
	}
	operationsTotal.WithLabelValues("autosave", "success").Inc()
}

// Save pushes the current fields now with save_type=manual, creating the draft first
// when none exists.
func (m *Manager) Save(ctx context.Context) (time.Time, error) {
	id, err := m.EnsureDraft(ctx)
	if err != nil {
		return time.Time{}, err
	}
	fields := m.Fields()

	savedAt, err := m.api.AutoSaveDraft(ctx, id, fields, domain.SaveTypeManual)
	if err != nil {
		operationsTotal.WithLabelValues("save", "failure").Inc()
		return time.Time{}, err
	}
	operationsTotal.WithLabelValues("save", "success").Inc()
	return savedAt, nil
}
