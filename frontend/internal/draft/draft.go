// Package draft keeps a composition resilient to reloads: it obtains a draft id
// after the author pauses typing, autosaves on an interval, saves once more on page
// unload and turns the draft into a post exactly once.
package draft

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/labportal/portal/shared/domain"
	"github.com/labportal/portal/shared/logger"
)

type State int

const (
	StateEmpty State = iota
	StatePending
	StateCreated
	StatePublishing
	StatePublished
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePending:
		return "pending"
	case StateCreated:
		return "created"
	case StatePublishing:
		return "publishing"
	case StatePublished:
		return "published"
	default:
		return "unknown"
	}
}

var (
	ErrPublishInProgress = errors.New("publish already in progress")
	ErrPublished         = errors.New("draft already published")
	ErrDiscarded         = errors.New("draft discarded while it was being created")
)

// DraftAPI is the part of the portal API that manages drafts.
type DraftAPI interface {
	CreateDraft(ctx context.Context, board domain.BoardName, fields domain.DraftFields) (domain.Draft, error)
	AutoSaveDraft(ctx context.Context, id domain.ObjectID, fields domain.DraftFields, saveType domain.SaveType) (time.Time, error)
	PublishDraft(ctx context.Context, id domain.ObjectID, overrides domain.PublishOverrides) (domain.Post, error)
	DeleteDraft(ctx context.Context, id domain.ObjectID) error
}

// IDCache remembers the draft id per board for one author.
type IDCache interface {
	LoadDraftID(ctx context.Context, board domain.BoardName) (domain.ObjectID, error)
	StoreDraftID(ctx context.Context, board domain.BoardName, id domain.ObjectID) error
	DeleteDraftID(ctx context.Context, board domain.BoardName) error
}

// Journal keeps the last composition written on unload.
type Journal interface {
	WriteJournal(ctx context.Context, board domain.BoardName, entry domain.JournalEntry) error
	ReadJournal(ctx context.Context, board domain.BoardName) (*domain.JournalEntry, error)
	DeleteJournal(ctx context.Context, board domain.BoardName) error
}

const (
	DefaultIdleDelay        = 2 * time.Second
	DefaultAutosaveInterval = 60 * time.Second

	// unloadTimeout bounds the detached save issued on page unload.
	unloadTimeout = 10 * time.Second
)

type Options struct {
	IdleDelay        time.Duration
	AutosaveInterval time.Duration
	// Journal is optional.
	Journal Journal
}

// Manager drives one composition session scoped to one board. It is safe for
// concurrent use by request handlers and its own timers.
type Manager struct {
	board            domain.BoardName
	api              DraftAPI
	cache            IDCache
	journal          Journal
	idleDelay        time.Duration
	autosaveInterval time.Duration
	log              *slog.Logger

	// base is cancelled by Close and parents every timer-driven call.
	base   context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	id         domain.ObjectID
	fields     domain.DraftFields
	publishing bool
	closed     bool
	// epoch changes on Discard so a create that was in flight can tell it lost.
	epoch uint64

	idle    *time.Timer
	idleGen uint64

	autosaveCancel context.CancelFunc

	creates singleflight.Group
	unloads sync.WaitGroup
}

func New(board domain.BoardName, api DraftAPI, cache IDCache, opts Options) *Manager {
	if opts.IdleDelay <= 0 {
		opts.IdleDelay = DefaultIdleDelay
	}
	if opts.AutosaveInterval <= 0 {
		opts.AutosaveInterval = DefaultAutosaveInterval
	}

	base, cancel := context.WithCancel(context.Background())
	return &Manager{
		board:            board,
		api:              api,
		cache:            cache,
		journal:          opts.Journal,
		idleDelay:        opts.IdleDelay,
		autosaveInterval: opts.AutosaveInterval,
		log:              logger.For("draft").With("board", board),
		base:             base,
		cancel:           cancel,
	}
}

func (m *Manager) Board() domain.BoardName { return m.board }

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// DraftID returns the held draft id, empty when none.
func (m *Manager) DraftID() domain.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

func (m *Manager) Fields() domain.DraftFields {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fields
}

// Close stops the idle timer and autosave. Unload saves already sent keep running.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.stopIdleLocked()
	m.stopAutosaveLocked()
	m.mu.Unlock()
	m.cancel()
}

// Wait blocks until detached unload saves finish or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.unloads.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
