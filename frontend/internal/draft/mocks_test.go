package draft

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labportal/portal/shared/domain"
)

const draftID domain.ObjectID = "65a1b2c3d4e5f60718293a4b"

type mockDraftAPI struct {
	CreateDraftFunc   func(ctx context.Context, board domain.BoardName, fields domain.DraftFields) (domain.Draft, error)
	AutoSaveDraftFunc func(ctx context.Context, id domain.ObjectID, fields domain.DraftFields, saveType domain.SaveType) (time.Time, error)
	PublishDraftFunc  func(ctx context.Context, id domain.ObjectID, overrides domain.PublishOverrides) (domain.Post, error)
	DeleteDraftFunc   func(ctx context.Context, id domain.ObjectID) error

	creates   atomic.Int32
	autosaves atomic.Int32
	publishes atomic.Int32
	deletes   atomic.Int32

	mu         sync.Mutex
	saveTypes  []domain.SaveType
	lastFields domain.DraftFields
	lastBoard  domain.BoardName
}

func (m *mockDraftAPI) CreateDraft(ctx context.Context, board domain.BoardName, fields domain.DraftFields) (domain.Draft, error) {
	m.creates.Add(1)
	m.mu.Lock()
	m.lastBoard, m.lastFields = board, fields
	m.mu.Unlock()
	if m.CreateDraftFunc == nil {
		return domain.Draft{Id: draftID, Board: board, DraftFields: fields}, nil
	}
	return m.CreateDraftFunc(ctx, board, fields)
}

func (m *mockDraftAPI) AutoSaveDraft(ctx context.Context, id domain.ObjectID, fields domain.DraftFields, saveType domain.SaveType) (time.Time, error) {
	m.autosaves.Add(1)
	m.mu.Lock()
	m.saveTypes = append(m.saveTypes, saveType)
	m.lastFields = fields
	m.mu.Unlock()
	if m.AutoSaveDraftFunc == nil {
		return time.Now(), nil
	}
	return m.AutoSaveDraftFunc(ctx, id, fields, saveType)
}

func (m *mockDraftAPI) PublishDraft(ctx context.Context, id domain.ObjectID, overrides domain.PublishOverrides) (domain.Post, error) {
	m.publishes.Add(1)
	if m.PublishDraftFunc == nil {
		return domain.Post{Id: "65a1b2c3d4e5f60718293aff"}, nil
	}
	return m.PublishDraftFunc(ctx, id, overrides)
}

func (m *mockDraftAPI) DeleteDraft(ctx context.Context, id domain.ObjectID) error {
	m.deletes.Add(1)
	if m.DeleteDraftFunc == nil {
		return nil
	}
	return m.DeleteDraftFunc(ctx, id)
}

func (m *mockDraftAPI) SaveTypes() []domain.SaveType {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.SaveType(nil), m.saveTypes...)
}

func (m *mockDraftAPI) LastBoard() domain.BoardName {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastBoard
}

// memStore implements IDCache and Journal in memory.
type memStore struct {
	mu      sync.Mutex
	ids     map[domain.BoardName]domain.ObjectID
	journal map[domain.BoardName]domain.JournalEntry
}

func newMemStore() *memStore {
	return &memStore{ids: map[string]domain.ObjectID{}, journal: map[string]domain.JournalEntry{}}
}

func (s *memStore) LoadDraftID(_ context.Context, board domain.BoardName) (domain.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids[board], nil
}

func (s *memStore) StoreDraftID(_ context.Context, board domain.BoardName, id domain.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[board] = id
	return nil
}

func (s *memStore) DeleteDraftID(_ context.Context, board domain.BoardName) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, board)
	return nil
}

func (s *memStore) WriteJournal(_ context.Context, board domain.BoardName, entry domain.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal[board] = entry
	return nil
}

func (s *memStore) ReadJournal(_ context.Context, board domain.BoardName) (*domain.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.journal[board]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *memStore) DeleteJournal(_ context.Context, board domain.BoardName) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.journal, board)
	return nil
}

func (s *memStore) cached(board domain.BoardName) domain.ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids[board]
}
