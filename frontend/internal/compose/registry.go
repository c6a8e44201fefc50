package compose

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labportal/portal/frontend/internal/apiclient"
	"github.com/labportal/portal/frontend/internal/draft"
	"github.com/labportal/portal/frontend/internal/upload"
	"github.com/labportal/portal/shared/domain"
	"github.com/labportal/portal/shared/logger"
	"github.com/labportal/portal/shared/storage/sqlite"
)

// Builder creates a fresh session for an author and board.
type Builder func(user *domain.User, board domain.BoardName) *Session

type Deps struct {
	API           *apiclient.APIClient
	Store         *sqlite.Storage
	StorageClient *http.Client
	Checkpoints   bool
	Draft         draft.Options
}

// NewBuilder wires sessions to the portal API and the local store.
func NewBuilder(deps Deps) Builder {
	return func(user *domain.User, board domain.BoardName) *Session {
		creds := apiclient.NewCredentials(user.Token)
		client := deps.API.For(creds)
		store := deps.Store.ForUser(user.Id)

		opts := upload.Options{StorageClient: deps.StorageClient, Tracker: upload.NewTracker()}
		if deps.Checkpoints {
			opts.Checkpoints = deps.Store
		}
		draftOpts := deps.Draft
		draftOpts.Journal = store

		return NewSession(user.Id, board, creds,
			draft.New(board, client, store, draftOpts),
			upload.New(client, opts),
			client)
	}
}

type sessionKey struct {
	user  domain.UserId
	board domain.BoardName
}

// Registry holds the open sessions, one per author and board.
type Registry struct {
	build   Builder
	idleTTL time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[sessionKey]*Session
}

func NewRegistry(build Builder, idleTTL time.Duration) *Registry {
	return &Registry{
		build:    build,
		idleTTL:  idleTTL,
		now:      time.Now,
		sessions: make(map[sessionKey]*Session),
	}
}

// Open returns the author's session for board, creating and resuming it when needed.
// A session whose draft was published is replaced by a fresh one.
func (r *Registry) Open(ctx context.Context, user *domain.User, board domain.BoardName) (*Session, error) {
	key := sessionKey{user.Id, board}

	r.mu.Lock()
	s, ok := r.sessions[key]
	if ok && s.draft.State() == draft.StatePublished {
		s.draft.Close()
		delete(r.sessions, key)
		activeSessions.Dec()
		ok = false
	}
	if ok {
		r.mu.Unlock()
		s.touch(user.Token, r.now())
		return s, nil
	}

	s = r.build(user, board)
	s.touch(user.Token, r.now())
	r.sessions[key] = s
	activeSessions.Inc()
	r.mu.Unlock()

	if _, err := s.draft.Resume(ctx); err != nil {
		r.remove(key, s)
		s.draft.Close()
		return nil, err
	}
	return s, nil
}

// Get returns an open session without creating one.
func (r *Registry) Get(user *domain.User, board domain.BoardName) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[sessionKey{user.Id, board}]
	r.mu.Unlock()
	if ok {
		s.touch(user.Token, r.now())
	}
	return s, ok
}

// Drop closes and forgets a session without saving.
func (r *Registry) Drop(userID domain.UserId, board domain.BoardName) {
	if s := r.take(sessionKey{userID, board}); s != nil {
		s.draft.Close()
	}
}

// Unload runs the page-unload save for a session and forgets it.
func (r *Registry) Unload(userID domain.UserId, board domain.BoardName) {
	if s := r.take(sessionKey{userID, board}); s != nil {
		s.draft.Unload()
	}
}

// UnloadAll runs the unload save for every open session and waits for the saves
// until ctx is done.
func (r *Registry) UnloadAll(ctx context.Context) error {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for key, s := range r.sessions {
		sessions = append(sessions, s)
		delete(r.sessions, key)
	}
	r.mu.Unlock()
	activeSessions.Set(0)

	for _, s := range sessions {
		s.draft.Unload()
	}
	for _, s := range sessions {
		if err := s.draft.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Expire unloads sessions idle longer than the registry TTL and returns how many.
func (r *Registry) Expire() int {
	now := r.now()

	r.mu.Lock()
	var expired []*Session
	for key, s := range r.sessions {
		if s.idleSince(now) > r.idleTTL {
			expired = append(expired, s)
			delete(r.sessions, key)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		activeSessions.Dec()
		s.draft.Unload()
	}
	return len(expired)
}

// StartBackgroundExpiry runs Expire every interval until ctx is done.
func (r *Registry) StartBackgroundExpiry(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	logger.Log.Info("started composer session expiry", "interval", interval, "idle_ttl", r.idleTTL)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := r.Expire(); n > 0 {
					logger.Log.Info("expired idle composer sessions", "count", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) take(key sessionKey) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	if !ok {
		return nil
	}
	delete(r.sessions, key)
	activeSessions.Dec()
	return s
}

func (r *Registry) remove(key sessionKey, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[key] == s {
		delete(r.sessions, key)
		activeSessions.Dec()
	}
}
