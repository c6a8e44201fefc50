// Package compose ties one author's draft lifecycle and uploads for one board into a
// session, and keeps the open sessions of the service.
package compose

import (
	"context"
	"sync"
	"time"

	"github.com/labportal/portal/frontend/internal/apiclient"
	"github.com/labportal/portal/frontend/internal/draft"
	"github.com/labportal/portal/frontend/internal/upload"
	"github.com/labportal/portal/shared/domain"
)

// AttachmentAPI lists and removes attachments on behalf of the session's author.
type AttachmentAPI interface {
	ListAttachments(ctx context.Context, postID string) ([]domain.Attachment, error)
	DeleteAttachment(ctx context.Context, id string) error
}

// Session is one author composing one post on one board.
type Session struct {
	userID domain.UserId
	board  domain.BoardName

	creds       *apiclient.Credentials
	draft       *draft.Manager
	uploader    *upload.Uploader
	attachments AttachmentAPI

	mu       sync.Mutex
	lastSeen time.Time
}

func NewSession(userID domain.UserId, board domain.BoardName, creds *apiclient.Credentials, manager *draft.Manager, uploader *upload.Uploader, attachments AttachmentAPI) *Session {
	return &Session{
		userID:      userID,
		board:       board,
		creds:       creds,
		draft:       manager,
		uploader:    uploader,
		attachments: attachments,
		lastSeen:    time.Now(),
	}
}

func (s *Session) UserID() domain.UserId { return s.userID }
func (s *Session) Board() domain.BoardName { return s.board }
func (s *Session) Draft() *draft.Manager { return s.draft }
func (s *Session) Tracker() *upload.Tracker { return s.uploader.Tracker() }
func (s *Session) Attachments() AttachmentAPI { return s.attachments }

// Attach makes sure a draft exists, then uploads files to it one by one. Attachments
// scoped to the draft move to the post when it is published.
func (s *Session) Attach(ctx context.Context, files []upload.File, onProgress upload.BatchProgressFunc) (domain.ObjectID, upload.BatchResult, error) {
	id, err := s.draft.EnsureDraft(ctx)
	if err != nil {
		return "", upload.BatchResult{}, err
	}
	return id, s.uploader.UploadMany(ctx, id, files, onProgress), nil
}

// touch records activity and refreshes the token used by timer-driven calls.
func (s *Session) touch(token string, now time.Time) {
	if s.creds != nil && token != "" {
		s.creds.Set(token)
	}
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}
