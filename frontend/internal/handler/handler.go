package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/labportal/portal/frontend/internal/compose"
	"github.com/labportal/portal/frontend/internal/markdown"
	"github.com/labportal/portal/shared/config"
	"github.com/labportal/portal/shared/domain"
	internal_errors "github.com/labportal/portal/shared/errors"
	mw "github.com/labportal/portal/shared/middleware"
	"github.com/labportal/portal/shared/utils"
)

const (
	maxBoardLength     = 100
	attachmentCacheTTL = 30 * time.Second
)

type Handler struct {
	Sessions      *compose.Registry
	TextProcessor *markdown.TextProcessor
	Public        config.Public

	// attachments caches draft attachment lists per author and draft.
	attachments *expirable.LRU[string, []domain.Attachment]
}

func New(sessions *compose.Registry, textProcessor *markdown.TextProcessor, publicCfg config.Public) *Handler {
	size := publicCfg.Security.AttachmentCache
	if size <= 0 {
		size = 1024
	}
	return &Handler{
		Sessions:      sessions,
		TextProcessor: textProcessor,
		Public:        publicCfg,
		attachments:   expirable.NewLRU[string, []domain.Attachment](size, nil, attachmentCacheTTL),
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// requestScope extracts the author and board every composer route needs.
func requestScope(w http.ResponseWriter, r *http.Request) (*domain.User, domain.BoardName, bool) {
	user := mw.GetUserFromContext(r)
	if user == nil {
		utils.WriteErrorAndStatusCode(w, &internal_errors.ErrorWithStatusCode{Message: "Please sign-in", StatusCode: http.StatusUnauthorized})
		return nil, "", false
	}

	board := strings.TrimSpace(chi.URLParam(r, "board"))
	if board == "" || utf8.RuneCountInString(board) > maxBoardLength {
		utils.WriteErrorAndStatusCode(w, &internal_errors.ValidationError{Field: "board", Message: "invalid board name"})
		return nil, "", false
	}
	return user, board, true
}

func attachmentKey(userID domain.UserId, draftID domain.ObjectID) string {
	return fmt.Sprintf("%d/%s", userID, draftID)
}
