package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labportal/portal/frontend/internal/draft"
	"github.com/labportal/portal/shared/api"
	"github.com/labportal/portal/shared/domain"
	internal_errors "github.com/labportal/portal/shared/errors"
	"github.com/labportal/portal/shared/logger"
	"github.com/labportal/portal/shared/utils"
)

// OpenComposer opens or resumes the composition session for a board.
func (h *Handler) OpenComposer(w http.ResponseWriter, r *http.Request) {
	user, board, ok := requestScope(w, r)
	if !ok {
		return
	}

	s, err := h.Sessions.Open(r.Context(), user, board)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	resp := composeState(board, s.Draft())
	journal, err := s.Draft().RecoverJournal(r.Context())
	if err != nil {
		logger.Log.Warn("failed to read draft journal", "board", board, "error", err)
	} else if journal != nil {
		resp.Recovered = &api.JournalView{
			Title:    journal.Title,
			Content:  journal.Content,
			SavedAt:  journal.SavedAt,
			SaveType: string(journal.SaveType),
		}
	}

	utils.WriteJSON(w, http.StatusOK, resp)
}

// UpdateFields records a keystroke.
func (h *Handler) UpdateFields(w http.ResponseWriter, r *http.Request) {
	user, board, ok := requestScope(w, r)
	if !ok {
		return
	}

	var body api.UpdateFieldsRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	content, err := h.renderContent(body.Content, body.Format)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	s, err := h.Sessions.Open(r.Context(), user, board)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	s.Draft().Update(domain.DraftFields{
		Title:     body.Title,
		Content:   content,
		IsPrivate: body.IsPrivate,
		Tags:      body.Tags,
	})

	utils.WriteJSON(w, http.StatusOK, composeState(board, s.Draft()))
}

// SaveDraft saves the current fields now.
func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	user, board, ok := requestScope(w, r)
	if !ok {
		return
	}

	s, err := h.Sessions.Open(r.Context(), user, board)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	savedAt, err := s.Draft().Save(r.Context())
	if err != nil {
		writeDraftError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, api.SaveResponse{DraftId: s.Draft().DraftID().String(), SavedAt: savedAt})
}

// Publish turns the draft into a post and closes the session.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	user, board, ok := requestScope(w, r)
	if !ok {
		return
	}

	var body api.PublishRequest
	if r.ContentLength != 0 {
		if err := utils.DecodeValidate(r.Body, &body); err != nil {
			utils.WriteErrorAndStatusCode(w, err)
			return
		}
	}
	overrides := domain.PublishOverrides{Title: body.Title, IsPrivate: body.IsPrivate, Tags: body.Tags}
	if body.Content != nil {
		content, err := h.renderContent(*body.Content, body.Format)
		if err != nil {
			utils.WriteErrorAndStatusCode(w, err)
			return
		}
		overrides.Content = &content
	}

	s, err := h.Sessions.Open(r.Context(), user, board)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	post, err := s.Draft().Publish(r.Context(), overrides)
	if err != nil {
		writeDraftError(w, err)
		return
	}

	h.attachments.Remove(attachmentKey(user.Id, post.DraftId))
	h.Sessions.Drop(user.Id, board)
	utils.WriteJSON(w, http.StatusCreated, api.PublishResponse{PostId: post.Id.String()})
}

// Unload receives the page-unload beacon. The beacon may carry the final fields as
// JSON or as a urlencoded form. It always answers 204.
func (h *Handler) Unload(w http.ResponseWriter, r *http.Request) {
	user, board, ok := requestScope(w, r)
	if !ok {
		return
	}
	defer w.WriteHeader(http.StatusNoContent)

	fields, hasFields := h.beaconFields(r)
	s, found := h.Sessions.Get(user, board)
	if !found && hasFields {
		var err error
		if s, err = h.Sessions.Open(r.Context(), user, board); err != nil {
			logger.Log.Debug("unload could not open session", "board", board, "error", err)
			return
		}
		found = true
	}
	if !found {
		return
	}
	if hasFields {
		s.Draft().Update(fields)
	}
	h.Sessions.Unload(user.Id, board)
}

// DismissRecovered drops the composition offered back from the last unload. The
// session and its draft are untouched.
func (h *Handler) DismissRecovered(w http.ResponseWriter, r *http.Request) {
	user, board, ok := requestScope(w, r)
	if !ok {
		return
	}

	s, err := h.Sessions.Open(r.Context(), user, board)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	if err := s.Draft().ClearJournal(r.Context()); err != nil {
		logger.Log.Error("failed to clear draft journal", "board", board, "error", err)
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Discard deletes the draft and closes the session.
func (h *Handler) Discard(w http.ResponseWriter, r *http.Request) {
	user, board, ok := requestScope(w, r)
	if !ok {
		return
	}

	s, err := h.Sessions.Open(r.Context(), user, board)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	draftID := s.Draft().DraftID()
	if err := s.Draft().Discard(r.Context()); err != nil {
		writeDraftError(w, err)
		return
	}

	h.attachments.Remove(attachmentKey(user.Id, draftID))
	h.Sessions.Drop(user.Id, board)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) renderContent(content, format string) (string, error) {
	if format == "markdown" {
		html, err := h.TextProcessor.Render(content)
		if err != nil {
			return "", &internal_errors.ValidationError{Field: "content", Message: "markdown could not be rendered"}
		}
		return html, nil
	}
	return h.TextProcessor.Sanitize(content), nil
}

func (h *Handler) beaconFields(r *http.Request) (domain.DraftFields, bool) {
	if r.ContentLength == 0 {
		return domain.DraftFields{}, false
	}

	var body api.UpdateFieldsRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := utils.Decode(r.Body, &body); err != nil {
			return domain.DraftFields{}, false
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return domain.DraftFields{}, false
		}
		if !r.PostForm.Has("title") && !r.PostForm.Has("content") {
			return domain.DraftFields{}, false
		}
		body.Title = r.PostForm.Get("title")
		body.Content = r.PostForm.Get("content")
		body.Format = r.PostForm.Get("format")
		body.IsPrivate = r.PostForm.Get("is_private") == "true"
		body.Tags = r.PostForm["tags"]
	}

	content, err := h.renderContent(body.Content, body.Format)
	if err != nil {
		return domain.DraftFields{}, false
	}
	return domain.DraftFields{Title: body.Title, Content: content, IsPrivate: body.IsPrivate, Tags: body.Tags}, true
}

func composeState(board string, m *draft.Manager) api.ComposeStateResponse {
	fields := m.Fields()
	tags := fields.Tags
	if tags == nil {
		tags = domain.Tags{}
	}
	return api.ComposeStateResponse{
		Board:     board,
		State:     m.State().String(),
		DraftId:   m.DraftID().String(),
		Title:     fields.Title,
		Content:   fields.Content,
		IsPrivate: fields.IsPrivate,
		Tags:      tags,
	}
}

// writeDraftError answers 409 for lifecycle conflicts.
func writeDraftError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, draft.ErrPublishInProgress), errors.Is(err, draft.ErrPublished), errors.Is(err, draft.ErrDiscarded):
		utils.WriteErrorAndStatusCode(w, &internal_errors.ErrorWithStatusCode{Message: err.Error(), StatusCode: http.StatusConflict})
	default:
		if internal_errors.StatusCode(err) >= http.StatusInternalServerError {
			logger.Log.Error("composer request failed", "error", err)
		}
		utils.WriteErrorAndStatusCode(w, err)
	}
}
