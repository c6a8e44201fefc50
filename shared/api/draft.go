package api

import (
	"time"

	"github.com/labportal/portal/shared/domain"
)

// Request DTOs

type SaveDraftRequest struct {
	DraftId   string      `json:"draft_id,omitempty"`
	Board     string      `json:"board" validate:"required"`
	Title     string      `json:"title"`
	Content   string      `json:"content"`
	IsPrivate bool        `json:"is_private"`
	Tags      domain.Tags `json:"tags"`
}

type AutoSaveDraftRequest struct {
	DraftId  string          `json:"draft_id" validate:"required,len=24,hexadecimal"`
	Title    string          `json:"title"`
	Content  string          `json:"content"`
	SaveType domain.SaveType `json:"save_type" validate:"required,oneof=auto unload manual"`
}

type PublishDraftRequest struct {
	Title     *string      `json:"title,omitempty"`
	Content   *string      `json:"content,omitempty"`
	IsPrivate *bool        `json:"is_private,omitempty"`
	Tags      *domain.Tags `json:"tags,omitempty"`
}

func NewPublishDraftRequest(o domain.PublishOverrides) PublishDraftRequest {
	return PublishDraftRequest{Title: o.Title, Content: o.Content, IsPrivate: o.IsPrivate, Tags: o.Tags}
}

// Response DTOs

type DraftRecord struct {
	Id              string      `json:"id,omitempty"`
	UnderscoreId    string      `json:"_id,omitempty"`
	DraftId         string      `json:"draft_id,omitempty"`
	Board           string      `json:"board"`
	Title           string      `json:"title"`
	Content         string      `json:"content"`
	IsPrivate       bool        `json:"is_private"`
	Tags            domain.Tags `json:"tags"`
	AttachmentCount int         `json:"attachment_count"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func (r DraftRecord) Normalize() domain.Draft {
	return domain.Draft{
		Id:    domain.ObjectID(firstNonEmpty(r.Id, r.UnderscoreId, r.DraftId)),
		Board: r.Board,
		DraftFields: domain.DraftFields{
			Title:     r.Title,
			Content:   r.Content,
			IsPrivate: r.IsPrivate,
			Tags:      r.Tags,
		},
		AttachmentCount: r.AttachmentCount,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// DraftEnvelope covers endpoints that wrap the record as {"draft": {...}}.
type DraftEnvelope struct {
	Draft *DraftRecord `json:"draft,omitempty"`
	DraftRecord
}

func (e DraftEnvelope) Normalize() domain.Draft {
	if e.Draft != nil {
		return e.Draft.Normalize()
	}
	return e.DraftRecord.Normalize()
}

type AutoSaveDraftResponse struct {
	SavedAt time.Time `json:"saved_at"`
}

type PublishDraftResponse struct {
	PostId string `json:"post_id"`
	Id     string `json:"id,omitempty"`
}

func (r PublishDraftResponse) Post() domain.Post {
	return domain.Post{Id: domain.ObjectID(firstNonEmpty(r.PostId, r.Id))}
}

// Composer API DTOs (browser <-> frontend)

type UpdateFieldsRequest struct {
	Title     string      `json:"title" validate:"max=200"`
	Content   string      `json:"content"`
	Format    string      `json:"format,omitempty" validate:"omitempty,oneof=html markdown"`
	IsPrivate bool        `json:"is_private"`
	Tags      domain.Tags `json:"tags" validate:"max=20,dive,max=50"`
}

type PublishRequest struct {
	Title     *string      `json:"title,omitempty"`
	Content   *string      `json:"content,omitempty"`
	Format    string       `json:"format,omitempty" validate:"omitempty,oneof=html markdown"`
	IsPrivate *bool        `json:"is_private,omitempty"`
	Tags      *domain.Tags `json:"tags,omitempty"`
}

type ComposeStateResponse struct {
	Board     string       `json:"board"`
	State     string       `json:"state"`
	DraftId   string       `json:"draft_id,omitempty"`
	Title     string       `json:"title"`
	Content   string       `json:"content"`
	IsPrivate bool         `json:"is_private"`
	Tags      domain.Tags  `json:"tags"`
	Recovered *JournalView `json:"recovered,omitempty"`
}

// JournalView is a locally journaled composition offered back to the user.
type JournalView struct {
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	SavedAt  time.Time `json:"saved_at"`
	SaveType string    `json:"save_type"`
}

type PublishResponse struct {
	PostId string `json:"post_id"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

type SaveResponse struct {
	DraftId string    `json:"draft_id"`
	SavedAt time.Time `json:"saved_at"`
}
