package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labportal/portal/shared/api"
	"github.com/labportal/portal/shared/domain"
	internal_errors "github.com/labportal/portal/shared/errors"
	"github.com/labportal/portal/shared/validation"
)

// CreateDraft creates a draft on board, or returns the author's existing one for it.
func (c *Client) CreateDraft(ctx context.Context, board domain.BoardName, fields domain.DraftFields) (domain.Draft, error) {
	req := api.SaveDraftRequest{
		Board:     board,
		Title:     fields.Title,
		Content:   fields.Content,
		IsPrivate: fields.IsPrivate,
		Tags:      nonNilTags(fields.Tags),
	}

	var resp api.DraftEnvelope
	if err := c.doJSON(ctx, http.MethodPost, "/draft/save", req, &resp, "save drafts"); err != nil {
		return domain.Draft{}, err
	}

	draft := resp.Normalize()
	if !validation.IsObjectID(draft.Id.String()) {
		return domain.Draft{}, fmt.Errorf("portal returned malformed draft id %q", draft.Id)
	}
	if draft.Board == "" {
		draft.Board = board
	}
	return draft, nil
}

// AutoSaveDraft pushes the current fields into an existing draft.
func (c *Client) AutoSaveDraft(ctx context.Context, id domain.ObjectID, fields domain.DraftFields, saveType domain.SaveType) (time.Time, error) {
	if !validation.IsObjectID(id.String()) {
		return time.Time{}, malformedID("draft_id", id)
	}

	req := api.AutoSaveDraftRequest{
		DraftId:  id.String(),
		Title:    fields.Title,
		Content:  fields.Content,
		SaveType: saveType,
	}
	var resp api.AutoSaveDraftResponse
	if err := c.doJSON(ctx, http.MethodPost, "/draft/auto-save", req, &resp, "save drafts"); err != nil {
		return time.Time{}, err
	}
	return resp.SavedAt, nil
}

// PublishDraft converts the draft into a post. Non-nil overrides replace draft fields.
func (c *Client) PublishDraft(ctx context.Context, id domain.ObjectID, overrides domain.PublishOverrides) (domain.Post, error) {
	if !validation.IsObjectID(id.String()) {
		return domain.Post{}, malformedID("draft_id", id)
	}

	var resp api.PublishDraftResponse
	path := fmt.Sprintf("/draft/%s/publish", id)
	if err := c.doJSON(ctx, http.MethodPost, path, api.NewPublishDraftRequest(overrides), &resp, "publish posts"); err != nil {
		return domain.Post{}, err
	}
	return resp.Post(), nil
}

func (c *Client) DeleteDraft(ctx context.Context, id domain.ObjectID) error {
	if !validation.IsObjectID(id.String()) {
		return malformedID("draft_id", id)
	}
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/draft/%s", id), nil, nil, "delete drafts")
}

func malformedID(field string, id domain.ObjectID) error {
	return fmt.Errorf("%w: %w", validation.ErrMalformedID, &internal_errors.ValidationError{
		Field:   field,
		Message: fmt.Sprintf("%q is not a valid identifier", id),
	})
}

func nonNilTags(tags domain.Tags) domain.Tags {
	if tags == nil {
		return domain.Tags{}
	}
	return tags
}
