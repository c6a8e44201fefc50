package handler

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/labportal/portal/frontend/internal/upload"
	"github.com/labportal/portal/shared/api"
	internal_errors "github.com/labportal/portal/shared/errors"
	"github.com/labportal/portal/shared/utils"
	"github.com/labportal/portal/shared/validation"
)

// multipartOverhead is allowed on top of the file bytes of one request.
const multipartOverhead = 1 << 20

// UploadAttachments attaches the "files" parts of a multipart form to the draft,
// creating the draft first when needed.
func (h *Handler) UploadAttachments(w http.ResponseWriter, r *http.Request) {
	user, board, ok := requestScope(w, r)
	if !ok {
		return
	}

	maxFiles := h.Public.Upload.MaxFilesPerRequest
	if err := validation.ValidateAndParseMultipart(r, w, validation.CalculateMaxRequestSize(maxFiles, multipartOverhead)); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		utils.WriteErrorAndStatusCode(w, &internal_errors.ValidationError{Field: "files", Message: "no files attached"})
		return
	}
	if len(headers) > maxFiles {
		utils.WriteErrorAndStatusCode(w, &internal_errors.ValidationError{
			Field:   "files",
			Message: fmt.Sprintf("at most %d files per request", maxFiles),
		})
		return
	}

	files, closeFiles, err := openParts(headers)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	defer closeFiles()

	s, err := h.Sessions.Open(r.Context(), user, board)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	draftID, result, err := s.Attach(r.Context(), files, nil)
	if err != nil {
		writeDraftError(w, err)
		return
	}
	h.attachments.Remove(attachmentKey(user.Id, draftID))

	resp := api.BatchUploadResponse{
		DraftId:      draftID.String(),
		TotalFiles:   result.TotalFiles,
		SuccessCount: result.SuccessCount,
		FailCount:    result.FailCount,
		Results:      make([]api.FileResultResponse, 0, len(result.Results)),
	}
	for _, fr := range result.Results {
		item := api.FileResultResponse{File: fr.File, Success: fr.Success}
		if fr.Data != nil {
			a := api.NewAttachmentResponse(*fr.Data)
			item.Data = &a
		}
		if fr.Err != nil {
			item.Error = fr.Err.Error()
			item.Status = internal_errors.StatusCode(fr.Err)
		}
		resp.Results = append(resp.Results, item)
	}

	utils.WriteJSON(w, http.StatusOK, resp)
}

// openParts opens every uploaded part. multipart.File is an io.ReaderAt, so parts kept
// on disk are read in place chunk by chunk.
func openParts(headers []*multipart.FileHeader) ([]upload.File, func(), error) {
	files := make([]upload.File, 0, len(headers))
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to open uploaded part %q: %w", fh.Filename, err)
		}
		opened = append(opened, f)
		files = append(files, upload.File{Name: fh.Filename, Size: fh.Size, Content: f})
	}
	return files, closeAll, nil
}

// ListAttachments lists the draft's attachments. Without a draft the list is empty.
func (h *Handler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	user, board, ok := requestScope(w, r)
	if !ok {
		return
	}

	s, err := h.Sessions.Open(r.Context(), user, board)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	resp := api.ComposeAttachmentsResponse{Attachments: []api.AttachmentResponse{}}
	draftID := s.Draft().DraftID()
	if draftID.IsZero() {
		utils.WriteJSON(w, http.StatusOK, resp)
		return
	}

	key := attachmentKey(user.Id, draftID)
	list, cached := h.attachments.Get(key)
	if !cached {
		if list, err = s.Attachments().ListAttachments(r.Context(), draftID.String()); err != nil {
			utils.WriteErrorAndStatusCode(w, err)
			return
		}
		h.attachments.Add(key, list)
	}

	for _, a := range list {
		resp.Attachments = append(resp.Attachments, api.NewAttachmentResponse(a))
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

// DeleteAttachment removes one attachment by id.
func (h *Handler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	user, board, ok := requestScope(w, r)
	if !ok {
		return
	}

	s, err := h.Sessions.Open(r.Context(), user, board)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	if err := s.Attachments().DeleteAttachment(r.Context(), chi.URLParam(r, "id")); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	h.attachments.Remove(attachmentKey(user.Id, s.Draft().DraftID()))
	w.WriteHeader(http.StatusNoContent)
}

// UploadProgress returns the session's tracked uploads for progress polling.
func (h *Handler) UploadProgress(w http.ResponseWriter, r *http.Request) {
	user, board, ok := requestScope(w, r)
	if !ok {
		return
	}

	resp := []api.UploadProgressResponse{}
	if s, found := h.Sessions.Get(user, board); found {
		for _, e := range s.Tracker().Snapshot() {
			resp = append(resp, api.UploadProgressResponse{
				TrackingId: e.TrackingID,
				Filename:   e.Filename,
				Size:       e.Size,
				Transport:  string(e.Transport),
				Percent:    e.Percent,
				Status:     string(e.Status),
				Error:      e.Err,
				UpdatedAt:  e.UpdatedAt,
			})
		}
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

