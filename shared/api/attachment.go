package api

import (
	"time"

	"github.com/labportal/portal/shared/domain"
)

// Request DTOs

type StartDirectUploadRequest struct {
	PostId   string `json:"post_id" validate:"required,len=24,hexadecimal"`
	Filename string `json:"filename" validate:"required,max=255"`
	MimeType string `json:"mime_type" validate:"required"`
	FileSize int64  `json:"file_size" validate:"gte=0"`
}

type CompleteDirectUploadRequest struct {
	PostId   string `json:"post_id" validate:"required,len=24,hexadecimal"`
	Filename string `json:"filename" validate:"required,max=255"`
	FileId   string `json:"file_id" validate:"required"`
	FileSize int64  `json:"file_size" validate:"gte=0"`
}

// Response DTOs

type StartDirectUploadResponse struct {
	UploadURL   string `json:"upload_url"`
	AccessToken string `json:"access_token"`
	ChunkSize   int64  `json:"chunk_size,omitempty"`
}

func (r StartDirectUploadResponse) Session() *domain.UploadSession {
	return &domain.UploadSession{
		UploadURL:   r.UploadURL,
		AccessToken: r.AccessToken,
		ChunkSize:   r.ChunkSize,
	}
}

// StorageObjectResponse is the final answer of the remote storage endpoint to a chunk PUT.
type StorageObjectResponse struct {
	Id     string `json:"id"`
	FileId string `json:"file_id"`
}

func (r StorageObjectResponse) ObjectID() string {
	if r.Id != "" {
		return r.Id
	}
	return r.FileId
}

// AttachmentRecord is an attachment as the portal API serialises it. The API has used
// attachment_id, _id, id and file_id for the same identity; Normalize picks one.
type AttachmentRecord struct {
	AttachmentId      string    `json:"attachment_id,omitempty"`
	UnderscoreId      string    `json:"_id,omitempty"`
	Id                string    `json:"id,omitempty"`
	FileId            string    `json:"file_id,omitempty"`
	PostId            string    `json:"post_id,omitempty"`
	OriginalFilename  string    `json:"original_filename"`
	FileSize          int64     `json:"file_size"`
	FileType          string    `json:"file_type,omitempty"`
	MimeType          string    `json:"mime_type,omitempty"`
	UploadDate        time.Time `json:"upload_date"`
	UploaderId        string    `json:"uploader_id,omitempty"`
	IsDuplicate       bool      `json:"is_duplicate"`
	IsDraftAttachment bool      `json:"is_draft_attachment"`
}

func (r AttachmentRecord) Normalize() domain.Attachment {
	mimeType := r.MimeType
	if mimeType == "" {
		mimeType = r.FileType
	}
	return domain.Attachment{
		Id:                domain.ObjectID(firstNonEmpty(r.AttachmentId, r.UnderscoreId, r.Id, r.FileId)),
		PostId:            domain.ObjectID(r.PostId),
		OriginalFilename:  r.OriginalFilename,
		FileSize:          r.FileSize,
		MimeType:          mimeType,
		UploadDate:        r.UploadDate,
		UploaderId:        r.UploaderId,
		IsDuplicate:       r.IsDuplicate,
		IsDraftAttachment: r.IsDraftAttachment,
	}
}

// AttachmentEnvelope covers endpoints that wrap the record as {"attachment": {...}}.
type AttachmentEnvelope struct {
	Attachment *AttachmentRecord `json:"attachment,omitempty"`
	AttachmentRecord
}

func (e AttachmentEnvelope) Normalize() domain.Attachment {
	if e.Attachment != nil {
		return e.Attachment.Normalize()
	}
	return e.AttachmentRecord.Normalize()
}

type AttachmentListResponse struct {
	Attachments []AttachmentRecord `json:"attachments"`
}

// AttachmentResponse is what the composer API returns to the browser.
type AttachmentResponse struct {
	Id                string    `json:"id"`
	PostId            string    `json:"post_id,omitempty"`
	OriginalFilename  string    `json:"original_filename"`
	FileSize          int64     `json:"file_size"`
	MimeType          string    `json:"mime_type"`
	UploadDate        time.Time `json:"upload_date"`
	IsDuplicate       bool      `json:"is_duplicate"`
	IsDraftAttachment bool      `json:"is_draft_attachment"`
	Width             *int      `json:"width,omitempty"`
	Height            *int      `json:"height,omitempty"`
}

func NewAttachmentResponse(a domain.Attachment) AttachmentResponse {
	return AttachmentResponse{
		Id:                a.Id.String(),
		PostId:            a.PostId.String(),
		OriginalFilename:  a.OriginalFilename,
		FileSize:          a.FileSize,
		MimeType:          a.MimeType,
		UploadDate:        a.UploadDate,
		IsDuplicate:       a.IsDuplicate,
		IsDraftAttachment: a.IsDraftAttachment,
		Width:             a.Width,
		Height:            a.Height,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// FileResultResponse is one file of a composer batch upload.
type FileResultResponse struct {
	File    string              `json:"file"`
	Success bool                `json:"success"`
	Data    *AttachmentResponse `json:"data,omitempty"`
	Error   string              `json:"error,omitempty"`
	Status  int                 `json:"status,omitempty"`
}

type BatchUploadResponse struct {
	DraftId      string               `json:"draft_id"`
	TotalFiles   int                  `json:"total_files"`
	SuccessCount int                  `json:"success_count"`
	FailCount    int                  `json:"fail_count"`
	Results      []FileResultResponse `json:"results"`
}

type ComposeAttachmentsResponse struct {
	Attachments []AttachmentResponse `json:"attachments"`
}

// UploadProgressResponse reports one tracked upload for progress polling.
type UploadProgressResponse struct {
	TrackingId string    `json:"tracking_id"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	Transport  string    `json:"transport,omitempty"`
	Percent    int       `json:"percent"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}
