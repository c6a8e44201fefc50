// Package upload moves local files into portal attachments. It prefers the direct path
// (session from the portal, chunked PUTs straight to object storage, completion call) and
// falls back once to a whole-file multipart upload through the portal.
package upload

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labportal/portal/shared/domain"
	internal_errors "github.com/labportal/portal/shared/errors"
	"github.com/labportal/portal/shared/logger"
	"github.com/labportal/portal/shared/validation"
)

// PortalAPI is the part of the portal REST API the uploader needs.
type PortalAPI interface {
	StartDirectUpload(ctx context.Context, targetID domain.ObjectID, filename, mimeType string, size int64) (*domain.UploadSession, error)
	CompleteDirectUpload(ctx context.Context, targetID domain.ObjectID, filename, objectID string, size int64) (domain.Attachment, error)
	UploadMultipart(ctx context.Context, targetID domain.ObjectID, filename, mimeType string, content io.Reader, onSent func(int64)) (domain.Attachment, error)
}

// CheckpointStore persists direct-upload progress. See Resume.
type CheckpointStore interface {
	LoadCheckpoint(ctx context.Context, fileHash string, targetId domain.ObjectID) (*domain.UploadCheckpoint, error)
	SaveCheckpoint(ctx context.Context, cp domain.UploadCheckpoint) error
	DeleteCheckpoint(ctx context.Context, fileHash string, targetId domain.ObjectID) error
}

// File is a local file to upload. Content must stay readable for the whole upload.
type File struct {
	Name     string
	Size     int64
	MimeType string // sniffed from content when empty
	Content  io.ReaderAt
}

// ProgressFunc receives a whole percentage in [0, 100]. Values never decrease within
// one transport attempt.
type ProgressFunc func(percent int)

type Options struct {
	// StorageClient sends chunk PUTs. No timeout is set by default.
	StorageClient *http.Client
	// Checkpoints enables resumable direct uploads when non-nil.
	Checkpoints CheckpointStore
	Tracker     *Tracker
}

// Uploader is safe for concurrent use; each call handles one file or one batch.
type Uploader struct {
	api         PortalAPI
	storage     *http.Client
	checkpoints CheckpointStore
	tracker     *Tracker
}

func New(api PortalAPI, opts Options) *Uploader {
	storage := opts.StorageClient
	if storage == nil {
		storage = &http.Client{}
	}
	return &Uploader{
		api:         api,
		storage:     storage,
		checkpoints: opts.Checkpoints,
		tracker:     opts.Tracker,
	}
}

// Tracker returns the tracker attached to this uploader, possibly nil.
func (u *Uploader) Tracker() *Tracker {
	return u.tracker
}

// UploadFile validates the file, starts a fresh direct upload and on a session or chunk
// failure retries the whole file once through UploadFallback. A CompletionError is
// returned as is: the bytes are in storage and a second copy would only add an orphan.
func (u *Uploader) UploadFile(ctx context.Context, targetID domain.ObjectID, file File, onProgress ProgressFunc) (domain.Attachment, error) {
	return u.upload(ctx, targetID, file, onProgress, false)
}

// Resume continues a checkpointed direct upload of the same content to the same target
// from the last acknowledged offset. Without a checkpoint it behaves as UploadFile.
// This is best effort: a failing resumed PUT still falls back to the multipart path.
func (u *Uploader) Resume(ctx context.Context, targetID domain.ObjectID, file File, onProgress ProgressFunc) (domain.Attachment, error) {
	return u.upload(ctx, targetID, file, onProgress, true)
}

func (u *Uploader) upload(ctx context.Context, targetID domain.ObjectID, file File, onProgress ProgressFunc, resume bool) (domain.Attachment, error) {
	if err := validation.ValidateFileUpload(file.Name, file.Size); err != nil {
		return domain.Attachment{}, err
	}
	if !validation.IsObjectID(targetID.String()) {
		return domain.Attachment{}, &internal_errors.ValidationError{Field: "post_id", Message: "attachments need a post or draft id"}
	}
	if file.MimeType == "" {
		file.MimeType = validation.DetectMimeType(file.Name, file.Content, file.Size)
	}
	width, height := validation.ExtractImageDimensions(file.Content, file.Size, file.MimeType)

	trackingID := u.tracker.Begin(file.Name, file.Size)
	progress := func(p int) {
		u.tracker.Progress(trackingID, p)
		if onProgress != nil {
			onProgress(p)
		}
	}

	hash := u.fileHash(file)

	u.tracker.SetTransport(trackingID, TransportDirect)
	attachment, err := u.uploadDirect(ctx, targetID, file, hash, progress, resume)
	if err == nil {
		filesTotal.WithLabelValues(string(TransportDirect), "success").Inc()
		u.tracker.Finish(trackingID, nil)
		return withDimensions(attachment, width, height), nil
	}

	if !shouldFallback(err) || ctx.Err() != nil {
		filesTotal.WithLabelValues(string(TransportDirect), "failure").Inc()
		u.tracker.Finish(trackingID, err)
		return domain.Attachment{}, err
	}

	reason := fallbackReason(err)
	fallbacksTotal.WithLabelValues(reason).Inc()
	logger.Log.Warn("direct upload failed, falling back to multipart",
		"filename", file.Name, "target_id", targetID, "reason", reason, "error", err)

	u.tracker.SetTransport(trackingID, TransportFallback)
	attachment, err = u.UploadFallback(ctx, targetID, file, progress)
	if err != nil {
		filesTotal.WithLabelValues(string(TransportFallback), "failure").Inc()
		u.tracker.Finish(trackingID, err)
		return domain.Attachment{}, err
	}
	if hash != "" {
		// the object now exists through the portal; a later resume would duplicate it
		u.deleteCheckpoint(ctx, hash, targetID)
	}
	filesTotal.WithLabelValues(string(TransportFallback), "success").Inc()
	u.tracker.Finish(trackingID, nil)
	return withDimensions(attachment, width, height), nil
}

func withDimensions(a domain.Attachment, width, height *int) domain.Attachment {
	if a.Width == nil && a.Height == nil {
		a.Width, a.Height = width, height
	}
	return a
}

// shouldFallback reports whether err came from the direct transport before the
// portal registered anything.
func shouldFallback(err error) bool {
	return internal_errors.Is[*internal_errors.SessionError](err) || internal_errors.Is[*internal_errors.ChunkUploadError](err)
}

func fallbackReason(err error) string {
	if internal_errors.Is[*internal_errors.SessionError](err) {
		return "session"
	}
	var chunkErr *internal_errors.ChunkUploadError
	if errors.As(err, &chunkErr) && chunkErr.Status == 0 {
		return "transport"
	}
	return "chunk_status"
}
