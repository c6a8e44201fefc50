package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labportal/portal/shared/api"
	"github.com/labportal/portal/shared/domain"
	internal_errors "github.com/labportal/portal/shared/errors"
	"github.com/labportal/portal/shared/logger"
)

// errNeverConfirmed is returned when every byte was sent and the storage endpoint kept
// answering 308.
var errNeverConfirmed = errors.New("storage endpoint never confirmed the upload")

// StartSession asks the portal for a direct upload session for targetID.
func (u *Uploader) StartSession(ctx context.Context, targetID domain.ObjectID, filename, mimeType string, size int64) (*domain.UploadSession, error) {
	session, err := u.api.StartDirectUpload(ctx, targetID, filename, mimeType, size)
	if err != nil {
		return nil, &internal_errors.SessionError{Err: err}
	}
	return session, nil
}

// UploadChunked PUTs the file to the session's storage endpoint in strictly sequential
// chunks and returns the object id the endpoint assigns.
func (u *Uploader) UploadChunked(ctx context.Context, session *domain.UploadSession, file File, onProgress ProgressFunc) (string, error) {
	return u.sendChunks(ctx, session, file, 0, onProgress, nil)
}

// CompleteSession registers the stored object with the portal. On failure the object
// stays in storage unlinked; the portal reconciles it, the client only logs it.
func (u *Uploader) CompleteSession(ctx context.Context, targetID domain.ObjectID, filename, objectID string, size int64) (domain.Attachment, error) {
	attachment, err := u.api.CompleteDirectUpload(ctx, targetID, filename, objectID, size)
	if err != nil {
		logger.Log.Error("uploaded object could not be registered",
			"object_id", objectID, "target_id", targetID, "filename", filename, "error", err)
		return domain.Attachment{}, &internal_errors.CompletionError{ObjectID: objectID, Err: err}
	}
	return attachment, nil
}

// uploadDirect runs session, chunks and completion. hash is empty when checkpoints are off.
func (u *Uploader) uploadDirect(ctx context.Context, targetID domain.ObjectID, file File, hash string, onProgress ProgressFunc, resume bool) (domain.Attachment, error) {
	var (
		session *domain.UploadSession
		from    int64
	)

	if resume && hash != "" {
		if cp := u.loadCheckpoint(ctx, hash, targetID, file.Size); cp != nil {
			session, from = &cp.Session, cp.AckedOffset
			logger.Log.Info("resuming direct upload", "filename", file.Name, "offset", from)
		}
	}

	if session == nil {
		var err error
		if session, err = u.StartSession(ctx, targetID, file.Name, file.MimeType, file.Size); err != nil {
			return domain.Attachment{}, err
		}
	}

	var onAck func(int64)
	if hash != "" {
		onAck = func(offset int64) {
			cp := domain.UploadCheckpoint{
				FileHash:    hash,
				TargetId:    targetID,
				Filename:    file.Name,
				FileSize:    file.Size,
				Session:     *session,
				AckedOffset: offset,
			}
			if err := u.checkpoints.SaveCheckpoint(context.WithoutCancel(ctx), cp); err != nil {
				logger.Log.Warn("failed to save upload checkpoint", "filename", file.Name, "error", err)
			}
		}
	}

	objectID, err := u.sendChunks(ctx, session, file, from, onProgress, onAck)
	if hash != "" && (err == nil || !isTransient(err)) {
		// a rejected session cannot be resumed either
		u.deleteCheckpoint(ctx, hash, targetID)
	}
	if err != nil {
		return domain.Attachment{}, err
	}

	return u.CompleteSession(ctx, targetID, file.Name, objectID, file.Size)
}

// sendChunks PUTs [from, size) in session-sized chunks. onAck is called with the new
// acknowledged offset after every 308.
func (u *Uploader) sendChunks(ctx context.Context, session *domain.UploadSession, file File, from int64, onProgress ProgressFunc, onAck func(int64)) (string, error) {
	total := file.Size
	if total == 0 {
		status, body, err := u.putChunk(ctx, session, file, 0, 0, 0)
		if err != nil {
			return "", &internal_errors.ChunkUploadError{Offset: 0, Err: err}
		}
		if status != http.StatusOK && status != http.StatusCreated {
			return "", &internal_errors.ChunkUploadError{Status: status, Offset: 0}
		}
		report(onProgress, 100)
		return parseObjectID(status, body, 0)
	}

	chunkSize := session.EffectiveChunkSize()
	for start := from; start < total; {
		end := min(start+chunkSize, total)

		status, body, err := u.putChunk(ctx, session, file, start, end, total)
		if err != nil {
			return "", &internal_errors.ChunkUploadError{Offset: start, Err: err}
		}

		switch status {
		case http.StatusOK, http.StatusCreated:
			chunksTotal.Inc()
			bytesTotal.Add(float64(end - start))
			report(onProgress, percent(end, total))
			return parseObjectID(status, body, start)
		case http.StatusPermanentRedirect:
			chunksTotal.Inc()
			bytesTotal.Add(float64(end - start))
			report(onProgress, percent(end, total))
			if onAck != nil {
				onAck(end)
			}
			// contiguous acceptance is assumed; any Range header is not consulted
			start = end
		default:
			return "", &internal_errors.ChunkUploadError{Status: status, Offset: start}
		}
	}

	return "", &internal_errors.ChunkUploadError{Status: http.StatusPermanentRedirect, Offset: total, Err: errNeverConfirmed}
}

// putChunk sends bytes [start, end) and returns the status and a bounded body.
func (u *Uploader) putChunk(ctx context.Context, session *domain.UploadSession, file File, start, end, total int64) (int, []byte, error) {
	var body io.Reader = http.NoBody
	if end > start {
		body = io.NewSectionReader(file.Content, start, end-start)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, session.UploadURL, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create chunk request: %w", err)
	}
	req.ContentLength = end - start
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	req.Header.Set("Content-Type", "application/octet-stream")
	if total == 0 {
		req.Header.Set("Content-Range", "bytes */0")
	} else {
		req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end-1, total))
	}

	resp, err := u.storage.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}

func parseObjectID(status int, body []byte, offset int64) (string, error) {
	var obj api.StorageObjectResponse
	if err := json.Unmarshal(body, &obj); err != nil || obj.ObjectID() == "" {
		return "", &internal_errors.ChunkUploadError{
			Status: status,
			Offset: offset,
			Err:    fmt.Errorf("storage response carries no object id"),
		}
	}
	return obj.ObjectID(), nil
}

// percent rounds to the nearest whole percent but keeps 100 for the final byte.
func percent(done, total int64) int {
	if total <= 0 || done >= total {
		return 100
	}
	p := int((done*100 + total/2) / total)
	return min(p, 99)
}

func report(onProgress ProgressFunc, p int) {
	if onProgress != nil {
		onProgress(p)
	}
}

// isTransient reports whether a failed direct upload may be resumed later.
func isTransient(err error) bool {
	var chunkErr *internal_errors.ChunkUploadError
	return errors.As(err, &chunkErr) && chunkErr.Status == 0
}
