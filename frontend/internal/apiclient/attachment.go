package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/labportal/portal/shared/api"
	"github.com/labportal/portal/shared/domain"
	"github.com/labportal/portal/shared/validation"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// StartDirectUpload asks the portal for a direct-to-storage upload session.
func (c *Client) StartDirectUpload(ctx context.Context, targetID domain.ObjectID, filename, mimeType string, size int64) (*domain.UploadSession, error) {
	if !validation.IsObjectID(targetID.String()) {
		return nil, malformedID("post_id", targetID)
	}

	req := api.StartDirectUploadRequest{
		PostId:   targetID.String(),
		Filename: filename,
		MimeType: mimeType,
		FileSize: size,
	}
	var resp api.StartDirectUploadResponse
	if err := c.doJSON(ctx, http.MethodPost, "/attachment/start-direct-upload", req, &resp, "upload files"); err != nil {
		return nil, err
	}
	if resp.UploadURL == "" {
		return nil, fmt.Errorf("portal returned an upload session without upload_url")
	}
	return resp.Session(), nil
}

// CompleteDirectUpload registers an object the storage endpoint already holds.
func (c *Client) CompleteDirectUpload(ctx context.Context, targetID domain.ObjectID, filename, objectID string, size int64) (domain.Attachment, error) {
	if !validation.IsObjectID(targetID.String()) {
		return domain.Attachment{}, malformedID("post_id", targetID)
	}

	req := api.CompleteDirectUploadRequest{
		PostId:   targetID.String(),
		Filename: filename,
		FileId:   objectID,
		FileSize: size,
	}
	var resp api.AttachmentEnvelope
	if err := c.doJSON(ctx, http.MethodPost, "/attachment/complete-direct-upload", req, &resp, "upload files"); err != nil {
		return domain.Attachment{}, err
	}
	return resp.Normalize(), nil
}

// UploadMultipart sends the whole file through the portal in one multipart/form-data
// request. The body is streamed through a pipe; onSent receives the running count of
// file bytes handed to the transport.
func (c *Client) UploadMultipart(ctx context.Context, targetID domain.ObjectID, filename, mimeType string, content io.Reader, onSent func(int64)) (domain.Attachment, error) {
	if !validation.IsObjectID(targetID.String()) {
		return domain.Attachment{}, malformedID("post_id", targetID)
	}

	pipeReader, pipeWriter := io.Pipe()
	writer := multipart.NewWriter(pipeWriter)

	go func() {
		defer pipeWriter.Close()
		defer writer.Close()

		if err := writer.WriteField("post_id", targetID.String()); err != nil {
			pipeWriter.CloseWithError(err)
			return
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filename)))
		if mimeType != "" {
			h.Set("Content-Type", mimeType)
		}

		part, err := writer.CreatePart(h)
		if err != nil {
			pipeWriter.CloseWithError(err)
			return
		}

		if _, err := io.Copy(part, &countingReader{r: content, onRead: onSent}); err != nil {
			pipeWriter.CloseWithError(err)
			return
		}
	}()

	resp, err := c.do(ctx, http.MethodPost, "/attachment/upload", pipeReader, writer.FormDataContentType())
	if err != nil {
		pipeReader.CloseWithError(err)
		return domain.Attachment{}, err
	}
	defer resp.Body.Close()

	if err := checkResponse(resp, "upload files"); err != nil {
		return domain.Attachment{}, err
	}

	var env api.AttachmentEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return domain.Attachment{}, fmt.Errorf("cannot decode upload response: %w", err)
	}
	return env.Normalize(), nil
}

// ListAttachments returns the attachments of a post or draft. A malformed id is
// treated as absent: the result is empty and no request is made.
func (c *Client) ListAttachments(ctx context.Context, postID string) ([]domain.Attachment, error) {
	if !validation.IsObjectID(postID) {
		return []domain.Attachment{}, nil
	}

	var resp api.AttachmentListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/attachment/post/"+postID, nil, &resp, "view attachments"); err != nil {
		return nil, err
	}

	attachments := make([]domain.Attachment, 0, len(resp.Attachments))
	for _, rec := range resp.Attachments {
		attachments = append(attachments, rec.Normalize())
	}
	return attachments, nil
}

func (c *Client) DeleteAttachment(ctx context.Context, id string) error {
	if !validation.IsObjectID(id) {
		return malformedID("attachment_id", domain.ObjectID(id))
	}
	return c.doJSON(ctx, http.MethodDelete, "/attachment/"+id, nil, nil, "delete attachments")
}

// countingReader reports the running total after every read.
type countingReader struct {
	r      io.Reader
	n      int64
	onRead func(int64)
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.n += int64(n)
		if cr.onRead != nil {
			cr.onRead(cr.n)
		}
	}
	return n, err
}
