package validation

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dustin/go-humanize"

	internal_errors "github.com/labportal/portal/shared/errors"
)

// multipartMemory is how much of a form is held in memory; larger parts spill to
// temporary files that the caller removes with MultipartForm.RemoveAll.
const multipartMemory = 8 << 20

// ValidateAndParseMultipart caps the body at maxSize and parses the form. An oversized
// body yields a 413 wrapping ErrPayloadTooLarge; the server stops reading and closes the
// connection, so the composer page checks sizes before sending. Anything else that
// fails to parse is a ValidationError.
func ValidateAndParseMultipart(r *http.Request, w http.ResponseWriter, maxSize int64) error {
	if r.ContentLength > maxSize {
		return payloadTooLarge(maxSize)
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	err := r.ParseMultipartForm(min(maxSize, multipartMemory))
	if err == nil {
		return nil
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return payloadTooLarge(tooLarge.Limit)
	}
	return &internal_errors.ValidationError{Field: "files", Message: "malformed multipart form"}
}

func payloadTooLarge(limit int64) error {
	return fmt.Errorf("%w: %w", ErrPayloadTooLarge, &internal_errors.ErrorWithStatusCode{
		Message:    fmt.Sprintf("request exceeds %s", humanize.IBytes(uint64(limit))),
		StatusCode: http.StatusRequestEntityTooLarge,
	})
}

// CalculateMaxRequestSize returns the largest body that can carry maxFiles files of
// MaxFileSize plus overhead for part headers.
func CalculateMaxRequestSize(maxFiles int, overhead int64) int64 {
	return int64(maxFiles)*MaxFileSize + overhead
}
