package validation

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_errors "github.com/labportal/portal/shared/errors"
)

func multipartRequest(t *testing.T, size int) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("a"), size))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/compose/lab/attachments", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestValidateAndParseMultipart(t *testing.T) {
	t.Run("within limit", func(t *testing.T) {
		req := multipartRequest(t, 100)
		require.NoError(t, ValidateAndParseMultipart(req, httptest.NewRecorder(), 4096))
		defer req.MultipartForm.RemoveAll()
		assert.Len(t, req.MultipartForm.File["files"], 1)
	})

	t.Run("over limit", func(t *testing.T) {
		req := multipartRequest(t, 8192)
		err := ValidateAndParseMultipart(req, httptest.NewRecorder(), 4096)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrPayloadTooLarge)
		assert.Equal(t, http.StatusRequestEntityTooLarge, internal_errors.StatusCode(err))
		assert.Contains(t, err.Error(), "4.0 KiB")
	})

	t.Run("malformed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/compose/lab/attachments", strings.NewReader("not a form"))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
		err := ValidateAndParseMultipart(req, httptest.NewRecorder(), 4096)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, internal_errors.StatusCode(err))
	})
}

func TestCalculateMaxRequestSize(t *testing.T) {
	assert.Equal(t, 10*MaxFileSize+1<<20, CalculateMaxRequestSize(10, 1<<20))
}
