package utils

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labportal/portal/shared/api"
	"github.com/labportal/portal/shared/errors"
)

func TestDecodeValidate(t *testing.T) {
	type TestStruct struct {
		Field1 string `json:"field1" validate:"required"`
		Field2 int    `json:"field2"`
	}

	tests := []struct {
		name        string
		requestBody string
		expectedErr *errors.ErrorWithStatusCode
	}{
		{
			name:        "Valid JSON and Validation",
			requestBody: `{"field1": "value", "field2": 123}`,
		},
		{
			name:        "Invalid JSON",
			requestBody: `{"field1": "value", "field2": 123`,
			expectedErr: &errors.ErrorWithStatusCode{Message: "Body is invalid json", StatusCode: 400},
		},
		{
			name:        "Missing Required Field",
			requestBody: `{"field2": 123}`,
			expectedErr: &errors.ErrorWithStatusCode{Message: "Required fields missing", StatusCode: 400},
		},
		{
			name:        "Empty Body",
			requestBody: "",
			expectedErr: &errors.ErrorWithStatusCode{Message: "Body is invalid json", StatusCode: 400},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", bytes.NewReader([]byte(tt.requestBody)))

			err := DecodeValidate(req.Body, &TestStruct{})

			if tt.expectedErr == nil {
				assert.NoError(t, err)
				return
			}
			e, ok := err.(*errors.ErrorWithStatusCode)
			require.True(t, ok, "Error should be ErrorWithStatusCode")
			assert.Equal(t, tt.expectedErr.Message, e.Message)
			assert.Equal(t, tt.expectedErr.StatusCode, e.StatusCode)
		})
	}
}

func TestWriteErrorAndStatusCode(t *testing.T) {
	t.Run("publish errors are retryable", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteErrorAndStatusCode(rec, &errors.PublishError{Err: assert.AnError})

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		var body api.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.True(t, body.Retryable)
	})

	t.Run("validation errors are bad requests", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteErrorAndStatusCode(rec, &errors.ValidationError{Message: "nope"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	})
}
