package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachmentRecordNormalize(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"attachment_id", `{"attachment_id":"aaaaaaaaaaaaaaaaaaaaaaaa","original_filename":"a.pdf"}`, "aaaaaaaaaaaaaaaaaaaaaaaa"},
		{"underscore id", `{"_id":"bbbbbbbbbbbbbbbbbbbbbbbb","original_filename":"a.pdf"}`, "bbbbbbbbbbbbbbbbbbbbbbbb"},
		{"plain id", `{"id":"cccccccccccccccccccccccc","original_filename":"a.pdf"}`, "cccccccccccccccccccccccc"},
		{"file id", `{"file_id":"dddddddddddddddddddddddd","original_filename":"a.pdf"}`, "dddddddddddddddddddddddd"},
		{"attachment_id wins", `{"id":"cccccccccccccccccccccccc","attachment_id":"aaaaaaaaaaaaaaaaaaaaaaaa"}`, "aaaaaaaaaaaaaaaaaaaaaaaa"},
		{"wrapped", `{"attachment":{"_id":"eeeeeeeeeeeeeeeeeeeeeeee"}}`, "eeeeeeeeeeeeeeeeeeeeeeee"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var env AttachmentEnvelope
			require.NoError(t, json.Unmarshal([]byte(tt.body), &env))
			assert.Equal(t, tt.want, env.Normalize().Id.String())
		})
	}
}

func TestAttachmentRecordMimeTypeAlias(t *testing.T) {
	var rec AttachmentRecord
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","file_type":"application/pdf","is_duplicate":true}`), &rec))

	a := rec.Normalize()
	assert.Equal(t, "application/pdf", a.MimeType)
	assert.True(t, a.IsDuplicate)
}

func TestDraftEnvelopeNormalize(t *testing.T) {
	var env DraftEnvelope
	require.NoError(t, json.Unmarshal([]byte(`{"draft":{"_id":"65a1b2c3d4e5f60718293a4b","board":"자유게시판","title":"t","tags":["x"]}}`), &env))

	d := env.Normalize()
	assert.Equal(t, "65a1b2c3d4e5f60718293a4b", d.Id.String())
	assert.Equal(t, "자유게시판", d.Board)
	assert.Equal(t, []string{"x"}, d.Tags)
}

func TestPublishDraftResponsePost(t *testing.T) {
	assert.Equal(t, "p1", PublishDraftResponse{PostId: "p1"}.Post().Id.String())
	assert.Equal(t, "p2", PublishDraftResponse{Id: "p2"}.Post().Id.String())
}

func TestStartDirectUploadResponseSession(t *testing.T) {
	s := StartDirectUploadResponse{UploadURL: "https://storage/u", AccessToken: "tok"}.Session()
	assert.Equal(t, int64(32<<20), s.EffectiveChunkSize())
}
