package upload

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_errors "github.com/labportal/portal/shared/errors"
	"github.com/labportal/portal/shared/validation"
)

func TestUploadMany(t *testing.T) {
	fs := newFakeStorage(t, lastChunkDone(10))
	portal := &mockPortal{StartDirectUploadFunc: sessionFor(fs, 10)}
	u := New(portal, Options{})

	files := []File{pdf(10), {Name: "virus.exe", Size: 10}, pdf(10)}
	files[2].Name = "second.pdf"

	var seen []int
	res := u.UploadMany(context.Background(), target, files, func(index, percent int) {
		if percent == 100 {
			seen = append(seen, index)
		}
	})

	assert.Equal(t, 3, res.TotalFiles)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 1, res.FailCount)
	require.Len(t, res.Results, 3)

	assert.True(t, res.Results[0].Success)
	require.NotNil(t, res.Results[0].Data)
	assert.Equal(t, "report.pdf", res.Results[0].File)

	assert.False(t, res.Results[1].Success)
	assert.Nil(t, res.Results[1].Data)
	assert.ErrorIs(t, res.Results[1].Err, validation.ErrExtensionNotAllowed)
	assert.True(t, internal_errors.Is[*internal_errors.ValidationError](res.Results[1].Err))

	assert.True(t, res.Results[2].Success)
	assert.Equal(t, "second.pdf", res.Results[2].File)

	assert.Equal(t, []int{0, 2}, seen, "files run in input order")
	assert.Equal(t, 2, portal.startCalls)
}

func TestUploadMany_Empty(t *testing.T) {
	res := New(&mockPortal{}, Options{}).UploadMany(context.Background(), target, nil, nil)
	assert.Equal(t, BatchResult{Results: []FileResult{}}, res)
}
