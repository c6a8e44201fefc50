package upload

import (
	"context"
	"io"

	"github.com/labportal/portal/shared/domain"
)

// UploadFallback sends the whole file through the portal as multipart/form-data.
// Progress follows the bytes handed to the transport.
func (u *Uploader) UploadFallback(ctx context.Context, targetID domain.ObjectID, file File, onProgress ProgressFunc) (domain.Attachment, error) {
	var content io.Reader = io.NewSectionReader(file.Content, 0, file.Size)
	if file.Content == nil {
		content = eofReader{}
	}

	last := -1
	onSent := func(n int64) {
		p := percent(n, file.Size)
		if p > last {
			last = p
			report(onProgress, p)
		}
	}

	attachment, err := u.api.UploadMultipart(ctx, targetID, file.Name, file.MimeType, content, onSent)
	if err != nil {
		return domain.Attachment{}, err
	}
	if last < 100 {
		report(onProgress, 100)
	}
	return attachment, nil
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
