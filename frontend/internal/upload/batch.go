package upload

import (
	"context"

	"github.com/labportal/portal/shared/domain"
)

// FileResult is the outcome for one file of a batch.
type FileResult struct {
	File    string
	Success bool
	Data    *domain.Attachment
	Err     error
}

type BatchResult struct {
	TotalFiles   int
	SuccessCount int
	FailCount    int
	Results      []FileResult
}

// BatchProgressFunc receives the index of the file in the batch and its percentage.
type BatchProgressFunc func(index, percent int)

// UploadMany uploads files one after another in input order. A file whose earlier
// direct upload to the same target was interrupted continues from its checkpoint.
// A file that fails (validation included) is recorded and the batch continues.
func (u *Uploader) UploadMany(ctx context.Context, targetID domain.ObjectID, files []File, onProgress BatchProgressFunc) BatchResult {
	result := BatchResult{
		TotalFiles: len(files),
		Results:    make([]FileResult, 0, len(files)),
	}

	for i, file := range files {
		var progress ProgressFunc
		if onProgress != nil {
			progress = func(p int) { onProgress(i, p) }
		}

		attachment, err := u.Resume(ctx, targetID, file, progress)
		if err != nil {
			result.FailCount++
			result.Results = append(result.Results, FileResult{File: file.Name, Err: err})
			continue
		}
		result.SuccessCount++
		result.Results = append(result.Results, FileResult{File: file.Name, Success: true, Data: &attachment})
	}

	return result
}
