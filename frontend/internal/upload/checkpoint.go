package upload

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"

	"github.com/labportal/portal/shared/domain"
	"github.com/labportal/portal/shared/logger"
)

// HashContent returns the hex BLAKE2b-256 digest of the first size bytes of content.
func HashContent(content io.ReaderAt, size int64) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if content != nil && size > 0 {
		if _, err := io.Copy(h, io.NewSectionReader(content, 0, size)); err != nil {
			return "", fmt.Errorf("failed to hash content: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// fileHash returns the checkpoint key for file, or "" when checkpoints are off.
func (u *Uploader) fileHash(file File) string {
	if u.checkpoints == nil {
		return ""
	}
	hash, err := HashContent(file.Content, file.Size)
	if err != nil {
		logger.Log.Warn("cannot hash file, checkpoints disabled for it", "filename", file.Name, "error", err)
		return ""
	}
	return hash
}

// loadCheckpoint returns a checkpoint that can be continued, or nil.
func (u *Uploader) loadCheckpoint(ctx context.Context, hash string, targetID domain.ObjectID, size int64) *domain.UploadCheckpoint {
	cp, err := u.checkpoints.LoadCheckpoint(ctx, hash, targetID)
	if err != nil {
		logger.Log.Warn("failed to load upload checkpoint", "target_id", targetID, "error", err)
		return nil
	}
	if cp == nil || cp.FileSize != size || cp.AckedOffset <= 0 || cp.AckedOffset >= size || cp.Session.UploadURL == "" {
		return nil
	}
	return cp
}

func (u *Uploader) deleteCheckpoint(ctx context.Context, hash string, targetID domain.ObjectID) {
	if err := u.checkpoints.DeleteCheckpoint(ctx, hash, targetID); err != nil {
		logger.Log.Warn("failed to delete upload checkpoint", "target_id", targetID, "error", err)
	}
}
