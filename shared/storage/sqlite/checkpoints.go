package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/labportal/portal/shared/domain"
)

type checkpointRow struct {
	FileHash    string `db:"file_hash"`
	TargetId    string `db:"target_id"`
	Filename    string `db:"filename"`
	FileSize    int64  `db:"file_size"`
	UploadURL   string `db:"upload_url"`
	AccessToken string `db:"access_token"`
	ChunkSize   int64  `db:"chunk_size"`
	AckedOffset int64  `db:"acked_offset"`
	UpdatedAt   int64  `db:"updated_at"`
}

func (r checkpointRow) toDomain() *domain.UploadCheckpoint {
	return &domain.UploadCheckpoint{
		FileHash: r.FileHash,
		TargetId: domain.ObjectID(r.TargetId),
		Filename: r.Filename,
		FileSize: r.FileSize,
		Session: domain.UploadSession{
			UploadURL:   r.UploadURL,
			AccessToken: r.AccessToken,
			ChunkSize:   r.ChunkSize,
		},
		AckedOffset: r.AckedOffset,
		UpdatedAt:   fromMillis(r.UpdatedAt),
	}
}

// LoadCheckpoint returns nil when no checkpoint exists.
func (s *Storage) LoadCheckpoint(ctx context.Context, fileHash string, targetId domain.ObjectID) (*domain.UploadCheckpoint, error) {
	var row checkpointRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM upload_checkpoints WHERE file_hash = ? AND target_id = ?`, fileHash, targetId.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Storage) SaveCheckpoint(ctx context.Context, cp domain.UploadCheckpoint) error {
	row := checkpointRow{
		FileHash:    cp.FileHash,
		TargetId:    cp.TargetId.String(),
		Filename:    cp.Filename,
		FileSize:    cp.FileSize,
		UploadURL:   cp.Session.UploadURL,
		AccessToken: cp.Session.AccessToken,
		ChunkSize:   cp.Session.ChunkSize,
		AckedOffset: cp.AckedOffset,
		UpdatedAt:   s.now().UnixMilli(),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO upload_checkpoints
			(file_hash, target_id, filename, file_size, upload_url, access_token, chunk_size, acked_offset, updated_at)
		VALUES
			(:file_hash, :target_id, :filename, :file_size, :upload_url, :access_token, :chunk_size, :acked_offset, :updated_at)
		ON CONFLICT (file_hash, target_id) DO UPDATE SET
			upload_url = excluded.upload_url, access_token = excluded.access_token,
			chunk_size = excluded.chunk_size, acked_offset = excluded.acked_offset,
			updated_at = excluded.updated_at`, row)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func (s *Storage) DeleteCheckpoint(ctx context.Context, fileHash string, targetId domain.ObjectID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM upload_checkpoints WHERE file_hash = ? AND target_id = ?`, fileHash, targetId.String())
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}
