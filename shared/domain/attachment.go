package domain

import "time"

// Attachment is a stored file registered by the portal API. It always belongs to
// exactly one post or draft identifier.
type Attachment struct {
	Id                ObjectID
	PostId            ObjectID
	OriginalFilename  string
	FileSize          int64
	MimeType          string
	UploadDate        time.Time
	UploaderId        string
	IsDuplicate       bool // content hash collided with a previously stored file
	IsDraftAttachment bool
	// Width and Height are read locally from decodable image headers, nil otherwise.
	Width             *int
	Height            *int
}

// UploadSession is issued by the portal API for one direct upload and is never
// persisted beyond it (except inside an upload checkpoint).
type UploadSession struct {
	UploadURL   string
	AccessToken string
	ChunkSize   int64
}

// EffectiveChunkSize returns the chunk boundary to use for this session.
func (s *UploadSession) EffectiveChunkSize() int64 {
	if s.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return s.ChunkSize
}

// UploadCheckpoint records how far a direct upload got, keyed by content hash and
// target, so the same file can continue instead of starting over.
type UploadCheckpoint struct {
	FileHash    string
	TargetId    ObjectID
	Filename    string
	FileSize    int64
	Session     UploadSession
	AckedOffset int64 // bytes the storage endpoint has confirmed
	UpdatedAt   time.Time
}
