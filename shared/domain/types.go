package domain

import "time"

type (
	UserId    = int64
	BoardName = string
	Tags      = []string
)

// ObjectID is a 24-character lowercase hexadecimal identifier used by the portal API
// for posts, drafts and attachments. Use validation.ParseObjectID to build one from
// untrusted input.
type ObjectID string

func (id ObjectID) String() string { return string(id) }

// IsZero reports whether no identifier is held.
func (id ObjectID) IsZero() bool { return id == "" }

const (
	// DraftTTL is how long the portal keeps an untouched draft before expiring it.
	DraftTTL = 7 * 24 * time.Hour

	// DefaultChunkSize is used when the upload session does not suggest one.
	DefaultChunkSize int64 = 32 << 20
)
