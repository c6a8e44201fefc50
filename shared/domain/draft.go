package domain

import (
	"strings"
	"time"
)

// DraftFields are the user-editable parts of a post under composition.
type DraftFields struct {
	Title     string
	Content   string // HTML
	IsPrivate bool
	Tags      Tags
}

// Blank reports whether both title and content are empty after trimming whitespace.
func (f DraftFields) Blank() bool {
	return strings.TrimSpace(f.Title) == "" && strings.TrimSpace(f.Content) == ""
}

// Draft is a not-yet-published post owned by one author.
type Draft struct {
	Id              ObjectID
	Board           BoardName
	DraftFields
	AttachmentCount int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PublishOverrides replace draft fields at publish time. Nil fields keep the draft value.
type PublishOverrides struct {
	Title     *string
	Content   *string
	IsPrivate *bool
	Tags      *Tags
}

// Post is the published result of a draft.
type Post struct {
	Id      ObjectID
	// DraftId is the draft the post was published from.
	DraftId ObjectID
}

// SaveType tells the portal why a draft update was sent.
type SaveType string

const (
	SaveTypeAuto   SaveType = "auto"
	SaveTypeUnload SaveType = "unload"
	SaveTypeManual SaveType = "manual"
)

// JournalEntry is the last known composition for a board, kept locally so a later
// session can offer it back when a page-unload save never reached the portal.
type JournalEntry struct {
	DraftId ObjectID
	DraftFields
	SaveType SaveType
	SavedAt  time.Time
}
