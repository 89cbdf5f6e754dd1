package archive

import "time"

// Issue sources.
const (
	SourceMailerLite = "mailerlite"
	SourceMailchimp  = "mailchimp"
)

// Issue is one archived newsletter issue.
type Issue struct {
	ID          string    `db:"id" json:"id"`           // 16 hex chars, derived from content (see DeriveID)
	Name        string    `db:"name" json:"name"`       // display name, may equal Subject
	Subject     string    `db:"subject" json:"subject"`
	PreviewText string    `db:"preview_text" json:"preview_text"`
	SentAt      time.Time `db:"sent_at" json:"sent_at"`
	Source      string    `db:"source" json:"source"`
	SourceID    *string   `db:"source_id" json:"source_id"`       // identifier in the source system; batch imports may lack one
	ContentPath *string   `db:"content_path" json:"content_path"` // relative to the content dir; nil for metadata-only rows
	Hidden      bool      `db:"hidden" json:"hidden"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// HasContent reports whether the issue references a stored HTML body.
func (i *Issue) HasContent() bool {
	return i.ContentPath != nil && *i.ContentPath != ""
}
