package types

import (
	"time"
)

// Attachment is a single media reference on a feed record.
type Attachment struct {
	URL string `json:"url"`
}

// RecordMetadata holds optional feed-side metadata. Only the attachment list
// is consumed; anything else the feed source adds is ignored.
type RecordMetadata struct {
	Attachments []Attachment `json:"attachments,omitempty"`
}

// RawRecord is the wire shape of a single conversation record as emitted by
// the feed source. MarkdownText and Metadata are optional; Automated marks
// records authored by the automated counterpart.
type RawRecord struct {
	ID           string          `json:"id"`
	CreatedAt    time.Time       `json:"createdAt"`
	Text         string          `json:"text"`
	MarkdownText string          `json:"markdown_text,omitempty"`
	Automated    bool            `json:"automated,omitempty"`
	Metadata     *RecordMetadata `json:"metadata,omitempty"`
}

// Snapshot is one complete feed emission: the full record list for a
// conversation, ordered by createdAt descending. Each snapshot supersedes the
// previous one entirely.
type Snapshot struct {
	ConversationKey string      `json:"conversation_key"`
	Records         []RawRecord `json:"records"`
}
