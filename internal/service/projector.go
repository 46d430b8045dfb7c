package service

import (
	"chatsync/internal/models"
	feedtypes "chatsync/pkg/feed/types"
)

// Projector maps raw feed records into the Message view-model. Projection is
// pure and total: every optional field has a defined fallback, so any record
// the feed source emits yields a fully formed Message.
type Projector struct {
	userID string
}

// NewProjector creates a projector attributing non-automated records to the
// given user identity.
func NewProjector(userID string) *Projector {
	return &Projector{userID: userID}
}

// Project converts a single raw record. Rendered (markdown) text wins over the
// plain text fallback; only the first attachment is surfaced; the automated
// flag maps to the fixed automated-sender identity.
func (p *Projector) Project(record feedtypes.RawRecord) models.Message {
	text := record.Text
	if record.MarkdownText != "" {
		text = record.MarkdownText
	}

	senderID := p.userID
	if record.Automated {
		senderID = models.AutomatedSenderID
	}

	var attachmentURL string
	if record.Metadata != nil && len(record.Metadata.Attachments) > 0 {
		attachmentURL = record.Metadata.Attachments[0].URL
	}

	return models.Message{
		ID:            record.ID,
		CreatedAt:     record.CreatedAt,
		Text:          text,
		SenderID:      senderID,
		AttachmentURL: attachmentURL,
	}
}

// ProjectAll converts a full snapshot record list, preserving order.
func (p *Projector) ProjectAll(records []feedtypes.RawRecord) []models.Message {
	messages := make([]models.Message, len(records))
	for i, record := range records {
		messages[i] = p.Project(record)
	}
	return messages
}
