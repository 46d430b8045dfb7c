package models

import (
	"time"
)

// AutomatedSenderID is the fixed sender identity for messages authored by the
// automated counterpart. Everything else is attributed to the current user.
const AutomatedSenderID = "0"

// GeoData carries the coordinates stamped onto outgoing messages.
type GeoData struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Coordinates is a best-effort position from the location provider.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DefaultCoordinates is used when location acquisition fails. Location is an
// enrichment signal, never a precondition for sending.
var DefaultCoordinates = Coordinates{Latitude: 0, Longitude: 0}

// UserMetadata is an opaque metadata map attached to outgoing messages only.
// Inbound messages never require it.
type UserMetadata map[string]interface{}

// Message is the view-model exposed to the presentation layer. It is fully
// formed before it enters the conversation list and never mutated afterwards.
type Message struct {
	ID            string       `json:"id"`
	CreatedAt     time.Time    `json:"createdAt"`
	Text          string       `json:"text"`
	SenderID      string       `json:"senderId"`
	AttachmentURL string       `json:"attachmentUrl,omitempty"`
	UserMetadata  UserMetadata `json:"userMetadata,omitempty"`
}

// DraftMessage is a user-submitted message before enrichment. ID and CreatedAt
// are optional; the pipeline stamps them when absent.
type DraftMessage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
