package privacy

import (
	"fmt"
	"strings"
)

// MaskUserID masks a user identity showing only the last 4 characters
// Example: "firebase-uid-1234" -> "*************1234"
func MaskUserID(userID string) string {
	if userID == "" {
		return ""
	}
	if len(userID) <= 4 {
		return strings.Repeat("*", len(userID))
	}
	return strings.Repeat("*", len(userID)-4) + userID[len(userID)-4:]
}

// MaskMessageID shortens a message ID for logs while keeping enough to
// correlate with server-side records
func MaskMessageID(msgID string) string {
	if msgID == "" {
		return ""
	}
	if len(msgID) > 8 {
		return msgID[:8] + "..."
	}
	return msgID
}

// CoarseCoordinates rounds coordinates to ~1km precision so exact positions
// never reach the logs
func CoarseCoordinates(latitude, longitude float64) string {
	return fmt.Sprintf("%.2f,%.2f", latitude, longitude)
}
