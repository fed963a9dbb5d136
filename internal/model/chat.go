package model

import (
	"strings"
	"time"
)

// TempIDPrefix marks locally synthesized message ids that have not yet
// been confirmed by the server.
const TempIDPrefix = "temp-"

// ChatMessage is one message in a project chat room.
type ChatMessage struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Sender    User      `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// IsPending reports whether the message is an optimistic local record
// awaiting server confirmation.
func (m ChatMessage) IsPending() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

// ChatMessageRequest is the payload for posting a message.
type ChatMessageRequest struct {
	Content string `json:"content"`
}
