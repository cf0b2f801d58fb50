package domain

import "time"

// LastMessage is the denormalized preview shown in the conversation list.
type LastMessage struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Sender    *Profile  `json:"sender"`
}

// ConversationView is the joined conversation shape handed to the UI.
type ConversationView struct {
	ID           string           `json:"id"`
	Kind         ConversationKind `json:"type"`
	Name         string           `json:"name,omitempty"`
	AvatarURL    *string          `json:"avatar_url,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	Participants []*Profile       `json:"participants"`
	LastMessage  *LastMessage     `json:"last_message,omitempty"`

	// UnreadCount is nil until unread tracking exists; nil means "not computed",
	// not zero.
	UnreadCount *int `json:"unread_count"`
}

// MessageView is a message with its sender profile resolved.
type MessageView struct {
	Message
	Sender *Profile `json:"sender"`
}
