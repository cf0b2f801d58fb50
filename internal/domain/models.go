package domain

import "time"

// ConversationKind distinguishes two-party threads from group threads.
type ConversationKind string

const (
	ConversationDirect ConversationKind = "direct"
	ConversationGroup  ConversationKind = "group"
)

// Valid reports whether k is a known conversation kind.
func (k ConversationKind) Valid() bool {
	return k == ConversationDirect || k == ConversationGroup
}

// MessageKind is the payload type of a message.
type MessageKind string

const (
	MessageText  MessageKind = "text"
	MessageImage MessageKind = "image"
	MessageFile  MessageKind = "file"
	MessageAudio MessageKind = "audio"
)

// Valid reports whether k is a known message kind.
func (k MessageKind) Valid() bool {
	switch k {
	case MessageText, MessageImage, MessageFile, MessageAudio:
		return true
	}
	return false
}

// Profile is the display identity of a user.
type Profile struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	DisplayName string     `db:"display_name" json:"display_name"`
	AvatarURL   *string    `db:"avatar_url" json:"avatar_url,omitempty"`
	PhoneNumber *string    `db:"phone_number" json:"phone_number,omitempty"`
	Bio         *string    `db:"bio" json:"bio,omitempty"`
	LastSeen    *time.Time `db:"last_seen" json:"last_seen,omitempty"`
	IsOnline    bool       `db:"is_online" json:"is_online"`
}

// PlaceholderProfile stands in for a sender whose profile row is missing.
func PlaceholderProfile(userID string) *Profile {
	return &Profile{UserID: userID, DisplayName: "Unknown", IsOnline: false}
}

// Conversation represents a chat conversation (direct or group).
type Conversation struct {
	ID        string           `db:"id" json:"id"`
	Kind      ConversationKind `db:"type" json:"type"`
	Name      *string          `db:"name" json:"name,omitempty"`
	AvatarURL *string          `db:"avatar_url" json:"avatar_url,omitempty"`
	CreatedBy *string          `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// Participant represents the membership of a user in a conversation.
type Participant struct {
	ConversationID string    `db:"conversation_id" json:"conversation_id"`
	UserID         string    `db:"user_id" json:"user_id"`
	JoinedAt       time.Time `db:"joined_at" json:"joined_at"`
}

// ConversationRow is a conversation with its participants' profiles joined in,
// in participant join order.
type ConversationRow struct {
	Conversation
	Participants []*Profile `json:"participants"`
}

// Message represents a single chat message.
type Message struct {
	ID             string      `db:"id" json:"id"`
	ConversationID string      `db:"conversation_id" json:"conversation_id"`
	SenderID       string      `db:"sender_id" json:"sender_id"`
	Content        string      `db:"content" json:"content"` // encrypted at rest
	Kind           MessageKind `db:"message_type" json:"message_type"`
	FileURL        *string     `db:"file_url" json:"file_url,omitempty"`
	ReplyTo        *string     `db:"reply_to" json:"reply_to,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
}
