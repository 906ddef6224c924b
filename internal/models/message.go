package models

import "time"

type MessageStatus string

const (
	MessageStatusQueued    MessageStatus = "queued"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
)

// Rank returns the position of a status in the delivery lifecycle.
// Transitions may only move to a strictly higher rank; anything else
// is a no-op. Unknown statuses rank below every valid one.
func (s MessageStatus) Rank() int {
	switch s {
	case MessageStatusQueued:
		return 0
	case MessageStatusDelivered:
		return 1
	case MessageStatusRead:
		return 2
	default:
		return -1
	}
}

func (s MessageStatus) Valid() bool {
	return s.Rank() >= 0
}

// Before reports whether s precedes other in the lifecycle.
func (s MessageStatus) Before(other MessageStatus) bool {
	return s.Rank() < other.Rank()
}

type MessageKind string

const (
	MessageKindText           MessageKind = "text"
	MessageKindVoice          MessageKind = "voice"
	MessageKindForwardedText  MessageKind = "forwarded_text"
	MessageKindForwardedVoice MessageKind = "forwarded_voice"
)

func (k MessageKind) Valid() bool {
	switch k {
	case MessageKindText, MessageKindVoice, MessageKindForwardedText, MessageKindForwardedVoice:
		return true
	}
	return false
}

// Message is the durable record of a single routed send. The payload is an
// opaque, client-encrypted blob; the server never inspects it.
type Message struct {
	ID         int64         `json:"id"`
	SenderID   int64         `json:"senderId"`
	ReceiverID int64         `json:"receiverId"`
	Kind       MessageKind   `json:"messageKind"`
	Payload    string        `json:"payload"`
	Status     MessageStatus `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}
