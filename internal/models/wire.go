package models

import "time"

// Frame type discriminators for the websocket protocol.
const (
	FrameTypeRegister     = "register"
	FrameTypeMessage      = "message"
	FrameTypeReceivedAck  = "message_received_ack"
	FrameTypeReadAck      = "message_read_ack"
	FrameTypeSavedReceipt = "message_saved_receipt"
	FrameTypeStatusAck    = "message_status_ack"
	FrameTypeUserStatus   = "user_status"
)

// InboundFrame is the flat envelope for every frame a client sends. Which
// fields are meaningful depends on Type; unused fields stay at their zero
// value. Keeping a single envelope keeps the protocol flat and independent
// of how any particular client composes its handlers.
type InboundFrame struct {
	Type            string      `json:"type"`
	Token           string      `json:"token,omitempty"`
	ReceiverID      int64       `json:"receiver_id,omitempty"`
	MessageKind     MessageKind `json:"message_kind,omitempty"`
	ClientMessageID string      `json:"client_message_id,omitempty"`
	Payload         string      `json:"payload,omitempty"`
	SenderID        int64       `json:"sender_id,omitempty"`
	ID              int64       `json:"id,omitempty"`
}

// SavedReceipt is returned to the sender once a message has a durable
// identifier. ClientMessageID echoes the sender's provisional identifier so
// the client can reconcile its optimistic local record; the server keeps no
// mapping beyond this response.
type SavedReceipt struct {
	Type            string        `json:"type"`
	ID              int64         `json:"id"`
	ClientMessageID string        `json:"client_message_id"`
	ReceiverID      int64         `json:"receiver_id"`
	Status          MessageStatus `json:"status"`
}

// MessagePush is the live delivery of a message to a connected receiver.
type MessagePush struct {
	Type        string      `json:"type"`
	ID          int64       `json:"id"`
	From        int64       `json:"from"`
	MessageKind MessageKind `json:"message_kind"`
	Payload     string      `json:"payload"`
}

// StatusAck notifies the original sender that the receiver advanced a
// message's delivery status.
type StatusAck struct {
	Type       string        `json:"type"`
	ID         int64         `json:"id"`
	ReceiverID int64         `json:"receiver_id"`
	Status     MessageStatus `json:"status"`
}

// UserStatus is the presence event fanned out to a user's contacts. Fire
// and forget: contacts that are offline never see it replayed.
type UserStatus struct {
	Type     string `json:"type"`
	UserID   int64  `json:"user_id"`
	IsOnline bool   `json:"is_online"`
}

// OfflineMessage is one element of a fetch-and-promote response.
type OfflineMessage struct {
	ID          int64       `json:"id"`
	SenderID    int64       `json:"sender_id"`
	MessageKind MessageKind `json:"message_kind"`
	Payload     string      `json:"payload"`
	CreatedAt   time.Time   `json:"created_at"`
}
