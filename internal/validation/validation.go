// Package validation checks inbound frames and API parameters before they
// reach persistence or routing.
package validation

import (
	"fmt"
	"unicode"

	"chatrelay/internal/constants"
	"chatrelay/internal/errors"
	"chatrelay/internal/models"
)

// ValidateToken checks the shape of a session token before it is looked up.
func ValidateToken(token string) error {
	if token == "" {
		return errors.NewValidationError("token", "is required")
	}
	if len(token) > constants.MaxTokenLength {
		return errors.NewValidationError("token",
			fmt.Sprintf("exceeds %d characters", constants.MaxTokenLength))
	}
	if hasControlChars(token) {
		return errors.NewValidationError("token", "contains control characters")
	}
	return nil
}

// ValidateMessageFrame checks a "message" frame before routing.
func ValidateMessageFrame(frame *models.InboundFrame) error {
	if frame.ReceiverID <= 0 {
		return errors.NewValidationError("receiver_id", "must be positive")
	}
	if frame.Payload == "" {
		return errors.NewValidationError("payload", "is required")
	}
	if len(frame.Payload) > constants.MaxPayloadBytes {
		return errors.NewValidationError("payload",
			fmt.Sprintf("exceeds %d bytes", constants.MaxPayloadBytes))
	}
	if !frame.MessageKind.Valid() {
		return errors.NewValidationError("message_kind",
			fmt.Sprintf("unknown kind %q", frame.MessageKind))
	}
	return ValidateClientMessageID(frame.ClientMessageID)
}

// ValidateClientMessageID checks a client-assigned provisional identifier.
// Empty is allowed; clients that do not reconcile simply omit it.
func ValidateClientMessageID(id string) error {
	if id == "" {
		return nil
	}
	if len(id) > constants.MaxClientMessageIDLength {
		return errors.NewValidationError("client_message_id",
			fmt.Sprintf("exceeds %d characters", constants.MaxClientMessageIDLength))
	}
	if hasControlChars(id) {
		return errors.NewValidationError("client_message_id", "contains control characters")
	}
	return nil
}

// ValidateMessageID checks a message identifier from an ack frame or the
// polling API.
func ValidateMessageID(id int64) error {
	if id <= 0 {
		return errors.NewValidationError("id", "must be positive")
	}
	return nil
}

func hasControlChars(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}
