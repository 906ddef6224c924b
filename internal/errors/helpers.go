package errors

import (
	"fmt"
	"net/http"
)

// Common error creators for frequent use cases

// NewValidationError creates a validation error with field context
func NewValidationError(field, message string) *AppError {
	return New(ErrCodeValidationFailed, message).
		WithContext("field", field).
		WithUserMessage(fmt.Sprintf("Invalid %s: %s", field, message))
}

// NewAuthError creates an authentication error. The reason stays in the
// structured context; the user-facing message is deliberately uniform so
// token probing reveals nothing.
func NewAuthError(reason string) *AppError {
	return New(ErrCodeAuthentication, "authentication failed").
		WithContext("reason", reason).
		WithUserMessage("Authentication failed")
}

// NewDatabaseError creates a database error with operation context
func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseQuery, fmt.Sprintf("database %s failed", operation)).
		WithContext("operation", operation).
		WithUserMessage("Database operation failed")
}

// NewPersistenceError marks a failed durable write. Sends must never be
// acknowledged when this is returned: no durable identifier, no receipt.
func NewPersistenceError(operation string, err error) *AppError {
	return Wrap(err, ErrCodePersistence, fmt.Sprintf("failed to persist %s", operation)).
		WithContext("operation", operation).
		WithUserMessage("Message could not be saved")
}

// NewBlockedRecipientError marks a send suppressed by a block relationship.
// Callers drop these silently; the sender must not learn about the block.
func NewBlockedRecipientError(senderID, receiverID int64) *AppError {
	return New(ErrCodeBlockedRecipient, "sender is blocked by receiver").
		WithContext("sender_id", senderID).
		WithContext("receiver_id", receiverID)
}

// NewDeliveryPushError marks a failed live push after successful
// persistence. Non-fatal: the message stays queued for offline
// reconciliation.
func NewDeliveryPushError(receiverID int64, err error) *AppError {
	return WrapRetryable(err, ErrCodeDeliveryPush, "live delivery push failed").
		WithContext("receiver_id", receiverID)
}

// NewNotFoundError creates a not found error with resource context
func NewNotFoundError(resource string, identifier interface{}) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithContext("resource", resource).
		WithContext("identifier", identifier).
		WithUserMessage(fmt.Sprintf("%s not found", resource))
}

// HTTPStatusCode maps error codes to appropriate HTTP status codes
func HTTPStatusCode(err error) int {
	switch GetCode(err) {
	case ErrCodeValidationFailed, ErrCodeInvalidInput, ErrCodeInvalidConfig:
		return http.StatusBadRequest
	case ErrCodeAuthentication:
		return http.StatusUnauthorized
	case ErrCodeAuthorization:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeTimeout:
		return http.StatusRequestTimeout
	case ErrCodeDatabaseConnection, ErrCodeDatabaseQuery, ErrCodePersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HTTPErrorResponse is the standardized HTTP error body
type HTTPErrorResponse struct {
	Error struct {
		Code    ErrorCode `json:"code"`
		Message string    `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// ToHTTPResponse converts an error to a standardized HTTP response. Only
// the user-facing message crosses the wire; internal context never does.
func ToHTTPResponse(err error, requestID string) HTTPErrorResponse {
	response := HTTPErrorResponse{RequestID: requestID}
	response.Error.Code = GetCode(err)
	response.Error.Message = GetUserMessage(err)
	return response
}
