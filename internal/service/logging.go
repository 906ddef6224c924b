package service

// Standardized structured logging field names. Every service logs the same
// concept under the same key so log queries compose.
const (
	LogFieldUserID        = "user_id"
	LogFieldSenderID      = "sender_id"
	LogFieldReceiverID    = "receiver_id"
	LogFieldMessageID     = "message_id"
	LogFieldClientMsgID   = "client_message_id"
	LogFieldResourceID    = "resource_id"
	LogFieldStatus        = "status"
	LogFieldMessageKind   = "message_kind"
	LogFieldFrameType     = "frame_type"
	LogFieldError         = "error"
	LogFieldOperation     = "operation"
	LogFieldDurationMs    = "duration_ms"
	LogFieldRemoteIP      = "remote_ip"
	LogFieldCount         = "count"
	LogFieldRequestID     = "request_id"
	LogFieldMethod        = "method"
	LogFieldPath          = "path"
	LogFieldStatusCode    = "status_code"
	LogFieldResponseSize  = "response_size"
)
