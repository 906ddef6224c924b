// Package privacy provides helpers to keep credentials and identifiers out
// of log output.
package privacy

import (
	"fmt"
	"strings"

	"chatrelay/internal/constants"
)

// MaskToken obscures a session token for logging, keeping the trailing
// characters so operators can correlate entries.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= constants.DefaultTokenRevealLength {
		return strings.Repeat("*", len(token))
	}
	reveal := token[len(token)-constants.DefaultTokenRevealLength:]
	return "***" + reveal
}

// PayloadPreview returns a short, non-reversible description of a payload
// suitable for log output.
func PayloadPreview(payload string) string {
	return fmt.Sprintf("[%d bytes]", len(payload))
}
