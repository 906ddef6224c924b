package migrations

import (
	_ "embed"
)

//go:embed schema.sql
var initialSchema string

// GetInitialSchema returns the initial database schema. The schema is
// embedded at build time so the binary has no runtime dependency on a
// migrations directory.
func GetInitialSchema() string {
	return initialSchema
}
