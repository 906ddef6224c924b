package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateFilePath rejects paths that escape their directory via traversal
// sequences.
func ValidateFilePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	cleaned := filepath.Clean(path)
	if strings.Contains(cleaned, "..") {
		return fmt.Errorf("path contains directory traversal: %s", path)
	}

	return nil
}
