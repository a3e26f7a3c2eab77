package patch

import (
	"fmt"
	"slices"
	"strings"
)

// ValidatePaths checks every operation targets an allowed path or a child of one.
// An empty allow list permits everything.
func ValidatePaths(ops []Operation, allowed []string) error {
	if len(allowed) == 0 {
		return nil
	}
	for i, op := range ops {
		if !pathAllowed(op.Path, allowed) {
			return fmt.Errorf("operation %d: %w: %q", i, ErrPathNotAllowed, op.Path)
		}
	}
	return nil
}

func pathAllowed(path string, allowed []string) bool {
	if slices.Contains(allowed, path) {
		return true
	}
	for _, prefix := range allowed {
		if strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
