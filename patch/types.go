package patch

import "errors"

const (
	OperationAdd     = "add"
	OperationRemove  = "remove"
	OperationReplace = "replace"
	OperationTest    = "test"
)

// ErrPathNotAllowed is returned when an operation targets a path outside the allowed set.
var ErrPathNotAllowed = errors.New("patch: path not allowed")

// Operation is one RFC 6902 operation.
type Operation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}
