package patch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"
)

// ApplyRFC6902 applies ops to the JSON form of current and decodes the result back into T.
// Replacing a missing member is turned into an add and removing a missing member is
// dropped, so clients may send either form.
func ApplyRFC6902[T any](current T, ops []Operation) (T, error) {
	var zero T
	if len(ops) == 0 {
		return current, nil
	}

	doc, err := sonic.Marshal(current)
	if err != nil {
		return zero, fmt.Errorf("patch: marshal document: %w", err)
	}
	ops = Normalize(doc, ops)
	raw, err := sonic.Marshal(ops)
	if err != nil {
		return zero, fmt.Errorf("patch: marshal operations: %w", err)
	}
	p, err := jsonpatch.DecodePatch(raw)
	if err != nil {
		return zero, fmt.Errorf("patch: decode: %w", err)
	}
	patched, err := p.Apply(doc)
	if err != nil {
		return zero, fmt.Errorf("patch: apply: %w", err)
	}

	var out T
	if err := sonic.Unmarshal(patched, &out); err != nil {
		return zero, fmt.Errorf("patch: result does not fit %T: %w", out, err)
	}
	return out, nil
}

// Normalize rewrites replace-of-missing into add and drops remove-of-missing.
func Normalize(doc []byte, ops []Operation) []Operation {
	var root any
	if err := sonic.Unmarshal(doc, &root); err != nil {
		return ops
	}
	out := make([]Operation, 0, len(ops))
	for _, op := range ops {
		exists := lookup(root, op.Path)
		switch {
		case op.Op == OperationReplace && !exists:
			op.Op = OperationAdd
		case op.Op == OperationRemove && !exists:
			continue
		}
		out = append(out, op)
	}
	return out
}

func lookup(node any, pointer string) bool {
	if pointer == "" {
		return true
	}
	if !strings.HasPrefix(pointer, "/") {
		return false
	}
	for _, token := range strings.Split(pointer[1:], "/") {
		token = unescape(token)
		switch v := node.(type) {
		case map[string]any:
			next, ok := v[token]
			if !ok {
				return false
			}
			node = next
		case []any:
			i, err := strconv.Atoi(token)
			if err != nil || i < 0 || i >= len(v) {
				return false
			}
			node = v[i]
		default:
			return false
		}
	}
	return true
}

func escape(token string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(token)
}

func unescape(token string) string {
	return strings.NewReplacer("~1", "/", "~0", "~").Replace(token)
}
