package patch

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/bytedance/sonic"
)

// Diff returns the operations turning the JSON object form of from into that of to.
// Only top-level members are compared; nested values are replaced whole. Operations are
// ordered by member name.
func Diff[T any](from, to T) ([]Operation, error) {
	a, err := toObject(from)
	if err != nil {
		return nil, err
	}
	b, err := toObject(to)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	var ops []Operation
	for _, k := range keys {
		path := "/" + escape(k)
		av, inA := a[k]
		bv, inB := b[k]
		switch {
		case !inB:
			ops = append(ops, Operation{Op: OperationRemove, Path: path})
		case !inA:
			ops = append(ops, Operation{Op: OperationAdd, Path: path, Value: bv})
		case !reflect.DeepEqual(av, bv):
			ops = append(ops, Operation{Op: OperationReplace, Path: path, Value: bv})
		}
	}
	return ops, nil
}

func toObject(v any) (map[string]any, error) {
	raw, err := sonic.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("patch: marshal: %w", err)
	}
	var obj map[string]any
	if err := sonic.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("patch: %T is not a JSON object: %w", v, err)
	}
	return obj, nil
}
