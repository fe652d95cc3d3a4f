package remote

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// mutation replaces the subtree at path with rows. A mutation with no
// rows deletes the subtree. A mutation that writes rows also drops any
// leaf stored at an ancestor of path, since a scalar cannot have children.
type mutation struct {
	path string
	rows map[string]string
}

// setMutation builds the mutation that stores value at path.
func setMutation(path string, value any) (mutation, error) {
	v, err := normalize(value)
	if err != nil {
		return mutation{}, fmt.Errorf("encoding value for %s: %w", path, err)
	}
	rows := make(map[string]string)
	if err := flatten(path, v, rows); err != nil {
		return mutation{}, fmt.Errorf("encoding value for %s: %w", path, err)
	}
	return mutation{path: path, rows: rows}, nil
}

// updateMutations builds one mutation per field of a partial update.
// Field paths may not overlap each other.
func updateMutations(path string, fields map[string]any) ([]mutation, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		if name == "" {
			return nil, fmt.Errorf("%w: empty field name in update of %s", ErrInvalidPath, path)
		}
		if err := ValidatePath(name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for i := 1; i < len(names); i++ {
		if isWithin(names[i], names[i-1]) {
			return nil, fmt.Errorf("%w: field %q overlaps %q in update of %s",
				ErrInvalidPath, names[i], names[i-1], path)
		}
	}

	muts := make([]mutation, 0, len(names))
	for _, name := range names {
		m, err := setMutation(Join(path, name), fields[name])
		if err != nil {
			return nil, err
		}
		muts = append(muts, m)
	}
	return muts, nil
}

// normalize converts v into plain JSON values by round-tripping it
// through encoding/json, so structs, typed slices and numbers all land
// in the same representation the store reads back.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// flatten writes each leaf of v into rows keyed by its full path.
// nil values and empty containers produce no rows.
func flatten(path string, v any, rows map[string]string) error {
	switch x := v.(type) {
	case nil:
		return nil
	case map[string]any:
		for k, child := range x {
			if err := validateSegment(k); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidPath, err)
			}
			if err := flatten(Join(path, k), child, rows); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for i, child := range x {
			if err := flatten(Join(path, strconv.Itoa(i)), child, rows); err != nil {
				return err
			}
		}
		return nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return err
		}
		rows[path] = string(b)
		return nil
	}
}

// unflatten rebuilds the value at base from rows. Maps whose keys are
// exactly 0..n-1 come back as slices. No rows yields nil.
func unflatten(base string, rows map[string]string) (any, error) {
	if raw, ok := rows[base]; ok {
		var leaf any
		if err := json.Unmarshal([]byte(raw), &leaf); err != nil {
			return nil, fmt.Errorf("decoding leaf %s: %w", base, err)
		}
		return leaf, nil
	}

	var root map[string]any
	for p, raw := range rows {
		if !isWithin(p, base) {
			continue
		}
		var leaf any
		if err := json.Unmarshal([]byte(raw), &leaf); err != nil {
			return nil, fmt.Errorf("decoding leaf %s: %w", p, err)
		}
		if root == nil {
			root = make(map[string]any)
		}
		insert(root, Split(relative(base, p)), leaf)
	}
	if root == nil {
		return nil, nil
	}
	return arrayify(root), nil
}

func insert(node map[string]any, segs []string, leaf any) {
	for _, seg := range segs[:len(segs)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[seg] = child
		}
		node = child
	}
	node[segs[len(segs)-1]] = leaf
}

func arrayify(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for k, child := range m {
		m[k] = arrayify(child)
	}

	list := make([]any, len(m))
	for k, child := range m {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i >= len(m) || strconv.Itoa(i) != k {
			return m
		}
		list[i] = child
	}
	return list
}
