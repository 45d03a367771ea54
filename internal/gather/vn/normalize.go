package vn

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"vnstock/internal/domain"
)

// IsEmptyPayload reports whether raw carries no data: empty, null, [], or {}.
func IsEmptyPayload(raw json.RawMessage) bool {
	s := bytes.TrimSpace(raw)
	switch string(s) {
	case "", "null", "[]", "{}":
		return true
	}
	return false
}

// IsTimeColumn reports whether a column holds epoch seconds: its name
// contains "time" (any case) or is exactly "t".
func IsTimeColumn(name string) bool {
	return name == "t" || strings.Contains(strings.ToLower(name), "time")
}

// Normalize converts a column-oriented payload (one object, or a list of
// objects) into a frame. In each object, list fields become columns and
// scalar fields are broadcast to the list length. Time columns are converted
// from epoch seconds to loc. Columns are ordered by name.
func Normalize(raw json.RawMessage, loc *time.Location) (*domain.Frame, error) {
	if IsEmptyPayload(raw) {
		return domain.NewFrame(0), nil
	}

	var objects []map[string]json.RawMessage
	trimmed := bytes.TrimSpace(raw)
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &objects); err != nil {
			return nil, fmt.Errorf("decoding payload list: %w", err)
		}
	} else {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, fmt.Errorf("decoding payload object: %w", err)
		}
		objects = append(objects, obj)
	}

	frames := make([]*domain.Frame, 0, len(objects))
	for i, obj := range objects {
		f, err := normalizeObject(obj, loc)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		frames = append(frames, f)
	}
	return domain.Concat(frames...), nil
}

func normalizeObject(obj map[string]json.RawMessage, loc *time.Location) (*domain.Frame, error) {
	names := make([]string, 0, len(obj))
	for k := range obj {
		names = append(names, k)
	}
	sort.Strings(names)

	lists := make(map[string][]any)
	scalars := make(map[string]any)
	length := -1
	for _, name := range names {
		v, err := decodeValue(obj[name])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		if list, ok := v.([]any); ok {
			if length < 0 {
				length = len(list)
			} else if len(list) != length {
				return nil, fmt.Errorf("field %q has %d values, want %d", name, len(list), length)
			}
			lists[name] = list
			continue
		}
		scalars[name] = v
	}
	if length < 0 {
		// No list field: nothing to broadcast against.
		return domain.NewFrame(0), nil
	}

	f := domain.NewFrame(length)
	for _, name := range names {
		vals, ok := lists[name]
		if !ok {
			vals = make([]any, length)
			for i := range vals {
				vals[i] = scalars[name]
			}
		}
		if IsTimeColumn(name) {
			converted, err := toTimes(vals, loc)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			vals = converted
		}
		if err := f.Set(name, vals); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// decodeValue decodes a JSON value keeping integers as int64. Nested objects
// are kept as their JSON text.
func decodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if list, ok := v.([]any); ok {
		for i, e := range list {
			list[i] = scalar(e)
		}
		return list, nil
	}
	return scalar(v), nil
}

func scalar(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any, []any:
		b, _ := json.Marshal(x)
		return string(b)
	}
	return v
}

func toTimes(vals []any, loc *time.Location) ([]any, error) {
	out := make([]any, len(vals))
	for i, v := range vals {
		var secs int64
		switch x := v.(type) {
		case nil:
			continue
		case int64:
			secs = x
		case float64:
			secs = int64(math.Trunc(x))
		case string:
			n, err := strconv.ParseFloat(x, 64)
			if err != nil {
				return nil, fmt.Errorf("value %q is not epoch seconds", x)
			}
			secs = int64(math.Trunc(n))
		default:
			return nil, fmt.Errorf("value %v is not epoch seconds", v)
		}
		out[i] = time.Unix(secs, 0).In(loc)
	}
	return out, nil
}
