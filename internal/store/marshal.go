package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/irjit/internal/ir"
)

// marshalBind converts a parameter binding to canonical JSON TEXT.
// Uses RFC 8785 canonical JSON so equal bindings store byte-identically.
func marshalBind(bind map[string]string) (string, error) {
	m := make(map[string]any, len(bind))
	for k, v := range bind {
		m[k] = v
	}
	data, err := ir.MarshalCanonical(m)
	if err != nil {
		return "", fmt.Errorf("marshal bind: %w", err)
	}
	return string(data), nil
}

// marshalSpecialize converts axis specializations to canonical JSON TEXT.
func marshalSpecialize(spec map[string]int32) (string, error) {
	m := make(map[string]any, len(spec))
	for k, v := range spec {
		m[k] = v
	}
	data, err := ir.MarshalCanonical(m)
	if err != nil {
		return "", fmt.Errorf("marshal specialize: %w", err)
	}
	return string(data), nil
}

// unmarshalBind parses canonical JSON TEXT to a binding. An empty object
// reads back as nil, matching a definition without bind.
func unmarshalBind(data string) (map[string]string, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	var bind map[string]string
	if err := json.Unmarshal([]byte(data), &bind); err != nil {
		return nil, fmt.Errorf("unmarshal bind: %w", err)
	}
	return bind, nil
}

// unmarshalSpecialize parses canonical JSON TEXT to specializations.
func unmarshalSpecialize(data string) (map[string]int32, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	var spec map[string]int32
	if err := json.Unmarshal([]byte(data), &spec); err != nil {
		return nil, fmt.Errorf("unmarshal specialize: %w", err)
	}
	return spec, nil
}
