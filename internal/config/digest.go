package config

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
)

// Digest returns a stable hash of v, used by the registries to detect whether
// a reloaded config entry actually changed, so reloading with the same
// config is a no-op after the first time.
//
// v is first round-tripped through json.Marshal/Unmarshal into a generic
// map/slice tree and re-marshaled with sorted keys, so two JSON documents
// that differ only in key order or insignificant whitespace hash equal.
func Digest(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("config: digest: marshal: %w", err)
	}

	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("config: digest: unmarshal: %w", err)
	}

	canonical, err := canonicalize(generic)
	if err != nil {
		return "", err
	}

	h := fnv.New128a()
	if _, err := h.Write(canonical); err != nil {
		return "", fmt.Errorf("config: digest: hash: %w", err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// canonicalize re-marshals a generic JSON tree with map keys sorted at every
// level, so field order in the source document never affects the digest.
func canonicalize(v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var out []byte
		out = append(out, '{')
		for i, k := range keys {
			if i > 0 {
				out = append(out, ',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			out = append(out, kb...)
			out = append(out, ':')
			vb, err := canonicalize(t[k])
			if err != nil {
				return nil, err
			}
			out = append(out, vb...)
		}
		out = append(out, '}')
		return out, nil
	case []interface{}:
		var out []byte
		out = append(out, '[')
		for i, elem := range t {
			if i > 0 {
				out = append(out, ',')
			}
			eb, err := canonicalize(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, eb...)
		}
		out = append(out, ']')
		return out, nil
	default:
		return json.Marshal(t)
	}
}
