package translation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Strings is an insertion-ordered key/value mapping.
// The zero value is an empty mapping ready to use.
type Strings struct {
	keys   []string
	values map[string]string
}

// NewStrings builds a mapping from alternating key/value pairs.
func NewStrings(pairs ...string) *Strings {
	s := &Strings{}
	for i := 0; i+1 < len(pairs); i += 2 {
		s.Set(pairs[i], pairs[i+1])
	}
	return s
}

// Len returns the number of keys.
func (s *Strings) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Keys returns keys in insertion order.
func (s *Strings) Keys() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.keys...)
}

// Get returns the value stored under key.
func (s *Strings) Get(key string) (string, bool) {
	if s == nil || s.values == nil {
		return "", false
	}
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key. A new key is appended; an existing key keeps
// its position.
func (s *Strings) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Overlay returns a new mapping holding s with other applied on top:
// keys from other replace values in place, unseen keys are appended.
func (s *Strings) Overlay(other *Strings) *Strings {
	out := &Strings{}
	for _, k := range s.Keys() {
		v, _ := s.Get(k)
		out.Set(k, v)
	}
	for _, k := range other.Keys() {
		v, _ := other.Get(k)
		out.Set(k, v)
	}
	return out
}

// Each calls fn for every pair in order.
func (s *Strings) Each(fn func(key, value string)) {
	for _, k := range s.Keys() {
		fn(k, s.values[k])
	}
}

// parseStrings decodes a JSON object of scalar values preserving key order.
// Numbers and booleans are kept as their literal JSON text.
func parseStrings(data json.RawMessage) (*Strings, error) {
	out := &Strings{}
	err := walkObject(data, func(key string, raw json.RawMessage) error {
		v, err := scalarText(raw)
		if err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		out.Set(key, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// walkObject visits the members of a JSON object in document order.
func walkObject(data json.RawMessage, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()

	t, err := dec.Token()
	if err != nil {
		return err
	}
	if t == nil {
		// JSON null is treated as an absent section.
		return nil
	}
	if delim, ok := t.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", t)
	}

	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("expected string key, got %T", kt)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	return nil
}

func scalarText(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "", fmt.Errorf("empty value")
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return "", fmt.Errorf("expected string value, got %s", kindOf(trimmed[0]))
	case 'n':
		return "", fmt.Errorf("expected string value, got null")
	}
	// numbers, true, false
	return trimmed, nil
}

func kindOf(c byte) string {
	if c == '{' {
		return "object"
	}
	return "array"
}
