package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StringMap is a string-to-string map that remembers insertion order.
// The zero value is ready to use.
type StringMap struct {
	keys   []string
	values map[string]string
}

// Set assigns value to key, appending key if it is new
func (m *StringMap) Set(key, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored under key
func (m *StringMap) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order
func (m *StringMap) Keys() []string {
	return m.keys
}

// Len returns the number of keys
func (m *StringMap) Len() int {
	return len(m.keys)
}

// MarshalJSON encodes the map as an object in insertion order
func (m StringMap) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(value)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// UnmarshalJSON decodes an object keeping document order
func (m *StringMap) UnmarshalJSON(data []byte) error {
	var out StringMap
	err := decodeOrderedObject(data, func(key string, value json.RawMessage) error {
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		out.Set(key, s)
		return nil
	})
	if err != nil {
		return err
	}
	*m = out
	return nil
}

// decodeOrderedObject walks the members of a JSON object in document order.
// A JSON null is treated as an empty object.
func decodeOrderedObject(data []byte, fn func(key string, value json.RawMessage) error) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, found %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, found %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
