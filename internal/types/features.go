package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// Features is an ordered mapping from string keys to arbitrary JSON values
// (scalars, arrays or nested objects). The zero value is an empty map.
//
// JSON encoding writes an object whose keys appear in insertion order.
// Decoding accepts an object or null (null yields an empty map) and keeps
// keys in source order; a repeated key keeps its first position and its
// last value. Values decode with encoding/json defaults, so numbers become
// float64 and nested objects map[string]any. The cards table stores this
// encoding in a json column, which preserves it byte for byte.
type Features struct {
	keys   []string
	values map[string]any
}

// NewFeatures builds a Features from alternating key/value pairs.
func NewFeatures(kv ...any) (Features, error) {
	if len(kv)%2 != 0 {
		return Features{}, errors.New("features: odd number of key/value arguments")
	}
	var f Features
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return Features{}, fmt.Errorf("features: key at position %d is %T, not string", i, kv[i])
		}
		f.Set(k, kv[i+1])
	}
	return f, nil
}

// Set adds or replaces a key. Replacing keeps the key's position.
func (f *Features) Set(key string, value any) {
	if f.values == nil {
		f.values = make(map[string]any)
	}
	if _, exists := f.values[key]; !exists {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

func (f Features) Get(key string) (any, bool) {
	v, ok := f.values[key]
	return v, ok
}

func (f *Features) Delete(key string) {
	if _, ok := f.values[key]; !ok {
		return
	}
	delete(f.values, key)
	f.keys = slices.DeleteFunc(f.keys, func(k string) bool { return k == key })
	if len(f.keys) == 0 {
		*f = Features{}
	}
}

// Keys returns the keys in order.
func (f Features) Keys() []string {
	return slices.Clone(f.keys)
}

func (f Features) Len() int {
	return len(f.keys)
}

func (f Features) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range f.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(f.values[k])
		if err != nil {
			return nil, fmt.Errorf("features: encoding %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (f *Features) UnmarshalJSON(data []byte) error {
	*f = Features{}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("features: %w", err)
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("features: expected a JSON object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("features: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("features: expected an object key, got %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("features: decoding %q: %w", key, err)
		}
		f.Set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("features: %w", err)
	}
	return nil
}
