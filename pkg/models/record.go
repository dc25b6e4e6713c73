package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type field struct {
	key   string
	value json.RawMessage
}

// Record is a flat JSON object that keeps keys in insertion order. Writing an
// existing key replaces its value but keeps its position.
type Record struct {
	fields []field
	seen   map[string]int
}

// NewRecord returns an empty record
func NewRecord() *Record {
	return &Record{seen: make(map[string]int)}
}

// SetRaw stores a raw JSON value under key. It reports whether the key is new.
func (r *Record) SetRaw(key string, value json.RawMessage) bool {
	if i, ok := r.seen[key]; ok {
		r.fields[i].value = value
		return false
	}
	r.seen[key] = len(r.fields)
	r.fields = append(r.fields, field{key: key, value: value})
	return true
}

// Set marshals value and stores it under key
func (r *Record) Set(key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", key, err)
	}
	r.SetRaw(key, b)
	return nil
}

// Has reports whether key is present
func (r *Record) Has(key string) bool {
	_, ok := r.seen[key]
	return ok
}

// Len returns the number of keys
func (r *Record) Len() int {
	return len(r.fields)
}

// Keys returns the keys in insertion order
func (r *Record) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.key
	}
	return keys
}

// MarshalJSON writes the fields in insertion order as a compact object
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		if err := json.Compact(&buf, f.value); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
