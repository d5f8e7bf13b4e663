package models

import (
	"bytes"
	"encoding/json"
)

// Field is one key/value pair of a serialized entity.
type Field struct {
	Key   string
	Value any
}

// Fields is an ordered flat mapping produced by Entity.Serialize.
// Order is part of the contract: projections intersect against it in
// projection order, and the JSON sent to the model preserves it.
type Fields []Field

// Get returns the value for key and whether it is present.
func (f Fields) Get(key string) (any, bool) {
	for _, field := range f {
		if field.Key == key {
			return field.Value, true
		}
	}
	return nil, false
}

// Keys returns the field keys in order.
func (f Fields) Keys() []string {
	keys := make([]string, len(f))
	for i, field := range f {
		keys[i] = field.Key
	}
	return keys
}

// MarshalJSON renders the fields as a JSON object preserving field order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(field.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
