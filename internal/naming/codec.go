package naming

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs the struct validation rules declared in `validate` tags.
func Validate(v any) error {
	return validate.Struct(v)
}

// Decode translates a remote row to application naming, decodes it into T and
// validates the result. Rows that fail either step are rejected.
func Decode[T any](s *Schema, row map[string]any) (T, error) {
	v, err := DecodeLoose[T](s, row)
	if err != nil {
		return v, err
	}
	if err := validate.Struct(&v); err != nil {
		return v, fmt.Errorf("row failed validation: %w", err)
	}
	return v, nil
}

// DecodeLoose is Decode without validation. Mirror reads use it.
func DecodeLoose[T any](s *Schema, row map[string]any) (T, error) {
	var v T
	if s != nil {
		row = s.ToApp(row)
	}
	data, err := json.Marshal(row)
	if err != nil {
		return v, fmt.Errorf("failed to marshal row: %w", err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("failed to decode row: %w", err)
	}
	return v, nil
}

// ToMap converts a value to its generic JSON object form. Numbers are kept as
// json.Number so integer ids survive the trip.
func ToMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}
	return ParseObject(data)
}

// ParseObject decodes a JSON object with json.Number numbers.
func ParseObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode object: %w", err)
	}
	return m, nil
}

// ParseRows decodes a JSON array of objects with json.Number numbers.
func ParseRows(data []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode rows: %w", err)
	}
	return rows, nil
}

// Encode converts an application value into a remote row.
func Encode(s *Schema, v any) (map[string]any, error) {
	m, err := ToMap(v)
	if err != nil {
		return nil, err
	}
	return s.ToRemote(m), nil
}
