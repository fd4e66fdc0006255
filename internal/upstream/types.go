package upstream

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

var null = []byte("null")

// Float decodes a JSON number or numeric string. Values that cannot be
// parsed become NaN, never zero.
type Float float64

// UnmarshalJSON implements json.Unmarshaler
func (f *Float) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, null) {
		*f = Float(math.NaN())
		return nil
	}

	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			*f = Float(math.NaN())
			return nil
		}
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		v = math.NaN()
	}
	*f = Float(v)
	return nil
}

// Value returns the float64, NaN when absent or unparsable
func (f *Float) Value() float64 {
	if f == nil {
		return math.NaN()
	}
	return float64(*f)
}

// CData decodes a plain string, a bare number or boolean, or an XML-derived
// {"#cdata-section": "..."} object into text
type CData string

// UnmarshalJSON implements json.Unmarshaler
func (c *CData) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, null) {
		*c = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = CData(s)
		return nil
	}

	if len(data) > 0 && data[0] != '{' && data[0] != '[' {
		*c = CData(data)
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	for _, key := range []string{"#cdata-section", "#cdatasection", "#text"} {
		if raw, ok := obj[key]; ok {
			if err := json.Unmarshal(raw, &s); err == nil {
				*c = CData(s)
				return nil
			}
		}
	}
	*c = ""
	return nil
}

// String returns the text content
func (c CData) String() string {
	return string(c)
}

// List decodes a JSON array, a single object, or null into a slice. XML to
// JSON converters emit a bare object when a repeated element occurs once.
type List[T any] []T

// UnmarshalJSON implements json.Unmarshaler
func (l *List[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, null) {
		*l = nil
		return nil
	}

	if data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}

	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	*l = List[T]{item}
	return nil
}

// Bool decodes true/false, "true"/"false", and "1"/"0"
type Bool bool

// UnmarshalJSON implements json.Unmarshaler
func (b *Bool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	switch strings.ToLower(s) {
	case "true", "1":
		*b = true
	default:
		*b = false
	}
	return nil
}
