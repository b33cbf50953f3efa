package jsonutil

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// The Flex types decode upstream JSON payloads whose field types drift between
// exports: numbers serialized as strings, booleans as "true"/"1", dates as
// either ISO strings or epoch milliseconds. Decoding never fails; values that
// cannot be coerced collapse to the zero value so a single malformed field
// does not reject the whole record.

// FlexString decodes strings, numbers, and booleans into a string.
type FlexString string

func (s *FlexString) UnmarshalJSON(raw []byte) error {
	*s = ""
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		*s = FlexString(strVal)
		return nil
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == float64(int64(numVal)) {
			*s = FlexString(strconv.FormatInt(int64(numVal), 10))
		} else {
			*s = FlexString(strconv.FormatFloat(numVal, 'g', -1, 64))
		}
		return nil
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		*s = FlexString(strconv.FormatBool(boolVal))
	}
	return nil
}

// String returns the decoded value as a plain string.
func (s FlexString) String() string {
	return string(s)
}

// FlexFloat decodes JSON numbers that are sometimes serialized as strings.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(raw []byte) error {
	*f = 0
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		*f = FlexFloat(numVal)
		return nil
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		strVal = strings.TrimSpace(strVal)
		if strVal == "" {
			return nil
		}
		if parsed, err := strconv.ParseFloat(strVal, 64); err == nil {
			*f = FlexFloat(parsed)
		}
	}
	return nil
}

// Float64 returns the decoded value as a plain float64.
func (f FlexFloat) Float64() float64 {
	return float64(f)
}

// FlexBool decodes JSON booleans that are sometimes serialized as strings or
// as 0/1 numbers.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(raw []byte) error {
	*b = false
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		*b = FlexBool(boolVal)
		return nil
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		*b = numVal != 0
		return nil
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(strings.ToLower(strVal))); err == nil {
			*b = FlexBool(parsed)
		}
	}
	return nil
}

// Bool returns the decoded value as a plain bool.
func (b FlexBool) Bool() bool {
	return bool(b)
}

// flexTimeLayouts are tried in order when a date arrives as a string.
var flexTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FlexTime decodes timestamps that arrive as ISO 8601 strings in several
// shapes or as epoch milliseconds. Unparseable input decodes to the zero
// time rather than an error.
type FlexTime struct {
	time.Time
}

func (t *FlexTime) UnmarshalJSON(raw []byte) error {
	t.Time = time.Time{}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	// Epoch milliseconds, the default date serialization of several
	// low-code export formats.
	var numVal int64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal > 0 {
			t.Time = time.UnixMilli(numVal).UTC()
		}
		return nil
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err != nil {
		return nil
	}
	strVal = strings.TrimSpace(strVal)
	if strVal == "" {
		return nil
	}
	for _, layout := range flexTimeLayouts {
		if parsed, err := time.Parse(layout, strVal); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return nil
}

func (t FlexTime) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// Ptr returns the decoded time, or nil when no parseable value arrived.
func (t FlexTime) Ptr() *time.Time {
	if t.Time.IsZero() {
		return nil
	}
	tt := t.Time
	return &tt
}
