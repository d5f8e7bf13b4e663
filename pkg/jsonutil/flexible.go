// Package jsonutil tolerantly decodes values from model-produced JSON.
// Models regularly emit numbers where schemas say string, or quoted
// numbers where schemas say integer; tool argument decoding accepts both.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexibleString converts a json.RawMessage to a string, handling cases
// where the model returns numbers or booleans instead of strings.
// Returns empty string for null/empty.
func FlexibleString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == float64(int64(numVal)) {
			return fmt.Sprintf("%d", int64(numVal))
		}
		return fmt.Sprintf("%g", numVal)
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	return string(raw)
}

// FlexibleInt converts a json.RawMessage to an int, accepting numbers,
// quoted numbers, and floats with no fractional part. ok is false when the
// value cannot be interpreted as an integer.
func FlexibleInt(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal != float64(int64(numVal)) {
			return 0, false
		}
		return int(numVal), true
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		n, err := strconv.Atoi(strings.TrimSpace(strVal))
		if err != nil {
			return 0, false
		}
		return n, true
	}

	return 0, false
}

// FlexibleStringSlice converts a json.RawMessage to a slice of strings,
// accepting a JSON array of any scalar types or a single scalar.
func FlexibleStringSlice(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var rawItems []json.RawMessage
	if err := json.Unmarshal(raw, &rawItems); err == nil {
		items := make([]string, 0, len(rawItems))
		for _, item := range rawItems {
			if s := FlexibleString(item); s != "" {
				items = append(items, s)
			}
		}
		return items
	}

	if s := FlexibleString(raw); s != "" {
		return []string{s}
	}
	return nil
}
