package logstore

import (
	"fmt"

	libinjection "github.com/corazawaf/libinjection-go"
)

// ScreenFreeText rejects free-text parameters carrying SQL injection
// payloads. Parameters always bind server-side, so this is a second layer
// for values that reach LIKE patterns, not the primary defense.
func ScreenFreeText(value string) error {
	if value == "" {
		return nil
	}
	if found, _ := libinjection.IsSQLi(value); found {
		return NewError(KindInvalidQuery, fmt.Sprintf("parameter %q rejected by injection screen", value), nil)
	}
	return nil
}
