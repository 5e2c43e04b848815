package codec

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTime is wrapped by every Decode failure of the ISO-8601 codec.
var ErrInvalidTime = errors.New("invalid ISO-8601 time")

// ISO8601 returns a Codec that converts between ISO-8601 strings and time.Time.
// Accepted inputs are RFC3339 with optional fractional seconds and plain
// calendar dates (YYYY-MM-DD, interpreted as UTC midnight).
func ISO8601() Codec[string, time.Time] { return iso8601Codec{} }

type iso8601Codec struct{}

var layouts = []string{time.RFC3339Nano, time.RFC3339, time.DateOnly}

func (iso8601Codec) Decode(s string) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
}

func (iso8601Codec) Encode(t time.Time) (string, error) {
	if t.IsZero() {
		return "", fmt.Errorf("%w: zero time", ErrInvalidTime)
	}
	// Normalize to UTC and format using RFC3339Nano (Go trims trailing zeros)
	return t.UTC().Format(time.RFC3339Nano), nil
}
