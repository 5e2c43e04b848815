package attrmap

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/reoring/attrmap/codec"
)

var isoTime = codec.ISO8601()

// describe names the JSON kind of a document value for error messages.
func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, float32, int, int32, int64, uint, uint32, uint64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func toString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	default:
		return "", invalidType("string", v)
	}
}

func toNumber(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, &ValueError{Code: CodeInvalidFormat, Message: "number out of range", Cause: err}
		}
		f = n
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint64:
		f = float64(x)
	default:
		return 0, invalidType("number", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &ValueError{Code: CodeInvalidFormat, Message: "number is not finite"}
	}
	return f, nil
}

func toBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, invalidType("boolean", v)
	}
	return b, nil
}

func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		t, err := isoTime.Decode(x)
		if err != nil {
			return time.Time{}, &ValueError{Code: CodeInvalidFormat, Message: "invalid date-time", Cause: err}
		}
		return t, nil
	default:
		return time.Time{}, invalidType("ISO-8601 string", v)
	}
}

// convert coerces an arbitrary value into T using the table conversions.
func convert[T any](v any) (T, error) {
	var zero T
	var out any
	var err error
	switch any(zero).(type) {
	case string:
		out, err = toString(v)
	case float64:
		out, err = toNumber(v)
	case bool:
		out, err = toBool(v)
	case time.Time:
		out, err = toTime(v)
	default:
		if t, ok := v.(T); ok {
			return t, nil
		}
		if v == nil {
			return zero, nil
		}
		return zero, invalidType(fmt.Sprintf("%T", zero), v)
	}
	if err != nil {
		return zero, err
	}
	return out.(T), nil
}
