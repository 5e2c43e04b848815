package attrmap

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Generator computes one slot (key, value, info or language) of an emitted
// attribute from the active Context. Generators must be pure: the same
// Context always yields the same result.
type Generator[T any] interface {
	Generate(c *Context) (T, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc[T any] func(c *Context) (T, error)

func (f GeneratorFunc[T]) Generate(c *Context) (T, error) { return f(c) }

// Func is a shorthand for GeneratorFunc[T](f).
func Func[T any](f func(c *Context) (T, error)) Generator[T] { return GeneratorFunc[T](f) }

// Default generators used when a node leaves a slot empty.
var (
	// StringValue reads the current value as a string.
	StringValue Generator[string] = current[string]{}
	// NumberValue reads the current value as a JSON number.
	NumberValue Generator[float64] = current[float64]{}
	// BooleanValue reads the current value as a boolean.
	BooleanValue Generator[bool] = current[bool]{}
	// DateTimeValue parses the current value as an ISO-8601 string.
	DateTimeValue Generator[time.Time] = current[time.Time]{}
	// NullInfo attaches no info blob.
	NullInfo Generator[any] = nullInfo{}
	// NoLanguage leaves the language tag empty.
	NoLanguage Generator[string] = Const("")
)

type current[T any] struct{}

func (current[T]) Generate(c *Context) (T, error) { return convert[T](c.Value) }

func (current[T]) isCurrent() {}

type nullInfo struct{}

func (nullInfo) Generate(*Context) (any, error) { return nil, nil }

// staticChecker is implemented by generators whose problems can be found
// when the schema is built rather than per document.
type staticChecker interface {
	checkStatic(bound func(token string) bool) []SchemaError
}

// Const always yields v.
func Const[T any](v T) Generator[T] { return constant[T]{v: v} }

type constant[T any] struct{ v T }

func (g constant[T]) Generate(*Context) (T, error) { return g.v, nil }

// Capture yields the document key bound to token by an enclosing capture node.
func Capture(token string) Generator[string] { return captureGen{token: token} }

type captureGen struct{ token string }

func (g captureGen) Generate(c *Context) (string, error) {
	v, ok := c.Capture(g.token)
	if !ok {
		return "", fmt.Errorf("token %q is not bound", g.token)
	}
	return v, nil
}

func (g captureGen) checkStatic(bound func(string) bool) []SchemaError {
	if bound(g.token) {
		return nil
	}
	return []SchemaError{schemaErr("", CodeUnboundToken, map[string]string{"token": g.token})}
}

// Pluck reads a nested value below the current value and converts it to T.
// Path elements are object keys or array indexes. A missing element fails the
// document; wrap with Optional when absence is expected.
func Pluck[T any](path ...string) Generator[T] { return pluck[T]{path: path} }

type pluck[T any] struct{ path []string }

func (g pluck[T]) Generate(c *Context) (T, error) {
	v, ok := dig(c.Value, g.path)
	if !ok {
		var zero T
		return zero, &ValueError{Code: CodeInvalidType, Message: "no value at " + pointer(g.path)}
	}
	return convert[T](v)
}

// Optional returns fallback whenever g fails with a ValueError of code
// invalid_type (missing or mistyped input). Other errors propagate.
func Optional[T any](g Generator[T], fallback T) Generator[T] {
	return optional[T]{g: g, fallback: fallback}
}

type optional[T any] struct {
	g        Generator[T]
	fallback T
}

func (o optional[T]) Generate(c *Context) (T, error) {
	v, err := o.g.Generate(c)
	var ve *ValueError
	if errors.As(err, &ve) && ve.Code == CodeInvalidType {
		return o.fallback, nil
	}
	return v, err
}

func (o optional[T]) checkStatic(bound func(string) bool) []SchemaError {
	if sc, ok := o.g.(staticChecker); ok {
		return sc.checkStatic(bound)
	}
	return nil
}

func dig(v any, path []string) (any, bool) {
	for _, p := range path {
		next, ok := lookup(v, p)
		if !ok {
			return nil, false
		}
		v = next
	}
	return v, true
}

// lookup returns the member k of an object or the element at index k of an array.
func lookup(v any, k string) (any, bool) {
	switch x := v.(type) {
	case map[string]any:
		m, ok := x[k]
		return m, ok
	case []any:
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i >= len(x) || strconv.Itoa(i) != k {
			return nil, false
		}
		return x[i], true
	default:
		return nil, false
	}
}
