package attrmap

import (
	"strings"

	eng "github.com/reoring/attrmap/internal/engine"
)

// Context is the state visible to generators while one schema node is
// evaluated. A Context is never mutated after creation: descending into a
// child builds a new one, so sibling branches cannot observe each other's
// captures.
type Context struct {
	// Value is the document value at the current key.
	Value any
	// Parent is the document value that holds Value.
	Parent any
	// Key is the document key Value was found under.
	Key string
	// Root is the whole document being evaluated.
	Root any

	path       []string
	schemaPath []string
	captures   *binding
	depth      int
}

// binding is an immutable cons list of capture bindings. Inner bindings
// shadow outer ones with the same token.
type binding struct {
	token string
	value string
	next  *binding
}

func rootContext(doc any) *Context {
	return &Context{Value: doc, Root: doc}
}

// child derives the context for document key k under node name. token is
// non-empty when name is a capture token that matched k.
func (c *Context) child(name, k string, v any, token string) *Context {
	nc := &Context{
		Value:      v,
		Parent:     c.Value,
		Key:        k,
		Root:       c.Root,
		path:       append(c.path[:len(c.path):len(c.path)], k),
		schemaPath: append(c.schemaPath[:len(c.schemaPath):len(c.schemaPath)], name),
		captures:   c.captures,
		depth:      c.depth + 1,
	}
	if token != "" {
		nc.captures = &binding{token: token, value: k, next: c.captures}
	}
	return nc
}

// within derives the context of a value nested below c that no schema node
// matched; only the document path grows.
func (c *Context) within(k string, v any) *Context {
	nc := *c
	nc.Value, nc.Parent, nc.Key = v, c.Value, k
	nc.path = append(c.path[:len(c.path):len(c.path)], k)
	return &nc
}

// Capture returns the document key bound to token on the current path.
func (c *Context) Capture(token string) (string, bool) {
	for b := c.captures; b != nil; b = b.next {
		if b.token == token {
			return b.value, true
		}
	}
	return "", false
}

// Captures returns a copy of all bindings visible on the current path.
func (c *Context) Captures() map[string]string {
	out := map[string]string{}
	for b := c.captures; b != nil; b = b.next {
		if _, shadowed := out[b.token]; !shadowed {
			out[b.token] = b.value
		}
	}
	return out
}

// Path returns a copy of the document keys leading to Value.
func (c *Context) Path() []string { return append([]string(nil), c.path...) }

// Depth is the number of schema levels entered so far.
func (c *Context) Depth() int { return c.depth }

// Pointer renders the document path as a JSON Pointer.
func (c *Context) Pointer() string { return pointer(c.path) }

// SchemaPath renders the names of the schema nodes leading to this context.
func (c *Context) SchemaPath() string { return pointer(c.schemaPath) }

func pointer(parts []string) string {
	if len(parts) == 0 {
		return "/"
	}
	b := &strings.Builder{}
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(eng.EscapePointerToken(p))
	}
	return b.String()
}
