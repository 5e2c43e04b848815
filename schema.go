package attrmap

import (
	"slices"
	"strconv"
)

// DefaultMaxDepth bounds schema nesting when Options.MaxDepth is zero.
const DefaultMaxDepth = 32

// NullPolicy selects how the walker treats document keys whose value is null.
type NullPolicy int

const (
	// NullSkip treats a null value like an absent key.
	NullSkip NullPolicy = iota
	// NullVisit evaluates the node with a nil Value; default generators then
	// fail with invalid_type.
	NullVisit
)

// ParseNullPolicy maps "skip" and "visit".
func ParseNullPolicy(s string) (NullPolicy, bool) {
	switch s {
	case "skip", "":
		return NullSkip, true
	case "visit":
		return NullVisit, true
	default:
		return 0, false
	}
}

// Options tunes schema compilation.
type Options struct {
	// MaxDepth is the deepest allowed nesting of schema levels. Schemas that
	// nest further are rejected with too_deep.
	MaxDepth int
	Nulls    NullPolicy
}

func (o Options) withDefaults() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	return o
}

// Schema is a compiled, read-only mapping schema. It is safe for concurrent
// use by multiple goroutines.
type Schema struct {
	name  string
	opt   Options
	root  *level
	depth int
}

// level is one compiled mapping in declaration order. At most one entry is a
// capture.
type level struct {
	entries []*compiled
	// claimed holds the literal names a capture sibling must skip.
	claimed map[string]struct{}
}

type compiled struct {
	name     string
	token    string // capture token; empty for literal names
	node     Node
	children *level
}

// NewSchema validates root and compiles it. Every problem found is returned
// together as SchemaErrors; on error no schema is returned.
func NewSchema(name string, root []Entry, opts ...Options) (*Schema, error) {
	var opt Options
	if len(opts) > 0 {
		opt = opts[0]
	}
	opt = opt.withDefaults()
	c := &compiler{opt: opt}
	lv := c.level(root, nil, nil, 1)
	if len(c.errs) > 0 {
		return nil, c.errs
	}
	return &Schema{name: name, opt: opt, root: lv, depth: c.deepest}, nil
}

// MustSchema is like NewSchema but panics on error. It is meant for schemas
// defined in package-level variables.
func MustSchema(name string, root []Entry, opts ...Options) *Schema {
	s, err := NewSchema(name, root, opts...)
	if err != nil {
		panic("attrmap: schema " + name + ": " + err.Error())
	}
	return s
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// Depth returns the deepest level of the schema.
func (s *Schema) Depth() int { return s.depth }

// MaxDepth returns the configured nesting bound.
func (s *Schema) MaxDepth() int { return s.opt.MaxDepth }

type compiler struct {
	opt     Options
	errs    SchemaErrors
	deepest int
}

func (c *compiler) fail(path []string, e SchemaError) {
	e.Path = pointer(path)
	c.errs = append(c.errs, e)
}

func (c *compiler) level(entries []Entry, path, bound []string, depth int) *level {
	if depth > c.deepest {
		c.deepest = depth
	}
	lv := &level{claimed: map[string]struct{}{}}
	seen := map[string]bool{}
	captures := 0
	for _, e := range entries {
		p := append(path[:len(path):len(path)], e.Name)
		if e.Name == "" {
			c.fail(p, schemaErr("", CodeEmptyName, nil))
			continue
		}
		if seen[e.Name] {
			c.fail(p, schemaErr("", CodeDuplicateName, map[string]string{"name": e.Name}))
			continue
		}
		seen[e.Name] = true
		if e.Node == nil {
			c.fail(p, schemaErr("", CodeNilNode, nil))
			continue
		}
		token, isCapture, valid := captureToken(e.Name)
		if !valid {
			c.fail(p, schemaErr("", CodeBadToken, map[string]string{"name": e.Name}))
			continue
		}
		scope := bound
		if isCapture {
			captures++
			if captures > 1 {
				c.fail(p, schemaErr("", CodeMultipleCaptures, nil))
				continue
			}
			scope = append(bound[:len(bound):len(bound)], token)
		} else {
			lv.claimed[e.Name] = struct{}{}
		}
		isBound := func(t string) bool { return slices.Contains(scope, t) }
		for _, se := range e.Node.check(isBound) {
			c.fail(p, se)
		}
		ce := &compiled{name: e.Name, token: token, node: e.Node}
		if kids := e.Node.Children(); len(kids) > 0 {
			if depth+1 > c.opt.MaxDepth {
				c.fail(p, schemaErr("", CodeTooDeep, map[string]string{"max": strconv.Itoa(c.opt.MaxDepth)}))
			} else {
				ce.children = c.level(kids, p, scope, depth+1)
			}
		}
		lv.entries = append(lv.entries, ce)
	}
	return lv
}
