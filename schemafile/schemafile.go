// Package schemafile loads mapping schemas declared in YAML.
//
//	version: "1"
//	name: partner-directory
//	nodes:
//	  id:   {kind: field, field: id}
//	  phoneNumbers:
//	    children:
//	      "{idx}": {kind: string, key: "phoneNumbers/{idx}", value: value.number}
//	  internalId: {kind: ignore}
//
// key is a key template; value, info and language are expressions evaluated
// with attrmap.Expr. Keys whose value is null are skipped like absent ones;
// set "nulls: visit" to hand them to the generators instead. A node without kind is a pass-through when it has
// children and an ignore placeholder otherwise.
package schemafile

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/reoring/attrmap"
	"github.com/reoring/attrmap/i18n"
)

// File-level schema error codes, reported alongside the attrmap codes.
const (
	CodeBadKind    = "bad_kind"
	CodeBadOption  = "bad_option"
	CodeBadVersion = "bad_version"
	CodeBadNulls   = "bad_nulls"
)

// File is the decoded form of a schema file.
type File struct {
	Version  string  `yaml:"version"`
	Name     string  `yaml:"name"`
	MaxDepth int     `yaml:"maxDepth"`
	Nulls    string  `yaml:"nulls"`
	Nodes    NodeMap `yaml:"nodes"`
}

// NodeSpec declares one mapping node.
type NodeSpec struct {
	Kind     string  `yaml:"kind"`
	Field    string  `yaml:"field"`
	List     string  `yaml:"list"`
	Key      string  `yaml:"key"`
	Value    string  `yaml:"value"`
	Info     string  `yaml:"info"`
	Language string  `yaml:"language"`
	Children NodeMap `yaml:"children"`
}

// NamedNode is a NodeSpec with its name and source line.
type NamedNode struct {
	Name string
	Line int
	Spec NodeSpec
}

// NodeMap is an ordered mapping of node names to specs.
type NodeMap []NamedNode

var nodeKeys = []string{"kind", "field", "list", "key", "value", "info", "language", "children"}

// UnmarshalYAML keeps declaration order and rejects unknown node options.
func (m *NodeMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of nodes", node.Line)
	}
	out := make(NodeMap, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		var spec NodeSpec
		switch v.Kind {
		case yaml.MappingNode:
			for j := 0; j+1 < len(v.Content); j += 2 {
				if opt := v.Content[j].Value; !slices.Contains(nodeKeys, opt) {
					return fmt.Errorf("line %d: node %q: unknown option %q", v.Content[j].Line, k.Value, opt)
				}
			}
			if err := v.Decode(&spec); err != nil {
				return fmt.Errorf("line %d: node %q: %w", v.Line, k.Value, err)
			}
		case yaml.ScalarNode:
			// "name:" with no body is a placeholder
			if v.Tag != "!!null" {
				return fmt.Errorf("line %d: node %q: expected a mapping", v.Line, k.Value)
			}
		default:
			return fmt.Errorf("line %d: node %q: expected a mapping", v.Line, k.Value)
		}
		out = append(out, NamedNode{Name: k.Value, Line: k.Line, Spec: spec})
	}
	*m = out
	return nil
}

// Load reads and compiles the schema file at path.
func Load(path string) (*attrmap.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and compiles a schema file.
func Parse(data []byte) (*attrmap.Schema, error) {
	f, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return f.Compile()
}

// Decode parses YAML into a File without compiling it.
func Decode(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse schema YAML: %w", err)
	}
	if f.Version == "" {
		f.Version = "1"
	}
	return &f, nil
}

// Compile converts the file into an attrmap.Schema. File-level problems and
// schema construction problems are both returned as attrmap.SchemaErrors.
func (f *File) Compile() (*attrmap.Schema, error) {
	c := &compiler{}
	if f.Version != "1" {
		c.fail("/", 0, CodeBadVersion, map[string]string{"name": f.Version})
	}
	nulls, ok := attrmap.ParseNullPolicy(f.Nulls)
	if !ok {
		c.fail("/", 0, CodeBadNulls, map[string]string{"name": f.Nulls})
	}
	entries := c.entries(f.Nodes, "")
	if len(c.errs) > 0 {
		return nil, c.errs
	}
	return attrmap.NewSchema(f.Name, entries, attrmap.Options{MaxDepth: f.MaxDepth, Nulls: nulls})
}

type compiler struct {
	errs attrmap.SchemaErrors
}

func (c *compiler) fail(path string, line int, code string, data map[string]string) {
	e := attrmap.SchemaError{Path: path, Code: code, Message: i18n.T(code, data)}
	if line > 0 {
		e.Cause = fmt.Errorf("line %d", line)
	}
	c.errs = append(c.errs, e)
}

func (c *compiler) entries(nodes NodeMap, parent string) []attrmap.Entry {
	out := make([]attrmap.Entry, 0, len(nodes))
	for _, n := range nodes {
		path := parent + "/" + attrmap.EscapeKeySegment(n.Name)
		if node := c.node(n, path); node != nil {
			out = append(out, attrmap.Prop(n.Name, node))
		}
	}
	return out
}

// options lists which NodeSpec options each kind accepts.
var options = map[string][]string{
	"field":        {"field", "value", "children"},
	"string":       {"key", "value", "info", "language", "children"},
	"number":       {"key", "value", "info", "language", "children"},
	"boolean":      {"key", "value", "info", "language", "children"},
	"datetime":     {"key", "value", "info", "language", "children"},
	"translatable": {"key", "value", "info", "language", "children"},
	"reference":    {"list", "key", "value", "info", "language", "children"},
	"pass":         {"children"},
	"ignore":       {},
}

func (c *compiler) node(n NamedNode, path string) attrmap.Node {
	s := n.Spec
	kind := s.Kind
	if kind == "" {
		kind = "ignore"
		if len(s.Children) > 0 {
			kind = "pass"
		}
	}
	allowed, ok := options[kind]
	if !ok {
		c.fail(path, n.Line, CodeBadKind, map[string]string{"name": kind})
		return nil
	}
	for _, opt := range s.set() {
		if !slices.Contains(allowed, opt) {
			c.fail(path, n.Line, CodeBadOption, map[string]string{"name": opt, "kind": kind})
		}
	}
	children := c.entries(s.Children, path)

	switch kind {
	case "field":
		f, ok := attrmap.ParseResourceField(s.Field)
		if !ok {
			c.fail(path, n.Line, attrmap.CodeBadField, map[string]string{"name": s.Field})
			return nil
		}
		return attrmap.Field(f, expr[string](s.Value), children...)
	case "string":
		return attrmap.String(attr[string](s, children))
	case "number":
		return attrmap.Number(attr[float64](s, children))
	case "boolean":
		return attrmap.Boolean(attr[bool](s, children))
	case "datetime":
		return attrmap.DateTime(attr[time.Time](s, children))
	case "translatable":
		return attrmap.Translatable(attr[any](s, children))
	case "reference":
		return attrmap.Reference(s.List, attr[string](s, children))
	case "pass":
		return attrmap.Pass(children...)
	default:
		return attrmap.Ignore()
	}
}

// set returns the options present on the node, excluding kind.
func (s NodeSpec) set() []string {
	var out []string
	for _, o := range []struct {
		name string
		on   bool
	}{
		{"field", s.Field != ""},
		{"list", s.List != ""},
		{"key", s.Key != ""},
		{"value", s.Value != ""},
		{"info", s.Info != ""},
		{"language", s.Language != ""},
		{"children", len(s.Children) > 0},
	} {
		if o.on {
			out = append(out, o.name)
		}
	}
	return out
}

func attr[T any](s NodeSpec, children []attrmap.Entry) attrmap.Attr[T] {
	a := attrmap.Attr[T]{
		Value:    expr[T](s.Value),
		Info:     expr[any](s.Info),
		Language: expr[string](s.Language),
		Children: children,
	}
	if s.Key != "" {
		a.Key = attrmap.Template(s.Key)
	}
	return a
}

// expr returns nil for an empty source so the node falls back to its default.
func expr[T any](src string) attrmap.Generator[T] {
	if src == "" {
		return nil
	}
	return attrmap.Expr[T](src)
}
