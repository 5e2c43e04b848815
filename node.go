package attrmap

import (
	"encoding/json"
	"errors"
	"sort"
	"time"

	gojson "github.com/goccy/go-json"
)

// NodeKind discriminates the mapping node variants.
type NodeKind int

const (
	KindPass NodeKind = iota
	KindIgnore
	KindField
	KindInline
	KindReference
	KindTranslatable
)

func (k NodeKind) String() string {
	switch k {
	case KindPass:
		return "pass"
	case KindIgnore:
		return "ignore"
	case KindField:
		return "field"
	case KindInline:
		return "inline"
	case KindReference:
		return "reference"
	case KindTranslatable:
		return "translatable"
	default:
		return "unknown"
	}
}

// ResourceField names a top-level scalar of the Record.
type ResourceField int

const (
	FieldID ResourceField = iota + 1
	FieldName
)

func (f ResourceField) String() string {
	switch f {
	case FieldID:
		return "id"
	case FieldName:
		return "name"
	default:
		return "unknown"
	}
}

// ParseResourceField maps "id" and "name" to their ResourceField.
func ParseResourceField(s string) (ResourceField, bool) {
	switch s {
	case "id":
		return FieldID, true
	case "name":
		return FieldName, true
	default:
		return 0, false
	}
}

// Table is one typed output bucket of a Record.
type Table int

const (
	TableString Table = iota + 1
	TableNumber
	TableBoolean
	TableDateTime
	TableReference
)

func (t Table) String() string {
	switch t {
	case TableString:
		return "stringAttributes"
	case TableNumber:
		return "numberAttributes"
	case TableBoolean:
		return "booleanAttributes"
	case TableDateTime:
		return "dateTimeAttributes"
	case TableReference:
		return "referenceStringAttributes"
	default:
		return "unknown"
	}
}

// Entry binds a node to a name in its parent level. The name is a literal
// document key or a capture token such as "{idx}".
type Entry struct {
	Name string
	Node Node
}

// Prop is a shorthand for Entry{Name: name, Node: n}.
func Prop(name string, n Node) Entry { return Entry{Name: name, Node: n} }

// Node is a mapping schema node. Nodes are created with Pass, Ignore, Field,
// String, Number, Boolean, DateTime, Reference and Translatable; the set of
// variants is closed.
type Node interface {
	Kind() NodeKind
	// Children returns the nodes evaluated against the value this node matched.
	Children() []Entry
	check(bound func(token string) bool) []SchemaError
	emit(c *Context, b *builder) error
}

// Attr configures an attribute node. Key is required; empty slots fall back
// to the table's default generators.
type Attr[T any] struct {
	Key      Generator[string]
	Value    Generator[T]
	Info     Generator[any]
	Language Generator[string]
	Children []Entry
}

func (a Attr[T]) withDefaults(value Generator[T]) Attr[T] {
	if a.Value == nil {
		a.Value = value
	}
	if a.Info == nil {
		a.Info = NullInfo
	}
	if a.Language == nil {
		a.Language = NoLanguage
	}
	return a
}

func (a Attr[T]) check(bound func(string) bool) []SchemaError {
	var errs []SchemaError
	if a.Key == nil {
		errs = append(errs, schemaErr("", CodeMissingKey, nil))
	}
	errs = append(errs, checkGen(a.Key, bound)...)
	errs = append(errs, checkGen(a.Value, bound)...)
	errs = append(errs, checkGen(a.Info, bound)...)
	errs = append(errs, checkGen(a.Language, bound)...)
	return errs
}

func checkGen(g any, bound func(string) bool) []SchemaError {
	if sc, ok := g.(staticChecker); ok {
		return sc.checkStatic(bound)
	}
	return nil
}

// ---- pass / ignore ----

// Pass emits nothing and only descends into children.
func Pass(children ...Entry) Node { return passNode{children: children} }

type passNode struct{ children []Entry }

func (passNode) Kind() NodeKind                        { return KindPass }
func (n passNode) Children() []Entry                   { return n.children }
func (passNode) check(func(string) bool) []SchemaError { return nil }
func (passNode) emit(*Context, *builder) error         { return nil }

// Ignore marks a document key as handled without emitting anything or
// descending. A literal Ignore also keeps a sibling capture token from
// matching that key.
func Ignore() Node { return ignoreNode{} }

type ignoreNode struct{}

func (ignoreNode) Kind() NodeKind                        { return KindIgnore }
func (ignoreNode) Children() []Entry                     { return nil }
func (ignoreNode) check(func(string) bool) []SchemaError { return nil }
func (ignoreNode) emit(*Context, *builder) error         { return nil }

// ---- resource field ----

// Field writes the Record's id or name. A nil value generator reads the
// current value as a string.
func Field(f ResourceField, value Generator[string], children ...Entry) Node {
	if value == nil {
		value = StringValue
	}
	return fieldNode{field: f, value: value, children: children}
}

type fieldNode struct {
	field    ResourceField
	value    Generator[string]
	children []Entry
}

func (fieldNode) Kind() NodeKind      { return KindField }
func (n fieldNode) Children() []Entry { return n.children }

func (n fieldNode) check(bound func(string) bool) []SchemaError {
	var errs []SchemaError
	if n.field != FieldID && n.field != FieldName {
		errs = append(errs, schemaErr("", CodeBadField, map[string]string{"name": n.field.String()}))
	}
	return append(errs, checkGen(n.value, bound)...)
}

func (n fieldNode) emit(c *Context, b *builder) error {
	v, err := run(c, RoleValue, n.value)
	if err != nil {
		return err
	}
	b.setField(n.field, v)
	return nil
}

// ---- inline attributes ----

// String maps the matched value into stringAttributes.
func String(a Attr[string]) Node {
	return inlineNode[string]{table: TableString, attr: a.withDefaults(StringValue), put: (*builder).putString}
}

// Number maps the matched value into numberAttributes.
func Number(a Attr[float64]) Node {
	return inlineNode[float64]{table: TableNumber, attr: a.withDefaults(NumberValue), put: (*builder).putNumber}
}

// Boolean maps the matched value into booleanAttributes.
func Boolean(a Attr[bool]) Node {
	return inlineNode[bool]{table: TableBoolean, attr: a.withDefaults(BooleanValue), put: (*builder).putBoolean}
}

// DateTime maps the matched value into dateTimeAttributes. The default value
// generator parses ISO-8601 strings.
func DateTime(a Attr[time.Time]) Node {
	return inlineNode[time.Time]{table: TableDateTime, attr: a.withDefaults(DateTimeValue), put: (*builder).putDateTime}
}

type inlineNode[T any] struct {
	table Table
	attr  Attr[T]
	put   func(*builder, Attribute[T])
}

func (inlineNode[T]) Kind() NodeKind                                { return KindInline }
func (n inlineNode[T]) Children() []Entry                           { return n.attr.Children }
func (n inlineNode[T]) check(bound func(string) bool) []SchemaError { return n.attr.check(bound) }

// Table reports the bucket the node appends to.
func (n inlineNode[T]) Table() Table { return n.table }

func (n inlineNode[T]) emit(c *Context, b *builder) error {
	a, err := generate(c, n.attr)
	if err != nil {
		return err
	}
	n.put(b, a)
	return nil
}

func generate[T any](c *Context, a Attr[T]) (Attribute[T], error) {
	var out Attribute[T]
	var err error
	if out.Key, err = run(c, RoleKey, a.Key); err != nil {
		return out, err
	}
	if out.Value, err = run(c, RoleValue, a.Value); err != nil {
		return out, err
	}
	if out.Info, err = info(c, a.Info); err != nil {
		return out, err
	}
	if out.Language, err = run(c, RoleLanguage, a.Language); err != nil {
		return out, err
	}
	return out, nil
}

// ---- reference attributes ----

// Reference maps the matched value into referenceStringAttributes tagged with
// list, the name of the controlled vocabulary a downstream resolver checks the
// value against. An empty list is rejected when the schema is built.
func Reference(list string, a Attr[string]) Node {
	return referenceNode{list: list, attr: a.withDefaults(StringValue)}
}

type referenceNode struct {
	list string
	attr Attr[string]
}

func (referenceNode) Kind() NodeKind      { return KindReference }
func (n referenceNode) Children() []Entry { return n.attr.Children }

// List returns the reference list name.
func (n referenceNode) List() string { return n.list }

func (n referenceNode) check(bound func(string) bool) []SchemaError {
	var errs []SchemaError
	if n.list == "" {
		errs = append(errs, schemaErr("", CodeMissingList, nil))
	}
	return append(errs, n.attr.check(bound)...)
}

func (n referenceNode) emit(c *Context, b *builder) error {
	a, err := generate(c, n.attr)
	if err != nil {
		return err
	}
	b.putReference(ReferenceAttribute{List: n.list, Key: a.Key, Value: a.Value, Info: a.Info, Language: a.Language})
	return nil
}

// ---- translatable strings ----

// Translatable maps either a plain string or an object of language -> string
// into stringAttributes. Every translation shares the key and info; the
// language tag is the object key, or the Language generator's result for a
// plain string. The Value slot selects the translations and defaults to the
// matched value.
func Translatable(a Attr[any]) Node {
	return translatableNode{attr: a.withDefaults(current[any]{})}
}

type translatableNode struct{ attr Attr[any] }

func (translatableNode) Kind() NodeKind      { return KindTranslatable }
func (n translatableNode) Children() []Entry { return n.attr.Children }

func (n translatableNode) check(bound func(string) bool) []SchemaError {
	return n.attr.check(bound)
}

func (n translatableNode) emit(c *Context, b *builder) error {
	key, err := run(c, RoleKey, n.attr.Key)
	if err != nil {
		return err
	}
	v, err := run(c, RoleValue, n.attr.Value)
	if err != nil {
		return err
	}
	inf, err := info(c, n.attr.Info)
	if err != nil {
		return err
	}
	if m, ok := v.(map[string]any); ok {
		langs := make([]string, 0, len(m))
		for l := range m {
			langs = append(langs, l)
		}
		sort.Strings(langs)
		for _, l := range langs {
			s, err := toString(m[l])
			if err != nil {
				return mappingErr(c.within(l, m[l]), RoleValue, err)
			}
			b.putString(Attribute[string]{Key: key, Value: s, Info: inf, Language: l})
		}
		return nil
	}
	s, err := toString(v)
	if err != nil {
		return mappingErr(c, RoleValue, err)
	}
	lang, err := run(c, RoleLanguage, n.attr.Language)
	if err != nil {
		return err
	}
	b.putString(Attribute[string]{Key: key, Value: s, Info: inf, Language: lang})
	return nil
}

// ---- helpers ----

func run[T any](c *Context, role Role, g Generator[T]) (T, error) {
	v, err := g.Generate(c)
	if err != nil {
		return v, mappingErr(c, role, err)
	}
	return v, nil
}

func info(c *Context, g Generator[any]) (json.RawMessage, error) {
	v, err := run(c, RoleInfo, g)
	if err != nil || v == nil {
		return nil, err
	}
	raw, err := gojson.Marshal(v)
	if err != nil {
		me := mappingErr(c, RoleInfo, err)
		me.Code = CodeInfoEncoding
		return nil, me
	}
	return raw, nil
}

func mappingErr(c *Context, role Role, err error) *MappingError {
	code := CodeGenerator
	var ve *ValueError
	if errors.As(err, &ve) {
		code = ve.Code
	}
	return &MappingError{SchemaPath: c.SchemaPath(), DocumentPath: c.Pointer(), Role: role, Code: code, Cause: err}
}
