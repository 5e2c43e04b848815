package attrmap

import (
	"time"

	"github.com/reoring/attrmap/jsonschema"
)

// JSONSchema describes the input documents the schema reads: literal names
// become properties and a capture token becomes additionalProperties. Node
// types are derived from the target table when the default value generator is
// used; custom generators leave the type open. String targets accept any
// scalar, since numbers and booleans are stringified.
func (s *Schema) JSONSchema() *jsonschema.Schema {
	out := projectLevel(s.root)
	out.Schema = jsonschema.Draft
	out.Title = s.name
	return out
}

func projectLevel(lv *level) *jsonschema.Schema {
	out := &jsonschema.Schema{}
	for _, e := range lv.entries {
		p := projectEntry(e)
		if e.token == "" {
			out.Property(e.name, p)
			continue
		}
		p.Description = "{" + e.token + "}"
		out.AdditionalProperties = p
	}
	// captures also iterate arrays, so only pure literal levels are pinned to object
	if out.AdditionalProperties == nil {
		out.Type = "object"
	}
	return out
}

func projectEntry(e *compiled) *jsonschema.Schema {
	out := &jsonschema.Schema{}
	if sh, ok := e.node.(shaper); ok {
		out = sh.shape()
	}
	if e.children == nil {
		return out
	}
	kids := projectLevel(e.children)
	if !out.Typed() {
		return kids
	}
	// properties only constrain objects, so they sit beside the node's own type
	out.Properties, out.AdditionalProperties = kids.Properties, kids.AdditionalProperties
	return out
}

// shaper is implemented by nodes that know the JSON type of their value.
type shaper interface {
	shape() *jsonschema.Schema
}

func (n fieldNode) shape() *jsonschema.Schema {
	if isDefault(n.value) {
		return jsonschema.Scalar()
	}
	return &jsonschema.Schema{}
}

func (n inlineNode[T]) shape() *jsonschema.Schema {
	if !isDefault(n.attr.Value) {
		return &jsonschema.Schema{}
	}
	var zero T
	switch any(zero).(type) {
	case string:
		return jsonschema.Scalar()
	case float64:
		return &jsonschema.Schema{Type: "number"}
	case bool:
		return &jsonschema.Schema{Type: "boolean"}
	case time.Time:
		return &jsonschema.Schema{Type: "string", Format: "date-time"}
	}
	return &jsonschema.Schema{}
}

func (n referenceNode) shape() *jsonschema.Schema {
	if isDefault(n.attr.Value) {
		out := jsonschema.Scalar()
		out.Description = "reference list " + n.list
		return out
	}
	return &jsonschema.Schema{}
}

func (n translatableNode) shape() *jsonschema.Schema {
	if !isDefault(n.attr.Value) {
		return &jsonschema.Schema{}
	}
	return &jsonschema.Schema{OneOf: []*jsonschema.Schema{
		jsonschema.Scalar(),
		{Type: "object", AdditionalProperties: jsonschema.Scalar()},
	}}
}

func isDefault(g any) bool {
	_, ok := g.(interface{ isCurrent() })
	return ok
}
