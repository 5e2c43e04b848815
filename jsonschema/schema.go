package jsonschema

// Schema is the subset of JSON Schema needed to describe the documents a
// mapping schema reads.
type Schema struct {
	Schema      string `json:"$schema,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	// Core
	Type   string `json:"type,omitempty"`
	Format string `json:"format,omitempty"`

	// Object
	Properties           map[string]*Schema `json:"properties,omitempty"`
	AdditionalProperties *Schema            `json:"additionalProperties,omitempty"`

	// Union
	OneOf []*Schema `json:"oneOf,omitempty"`
	AnyOf []*Schema `json:"anyOf,omitempty"`
}

// Draft is the dialect URI written into root schemas.
const Draft = "https://json-schema.org/draft/2020-12/schema"

// Object returns an object schema with an empty property map.
func Object() *Schema {
	return &Schema{Type: "object", Properties: map[string]*Schema{}}
}

// Scalar accepts any JSON string, number or boolean.
func Scalar() *Schema {
	return &Schema{AnyOf: []*Schema{{Type: "string"}, {Type: "number"}, {Type: "boolean"}}}
}

// Typed reports whether s constrains the value's JSON type.
func (s *Schema) Typed() bool {
	return s.Type != "" || len(s.OneOf) > 0 || len(s.AnyOf) > 0
}

// Property sets a named property, allocating the map when needed.
func (s *Schema) Property(name string, p *Schema) {
	if s.Properties == nil {
		s.Properties = map[string]*Schema{}
	}
	s.Properties[name] = p
}
