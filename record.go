package attrmap

import (
	"encoding/json"
	"time"
)

// Record is the normalized form of one partner document.
type Record struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Attributes Attributes `json:"attributes"`
}

// Attributes holds one slice per typed table, in traversal order.
type Attributes struct {
	StringAttributes          []TranslatableAttribute `json:"stringAttributes"`
	NumberAttributes          []Attribute[float64]    `json:"numberAttributes"`
	BooleanAttributes         []Attribute[bool]       `json:"booleanAttributes"`
	DateTimeAttributes        []Attribute[time.Time]  `json:"dateTimeAttributes"`
	ReferenceStringAttributes []ReferenceAttribute    `json:"referenceStringAttributes"`
}

// Attribute is one (key, value, info, language) row. Info is raw JSON, nil
// when the info generator yields null.
type Attribute[T any] struct {
	Key      string          `json:"key"`
	Value    T               `json:"value"`
	Info     json.RawMessage `json:"info"`
	Language string          `json:"language"`
}

// TranslatableAttribute is a string attribute whose language tag may be set.
type TranslatableAttribute = Attribute[string]

// ReferenceAttribute is a string attribute whose value is a key into the
// controlled vocabulary named by List.
type ReferenceAttribute struct {
	List     string          `json:"list"`
	Key      string          `json:"key"`
	Value    string          `json:"value"`
	Info     json.RawMessage `json:"info"`
	Language string          `json:"language"`
}

// Len returns the number of attributes across every table.
func (r *Record) Len() int {
	a := r.Attributes
	return len(a.StringAttributes) + len(a.NumberAttributes) + len(a.BooleanAttributes) +
		len(a.DateTimeAttributes) + len(a.ReferenceStringAttributes)
}

// AttributeRef identifies an attribute by its downstream uniqueness key.
type AttributeRef struct {
	Table    Table
	Key      string
	Language string
}

// Duplicates lists every (table, key, language) that occurs more than once,
// in order of first repetition. The record itself is left untouched: uniqueness
// is enforced by the storage layer.
func (r *Record) Duplicates() []AttributeRef {
	seen := map[AttributeRef]int{}
	var out []AttributeRef
	note := func(ref AttributeRef) {
		seen[ref]++
		if seen[ref] == 2 {
			out = append(out, ref)
		}
	}
	a := r.Attributes
	for _, x := range a.StringAttributes {
		note(AttributeRef{TableString, x.Key, x.Language})
	}
	for _, x := range a.NumberAttributes {
		note(AttributeRef{TableNumber, x.Key, x.Language})
	}
	for _, x := range a.BooleanAttributes {
		note(AttributeRef{TableBoolean, x.Key, x.Language})
	}
	for _, x := range a.DateTimeAttributes {
		note(AttributeRef{TableDateTime, x.Key, x.Language})
	}
	for _, x := range a.ReferenceStringAttributes {
		note(AttributeRef{TableReference, x.Key, x.Language})
	}
	return out
}

// builder accumulates one Record during a walk.
type builder struct{ rec Record }

func newBuilder() *builder {
	return &builder{rec: Record{Attributes: Attributes{
		StringAttributes:          []TranslatableAttribute{},
		NumberAttributes:          []Attribute[float64]{},
		BooleanAttributes:         []Attribute[bool]{},
		DateTimeAttributes:        []Attribute[time.Time]{},
		ReferenceStringAttributes: []ReferenceAttribute{},
	}}}
}

func (b *builder) setField(f ResourceField, v string) {
	switch f {
	case FieldID:
		b.rec.ID = v
	case FieldName:
		b.rec.Name = v
	}
}

func (b *builder) putString(a Attribute[string]) {
	b.rec.Attributes.StringAttributes = append(b.rec.Attributes.StringAttributes, a)
}

func (b *builder) putNumber(a Attribute[float64]) {
	b.rec.Attributes.NumberAttributes = append(b.rec.Attributes.NumberAttributes, a)
}

func (b *builder) putBoolean(a Attribute[bool]) {
	b.rec.Attributes.BooleanAttributes = append(b.rec.Attributes.BooleanAttributes, a)
}

func (b *builder) putDateTime(a Attribute[time.Time]) {
	b.rec.Attributes.DateTimeAttributes = append(b.rec.Attributes.DateTimeAttributes, a)
}

func (b *builder) putReference(a ReferenceAttribute) {
	b.rec.Attributes.ReferenceStringAttributes = append(b.rec.Attributes.ReferenceStringAttributes, a)
}

func (b *builder) record() *Record {
	r := b.rec
	return &r
}
