// Package codec holds the wire <-> value conversions used by attribute tables
// whose values are not plain JSON scalars.
package codec

// Codec converts between the wire representation A found in documents and the
// typed attribute value B.
type Codec[A, B any] interface {
	Decode(a A) (B, error)
	Encode(b B) (A, error)
}
