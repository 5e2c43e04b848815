package attrmap

import "context"

// ReferenceResolver checks a reference attribute value against the controlled
// vocabulary named list and returns its canonical key. The engine never calls
// it; storage layers do after evaluation.
type ReferenceResolver interface {
	Resolve(ctx context.Context, list, value string) (string, error)
}

// RecordSink receives finished records, typically to upsert them into SQL
// tables or a search index.
type RecordSink interface {
	Put(ctx context.Context, r *Record) error
}

// RecordSinkFunc adapts a function to RecordSink.
type RecordSinkFunc func(ctx context.Context, r *Record) error

func (f RecordSinkFunc) Put(ctx context.Context, r *Record) error { return f(ctx, r) }
