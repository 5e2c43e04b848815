package attrmap

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// Evaluate walks doc with the schema and returns the assembled Record. A
// generator failure aborts the document with a *MappingError; keys the schema
// names but the document lacks are skipped silently, and so are null values
// unless the schema was built with NullVisit.
func (s *Schema) Evaluate(ctx context.Context, doc any) (*Record, error) {
	if s == nil || s.root == nil {
		return nil, errors.New("attrmap: nil schema")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	w := &walker{ctx: ctx, b: newBuilder(), maxDepth: s.opt.MaxDepth, skipNull: s.opt.Nulls == NullSkip}
	if err := w.walk(s.root, rootContext(doc)); err != nil {
		return nil, err
	}
	return w.b.record(), nil
}

type walker struct {
	ctx      context.Context
	b        *builder
	maxDepth int
	skipNull bool
}

func (w *walker) walk(lv *level, parent *Context) error {
	for _, e := range lv.entries {
		if err := w.ctx.Err(); err != nil {
			return err
		}
		if e.token == "" {
			v, ok := lookup(parent.Value, e.name)
			if !ok || (v == nil && w.skipNull) {
				continue
			}
			if err := w.visit(e, parent.child(e.name, e.name, v, "")); err != nil {
				return err
			}
			continue
		}
		for _, k := range ownKeys(parent.Value) {
			if _, claimed := lv.claimed[k]; claimed {
				continue
			}
			v, _ := lookup(parent.Value, k)
			if v == nil && w.skipNull {
				continue
			}
			if err := w.visit(e, parent.child(e.name, k, v, e.token)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *walker) visit(e *compiled, c *Context) (err error) {
	if c.depth > w.maxDepth {
		return &MappingError{SchemaPath: c.SchemaPath(), DocumentPath: c.Pointer(), Code: CodeDepthExceeded}
	}
	defer func() {
		if r := recover(); r != nil {
			err = &MappingError{
				SchemaPath:   c.SchemaPath(),
				DocumentPath: c.Pointer(),
				Code:         CodeGenerator,
				Cause:        fmt.Errorf("panic: %v", r),
			}
		}
	}()
	if err := e.node.emit(c, w.b); err != nil {
		return err
	}
	if e.children == nil {
		return nil
	}
	return w.walk(e.children, c)
}

// ownKeys lists the keys a capture token iterates: sorted object keys, or
// array indexes in order. Scalars have none.
func ownKeys(v any) []string {
	switch x := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys
	case []any:
		keys := make([]string, len(x))
		for i := range x {
			keys[i] = strconv.Itoa(i)
		}
		return keys
	default:
		return nil
	}
}
