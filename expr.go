package attrmap

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// exprEnv is the environment exposed to expression generators.
type exprEnv struct {
	Value    any               `expr:"value"`
	Parent   any               `expr:"parent"`
	Key      string            `expr:"key"`
	Path     []string          `expr:"path"`
	Captures map[string]string `expr:"captures"`
	Root     any               `expr:"root"`

	// capture(token) returns the bound key or "" when token is unbound.
	Capture func(string) string `expr:"capture"`
}

func exprOpts() []expr.Option {
	return []expr.Option{
		expr.Env(exprEnv{}),
		expr.Function("escape", func(params ...any) (any, error) {
			s, ok := params[0].(string)
			if !ok {
				return nil, fmt.Errorf("escape: expected string, got %T", params[0])
			}
			return EscapeKeySegment(s), nil
		},
			new(func(string) string)),
	}
}

// Expr compiles an expression (github.com/expr-lang/expr syntax) into a
// generator. The expression sees value, parent, key, path, captures and root,
// plus the helpers capture(token) and escape(s). Its result is converted to T
// with the same rules as the default generators. Compilation errors surface
// when the schema is built.
func Expr[T any](source string) Generator[T] {
	g := &exprGen[T]{src: source}
	g.prg, g.err = expr.Compile(source, exprOpts()...)
	return g
}

type exprGen[T any] struct {
	src string
	prg *vm.Program
	err error
}

func (g *exprGen[T]) String() string { return g.src }

func (g *exprGen[T]) Generate(c *Context) (T, error) {
	var zero T
	if g.err != nil {
		return zero, g.err
	}
	capture := func(token string) string {
		v, _ := c.Capture(token)
		return v
	}
	out, err := expr.Run(g.prg, exprEnv{
		Value:    c.Value,
		Parent:   c.Parent,
		Key:      c.Key,
		Path:     c.Path(),
		Captures: c.Captures(),
		Root:     c.Root,
		Capture:  capture,
	})
	if err != nil {
		return zero, err
	}
	return convert[T](out)
}

func (g *exprGen[T]) checkStatic(func(string) bool) []SchemaError {
	if g.err == nil {
		return nil
	}
	e := schemaErr("", CodeBadExpr, nil)
	e.Cause = g.err
	return []SchemaError{e}
}
