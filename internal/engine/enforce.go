package engine

import (
	"strconv"
	"strings"
)

// DuplicateStrictness controls how repeated object keys are treated.
type DuplicateStrictness int

const (
	DupIgnore DuplicateStrictness = iota
	DupWarn
	DupError
)

// Limits bounds what a single partner document may contain before it is handed
// to a mapping schema.
type Limits struct {
	OnDuplicate DuplicateStrictness
	// MaxDepth caps container nesting; 0 disables the check.
	MaxDepth int
	// MaxBytes caps consumed input; 0 disables the check. Only sources that
	// report Location can enforce it.
	MaxBytes int64
	// Warn receives non-fatal issues (duplicate keys under DupWarn).
	Warn func(SimpleIssue)
}

// SimpleIssue is a minimal issue representation used by the engine.
type SimpleIssue struct {
	Code    string
	Path    string
	Message string
}

// IssueError is a lightweight error carrying a SimpleIssue.
type IssueError struct{ SimpleIssue }

func (e IssueError) Error() string { return e.Message + " at " + e.Path }

type containerKind int

const (
	kindObject containerKind = iota
	kindArray
)

type frame struct {
	kind      containerKind
	path      string
	keys      map[string]struct{}
	key       string // last key read in an object
	nextIndex int
}

// Enforce returns a TokenSource that applies lim while tokens are read.
func Enforce(inner TokenSource, lim Limits) TokenSource {
	if lim.OnDuplicate == DupIgnore && lim.MaxDepth <= 0 && lim.MaxBytes <= 0 {
		return inner
	}
	return &enforcer{inner: inner, lim: lim}
}

type enforcer struct {
	inner TokenSource
	lim   Limits
	stack []frame
}

func (e *enforcer) Location() int64 { return e.inner.Location() }

func (e *enforcer) NextToken() (Token, error) {
	tok, err := e.inner.NextToken()
	if err != nil {
		return Token{}, err
	}
	switch tok.Kind {
	case KindBeginObject, KindBeginArray:
		p := e.valuePath()
		f := frame{kind: kindArray, path: p}
		if tok.Kind == KindBeginObject {
			f.kind = kindObject
			if e.lim.OnDuplicate != DupIgnore {
				f.keys = make(map[string]struct{})
			}
		}
		e.stack = append(e.stack, f)
		if e.lim.MaxDepth > 0 && len(e.stack) > e.lim.MaxDepth {
			return Token{}, e.fail("depth_exceeded", pointerOrRoot(p), "max depth exceeded")
		}
	case KindEndObject, KindEndArray:
		if n := len(e.stack); n > 0 {
			e.stack = e.stack[:n-1]
		}
	case KindKey:
		if n := len(e.stack); n > 0 && e.stack[n-1].kind == kindObject {
			top := &e.stack[n-1]
			top.key = tok.String
			if top.keys != nil {
				if _, dup := top.keys[tok.String]; dup {
					si := SimpleIssue{Code: "duplicate_key", Path: JoinPointer(top.path, tok.String), Message: "key '" + tok.String + "' duplicated"}
					if e.lim.OnDuplicate == DupError {
						return Token{}, IssueError{si}
					}
					if e.lim.Warn != nil {
						e.lim.Warn(si)
					}
				}
				top.keys[tok.String] = struct{}{}
			}
		}
	default:
		e.valuePath()
	}
	if e.lim.MaxBytes > 0 {
		if off := e.inner.Location(); off > e.lim.MaxBytes {
			return Token{}, e.fail("truncated", "/", "max bytes exceeded")
		}
	}
	return tok, nil
}

// valuePath returns the pointer of the value about to be read and advances
// array indexes.
func (e *enforcer) valuePath() string {
	n := len(e.stack)
	if n == 0 {
		return ""
	}
	top := &e.stack[n-1]
	if top.kind == kindArray {
		p := JoinPointer(top.path, strconv.Itoa(top.nextIndex))
		top.nextIndex++
		return p
	}
	return JoinPointer(top.path, top.key)
}

func (e *enforcer) fail(code, path, msg string) error {
	return IssueError{SimpleIssue{Code: code, Path: path, Message: msg}}
}

func pointerOrRoot(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// EscapePointerToken escapes one RFC 6901 reference token.
func EscapePointerToken(s string) string { return pointerEscaper.Replace(s) }

// JoinPointer appends token to a JSON Pointer.
func JoinPointer(base, token string) string {
	return base + "/" + EscapePointerToken(token)
}
