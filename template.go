package attrmap

import (
	"fmt"
	"strings"

	eng "github.com/reoring/attrmap/internal/engine"
)

// KeySeparator splits hierarchical attribute keys such as phoneNumbers/main.
const KeySeparator = "/"

var keyUnescaper = strings.NewReplacer("~1", "/", "~0", "~")

// EscapeKeySegment escapes a document-derived key segment so that it never
// introduces a KeySeparator ("~" -> "~0", "/" -> "~1", as in RFC 6901).
func EscapeKeySegment(s string) string { return eng.EscapePointerToken(s) }

// UnescapeKeySegment reverses EscapeKeySegment.
func UnescapeKeySegment(s string) string { return keyUnescaper.Replace(s) }

// SplitKey splits an attribute key into its unescaped segments.
func SplitKey(key string) []string {
	parts := strings.Split(key, KeySeparator)
	for i, p := range parts {
		parts[i] = UnescapeKeySegment(p)
	}
	return parts
}

// JoinKey escapes and joins segments into an attribute key.
func JoinKey(segments ...string) string {
	esc := make([]string, len(segments))
	for i, s := range segments {
		esc[i] = EscapeKeySegment(s)
	}
	return strings.Join(esc, KeySeparator)
}

// Template returns a key generator for patterns like "phoneNumbers/{idx}".
// Each {token} is replaced with the escaped document key captured under that
// token; everything else is copied verbatim. Malformed patterns and tokens that
// no enclosing node captures are reported when the schema is built.
func Template(pattern string) Generator[string] {
	t := &keyTemplate{raw: pattern}
	t.parts, t.err = parseTemplate(pattern)
	return t
}

type templatePart struct {
	text  string
	token bool
}

type keyTemplate struct {
	raw   string
	parts []templatePart
	err   error
}

func (t *keyTemplate) String() string { return t.raw }

func (t *keyTemplate) Generate(c *Context) (string, error) {
	if t.err != nil {
		return "", t.err
	}
	b := &strings.Builder{}
	for _, p := range t.parts {
		if !p.token {
			b.WriteString(p.text)
			continue
		}
		v, ok := c.Capture(p.text)
		if !ok {
			return "", fmt.Errorf("token %q is not bound", p.text)
		}
		b.WriteString(EscapeKeySegment(v))
	}
	return b.String(), nil
}

func (t *keyTemplate) checkStatic(bound func(string) bool) []SchemaError {
	if t.err != nil {
		e := schemaErr("", CodeBadTemplate, nil)
		e.Cause = t.err
		return []SchemaError{e}
	}
	var errs []SchemaError
	for _, p := range t.parts {
		if p.token && !bound(p.text) {
			errs = append(errs, schemaErr("", CodeUnboundToken, map[string]string{"token": p.text}))
		}
	}
	return errs
}

func parseTemplate(s string) ([]templatePart, error) {
	if s == "" {
		return nil, fmt.Errorf("empty template")
	}
	var parts []templatePart
	for len(s) > 0 {
		open := strings.IndexByte(s, '{')
		if cl := strings.IndexByte(s, '}'); cl >= 0 && (open < 0 || cl < open) {
			return nil, fmt.Errorf("template %q: unexpected '}'", s)
		}
		if open < 0 {
			parts = append(parts, templatePart{text: s})
			break
		}
		if open > 0 {
			parts = append(parts, templatePart{text: s[:open]})
		}
		end := strings.IndexByte(s[open:], '}')
		if end < 0 {
			return nil, fmt.Errorf("template %q: unterminated '{'", s)
		}
		name := s[open+1 : open+end]
		if !validToken(name) {
			return nil, fmt.Errorf("template %q: invalid token name %q", s, name)
		}
		parts = append(parts, templatePart{text: name, token: true})
		s = s[open+end+1:]
	}
	return parts, nil
}

// captureToken reports whether a node name is a capture token and returns the
// token name. ok is false for literal names; valid is false for names that look
// like tokens but are malformed.
func captureToken(name string) (token string, ok, valid bool) {
	if len(name) < 2 || name[0] != '{' || name[len(name)-1] != '}' {
		return "", false, true
	}
	token = name[1 : len(name)-1]
	return token, true, validToken(token)
}

func validToken(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
