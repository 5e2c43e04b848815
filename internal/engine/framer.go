package engine

// Framer turns the delimiter/scalar stream of a Token()-style JSON decoder into
// engine tokens. Such decoders report object keys as plain strings, so the
// framer remembers whether the enclosing object expects a key next.
type Framer struct {
	stack []framerState
}

type framerState struct {
	object       bool
	expectingKey bool
}

// Delim converts one of '{', '}', '[', ']'.
func (f *Framer) Delim(d rune, offset int64) Token {
	switch d {
	case '{':
		f.stack = append(f.stack, framerState{object: true, expectingKey: true})
		return Token{Kind: KindBeginObject, Offset: offset}
	case '[':
		f.stack = append(f.stack, framerState{})
		return Token{Kind: KindBeginArray, Offset: offset}
	case '}':
		f.pop()
		return Token{Kind: KindEndObject, Offset: offset}
	default:
		f.pop()
		return Token{Kind: KindEndArray, Offset: offset}
	}
}

// String converts a string that is either an object key or a string value.
func (f *Framer) String(s string, offset int64) Token {
	if n := len(f.stack); n > 0 && f.stack[n-1].object && f.stack[n-1].expectingKey {
		f.stack[n-1].expectingKey = false
		return Token{Kind: KindKey, String: s, Offset: offset}
	}
	f.valueDone()
	return Token{Kind: KindString, String: s, Offset: offset}
}

// Scalar records a number, bool or null value token.
func (f *Framer) Scalar(tok Token) Token {
	f.valueDone()
	return tok
}

func (f *Framer) pop() {
	if n := len(f.stack); n > 0 {
		f.stack = f.stack[:n-1]
	}
	// a closed container completes the value of its parent key
	f.valueDone()
}

func (f *Framer) valueDone() {
	if n := len(f.stack); n > 0 && f.stack[n-1].object {
		f.stack[n-1].expectingKey = true
	}
}
