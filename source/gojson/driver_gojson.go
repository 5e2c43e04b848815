package gojson

import (
	"bytes"
	"io"
	"strconv"

	j "github.com/goccy/go-json"

	"github.com/reoring/attrmap"
	eng "github.com/reoring/attrmap/internal/engine"
)

// Driver returns an attrmap.JSONDriver backed by goccy/go-json.
func Driver() attrmap.JSONDriver { return driverGoJSON{} }

type driverGoJSON struct{}

func (driverGoJSON) NewReader(r io.Reader) attrmap.Source { return NewReader(r) }
func (driverGoJSON) NewBytes(b []byte) attrmap.Source     { return NewBytes(b) }
func (driverGoJSON) Name() string                         { return "go-json" }

type source struct {
	dec        *j.Decoder
	framer     eng.Framer
	lastOffset int64
}

// NewReader wraps an io.Reader into an engine.TokenSource for JSON using go-json.
func NewReader(r io.Reader) eng.TokenSource {
	dec := j.NewDecoder(r)
	dec.UseNumber()
	return &source{dec: dec, lastOffset: -1}
}

// NewBytes wraps a byte slice into an engine.TokenSource for JSON using go-json.
func NewBytes(b []byte) eng.TokenSource { return NewReader(bytes.NewReader(b)) }

func (s *source) NextToken() (eng.Token, error) {
	tok, err := s.dec.Token()
	if err != nil {
		return eng.Token{}, err
	}
	s.lastOffset = s.dec.InputOffset()

	switch v := tok.(type) {
	case j.Delim:
		return s.framer.Delim(rune(v), s.lastOffset), nil
	case string:
		return s.framer.String(v, s.lastOffset), nil
	case bool:
		return s.framer.Scalar(eng.Token{Kind: eng.KindBool, Bool: v, Offset: s.lastOffset}), nil
	case j.Number:
		return s.framer.Scalar(eng.Token{Kind: eng.KindNumber, Number: string(v), Offset: s.lastOffset}), nil
	case float64:
		return s.framer.Scalar(eng.Token{Kind: eng.KindNumber, Number: strconv.FormatFloat(v, 'g', -1, 64), Offset: s.lastOffset}), nil
	default:
		return s.framer.Scalar(eng.Token{Kind: eng.KindNull, Offset: s.lastOffset}), nil
	}
}

// Location is the decoder's input offset after the last token.
func (s *source) Location() int64 { return s.lastOffset }
