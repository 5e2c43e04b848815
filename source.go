package attrmap

import (
	"context"
	"errors"
	"io"
	"sync"

	eng "github.com/reoring/attrmap/internal/engine"
	jsonsrc "github.com/reoring/attrmap/source/json"
)

// Token is one JSON token produced by a Source.
type Token = eng.Token

// Source abstracts over JSON token streams. Location returns the byte offset
// of the last token, or -1 when the driver cannot tell.
type Source = eng.TokenSource

// JSONDriver converts JSON input into a Source via a pluggable SPI. The default
// implementation is based on encoding/json and may be swapped with SetJSONDriver.
type JSONDriver interface {
	NewReader(r io.Reader) Source
	NewBytes(b []byte) Source
	Name() string
}

var (
	jsonDriverMu      sync.RWMutex
	currentJSONDriver JSONDriver = defaultJSONDriver{}
)

// SetJSONDriver replaces the global JSON driver; nil values are ignored.
func SetJSONDriver(d JSONDriver) {
	if d == nil {
		return
	}
	jsonDriverMu.Lock()
	currentJSONDriver = d
	jsonDriverMu.Unlock()
}

// UseDefaultJSONDriver restores the default encoding/json-backed driver.
func UseDefaultJSONDriver() {
	jsonDriverMu.Lock()
	currentJSONDriver = defaultJSONDriver{}
	jsonDriverMu.Unlock()
}

// CurrentJSONDriver returns the driver used by JSONReader and JSONBytes.
func CurrentJSONDriver() JSONDriver {
	jsonDriverMu.RLock()
	d := currentJSONDriver
	jsonDriverMu.RUnlock()
	return d
}

type defaultJSONDriver struct{}

func (defaultJSONDriver) NewReader(r io.Reader) Source { return jsonsrc.NewReader(r) }
func (defaultJSONDriver) NewBytes(b []byte) Source     { return jsonsrc.NewBytes(b) }
func (defaultJSONDriver) Name() string                 { return "encoding/json" }

// JSONReader wraps an io.Reader as a JSON Source.
func JSONReader(r io.Reader) Source { return CurrentJSONDriver().NewReader(r) }

// JSONBytes wraps a byte slice as a JSON Source.
func JSONBytes(b []byte) Source { return CurrentJSONDriver().NewBytes(b) }

// DuplicatePolicy selects how repeated object keys in a raw document are
// handled. The decoded object always keeps the last occurrence.
type DuplicatePolicy int

const (
	DuplicateIgnore DuplicatePolicy = iota
	DuplicateWarn
	DuplicateError
)

// ParseDuplicatePolicy maps "ignore", "warn" and "error".
func ParseDuplicatePolicy(s string) (DuplicatePolicy, bool) {
	switch s {
	case "ignore", "":
		return DuplicateIgnore, true
	case "warn":
		return DuplicateWarn, true
	case "error":
		return DuplicateError, true
	default:
		return 0, false
	}
}

// NumberMode controls how JSON numbers appear in the decoded document.
type NumberMode int

const (
	// NumberJSONNumber keeps the literal text as json.Number.
	NumberJSONNumber NumberMode = iota
	// NumberFloat64 decodes numbers eagerly as float64.
	NumberFloat64
)

// DecodeOpt bounds what a raw document may contain.
type DecodeOpt struct {
	OnDuplicate DuplicatePolicy
	// MaxDepth caps container nesting; 0 disables the check.
	MaxDepth int
	// MaxBytes caps consumed input; 0 disables the check. Drivers that do not
	// report Location cannot enforce it.
	MaxBytes   int64
	NumberMode NumberMode
	// Warn receives duplicate keys under DuplicateWarn.
	Warn func(DecodeError)
}

// DecodeDocument reads exactly one JSON value from src into the document model
// (map[string]any, []any, json.Number or float64, string, bool, nil).
func DecodeDocument(src Source, opt DecodeOpt) (any, error) {
	lim := eng.Limits{
		OnDuplicate: toEngineDup(opt.OnDuplicate),
		MaxDepth:    opt.MaxDepth,
		MaxBytes:    opt.MaxBytes,
	}
	if opt.Warn != nil {
		lim.Warn = func(si eng.SimpleIssue) {
			opt.Warn(DecodeError{Path: si.Path, Code: si.Code, Message: si.Message})
		}
	}
	conv := eng.JSONNumber
	if opt.NumberMode == NumberFloat64 {
		conv = eng.Float64
	}
	doc, err := eng.DecodeDocument(eng.Enforce(src, lim), conv)
	if err != nil {
		return nil, toDecodeError(err)
	}
	return doc, nil
}

// EvaluateFrom decodes one document from src and evaluates s against it.
func EvaluateFrom(ctx context.Context, s *Schema, src Source, opt DecodeOpt) (*Record, error) {
	doc, err := DecodeDocument(src, opt)
	if err != nil {
		return nil, err
	}
	return s.Evaluate(ctx, doc)
}

func toEngineDup(p DuplicatePolicy) eng.DuplicateStrictness {
	switch p {
	case DuplicateWarn:
		return eng.DupWarn
	case DuplicateError:
		return eng.DupError
	default:
		return eng.DupIgnore
	}
}

func toDecodeError(err error) *DecodeError {
	var ie eng.IssueError
	if errors.As(err, &ie) {
		return &DecodeError{Path: ie.Path, Code: ie.Code, Message: ie.Message, Cause: err}
	}
	return &DecodeError{Path: "/", Code: CodeParseError, Message: err.Error(), Cause: err}
}
