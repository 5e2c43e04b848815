package attrmap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reoring/attrmap/i18n"
)

// Schema construction codes.
const (
	CodeNilNode          = "nil_node"
	CodeEmptyName        = "empty_name"
	CodeBadToken         = "bad_token"
	CodeDuplicateName    = "duplicate_name"
	CodeMultipleCaptures = "multiple_captures"
	CodeMissingList      = "missing_list"
	CodeMissingKey       = "missing_key"
	CodeBadTemplate      = "bad_template"
	CodeUnboundToken     = "unbound_token"
	CodeBadExpr          = "bad_expr"
	CodeTooDeep          = "too_deep"
	CodeBadField         = "bad_field"
)

// Evaluation codes.
const (
	CodeInvalidType   = "invalid_type"
	CodeInvalidFormat = "invalid_format"
	CodeGenerator     = "generator_error"
	CodeDepthExceeded = "depth_exceeded"
	CodeInfoEncoding  = "info_encoding"
	CodeParseError    = "parse_error"
	CodeDuplicateKey  = "duplicate_key"
	CodeTruncated     = "truncated"
)

// Role names the generator slot that failed.
type Role string

const (
	RoleKey      Role = "key"
	RoleValue    Role = "value"
	RoleInfo     Role = "info"
	RoleLanguage Role = "language"
)

// SchemaError is one problem found while building a schema.
type SchemaError struct {
	Path    string // schema path of the offending node, e.g. /phoneNumbers/{idx}
	Code    string
	Message string
	Cause   error
}

func (e SchemaError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s at %s: %s: %v", e.Code, e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s at %s: %s", e.Code, e.Path, e.Message)
}

func (e SchemaError) Unwrap() error { return e.Cause }

// SchemaErrors collects every problem of one schema. A schema with errors is
// never returned to the caller.
type SchemaErrors []SchemaError

// Error summarizes the first few errors.
func (se SchemaErrors) Error() string {
	if len(se) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	lim := min(len(se), maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(b, "%s at %s", se[i].Code, se[i].Path)
	}
	if len(se) > lim {
		fmt.Fprintf(b, "; ... (total %d)", len(se))
	}
	return b.String()
}

func schemaErr(path, code string, data map[string]string) SchemaError {
	return SchemaError{Path: path, Code: code, Message: i18n.T(code, data)}
}

// MappingError aborts the evaluation of one document. It carries both the
// schema node and the document location that were active when a generator
// failed.
type MappingError struct {
	SchemaPath   string
	DocumentPath string // JSON Pointer
	Role         Role
	Code         string
	Cause        error
}

func (e *MappingError) Error() string {
	b := &strings.Builder{}
	b.WriteString(i18n.T(e.Code, nil))
	if e.Role != "" {
		fmt.Fprintf(b, " (%s)", e.Role)
	}
	fmt.Fprintf(b, " at %s [schema %s]", e.DocumentPath, e.SchemaPath)
	if e.Cause != nil {
		fmt.Fprintf(b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *MappingError) Unwrap() error { return e.Cause }

// ValueError is returned by generators for values of the wrong shape. The
// walker lifts its code into the MappingError.
type ValueError struct {
	Code    string
	Message string
	Cause   error
}

func (e *ValueError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ValueError) Unwrap() error { return e.Cause }

func invalidType(want string, got any) error {
	return &ValueError{Code: CodeInvalidType, Message: fmt.Sprintf("expected %s, got %s", want, describe(got))}
}

// DecodeError reports a raw document that could not be decoded.
type DecodeError struct {
	Path    string
	Code    string
	Message string
	Cause   error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("%s at %s: %s", e.Code, e.Path, e.Message) }

func (e *DecodeError) Unwrap() error { return e.Cause }

// AsSchemaErrors extracts SchemaErrors from an error using errors.As internally.
func AsSchemaErrors(err error) (SchemaErrors, bool) {
	var se SchemaErrors
	if err != nil && errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// AsMappingError extracts a *MappingError from err.
func AsMappingError(err error) (*MappingError, bool) {
	var me *MappingError
	if err != nil && errors.As(err, &me) {
		return me, true
	}
	return nil, false
}

// AsDecodeError extracts a *DecodeError from err.
func AsDecodeError(err error) (*DecodeError, bool) {
	var de *DecodeError
	if err != nil && errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
