// Package codec converts field values between the forms users type, the
// forms the backend takes, and display text.
//
// Integers are always *big.Int. Key fields matched other than exactly are
// carried by the Ternary, LPM, Range and Optional types, and container
// fields by lists of Record.
package codec

import (
	"fmt"
	"math/big"

	"github.com/tdictl/tdid/log"
	"github.com/tdictl/tdid/tdi/field"
)

// Value is a parsed field value.
type Value = interface{}

// Record is one element of a container field, by child name.
type Record map[string]Value

// Ternary key value.
type Ternary struct {
	Value *big.Int
	Mask  *big.Int
}

// LPM key value.
type LPM struct {
	Value     *big.Int
	PrefixLen int
}

// Range key value.
type Range struct {
	Start *big.Int
	End   *big.Int
}

// Optional key value.
type Optional struct {
	Value   *big.Int
	IsValid bool
}

// ErrorMarker is what Deparse and Stringify return for values they can not
// handle.
const ErrorMarker = "Error"

// Kind of a ParseError.
type Kind int

// parse error kinds
const (
	BadInput Kind = iota
	ValueTooWide
	NotIterable
	NotMapping
	UnknownField
	Unsupported
	MissingMandatory
)

var kindNames = map[Kind]string{
	BadInput:         "bad input",
	ValueTooWide:     "value too wide",
	NotIterable:      "not iterable",
	NotMapping:       "not a mapping",
	UnknownField:     "unknown field",
	Unsupported:      "unsupported",
	MissingMandatory: "missing mandatory field",
}

func (k Kind) String() string {
	if name, found := kindNames[k]; found {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseError reports an input that could not be converted for a field.
type ParseError struct {
	Field string
	Kind  Kind
	Input interface{}
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Error: %s for field %s (input %v): %s", e.Kind, e.Field, e.Input, e.Err)
	}
	return fmt.Sprintf("Error: %s for field %s (input %v)", e.Kind, e.Field, e.Input)
}

// Unwrap returns the underlying error, if any.
func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseError(f *field.Descriptor, kind Kind, input interface{}, format string, args ...interface{}) *ParseError {
	var err error
	if format != "" {
		err = fmt.Errorf(format, args...)
	}
	return &ParseError{Field: f.Name, Kind: kind, Input: input, Err: err}
}

// Missing returns the error reported when a required field has no value.
func Missing(f *field.Descriptor) *ParseError {
	return &ParseError{Field: f.Name, Kind: MissingMandatory}
}

// IsKind reports whether err is a ParseError of the given kind.
func IsKind(err error, kind Kind) bool {
	pe, ok := err.(*ParseError)
	return ok && pe.Kind == kind
}

func logger(f *field.Descriptor) log.Tagged {
	return log.NewTagged("tdi.codec", f.TableName())
}
