package codec

import (
	"fmt"
	"math/big"
	"net"
	"sort"
	"strings"

	"github.com/tdictl/tdid/tdi/backend"
	"github.com/tdictl/tdid/tdi/defs"
	"github.com/tdictl/tdid/tdi/field"
)

// fields always displayed in decimal.
var decimalFields = map[string]bool{
	"$MATCH_PRIORITY":     true,
	"$COUNTER_SPEC_BYTES": true,
	"$COUNTER_SPEC_PKTS":  true,
}

// notFound is the text stored instead of a container child that could not
// be read.
var notFound = backend.ObjectNotFound.Message()

func unsupported(f *field.Descriptor) string {
	if f.IsKey() {
		logger(f).Warning("Error: type %s for key field %s not yet supported.", f.MatchType, f.Name)
	} else {
		logger(f).Warning("Error: type %s for data field %s not yet supported.", f.DataType, f.Name)
	}
	return ErrorMarker
}

// isArray reports whether the values of f are lists: integer and bool
// arrays, and registers, which hold one value per pipe.
func isArray(f *field.Descriptor) bool {
	if f.IsKey() {
		return false
	}
	return f.DataType == defs.IntArray || f.DataType == defs.BoolArray ||
		(f.DataType == defs.ByteStream && f.IsRegisterData())
}

func isInteger(f *field.Descriptor) bool {
	if f.IsKey() {
		return f.MatchType == defs.Exact && f.DataType != defs.String && f.DataType != defs.Bool
	}
	return f.DataType.Integer()
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// Deparse converts a value read from the backend to plain Go values, ready
// to be encoded: integers stay *big.Int, tuples become two element slices
// and containers lists of maps.
func Deparse(f *field.Descriptor, v Value) interface{} {
	if s, ok := v.(string); ok {
		// string fields, or the error text of a field that was not read
		return s
	}
	switch {
	case isArray(f):
		switch x := v.(type) {
		case []*big.Int:
			out := make([]interface{}, len(x))
			for i := range x {
				out[i] = copyInt(x[i])
			}
			return out
		case []bool:
			out := make([]interface{}, len(x))
			for i := range x {
				out[i] = x[i]
			}
			return out
		}
	case isInteger(f):
		if x, ok := v.(*big.Int); ok {
			return copyInt(x)
		}
	case f.IsKey():
		switch x := v.(type) {
		case bool:
			return x
		case Ternary:
			return []interface{}{copyInt(x.Value), copyInt(x.Mask)}
		case LPM:
			return []interface{}{copyInt(x.Value), x.PrefixLen}
		case Range:
			return []interface{}{copyInt(x.Start), copyInt(x.End)}
		case Optional:
			return []interface{}{copyInt(x.Value), x.IsValid}
		}
	case f.DataType == defs.Float:
		if x, ok := v.(float64); ok {
			return x
		}
	case f.DataType == defs.Bool:
		if x, ok := v.(bool); ok {
			return x
		}
	case f.DataType == defs.String:
		return fmt.Sprint(v)
	case f.DataType == defs.StringArray:
		if x, ok := v.([]string); ok {
			return append([]string{}, x...)
		}
	case f.DataType == defs.Container:
		if records, ok := v.([]Record); ok {
			out := make([]map[string]interface{}, 0, len(records))
			for _, rec := range records {
				m := make(map[string]interface{}, len(rec))
				for name, cv := range rec {
					if child := f.Child(name); child != nil {
						m[name] = Deparse(child, cv)
					} else {
						m[name] = cv
					}
				}
				out = append(out, m)
			}
			return out
		}
	}
	return unsupported(f)
}

func stringifyInt(f *field.Descriptor, v *big.Int) string {
	if v == nil {
		v = new(big.Int)
	}
	if f.IPv4 && v.Sign() >= 0 && v.BitLen() <= 32 {
		return net.IP(defs.ToBytes(v, 32)).String()
	}
	if decimalFields[f.Name] {
		return v.String()
	}
	return fmt.Sprintf("0x%0*X", f.Width/4, v)
}

// Stringify renders a value for display. Strings are returned as they are,
// they carry the backend message of fields that could not be read.
func Stringify(f *field.Descriptor, v Value) string {
	if s, ok := v.(string); ok {
		return s
	}
	switch {
	case isArray(f):
		switch x := v.(type) {
		case []*big.Int:
			parts := make([]string, len(x))
			for i := range x {
				parts[i] = x[i].String()
			}
			return "[" + strings.Join(parts, " ") + "]"
		case []bool:
			return fmt.Sprint(x)
		}
	case isInteger(f):
		if x, ok := v.(*big.Int); ok {
			return stringifyInt(f, x)
		}
	case f.IsKey():
		switch x := v.(type) {
		case bool:
			return fmt.Sprint(x)
		case Ternary:
			return fmt.Sprintf("(%s, %s)", stringifyInt(f, x.Value), stringifyInt(f, x.Mask))
		case LPM:
			return fmt.Sprintf("(%s, %d)", stringifyInt(f, x.Value), x.PrefixLen)
		case Range:
			return fmt.Sprintf("(%s, %s)", stringifyInt(f, x.Start), stringifyInt(f, x.End))
		case Optional:
			return fmt.Sprintf("(%s, %v)", stringifyInt(f, x.Value), x.IsValid)
		}
	case f.DataType == defs.Float, f.DataType == defs.Bool:
		switch v.(type) {
		case float64, bool:
			return fmt.Sprint(v)
		}
	case f.DataType == defs.StringArray:
		if x, ok := v.([]string); ok {
			return fmt.Sprint(x)
		}
	case f.DataType == defs.Container:
		if records, ok := v.([]Record); ok {
			return stringifyContainer(f, records, 1)
		}
	}
	return unsupported(f)
}

func stringifyContainer(f *field.Descriptor, records []Record, level int) string {
	indent := strings.Repeat("  ", level)
	var b strings.Builder
	for i, rec := range records {
		if len(records) > 1 {
			fmt.Fprintf(&b, "\n  %s%s[%d]", indent, f.Name, i)
		}
		names := make([]string, 0, len(rec))
		for name := range rec {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			val := rec[name]
			child := f.Child(name)
			var text string
			switch x := val.(type) {
			case []Record:
				if child == nil {
					child = &field.Descriptor{Name: name}
				}
				text = stringifyContainer(child, x, level+1)
			case string:
				if x == notFound {
					continue
				}
				text = x
			default:
				if child != nil {
					text = Stringify(child, x)
				} else {
					text = fmt.Sprint(x)
				}
			}
			fmt.Fprintf(&b, "\n    %s%-30s : %s", indent, name, text)
		}
	}
	return b.String()
}
