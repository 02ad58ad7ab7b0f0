package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"net"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/tdictl/tdid/tdi/defs"
	"github.com/tdictl/tdid/tdi/field"
)

// Parse converts raw user input into the value handed to the backend.
//
// A nil result with a nil error means the field must not be set: read only
// fields, and required fields without input (the caller reports those).
// Fields that are not required take their type default.
func Parse(f *field.Descriptor, raw interface{}) (Value, error) {
	if f.ReadOnly {
		if raw != nil {
			logger(f).Warning("Skipping input for read only field: %s", f.Name)
		}
		return nil, nil
	}
	if raw == nil {
		return defaultValue(f)
	}
	if f.IsKey() {
		return parseKey(f, raw)
	}
	return parseData(f, raw)
}

func defaultValue(f *field.Descriptor) (Value, error) {
	if f.IsKey() {
		switch f.MatchType {
		case defs.Ternary:
			return Ternary{Value: new(big.Int), Mask: new(big.Int)}, nil
		case defs.Optional:
			return Optional{Value: new(big.Int), IsValid: false}, nil
		}
	}
	if f.Required() {
		return nil, nil
	}
	if f.IsKey() {
		switch f.MatchType {
		case defs.LPM:
			return LPM{Value: new(big.Int)}, nil
		case defs.Range:
			return Range{Start: new(big.Int), End: new(big.Int)}, nil
		}
	}
	switch f.DataType {
	case defs.UInt, defs.ByteStream:
		return new(big.Int), nil
	case defs.String:
		return "", nil
	case defs.Bool:
		return false, nil
	case defs.Float:
		return float64(0), nil
	case defs.IntArray:
		return []*big.Int{}, nil
	case defs.BoolArray:
		return []bool{}, nil
	case defs.StringArray:
		return []string{}, nil
	case defs.Container:
		return []Record{}, nil
	}
	return nil, parseError(f, Unsupported, nil, "type %s", f.DataType)
}

func parseKey(f *field.Descriptor, raw interface{}) (Value, error) {
	switch f.MatchType {
	case defs.Exact:
		return parseScalar(f, raw)
	case defs.Ternary:
		return parseTernary(f, raw)
	case defs.LPM:
		return parseLPM(f, raw)
	case defs.Range:
		return parseRange(f, raw)
	case defs.Optional:
		return parseOptional(f, raw)
	}
	return nil, parseError(f, Unsupported, raw, "match type %s", f.MatchType)
}

func parseData(f *field.Descriptor, raw interface{}) (Value, error) {
	switch f.DataType {
	case defs.IntArray:
		return parseIntArray(f, raw)
	case defs.BoolArray:
		return parseBoolArray(f, raw)
	case defs.StringArray:
		return parseStringArray(f, raw)
	case defs.Container:
		return parseContainer(f, raw)
	}
	return parseScalar(f, raw)
}

func parseScalar(f *field.Descriptor, raw interface{}) (Value, error) {
	switch f.DataType {
	case defs.UInt, defs.ByteStream:
		return parseInt(f, raw, false)
	case defs.String:
		return parseString(f, raw)
	case defs.Bool:
		return parseBool(f, raw)
	case defs.Float:
		return parseFloat(f, raw)
	}
	return nil, parseError(f, Unsupported, raw, "type %s", f.DataType)
}

// toInt converts any integer-like input. Strings are tried as an IPv4
// address, a MAC address, an IPv6 address and an integer literal, in that
// order.
func toInt(raw interface{}) (*big.Int, error) {
	switch x := raw.(type) {
	case *big.Int:
		if x == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return new(big.Int).Set(x), nil
	case big.Int:
		return new(big.Int).Set(&x), nil
	case int:
		return big.NewInt(int64(x)), nil
	case int8:
		return big.NewInt(int64(x)), nil
	case int16:
		return big.NewInt(int64(x)), nil
	case int32:
		return big.NewInt(int64(x)), nil
	case int64:
		return big.NewInt(x), nil
	case uint:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint64:
		return new(big.Int).SetUint64(x), nil
	case bool:
		if x {
			return big.NewInt(1), nil
		}
		return new(big.Int), nil
	case float32:
		return floatToInt(float64(x))
	case float64:
		return floatToInt(x)
	case json.Number:
		return stringToInt(string(x))
	case string:
		return stringToInt(x)
	case []byte:
		return new(big.Int).SetBytes(x), nil
	}
	return nil, fmt.Errorf("unexpected %T", raw)
}

func floatToInt(f float64) (*big.Int, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return nil, fmt.Errorf("%v is not an integer", f)
	}
	i, _ := big.NewFloat(f).Int(nil)
	return i, nil
}

func stringToInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ".") {
		if ip := net.ParseIP(s); ip != nil && ip.To4() != nil {
			return new(big.Int).SetBytes(ip.To4()), nil
		}
	}
	if strings.Contains(s, "-") || strings.Contains(s, ":") {
		if mac, err := net.ParseMAC(strings.ReplaceAll(s, "-", ":")); err == nil && len(mac) == 6 {
			return new(big.Int).SetBytes(mac), nil
		}
	}
	if strings.Contains(s, ":") {
		if ip := net.ParseIP(s); ip != nil {
			return new(big.Int).SetBytes(ip.To16()), nil
		}
	}
	if v, ok := new(big.Int).SetString(s, 0); ok {
		return v, nil
	}
	// float literals with no fraction, as written by some JSON encoders
	if fl, err := strconv.ParseFloat(s, 64); err == nil {
		return floatToInt(fl)
	}
	return nil, fmt.Errorf("invalid literal %q", s)
}

// fitWidth enforces the width of the field. Masks are wrapped instead.
func fitWidth(f *field.Descriptor, v *big.Int, raw interface{}, mask bool) (*big.Int, error) {
	if mask && v.Sign() < 0 {
		v = v.And(v, defs.Mask(f.Width))
	}
	if v.Sign() < 0 || v.BitLen() > f.Width {
		return nil, parseError(f, ValueTooWide, raw, "input (parsed: %s) for %s field %s is greater than %d bits", v, f.Category, f.Name, f.Width)
	}
	return v, nil
}

func parseInt(f *field.Descriptor, raw interface{}, mask bool) (*big.Int, error) {
	v, err := toInt(raw)
	if err != nil {
		return nil, &ParseError{Field: f.Name, Kind: BadInput, Input: raw, Err: err}
	}
	return fitWidth(f, v, raw, mask)
}

// ParseMask parses a bit mask the width of f. Negative masks wrap.
func ParseMask(f *field.Descriptor, raw interface{}) (*big.Int, error) {
	return parseInt(f, raw, true)
}

func parseString(f *field.Descriptor, raw interface{}) (Value, error) {
	var s string
	switch x := raw.(type) {
	case string:
		s = x
	case fmt.Stringer:
		s = x.String()
	default:
		rv := reflect.ValueOf(raw)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array || rv.Kind() == reflect.Map {
			return nil, parseError(f, BadInput, raw, "expected a string")
		}
		s = fmt.Sprint(raw)
	}
	if choices := f.Choices(); len(choices) > 0 {
		for _, c := range choices {
			if c == s {
				return s, nil
			}
		}
		return nil, parseError(f, BadInput, raw, "valid choices are %s", strings.Join(choices, ", "))
	}
	return s, nil
}

func toBool(raw interface{}) (bool, error) {
	switch x := raw.(type) {
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(x))
	case json.Number:
		return strconv.ParseBool(string(x))
	}
	v, err := toInt(raw)
	if err != nil {
		return false, err
	}
	return v.Sign() != 0, nil
}

func parseBool(f *field.Descriptor, raw interface{}) (Value, error) {
	b, err := toBool(raw)
	if err != nil {
		return nil, &ParseError{Field: f.Name, Kind: BadInput, Input: raw, Err: err}
	}
	return b, nil
}

func parseFloat(f *field.Descriptor, raw interface{}) (Value, error) {
	switch x := raw.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case string:
		v, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil, &ParseError{Field: f.Name, Kind: BadInput, Input: raw, Err: err}
		}
		return v, nil
	case json.Number:
		v, err := x.Float64()
		if err != nil {
			return nil, &ParseError{Field: f.Name, Kind: BadInput, Input: raw, Err: err}
		}
		return v, nil
	}
	v, err := toInt(raw)
	if err != nil {
		return nil, &ParseError{Field: f.Name, Kind: BadInput, Input: raw, Err: err}
	}
	fl, _ := new(big.Float).SetInt(v).Float64()
	return fl, nil
}

func orNil(v *big.Int) interface{} {
	if v == nil {
		return nil
	}
	return v
}

// pair splits a tuple input: a two element slice or array, or a string
// "a,b" optionally wrapped in parentheses. Empty parts are nil.
func pair(raw interface{}) (interface{}, interface{}, bool) {
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
		parts := strings.Split(s, ",")
		if len(parts) != 2 {
			return nil, nil, false
		}
		var a, b interface{}
		if p := strings.TrimSpace(parts[0]); p != "" {
			a = p
		}
		if p := strings.TrimSpace(parts[1]); p != "" {
			b = p
		}
		return a, b, true
	}
	if _, isBytes := raw.([]byte); isBytes {
		return nil, nil, false
	}
	rv := reflect.ValueOf(raw)
	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Len() == 2 {
		return rv.Index(0).Interface(), rv.Index(1).Interface(), true
	}
	return nil, nil, false
}

func parseTernary(f *field.Descriptor, raw interface{}) (Value, error) {
	var v, m interface{}
	if t, ok := raw.(Ternary); ok {
		v, m = orNil(t.Value), orNil(t.Mask)
	} else if a, b, ok := pair(raw); ok {
		v, m = a, b
	} else {
		v = raw
	}

	t := Ternary{Value: new(big.Int), Mask: new(big.Int)}
	if v == nil && m == nil {
		return t, nil
	}
	var err error
	if v != nil {
		if t.Value, err = parseInt(f, v, false); err != nil {
			return nil, err
		}
	}
	if m != nil {
		if t.Mask, err = parseInt(f, m, true); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func parseLPM(f *field.Descriptor, raw interface{}) (Value, error) {
	var v, p interface{}
	if l, ok := raw.(LPM); ok {
		v, p = orNil(l.Value), l.PrefixLen
	} else if a, b, ok := pair(raw); ok {
		v, p = a, b
	}
	if v == nil || p == nil {
		return nil, parseError(f, BadInput, raw, "expected (value, prefix_len)")
	}
	value, err := parseInt(f, v, false)
	if err != nil {
		return nil, err
	}
	plen, err := toInt(p)
	if err != nil {
		return nil, &ParseError{Field: f.Name, Kind: BadInput, Input: raw, Err: err}
	}
	if plen.Sign() < 0 || plen.Cmp(big.NewInt(int64(f.Width))) > 0 {
		return nil, parseError(f, BadInput, raw, "prefix length %s out of [0, %d]", plen, f.Width)
	}
	return LPM{Value: value, PrefixLen: int(plen.Int64())}, nil
}

func parseRange(f *field.Descriptor, raw interface{}) (Value, error) {
	var s, e interface{}
	if r, ok := raw.(Range); ok {
		s, e = orNil(r.Start), orNil(r.End)
	} else if a, b, ok := pair(raw); ok {
		s, e = a, b
	}
	if s == nil || e == nil {
		return nil, parseError(f, BadInput, raw, "expected (start, end)")
	}
	start, err := parseInt(f, s, false)
	if err != nil {
		return nil, err
	}
	end, err := parseInt(f, e, false)
	if err != nil {
		return nil, err
	}
	return Range{Start: start, End: end}, nil
}

func parseOptional(f *field.Descriptor, raw interface{}) (Value, error) {
	var v, valid interface{}
	if o, ok := raw.(Optional); ok {
		v, valid = orNil(o.Value), o.IsValid
	} else if a, b, ok := pair(raw); ok {
		v, valid = a, b
	} else {
		v = raw
	}

	o := Optional{Value: new(big.Int), IsValid: true}
	var err error
	if v != nil {
		if o.Value, err = parseInt(f, v, false); err != nil {
			return nil, err
		}
	}
	if valid != nil {
		if o.IsValid, err = toBool(valid); err != nil {
			return nil, &ParseError{Field: f.Name, Kind: BadInput, Input: raw, Err: err}
		}
	}
	return o, nil
}

// elements returns the items of an iterable input. Strings are split on
// commas and spaces, with optional enclosing brackets.
func elements(raw interface{}) ([]interface{}, bool) {
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
		parts := strings.FieldsFunc(s, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})
		items := make([]interface{}, len(parts))
		for i, p := range parts {
			items[i] = p
		}
		return items, true
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]interface{}, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

const arrayElementBits = 32

func parseIntArray(f *field.Descriptor, raw interface{}) (Value, error) {
	items, ok := elements(raw)
	if !ok {
		return nil, parseError(f, NotIterable, raw, "INT array info must be an iterable type (e.g. list)")
	}
	out := make([]*big.Int, 0, len(items))
	for _, item := range items {
		v, err := parseInt(f, item, false)
		if err != nil {
			return nil, err
		}
		// array elements are carried as 32 bit words
		if v.BitLen() > arrayElementBits {
			return nil, parseError(f, ValueTooWide, item, "element (parsed: %s) of array field %s is greater than %d bits", v, f.Name, arrayElementBits)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseBoolArray(f *field.Descriptor, raw interface{}) (Value, error) {
	items, ok := elements(raw)
	if !ok {
		return nil, parseError(f, NotIterable, raw, "BOOL array info must be an iterable type (e.g. list)")
	}
	out := make([]bool, 0, len(items))
	for _, item := range items {
		b, err := toBool(item)
		if err != nil {
			return nil, &ParseError{Field: f.Name, Kind: BadInput, Input: item, Err: err}
		}
		out = append(out, b)
	}
	return out, nil
}

func parseStringArray(f *field.Descriptor, raw interface{}) (Value, error) {
	items, ok := elements(raw)
	if !ok {
		return nil, parseError(f, NotIterable, raw, "STR array info must be an iterable type (e.g. list)")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, err := parseString(f, item)
		if err != nil {
			return nil, err
		}
		out = append(out, s.(string))
	}
	return out, nil
}

func toMapping(raw interface{}) (map[string]interface{}, bool) {
	switch x := raw.(type) {
	case map[string]interface{}:
		return x, true
	case Record:
		return x, true
	}
	return nil, false
}

// parseContainer accepts one mapping or a list of mappings of child name to
// value, parsed with the children descriptors.
func parseContainer(f *field.Descriptor, raw interface{}) (Value, error) {
	var maps []map[string]interface{}
	if m, ok := toMapping(raw); ok {
		maps = append(maps, m)
	} else if _, isString := raw.(string); isString {
		return nil, parseError(f, NotMapping, raw, "")
	} else if items, ok := elements(raw); ok {
		for _, item := range items {
			m, ok := toMapping(item)
			if !ok {
				return nil, parseError(f, NotMapping, item, "")
			}
			maps = append(maps, m)
		}
	} else {
		return nil, parseError(f, NotMapping, raw, "")
	}

	records := make([]Record, 0, len(maps))
	for _, m := range maps {
		rec := Record{}
		for name, v := range m {
			child := f.Child(name)
			if child == nil {
				return nil, parseError(f, UnknownField, m, "no field %s in container", name)
			}
			pv, err := Parse(child, v)
			if err != nil {
				return nil, err
			}
			if pv != nil {
				rec[name] = pv
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
