// Package defs holds the enumerations reported by a TDI backend
// (match types, data types, table types, supported APIs, attributes and
// operations), and the helpers to pack integers into the network-order
// byte arrays the backend expects for wide fields.
//
// Every Resolve* function is total: codes not known by this package map to
// a NotImplemented value instead of failing, so new backend additions do not
// break table introspection.
package defs

// Category tells if a field belongs to the key or to the data of an entry.
type Category int

// field categories
const (
	Key Category = iota
	Data
)

func (c Category) String() string {
	if c == Key {
		return "key"
	}
	return "data"
}

// MatchType of a key field.
type MatchType int

// match types, in the order used by the backend.
const (
	Exact MatchType = iota
	Ternary
	LPM
	Range
	Optional

	MatchNotImplemented MatchType = -1
)

var matchTypeNames = map[MatchType]string{
	Exact:    "EXACT",
	Ternary:  "TERNARY",
	LPM:      "LPM",
	Range:    "RANGE",
	Optional: "OPTIONAL",
}

// ResolveMatchType maps a backend code to a MatchType.
func ResolveMatchType(code int) MatchType {
	if _, found := matchTypeNames[MatchType(code)]; found {
		return MatchType(code)
	}
	return MatchNotImplemented
}

// Code returns the backend code of the match type.
func (m MatchType) Code() int {
	return int(m)
}

func (m MatchType) String() string {
	if name, found := matchTypeNames[m]; found {
		return name
	}
	return "KEY_TYPE_NOT_IMPLEMENTED"
}

// Tuple reports whether values of this match type are pairs.
func (m MatchType) Tuple() bool {
	return m == Ternary || m == LPM || m == Range || m == Optional
}

// DataType of a key or data field.
type DataType int

// data types, in the order used by the backend.
const (
	IntArray DataType = iota
	BoolArray
	UInt
	ByteStream
	Float
	Container
	String
	Bool
	StringArray

	DataNotImplemented DataType = -1
)

var dataTypeNames = map[DataType]string{
	IntArray:    "INT_ARR",
	BoolArray:   "BOOL_ARR",
	UInt:        "UINT64",
	ByteStream:  "BYTE_STREAM",
	Float:       "FLOAT",
	Container:   "CONTAINER",
	String:      "STRING",
	Bool:        "BOOL",
	StringArray: "STR_ARR",
}

// ResolveDataType maps a backend code to a DataType.
func ResolveDataType(code int) DataType {
	if _, found := dataTypeNames[DataType(code)]; found {
		return DataType(code)
	}
	return DataNotImplemented
}

// Code returns the backend code of the data type.
func (d DataType) Code() int {
	return int(d)
}

func (d DataType) String() string {
	if name, found := dataTypeNames[d]; found {
		return name
	}
	return "DATA_TYPE_NOT_IMPLEMENTED"
}

// Integer reports whether the type carries an unsigned integer, either as a
// native value or as a byte stream.
func (d DataType) Integer() bool {
	return d == UInt || d == ByteStream
}

// ModIncType selects how an incremental modification combines the data.
type ModIncType int

// incremental modification types
const (
	ModIncAdd ModIncType = iota
	ModIncDelete
)

func (m ModIncType) String() string {
	switch m {
	case ModIncAdd:
		return "MOD_INC_ADD"
	case ModIncDelete:
		return "MOD_INC_DELETE"
	}
	return "MOD_INC_INVALID"
}
