package codec

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tdictl/tdid/tdi/backend"
	"github.com/tdictl/tdid/tdi/defs"
	"github.com/tdictl/tdid/tdi/field"
)

var bigCmp = cmp.Comparer(func(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
})

func keyField(name string, match defs.MatchType, width int) *field.Descriptor {
	return (&field.Descriptor{
		Name:      name,
		Category:  defs.Key,
		MatchType: match,
		DataType:  defs.ByteStream,
		Width:     width,
		Mandatory: true,
	}).Bind(nil, 1, "tbl")
}

func dataField(name string, typ defs.DataType, width int) *field.Descriptor {
	return (&field.Descriptor{
		Name:     name,
		Category: defs.Data,
		DataType: typ,
		Width:    width,
	}).Bind(nil, 1, "tbl")
}

type choiceSource struct {
	choices []string
}

func (c *choiceSource) KeyFieldNumAllowedChoices(tbl, field uint32) (int, backend.Status) {
	return len(c.choices), backend.Success
}

func (c *choiceSource) KeyFieldAllowedChoices(tbl, field uint32, choices []string) backend.Status {
	copy(choices, c.choices)
	return backend.Success
}

func (c *choiceSource) DataFieldNumAllowedChoices(tbl, field, action uint32) (int, backend.Status) {
	return len(c.choices), backend.Success
}

func (c *choiceSource) DataFieldAllowedChoices(tbl, field, action uint32, choices []string) backend.Status {
	copy(choices, c.choices)
	return backend.Success
}

func (c *choiceSource) DataFieldNumAnnotations(tbl, field, action uint32) (int, backend.Status) {
	return 0, backend.Success
}

func (c *choiceSource) DataFieldAnnotations(tbl, field, action uint32, annotations []backend.Annotation) backend.Status {
	return backend.Success
}

func TestParseInteger(t *testing.T) {
	f := keyField("hdr.ipv4.dst_addr", defs.Exact, 32)
	tests := []struct {
		name string
		raw  interface{}
		want int64
		kind Kind
		fail bool
	}{
		{"decimal string", "10", 10, 0, false},
		{"hex string", "0x0A", 10, 0, false},
		{"binary string", "0b101", 5, 0, false},
		{"go int", 42, 42, 0, false},
		{"uint64", uint64(7), 7, 0, false},
		{"whole float", 3.0, 3, 0, false},
		{"ipv4", "192.168.1.0", 3232235776, 0, false},
		{"bool", true, 1, 0, false},
		{"negative", -1, 0, ValueTooWide, true},
		{"negative string", "-1", 0, ValueTooWide, true},
		{"too wide", "0x100000000", 0, ValueTooWide, true},
		{"fraction", 2.5, 0, BadInput, true},
		{"garbage", "ten", 0, BadInput, true},
		{"list", []int{1}, 0, BadInput, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := Parse(f, test.raw)
			if test.fail {
				if !IsKind(err, test.kind) {
					t.Fatalf("expected %s error, got %v (%v)", test.kind, err, got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(big.NewInt(test.want), got, bigCmp); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("mac", func(t *testing.T) {
		mac := keyField("hdr.ethernet.dst_addr", defs.Exact, 48)
		for _, s := range []string{"00:11:22:33:44:55", "00-11-22-33-44-55"} {
			got, err := Parse(mac, s)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(big.NewInt(0x001122334455), got, bigCmp); diff != "" {
				t.Errorf("%s: value mismatch (-want +got):\n%s", s, diff)
			}
		}
	})

	t.Run("ipv6", func(t *testing.T) {
		ip6 := keyField("hdr.ipv6.dst_addr", defs.Exact, 128)
		got, err := Parse(ip6, "::1")
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(big.NewInt(1), got, bigCmp); diff != "" {
			t.Errorf("value mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestParseTuples(t *testing.T) {
	tests := []struct {
		name  string
		field *field.Descriptor
		raw   interface{}
		want  Value
	}{
		{
			"ternary",
			keyField("t", defs.Ternary, 32),
			[]interface{}{"0x0A", "0xFF"},
			Ternary{Value: big.NewInt(10), Mask: big.NewInt(255)},
		},
		{
			"ternary from string",
			keyField("t", defs.Ternary, 32),
			"(0x0000000A, 0x000000FF)",
			Ternary{Value: big.NewInt(10), Mask: big.NewInt(255)},
		},
		{
			"ternary wildcard",
			keyField("t", defs.Ternary, 32),
			nil,
			Ternary{Value: big.NewInt(0), Mask: big.NewInt(0)},
		},
		{
			"ternary without mask",
			keyField("t", defs.Ternary, 32),
			5,
			Ternary{Value: big.NewInt(5), Mask: big.NewInt(0)},
		},
		{
			"ternary negative mask",
			keyField("t", defs.Ternary, 16),
			[2]interface{}{1, -1},
			Ternary{Value: big.NewInt(1), Mask: big.NewInt(0xFFFF)},
		},
		{
			"lpm",
			keyField("hdr.ipv4.dst_addr", defs.LPM, 32),
			[]interface{}{"192.168.1.0", 24},
			LPM{Value: big.NewInt(3232235776), PrefixLen: 24},
		},
		{
			"range",
			keyField("r", defs.Range, 16),
			"10,20",
			Range{Start: big.NewInt(10), End: big.NewInt(20)},
		},
		{
			"optional",
			keyField("o", defs.Optional, 12),
			5,
			Optional{Value: big.NewInt(5), IsValid: true},
		},
		{
			"optional invalid",
			keyField("o", defs.Optional, 12),
			[]interface{}{5, false},
			Optional{Value: big.NewInt(5), IsValid: false},
		},
		{
			"optional omitted",
			keyField("o", defs.Optional, 12),
			nil,
			Optional{Value: big.NewInt(0), IsValid: false},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := Parse(test.field, test.raw)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(test.want, got, bigCmp); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("errors", func(t *testing.T) {
		for _, raw := range []interface{}{
			[]interface{}{"0x1FFFF", "0xFF"},
			"junk,0xFF",
		} {
			if _, err := Parse(keyField("t", defs.Ternary, 16), raw); err == nil {
				t.Errorf("%v: expected an error", raw)
			}
		}
		if _, err := Parse(keyField("p", defs.LPM, 32), []interface{}{1, 33}); !IsKind(err, BadInput) {
			t.Errorf("expected prefix length error, got %v", err)
		}
		if _, err := Parse(keyField("p", defs.LPM, 32), 1); !IsKind(err, BadInput) {
			t.Errorf("expected tuple error, got %v", err)
		}
	})
}

func TestNullPolicy(t *testing.T) {
	ro := dataField("ro", defs.UInt, 32)
	ro.ReadOnly = true
	mandatory := dataField("m", defs.UInt, 32)
	mandatory.Mandatory = true

	tests := []struct {
		name  string
		field *field.Descriptor
		raw   interface{}
		want  Value
	}{
		{"read only", ro, 5, nil},
		{"mandatory", mandatory, nil, nil},
		{"exact key", keyField("k", defs.Exact, 8), nil, nil},
		{"uint", dataField("u", defs.UInt, 32), nil, big.NewInt(0)},
		{"string", dataField("s", defs.String, 0), nil, ""},
		{"bool", dataField("b", defs.Bool, 1), nil, false},
		{"float", dataField("f", defs.Float, 32), nil, float64(0)},
		{"int array", dataField("a", defs.IntArray, 32), nil, []*big.Int{}},
		{"string array", dataField("a", defs.StringArray, 0), nil, []string{}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := Parse(test.field, test.raw)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(test.want, got, bigCmp); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseData(t *testing.T) {
	t.Run("int array", func(t *testing.T) {
		f := dataField("$ACTION_MEMBER_ID", defs.IntArray, 32)
		for _, raw := range []interface{}{[]int{1, 2, 3}, "[1, 2, 3]", "1 2 3"} {
			got, err := Parse(f, raw)
			if err != nil {
				t.Fatal(err)
			}
			want := []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)}
			if diff := cmp.Diff(want, got, bigCmp); diff != "" {
				t.Errorf("%v: value mismatch (-want +got):\n%s", raw, diff)
			}
		}
		if _, err := Parse(f, 5); !IsKind(err, NotIterable) {
			t.Errorf("expected %s, got %v", NotIterable, err)
		}
		if _, err := Parse(dataField("a", defs.IntArray, 8), []int{1, 256}); !IsKind(err, ValueTooWide) {
			t.Errorf("expected %s, got %v", ValueTooWide, err)
		}
		wide := dataField("a", defs.IntArray, 64)
		if _, err := Parse(wide, []interface{}{"0x100000001"}); !IsKind(err, ValueTooWide) {
			t.Errorf("expected %s for an element wider than 32 bits, got %v", ValueTooWide, err)
		}
		if got, err := Parse(wide, []interface{}{"0xFFFFFFFF"}); err != nil || len(got.([]*big.Int)) != 1 {
			t.Errorf("unexpected result %v: %v", got, err)
		}
	})

	t.Run("bool array", func(t *testing.T) {
		got, err := Parse(dataField("a", defs.BoolArray, 1), []interface{}{true, 0, "true"})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]bool{true, false, true}, got); diff != "" {
			t.Errorf("value mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("scalars", func(t *testing.T) {
		if got, err := Parse(dataField("b", defs.Bool, 1), "1"); err != nil || got != true {
			t.Errorf("bool: got %v, %v", got, err)
		}
		if got, err := Parse(dataField("f", defs.Float, 32), "1.5"); err != nil || got != 1.5 {
			t.Errorf("float: got %v, %v", got, err)
		}
		if got, err := Parse(dataField("s", defs.String, 0), "abc"); err != nil || got != "abc" {
			t.Errorf("string: got %v, %v", got, err)
		}
	})

	t.Run("choices", func(t *testing.T) {
		f := (&field.Descriptor{Name: "$SPEED", Category: defs.Data, DataType: defs.String}).
			Bind(&choiceSource{choices: []string{"BF_SPEED_10G", "BF_SPEED_25G"}}, 1, "tbl")
		if _, err := Parse(f, "BF_SPEED_10G"); err != nil {
			t.Fatal(err)
		}
		if _, err := Parse(f, "BF_SPEED_1T"); !IsKind(err, BadInput) {
			t.Errorf("expected %s, got %v", BadInput, err)
		}
	})
}

func tagsField() *field.Descriptor {
	return (&field.Descriptor{
		Name:     "$TAGS",
		ID:       10,
		Category: defs.Data,
		DataType: defs.Container,
		Children: []*field.Descriptor{
			{Name: "$TAG_NAME", ID: 11, Category: defs.Data, DataType: defs.String, Depth: 1},
			{Name: "$TAG_VALUE", ID: 12, Category: defs.Data, DataType: defs.UInt, Width: 32, Depth: 1},
		},
	}).Bind(nil, 6, "$PRE_NODE")
}

func TestContainer(t *testing.T) {
	f := tagsField()

	got, err := Parse(f, []interface{}{
		map[string]interface{}{"$TAG_NAME": "a", "$TAG_VALUE": 1},
		map[string]interface{}{"$TAG_NAME": "b", "$TAG_VALUE": "0x2"},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []Record{
		{"$TAG_NAME": "a", "$TAG_VALUE": big.NewInt(1)},
		{"$TAG_NAME": "b", "$TAG_VALUE": big.NewInt(2)},
	}
	if diff := cmp.Diff(want, got, bigCmp); diff != "" {
		t.Fatalf("value mismatch (-want +got):\n%s", diff)
	}

	plain := Deparse(f, got)
	again, err := Parse(f, plain)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(got, again, bigCmp); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	single, err := Parse(f, map[string]interface{}{"$TAG_NAME": "a"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Record{{"$TAG_NAME": "a"}}, single, bigCmp); diff != "" {
		t.Errorf("single record mismatch (-want +got):\n%s", diff)
	}

	t.Run("nested", func(t *testing.T) {
		outer := (&field.Descriptor{
			Name:     "$GROUPS",
			ID:       20,
			Category: defs.Data,
			DataType: defs.Container,
			Children: []*field.Descriptor{
				{Name: "$GROUP_ID", ID: 21, Category: defs.Data, DataType: defs.UInt, Width: 16, Depth: 1},
				{
					Name: "$MEMBERS", ID: 22, Category: defs.Data, DataType: defs.Container, Depth: 1,
					Children: []*field.Descriptor{
						{Name: "$MEMBER_NAME", ID: 23, Category: defs.Data, DataType: defs.String, Depth: 2},
						{Name: "$MEMBER_PORT", ID: 24, Category: defs.Data, DataType: defs.UInt, Width: 32, Depth: 2},
					},
				},
			},
		}).Bind(nil, 6, "$PRE_NODE")

		got, err := Parse(outer, []interface{}{
			map[string]interface{}{
				"$GROUP_ID": 1,
				"$MEMBERS": []interface{}{
					map[string]interface{}{"$MEMBER_NAME": "a", "$MEMBER_PORT": 3},
					map[string]interface{}{"$MEMBER_NAME": "b", "$MEMBER_PORT": "0x4"},
				},
			},
		})
		if err != nil {
			t.Fatal(err)
		}
		want := []Record{{
			"$GROUP_ID": big.NewInt(1),
			"$MEMBERS": []Record{
				{"$MEMBER_NAME": "a", "$MEMBER_PORT": big.NewInt(3)},
				{"$MEMBER_NAME": "b", "$MEMBER_PORT": big.NewInt(4)},
			},
		}}
		if diff := cmp.Diff(want, got, bigCmp); diff != "" {
			t.Fatalf("value mismatch (-want +got):\n%s", diff)
		}
		again, err := Parse(outer, Deparse(outer, got))
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(got, again, bigCmp); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	})

	if _, err := Parse(f, map[string]interface{}{"$NOPE": 1}); !IsKind(err, UnknownField) {
		t.Errorf("expected %s, got %v", UnknownField, err)
	}
	if _, err := Parse(f, "a"); !IsKind(err, NotMapping) {
		t.Errorf("expected %s, got %v", NotMapping, err)
	}
	if _, err := Parse(f, []interface{}{1}); !IsKind(err, NotMapping) {
		t.Errorf("expected %s, got %v", NotMapping, err)
	}
}

func TestStringify(t *testing.T) {
	ipv4 := keyField("hdr.ipv4.dst_addr", defs.LPM, 32)
	ipv4.IPv4 = true
	port := dataField("port", defs.ByteStream, 9)
	prio := keyField("$MATCH_PRIORITY", defs.Exact, 32)
	prio.DataType = defs.UInt

	tests := []struct {
		name  string
		field *field.Descriptor
		value Value
		want  string
	}{
		{"ternary", keyField("t", defs.Ternary, 32), Ternary{big.NewInt(10), big.NewInt(255)}, "(0x0000000A, 0x000000FF)"},
		{"lpm ipv4", ipv4, LPM{big.NewInt(3232235776), 24}, "(192.168.1.0, 24)"},
		{"range", keyField("r", defs.Range, 16), Range{big.NewInt(1), big.NewInt(2)}, "(0x0001, 0x0002)"},
		{"optional", keyField("o", defs.Optional, 12), Optional{big.NewInt(3), true}, "(0x003, true)"},
		{"odd width", port, big.NewInt(5), "0x05"},
		{"decimal", prio, big.NewInt(10), "10"},
		{"error text", port, "Object not found", "Object not found"},
		{"int array", dataField("a", defs.IntArray, 32), []*big.Int{big.NewInt(1), big.NewInt(2)}, "[1 2]"},
		{"bool", dataField("b", defs.Bool, 1), true, "true"},
		{"float", dataField("f", defs.Float, 32), 1.5, "1.5"},
		{"string array", dataField("s", defs.StringArray, 0), []string{"a", "b"}, "[a b]"},
		{"unsupported", dataField("x", defs.DataNotImplemented, 0), 1, ErrorMarker},
		{"mismatch", port, 1.5, ErrorMarker},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Stringify(test.field, test.value); got != test.want {
				t.Errorf("got %q, want %q", got, test.want)
			}
		})
	}

	t.Run("container", func(t *testing.T) {
		f := tagsField()
		one := []Record{{"$TAG_VALUE": big.NewInt(1), "$TAG_NAME": "a"}}
		want := fmt.Sprintf("\n      %-30s : a\n      %-30s : 0x00000001", "$TAG_NAME", "$TAG_VALUE")
		if got := Stringify(f, one); got != want {
			t.Errorf("got %q, want %q", got, want)
		}

		two := []Record{
			{"$TAG_NAME": "a", "$TAG_VALUE": "Object not found"},
			{"$TAG_NAME": "b"},
		}
		want = fmt.Sprintf("\n    $TAGS[0]\n      %-30s : a\n    $TAGS[1]\n      %-30s : b", "$TAG_NAME", "$TAG_NAME")
		if got := Stringify(f, two); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})
}

func TestDeparse(t *testing.T) {
	tests := []struct {
		name  string
		field *field.Descriptor
		value Value
		want  interface{}
	}{
		{"integer", dataField("u", defs.UInt, 32), big.NewInt(7), big.NewInt(7)},
		{"ternary", keyField("t", defs.Ternary, 8), Ternary{big.NewInt(1), big.NewInt(2)}, []interface{}{big.NewInt(1), big.NewInt(2)}},
		{"lpm", keyField("l", defs.LPM, 32), LPM{big.NewInt(1), 8}, []interface{}{big.NewInt(1), 8}},
		{"optional", keyField("o", defs.Optional, 8), Optional{big.NewInt(1), false}, []interface{}{big.NewInt(1), false}},
		{"int array", dataField("a", defs.IntArray, 32), []*big.Int{big.NewInt(4)}, []interface{}{big.NewInt(4)}},
		{"string", dataField("s", defs.String, 0), "x", "x"},
		{"unsupported", dataField("f", defs.Float, 32), big.NewInt(1), ErrorMarker},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if diff := cmp.Diff(test.want, Deparse(test.field, test.value), bigCmp); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	ipv4 := keyField("hdr.ipv4.dst_addr", defs.LPM, 32)
	ipv4.IPv4 = true

	tests := []struct {
		field *field.Descriptor
		raw   interface{}
	}{
		{keyField("e", defs.Exact, 48), "00:11:22:33:44:55"},
		{keyField("e", defs.Exact, 9), 300},
		{keyField("t", defs.Ternary, 32), []interface{}{10, 255}},
		{keyField("t", defs.Ternary, 128), []interface{}{"::1", "0xFFFF"}},
		{ipv4, []interface{}{"10.0.0.0", 8}},
		{keyField("r", defs.Range, 16), []interface{}{1, 1024}},
		{keyField("o", defs.Optional, 12), []interface{}{7, false}},
		{dataField("a", defs.IntArray, 32), []int{1, 2}},
		{dataField("b", defs.BoolArray, 1), []bool{true, false}},
		{dataField("s", defs.StringArray, 0), []string{"x", "y"}},
		{dataField("f", defs.Float, 32), 2.25},
		{dataField("b", defs.Bool, 1), true},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%s %v", test.field.Name, test.raw), func(t *testing.T) {
			first, err := Parse(test.field, test.raw)
			if err != nil {
				t.Fatal(err)
			}
			text := Stringify(test.field, first)
			second, err := Parse(test.field, text)
			if err != nil {
				t.Fatalf("%q: %v", text, err)
			}
			if diff := cmp.Diff(first, second, bigCmp); diff != "" {
				t.Errorf("%q: round trip mismatch (-want +got):\n%s", text, diff)
			}
		})
	}
}
