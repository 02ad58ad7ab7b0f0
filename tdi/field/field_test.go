package field

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tdictl/tdid/tdi/backend"
	"github.com/tdictl/tdid/tdi/defs"
)

type fakeSource struct {
	calls       int
	choices     []string
	annotations []backend.Annotation
	fail        bool
}

func (f *fakeSource) KeyFieldNumAllowedChoices(tbl, field uint32) (int, backend.Status) {
	f.calls++
	if f.fail {
		return 0, backend.NotSupported
	}
	return len(f.choices), backend.Success
}

func (f *fakeSource) KeyFieldAllowedChoices(tbl, field uint32, choices []string) backend.Status {
	copy(choices, f.choices)
	return backend.Success
}

func (f *fakeSource) DataFieldNumAllowedChoices(tbl, field, action uint32) (int, backend.Status) {
	return f.KeyFieldNumAllowedChoices(tbl, field)
}

func (f *fakeSource) DataFieldAllowedChoices(tbl, field, action uint32, choices []string) backend.Status {
	return f.KeyFieldAllowedChoices(tbl, field, choices)
}

func (f *fakeSource) DataFieldNumAnnotations(tbl, field, action uint32) (int, backend.Status) {
	f.calls++
	return len(f.annotations), backend.Success
}

func (f *fakeSource) DataFieldAnnotations(tbl, field, action uint32, annotations []backend.Annotation) backend.Status {
	copy(annotations, f.annotations)
	return backend.Success
}

func TestChoices(t *testing.T) {
	tests := []struct {
		name  string
		desc  *Descriptor
		calls int
		want  []string
	}{
		{"string key", &Descriptor{Category: defs.Key, DataType: defs.String}, 1, []string{"a", "b"}},
		{"string data", &Descriptor{Category: defs.Data, DataType: defs.String}, 1, []string{"a", "b"}},
		{"string array data", &Descriptor{Category: defs.Data, DataType: defs.StringArray}, 1, []string{"a", "b"}},
		{"string array key", &Descriptor{Category: defs.Key, DataType: defs.StringArray}, 0, nil},
		{"integer", &Descriptor{Category: defs.Data, DataType: defs.UInt}, 0, nil},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			src := &fakeSource{choices: []string{"a", "b"}}
			test.desc.Bind(src, 1, "tbl")
			for i := 0; i < 3; i++ {
				if diff := cmp.Diff(test.want, test.desc.Choices()); diff != "" {
					t.Errorf("choices mismatch (-want +got):\n%s", diff)
				}
			}
			if src.calls != test.calls {
				t.Errorf("expected %d backend queries, got %d", test.calls, src.calls)
			}
		})
	}

	t.Run("failure", func(t *testing.T) {
		d := (&Descriptor{DataType: defs.String}).Bind(&fakeSource{fail: true}, 1, "tbl")
		if got := d.Choices(); got != nil {
			t.Errorf("expected no choices, got %v", got)
		}
	})
}

func TestAnnotations(t *testing.T) {
	src := &fakeSource{annotations: []backend.Annotation{
		{Name: AnnotationClass, Value: ClassRegisterData},
		{Name: AnnotationImpLevel, Value: "2"},
	}}
	child := &Descriptor{Name: "child", Category: defs.Data, DataType: defs.UInt}
	cont := &Descriptor{Name: "cont", Category: defs.Data, DataType: defs.Container, Children: []*Descriptor{child}}
	data := &Descriptor{Name: "f1", Category: defs.Data, DataType: defs.ByteStream}
	key := &Descriptor{Name: "k", Category: defs.Key, DataType: defs.UInt}
	for _, d := range []*Descriptor{cont, data, key} {
		d.Bind(src, 1, "tbl")
	}

	if !data.IsRegisterData() || data.ImpLevel() != 2 {
		t.Errorf("unexpected register=%v level=%d", data.IsRegisterData(), data.ImpLevel())
	}
	if key.Annotations() != nil || key.ImpLevel() != DefaultImpLevel {
		t.Error("keys carry no annotations")
	}
	if !child.InContainer || child.Annotations() != nil {
		t.Error("container children carry no annotations")
	}
	if cont.Child("child") != child || cont.Child("nope") != nil {
		t.Error("unexpected child lookup")
	}
}

func TestRequired(t *testing.T) {
	tests := []struct {
		desc Descriptor
		want bool
	}{
		{Descriptor{Category: defs.Key, MatchType: defs.Exact, Mandatory: true}, true},
		{Descriptor{Category: defs.Key, MatchType: defs.LPM, Mandatory: true}, true},
		{Descriptor{Category: defs.Key, MatchType: defs.Ternary, Mandatory: true}, false},
		{Descriptor{Category: defs.Key, MatchType: defs.Optional, Mandatory: true}, false},
		{Descriptor{Category: defs.Data, Mandatory: true}, true},
		{Descriptor{Category: defs.Data, Mandatory: true, ReadOnly: true}, false},
		{Descriptor{Category: defs.Data}, false},
	}
	for i := range tests {
		if got := tests[i].desc.Required(); got != tests[i].want {
			t.Errorf("%d: got %v, want %v", i, got, tests[i].want)
		}
	}
}
