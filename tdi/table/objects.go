package table

import (
	"math/big"
	"strings"

	"github.com/tdictl/tdid/tdi/backend"
	"github.com/tdictl/tdid/tdi/codec"
	"github.com/tdictl/tdid/tdi/defs"
	"github.com/tdictl/tdid/tdi/field"
)

// Fields maps field names to values. Names can be given without their
// leading '$'.
type Fields map[string]interface{}

// Values maps field names to parsed values, as read from the backend.
type Values map[string]codec.Value

type parsed struct {
	f *field.Descriptor
	v codec.Value
}

func lookup(in Fields, name string) (interface{}, bool) {
	if v, found := in[name]; found {
		return v, true
	}
	if strings.HasPrefix(name, "$") {
		v, found := in[name[1:]]
		return v, found
	}
	return nil, false
}

func known(fields []*field.Descriptor, name string) bool {
	for _, f := range fields {
		if f.Name == name || f.Name == "$"+name {
			return true
		}
	}
	return false
}

func unknownFields(in Fields, fields []*field.Descriptor) error {
	for name, v := range in {
		if !known(fields, name) {
			return &codec.ParseError{Field: name, Kind: codec.UnknownField, Input: v}
		}
	}
	return nil
}

// parseKey parses every key field. Missing ternary and optional fields are
// wildcards.
func (t *Table) parseKey(in Fields) ([]parsed, error) {
	if err := unknownFields(in, t.schema.KeyFields); err != nil {
		return nil, err
	}
	out := make([]parsed, 0, len(t.schema.KeyFields))
	for _, f := range t.schema.KeyFields {
		raw, _ := lookup(in, f.Name)
		v, err := codec.Parse(f, raw)
		if err != nil {
			return nil, err
		}
		if v == nil {
			if f.Required() {
				return nil, codec.Missing(f)
			}
			continue
		}
		out = append(out, parsed{f, v})
	}
	return out, nil
}

// parseData parses the data fields present in the input. Missing required
// fields fail only when strict is set.
func (t *Table) parseData(in Fields, fields []*field.Descriptor, strict bool) ([]parsed, error) {
	if err := unknownFields(in, fields); err != nil {
		return nil, err
	}
	out := make([]parsed, 0, len(in))
	for _, f := range fields {
		raw, found := lookup(in, f.Name)
		if !found && !(strict && f.Required()) {
			continue
		}
		v, err := codec.Parse(f, raw)
		if err != nil {
			return nil, err
		}
		if v == nil {
			if strict && f.Required() {
				return nil, codec.Missing(f)
			}
			continue
		}
		out = append(out, parsed{f, v})
	}
	return out, nil
}

func toUint32s(values []*big.Int) []uint32 {
	out := make([]uint32, len(values))
	for i, v := range values {
		out[i] = uint32(defs.Uint64(v))
	}
	return out
}

func (t *Table) setKey(key backend.Handle, f *field.Descriptor, v codec.Value) backend.Status {
	be := t.be
	w := f.Width
	switch x := v.(type) {
	case string:
		return be.KeySetValueString(key, f.ID, x)
	case bool:
		var n uint64
		if x {
			n = 1
		}
		return be.KeySetValue(key, f.ID, n)
	case *big.Int:
		if f.Wide {
			return be.KeySetValuePtr(key, f.ID, defs.ToBytes(x, w))
		}
		return be.KeySetValue(key, f.ID, defs.Uint64(x))
	case codec.Ternary:
		if f.Wide {
			return be.KeySetValueAndMaskPtr(key, f.ID, defs.ToBytes(x.Value, w), defs.ToBytes(x.Mask, w))
		}
		return be.KeySetValueAndMask(key, f.ID, defs.Uint64(x.Value), defs.Uint64(x.Mask))
	case codec.LPM:
		if f.Wide {
			return be.KeySetValueLPMPtr(key, f.ID, defs.ToBytes(x.Value, w), uint16(x.PrefixLen))
		}
		return be.KeySetValueLPM(key, f.ID, defs.Uint64(x.Value), uint16(x.PrefixLen))
	case codec.Range:
		if f.Wide {
			return be.KeySetValueRangePtr(key, f.ID, defs.ToBytes(x.Start, w), defs.ToBytes(x.End, w))
		}
		return be.KeySetValueRange(key, f.ID, defs.Uint64(x.Start), defs.Uint64(x.End))
	case codec.Optional:
		if f.Wide {
			return be.KeySetValueOptionalPtr(key, f.ID, defs.ToBytes(x.Value, w), x.IsValid)
		}
		return be.KeySetValueOptional(key, f.ID, defs.Uint64(x.Value), x.IsValid)
	}
	t.log.Error("key field %s: unexpected value %T", f.Name, v)
	return backend.InvalidArg
}

func (t *Table) setData(data backend.Handle, f *field.Descriptor, v codec.Value) backend.Status {
	be := t.be
	switch x := v.(type) {
	case *big.Int:
		if f.Wide {
			return be.DataSetValuePtr(data, f.ID, defs.ToBytes(x, f.Width))
		}
		return be.DataSetValue(data, f.ID, defs.Uint64(x))
	case []*big.Int:
		return be.DataSetValueArray(data, f.ID, toUint32s(x))
	case []bool:
		return be.DataSetValueBoolArray(data, f.ID, x)
	case []string:
		return be.DataSetValueStrArray(data, f.ID, strings.Join(x, " "))
	case float64:
		return be.DataSetFloat(data, f.ID, float32(x))
	case bool:
		return be.DataSetBool(data, f.ID, x)
	case string:
		return be.DataSetString(data, f.ID, x)
	case []codec.Record:
		return t.setContainer(data, f, x)
	}
	t.log.Error("data field %s: unexpected value %T", f.Name, v)
	return backend.InvalidArg
}

func (t *Table) setContainer(data backend.Handle, f *field.Descriptor, records []codec.Record) backend.Status {
	handles := make([]backend.Handle, 0, len(records))
	release := func() {
		for _, h := range handles {
			t.releaseData(h)
		}
	}
	for _, rec := range records {
		h, sts := t.be.DataAllocateContainer(t.schema.ID, f.ID)
		if !sts.OK() {
			release()
			return sts
		}
		handles = append(handles, h)
		for _, c := range f.Children {
			v, found := rec[c.Name]
			if !found {
				continue
			}
			if sts := t.setData(h, c, v); !sts.OK() {
				release()
				return sts
			}
		}
	}
	sts := t.be.DataSetValueDataFieldArray(data, f.ID, handles)
	if !sts.OK() {
		release()
	}
	return sts
}

// makeKey allocates a key object filled with the parsed fields. The
// returned release function must always be called.
func (t *Table) makeKey(fields []parsed) (backend.Handle, func(), error) {
	key, sts := t.be.KeyAllocate(t.schema.ID)
	if !sts.OK() {
		return backend.NilHandle, func() {}, t.fail("key allocate", sts)
	}
	release := func() { t.releaseKey(key) }
	for _, p := range fields {
		if sts := t.setKey(key, p.f, p.v); !sts.OK() {
			release()
			return backend.NilHandle, func() {}, t.fail("key field set "+p.f.Name, sts)
		}
	}
	return key, release, nil
}

// makeData allocates a data object for the action, or for the table when
// action is empty, filled with the parsed fields.
func (t *Table) makeData(action *actionRef, fields []parsed) (backend.Handle, func(), error) {
	var data backend.Handle
	var sts backend.Status
	if action != nil {
		data, sts = t.be.ActionDataAllocate(t.schema.ID, action.id)
	} else {
		data, sts = t.be.DataAllocate(t.schema.ID)
	}
	if !sts.OK() {
		return backend.NilHandle, func() {}, t.fail("data allocate", sts)
	}
	release := func() { t.releaseData(data) }
	for _, p := range fields {
		if sts := t.setData(data, p.f, p.v); !sts.OK() {
			release()
			return backend.NilHandle, func() {}, t.fail("data field set "+p.f.Name, sts)
		}
	}
	return data, release, nil
}

func (t *Table) allocKey() (backend.Handle, error) {
	key, sts := t.be.KeyAllocate(t.schema.ID)
	if !sts.OK() {
		return backend.NilHandle, t.fail("key allocate", sts)
	}
	return key, nil
}

func (t *Table) allocData() (backend.Handle, error) {
	data, sts := t.be.DataAllocate(t.schema.ID)
	if !sts.OK() {
		return backend.NilHandle, t.fail("data allocate", sts)
	}
	return data, nil
}

func (t *Table) releaseKey(key backend.Handle) {
	if sts := t.be.KeyDeallocate(key); !sts.OK() {
		t.log.Error("key deallocate failed. [%s]", t.be.ErrString(sts))
	}
}

func (t *Table) releaseData(data backend.Handle) {
	if sts := t.be.DataDeallocate(data); !sts.OK() {
		t.log.Error("data deallocate failed. [%s]", t.be.ErrString(sts))
	}
}

func (t *Table) readKey(key backend.Handle, f *field.Descriptor) (codec.Value, backend.Status) {
	be := t.be
	id := f.ID
	size := f.Bytes()
	if f.DataType == defs.String {
		return be.KeyGetValueString(key, id)
	}
	fromNative := func(v uint64) *big.Int { return new(big.Int).SetUint64(v) }
	fromBytes := func(b []byte) *big.Int { return defs.FromBytes(b, f.Width) }

	switch f.MatchType {
	case defs.Exact:
		if f.Wide {
			b, sts := be.KeyGetValuePtr(key, id, size)
			return fromBytes(b), sts
		}
		v, sts := be.KeyGetValue(key, id)
		return fromNative(v), sts
	case defs.Ternary:
		if f.Wide {
			v, m, sts := be.KeyGetValueAndMaskPtr(key, id, size)
			return codec.Ternary{Value: fromBytes(v), Mask: fromBytes(m)}, sts
		}
		v, m, sts := be.KeyGetValueAndMask(key, id)
		return codec.Ternary{Value: fromNative(v), Mask: fromNative(m)}, sts
	case defs.LPM:
		if f.Wide {
			v, p, sts := be.KeyGetValueLPMPtr(key, id, size)
			return codec.LPM{Value: fromBytes(v), PrefixLen: int(p)}, sts
		}
		v, p, sts := be.KeyGetValueLPM(key, id)
		return codec.LPM{Value: fromNative(v), PrefixLen: int(p)}, sts
	case defs.Range:
		if f.Wide {
			s, e, sts := be.KeyGetValueRangePtr(key, id, size)
			return codec.Range{Start: fromBytes(s), End: fromBytes(e)}, sts
		}
		s, e, sts := be.KeyGetValueRange(key, id)
		return codec.Range{Start: fromNative(s), End: fromNative(e)}, sts
	case defs.Optional:
		if f.Wide {
			v, valid, sts := be.KeyGetValueOptionalPtr(key, id, size)
			return codec.Optional{Value: fromBytes(v), IsValid: valid}, sts
		}
		v, valid, sts := be.KeyGetValueOptional(key, id)
		return codec.Optional{Value: fromNative(v), IsValid: valid}, sts
	}
	return nil, backend.NotSupported
}

// readKeyFields returns every key field of a key object.
func (t *Table) readKeyFields(key backend.Handle) (Values, error) {
	out := make(Values, len(t.schema.KeyFields))
	for _, f := range t.schema.KeyFields {
		v, sts := t.readKey(key, f)
		if !sts.OK() {
			return nil, t.fail("key field get "+f.Name, sts)
		}
		out[f.Name] = v
	}
	return out, nil
}

func bigInts(values []uint64) []*big.Int {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		out[i] = new(big.Int).SetUint64(v)
	}
	return out
}

func (t *Table) readData(data backend.Handle, f *field.Descriptor) (codec.Value, backend.Status) {
	be := t.be
	id := f.ID
	switch f.DataType {
	case defs.UInt, defs.ByteStream:
		if f.IsRegisterData() {
			n, sts := be.DataGetValueU64ArraySize(data, id)
			if !sts.OK() {
				return nil, sts
			}
			values := make([]uint64, n)
			sts = be.DataGetValueU64Array(data, id, values)
			return bigInts(values), sts
		}
		if f.Wide {
			b, sts := be.DataGetValuePtr(data, id, f.Bytes())
			return defs.FromBytes(b, f.Width), sts
		}
		v, sts := be.DataGetValue(data, id)
		return new(big.Int).SetUint64(v), sts
	case defs.IntArray:
		n, sts := be.DataGetValueArraySize(data, id)
		if !sts.OK() {
			return nil, sts
		}
		values := make([]uint32, n)
		sts = be.DataGetValueArray(data, id, values)
		out := make([]*big.Int, n)
		for i, v := range values {
			out[i] = big.NewInt(int64(v))
		}
		return out, sts
	case defs.BoolArray:
		n, sts := be.DataGetValueBoolArraySize(data, id)
		if !sts.OK() {
			return nil, sts
		}
		values := make([]bool, n)
		sts = be.DataGetValueBoolArray(data, id, values)
		return values, sts
	case defs.StringArray:
		s, sts := be.DataGetValueStrArray(data, id)
		return strings.Fields(s), sts
	case defs.Float:
		v, sts := be.DataGetFloat(data, id)
		return float64(v), sts
	case defs.Bool:
		return be.DataGetBool(data, id)
	case defs.String:
		return be.DataGetString(data, id)
	case defs.Container:
		return t.readContainer(data, f)
	}
	return nil, backend.NotSupported
}

func (t *Table) readContainer(data backend.Handle, f *field.Descriptor) (codec.Value, backend.Status) {
	n, sts := t.be.DataGetValueDataFieldArraySize(data, f.ID)
	if !sts.OK() {
		return nil, sts
	}
	// the records are owned by data
	handles := make([]backend.Handle, n)
	if sts := t.be.DataGetValueDataFieldArray(data, f.ID, handles); !sts.OK() {
		return nil, sts
	}
	records := make([]codec.Record, 0, n)
	for _, h := range handles {
		rec := codec.Record{}
		for _, c := range f.Children {
			rec[c.Name] = t.readDataValue(h, c)
		}
		records = append(records, rec)
	}
	return records, backend.Success
}

// readDataValue returns the value of a data field, or the backend message
// when it could not be read.
func (t *Table) readDataValue(data backend.Handle, f *field.Descriptor) codec.Value {
	v, sts := t.readData(data, f)
	if !sts.OK() {
		return t.be.ErrString(sts)
	}
	return v
}

// readDataFields returns the action and the data fields of a data object.
func (t *Table) readDataFields(data backend.Handle) (string, Values, error) {
	fields := t.schema.DataFields
	action := ""
	if len(t.schema.Actions) > 0 {
		id, sts := t.be.DataActionID(data)
		if !sts.OK() {
			return "", nil, t.fail("data action id get", sts)
		}
		a := t.schema.ActionByID(id)
		if a == nil {
			// default entries without action
			return "", Values{}, nil
		}
		action = a.Name
		fields = a.DataFields
	}
	out := make(Values, len(fields))
	for _, f := range fields {
		out[f.Name] = t.readDataValue(data, f)
	}
	return action, out, nil
}

// actionRef resolves an action name.
type actionRef struct {
	id   uint32
	name string
}

func (t *Table) resolveAction(action string) (*actionRef, []*field.Descriptor, error) {
	fields, err := t.schema.Data(action)
	if err != nil {
		return nil, nil, err
	}
	if action == "" {
		return nil, fields, nil
	}
	a := t.schema.Action(action)
	return &actionRef{id: a.ID, name: a.Name}, fields, nil
}
