package swtarget

import (
	"math/big"
	"strings"

	"github.com/tdictl/tdid/tdi/backend"
	"github.com/tdictl/tdid/tdi/defs"
)

type dataValue struct {
	bytes   []byte
	ints    []uint32
	bools   []bool
	strs    []string
	str     string
	f       float32
	b       bool
	records []*dataObj
}

func (v *dataValue) clone() *dataValue {
	c := &dataValue{
		bytes: append([]byte(nil), v.bytes...),
		ints:  append([]uint32(nil), v.ints...),
		bools: append([]bool(nil), v.bools...),
		strs:  append([]string(nil), v.strs...),
		str:   v.str,
		f:     v.f,
		b:     v.b,
	}
	for _, r := range v.records {
		c.records = append(c.records, r.clone())
	}
	return c
}

// dataObj is the data of an entry, or one record of a container field when
// container is set.
type dataObj struct {
	tbl       uint32
	action    uint32
	container uint32
	fields    map[uint32]*dataValue
	// handles handed out by container gets, released along with the object
	owned []backend.Handle
}

func newDataObj(tbl, action uint32) *dataObj {
	return &dataObj{tbl: tbl, action: action, fields: make(map[uint32]*dataValue)}
}

func (d *dataObj) clone() *dataObj {
	c := newDataObj(d.tbl, d.action)
	c.container = d.container
	for id, v := range d.fields {
		c.fields[id] = v.clone()
	}
	return c
}

// defaultValue returns the value a field takes when not given.
func defaultValue(di *dataInfo) *dataValue {
	v := &dataValue{}
	if di.dtype.Integer() {
		v.bytes = defs.ToBytes(new(big.Int).SetUint64(di.defaultValue), di.width)
	}
	return v
}

// complete fills the fields not set with their default value.
func complete(ti *tableInfo, d *dataObj) {
	list := ti.data
	if a, found := ti.actByID[d.action]; found {
		list = a.data
	}
	if d.container != 0 {
		if ci := ti.allByID[d.container]; ci != nil {
			list = ci.children
		}
	}
	for _, di := range list {
		v, found := d.fields[di.id]
		if !found {
			d.fields[di.id] = defaultValue(di)
			continue
		}
		for _, r := range v.records {
			complete(ti, r)
		}
	}
}

func (t *Target) dataField(data backend.Handle, field uint32) (*dataObj, *dataInfo, backend.Status) {
	obj, found := t.objects[data].(*dataObj)
	if !found {
		return nil, nil, backend.InvalidArg
	}
	di, sts := t.dataInfo(obj.tbl, field, obj.action)
	if !sts.OK() {
		return nil, nil, sts
	}
	return obj, di, backend.Success
}

func (t *Target) setData(data backend.Handle, field uint32, accept func(defs.DataType) bool, fill func(*dataInfo, *dataValue) backend.Status) backend.Status {
	t.Lock()
	defer t.Unlock()
	obj, di, sts := t.dataField(data, field)
	if !sts.OK() {
		return sts
	}
	if !accept(di.dtype) {
		return backend.InvalidArg
	}
	v := &dataValue{}
	if sts := fill(di, v); !sts.OK() {
		return sts
	}
	obj.fields[field] = v
	return backend.Success
}

// getData returns a copy of an active field value.
func (t *Target) getData(data backend.Handle, field uint32, accept func(defs.DataType) bool) (*dataInfo, *dataValue, backend.Status) {
	t.Lock()
	defer t.Unlock()
	obj, di, sts := t.dataField(data, field)
	if !sts.OK() {
		return nil, nil, sts
	}
	if !accept(di.dtype) {
		return nil, nil, backend.InvalidArg
	}
	v, found := obj.fields[field]
	if !found {
		return nil, nil, backend.ObjectNotFound
	}
	return di, v.clone(), backend.Success
}

func is(types ...defs.DataType) func(defs.DataType) bool {
	return func(dt defs.DataType) bool {
		for _, t := range types {
			if t == dt {
				return true
			}
		}
		return false
	}
}

// DataAllocate implements backend.Data.
func (t *Target) DataAllocate(tbl uint32) (backend.Handle, backend.Status) {
	t.Lock()
	defer t.Unlock()
	if _, sts := t.info(tbl); !sts.OK() {
		return backend.NilHandle, sts
	}
	return t.alloc(newDataObj(tbl, 0)), backend.Success
}

// ActionDataAllocate implements backend.Data.
func (t *Target) ActionDataAllocate(tbl, action uint32) (backend.Handle, backend.Status) {
	t.Lock()
	defer t.Unlock()
	if _, sts := t.action(tbl, action); !sts.OK() {
		return backend.NilHandle, sts
	}
	return t.alloc(newDataObj(tbl, action)), backend.Success
}

// DataAllocateContainer implements backend.Data.
func (t *Target) DataAllocateContainer(tbl, field uint32) (backend.Handle, backend.Status) {
	t.Lock()
	defer t.Unlock()
	di, sts := t.dataInfo(tbl, field, 0)
	if !sts.OK() {
		return backend.NilHandle, sts
	}
	if di.dtype != defs.Container {
		return backend.NilHandle, backend.InvalidArg
	}
	obj := newDataObj(tbl, 0)
	obj.container = field
	return t.alloc(obj), backend.Success
}

func (t *Target) releaseData(h backend.Handle) {
	obj, found := t.objects[h].(*dataObj)
	if !found {
		return
	}
	for _, o := range obj.owned {
		t.releaseData(o)
	}
	delete(t.objects, h)
}

// DataDeallocate implements backend.Data.
func (t *Target) DataDeallocate(data backend.Handle) backend.Status {
	t.Lock()
	defer t.Unlock()
	if _, found := t.objects[data].(*dataObj); !found {
		return backend.InvalidArg
	}
	t.releaseData(data)
	return backend.Success
}

// DataActionID implements backend.Data.
func (t *Target) DataActionID(data backend.Handle) (uint32, backend.Status) {
	t.Lock()
	defer t.Unlock()
	obj, found := t.objects[data].(*dataObj)
	if !found {
		return 0, backend.InvalidArg
	}
	return obj.action, backend.Success
}

// DataFieldIsActive implements backend.Data.
func (t *Target) DataFieldIsActive(data backend.Handle, field uint32) (bool, backend.Status) {
	t.Lock()
	defer t.Unlock()
	obj, _, sts := t.dataField(data, field)
	if !sts.OK() {
		return false, sts
	}
	_, active := obj.fields[field]
	return active, backend.Success
}

// DataSetValue implements backend.Data.
func (t *Target) DataSetValue(data backend.Handle, field uint32, value uint64) backend.Status {
	return t.setData(data, field, defs.DataType.Integer, func(di *dataInfo, v *dataValue) (sts backend.Status) {
		v.bytes, sts = nativeBytes(value, di.width)
		return sts
	})
}

// DataSetValuePtr implements backend.Data.
func (t *Target) DataSetValuePtr(data backend.Handle, field uint32, value []byte) backend.Status {
	return t.setData(data, field, defs.DataType.Integer, func(di *dataInfo, v *dataValue) (sts backend.Status) {
		v.bytes, sts = ptrBytes(value, di.width)
		return sts
	})
}

// DataSetValueArray implements backend.Data.
func (t *Target) DataSetValueArray(data backend.Handle, field uint32, value []uint32) backend.Status {
	return t.setData(data, field, is(defs.IntArray), func(di *dataInfo, v *dataValue) backend.Status {
		for _, e := range value {
			if di.width < 32 && uint64(e)>>uint(di.width) != 0 {
				return backend.InvalidArg
			}
		}
		v.ints = append([]uint32{}, value...)
		return backend.Success
	})
}

// DataSetValueBoolArray implements backend.Data.
func (t *Target) DataSetValueBoolArray(data backend.Handle, field uint32, value []bool) backend.Status {
	return t.setData(data, field, is(defs.BoolArray), func(di *dataInfo, v *dataValue) backend.Status {
		v.bools = append([]bool{}, value...)
		return backend.Success
	})
}

// DataSetValueStrArray implements backend.Data.
func (t *Target) DataSetValueStrArray(data backend.Handle, field uint32, value string) backend.Status {
	return t.setData(data, field, is(defs.StringArray), func(di *dataInfo, v *dataValue) backend.Status {
		v.strs = strings.Fields(value)
		for _, s := range v.strs {
			if len(di.choices) > 0 && !contains(di.choices, s) {
				return backend.InvalidArg
			}
		}
		return backend.Success
	})
}

// DataSetFloat implements backend.Data.
func (t *Target) DataSetFloat(data backend.Handle, field uint32, value float32) backend.Status {
	return t.setData(data, field, is(defs.Float), func(di *dataInfo, v *dataValue) backend.Status {
		v.f = value
		return backend.Success
	})
}

// DataSetBool implements backend.Data.
func (t *Target) DataSetBool(data backend.Handle, field uint32, value bool) backend.Status {
	return t.setData(data, field, is(defs.Bool), func(di *dataInfo, v *dataValue) backend.Status {
		v.b = value
		return backend.Success
	})
}

// DataSetString implements backend.Data.
func (t *Target) DataSetString(data backend.Handle, field uint32, value string) backend.Status {
	return t.setData(data, field, is(defs.String), func(di *dataInfo, v *dataValue) backend.Status {
		if len(di.choices) > 0 && !contains(di.choices, value) {
			return backend.InvalidArg
		}
		v.str = value
		return backend.Success
	})
}

// DataSetValueDataFieldArray implements backend.Data. The records become
// part of the data object and their handles are released.
func (t *Target) DataSetValueDataFieldArray(data backend.Handle, field uint32, records []backend.Handle) backend.Status {
	t.Lock()
	defer t.Unlock()
	obj, di, sts := t.dataField(data, field)
	if !sts.OK() {
		return sts
	}
	if di.dtype != defs.Container {
		return backend.InvalidArg
	}
	v := &dataValue{records: []*dataObj{}}
	for _, h := range records {
		r, found := t.objects[h].(*dataObj)
		if !found || r.container != field {
			return backend.InvalidArg
		}
		v.records = append(v.records, r.clone())
	}
	for _, h := range records {
		t.releaseData(h)
	}
	obj.fields[field] = v
	return backend.Success
}

// DataGetValue implements backend.Data.
func (t *Target) DataGetValue(data backend.Handle, field uint32) (uint64, backend.Status) {
	di, v, sts := t.getData(data, field, defs.DataType.Integer)
	if !sts.OK() {
		return 0, sts
	}
	return nativeValue(v.bytes, di.width), sts
}

// DataGetValuePtr implements backend.Data.
func (t *Target) DataGetValuePtr(data backend.Handle, field uint32, size int) ([]byte, backend.Status) {
	di, v, sts := t.getData(data, field, defs.DataType.Integer)
	if !sts.OK() {
		return nil, sts
	}
	if size != defs.Bytes(di.width) {
		return nil, backend.InvalidArg
	}
	return defs.ToBytes(defs.FromBytes(v.bytes, di.width), di.width), sts
}

// DataGetValueU64ArraySize implements backend.Data. The software target has
// a single pipe, so register values come back as one element arrays.
func (t *Target) DataGetValueU64ArraySize(data backend.Handle, field uint32) (int, backend.Status) {
	_, _, sts := t.getData(data, field, defs.DataType.Integer)
	if !sts.OK() {
		return 0, sts
	}
	return 1, sts
}

// DataGetValueU64Array implements backend.Data.
func (t *Target) DataGetValueU64Array(data backend.Handle, field uint32, value []uint64) backend.Status {
	di, v, sts := t.getData(data, field, defs.DataType.Integer)
	if !sts.OK() {
		return sts
	}
	if len(value) < 1 {
		return backend.InvalidArg
	}
	value[0] = nativeValue(v.bytes, di.width)
	return sts
}

// DataGetValueArraySize implements backend.Data.
func (t *Target) DataGetValueArraySize(data backend.Handle, field uint32) (int, backend.Status) {
	_, v, sts := t.getData(data, field, is(defs.IntArray))
	if !sts.OK() {
		return 0, sts
	}
	return len(v.ints), sts
}

// DataGetValueArray implements backend.Data.
func (t *Target) DataGetValueArray(data backend.Handle, field uint32, value []uint32) backend.Status {
	_, v, sts := t.getData(data, field, is(defs.IntArray))
	if !sts.OK() {
		return sts
	}
	if len(value) < len(v.ints) {
		return backend.InvalidArg
	}
	copy(value, v.ints)
	return sts
}

// DataGetValueBoolArraySize implements backend.Data.
func (t *Target) DataGetValueBoolArraySize(data backend.Handle, field uint32) (int, backend.Status) {
	_, v, sts := t.getData(data, field, is(defs.BoolArray))
	if !sts.OK() {
		return 0, sts
	}
	return len(v.bools), sts
}

// DataGetValueBoolArray implements backend.Data.
func (t *Target) DataGetValueBoolArray(data backend.Handle, field uint32, value []bool) backend.Status {
	_, v, sts := t.getData(data, field, is(defs.BoolArray))
	if !sts.OK() {
		return sts
	}
	if len(value) < len(v.bools) {
		return backend.InvalidArg
	}
	copy(value, v.bools)
	return sts
}

// DataGetValueStrArraySize implements backend.Data.
func (t *Target) DataGetValueStrArraySize(data backend.Handle, field uint32) (int, backend.Status) {
	_, v, sts := t.getData(data, field, is(defs.StringArray))
	if !sts.OK() {
		return 0, sts
	}
	return len(strings.Join(v.strs, " ")), sts
}

// DataGetValueStrArray implements backend.Data. Elements are space
// separated.
func (t *Target) DataGetValueStrArray(data backend.Handle, field uint32) (string, backend.Status) {
	_, v, sts := t.getData(data, field, is(defs.StringArray))
	if !sts.OK() {
		return "", sts
	}
	return strings.Join(v.strs, " "), sts
}

// DataGetFloat implements backend.Data.
func (t *Target) DataGetFloat(data backend.Handle, field uint32) (float32, backend.Status) {
	_, v, sts := t.getData(data, field, is(defs.Float))
	if !sts.OK() {
		return 0, sts
	}
	return v.f, sts
}

// DataGetBool implements backend.Data.
func (t *Target) DataGetBool(data backend.Handle, field uint32) (bool, backend.Status) {
	_, v, sts := t.getData(data, field, is(defs.Bool))
	if !sts.OK() {
		return false, sts
	}
	return v.b, sts
}

// DataGetStringSize implements backend.Data.
func (t *Target) DataGetStringSize(data backend.Handle, field uint32) (int, backend.Status) {
	_, v, sts := t.getData(data, field, is(defs.String))
	if !sts.OK() {
		return 0, sts
	}
	return len(v.str), sts
}

// DataGetString implements backend.Data.
func (t *Target) DataGetString(data backend.Handle, field uint32) (string, backend.Status) {
	_, v, sts := t.getData(data, field, is(defs.String))
	if !sts.OK() {
		return "", sts
	}
	return v.str, sts
}

// DataGetValueDataFieldArraySize implements backend.Data.
func (t *Target) DataGetValueDataFieldArraySize(data backend.Handle, field uint32) (int, backend.Status) {
	_, v, sts := t.getData(data, field, is(defs.Container))
	if !sts.OK() {
		return 0, sts
	}
	return len(v.records), sts
}

// DataGetValueDataFieldArray implements backend.Data. The returned handles
// belong to data and are released with it.
func (t *Target) DataGetValueDataFieldArray(data backend.Handle, field uint32, records []backend.Handle) backend.Status {
	t.Lock()
	defer t.Unlock()
	obj, di, sts := t.dataField(data, field)
	if !sts.OK() {
		return sts
	}
	if di.dtype != defs.Container {
		return backend.InvalidArg
	}
	v, found := obj.fields[field]
	if !found {
		return backend.ObjectNotFound
	}
	if len(records) < len(v.records) {
		return backend.InvalidArg
	}
	for i, r := range v.records {
		h := t.alloc(r.clone())
		obj.owned = append(obj.owned, h)
		records[i] = h
	}
	return backend.Success
}

type flagsObj struct {
	value uint64
}

// FlagsCreate implements backend.Flags.
func (t *Target) FlagsCreate(value uint64) (backend.Handle, backend.Status) {
	t.Lock()
	defer t.Unlock()
	return t.alloc(&flagsObj{value: value}), backend.Success
}

// FlagsSetValue implements backend.Flags.
func (t *Target) FlagsSetValue(flags backend.Handle, flag uint64, set bool) backend.Status {
	t.Lock()
	defer t.Unlock()
	f, found := t.objects[flags].(*flagsObj)
	if !found {
		return backend.InvalidArg
	}
	if set {
		f.value |= flag
	} else {
		f.value &^= flag
	}
	return backend.Success
}

// FlagsGetValue implements backend.Flags.
func (t *Target) FlagsGetValue(flags backend.Handle) (uint64, backend.Status) {
	t.Lock()
	defer t.Unlock()
	f, found := t.objects[flags].(*flagsObj)
	if !found {
		return 0, backend.InvalidArg
	}
	return f.value, backend.Success
}

// FlagsDelete implements backend.Flags.
func (t *Target) FlagsDelete(flags backend.Handle) backend.Status {
	t.Lock()
	defer t.Unlock()
	if _, found := t.objects[flags].(*flagsObj); !found {
		return backend.InvalidArg
	}
	return t.release(flags)
}

// flagsValue reads a flags handle, NilHandle meaning no flags.
func (t *Target) flagsValue(flags backend.Handle) (defs.Flags, backend.Status) {
	if flags == backend.NilHandle {
		return 0, backend.Success
	}
	f, found := t.objects[flags].(*flagsObj)
	if !found {
		return 0, backend.InvalidArg
	}
	return defs.Flags(f.value), backend.Success
}
