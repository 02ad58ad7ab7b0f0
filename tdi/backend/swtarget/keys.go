package swtarget

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/tdictl/tdid/tdi/backend"
	"github.com/tdictl/tdid/tdi/defs"
)

// keyValue holds every part a match type may use. Integers are stored as
// byte arrays sized to the field width.
type keyValue struct {
	value     []byte
	mask      []byte // mask (ternary) or end (range)
	prefixLen uint16
	isValid   bool
	str       string
}

type keyObj struct {
	tbl    uint32
	fields map[uint32]*keyValue
}

func newKeyObj(tbl uint32) *keyObj {
	return &keyObj{tbl: tbl, fields: make(map[uint32]*keyValue)}
}

func (k *keyObj) clone() *keyObj {
	c := newKeyObj(k.tbl)
	for id, v := range k.fields {
		cv := *v
		cv.value = append([]byte(nil), v.value...)
		cv.mask = append([]byte(nil), v.mask...)
		c.fields[id] = &cv
	}
	return c
}

// canonical returns a string identifying the key among the table entries.
// Fields never set count as zero, i.e. wildcards for ternary fields.
func (k *keyObj) canonical(ti *tableInfo) string {
	var b strings.Builder
	for _, ki := range ti.keys {
		v, found := k.fields[ki.id]
		if !found {
			v = &keyValue{}
		}
		val := defs.FromBytes(v.value, ki.width)
		switch ki.match {
		case defs.Ternary:
			mask := defs.FromBytes(v.mask, ki.width)
			fmt.Fprintf(&b, "%d:%x/%x;", ki.id, new(big.Int).And(val, mask), mask)
		case defs.Range:
			fmt.Fprintf(&b, "%d:%x-%x;", ki.id, val, defs.FromBytes(v.mask, ki.width))
		case defs.LPM:
			fmt.Fprintf(&b, "%d:%x/%d;", ki.id, val, v.prefixLen)
		case defs.Optional:
			fmt.Fprintf(&b, "%d:%x,%t;", ki.id, val, v.isValid)
		default:
			if ki.dtype == defs.String {
				fmt.Fprintf(&b, "%d:%q;", ki.id, v.str)
			} else {
				fmt.Fprintf(&b, "%d:%x;", ki.id, val)
			}
		}
	}
	return b.String()
}

func nativeBytes(v uint64, width int) ([]byte, backend.Status) {
	if width < defs.NativeWidth && v>>uint(width) != 0 {
		return nil, backend.InvalidArg
	}
	return defs.ToBytes(new(big.Int).SetUint64(v), width), backend.Success
}

func ptrBytes(b []byte, width int) ([]byte, backend.Status) {
	if len(b) != defs.Bytes(width) {
		return nil, backend.InvalidArg
	}
	return append([]byte(nil), b...), backend.Success
}

func nativeValue(b []byte, width int) uint64 {
	return defs.Uint64(defs.FromBytes(b, width))
}

// keyField resolves the key object and the field metadata.
func (t *Target) keyField(key backend.Handle, field uint32) (*keyObj, *keyInfo, backend.Status) {
	obj, found := t.objects[key].(*keyObj)
	if !found {
		return nil, nil, backend.InvalidArg
	}
	ki, sts := t.key(obj.tbl, field)
	if !sts.OK() {
		return nil, nil, sts
	}
	return obj, ki, backend.Success
}

func (t *Target) setKey(key backend.Handle, field uint32, match defs.MatchType, fill func(*keyInfo, *keyValue) backend.Status) backend.Status {
	t.Lock()
	defer t.Unlock()
	obj, ki, sts := t.keyField(key, field)
	if !sts.OK() {
		return sts
	}
	if ki.match != match {
		return backend.InvalidArg
	}
	v := &keyValue{}
	if sts := fill(ki, v); !sts.OK() {
		return sts
	}
	obj.fields[field] = v
	return backend.Success
}

func (t *Target) getKey(key backend.Handle, field uint32, match defs.MatchType) (*keyInfo, *keyValue, backend.Status) {
	t.Lock()
	defer t.Unlock()
	obj, ki, sts := t.keyField(key, field)
	if !sts.OK() {
		return nil, nil, sts
	}
	if ki.match != match {
		return nil, nil, backend.InvalidArg
	}
	v, found := obj.fields[field]
	if !found {
		v = &keyValue{}
	}
	return ki, v, backend.Success
}

// KeyAllocate implements backend.Keys.
func (t *Target) KeyAllocate(tbl uint32) (backend.Handle, backend.Status) {
	t.Lock()
	defer t.Unlock()
	if _, sts := t.info(tbl); !sts.OK() {
		return backend.NilHandle, sts
	}
	return t.alloc(newKeyObj(tbl)), backend.Success
}

// KeyDeallocate implements backend.Keys.
func (t *Target) KeyDeallocate(key backend.Handle) backend.Status {
	t.Lock()
	defer t.Unlock()
	if _, found := t.objects[key].(*keyObj); !found {
		return backend.InvalidArg
	}
	return t.release(key)
}

// KeySetValue implements backend.Keys.
func (t *Target) KeySetValue(key backend.Handle, field uint32, value uint64) backend.Status {
	return t.setKey(key, field, defs.Exact, func(ki *keyInfo, v *keyValue) (sts backend.Status) {
		if ki.dtype == defs.String {
			return backend.InvalidArg
		}
		v.value, sts = nativeBytes(value, ki.width)
		return sts
	})
}

// KeySetValuePtr implements backend.Keys.
func (t *Target) KeySetValuePtr(key backend.Handle, field uint32, value []byte) backend.Status {
	return t.setKey(key, field, defs.Exact, func(ki *keyInfo, v *keyValue) (sts backend.Status) {
		v.value, sts = ptrBytes(value, ki.width)
		return sts
	})
}

// KeySetValueString implements backend.Keys.
func (t *Target) KeySetValueString(key backend.Handle, field uint32, value string) backend.Status {
	return t.setKey(key, field, defs.Exact, func(ki *keyInfo, v *keyValue) backend.Status {
		if ki.dtype != defs.String {
			return backend.InvalidArg
		}
		if len(ki.choices) > 0 && !contains(ki.choices, value) {
			return backend.InvalidArg
		}
		v.str = value
		return backend.Success
	})
}

// KeySetValueAndMask implements backend.Keys.
func (t *Target) KeySetValueAndMask(key backend.Handle, field uint32, value, mask uint64) backend.Status {
	return t.setKey(key, field, defs.Ternary, func(ki *keyInfo, v *keyValue) (sts backend.Status) {
		if v.value, sts = nativeBytes(value, ki.width); !sts.OK() {
			return sts
		}
		v.mask, sts = nativeBytes(mask, ki.width)
		return sts
	})
}

// KeySetValueAndMaskPtr implements backend.Keys.
func (t *Target) KeySetValueAndMaskPtr(key backend.Handle, field uint32, value, mask []byte) backend.Status {
	return t.setKey(key, field, defs.Ternary, func(ki *keyInfo, v *keyValue) (sts backend.Status) {
		if v.value, sts = ptrBytes(value, ki.width); !sts.OK() {
			return sts
		}
		v.mask, sts = ptrBytes(mask, ki.width)
		return sts
	})
}

// KeySetValueRange implements backend.Keys.
func (t *Target) KeySetValueRange(key backend.Handle, field uint32, start, end uint64) backend.Status {
	return t.setKey(key, field, defs.Range, func(ki *keyInfo, v *keyValue) (sts backend.Status) {
		if start > end {
			return backend.InvalidArg
		}
		if v.value, sts = nativeBytes(start, ki.width); !sts.OK() {
			return sts
		}
		v.mask, sts = nativeBytes(end, ki.width)
		return sts
	})
}

// KeySetValueRangePtr implements backend.Keys.
func (t *Target) KeySetValueRangePtr(key backend.Handle, field uint32, start, end []byte) backend.Status {
	return t.setKey(key, field, defs.Range, func(ki *keyInfo, v *keyValue) (sts backend.Status) {
		if v.value, sts = ptrBytes(start, ki.width); !sts.OK() {
			return sts
		}
		v.mask, sts = ptrBytes(end, ki.width)
		return sts
	})
}

// KeySetValueLPM implements backend.Keys.
func (t *Target) KeySetValueLPM(key backend.Handle, field uint32, value uint64, prefixLen uint16) backend.Status {
	return t.setKey(key, field, defs.LPM, func(ki *keyInfo, v *keyValue) (sts backend.Status) {
		if int(prefixLen) > ki.width {
			return backend.InvalidArg
		}
		v.prefixLen = prefixLen
		v.value, sts = nativeBytes(value, ki.width)
		return sts
	})
}

// KeySetValueLPMPtr implements backend.Keys.
func (t *Target) KeySetValueLPMPtr(key backend.Handle, field uint32, value []byte, prefixLen uint16) backend.Status {
	return t.setKey(key, field, defs.LPM, func(ki *keyInfo, v *keyValue) (sts backend.Status) {
		if int(prefixLen) > ki.width {
			return backend.InvalidArg
		}
		v.prefixLen = prefixLen
		v.value, sts = ptrBytes(value, ki.width)
		return sts
	})
}

// KeySetValueOptional implements backend.Keys.
func (t *Target) KeySetValueOptional(key backend.Handle, field uint32, value uint64, isValid bool) backend.Status {
	return t.setKey(key, field, defs.Optional, func(ki *keyInfo, v *keyValue) (sts backend.Status) {
		v.isValid = isValid
		v.value, sts = nativeBytes(value, ki.width)
		return sts
	})
}

// KeySetValueOptionalPtr implements backend.Keys.
func (t *Target) KeySetValueOptionalPtr(key backend.Handle, field uint32, value []byte, isValid bool) backend.Status {
	return t.setKey(key, field, defs.Optional, func(ki *keyInfo, v *keyValue) (sts backend.Status) {
		v.isValid = isValid
		v.value, sts = ptrBytes(value, ki.width)
		return sts
	})
}

// KeyGetValue implements backend.Keys.
func (t *Target) KeyGetValue(key backend.Handle, field uint32) (uint64, backend.Status) {
	ki, v, sts := t.getKey(key, field, defs.Exact)
	if !sts.OK() {
		return 0, sts
	}
	return nativeValue(v.value, ki.width), sts
}

// KeyGetValuePtr implements backend.Keys.
func (t *Target) KeyGetValuePtr(key backend.Handle, field uint32, size int) ([]byte, backend.Status) {
	ki, v, sts := t.getKey(key, field, defs.Exact)
	if !sts.OK() {
		return nil, sts
	}
	if size != defs.Bytes(ki.width) {
		return nil, backend.InvalidArg
	}
	return defs.ToBytes(defs.FromBytes(v.value, ki.width), ki.width), sts
}

// KeyGetValueStringSize implements backend.Keys.
func (t *Target) KeyGetValueStringSize(key backend.Handle, field uint32) (int, backend.Status) {
	_, v, sts := t.getKey(key, field, defs.Exact)
	if !sts.OK() {
		return 0, sts
	}
	return len(v.str), sts
}

// KeyGetValueString implements backend.Keys.
func (t *Target) KeyGetValueString(key backend.Handle, field uint32) (string, backend.Status) {
	ki, v, sts := t.getKey(key, field, defs.Exact)
	if !sts.OK() {
		return "", sts
	}
	if ki.dtype != defs.String {
		return "", backend.InvalidArg
	}
	return v.str, sts
}

// KeyGetValueAndMask implements backend.Keys.
func (t *Target) KeyGetValueAndMask(key backend.Handle, field uint32) (uint64, uint64, backend.Status) {
	ki, v, sts := t.getKey(key, field, defs.Ternary)
	if !sts.OK() {
		return 0, 0, sts
	}
	return nativeValue(v.value, ki.width), nativeValue(v.mask, ki.width), sts
}

// KeyGetValueAndMaskPtr implements backend.Keys.
func (t *Target) KeyGetValueAndMaskPtr(key backend.Handle, field uint32, size int) ([]byte, []byte, backend.Status) {
	ki, v, sts := t.getKey(key, field, defs.Ternary)
	if !sts.OK() {
		return nil, nil, sts
	}
	if size != defs.Bytes(ki.width) {
		return nil, nil, backend.InvalidArg
	}
	return defs.ToBytes(defs.FromBytes(v.value, ki.width), ki.width), defs.ToBytes(defs.FromBytes(v.mask, ki.width), ki.width), sts
}

// KeyGetValueRange implements backend.Keys.
func (t *Target) KeyGetValueRange(key backend.Handle, field uint32) (uint64, uint64, backend.Status) {
	ki, v, sts := t.getKey(key, field, defs.Range)
	if !sts.OK() {
		return 0, 0, sts
	}
	return nativeValue(v.value, ki.width), nativeValue(v.mask, ki.width), sts
}

// KeyGetValueRangePtr implements backend.Keys.
func (t *Target) KeyGetValueRangePtr(key backend.Handle, field uint32, size int) ([]byte, []byte, backend.Status) {
	ki, v, sts := t.getKey(key, field, defs.Range)
	if !sts.OK() {
		return nil, nil, sts
	}
	if size != defs.Bytes(ki.width) {
		return nil, nil, backend.InvalidArg
	}
	return defs.ToBytes(defs.FromBytes(v.value, ki.width), ki.width), defs.ToBytes(defs.FromBytes(v.mask, ki.width), ki.width), sts
}

// KeyGetValueLPM implements backend.Keys.
func (t *Target) KeyGetValueLPM(key backend.Handle, field uint32) (uint64, uint16, backend.Status) {
	ki, v, sts := t.getKey(key, field, defs.LPM)
	if !sts.OK() {
		return 0, 0, sts
	}
	return nativeValue(v.value, ki.width), v.prefixLen, sts
}

// KeyGetValueLPMPtr implements backend.Keys.
func (t *Target) KeyGetValueLPMPtr(key backend.Handle, field uint32, size int) ([]byte, uint16, backend.Status) {
	ki, v, sts := t.getKey(key, field, defs.LPM)
	if !sts.OK() {
		return nil, 0, sts
	}
	if size != defs.Bytes(ki.width) {
		return nil, 0, backend.InvalidArg
	}
	return defs.ToBytes(defs.FromBytes(v.value, ki.width), ki.width), v.prefixLen, sts
}

// KeyGetValueOptional implements backend.Keys.
func (t *Target) KeyGetValueOptional(key backend.Handle, field uint32) (uint64, bool, backend.Status) {
	ki, v, sts := t.getKey(key, field, defs.Optional)
	if !sts.OK() {
		return 0, false, sts
	}
	return nativeValue(v.value, ki.width), v.isValid, sts
}

// KeyGetValueOptionalPtr implements backend.Keys.
func (t *Target) KeyGetValueOptionalPtr(key backend.Handle, field uint32, size int) ([]byte, bool, backend.Status) {
	ki, v, sts := t.getKey(key, field, defs.Optional)
	if !sts.OK() {
		return nil, false, sts
	}
	if size != defs.Bytes(ki.width) {
		return nil, false, backend.InvalidArg
	}
	return defs.ToBytes(defs.FromBytes(v.value, ki.width), ki.width), v.isValid, sts
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
