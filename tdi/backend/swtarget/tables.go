package swtarget

import (
	"github.com/tdictl/tdid/tdi/backend"
	"github.com/tdictl/tdid/tdi/defs"
)

// op is the common preamble of table operations. Must be called with the
// lock held.
func (t *Target) op(sess, flags backend.Handle, tbl uint32) (*tableState, *sessionObj, defs.Flags, backend.Status) {
	s, sts := t.session(sess)
	if !sts.OK() {
		return nil, nil, 0, sts
	}
	f, sts := t.flagsValue(flags)
	if !sts.OK() {
		return nil, nil, 0, sts
	}
	st, sts := t.table(tbl)
	if !sts.OK() {
		return nil, nil, 0, sts
	}
	return st, s, f, backend.Success
}

func (t *Target) keyObj(tbl uint32, key backend.Handle) (*keyObj, backend.Status) {
	k, found := t.objects[key].(*keyObj)
	if !found || k.tbl != tbl {
		return nil, backend.InvalidArg
	}
	return k, backend.Success
}

func (t *Target) dataObj(tbl uint32, data backend.Handle) (*dataObj, backend.Status) {
	d, found := t.objects[data].(*dataObj)
	if !found || d.tbl != tbl || d.container != 0 {
		return nil, backend.InvalidArg
	}
	return d, backend.Success
}

func fillKey(dst, src *keyObj) {
	dst.fields = src.clone().fields
}

func fillData(dst, src *dataObj) {
	dst.action = src.action
	dst.fields = src.clone().fields
}

// selectorEvent builds the notification of a selector group change. The
// group id is the first key field, its members the first integer array.
func (t *Target) selectorEvent(st *tableState, sess backend.Handle, tgt backend.Target, e *entry, isAdd bool) func() {
	cb := st.selectCb
	if cb == nil || st.info.ttype != defs.Selector || len(st.info.keys) == 0 {
		return nil
	}
	ki := st.info.keys[0]
	group := uint32(0)
	if v, found := e.key.fields[ki.id]; found {
		group = uint32(nativeValue(v.value, ki.width))
	}
	var members []uint32
	for _, di := range st.info.data {
		if di.dtype == defs.IntArray {
			if v, found := e.data.fields[di.id]; found {
				members = append(members, v.ints...)
			}
			break
		}
	}
	return func() {
		for i, m := range members {
			cb(sess, tgt, group, m, i, isAdd)
		}
	}
}

func run(sts backend.Status, notify func()) backend.Status {
	if notify != nil {
		notify()
	}
	return sts
}

// EntryAdd implements backend.Tables.
func (t *Target) EntryAdd(sess backend.Handle, tgt backend.Target, flags backend.Handle, tbl uint32, key, data backend.Handle) backend.Status {
	return run(t.entryAdd(sess, tgt, flags, tbl, key, data))
}

func (t *Target) entryAdd(sess backend.Handle, tgt backend.Target, flags backend.Handle, tbl uint32, key, data backend.Handle) (backend.Status, func()) {
	t.Lock()
	defer t.Unlock()
	st, s, _, sts := t.op(sess, flags, tbl)
	if !sts.OK() {
		return sts, nil
	}
	k, sts := t.keyObj(tbl, key)
	if !sts.OK() {
		return sts, nil
	}
	d, sts := t.dataObj(tbl, data)
	if !sts.OK() {
		return sts, nil
	}
	if len(st.info.actions) > 0 && d.action == 0 {
		return backend.InvalidArg, nil
	}
	canon := k.canonical(st.info)
	if _, e := st.find(canon); e != nil {
		return backend.AlreadyExists, nil
	}
	if uint64(len(st.entries)) >= st.info.size {
		return backend.NoSpace, nil
	}

	st.nextHandle++
	e := &entry{handle: st.nextHandle, key: k.clone(), data: d.clone()}
	complete(st.info, e.data)
	st.insert(len(st.entries), e)
	s.record(func() { st.removeKey(canon) })
	return backend.Success, t.selectorEvent(st, sess, tgt, e, true)
}

// EntryMod implements backend.Tables. Fields not given keep their value
// when the action does not change.
func (t *Target) EntryMod(sess backend.Handle, tgt backend.Target, flags backend.Handle, tbl uint32, key, data backend.Handle) backend.Status {
	t.Lock()
	defer t.Unlock()
	st, s, _, sts := t.op(sess, flags, tbl)
	if !sts.OK() {
		return sts
	}
	k, sts := t.keyObj(tbl, key)
	if !sts.OK() {
		return sts
	}
	d, sts := t.dataObj(tbl, data)
	if !sts.OK() {
		return sts
	}
	_, e := st.find(k.canonical(st.info))
	if e == nil {
		return backend.ObjectNotFound
	}

	old := e.data
	var nd *dataObj
	if d.action == 0 || d.action == old.action {
		nd = old.clone()
		for id, v := range d.fields {
			nd.fields[id] = v.clone()
		}
	} else {
		nd = d.clone()
		complete(st.info, nd)
	}
	e.data = nd
	s.record(func() { e.data = old })
	return backend.Success
}

// EntryModInc implements backend.Tables. Integer arrays are merged with the
// stored ones, other fields are overwritten.
func (t *Target) EntryModInc(sess backend.Handle, tgt backend.Target, flags backend.Handle, tbl uint32, key, data backend.Handle, modInc int) backend.Status {
	t.Lock()
	defer t.Unlock()
	st, s, _, sts := t.op(sess, flags, tbl)
	if !sts.OK() {
		return sts
	}
	if modInc != int(defs.ModIncAdd) && modInc != int(defs.ModIncDelete) {
		return backend.InvalidArg
	}
	k, sts := t.keyObj(tbl, key)
	if !sts.OK() {
		return sts
	}
	d, sts := t.dataObj(tbl, data)
	if !sts.OK() {
		return sts
	}
	_, e := st.find(k.canonical(st.info))
	if e == nil {
		return backend.ObjectNotFound
	}

	old := e.data
	nd := old.clone()
	for id, v := range d.fields {
		di := st.info.dataField(id, nd.action)
		cur, found := nd.fields[id]
		if di == nil || di.dtype != defs.IntArray || !found {
			nd.fields[id] = v.clone()
			continue
		}
		cur.ints = mergeInts(cur.ints, v.ints, defs.ModIncType(modInc))
	}
	e.data = nd
	s.record(func() { e.data = old })
	return backend.Success
}

func mergeInts(cur, delta []uint32, how defs.ModIncType) []uint32 {
	in := func(list []uint32, v uint32) bool {
		for _, e := range list {
			if e == v {
				return true
			}
		}
		return false
	}
	out := []uint32{}
	if how == defs.ModIncAdd {
		out = append(out, cur...)
		for _, v := range delta {
			if !in(out, v) {
				out = append(out, v)
			}
		}
		return out
	}
	for _, v := range cur {
		if !in(delta, v) {
			out = append(out, v)
		}
	}
	return out
}

// EntryDel implements backend.Tables.
func (t *Target) EntryDel(sess backend.Handle, tgt backend.Target, flags backend.Handle, tbl uint32, key backend.Handle) backend.Status {
	return run(t.entryDel(sess, tgt, flags, tbl, key))
}

func (t *Target) entryDel(sess backend.Handle, tgt backend.Target, flags backend.Handle, tbl uint32, key backend.Handle) (backend.Status, func()) {
	t.Lock()
	defer t.Unlock()
	st, s, _, sts := t.op(sess, flags, tbl)
	if !sts.OK() {
		return sts, nil
	}
	k, sts := t.keyObj(tbl, key)
	if !sts.OK() {
		return sts, nil
	}
	idx, e := st.find(k.canonical(st.info))
	if e == nil {
		return backend.ObjectNotFound, nil
	}
	st.remove(idx)
	s.record(func() { st.insert(idx, e) })
	return backend.Success, t.selectorEvent(st, sess, tgt, e, false)
}

// Clear implements backend.Tables.
func (t *Target) Clear(sess backend.Handle, tgt backend.Target, flags backend.Handle, tbl uint32) backend.Status {
	t.Lock()
	defer t.Unlock()
	st, s, _, sts := t.op(sess, flags, tbl)
	if !sts.OK() {
		return sts
	}
	old := st.entries
	st.entries = nil
	s.record(func() { st.entries = old })
	return backend.Success
}

// DefaultEntrySet implements backend.Tables.
func (t *Target) DefaultEntrySet(sess backend.Handle, tgt backend.Target, flags backend.Handle, tbl uint32, data backend.Handle) backend.Status {
	t.Lock()
	defer t.Unlock()
	st, s, _, sts := t.op(sess, flags, tbl)
	if !sts.OK() {
		return sts
	}
	d, sts := t.dataObj(tbl, data)
	if !sts.OK() {
		return sts
	}
	old := st.defaultData
	if st.info.hasConstDefault && old != nil && d.action != old.action {
		return backend.NotSupported
	}
	nd := d.clone()
	complete(st.info, nd)
	st.defaultData = nd
	s.record(func() { st.defaultData = old })
	return backend.Success
}

// DefaultEntryReset implements backend.Tables.
func (t *Target) DefaultEntryReset(sess backend.Handle, tgt backend.Target, flags backend.Handle, tbl uint32) backend.Status {
	t.Lock()
	defer t.Unlock()
	st, s, _, sts := t.op(sess, flags, tbl)
	if !sts.OK() {
		return sts
	}
	old := st.defaultData
	st.defaultData = nil
	s.record(func() { st.defaultData = old })
	return backend.Success
}

// DefaultEntryGet implements backend.Tables. A table without default entry
// returns data with no action and no active field.
func (t *Target) DefaultEntryGet(sess backend.Handle, tgt backend.Target, flags backend.Handle, tbl uint32, data backend.Handle) backend.Status {
	t.Lock()
	defer t.Unlock()
	st, _, _, sts := t.op(sess, flags, tbl)
	if !sts.OK() {
		return sts
	}
	d, sts := t.dataObj(tbl, data)
	if !sts.OK() {
		return sts
	}
	if st.defaultData == nil {
		fillData(d, newDataObj(tbl, 0))
		return backend.Success
	}
	fillData(d, st.defaultData)
	return backend.Success
}

// EntryGet implements backend.Tables.
func (t *Target) EntryGet(sess backend.Handle, tgt backend.Target, flags backend.Handle, tbl uint32, key, data backend.Handle) backend.Status {
	t.Lock()
	defer t.Unlock()
	st, _, _, sts := t.op(sess, flags, tbl)
	if !sts.OK() {
		return sts
	}
	k, sts := t.keyObj(tbl, key)
	if !sts.OK() {
		return sts
	}
	d, sts := t.dataObj(tbl, data)
	if !sts.OK() {
		return sts
	}
	_, e := st.find(k.canonical(st.info))
	if e == nil {
		return backend.ObjectNotFound
	}
	fillData(d, e.data)
	return backend.Success
}

// EntryGetByHandle implements backend.Tables.
func (t *Target) EntryGetByHandle(sess backend.Handle, tgt backend.Target, flags backend.Handle, tbl uint32, handle uint32, key, data backend.Handle) backend.Status {
	t.Lock()
	defer t.Unlock()
	st, _, _, sts := t.op(sess, flags, tbl)
	if !sts.OK() {
		return sts
	}
	k, sts := t.keyObj(tbl, key)
	if !sts.OK() {
		return sts
	}
	d, sts := t.dataObj(tbl, data)
	if !sts.OK() {
		return sts
	}
	e := st.byHandle(handle)
	if e == nil {
		return backend.ObjectNotFound
	}
	fillKey(k, e.key)
	fillData(d, e.data)
	return backend.Success
}

// EntryKeyGet implements backend.Tables.
func (t *Target) EntryKeyGet(sess backend.Handle, tgt backend.Target, flags backend.Handle, tbl uint32, handle uint32, key backend.Handle) (backend.Target, backend.Status) {
	t.Lock()
	defer t.Unlock()
	st, _, _, sts := t.op(sess, flags, tbl)
	if !sts.OK() {
		return tgt, sts
	}
	k, sts := t.keyObj(tbl, key)
	if !sts.OK() {
		return tgt, sts
	}
	e := st.byHandle(handle)
	if e == nil {
		return tgt, backend.ObjectNotFound
	}
	fillKey(k, e.key)
	return tgt, backend.Success
}

// EntryHandleGet implements backend.Tables.
func (t *Target) EntryHandleGet(sess backend.Handle, tgt backend.Target, flags backend.Handle, tbl uint32, key backend.Handle) (uint32, backend.Status) {
	t.Lock()
	defer t.Unlock()
	st, _, _, sts := t.op(sess, flags, tbl)
	if !sts.OK() {
		return 0, sts
	}
	k, sts := t.keyObj(tbl, key)
	if !sts.OK() {
		return 0, sts
	}
	_, e := st.find(k.canonical(st.info))
	if e == nil {
		return 0, backend.ObjectNotFound
	}
	return e.handle, backend.Success
}

// EntryGetFirst implements backend.Tables.
func (t *Target) EntryGetFirst(sess backend.Handle, tgt backend.Target, flags backend.Handle, tbl uint32, key, data backend.Handle) backend.Status {
	t.Lock()
	defer t.Unlock()
	st, _, _, sts := t.op(sess, flags, tbl)
	if !sts.OK() {
		return sts
	}
	k, sts := t.keyObj(tbl, key)
	if !sts.OK() {
		return sts
	}
	d, sts := t.dataObj(tbl, data)
	if !sts.OK() {
		return sts
	}
	if len(st.entries) == 0 {
		return backend.ObjectNotFound
	}
	fillKey(k, st.entries[0].key)
	fillData(d, st.entries[0].data)
	return backend.Success
}

// EntryGetNextN implements backend.Tables. It fills at most len(keys)
// entries following prevKey and returns how many were filled.
func (t *Target) EntryGetNextN(sess backend.Handle, tgt backend.Target, flags backend.Handle, tbl uint32, prevKey backend.Handle, keys, data []backend.Handle) (int, backend.Status) {
	t.Lock()
	defer t.Unlock()
	st, _, _, sts := t.op(sess, flags, tbl)
	if !sts.OK() {
		return 0, sts
	}
	if len(keys) != len(data) {
		return 0, backend.InvalidArg
	}
	prev, sts := t.keyObj(tbl, prevKey)
	if !sts.OK() {
		return 0, sts
	}
	idx, _ := st.find(prev.canonical(st.info))
	if idx < 0 {
		return 0, backend.ObjectNotFound
	}
	n := 0
	for i := idx + 1; i < len(st.entries) && n < len(keys); i++ {
		k, sts := t.keyObj(tbl, keys[n])
		if !sts.OK() {
			return n, sts
		}
		d, sts := t.dataObj(tbl, data[n])
		if !sts.OK() {
			return n, sts
		}
		fillKey(k, st.entries[i].key)
		fillData(d, st.entries[i].data)
		n++
	}
	if n == 0 {
		return 0, backend.ObjectNotFound
	}
	return n, backend.Success
}

// UsageGet implements backend.Tables.
func (t *Target) UsageGet(sess backend.Handle, tgt backend.Target, flags backend.Handle, tbl uint32) (uint32, backend.Status) {
	t.Lock()
	defer t.Unlock()
	st, _, _, sts := t.op(sess, flags, tbl)
	if !sts.OK() {
		return 0, sts
	}
	if !contains(apiNames(st.info.apis), defs.APIUsageGet.Command()) {
		return 0, backend.NotSupported
	}
	return uint32(len(st.entries)), backend.Success
}

// SizeGet implements backend.Tables.
func (t *Target) SizeGet(sess backend.Handle, tgt backend.Target, flags backend.Handle, tbl uint32) (uint64, backend.Status) {
	t.Lock()
	defer t.Unlock()
	st, _, _, sts := t.op(sess, flags, tbl)
	if !sts.OK() {
		return 0, sts
	}
	return st.info.size, backend.Success
}

func apiNames(apis []int) []string {
	names := make([]string, len(apis))
	for i, a := range apis {
		names[i] = defs.API(a).Command()
	}
	return names
}
