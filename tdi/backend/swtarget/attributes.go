package swtarget

import (
	"github.com/tdictl/tdid/tdi/backend"
	"github.com/tdictl/tdid/tdi/defs"
)

type attrObj struct {
	tbl  uint32
	kind defs.Attribute

	idle      backend.IdleTableState
	idleCb    backend.IdleTimeoutFunc
	symmetric bool
	portOn    bool
	portCb    backend.PortStatusFunc
	pollIntv  uint32
	selectOn  bool
	selectCb  backend.SelectorUpdateFunc
	meterAdj  int32
	keyMask   map[uint32][]byte
}

func (t *Target) allocAttr(tbl uint32, kind defs.Attribute) (*attrObj, backend.Handle, backend.Status) {
	t.Lock()
	defer t.Unlock()
	ti, sts := t.info(tbl)
	if !sts.OK() {
		return nil, backend.NilHandle, sts
	}
	supported := false
	for _, a := range ti.attrs {
		if a == int(kind) {
			supported = true
		}
	}
	if !supported {
		return nil, backend.NilHandle, backend.NotSupported
	}
	obj := &attrObj{tbl: tbl, kind: kind, keyMask: make(map[uint32][]byte)}
	return obj, t.alloc(obj), backend.Success
}

// attr resolves an attribute object of the given kind. Must be called with
// the lock held.
func (t *Target) attr(attr backend.Handle, kind defs.Attribute) (*attrObj, backend.Status) {
	a, found := t.objects[attr].(*attrObj)
	if !found || a.kind != kind {
		return nil, backend.InvalidArg
	}
	return a, backend.Success
}

func (t *Target) withAttr(attr backend.Handle, kind defs.Attribute, fn func(*attrObj) backend.Status) backend.Status {
	t.Lock()
	defer t.Unlock()
	a, sts := t.attr(attr, kind)
	if !sts.OK() {
		return sts
	}
	return fn(a)
}

// IdleTableAttributesAllocate implements backend.Attributes.
func (t *Target) IdleTableAttributesAllocate(tbl uint32, mode int) (backend.Handle, backend.Status) {
	if mode != int(defs.IdlePollMode) && mode != int(defs.IdleNotifyMode) {
		return backend.NilHandle, backend.InvalidArg
	}
	obj, h, sts := t.allocAttr(tbl, defs.AttrIdleTable)
	if sts.OK() {
		t.Lock()
		obj.idle.Mode = mode
		t.Unlock()
	}
	return h, sts
}

// EntryScopeAttributesAllocate implements backend.Attributes.
func (t *Target) EntryScopeAttributesAllocate(tbl uint32) (backend.Handle, backend.Status) {
	_, h, sts := t.allocAttr(tbl, defs.AttrSymmetricMode)
	return h, sts
}

// PortStatusNotifAttributesAllocate implements backend.Attributes.
func (t *Target) PortStatusNotifAttributesAllocate(tbl uint32) (backend.Handle, backend.Status) {
	_, h, sts := t.allocAttr(tbl, defs.AttrPortStatusNotif)
	return h, sts
}

// PortStatsPollIntvAttributesAllocate implements backend.Attributes.
func (t *Target) PortStatsPollIntvAttributesAllocate(tbl uint32) (backend.Handle, backend.Status) {
	_, h, sts := t.allocAttr(tbl, defs.AttrPortStatsPollIntv)
	return h, sts
}

// SelectorUpdateAttributesAllocate implements backend.Attributes.
func (t *Target) SelectorUpdateAttributesAllocate(tbl uint32) (backend.Handle, backend.Status) {
	_, h, sts := t.allocAttr(tbl, defs.AttrSelectorTableUpdate)
	return h, sts
}

// MeterByteCountAdjustAttributesAllocate implements backend.Attributes.
func (t *Target) MeterByteCountAdjustAttributesAllocate(tbl uint32) (backend.Handle, backend.Status) {
	_, h, sts := t.allocAttr(tbl, defs.AttrMeterByteCountAdj)
	return h, sts
}

// DynKeyMaskAttributesAllocate implements backend.Attributes.
func (t *Target) DynKeyMaskAttributesAllocate(tbl uint32) (backend.Handle, backend.Status) {
	_, h, sts := t.allocAttr(tbl, defs.AttrDynKeyMask)
	return h, sts
}

// AttributesDeallocate implements backend.Attributes.
func (t *Target) AttributesDeallocate(attr backend.Handle) backend.Status {
	t.Lock()
	defer t.Unlock()
	if _, found := t.objects[attr].(*attrObj); !found {
		return backend.InvalidArg
	}
	return t.release(attr)
}

// AttributesSet implements backend.Attributes.
func (t *Target) AttributesSet(sess backend.Handle, tgt backend.Target, flags backend.Handle, tbl uint32, attr backend.Handle) backend.Status {
	t.Lock()
	defer t.Unlock()
	st, _, _, sts := t.op(sess, flags, tbl)
	if !sts.OK() {
		return sts
	}
	a, found := t.objects[attr].(*attrObj)
	if !found || a.tbl != tbl {
		return backend.InvalidArg
	}
	switch a.kind {
	case defs.AttrIdleTable:
		st.idle = a.idle
		st.idleCb = a.idleCb
	case defs.AttrSymmetricMode:
		st.symmetric = a.symmetric
	case defs.AttrPortStatusNotif:
		st.portCb = nil
		if a.portOn {
			st.portCb = a.portCb
		}
	case defs.AttrPortStatsPollIntv:
		st.pollIntv = a.pollIntv
	case defs.AttrSelectorTableUpdate:
		st.selectCb = nil
		if a.selectOn {
			st.selectCb = a.selectCb
		}
	case defs.AttrMeterByteCountAdj:
		st.meterAdj = a.meterAdj
	case defs.AttrDynKeyMask:
		for id, m := range a.keyMask {
			st.keyMask[id] = append([]byte(nil), m...)
		}
	default:
		return backend.NotSupported
	}
	return backend.Success
}

// AttributesGet implements backend.Attributes.
func (t *Target) AttributesGet(sess backend.Handle, tgt backend.Target, flags backend.Handle, tbl uint32, attr backend.Handle) backend.Status {
	t.Lock()
	defer t.Unlock()
	st, _, _, sts := t.op(sess, flags, tbl)
	if !sts.OK() {
		return sts
	}
	a, found := t.objects[attr].(*attrObj)
	if !found || a.tbl != tbl {
		return backend.InvalidArg
	}
	switch a.kind {
	case defs.AttrIdleTable:
		a.idle = st.idle
		a.idleCb = st.idleCb
	case defs.AttrSymmetricMode:
		a.symmetric = st.symmetric
	case defs.AttrPortStatsPollIntv:
		a.pollIntv = st.pollIntv
	case defs.AttrMeterByteCountAdj:
		a.meterAdj = st.meterAdj
	case defs.AttrDynKeyMask:
		// fields never masked match on every bit
		for _, ki := range st.info.keys {
			if m, found := st.keyMask[ki.id]; found {
				a.keyMask[ki.id] = append([]byte(nil), m...)
			} else {
				a.keyMask[ki.id] = defs.ToBytes(defs.Mask(ki.width), ki.width)
			}
		}
	default:
		return backend.NotSupported
	}
	return backend.Success
}

// IdleTablePollModeSet implements backend.Attributes.
func (t *Target) IdleTablePollModeSet(attr backend.Handle, enable bool) backend.Status {
	return t.withAttr(attr, defs.AttrIdleTable, func(a *attrObj) backend.Status {
		a.idle = backend.IdleTableState{Mode: int(defs.IdlePollMode), Enable: enable}
		a.idleCb = nil
		return backend.Success
	})
}

// IdleTableNotifyModeSet implements backend.Attributes.
func (t *Target) IdleTableNotifyModeSet(attr backend.Handle, enable bool, cb backend.IdleTimeoutFunc, interval, maxTTL, minTTL uint32) backend.Status {
	return t.withAttr(attr, defs.AttrIdleTable, func(a *attrObj) backend.Status {
		if minTTL > maxTTL {
			return backend.InvalidArg
		}
		a.idle = backend.IdleTableState{
			Mode:        int(defs.IdleNotifyMode),
			Enable:      enable,
			TTLInterval: interval,
			MaxTTL:      maxTTL,
			MinTTL:      minTTL,
		}
		a.idleCb = cb
		return backend.Success
	})
}

// IdleTableGet implements backend.Attributes.
func (t *Target) IdleTableGet(attr backend.Handle) (state backend.IdleTableState, sts backend.Status) {
	sts = t.withAttr(attr, defs.AttrIdleTable, func(a *attrObj) backend.Status {
		state = a.idle
		return backend.Success
	})
	return state, sts
}

// SymmetricModeSet implements backend.Attributes.
func (t *Target) SymmetricModeSet(attr backend.Handle, enable bool) backend.Status {
	return t.withAttr(attr, defs.AttrSymmetricMode, func(a *attrObj) backend.Status {
		a.symmetric = enable
		return backend.Success
	})
}

// SymmetricModeGet implements backend.Attributes.
func (t *Target) SymmetricModeGet(attr backend.Handle) (enable bool, sts backend.Status) {
	sts = t.withAttr(attr, defs.AttrSymmetricMode, func(a *attrObj) backend.Status {
		enable = a.symmetric
		return backend.Success
	})
	return enable, sts
}

// PortStatusNotifSet implements backend.Attributes.
func (t *Target) PortStatusNotifSet(attr backend.Handle, enable bool, cb backend.PortStatusFunc) backend.Status {
	return t.withAttr(attr, defs.AttrPortStatusNotif, func(a *attrObj) backend.Status {
		a.portOn = enable
		a.portCb = cb
		return backend.Success
	})
}

// PortStatsPollIntvSet implements backend.Attributes.
func (t *Target) PortStatsPollIntvSet(attr backend.Handle, ms uint32) backend.Status {
	return t.withAttr(attr, defs.AttrPortStatsPollIntv, func(a *attrObj) backend.Status {
		a.pollIntv = ms
		return backend.Success
	})
}

// PortStatsPollIntvGet implements backend.Attributes.
func (t *Target) PortStatsPollIntvGet(attr backend.Handle) (ms uint32, sts backend.Status) {
	sts = t.withAttr(attr, defs.AttrPortStatsPollIntv, func(a *attrObj) backend.Status {
		ms = a.pollIntv
		return backend.Success
	})
	return ms, sts
}

// SelectorUpdateSet implements backend.Attributes.
func (t *Target) SelectorUpdateSet(attr backend.Handle, enable bool, cb backend.SelectorUpdateFunc) backend.Status {
	return t.withAttr(attr, defs.AttrSelectorTableUpdate, func(a *attrObj) backend.Status {
		a.selectOn = enable
		a.selectCb = cb
		return backend.Success
	})
}

// MeterByteCountAdjustSet implements backend.Attributes.
func (t *Target) MeterByteCountAdjustSet(attr backend.Handle, bytes int32) backend.Status {
	return t.withAttr(attr, defs.AttrMeterByteCountAdj, func(a *attrObj) backend.Status {
		a.meterAdj = bytes
		return backend.Success
	})
}

// MeterByteCountAdjustGet implements backend.Attributes.
func (t *Target) MeterByteCountAdjustGet(attr backend.Handle) (bytes int32, sts backend.Status) {
	sts = t.withAttr(attr, defs.AttrMeterByteCountAdj, func(a *attrObj) backend.Status {
		bytes = a.meterAdj
		return backend.Success
	})
	return bytes, sts
}

// DynKeyMaskSet implements backend.Attributes.
func (t *Target) DynKeyMaskSet(attr backend.Handle, field uint32, mask []byte) backend.Status {
	t.Lock()
	defer t.Unlock()
	a, sts := t.attr(attr, defs.AttrDynKeyMask)
	if !sts.OK() {
		return sts
	}
	ki, sts := t.key(a.tbl, field)
	if !sts.OK() {
		return sts
	}
	if len(mask) != defs.Bytes(ki.width) {
		return backend.InvalidArg
	}
	a.keyMask[field] = append([]byte(nil), mask...)
	return backend.Success
}

// DynKeyMaskNumFields implements backend.Attributes.
func (t *Target) DynKeyMaskNumFields(attr backend.Handle) (n int, sts backend.Status) {
	sts = t.withAttr(attr, defs.AttrDynKeyMask, func(a *attrObj) backend.Status {
		n = len(a.keyMask)
		return backend.Success
	})
	return n, sts
}

// DynKeyMaskFields implements backend.Attributes. Fields come in key order.
func (t *Target) DynKeyMaskFields(attr backend.Handle, fields []uint32) backend.Status {
	t.Lock()
	defer t.Unlock()
	a, sts := t.attr(attr, defs.AttrDynKeyMask)
	if !sts.OK() {
		return sts
	}
	ti, sts := t.info(a.tbl)
	if !sts.OK() {
		return sts
	}
	var ids []uint32
	for _, ki := range ti.keys {
		if _, found := a.keyMask[ki.id]; found {
			ids = append(ids, ki.id)
		}
	}
	return fillIDs(fields, ids)
}

// DynKeyMaskBytes implements backend.Attributes.
func (t *Target) DynKeyMaskBytes(attr backend.Handle, field uint32) (mask []byte, sts backend.Status) {
	sts = t.withAttr(attr, defs.AttrDynKeyMask, func(a *attrObj) backend.Status {
		m, found := a.keyMask[field]
		if !found {
			return backend.ObjectNotFound
		}
		mask = append([]byte(nil), m...)
		return backend.Success
	})
	return mask, sts
}

type opsObj struct {
	tbl uint32
	op  defs.Operation
	tgt backend.Target
	cb  backend.OperationFunc
}

// OperationsAllocate implements backend.Operations.
func (t *Target) OperationsAllocate(tbl uint32, op int) (backend.Handle, backend.Status) {
	t.Lock()
	defer t.Unlock()
	ti, sts := t.info(tbl)
	if !sts.OK() {
		return backend.NilHandle, sts
	}
	for _, o := range ti.ops {
		if o == op {
			return t.alloc(&opsObj{tbl: tbl, op: defs.Operation(op)}), backend.Success
		}
	}
	return backend.NilHandle, backend.NotSupported
}

func (t *Target) setOperation(ops, sess backend.Handle, tgt backend.Target, cb backend.OperationFunc, op defs.Operation) backend.Status {
	t.Lock()
	defer t.Unlock()
	if _, sts := t.session(sess); !sts.OK() {
		return sts
	}
	o, found := t.objects[ops].(*opsObj)
	if !found || o.op != op {
		return backend.InvalidArg
	}
	o.tgt = tgt
	o.cb = cb
	return backend.Success
}

// OperationsCounterSyncSet implements backend.Operations.
func (t *Target) OperationsCounterSyncSet(ops, sess backend.Handle, tgt backend.Target, cb backend.OperationFunc) backend.Status {
	return t.setOperation(ops, sess, tgt, cb, defs.OpCounterSync)
}

// OperationsRegisterSyncSet implements backend.Operations.
func (t *Target) OperationsRegisterSyncSet(ops, sess backend.Handle, tgt backend.Target, cb backend.OperationFunc) backend.Status {
	return t.setOperation(ops, sess, tgt, cb, defs.OpRegisterSync)
}

// OperationsHitStateUpdateSet implements backend.Operations.
func (t *Target) OperationsHitStateUpdateSet(ops, sess backend.Handle, tgt backend.Target, cb backend.OperationFunc) backend.Status {
	return t.setOperation(ops, sess, tgt, cb, defs.OpHitStateUpdate)
}

// OperationsExecute implements backend.Operations. Software state is always
// in sync, so the completion callback runs right away.
func (t *Target) OperationsExecute(tbl uint32, ops backend.Handle) backend.Status {
	t.Lock()
	o, found := t.objects[ops].(*opsObj)
	if !found || o.tbl != tbl {
		t.Unlock()
		return backend.InvalidArg
	}
	cb, tgt := o.cb, o.tgt
	t.Unlock()

	if cb != nil {
		cb(tgt)
	}
	return backend.Success
}

// OperationsDeallocate implements backend.Operations.
func (t *Target) OperationsDeallocate(ops backend.Handle) backend.Status {
	t.Lock()
	defer t.Unlock()
	if _, found := t.objects[ops].(*opsObj); !found {
		return backend.InvalidArg
	}
	return t.release(ops)
}
