package table

import (
	"context"
	"math/big"

	"github.com/google/uuid"
	"github.com/tdictl/tdid/tdi/backend"
	"github.com/tdictl/tdid/tdi/codec"
	"github.com/tdictl/tdid/tdi/defs"
)

// Callbacks delivered to subscribers. Keys are read from the backend object
// before the callback runs.
type (
	IdleTimeoutFunc    func(tgt backend.Target, key Values)
	PortStatusFunc     func(tgt backend.Target, key Values, up bool)
	SelectorUpdateFunc func(tgt backend.Target, groupID, memberID uint32, logicalIndex int, isAdd bool)
	OperationFunc      func(tgt backend.Target)
)

// IdleTable is the idle timeout configuration of a table.
type IdleTable struct {
	Mode        defs.IdleTableMode
	Enable      bool
	TTLInterval uint32
	MaxTTL      uint32
	MinTTL      uint32
}

type allocFunc func(tbl uint32) (backend.Handle, backend.Status)

func (t *Table) releaseAttr(attr backend.Handle) {
	if sts := t.be.AttributesDeallocate(attr); !sts.OK() {
		t.log.Error("attributes deallocate failed. [%s]", t.be.ErrString(sts))
	}
}

// setAttribute allocates an attribute object, fills it and applies it to
// the table.
func (t *Table) setAttribute(ctx context.Context, cmd string, alloc allocFunc, fill func(attr backend.Handle) backend.Status) error {
	if err := t.check(ctx, cmd); err != nil {
		return err
	}
	attr, sts := alloc(t.schema.ID)
	if !sts.OK() {
		return t.fail(cmd, sts)
	}
	defer t.releaseAttr(attr)
	if sts := fill(attr); !sts.OK() {
		return t.fail(cmd, sts)
	}
	flags, err := t.flags(0)
	if err != nil {
		return err
	}
	defer t.releaseFlags(flags)

	sts = t.be.AttributesSet(t.session(), t.target, flags, t.schema.ID, attr)
	t.notify(cmd, "", sts)
	if !sts.OK() {
		return t.fail(cmd, sts)
	}
	return nil
}

// getAttribute reads the attribute of the table into a new object and
// calls read on it.
func (t *Table) getAttribute(ctx context.Context, cmd string, alloc allocFunc, read func(attr backend.Handle) backend.Status) error {
	if err := t.check(ctx, cmd); err != nil {
		return err
	}
	attr, sts := alloc(t.schema.ID)
	if !sts.OK() {
		return t.fail(cmd, sts)
	}
	defer t.releaseAttr(attr)
	flags, err := t.flags(0)
	if err != nil {
		return err
	}
	defer t.releaseFlags(flags)

	if sts := t.be.AttributesGet(t.session(), t.target, flags, t.schema.ID, attr); !sts.OK() {
		return t.fail(cmd, sts)
	}
	if sts := read(attr); !sts.OK() {
		return t.fail(cmd, sts)
	}
	return nil
}

// keyOf reads a key object handed by the backend to a callback.
func (t *Table) keyOf(key backend.Handle) Values {
	values, err := t.readKeyFields(key)
	if err != nil {
		t.log.Error("callback key: %s", err)
		return nil
	}
	return values
}

func (t *Table) idleAlloc(mode defs.IdleTableMode) allocFunc {
	return func(tbl uint32) (backend.Handle, backend.Status) {
		return t.be.IdleTableAttributesAllocate(tbl, int(mode))
	}
}

// SetIdleTablePollMode enables or disables idle timeout polling. It ends
// any idle timeout subscription.
func (t *Table) SetIdleTablePollMode(ctx context.Context, enable bool) error {
	err := t.setAttribute(ctx, "idle_table_set_poll", t.idleAlloc(defs.IdlePollMode), func(attr backend.Handle) backend.Status {
		return t.be.IdleTablePollModeSet(attr, enable)
	})
	if err == nil {
		t.subs.Unsubscribe(IdleTimeout)
	}
	return err
}

// SetIdleTableNotifyMode configures the idle timeout notifications. cb is
// called with the key of every entry that ages out, until the notify mode
// is disabled.
func (t *Table) SetIdleTableNotifyMode(ctx context.Context, enable bool, cb IdleTimeoutFunc, interval, maxTTL, minTTL uint32) error {
	if !enable || cb == nil {
		err := t.setAttribute(ctx, "idle_table_set_notify", t.idleAlloc(defs.IdleNotifyMode), func(attr backend.Handle) backend.Status {
			return t.be.IdleTableNotifyModeSet(attr, enable, nil, interval, maxTTL, minTTL)
		})
		if err == nil {
			t.subs.Unsubscribe(IdleTimeout)
		}
		return err
	}

	id, err := t.subs.add(IdleTimeout)
	if err != nil {
		return err
	}
	deliver := func(tgt backend.Target, key backend.Handle) {
		if t.subs.deliver(IdleTimeout, id) {
			cb(tgt, t.keyOf(key))
		}
	}
	err = t.setAttribute(ctx, "idle_table_set_notify", t.idleAlloc(defs.IdleNotifyMode), func(attr backend.Handle) backend.Status {
		return t.be.IdleTableNotifyModeSet(attr, enable, deliver, interval, maxTTL, minTTL)
	})
	if err != nil {
		t.subs.remove(IdleTimeout, id)
	}
	return err
}

// IdleTable returns the idle timeout configuration.
func (t *Table) IdleTable(ctx context.Context) (IdleTable, error) {
	var out IdleTable
	err := t.getAttribute(ctx, "idle_table_get", t.idleAlloc(defs.IdlePollMode), func(attr backend.Handle) backend.Status {
		state, sts := t.be.IdleTableGet(attr)
		out = IdleTable{
			Mode:        defs.IdleTableMode(state.Mode),
			Enable:      state.Enable,
			TTLInterval: state.TTLInterval,
			MaxTTL:      state.MaxTTL,
			MinTTL:      state.MinTTL,
		}
		return sts
	})
	return out, err
}

// SetSymmetricMode sets the entry scope of the table.
func (t *Table) SetSymmetricMode(ctx context.Context, enable bool) error {
	return t.setAttribute(ctx, "symmetric_mode_set", t.be.EntryScopeAttributesAllocate, func(attr backend.Handle) backend.Status {
		return t.be.SymmetricModeSet(attr, enable)
	})
}

// SymmetricMode reports whether entries apply to every pipe.
func (t *Table) SymmetricMode(ctx context.Context) (enable bool, err error) {
	err = t.getAttribute(ctx, "symmetric_mode_get", t.be.EntryScopeAttributesAllocate, func(attr backend.Handle) (sts backend.Status) {
		enable, sts = t.be.SymmetricModeGet(attr)
		return sts
	})
	return enable, err
}

// SetPortStatusNotify registers cb to be called when a port goes up or
// down. A nil cb disables the notifications.
func (t *Table) SetPortStatusNotify(ctx context.Context, cb PortStatusFunc) error {
	if cb == nil {
		err := t.setAttribute(ctx, "port_status_notif_cb_set", t.be.PortStatusNotifAttributesAllocate, func(attr backend.Handle) backend.Status {
			return t.be.PortStatusNotifSet(attr, false, nil)
		})
		if err == nil {
			t.subs.Unsubscribe(PortStatus)
		}
		return err
	}

	id, err := t.subs.add(PortStatus)
	if err != nil {
		return err
	}
	deliver := func(tgt backend.Target, key backend.Handle, up bool) {
		if t.subs.deliver(PortStatus, id) {
			cb(tgt, t.keyOf(key), up)
		}
	}
	err = t.setAttribute(ctx, "port_status_notif_cb_set", t.be.PortStatusNotifAttributesAllocate, func(attr backend.Handle) backend.Status {
		return t.be.PortStatusNotifSet(attr, true, deliver)
	})
	if err != nil {
		t.subs.remove(PortStatus, id)
	}
	return err
}

// SetSelectorUpdate registers cb to be called when the members of a
// selector group change. A nil cb disables the notifications.
func (t *Table) SetSelectorUpdate(ctx context.Context, cb SelectorUpdateFunc) error {
	if cb == nil {
		err := t.setAttribute(ctx, "selector_table_update_cb_set", t.be.SelectorUpdateAttributesAllocate, func(attr backend.Handle) backend.Status {
			return t.be.SelectorUpdateSet(attr, false, nil)
		})
		if err == nil {
			t.subs.Unsubscribe(SelectorUpdate)
		}
		return err
	}

	id, err := t.subs.add(SelectorUpdate)
	if err != nil {
		return err
	}
	deliver := func(sess backend.Handle, tgt backend.Target, groupID, memberID uint32, logicalIndex int, isAdd bool) {
		if t.subs.deliver(SelectorUpdate, id) {
			cb(tgt, groupID, memberID, logicalIndex, isAdd)
		}
	}
	err = t.setAttribute(ctx, "selector_table_update_cb_set", t.be.SelectorUpdateAttributesAllocate, func(attr backend.Handle) backend.Status {
		return t.be.SelectorUpdateSet(attr, true, deliver)
	})
	if err != nil {
		t.subs.remove(SelectorUpdate, id)
	}
	return err
}

// SetPortStatsPollInterval sets the interval the port counters are polled
// at.
func (t *Table) SetPortStatsPollInterval(ctx context.Context, ms uint32) error {
	return t.setAttribute(ctx, "port_stats_poll_intv_set", t.be.PortStatsPollIntvAttributesAllocate, func(attr backend.Handle) backend.Status {
		return t.be.PortStatsPollIntvSet(attr, ms)
	})
}

// PortStatsPollInterval returns the port counters poll interval, in
// milliseconds.
func (t *Table) PortStatsPollInterval(ctx context.Context) (ms uint32, err error) {
	err = t.getAttribute(ctx, "port_stats_poll_intv_get", t.be.PortStatsPollIntvAttributesAllocate, func(attr backend.Handle) (sts backend.Status) {
		ms, sts = t.be.PortStatsPollIntvGet(attr)
		return sts
	})
	return ms, err
}

// SetMeterByteCountAdjust sets the bytes added to every packet by meters.
func (t *Table) SetMeterByteCountAdjust(ctx context.Context, bytes int32) error {
	return t.setAttribute(ctx, "meter_byte_count_adjust_set", t.be.MeterByteCountAdjustAttributesAllocate, func(attr backend.Handle) backend.Status {
		return t.be.MeterByteCountAdjustSet(attr, bytes)
	})
}

// MeterByteCountAdjust returns the bytes added to every packet by meters.
func (t *Table) MeterByteCountAdjust(ctx context.Context) (bytes int32, err error) {
	err = t.getAttribute(ctx, "meter_byte_count_adjust_get", t.be.MeterByteCountAdjustAttributesAllocate, func(attr backend.Handle) (sts backend.Status) {
		bytes, sts = t.be.MeterByteCountAdjustGet(attr)
		return sts
	})
	return bytes, err
}

// SetDynKeyMask sets the match mask of the given key fields.
func (t *Table) SetDynKeyMask(ctx context.Context, masks Fields) error {
	if err := unknownFields(masks, t.schema.KeyFields); err != nil {
		return err
	}
	type fieldMask struct {
		id   uint32
		mask []byte
	}
	var parsed []fieldMask
	for _, f := range t.schema.KeyFields {
		raw, found := lookup(masks, f.Name)
		if !found {
			continue
		}
		m, err := codec.ParseMask(f, raw)
		if err != nil {
			return err
		}
		parsed = append(parsed, fieldMask{id: f.ID, mask: defs.ToBytes(m, f.Width)})
	}
	return t.setAttribute(ctx, "dyn_key_mask_set", t.be.DynKeyMaskAttributesAllocate, func(attr backend.Handle) backend.Status {
		for _, fm := range parsed {
			if sts := t.be.DynKeyMaskSet(attr, fm.id, fm.mask); !sts.OK() {
				return sts
			}
		}
		return backend.Success
	})
}

// DynKeyMask returns the match mask of every key field.
func (t *Table) DynKeyMask(ctx context.Context) (map[string]*big.Int, error) {
	out := make(map[string]*big.Int)
	err := t.getAttribute(ctx, "dyn_key_mask_get", t.be.DynKeyMaskAttributesAllocate, func(attr backend.Handle) backend.Status {
		n, sts := t.be.DynKeyMaskNumFields(attr)
		if !sts.OK() {
			return sts
		}
		ids := make([]uint32, n)
		if sts := t.be.DynKeyMaskFields(attr, ids); !sts.OK() {
			return sts
		}
		for _, id := range ids {
			mask, sts := t.be.DynKeyMaskBytes(attr, id)
			if !sts.OK() {
				return sts
			}
			for _, f := range t.schema.KeyFields {
				if f.ID == id {
					out[f.Name] = defs.FromBytes(mask, f.Width)
				}
			}
		}
		return backend.Success
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// operation runs a table wide operation, cb is called once when it is
// done.
func (t *Table) operation(ctx context.Context, c Class, op defs.Operation, cb OperationFunc) error {
	cmd := op.Command()
	if err := t.check(ctx, cmd); err != nil {
		return err
	}
	id, err := t.subs.add(c)
	if err != nil {
		return err
	}
	ops, sts := t.be.OperationsAllocate(t.schema.ID, int(op))
	if !sts.OK() {
		t.subs.remove(c, id)
		return t.fail(cmd, sts)
	}
	defer func() {
		if sts := t.be.OperationsDeallocate(ops); !sts.OK() {
			t.log.Error("operations deallocate failed. [%s]", t.be.ErrString(sts))
		}
	}()

	deliver := t.deliverOperation(c, id, cb)
	switch op {
	case defs.OpCounterSync:
		sts = t.be.OperationsCounterSyncSet(ops, t.session(), t.target, deliver)
	case defs.OpRegisterSync:
		sts = t.be.OperationsRegisterSyncSet(ops, t.session(), t.target, deliver)
	case defs.OpHitStateUpdate:
		sts = t.be.OperationsHitStateUpdateSet(ops, t.session(), t.target, deliver)
	}
	if !sts.OK() {
		t.subs.remove(c, id)
		return t.fail(cmd, sts)
	}
	sts = t.be.OperationsExecute(t.schema.ID, ops)
	t.notify(cmd, "", sts)
	if !sts.OK() {
		t.subs.remove(c, id)
		return t.fail(cmd, sts)
	}
	return nil
}

func (t *Table) deliverOperation(c Class, id uuid.UUID, cb OperationFunc) backend.OperationFunc {
	return func(tgt backend.Target) {
		if t.subs.deliver(c, id) && cb != nil {
			cb(tgt)
		}
	}
}

// OperationRegisterSync syncs the register values from the device.
func (t *Table) OperationRegisterSync(ctx context.Context, cb OperationFunc) error {
	return t.operation(ctx, RegisterSync, defs.OpRegisterSync, cb)
}

// OperationCounterSync syncs the counter values from the device.
func (t *Table) OperationCounterSync(ctx context.Context, cb OperationFunc) error {
	return t.operation(ctx, CounterSync, defs.OpCounterSync, cb)
}

// OperationHitStateUpdate updates the hit state of the idle entries.
func (t *Table) OperationHitStateUpdate(ctx context.Context, cb OperationFunc) error {
	return t.operation(ctx, HitStateUpdate, defs.OpHitStateUpdate, cb)
}
