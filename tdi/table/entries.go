package table

import (
	"context"

	"github.com/tdictl/tdid/tdi/backend"
	"github.com/tdictl/tdid/tdi/defs"
)

// GetOptions qualify the reads of an entry.
type GetOptions struct {
	// FromHW reads the entry from the device.
	FromHW bool
	// Quiet does not log a missing entry, and returns ErrNotFound.
	Quiet bool
}

type writeFunc func(flags, key, data backend.Handle) backend.Status

// write parses and fills the key and data, and calls op.
func (t *Table) write(ctx context.Context, cmd string, key, data Fields, action string, strict bool, flags defs.Flags, op writeFunc) error {
	if err := t.check(ctx, cmd); err != nil {
		return err
	}
	keyFields, err := t.parseKey(key)
	if err != nil {
		return err
	}
	ref, dataFields, err := t.resolveAction(action)
	if err != nil {
		return err
	}
	values, err := t.parseData(data, dataFields, strict)
	if err != nil {
		return err
	}

	keyHdl, releaseKey, err := t.makeKey(keyFields)
	if err != nil {
		return err
	}
	defer releaseKey()
	dataHdl, releaseData, err := t.makeData(ref, values)
	if err != nil {
		return err
	}
	defer releaseData()
	flagsHdl, err := t.flags(flags)
	if err != nil {
		return err
	}
	defer t.releaseFlags(flagsHdl)

	sts := op(flagsHdl, keyHdl, dataHdl)
	t.notify(cmd, action, sts)
	if !sts.OK() {
		return t.fail(cmd, sts)
	}
	return nil
}

// Add inserts an entry.
func (t *Table) Add(ctx context.Context, key, data Fields, action string) error {
	return t.write(ctx, "add", key, data, action, true, 0, func(flags, k, d backend.Handle) backend.Status {
		return t.be.EntryAdd(t.session(), t.target, flags, t.schema.ID, k, d)
	})
}

// Modify changes the data of an entry. Unless resetTTL is set, the idle
// timer of the entry keeps running.
func (t *Table) Modify(ctx context.Context, key, data Fields, action string, resetTTL bool) error {
	var flags defs.Flags
	if !resetTTL {
		flags |= defs.FlagSkipTTLReset
	}
	return t.write(ctx, "mod", key, data, action, false, flags, func(flags, k, d backend.Handle) backend.Status {
		return t.be.EntryMod(t.session(), t.target, flags, t.schema.ID, k, d)
	})
}

// ModifyIncremental adds or removes the given members to the array fields
// of an entry.
func (t *Table) ModifyIncremental(ctx context.Context, key, data Fields, action string, mod defs.ModIncType) error {
	return t.write(ctx, "mod_inc", key, data, action, false, 0, func(flags, k, d backend.Handle) backend.Status {
		return t.be.EntryModInc(t.session(), t.target, flags, t.schema.ID, k, d, int(mod))
	})
}

// Delete removes the entry matching key.
func (t *Table) Delete(ctx context.Context, key Fields) error {
	if err := t.check(ctx, "delete"); err != nil {
		return err
	}
	fields, err := t.parseKey(key)
	if err != nil {
		return err
	}
	keyHdl, release, err := t.makeKey(fields)
	if err != nil {
		return err
	}
	defer release()
	return t.deleteKey(keyHdl)
}

func (t *Table) deleteKey(key backend.Handle) error {
	flags, err := t.flags(0)
	if err != nil {
		return err
	}
	defer t.releaseFlags(flags)
	sts := t.be.EntryDel(t.session(), t.target, flags, t.schema.ID, key)
	t.notify("delete", "", sts)
	if !sts.OK() {
		return t.fail("delete", sts)
	}
	return nil
}

// DeleteByHandle removes the entry with the given handle.
func (t *Table) DeleteByHandle(ctx context.Context, handle uint32) error {
	if err := t.check(ctx, "delete"); err != nil {
		return err
	}
	if !t.schema.SupportsAPI(defs.APIGetByHandle) {
		return t.notSupported("delete by handle")
	}
	key, err := t.allocKey()
	if err != nil {
		return err
	}
	defer t.releaseKey(key)
	if err := t.keyByHandle(handle, key); err != nil {
		return err
	}
	return t.deleteKey(key)
}

func (t *Table) keyByHandle(handle uint32, key backend.Handle) error {
	flags, err := t.flags(0)
	if err != nil {
		return err
	}
	defer t.releaseFlags(flags)
	tgt, sts := t.be.EntryKeyGet(t.session(), t.target, flags, t.schema.ID, handle, key)
	if !sts.OK() {
		return t.fail("get_key", sts)
	}
	t.log.Debug("entry %d belongs to %s", handle, tgt)
	return nil
}

// readStatus converts the status of a read. Quiet reads do not log
// missing entries.
func (t *Table) readStatus(op string, sts backend.Status, quiet bool) error {
	if sts.OK() {
		return nil
	}
	if quiet && sts == backend.ObjectNotFound {
		return ErrNotFound
	}
	return t.fail(op, sts)
}

// entry converts a key and a data object to an entry.
func (t *Table) entry(key, data backend.Handle) (*Entry, error) {
	var keys Values
	if key != backend.NilHandle {
		var err error
		if keys, err = t.readKeyFields(key); err != nil {
			return nil, err
		}
	}
	action, values, err := t.readDataFields(data)
	if err != nil {
		return nil, err
	}
	return &Entry{Key: keys, Data: values, Action: action, table: t}, nil
}

// Get reads the entry matching key.
func (t *Table) Get(ctx context.Context, key Fields, opts GetOptions) (*Entry, error) {
	if err := t.check(ctx, "get"); err != nil {
		return nil, err
	}
	fields, err := t.parseKey(key)
	if err != nil {
		return nil, err
	}
	keyHdl, release, err := t.makeKey(fields)
	if err != nil {
		return nil, err
	}
	defer release()
	data, err := t.allocData()
	if err != nil {
		return nil, err
	}
	defer t.releaseData(data)
	flags, err := t.flags(readFlags(opts.FromHW))
	if err != nil {
		return nil, err
	}
	defer t.releaseFlags(flags)

	sts := t.be.EntryGet(t.session(), t.target, flags, t.schema.ID, keyHdl, data)
	if err := t.readStatus("get", sts, opts.Quiet); err != nil {
		return nil, err
	}
	return t.entry(keyHdl, data)
}

// GetByHandle reads the entry with the given handle.
func (t *Table) GetByHandle(ctx context.Context, handle uint32, opts GetOptions) (*Entry, error) {
	if err := t.check(ctx, "get_by_handle"); err != nil {
		return nil, err
	}
	key, err := t.allocKey()
	if err != nil {
		return nil, err
	}
	defer t.releaseKey(key)
	data, err := t.allocData()
	if err != nil {
		return nil, err
	}
	defer t.releaseData(data)
	flags, err := t.flags(readFlags(opts.FromHW))
	if err != nil {
		return nil, err
	}
	defer t.releaseFlags(flags)

	sts := t.be.EntryGetByHandle(t.session(), t.target, flags, t.schema.ID, handle, key, data)
	if err := t.readStatus("get_by_handle", sts, opts.Quiet); err != nil {
		return nil, err
	}
	return t.entry(key, data)
}

// GetHandle returns the handle of the entry matching key.
func (t *Table) GetHandle(ctx context.Context, key Fields) (uint32, error) {
	if err := t.check(ctx, "get_handle"); err != nil {
		return 0, err
	}
	fields, err := t.parseKey(key)
	if err != nil {
		return 0, err
	}
	keyHdl, release, err := t.makeKey(fields)
	if err != nil {
		return 0, err
	}
	defer release()
	flags, err := t.flags(0)
	if err != nil {
		return 0, err
	}
	defer t.releaseFlags(flags)

	handle, sts := t.be.EntryHandleGet(t.session(), t.target, flags, t.schema.ID, keyHdl)
	if !sts.OK() {
		return 0, t.fail("get_handle", sts)
	}
	return handle, nil
}

// GetKey returns the key of the entry with the given handle.
func (t *Table) GetKey(ctx context.Context, handle uint32) (Values, error) {
	if err := t.check(ctx, "get_key"); err != nil {
		return nil, err
	}
	key, err := t.allocKey()
	if err != nil {
		return nil, err
	}
	defer t.releaseKey(key)
	if err := t.keyByHandle(handle, key); err != nil {
		return nil, err
	}
	return t.readKeyFields(key)
}

// GetFirst reads the first entry of the table. It returns ErrNotFound when
// the table is empty.
func (t *Table) GetFirst(ctx context.Context, fromHW bool) (*Entry, error) {
	if err := t.check(ctx, "get_first"); err != nil {
		return nil, err
	}
	key, data, err := t.first(fromHW)
	if err != nil {
		return nil, err
	}
	defer t.releaseKey(key)
	defer t.releaseData(data)
	return t.entry(key, data)
}

// first returns the objects of the first entry, the caller releases them.
func (t *Table) first(fromHW bool) (backend.Handle, backend.Handle, error) {
	key, err := t.allocKey()
	if err != nil {
		return backend.NilHandle, backend.NilHandle, err
	}
	data, err := t.allocData()
	if err != nil {
		t.releaseKey(key)
		return backend.NilHandle, backend.NilHandle, err
	}
	flags, err := t.flags(readFlags(fromHW))
	if err != nil {
		t.releaseKey(key)
		t.releaseData(data)
		return backend.NilHandle, backend.NilHandle, err
	}
	defer t.releaseFlags(flags)

	sts := t.be.EntryGetFirst(t.session(), t.target, flags, t.schema.ID, key, data)
	if err := t.readStatus("get_first", sts, true); err != nil {
		t.releaseKey(key)
		t.releaseData(data)
		return backend.NilHandle, backend.NilHandle, err
	}
	return key, data, nil
}

// GetNext reads up to n entries following the entry matching prev.
func (t *Table) GetNext(ctx context.Context, prev Fields, n int, fromHW bool) ([]*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !t.schema.SupportsAPI(defs.APIGetNextN) {
		return nil, nil
	}
	fields, err := t.parseKey(prev)
	if err != nil {
		return nil, err
	}
	prevKey, release, err := t.makeKey(fields)
	if err != nil {
		return nil, err
	}
	defer release()

	keys, datas, err := t.next(prevKey, n, fromHW)
	if err != nil {
		return nil, err
	}
	defer func() {
		for i := range keys {
			t.releaseKey(keys[i])
			t.releaseData(datas[i])
		}
	}()
	entries := make([]*Entry, 0, len(keys))
	for i := range keys {
		e, err := t.entry(keys[i], datas[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// next returns the objects of up to n entries following prev, the caller
// releases them. A missing entry ends the list.
func (t *Table) next(prev backend.Handle, n int, fromHW bool) ([]backend.Handle, []backend.Handle, error) {
	if n <= 0 || !t.schema.SupportsAPI(defs.APIGetNextN) {
		return nil, nil, nil
	}
	keys := make([]backend.Handle, 0, n)
	datas := make([]backend.Handle, 0, n)
	release := func(from int) {
		for i := from; i < len(keys); i++ {
			t.releaseKey(keys[i])
		}
		for i := from; i < len(datas); i++ {
			t.releaseData(datas[i])
		}
	}
	for i := 0; i < n; i++ {
		k, err := t.allocKey()
		if err != nil {
			release(0)
			return nil, nil, err
		}
		keys = append(keys, k)
		d, err := t.allocData()
		if err != nil {
			release(0)
			return nil, nil, err
		}
		datas = append(datas, d)
	}
	flags, err := t.flags(readFlags(fromHW))
	if err != nil {
		release(0)
		return nil, nil, err
	}
	defer t.releaseFlags(flags)

	read, sts := t.be.EntryGetNextN(t.session(), t.target, flags, t.schema.ID, prev, keys, datas)
	if sts == backend.ObjectNotFound {
		read = 0
	} else if !sts.OK() {
		release(0)
		return nil, nil, t.fail("get_next_n", sts)
	}
	release(read)
	return keys[:read], datas[:read], nil
}

// GetDefault reads the default entry. The returned entry can not be
// pushed, updated or removed.
func (t *Table) GetDefault(ctx context.Context, fromHW bool) (*Entry, error) {
	if err := t.check(ctx, "get_default"); err != nil {
		return nil, err
	}
	data, err := t.allocData()
	if err != nil {
		return nil, err
	}
	defer t.releaseData(data)
	flags, err := t.flags(readFlags(fromHW))
	if err != nil {
		return nil, err
	}
	defer t.releaseFlags(flags)

	sts := t.be.DefaultEntryGet(t.session(), t.target, flags, t.schema.ID, data)
	if !sts.OK() {
		return nil, t.fail("get_default", sts)
	}
	e, err := t.entry(backend.NilHandle, data)
	if err != nil {
		return nil, err
	}
	e.isDefault = true
	return e, nil
}

// SetDefault sets the default entry.
func (t *Table) SetDefault(ctx context.Context, data Fields, action string) error {
	if err := t.check(ctx, "set_default"); err != nil {
		return err
	}
	ref, fields, err := t.resolveAction(action)
	if err != nil {
		return err
	}
	values, err := t.parseData(data, fields, true)
	if err != nil {
		return err
	}
	dataHdl, release, err := t.makeData(ref, values)
	if err != nil {
		return err
	}
	defer release()
	flags, err := t.flags(0)
	if err != nil {
		return err
	}
	defer t.releaseFlags(flags)

	sts := t.be.DefaultEntrySet(t.session(), t.target, flags, t.schema.ID, dataHdl)
	t.notify("set_default", action, sts)
	if !sts.OK() {
		return t.fail("set_default", sts)
	}
	return nil
}

// ResetDefault restores the default entry of the program.
func (t *Table) ResetDefault(ctx context.Context) error {
	if err := t.check(ctx, "reset_default"); err != nil {
		return err
	}
	flags, err := t.flags(0)
	if err != nil {
		return err
	}
	defer t.releaseFlags(flags)
	sts := t.be.DefaultEntryReset(t.session(), t.target, flags, t.schema.ID)
	t.notify("reset_default", "", sts)
	if !sts.OK() {
		return t.fail("reset_default", sts)
	}
	return nil
}

// Clear removes every entry, inside a batch when batch is set.
func (t *Table) Clear(ctx context.Context, batch bool) error {
	if err := t.check(ctx, "clear"); err != nil {
		return err
	}
	run := func(ctx context.Context) error {
		flags, err := t.flags(0)
		if err != nil {
			return err
		}
		defer t.releaseFlags(flags)
		sts := t.be.Clear(t.session(), t.target, flags, t.schema.ID)
		t.notify("clear", "", sts)
		if !sts.OK() {
			return t.fail("clear", sts)
		}
		return nil
	}
	if batch && t.sess != nil {
		return Batch(ctx, t.sess, run)
	}
	return run(ctx)
}

// Usage returns the number of entries of the table. ok is false when the
// table does not support usage_get.
func (t *Table) Usage(ctx context.Context, fromHW bool) (usage uint32, ok bool, err error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	if !t.schema.SupportsAPI(defs.APIUsageGet) {
		return 0, false, nil
	}
	flags, err := t.flags(readFlags(fromHW))
	if err != nil {
		return 0, false, err
	}
	defer t.releaseFlags(flags)
	usage, sts := t.be.UsageGet(t.session(), t.target, flags, t.schema.ID)
	if !sts.OK() {
		return 0, false, t.fail("usage_get", sts)
	}
	return usage, true, nil
}

// Capacity returns the number of entries the table can hold.
func (t *Table) Capacity(ctx context.Context) (uint64, error) {
	if err := t.check(ctx, "get_size"); err != nil {
		return 0, err
	}
	flags, err := t.flags(0)
	if err != nil {
		return 0, err
	}
	defer t.releaseFlags(flags)
	size, sts := t.be.SizeGet(t.session(), t.target, flags, t.schema.ID)
	if !sts.OK() {
		return 0, t.fail("get_size", sts)
	}
	return size, nil
}
