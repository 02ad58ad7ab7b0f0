package swtarget

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/tdictl/tdid/internal/testutil"
	"github.com/tdictl/tdid/tdi/backend"
	"github.com/tdictl/tdid/tdi/defs"
)

var tgt = backend.Target{PipeID: backend.AllPipes}

func load(t *testing.T) *Target {
	t.Helper()
	target, err := Load([]byte(testutil.Program))
	if err != nil {
		t.Fatalf("Error loading program: %s", err)
	}
	return target
}

func must(t *testing.T, sts backend.Status) {
	t.Helper()
	if !sts.OK() {
		t.Fatalf("unexpected status: %s", sts.Message())
	}
}

func aclKey(t *testing.T, target *Target, prio uint64) backend.Handle {
	t.Helper()
	key, sts := target.KeyAllocate(testutil.TableACL)
	must(t, sts)
	must(t, target.KeySetValue(key, 4, prio))
	must(t, target.KeySetValueAndMaskPtr(key, 1, []byte{0x08, 0x00}, []byte{0xff, 0xff}))
	return key
}

func TestLoad(t *testing.T) {
	target := load(t)
	want := []string{"pipe.Ingress.ipv4_lpm", "pipe.Ingress.acl", "pipe.Ingress.reg", "$PORT_CFG", "pipe.Ingress.sel", "$PRE_NODE"}
	if diff := cmp.Diff(want, target.TableNames()); diff != "" {
		t.Errorf("tables mismatch (-want +got):\n%s", diff)
	}

	t.Run("errors", func(t *testing.T) {
		if _, err := Load([]byte(`{"foo": 1}`)); err == nil {
			t.Error("expected error without tables")
		}
		dup := `{"tables": [{"name": "a", "id": 1}, {"name": "b", "id": 1}]}`
		if _, err := Load([]byte(dup)); err == nil || !strings.Contains(err.Error(), "duplicated") {
			t.Errorf("expected duplicated id error, got %v", err)
		}
	})

	t.Run("info", func(t *testing.T) {
		typ, sts := target.TableType(testutil.TablePreNode)
		must(t, sts)
		if defs.TableType(typ).String() != "PRE_NODE" {
			t.Errorf("unexpected table type: %s", defs.TableType(typ))
		}
		size, sts := target.KeyFieldSize(testutil.TableLPM, 1)
		must(t, sts)
		if size != 32 {
			t.Errorf("unexpected key size: %d", size)
		}
		dt, sts := target.DataFieldType(testutil.TablePreNode, 4, 0)
		must(t, sts)
		if defs.DataType(dt) != defs.Container {
			t.Errorf("expected container, got %s", defs.DataType(dt))
		}
		ids := make([]uint32, 2)
		must(t, target.ContainerDataFieldList(testutil.TablePreNode, 4, ids))
		if diff := cmp.Diff([]uint32{11, 12}, ids); diff != "" {
			t.Errorf("container children mismatch (-want +got):\n%s", diff)
		}
		n, sts := target.NumAPISupported(testutil.TableLPM)
		must(t, sts)
		if n != int(defs.APIInvalid) {
			t.Errorf("expected every api, got %d", n)
		}
		if _, sts := target.TableName(99); sts != backend.TableNotFound {
			t.Errorf("expected table not found, got %s", sts.Message())
		}
	})
}

func TestEntries(t *testing.T) {
	target := load(t)
	sess, sts := target.SessionCreate()
	must(t, sts)

	for prio := uint64(1); prio <= 4; prio++ {
		key := aclKey(t, target, prio)
		data, sts := target.ActionDataAllocate(testutil.TableACL, testutil.ActionPermit)
		must(t, sts)
		must(t, target.DataSetValue(data, 1, prio*10))
		must(t, target.EntryAdd(sess, tgt, backend.NilHandle, testutil.TableACL, key, data))
		must(t, target.DataDeallocate(data))
		must(t, target.KeyDeallocate(key))
	}

	t.Run("duplicate and full", func(t *testing.T) {
		key := aclKey(t, target, 1)
		defer target.KeyDeallocate(key)
		data, _ := target.ActionDataAllocate(testutil.TableACL, testutil.ActionDeny)
		defer target.DataDeallocate(data)
		if sts := target.EntryAdd(sess, tgt, backend.NilHandle, testutil.TableACL, key, data); sts != backend.AlreadyExists {
			t.Errorf("expected already exists, got %s", sts.Message())
		}
		must(t, target.KeySetValue(key, 4, 5))
		if sts := target.EntryAdd(sess, tgt, backend.NilHandle, testutil.TableACL, key, data); sts != backend.NoSpace {
			t.Errorf("expected no space, got %s", sts.Message())
		}
	})

	t.Run("get", func(t *testing.T) {
		key := aclKey(t, target, 3)
		defer target.KeyDeallocate(key)
		data, _ := target.DataAllocate(testutil.TableACL)
		defer target.DataDeallocate(data)
		must(t, target.EntryGet(sess, tgt, backend.NilHandle, testutil.TableACL, key, data))
		action, _ := target.DataActionID(data)
		if action != testutil.ActionPermit {
			t.Errorf("unexpected action %d", action)
		}
		pkts, sts := target.DataGetValue(data, 1)
		must(t, sts)
		if pkts != 30 {
			t.Errorf("unexpected counter %d", pkts)
		}
		// completed with its default
		if active, _ := target.DataFieldIsActive(data, 2); !active {
			t.Error("expected bytes counter to be active")
		}
	})

	t.Run("get next", func(t *testing.T) {
		first, _ := target.KeyAllocate(testutil.TableACL)
		data, _ := target.DataAllocate(testutil.TableACL)
		must(t, target.EntryGetFirst(sess, tgt, backend.NilHandle, testutil.TableACL, first, data))
		keys := make([]backend.Handle, 5)
		datas := make([]backend.Handle, 5)
		for i := range keys {
			keys[i], _ = target.KeyAllocate(testutil.TableACL)
			datas[i], _ = target.DataAllocate(testutil.TableACL)
		}
		n, sts := target.EntryGetNextN(sess, tgt, backend.NilHandle, testutil.TableACL, first, keys, datas)
		must(t, sts)
		if n != 3 {
			t.Errorf("expected 3 entries, got %d", n)
		}
		prio, _ := target.KeyGetValue(keys[2], 4)
		if prio != 4 {
			t.Errorf("expected insertion order, last priority is %d", prio)
		}
		target.KeyDeallocate(first)
		target.DataDeallocate(data)
		for i := range keys {
			target.KeyDeallocate(keys[i])
			target.DataDeallocate(datas[i])
		}
	})

	t.Run("usage", func(t *testing.T) {
		usage, sts := target.UsageGet(sess, tgt, backend.NilHandle, testutil.TableACL)
		must(t, sts)
		if usage != 4 {
			t.Errorf("unexpected usage %d", usage)
		}
		if _, sts := target.UsageGet(sess, tgt, backend.NilHandle, testutil.TablePreNode); !sts.OK() {
			t.Errorf("unexpected status %s", sts.Message())
		}
	})

	must(t, target.SessionDestroy(sess))
	if n := target.Objects(); n != 0 {
		t.Errorf("%d handles leaked", n)
	}
}

func TestKeyValidation(t *testing.T) {
	target := load(t)
	key, _ := target.KeyAllocate(testutil.TableLPM)
	defer target.KeyDeallocate(key)

	if sts := target.KeySetValueLPM(key, 1, 0xc0a80100, 33); sts != backend.InvalidArg {
		t.Errorf("prefix longer than the field: %s", sts.Message())
	}
	if sts := target.KeySetValueLPMPtr(key, 1, []byte{1, 2, 3}, 8); sts != backend.InvalidArg {
		t.Errorf("short buffer: %s", sts.Message())
	}
	if sts := target.KeySetValue(key, 1, 1); sts != backend.InvalidArg {
		t.Errorf("wrong match type: %s", sts.Message())
	}
	must(t, target.KeySetValueLPMPtr(key, 1, []byte{192, 168, 1, 0}, 24))
	v, plen, sts := target.KeyGetValueLPM(key, 1)
	must(t, sts)
	if v != 3232235776 || plen != 24 {
		t.Errorf("unexpected lpm value %d/%d", v, plen)
	}
}

func TestTransaction(t *testing.T) {
	target := load(t)
	sess, _ := target.SessionCreate()
	defer target.SessionDestroy(sess)

	add := func(id uint64) backend.Status {
		key, _ := target.KeyAllocate(testutil.TableRegister)
		defer target.KeyDeallocate(key)
		data, _ := target.DataAllocate(testutil.TableRegister)
		defer target.DataDeallocate(data)
		target.KeySetValue(key, 1, id)
		target.DataSetValuePtr(data, 1, []byte{0, 0, 0, byte(id)})
		return target.EntryAdd(sess, tgt, backend.NilHandle, testutil.TableRegister, key, data)
	}
	must(t, add(1))

	must(t, target.BeginTransaction(sess, true))
	must(t, add(2))
	must(t, add(3))
	must(t, target.Clear(sess, tgt, backend.NilHandle, testutil.TableRegister))
	must(t, target.AbortTransaction(sess))

	usage, _ := target.UsageGet(sess, tgt, backend.NilHandle, testutil.TableRegister)
	if usage != 1 {
		t.Errorf("expected the transaction to be reverted, %d entries", usage)
	}
	if sts := target.CommitTransaction(sess, false); sts != backend.TransactionError {
		t.Errorf("commit without transaction: %s", sts.Message())
	}
	if sts := target.EndBatch(sess, false); sts != backend.InvalidArg {
		t.Errorf("end batch without begin: %s", sts.Message())
	}
}

func TestContainer(t *testing.T) {
	target := load(t)
	key, _ := target.KeyAllocate(testutil.TablePreNode)
	defer target.KeyDeallocate(key)
	data, _ := target.DataAllocate(testutil.TablePreNode)
	defer target.DataDeallocate(data)
	must(t, target.KeySetValue(key, 1, 7))

	var records []backend.Handle
	for i, name := range []string{"red", "blue"} {
		r, sts := target.DataAllocateContainer(testutil.TablePreNode, 4)
		must(t, sts)
		must(t, target.DataSetString(r, 11, name))
		must(t, target.DataSetValue(r, 12, uint64(i)))
		records = append(records, r)
	}
	must(t, target.DataSetValueDataFieldArray(data, 4, records))
	must(t, target.DataSetValueStrArray(data, 3, "a b"))
	must(t, target.EntryAdd(backend.NilHandle, tgt, backend.NilHandle, testutil.TablePreNode, key, data))

	out, _ := target.DataAllocate(testutil.TablePreNode)
	must(t, target.EntryGet(backend.NilHandle, tgt, backend.NilHandle, testutil.TablePreNode, key, out))
	n, sts := target.DataGetValueDataFieldArraySize(out, 4)
	must(t, sts)
	got := make([]backend.Handle, n)
	must(t, target.DataGetValueDataFieldArray(out, 4, got))
	var names []string
	for _, r := range got {
		s, sts := target.DataGetString(r, 11)
		must(t, sts)
		names = append(names, s)
	}
	if diff := cmp.Diff([]string{"red", "blue"}, names); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	labels, _ := target.DataGetValueStrArray(out, 3)
	if labels != "a b" {
		t.Errorf("unexpected labels %q", labels)
	}
	// records handed out are released along with their parent
	must(t, target.DataDeallocate(out))
	if n := target.Objects(); n != 2 {
		t.Errorf("expected key and data only, got %d objects", n)
	}
}

func TestCallbacks(t *testing.T) {
	target := load(t)

	t.Run("port status", func(t *testing.T) {
		attr, sts := target.PortStatusNotifAttributesAllocate(testutil.TablePortCfg)
		must(t, sts)
		var got []uint64
		must(t, target.PortStatusNotifSet(attr, true, func(tgt backend.Target, key backend.Handle, up bool) {
			port, _ := target.KeyGetValue(key, 1)
			got = append(got, port)
		}))
		must(t, target.AttributesSet(backend.NilHandle, tgt, backend.NilHandle, testutil.TablePortCfg, attr))
		must(t, target.AttributesDeallocate(attr))

		if n := target.PortStatusChange(12, true); n != 1 {
			t.Errorf("expected one callback, got %d", n)
		}
		if diff := cmp.Diff([]uint64{12}, got); diff != "" {
			t.Errorf("ports mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("selector", func(t *testing.T) {
		attr, _ := target.SelectorUpdateAttributesAllocate(testutil.TableSelector)
		var members []uint32
		target.SelectorUpdateSet(attr, true, func(sess backend.Handle, tgt backend.Target, group, member uint32, idx int, isAdd bool) {
			if isAdd {
				members = append(members, member)
			}
		})
		must(t, target.AttributesSet(backend.NilHandle, tgt, backend.NilHandle, testutil.TableSelector, attr))
		target.AttributesDeallocate(attr)

		key, _ := target.KeyAllocate(testutil.TableSelector)
		data, _ := target.DataAllocate(testutil.TableSelector)
		target.KeySetValue(key, 1, 1)
		must(t, target.DataSetValueArray(data, 1, []uint32{5, 6}))
		must(t, target.EntryAdd(backend.NilHandle, tgt, backend.NilHandle, testutil.TableSelector, key, data))
		target.KeyDeallocate(key)
		target.DataDeallocate(data)
		if diff := cmp.Diff([]uint32{5, 6}, members); diff != "" {
			t.Errorf("members mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("operation", func(t *testing.T) {
		if _, sts := target.OperationsAllocate(testutil.TableACL, int(defs.OpRegisterSync)); sts != backend.NotSupported {
			t.Errorf("unexpected status %s", sts.Message())
		}
		ops, sts := target.OperationsAllocate(testutil.TableRegister, int(defs.OpRegisterSync))
		must(t, sts)
		called := 0
		must(t, target.OperationsRegisterSyncSet(ops, backend.NilHandle, tgt, func(backend.Target) { called++ }))
		must(t, target.OperationsExecute(testutil.TableRegister, ops))
		must(t, target.OperationsDeallocate(ops))
		if called != 1 {
			t.Errorf("callback called %d times", called)
		}
	})

	if n := target.Objects(); n != 0 {
		t.Errorf("%d handles leaked", n)
	}
}

func TestWatch(t *testing.T) {
	path := testutil.WriteProgram(t)
	target, err := Open(path)
	if err != nil {
		t.Fatalf("Error opening program: %s", err)
	}
	if err := target.Watch(); err != nil {
		t.Fatalf("Error watching program: %s", err)
	}
	defer target.StopWatcher()

	reduced := `{"tables": [{"name": "pipe.Ingress.reg", "id": 3, "table_type": "Register"}]}`
	if err := os.WriteFile(path, []byte(reduced), 0600); err != nil {
		t.Fatal(err)
	}
	select {
	case <-target.Reloaded():
	case <-time.After(5 * time.Second):
		t.Fatal("program not reloaded")
	}
	if diff := cmp.Diff([]string{"pipe.Ingress.reg"}, target.TableNames()); diff != "" {
		t.Errorf("tables mismatch (-want +got):\n%s", diff)
	}
}
