package table

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/buger/jsonparser"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/tdictl/tdid/internal/testutil"
	"github.com/tdictl/tdid/tdi/backend"
	"github.com/tdictl/tdid/tdi/backend/swtarget"
	"github.com/tdictl/tdid/tdi/codec"
	"github.com/tdictl/tdid/tdi/defs"
)

var (
	ctx     = context.Background()
	bigCmp  = cmp.Comparer(func(a, b *big.Int) bool { return a.Cmp(b) == 0 })
	errBoom = errors.New("boom")
)

func open(t *testing.T) (*swtarget.Target, *Program) {
	t.Helper()
	target, err := swtarget.Load([]byte(testutil.Program))
	if err != nil {
		t.Fatalf("Error loading program: %s", err)
	}
	prog, err := Open(target)
	if err != nil {
		t.Fatalf("Error opening program: %s", err)
	}
	return target, prog
}

func get(t *testing.T, prog *Program, name string) *Table {
	t.Helper()
	tbl := prog.Table(name)
	if tbl == nil {
		t.Fatalf("table %s not found in %v", name, prog.Names())
	}
	return tbl
}

// leaks fails if handles other than the program session are allocated.
func leaks(t *testing.T, target *swtarget.Target) {
	t.Helper()
	if n := target.Objects(); n != 1 {
		t.Errorf("%d handles allocated, expected the session only", n)
	}
}

func TestAddGet(t *testing.T) {
	target, prog := open(t)
	lpm := get(t, prog, "pipe.Ingress.ipv4_lpm")
	key := Fields{"hdr.ipv4.dst_addr": []interface{}{"192.168.1.0", 24}}

	if err := lpm.Add(ctx, key, Fields{"port": 5}, "Ingress.forward"); err != nil {
		t.Fatalf("Error adding entry: %s", err)
	}
	e, err := lpm.Get(ctx, key, GetOptions{})
	if err != nil {
		t.Fatalf("Error reading entry: %s", err)
	}
	if e.Action != "Ingress.forward" {
		t.Errorf("unexpected action %s", e.Action)
	}
	want := codec.LPM{Value: big.NewInt(3232235776), PrefixLen: 24}
	if diff := cmp.Diff(want, e.Key["hdr.ipv4.dst_addr"], bigCmp); diff != "" {
		t.Errorf("key mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(big.NewInt(5), e.Data["port"], bigCmp); diff != "" {
		t.Errorf("port mismatch (-want +got):\n%s", diff)
	}

	t.Run("duplicate", func(t *testing.T) {
		err := lpm.Add(ctx, key, Fields{"port": 6}, "Ingress.forward")
		if sts := StatusOf(err); sts != backend.AlreadyExists {
			t.Errorf("expected already exists, got %v", err)
		}
	})

	t.Run("quiet", func(t *testing.T) {
		missing := Fields{"hdr.ipv4.dst_addr": []interface{}{"10.0.0.0", 8}}
		_, err := lpm.Get(ctx, missing, GetOptions{Quiet: true})
		if errors.Cause(err) != ErrNotFound {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		_, err = lpm.Get(ctx, missing, GetOptions{})
		if !IsNotFound(err) {
			t.Errorf("expected object not found, got %v", err)
		}
	})

	t.Run("parse errors", func(t *testing.T) {
		err := lpm.Add(ctx, Fields{"hdr.ipv4.dst_addr": []interface{}{"10.0.0.0", 40}}, Fields{"port": 1}, "Ingress.forward")
		if !codec.IsKind(err, codec.BadInput) {
			t.Errorf("expected bad input, got %v", err)
		}
		err = lpm.Add(ctx, Fields{}, Fields{"port": 1}, "Ingress.forward")
		if !codec.IsKind(err, codec.MissingMandatory) {
			t.Errorf("expected missing field, got %v", err)
		}
		err = lpm.Add(ctx, key, Fields{"port": 1, "foo": 2}, "Ingress.forward")
		if !codec.IsKind(err, codec.UnknownField) {
			t.Errorf("expected unknown field, got %v", err)
		}
		if err = lpm.Add(ctx, key, Fields{"port": 1}, "Ingress.fwd"); err == nil {
			t.Error("expected unknown action error")
		}
	})

	leaks(t, target)
}

func TestModifyDelete(t *testing.T) {
	target, prog := open(t)
	pre := get(t, prog, "pre_node")
	key := Fields{"$MULTICAST_NODE_ID": 7}

	if err := pre.Add(ctx, key, Fields{"$MULTICAST_RID": 1, "$LABELS": "a b"}, ""); err != nil {
		t.Fatalf("Error adding entry: %s", err)
	}
	if err := pre.Modify(ctx, key, Fields{"MULTICAST_RID": 2}, "", false); err != nil {
		t.Fatalf("Error modifying entry: %s", err)
	}
	e, err := pre.Get(ctx, key, GetOptions{})
	if err != nil {
		t.Fatalf("Error reading entry: %s", err)
	}
	if diff := cmp.Diff(big.NewInt(2), e.Data["$MULTICAST_RID"], bigCmp); diff != "" {
		t.Errorf("rid mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b"}, e.Data["$LABELS"]); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}

	t.Run("handles", func(t *testing.T) {
		handle, err := pre.GetHandle(ctx, key)
		if err != nil {
			t.Fatalf("Error reading handle: %s", err)
		}
		got, err := pre.GetKey(ctx, handle)
		if err != nil {
			t.Fatalf("Error reading key: %s", err)
		}
		if diff := cmp.Diff(big.NewInt(7), got["$MULTICAST_NODE_ID"], bigCmp); diff != "" {
			t.Errorf("key mismatch (-want +got):\n%s", diff)
		}
		byHandle, err := pre.GetByHandle(ctx, handle, GetOptions{})
		if err != nil {
			t.Fatalf("Error reading by handle: %s", err)
		}
		if diff := cmp.Diff(e.Data, byHandle.Data, bigCmp); diff != "" {
			t.Errorf("data mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("update", func(t *testing.T) {
		if err := pre.Modify(ctx, key, Fields{"$MULTICAST_RID": 9}, "", true); err != nil {
			t.Fatalf("Error modifying entry: %s", err)
		}
		if err := e.Update(ctx); err != nil {
			t.Fatalf("Error updating entry: %s", err)
		}
		if diff := cmp.Diff(big.NewInt(9), e.Data["$MULTICAST_RID"], bigCmp); diff != "" {
			t.Errorf("rid mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("push existing", func(t *testing.T) {
		e.Data["$MULTICAST_RID"] = big.NewInt(11)
		if err := e.Push(ctx); err != nil {
			t.Fatalf("Error pushing entry: %s", err)
		}
		got, _ := pre.Get(ctx, key, GetOptions{})
		if diff := cmp.Diff(big.NewInt(11), got.Data["$MULTICAST_RID"], bigCmp); diff != "" {
			t.Errorf("rid mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("push new", func(t *testing.T) {
		other := Fields{"$MULTICAST_NODE_ID": 8}
		if err := pre.NewEntry(other, Fields{"$MULTICAST_RID": 3}, "").Push(ctx); err != nil {
			t.Fatalf("Error pushing entry: %s", err)
		}
		got, err := pre.Get(ctx, other, GetOptions{})
		if err != nil {
			t.Fatalf("Error reading pushed entry: %s", err)
		}
		if diff := cmp.Diff(big.NewInt(3), got.Data["$MULTICAST_RID"], bigCmp); diff != "" {
			t.Errorf("rid mismatch (-want +got):\n%s", diff)
		}
		if err := pre.Delete(ctx, other); err != nil {
			t.Fatalf("Error deleting entry: %s", err)
		}
	})

	t.Run("remove", func(t *testing.T) {
		if err := e.Remove(ctx); err != nil {
			t.Fatalf("Error removing entry: %s", err)
		}
		if _, err := pre.Get(ctx, key, GetOptions{Quiet: true}); errors.Cause(err) != ErrNotFound {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := pre.GetFirst(ctx, false); errors.Cause(err) != ErrNotFound {
			t.Errorf("expected empty table, got %v", err)
		}
	})

	t.Run("not supported", func(t *testing.T) {
		acl := get(t, prog, "pipe.Ingress.acl")
		if err := acl.DeleteByHandle(ctx, 1); errors.Cause(err) != ErrNotSupported {
			t.Errorf("expected ErrNotSupported, got %v", err)
		}
		if _, err := acl.GetKey(ctx, 1); errors.Cause(err) != ErrNotSupported {
			t.Errorf("expected ErrNotSupported, got %v", err)
		}
	})

	leaks(t, target)
}

func TestDump(t *testing.T) {
	target, prog := open(t)
	pre := get(t, prog, "pre_node")

	fill := func(t *testing.T, n int) {
		t.Helper()
		if err := pre.Clear(ctx, true); err != nil {
			t.Fatalf("Error clearing table: %s", err)
		}
		for i := 0; i < n; i++ {
			if err := pre.Add(ctx, Fields{"$MULTICAST_NODE_ID": i}, Fields{"$MULTICAST_RID": i}, ""); err != nil {
				t.Fatalf("Error adding entry %d: %s", i, err)
			}
		}
	}

	tests := []struct {
		entries int
		batches []int
	}{
		{0, nil},
		{1, []int{1}},
		{20, []int{20}},
		{40, []int{20, 20}},
		{45, []int{20, 20, 5}},
	}
	for _, test := range tests {
		fill(t, test.entries)
		var batches []int
		seen := make(map[int64]bool)
		err := pre.Dump(ctx, func(batch []*Entry) error {
			batches = append(batches, len(batch))
			// only the session and the objects of this batch are alive
			if n := target.Objects(); n != 1+2*len(batch) {
				t.Errorf("%d entries: %d handles allocated while visiting a batch of %d", test.entries, n, len(batch))
			}
			for _, e := range batch {
				seen[e.Key["$MULTICAST_NODE_ID"].(*big.Int).Int64()] = true
			}
			return nil
		}, false)
		if err != nil {
			t.Fatalf("Error dumping %d entries: %s", test.entries, err)
		}
		if diff := cmp.Diff(test.batches, batches); diff != "" {
			t.Errorf("%d entries: batches mismatch (-want +got):\n%s", test.entries, diff)
		}
		if len(seen) != test.entries {
			t.Errorf("%d entries: visited %d distinct entries", test.entries, len(seen))
		}
		leaks(t, target)
	}

	t.Run("entries", func(t *testing.T) {
		all, err := pre.Entries(ctx, false)
		if err != nil {
			t.Fatalf("Error reading entries: %s", err)
		}
		if len(all) != 45 {
			t.Errorf("expected 45 entries, got %d", len(all))
		}
		usage, ok, err := pre.Usage(ctx, false)
		if err != nil || !ok || usage != 45 {
			t.Errorf("unexpected usage %d (%v): %v", usage, ok, err)
		}
		size, err := pre.Capacity(ctx)
		if err != nil || size != 128 {
			t.Errorf("unexpected capacity %d: %v", size, err)
		}
	})

	t.Run("visitor error", func(t *testing.T) {
		err := pre.Dump(ctx, func([]*Entry) error { return errBoom }, false)
		if err != errBoom {
			t.Errorf("expected visitor error, got %v", err)
		}
		leaks(t, target)
	})

	t.Run("canceled", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		if err := pre.Dump(canceled, func([]*Entry) error { return nil }, false); err != context.Canceled {
			t.Errorf("expected canceled, got %v", err)
		}
	})
}

// recorder counts the table events, one per backend write.
type recorder struct {
	sync.Mutex
	events []Event
}

func (r *recorder) OnTableEvent(ev Event) {
	r.Lock()
	defer r.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) count() int {
	r.Lock()
	defer r.Unlock()
	return len(r.events)
}

func TestDefaultEntry(t *testing.T) {
	target, prog := open(t)
	lpm := get(t, prog, "pipe.Ingress.ipv4_lpm")

	def, err := lpm.GetDefault(ctx, false)
	if err != nil {
		t.Fatalf("Error reading default entry: %s", err)
	}
	if !def.IsDefault() || def.Key != nil {
		t.Errorf("unexpected default entry %+v", def)
	}
	calls := &recorder{}
	lpm.SetObserver(calls)
	for name, op := range map[string]func(context.Context) error{
		"push":   def.Push,
		"update": def.Update,
		"remove": def.Remove,
	} {
		if err := op(ctx); err != nil {
			t.Errorf("%s: expected a no-op, got %v", name, err)
		}
	}
	if n := calls.count(); n != 0 {
		t.Errorf("default entry operations reached the backend %d times", n)
	}
	lpm.SetObserver(nil)
	if _, err := lpm.GetFirst(ctx, false); errors.Cause(err) != ErrNotFound {
		t.Errorf("default entry was pushed: %v", err)
	}

	if err := lpm.SetDefault(ctx, Fields{"port": 3}, "Ingress.forward"); err != nil {
		t.Fatalf("Error setting default entry: %s", err)
	}
	def, err = lpm.GetDefault(ctx, false)
	if err != nil {
		t.Fatalf("Error reading default entry: %s", err)
	}
	if def.Action != "Ingress.forward" {
		t.Errorf("unexpected default action %s", def.Action)
	}
	if err := lpm.ResetDefault(ctx); err != nil {
		t.Errorf("Error resetting default entry: %s", err)
	}
	if err := lpm.SetDefault(ctx, Fields{}, "Ingress.forward"); !codec.IsKind(err, codec.MissingMandatory) {
		t.Errorf("expected missing port, got %v", err)
	}

	leaks(t, target)
}

func TestTransaction(t *testing.T) {
	target, prog := open(t)
	pre := get(t, prog, "pre_node")

	err := Transaction(ctx, prog.Session(), true, func(ctx context.Context) error {
		if err := pre.Add(ctx, Fields{"$MULTICAST_NODE_ID": 1}, nil, ""); err != nil {
			return err
		}
		return errBoom
	})
	if errors.Cause(err) != errBoom {
		t.Fatalf("expected the function error, got %v", err)
	}
	if _, err := pre.GetFirst(ctx, false); errors.Cause(err) != ErrNotFound {
		t.Errorf("aborted transaction left entries: %v", err)
	}

	err = Transaction(ctx, prog.Session(), true, func(ctx context.Context) error {
		return pre.Add(ctx, Fields{"$MULTICAST_NODE_ID": 2}, nil, "")
	})
	if err != nil {
		t.Fatalf("Error in transaction: %s", err)
	}
	if _, err := pre.Get(ctx, Fields{"$MULTICAST_NODE_ID": 2}, GetOptions{}); err != nil {
		t.Errorf("committed entry missing: %s", err)
	}

	err = Batch(ctx, prog.Session(), func(ctx context.Context) error {
		return pre.Add(ctx, Fields{"$MULTICAST_NODE_ID": 3}, nil, "")
	})
	if err != nil {
		t.Errorf("Error in batch: %s", err)
	}
	if err := prog.Session().Complete(); err != nil {
		t.Errorf("Error completing operations: %s", err)
	}

	leaks(t, target)
}

func TestJSON(t *testing.T) {
	target, prog := open(t)
	acl := get(t, prog, "pipe.Ingress.acl")
	key := Fields{"hdr.ethernet.ether_type": "0x0800, 0xffff", "$MATCH_PRIORITY": 1}
	if err := acl.Add(ctx, key, Fields{"$COUNTER_SPEC_PKTS": 10, "$COUNTER_SPEC_BYTES": 640}, "Ingress.permit"); err != nil {
		t.Fatalf("Error adding entry: %s", err)
	}

	blob, err := acl.DumpJSON(ctx, false)
	if err != nil {
		t.Fatalf("Error dumping entries: %s", err)
	}
	if !strings.Contains(string(blob), `"hdr.ethernet.ether_type":[2048,65535]`) {
		t.Errorf("unexpected dump %s", blob)
	}
	before, _ := acl.Get(ctx, key, GetOptions{})

	if err := acl.Clear(ctx, false); err != nil {
		t.Fatalf("Error clearing table: %s", err)
	}
	n, err := acl.AddFromJSON(ctx, blob)
	if err != nil || n != 1 {
		t.Fatalf("expected one entry added, got %d: %v", n, err)
	}
	after, err := acl.Get(ctx, key, GetOptions{})
	if err != nil {
		t.Fatalf("Error reading entry: %s", err)
	}
	if diff := cmp.Diff(before.Raw(), after.Raw(), bigCmp); diff != "" {
		t.Errorf("entry mismatch (-want +got):\n%s", diff)
	}

	t.Run("other table", func(t *testing.T) {
		other := strings.Replace(string(blob), "pipe.Ingress.acl", "pipe.Ingress.other", 1)
		if n, err := acl.AddFromJSON(ctx, []byte(other)); err != nil || n != 0 {
			t.Errorf("expected entry skipped, got %d: %v", n, err)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		if _, err := acl.AddFromJSON(ctx, []byte(`"foo"`)); err == nil {
			t.Error("expected error for a string")
		}
	})

	t.Run("malformed list", func(t *testing.T) {
		if v, err := jsonValue([]byte(`[1 2]`), jsonparser.Array); err == nil {
			t.Errorf("expected error for a malformed list, got %v", v)
		}
		bad := `{"table_name":"pipe.Ingress.acl","action":"Ingress.permit",` +
			`"key":{"hdr.ethernet.ether_type":[2048 65535],"$MATCH_PRIORITY":2}}`
		if n, err := acl.AddFromJSON(ctx, []byte(bad)); err == nil || n != 0 {
			t.Errorf("expected error for a malformed key, got %d: %v", n, err)
		}
	})

	leaks(t, target)
}

func TestPrintEntry(t *testing.T) {
	_, prog := open(t)
	acl := get(t, prog, "pipe.Ingress.acl")

	key := Values{
		"hdr.ethernet.ether_type": codec.Ternary{Value: big.NewInt(0x800), Mask: big.NewInt(0xffff)},
		"$MATCH_PRIORITY":         big.NewInt(1),
	}
	data := Values{
		"$COUNTER_SPEC_BYTES": big.NewInt(0),
		"$COUNTER_SPEC_PKTS":  big.NewInt(0),
	}
	want := "Entry key:\n" +
		"    hdr.ethernet.ether_type        : (0x0800, 0xFFFF)\n" +
		"    $MATCH_PRIORITY                : 1\n" +
		"Entry data (action : Ingress.permit):\n" +
		"    $COUNTER_SPEC_PKTS             : 0\n" +
		"    $COUNTER_SPEC_BYTES            : 0\n"
	text, zero := acl.PrintEntry(key, data, "Ingress.permit")
	if diff := cmp.Diff(want, text); diff != "" {
		t.Errorf("text mismatch (-want +got):\n%s", diff)
	}
	if !zero {
		t.Error("expected all zero data")
	}

	data["$COUNTER_SPEC_PKTS"] = big.NewInt(3)
	if _, zero := acl.PrintEntry(key, data, "Ingress.permit"); zero {
		t.Error("expected non zero data")
	}
	if text, zero := acl.PrintEntry(nil, nil, ""); text != "" || !zero {
		t.Errorf("unexpected empty entry %q", text)
	}
}

func TestCallbacks(t *testing.T) {
	target, prog := open(t)

	t.Run("operation", func(t *testing.T) {
		lpm := get(t, prog, "pipe.Ingress.ipv4_lpm")
		called := 0
		if err := lpm.OperationHitStateUpdate(ctx, func(backend.Target) { called++ }); err != nil {
			t.Fatalf("Error running operation: %s", err)
		}
		if called != 1 || lpm.Subscriptions().Pending(HitStateUpdate) {
			t.Errorf("called %d times, pending %v", called, lpm.Subscriptions().Pending(HitStateUpdate))
		}
		if err := lpm.OperationCounterSync(ctx, nil); errors.Cause(err) != ErrNotSupported {
			t.Errorf("expected ErrNotSupported, got %v", err)
		}
	})

	t.Run("port status", func(t *testing.T) {
		port := get(t, prog, "port.port_cfg")
		var ports []int64
		cb := func(tgt backend.Target, key Values, up bool) {
			ports = append(ports, key["$DEV_PORT"].(*big.Int).Int64())
		}
		if err := port.SetPortStatusNotify(ctx, cb); err != nil {
			t.Fatalf("Error registering callback: %s", err)
		}
		if err := port.SetPortStatusNotify(ctx, cb); errors.Cause(err) != ErrAlreadyPending {
			t.Errorf("expected ErrAlreadyPending, got %v", err)
		}
		target.PortStatusChange(7, true)
		port.Subscriptions().Unsubscribe(PortStatus)
		target.PortStatusChange(8, false)
		if diff := cmp.Diff([]int64{7}, ports); diff != "" {
			t.Errorf("ports mismatch (-want +got):\n%s", diff)
		}

		ms, err := port.PortStatsPollInterval(ctx)
		if err != nil || ms != 200 {
			t.Errorf("unexpected poll interval %d: %v", ms, err)
		}
		port.SetPortStatsPollInterval(ctx, 500)
		if ms, _ := port.PortStatsPollInterval(ctx); ms != 500 {
			t.Errorf("unexpected poll interval %d", ms)
		}
	})

	t.Run("selector", func(t *testing.T) {
		sel := get(t, prog, "pipe.Ingress.sel")
		var members []uint32
		err := sel.SetSelectorUpdate(ctx, func(tgt backend.Target, group, member uint32, idx int, isAdd bool) {
			members = append(members, member)
		})
		if err != nil {
			t.Fatalf("Error registering callback: %s", err)
		}
		if err := sel.Add(ctx, Fields{"$SELECTOR_GROUP_ID": 1}, Fields{"$ACTION_MEMBER_ID": []int{5, 6}}, ""); err != nil {
			t.Fatalf("Error adding group: %s", err)
		}
		if diff := cmp.Diff([]uint32{5, 6}, members); diff != "" {
			t.Errorf("members mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("idle timeout", func(t *testing.T) {
		lpm := get(t, prog, "pipe.Ingress.ipv4_lpm")
		var expired []Values
		err := lpm.SetIdleTableNotifyMode(ctx, true, func(tgt backend.Target, key Values) {
			expired = append(expired, key)
		}, 100, 1000, 100)
		if err != nil {
			t.Fatalf("Error enabling notify mode: %s", err)
		}
		idle, err := lpm.IdleTable(ctx)
		if err != nil || idle.Mode != defs.IdleNotifyMode || !idle.Enable || idle.MaxTTL != 1000 {
			t.Errorf("unexpected idle table %+v: %v", idle, err)
		}

		key := Fields{"hdr.ipv4.dst_addr": "10.0.0.0, 8"}
		if err := lpm.Add(ctx, key, Fields{}, "Ingress.drop"); err != nil {
			t.Fatalf("Error adding entry: %s", err)
		}
		handle, err := lpm.GetHandle(ctx, key)
		if err != nil {
			t.Fatalf("Error reading handle: %s", err)
		}
		if sts := target.ExpireEntry(testutil.TableLPM, handle); !sts.OK() {
			t.Fatalf("Error expiring entry: %s", sts.Message())
		}
		want := []Values{{"hdr.ipv4.dst_addr": codec.LPM{Value: big.NewInt(0x0a000000), PrefixLen: 8}}}
		if diff := cmp.Diff(want, expired, bigCmp); diff != "" {
			t.Errorf("expired mismatch (-want +got):\n%s", diff)
		}

		if err := lpm.SetIdleTablePollMode(ctx, true); err != nil {
			t.Errorf("Error enabling poll mode: %s", err)
		}
		if lpm.Subscriptions().Pending(IdleTimeout) {
			t.Error("idle timeout subscription still pending")
		}
	})

	t.Run("attributes", func(t *testing.T) {
		acl := get(t, prog, "pipe.Ingress.acl")
		if err := acl.SetDynKeyMask(ctx, Fields{"hdr.ethernet.ether_type": 0xff00}); err != nil {
			t.Fatalf("Error setting key mask: %s", err)
		}
		masks, err := acl.DynKeyMask(ctx)
		if err != nil {
			t.Fatalf("Error reading key mask: %s", err)
		}
		if diff := cmp.Diff(big.NewInt(0xff00), masks["hdr.ethernet.ether_type"], bigCmp); diff != "" {
			t.Errorf("mask mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(big.NewInt(0xffffffff), masks["$MATCH_PRIORITY"], bigCmp); diff != "" {
			t.Errorf("mask mismatch (-want +got):\n%s", diff)
		}

		if err := acl.SetSymmetricMode(ctx, true); err != nil {
			t.Fatalf("Error setting symmetric mode: %s", err)
		}
		if on, err := acl.SymmetricMode(ctx); err != nil || !on {
			t.Errorf("unexpected symmetric mode %v: %v", on, err)
		}
		if _, err := acl.MeterByteCountAdjust(ctx); errors.Cause(err) != ErrNotSupported {
			t.Errorf("expected ErrNotSupported, got %v", err)
		}
	})

	leaks(t, target)
}

func TestDumper(t *testing.T) {
	_, prog := open(t)
	port := get(t, prog, "port.port_cfg")
	for i, speed := range []string{"BF_SPEED_10G", "BF_SPEED_100G"} {
		if err := port.Add(ctx, Fields{"$DEV_PORT": i}, Fields{"$SPEED": speed}, ""); err != nil {
			t.Fatalf("Error adding port: %s", err)
		}
	}

	d := NewDumper(port)
	if err := port.Dump(ctx, d.Visit, false); err != nil {
		t.Fatalf("Error dumping: %s", err)
	}
	var out strings.Builder
	if err := d.Print(&out, true); err != nil {
		t.Fatalf("Error printing: %s", err)
	}
	text := out.String()
	if !strings.Contains(text, "$N_LANES") || strings.Contains(text, "$SPEED") {
		t.Errorf("expected only important fields:\n%s", text)
	}

	d = NewDumper(port)
	d.SetThreshold(1)
	if err := d.Filter("DEV_PORT", "1$"); err != nil {
		t.Fatalf("Error setting filter: %s", err)
	}
	port.Dump(ctx, d.Visit, false)
	entries := d.Entries()
	if len(entries) != 1 || entries[0].Data["$SPEED"] != "BF_SPEED_100G" {
		t.Errorf("unexpected entries %v", entries)
	}
	if err := d.Filter("foo", "."); !codec.IsKind(err, codec.UnknownField) {
		t.Errorf("expected unknown field, got %v", err)
	}
}
