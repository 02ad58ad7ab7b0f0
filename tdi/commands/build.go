package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/tdictl/tdid/tdi/backend"
	"github.com/tdictl/tdid/tdi/defs"
	"github.com/tdictl/tdid/tdi/field"
	"github.com/tdictl/tdid/tdi/schema"
	"github.com/tdictl/tdid/tdi/table"
)

// argument names besides the fields
const (
	optFromHW    = "from_hw"
	optHandle    = "handle"
	optResetTTL  = "reset_ttl"
	optModFlag   = "mod_flag"
	optPush      = "push"
	optJSON      = "json"
	optPrintZero = "print_zero"
	optThreshold = "threshold"
	optBatch     = "batch"
	optEntries   = "entries"
	optEnable    = "enable"
	optValue     = "value"
)

// build creates the commands of a table, only for the operations the
// backend supports on it.
func build(t *table.Table) *Node {
	n := &Node{t: t, commands: make(map[string]*Command)}
	sch := t.Schema()
	keys, _ := params(sch, nil)

	if sch.Supports("get") {
		n.add(&Command{Name: "get", Doc: "read an entry, by key or handle", keys: keys, options: []string{optFromHW, optHandle}, run: runGet})
	}
	if sch.Supports("get_handle") {
		n.add(&Command{Name: "get_handle", Doc: "read the handle of an entry", keys: keys, run: runGetHandle})
	}
	if sch.Supports("get_key") {
		n.add(&Command{Name: "get_key", Doc: "read the key of an entry handle", options: []string{optHandle}, run: runGetKey})
	}
	if sch.Supports("delete") {
		n.add(&Command{Name: "delete", Doc: "delete an entry, by key or handle", keys: keys, options: []string{optHandle}, run: runDelete})
	}

	if len(sch.Actions) == 0 {
		entryCommands(n, sch, "", "", sch.DataFields)
	}
	for _, a := range sch.Actions {
		entryCommands(n, sch, a.Name, "_with_"+actionSuffix(a.Name), a.DataFields)
	}

	if sch.Supports("reset_default") && !sch.HasConstDefaultAction {
		n.add(&Command{Name: "reset_default", Doc: "restore the initial default entry", run: runResetDefault})
	}
	if sch.Supports("get_default") {
		n.add(&Command{Name: "get_default", Doc: "read the default entry", options: []string{optFromHW}, run: runGetDefault})
	}
	if sch.Supports("dump") {
		n.add(&Command{Name: "dump", Doc: "print every entry", options: []string{optFromHW, optJSON, optPrintZero, optThreshold}, run: runDump})
	}
	if sch.Supports("clear") {
		n.add(&Command{Name: "clear", Doc: "delete every entry", options: []string{optBatch}, run: runClear})
	}
	n.add(&Command{Name: "info", Doc: "describe the fields and actions", run: runInfo})
	n.add(&Command{Name: "usage", Doc: "count the entries", options: []string{optFromHW}, run: runUsage})
	if sch.Supports("add_from_json") {
		n.add(&Command{Name: "add_from_json", Doc: "add entries from a JSON dump", options: []string{optEntries}, run: runAddFromJSON})
	}
	if sch.Supports("string_choices") {
		n.add(&Command{Name: "string_choices", Doc: "list the values of string fields", run: runStringChoices})
	}
	attributeCommands(n, sch, keys)
	return n
}

// entryCommands creates the commands writing entries with one action.
func entryCommands(n *Node, sch *schema.Table, action, suffix string, data []*field.Descriptor) {
	keys, fields := params(sch, data)
	defaultOnly := false
	if a := sch.Action(action); a != nil {
		defaultOnly = a.DefaultOnly()
	}
	if sch.Supports("set_default") && !sch.HasConstDefaultAction {
		n.add(&Command{Name: "set_default" + suffix, Action: action, Doc: "set the default entry", data: fields, run: runSetDefault})
	}
	if defaultOnly {
		return
	}
	if sch.Supports("add") {
		n.add(&Command{Name: "add" + suffix, Action: action, Doc: "add an entry", keys: keys, data: fields, run: runAdd})
	}
	if sch.Supports("mod") {
		n.add(&Command{Name: "mod" + suffix, Action: action, Doc: "modify an entry", keys: keys, data: fields, options: []string{optResetTTL}, run: runMod})
	}
	if sch.Supports("mod_inc") {
		n.add(&Command{Name: "mod_inc" + suffix, Action: action, Doc: "add or remove array members of an entry", keys: keys, data: fields, options: []string{optModFlag}, run: runModInc})
	}
	n.add(&Command{Name: "entry" + suffix, Action: action, Doc: "build an entry, and push it", keys: keys, data: fields, options: []string{optPush}, run: runEntry})
}

func attributeCommands(n *Node, sch *schema.Table, keys []param) {
	simple := []struct {
		cmd  string
		doc  string
		opts []string
		run  runFunc
	}{
		{"idle_table_set_poll", "enable polling of idle entries", []string{optEnable}, runIdlePoll},
		{"idle_table_get", "read the idle table settings", nil, runIdleGet},
		{"symmetric_mode_set", "set the symmetric mode", []string{optEnable}, runSymmetricSet},
		{"symmetric_mode_get", "read the symmetric mode", nil, runSymmetricGet},
		{"port_stats_poll_intv_set", "set the port statistics poll interval in ms", []string{optValue}, runPollSet},
		{"port_stats_poll_intv_get", "read the port statistics poll interval in ms", nil, runPollGet},
		{"meter_byte_count_adjust_set", "set the meter byte count adjustment", []string{optValue}, runMeterSet},
		{"meter_byte_count_adjust_get", "read the meter byte count adjustment", nil, runMeterGet},
		{"dyn_key_mask_get", "read the dynamic key mask", nil, runDynKeyMaskGet},
		{defs.OpRegisterSync.Command(), "sync the registers from the device", nil, runOperation(defs.OpRegisterSync)},
		{defs.OpCounterSync.Command(), "sync the counters from the device", nil, runOperation(defs.OpCounterSync)},
		{defs.OpHitStateUpdate.Command(), "update the hit state of the entries", nil, runOperation(defs.OpHitStateUpdate)},
	}
	for _, s := range simple {
		if sch.Supports(s.cmd) {
			n.add(&Command{Name: s.cmd, Doc: s.doc, options: s.opts, run: s.run})
		}
	}
	if sch.Supports("dyn_key_mask_set") {
		masks := make([]param, 0, len(keys))
		for _, p := range keys {
			masks = append(masks, param{name: p.name, f: p.f})
		}
		n.add(&Command{Name: "dyn_key_mask_set", Doc: "set the dynamic key mask", keys: masks, run: runDynKeyMaskSet})
	}
}

func handleArg(args Args) (uint32, bool, error) {
	if _, found := args[optHandle]; !found {
		return 0, false, nil
	}
	h, err := number(args, optHandle, 32)
	return uint32(h), true, err
}

func runGet(ctx context.Context, c *Command, args Args) (string, error) {
	fromHW, err := flag(args, optFromHW, false)
	if err != nil {
		return "", err
	}
	handle, byHandle, err := handleArg(args)
	if err != nil {
		return "", err
	}
	var e *table.Entry
	if byHandle {
		e, err = c.t.GetByHandle(ctx, handle, table.GetOptions{FromHW: fromHW})
	} else {
		var key table.Fields
		if key, err = c.keyFields(args); err != nil {
			return "", err
		}
		e, err = c.t.Get(ctx, key, table.GetOptions{FromHW: fromHW})
	}
	if err != nil {
		return "", err
	}
	return e.String(), nil
}

func runGetHandle(ctx context.Context, c *Command, args Args) (string, error) {
	key, err := c.keyFields(args)
	if err != nil {
		return "", err
	}
	h, err := c.t.GetHandle(ctx, key)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(uint64(h), 10), nil
}

func runGetKey(ctx context.Context, c *Command, args Args) (string, error) {
	h, err := number(args, optHandle, 32)
	if err != nil {
		return "", err
	}
	key, err := c.t.GetKey(ctx, uint32(h))
	if err != nil {
		return "", err
	}
	text, _ := c.t.PrintEntry(key, nil, "")
	return text, nil
}

func runDelete(ctx context.Context, c *Command, args Args) (string, error) {
	handle, byHandle, err := handleArg(args)
	if err != nil {
		return "", err
	}
	if byHandle {
		return "", c.t.DeleteByHandle(ctx, handle)
	}
	key, err := c.keyFields(args)
	if err != nil {
		return "", err
	}
	return "", c.t.Delete(ctx, key)
}

func (c *Command) entryArgs(args Args) (table.Fields, table.Fields, error) {
	key, err := c.keyFields(args)
	if err != nil {
		return nil, nil, err
	}
	data, err := c.dataFields(args)
	if err != nil {
		return nil, nil, err
	}
	return key, data, nil
}

func runAdd(ctx context.Context, c *Command, args Args) (string, error) {
	key, data, err := c.entryArgs(args)
	if err != nil {
		return "", err
	}
	return "", c.t.Add(ctx, key, data, c.Action)
}

func runMod(ctx context.Context, c *Command, args Args) (string, error) {
	resetTTL, err := flag(args, optResetTTL, true)
	if err != nil {
		return "", err
	}
	key, data, err := c.entryArgs(args)
	if err != nil {
		return "", err
	}
	return "", c.t.Modify(ctx, key, data, c.Action, resetTTL)
}

func modFlag(args Args) (defs.ModIncType, error) {
	switch strings.ToLower(args[optModFlag]) {
	case "", "0", "add", defs.ModIncAdd.String():
		return defs.ModIncAdd, nil
	case "1", "delete", defs.ModIncDelete.String():
		return defs.ModIncDelete, nil
	}
	return 0, errors.Wrapf(ErrUsage, "%s must be add or delete", optModFlag)
}

func runModInc(ctx context.Context, c *Command, args Args) (string, error) {
	mod, err := modFlag(args)
	if err != nil {
		return "", err
	}
	key, data, err := c.entryArgs(args)
	if err != nil {
		return "", err
	}
	return "", c.t.ModifyIncremental(ctx, key, data, c.Action, mod)
}

func runEntry(ctx context.Context, c *Command, args Args) (string, error) {
	push, err := flag(args, optPush, false)
	if err != nil {
		return "", err
	}
	key, data, err := c.entryArgs(args)
	if err != nil {
		return "", err
	}
	if !push {
		out, err := json.Marshal(map[string]interface{}{
			"table_name": c.t.Name(),
			"action":     c.Action,
			"key":        key,
			"data":       data,
		})
		return string(out), err
	}
	if err := c.t.NewEntry(key, data, c.Action).Push(ctx); err != nil {
		return "", err
	}
	e, err := c.t.Get(ctx, key, table.GetOptions{})
	if err != nil {
		return "", err
	}
	return e.String(), nil
}

func runSetDefault(ctx context.Context, c *Command, args Args) (string, error) {
	data, err := c.dataFields(args)
	if err != nil {
		return "", err
	}
	return "", c.t.SetDefault(ctx, data, c.Action)
}

func runResetDefault(ctx context.Context, c *Command, args Args) (string, error) {
	return "", c.t.ResetDefault(ctx)
}

func runGetDefault(ctx context.Context, c *Command, args Args) (string, error) {
	fromHW, err := flag(args, optFromHW, false)
	if err != nil {
		return "", err
	}
	e, err := c.t.GetDefault(ctx, fromHW)
	if err != nil {
		return "", err
	}
	return e.String(), nil
}

func runDump(ctx context.Context, c *Command, args Args) (string, error) {
	fromHW, err := flag(args, optFromHW, false)
	if err != nil {
		return "", err
	}
	asJSON, err := flag(args, optJSON, false)
	if err != nil {
		return "", err
	}
	printZero, err := flag(args, optPrintZero, false)
	if err != nil {
		return "", err
	}
	d := table.NewDumper(c.t)
	if _, found := args[optThreshold]; found {
		level, err := number(args, optThreshold, 8)
		if err != nil {
			return "", err
		}
		d.SetThreshold(int(level))
	}
	if err := c.t.Dump(ctx, d.Visit, fromHW); err != nil {
		return "", err
	}
	if asJSON {
		out, err := d.JSON()
		return string(out), err
	}
	var b bytes.Buffer
	if err := d.Print(&b, printZero); err != nil {
		return "", err
	}
	return b.String(), nil
}

func runClear(ctx context.Context, c *Command, args Args) (string, error) {
	batch, err := flag(args, optBatch, true)
	if err != nil {
		return "", err
	}
	return "", c.t.Clear(ctx, batch)
}

func runInfo(ctx context.Context, c *Command, args Args) (string, error) {
	return strings.Join(c.t.Info(), "\n") + "\n", nil
}

func runUsage(ctx context.Context, c *Command, args Args) (string, error) {
	fromHW, err := flag(args, optFromHW, false)
	if err != nil {
		return "", err
	}
	usage, ok, err := c.t.Usage(ctx, fromHW)
	if err != nil {
		return "", err
	}
	if !ok {
		return "n/a", nil
	}
	return strconv.FormatUint(uint64(usage), 10), nil
}

func runAddFromJSON(ctx context.Context, c *Command, args Args) (string, error) {
	blob, found := args[optEntries]
	if !found {
		return "", errors.Wrapf(ErrUsage, "%s is required", optEntries)
	}
	added, err := c.t.AddFromJSON(ctx, []byte(blob))
	return fmt.Sprintf("%d entries added", added), err
}

func runStringChoices(ctx context.Context, c *Command, args Args) (string, error) {
	sch := c.t.Schema()
	all := append([]*field.Descriptor{}, sch.KeyFields...)
	all = append(all, sch.DataFields...)
	for _, a := range sch.Actions {
		all = append(all, a.DataFields...)
	}
	lines := []string{}
	seen := make(map[string]bool)
	for _, f := range all {
		choices := f.Choices()
		if len(choices) == 0 || seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		lines = append(lines, fmt.Sprintf("%s: %s", f.Name, strings.Join(choices, ", ")))
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n"), nil
}

func runIdlePoll(ctx context.Context, c *Command, args Args) (string, error) {
	enable, err := flag(args, optEnable, true)
	if err != nil {
		return "", err
	}
	return "", c.t.SetIdleTablePollMode(ctx, enable)
}

func runIdleGet(ctx context.Context, c *Command, args Args) (string, error) {
	it, err := c.t.IdleTable(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("mode: %s\nenable: %v\nttl_query_interval: %d\nmax_ttl: %d\nmin_ttl: %d",
		it.Mode, it.Enable, it.TTLInterval, it.MaxTTL, it.MinTTL), nil
}

func runSymmetricSet(ctx context.Context, c *Command, args Args) (string, error) {
	enable, err := flag(args, optEnable, true)
	if err != nil {
		return "", err
	}
	return "", c.t.SetSymmetricMode(ctx, enable)
}

func runSymmetricGet(ctx context.Context, c *Command, args Args) (string, error) {
	enable, err := c.t.SymmetricMode(ctx)
	return strconv.FormatBool(enable), err
}

func runPollSet(ctx context.Context, c *Command, args Args) (string, error) {
	ms, err := number(args, optValue, 32)
	if err != nil {
		return "", err
	}
	return "", c.t.SetPortStatsPollInterval(ctx, uint32(ms))
}

func runPollGet(ctx context.Context, c *Command, args Args) (string, error) {
	ms, err := c.t.PortStatsPollInterval(ctx)
	return strconv.FormatUint(uint64(ms), 10), err
}

func runMeterSet(ctx context.Context, c *Command, args Args) (string, error) {
	n, err := strconv.ParseInt(args[optValue], 0, 32)
	if err != nil {
		return "", errors.Wrapf(ErrUsage, "%s must be a number", optValue)
	}
	return "", c.t.SetMeterByteCountAdjust(ctx, int32(n))
}

func runMeterGet(ctx context.Context, c *Command, args Args) (string, error) {
	n, err := c.t.MeterByteCountAdjust(ctx)
	return strconv.FormatInt(int64(n), 10), err
}

func runDynKeyMaskSet(ctx context.Context, c *Command, args Args) (string, error) {
	masks := table.Fields{}
	for _, p := range c.keys {
		if s, found := args[p.name]; found {
			masks[p.f.Name] = s
		}
	}
	return "", c.t.SetDynKeyMask(ctx, masks)
}

func runDynKeyMaskGet(ctx context.Context, c *Command, args Args) (string, error) {
	masks, err := c.t.DynKeyMask(ctx)
	if err != nil {
		return "", err
	}
	lines := make([]string, 0, len(masks))
	for name, m := range masks {
		lines = append(lines, fmt.Sprintf("%s: 0x%x", name, m))
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n"), nil
}

// runOperation starts an operation and waits for its completion.
func runOperation(op defs.Operation) runFunc {
	return func(ctx context.Context, c *Command, args Args) (string, error) {
		done := make(chan struct{}, 1)
		cb := func(backend.Target) {
			select {
			case done <- struct{}{}:
			default:
			}
		}
		var err error
		switch op {
		case defs.OpRegisterSync:
			err = c.t.OperationRegisterSync(ctx, cb)
		case defs.OpCounterSync:
			err = c.t.OperationCounterSync(ctx, cb)
		case defs.OpHitStateUpdate:
			err = c.t.OperationHitStateUpdate(ctx, cb)
		}
		if err != nil {
			return "", err
		}
		select {
		case <-done:
			return "done", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}
