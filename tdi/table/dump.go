package table

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/tdictl/tdid/tdi/backend"
	"github.com/tdictl/tdid/tdi/codec"
	"github.com/tdictl/tdid/tdi/defs"
	"github.com/tdictl/tdid/tdi/field"
	"github.com/tdictl/tdid/tdi/schema"
)

// DumpBatch is the number of entries read per backend call while dumping.
const DumpBatch = 20

// Visitor receives the entries of a dump, one batch at a time.
type Visitor func(entries []*Entry) error

func (t *Table) releaseAll(keys, datas []backend.Handle) {
	for _, k := range keys {
		t.releaseKey(k)
	}
	for _, d := range datas {
		t.releaseData(d)
	}
}

func (t *Table) entries(keys, datas []backend.Handle) ([]*Entry, error) {
	out := make([]*Entry, 0, len(keys))
	for i := range keys {
		e, err := t.entry(keys[i], datas[i])
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Dump reads every entry of the table and calls visit once per batch. The
// last key of a batch is the cursor of the next one, every other object is
// released as soon as the batch has been visited.
func (t *Table) Dump(ctx context.Context, visit Visitor, fromHW bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !t.schema.SupportsAPI(defs.APIGetFirst) {
		t.log.Debug("dump: get_first not supported")
		return nil
	}

	key, data, err := t.first(fromHW)
	if errors.Cause(err) == ErrNotFound {
		return nil
	} else if err != nil {
		return err
	}
	more, moreData, err := t.next(key, DumpBatch-1, fromHW)
	if err != nil {
		t.releaseAll([]backend.Handle{key}, []backend.Handle{data})
		return err
	}
	keys := append([]backend.Handle{key}, more...)
	datas := append([]backend.Handle{data}, moreData...)

	for {
		if err := ctx.Err(); err != nil {
			t.releaseAll(keys, datas)
			return err
		}
		batch, err := t.entries(keys, datas)
		if err == nil {
			err = visit(batch)
		}
		last := keys[len(keys)-1]
		t.releaseAll(keys[:len(keys)-1], datas)
		if err != nil {
			t.releaseKey(last)
			return err
		}
		if len(keys) < DumpBatch {
			t.releaseKey(last)
			return nil
		}

		keys, datas, err = t.next(last, DumpBatch, fromHW)
		t.releaseKey(last)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return nil
		}
	}
}

// Entries returns every entry of the table.
func (t *Table) Entries(ctx context.Context, fromHW bool) ([]*Entry, error) {
	var all []*Entry
	err := t.Dump(ctx, func(batch []*Entry) error {
		all = append(all, batch...)
		return nil
	}, fromHW)
	if err != nil {
		return nil, err
	}
	return all, nil
}

type dumpedEntry struct {
	entry  *Entry
	fields []*field.Descriptor
}

// Dumper collects the entries of a table grouped by action, and renders
// them as a table, as entry objects or as JSON.
type Dumper struct {
	table     *Table
	threshold int
	filters   map[string]*regexp.Regexp
	actions   []string
	byAction  map[string][]dumpedEntry
}

// NewDumper returns a dumper of t. Data fields whose importance is below
// the threshold of the table are left out of the rendered table.
func NewDumper(t *Table) *Dumper {
	threshold := field.DefaultImpLevel
	if t.schema.Type == defs.PortCfg || t.schema.Type == defs.PortStat {
		threshold = 2
	}
	return &Dumper{
		table:     t,
		threshold: threshold,
		filters:   make(map[string]*regexp.Regexp),
		byAction:  make(map[string][]dumpedEntry),
	}
}

// SetThreshold changes the importance threshold of the data fields.
func (d *Dumper) SetThreshold(level int) {
	d.threshold = level
}

// Filter only keeps the entries whose key field name, as displayed,
// matches pattern.
func (d *Dumper) Filter(name, pattern string) error {
	f := findField(d.table.schema.KeyFields, name)
	if f == nil {
		return &codec.ParseError{Field: name, Kind: codec.UnknownField, Input: pattern}
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return errors.Wrapf(err, "filter on %s", name)
	}
	d.filters[f.Name] = re
	return nil
}

// Visit collects a batch of entries, it can be passed to Table.Dump.
func (d *Dumper) Visit(entries []*Entry) error {
	for _, e := range entries {
		fields, err := d.table.schema.Data(e.Action)
		if err != nil {
			d.table.log.Warning("dump: %s", err)
		}
		kept := make([]*field.Descriptor, 0, len(fields))
		for _, f := range schema.SortedByID(fields) {
			if f.ImpLevel() < d.threshold {
				delete(e.Data, f.Name)
				continue
			}
			kept = append(kept, f)
		}
		if _, found := d.byAction[e.Action]; !found {
			d.actions = append(d.actions, e.Action)
		}
		d.byAction[e.Action] = append(d.byAction[e.Action], dumpedEntry{entry: e, fields: kept})
	}
	return nil
}

func (d *Dumper) accept(e *Entry) bool {
	for name, re := range d.filters {
		f := d.table.schema.KeyField(name)
		v, found := e.Key[name]
		if f == nil || !found {
			continue
		}
		if !re.MatchString(codec.Stringify(f, v)) {
			return false
		}
	}
	return true
}

// Print renders the collected entries as one column table per action.
// Entries whose data is all zero are skipped unless printZero is set.
func (d *Dumper) Print(w io.Writer, printZero bool) error {
	keyFields := schema.SortedByID(d.table.schema.KeyFields)
	for _, action := range d.actions {
		dumped := d.byAction[action]
		if len(dumped) == 0 {
			continue
		}
		if action != "" {
			if _, err := fmt.Fprintf(w, "%s entries for action: %s\n", d.table.Name(), action); err != nil {
				return err
			}
		}
		dataFields := dumped[0].fields

		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		headers := make([]string, 0, len(keyFields)+len(dataFields))
		for _, f := range keyFields {
			headers = append(headers, f.Name)
		}
		for _, f := range dataFields {
			headers = append(headers, f.Name)
		}
		rules := make([]string, len(headers))
		for i, h := range headers {
			rules[i] = strings.Repeat("-", len(h))
		}
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
		fmt.Fprintln(tw, strings.Join(rules, "\t"))

		for _, de := range dumped {
			e := de.entry
			if !d.accept(e) {
				continue
			}
			row := make([]string, 0, len(headers))
			for _, f := range keyFields {
				if v, found := e.Key[f.Name]; found {
					row = append(row, codec.Stringify(f, v))
				} else {
					row = append(row, "N/A")
				}
			}
			zero := true
			for _, f := range dataFields {
				v, found := e.Data[f.Name]
				if !found {
					row = append(row, "N/A")
					continue
				}
				if !isZero(v) {
					zero = false
				}
				row = append(row, codec.Stringify(f, v))
			}
			if !printZero && zero {
				continue
			}
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n\n"); err != nil {
			return err
		}
	}
	return nil
}

// Entries returns the collected entries that pass the filters.
func (d *Dumper) Entries() []*Entry {
	var out []*Entry
	for _, action := range d.actions {
		for _, de := range d.byAction[action] {
			if d.accept(de.entry) {
				out = append(out, de.entry)
			}
		}
	}
	return out
}

// JSON returns the collected entries as a JSON list.
func (d *Dumper) JSON() ([]byte, error) {
	entries := d.Entries()
	raws := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		raws = append(raws, e.Raw())
	}
	return json.Marshal(raws)
}
