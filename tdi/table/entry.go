package table

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/tdictl/tdid/tdi/codec"
	"github.com/tdictl/tdid/tdi/defs"
	"github.com/tdictl/tdid/tdi/field"
	"github.com/tdictl/tdid/tdi/schema"
)

// Entry read from, or to be written to, a table.
type Entry struct {
	Key    Values
	Data   Values
	Action string

	table     *Table
	isDefault bool
}

// NewEntry returns an entry of the table that is not in the backend yet.
// The values are parsed when the entry is pushed.
func (t *Table) NewEntry(key, data Fields, action string) *Entry {
	e := &Entry{Key: Values{}, Data: Values{}, Action: action, table: t}
	for k, v := range key {
		e.Key[k] = v
	}
	for k, v := range data {
		e.Data[k] = v
	}
	return e
}

// Table returns the table of the entry.
func (e *Entry) Table() *Table {
	return e.table
}

// IsDefault reports whether the entry is the default entry of its table.
func (e *Entry) IsDefault() bool {
	return e.isDefault
}

func (e *Entry) keyInput() Fields {
	in := make(Fields, len(e.Key))
	for k, v := range e.Key {
		in[k] = v
	}
	return in
}

// dataInput returns the writable data fields. Read only fields and fields
// that could not be read are left out.
func (e *Entry) dataInput() Fields {
	fields, _ := e.table.schema.Data(e.Action)
	in := make(Fields, len(e.Data))
	for k, v := range e.Data {
		f := findField(fields, k)
		if f != nil && f.ReadOnly {
			continue
		}
		if s, isString := v.(string); isString && f != nil && f.DataType != defs.String {
			e.table.log.Debug("skipping field %s: %s", k, s)
			continue
		}
		in[k] = v
	}
	return in
}

// defaultBlock reports whether op must be skipped because the entry is the
// default entry of its table.
func (e *Entry) defaultBlock(op string) bool {
	if e.isDefault {
		e.table.log.Warning("%s: the default entry can not be pushed, updated or removed, use set_default", op)
	}
	return e.isDefault
}

// Push writes the entry to its table: it is modified when the key is
// already there, added otherwise. Pushing the default entry does nothing.
func (e *Entry) Push(ctx context.Context) error {
	if e.defaultBlock("push") {
		return nil
	}
	key := e.keyInput()
	_, err := e.table.Get(ctx, key, GetOptions{Quiet: true})
	switch {
	case err == nil:
		return e.table.Modify(ctx, key, e.dataInput(), e.Action, true)
	case IsNotFound(err):
		return e.table.Add(ctx, key, e.dataInput(), e.Action)
	}
	return err
}

// Update reads the entry again from its table, replacing the local data
// and action. Updating the default entry does nothing.
func (e *Entry) Update(ctx context.Context) error {
	if e.defaultBlock("update") {
		return nil
	}
	got, err := e.table.Get(ctx, e.keyInput(), GetOptions{})
	if err != nil {
		return err
	}
	e.Data, e.Action = got.Data, got.Action
	return nil
}

// Remove deletes the entry from its table. Removing the default entry does
// nothing.
func (e *Entry) Remove(ctx context.Context) error {
	if e.defaultBlock("remove") {
		return nil
	}
	return e.table.Delete(ctx, e.keyInput())
}

// Raw returns the entry as plain values, the way it is exported.
func (e *Entry) Raw() map[string]interface{} {
	return e.table.RawEntry(e.Key, e.Data, e.Action)
}

// JSON returns the entry in the JSON interchange format.
func (e *Entry) JSON() ([]byte, error) {
	return json.Marshal(e.Raw())
}

func (e *Entry) String() string {
	text, _ := e.table.PrintEntry(e.Key, e.Data, e.Action)
	return text
}

func findField(fields []*field.Descriptor, name string) *field.Descriptor {
	for _, f := range fields {
		if f.Name == name || f.Name == "$"+name {
			return f
		}
	}
	return nil
}

// RawEntry deparses the key and the data of an entry.
func (t *Table) RawEntry(key, data Values, action string) map[string]interface{} {
	rawKey := make(map[string]interface{}, len(key))
	for name, v := range key {
		if f := findField(t.schema.KeyFields, name); f != nil {
			rawKey[name] = codec.Deparse(f, v)
		} else {
			rawKey[name] = v
		}
	}
	fields, _ := t.schema.Data(action)
	rawData := make(map[string]interface{}, len(data))
	for name, v := range data {
		if f := findField(fields, name); f != nil {
			rawData[name] = codec.Deparse(f, v)
		} else {
			rawData[name] = v
		}
	}
	var rawAction interface{}
	if action != "" {
		rawAction = action
	}
	return map[string]interface{}{
		"table_name": t.Name(),
		"action":     rawAction,
		"key":        rawKey,
		"data":       rawData,
	}
}

func isZero(v codec.Value) bool {
	switch x := v.(type) {
	case *big.Int:
		return x.Sign() == 0
	case bool:
		return !x
	case float64:
		return x == 0
	case []*big.Int:
		for _, i := range x {
			if i.Sign() != 0 {
				return false
			}
		}
		return true
	case []bool:
		for _, b := range x {
			if b {
				return false
			}
		}
		return true
	}
	return false
}

func writeFields(b *strings.Builder, fields []*field.Descriptor, values Values) {
	for _, f := range schema.SortedByID(fields) {
		v, found := values[f.Name]
		if !found {
			continue
		}
		fmt.Fprintf(b, "    %-30s : %s\n", f.Name, codec.Stringify(f, v))
	}
}

// PrintEntry renders an entry for display, fields ordered by id. zero is
// true when every data value is zero.
func (t *Table) PrintEntry(key, data Values, action string) (text string, zero bool) {
	var b strings.Builder
	if key != nil {
		b.WriteString("Entry key:\n")
		writeFields(&b, t.schema.KeyFields, key)
	}
	if data == nil {
		return b.String(), true
	}
	if action != "" {
		fmt.Fprintf(&b, "Entry data (action : %s):\n", action)
	} else {
		b.WriteString("Entry data:\n")
	}
	fields, _ := t.schema.Data(action)
	zero = true
	for _, v := range data {
		if !isZero(v) {
			zero = false
			break
		}
	}
	writeFields(&b, fields, data)
	return b.String(), zero
}
