package table

import (
	"context"
	"encoding/json"

	"github.com/buger/jsonparser"
	"github.com/pkg/errors"
	"github.com/tdictl/tdid/tdi/defs"
)

// jsonValue converts a JSON value to codec input. Numbers are kept as
// json.Number so that wide integers do not lose precision.
func jsonValue(value []byte, dataType jsonparser.ValueType) (interface{}, error) {
	switch dataType {
	case jsonparser.Null:
		return nil, nil
	case jsonparser.Number:
		return json.Number(string(value)), nil
	case jsonparser.String:
		return jsonparser.ParseString(value)
	case jsonparser.Boolean:
		return jsonparser.ParseBoolean(value)
	case jsonparser.Array:
		list := []interface{}{}
		var err error
		_, perr := jsonparser.ArrayEach(value, func(elem []byte, dt jsonparser.ValueType, offset int, e error) {
			if err != nil {
				return
			} else if e != nil {
				err = e
				return
			}
			var v interface{}
			if v, err = jsonValue(elem, dt); err == nil {
				list = append(list, v)
			}
		})
		if err == nil && perr != nil {
			err = errors.Wrap(perr, "parsing list")
		}
		return list, err
	case jsonparser.Object:
		return jsonObject(value)
	}
	return nil, errors.Errorf("unexpected JSON value %s", value)
}

func jsonObject(value []byte) (map[string]interface{}, error) {
	obj := make(map[string]interface{})
	err := jsonparser.ObjectEach(value, func(key, val []byte, dt jsonparser.ValueType, offset int) error {
		v, err := jsonValue(val, dt)
		if err != nil {
			return err
		}
		obj[string(key)] = v
		return nil
	})
	return obj, err
}

// jsonEntry is one entry of a JSON dump.
type jsonEntry struct {
	table  string
	action string
	key    Fields
	data   Fields
}

func parseJSONEntry(value []byte) (*jsonEntry, error) {
	e := &jsonEntry{key: Fields{}, data: Fields{}}
	var err error
	if e.table, err = jsonparser.GetString(value, "table_name"); err != nil {
		return nil, errors.Wrap(err, "table_name")
	}
	if action, dt, _, err := jsonparser.Get(value, "action"); err == nil && dt == jsonparser.String {
		if e.action, err = jsonparser.ParseString(action); err != nil {
			return nil, errors.Wrap(err, "action")
		}
	}
	for name, dst := range map[string]Fields{"key": e.key, "data": e.data} {
		node, dt, _, err := jsonparser.Get(value, name)
		if err == jsonparser.KeyPathNotFoundError || dt == jsonparser.Null {
			continue
		} else if err != nil {
			return nil, errors.Wrap(err, name)
		}
		if dt != jsonparser.Object {
			return nil, errors.Errorf("%s must be an object", name)
		}
		obj, err := jsonObject(node)
		if err != nil {
			return nil, errors.Wrap(err, name)
		}
		for k, v := range obj {
			dst[k] = v
		}
	}
	return e, nil
}

// collapseRegisters replaces the per pipe values of register data fields,
// as dumped, with the first one.
func (t *Table) collapseRegisters(data Fields, action string) {
	fields, err := t.schema.Data(action)
	if err != nil {
		return
	}
	for name, v := range data {
		list, isList := v.([]interface{})
		if !isList || len(list) == 0 {
			continue
		}
		f := findField(fields, name)
		if f == nil || !f.IsRegisterData() {
			continue
		}
		switch f.DataType {
		case defs.UInt, defs.ByteStream, defs.Bool:
			data[name] = list[0]
		}
	}
}

// AddFromJSON adds the entries of a JSON dump of the table, a list of
// entries or a single one. Entries of other tables are skipped. It returns
// the number of entries added.
func (t *Table) AddFromJSON(ctx context.Context, blob []byte) (int, error) {
	if err := t.check(ctx, "add_from_json"); err != nil {
		return 0, err
	}
	root, dt, _, err := jsonparser.Get(blob)
	if err != nil {
		return 0, errors.Wrap(err, "parsing entries")
	}
	var nodes [][]byte
	switch dt {
	case jsonparser.Array:
		_, err = jsonparser.ArrayEach(root, func(value []byte, dataType jsonparser.ValueType, offset int, e error) {
			if dataType == jsonparser.Object {
				nodes = append(nodes, value)
			}
		})
		if err != nil {
			return 0, errors.Wrap(err, "parsing entries")
		}
	case jsonparser.Object:
		nodes = append(nodes, root)
	default:
		return 0, errors.New("entries must be a list of objects")
	}

	added := 0
	for _, node := range nodes {
		e, err := parseJSONEntry(node)
		if err != nil {
			return added, err
		}
		if e.table != t.Name() && e.table != t.schema.DriverName {
			t.log.Error("Error: table mismatch for entry of %s", e.table)
			continue
		}
		t.collapseRegisters(e.data, e.action)
		if err := t.Add(ctx, e.key, e.data, e.action); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// DumpJSON returns every entry of the table as a JSON list.
func (t *Table) DumpJSON(ctx context.Context, fromHW bool) ([]byte, error) {
	raws := []map[string]interface{}{}
	err := t.Dump(ctx, func(batch []*Entry) error {
		for _, e := range batch {
			raws = append(raws, e.Raw())
		}
		return nil
	}, fromHW)
	if err != nil {
		return nil, err
	}
	return json.Marshal(raws)
}
