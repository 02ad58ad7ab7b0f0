package swtarget

import (
	"fmt"

	"github.com/buger/jsonparser"
	"github.com/pkg/errors"
	"github.com/tdictl/tdid/tdi/backend"
	"github.com/tdictl/tdid/tdi/defs"
)

// table types as written in program descriptions.
var tableTypes = map[string]defs.TableType{
	"MatchAction_Direct":            defs.MatchDirect,
	"MatchAction_Indirect":          defs.MatchIndirect,
	"MatchAction_Indirect_Selector": defs.MatchIndirectSelector,
	"Action":                        defs.ActionProfile,
	"Selector":                      defs.Selector,
	"Counter":                       defs.Counter,
	"Meter":                         defs.Meter,
	"Register":                      defs.Register,
	"PortConfigure":                 defs.PortCfg,
	"PortStat":                      defs.PortStat,
}

var intWidths = map[string]int{
	"uint64": 64, "uint32": 32, "uint16": 16, "uint8": 8,
	"int64": 64, "int32": 32, "int16": 16, "int8": 8,
}

var matchTypes = map[string]defs.MatchType{
	"Exact":    defs.Exact,
	"Ternary":  defs.Ternary,
	"LPM":      defs.LPM,
	"Range":    defs.Range,
	"Optional": defs.Optional,
}

var operationTypes = map[string]defs.Operation{
	"SyncCounters":   defs.OpCounterSync,
	"SyncRegisters":  defs.OpRegisterSync,
	"UpdateHitState": defs.OpHitStateUpdate,
}

var attributeTypes = map[string]defs.Attribute{
	"EntryScope":           defs.AttrSymmetricMode,
	"DynamicKeyMask":       defs.AttrDynKeyMask,
	"IdleTimeout":          defs.AttrIdleTable,
	"MeterByteCountAdjust": defs.AttrMeterByteCountAdj,
	"port_status_notif_cb": defs.AttrPortStatusNotif,
	"poll_intvl_ms":        defs.AttrPortStatsPollIntv,
	"SelectorUpdateCb":     defs.AttrSelectorTableUpdate,
}

type keyInfo struct {
	id          uint32
	name        string
	match       defs.MatchType
	dtype       defs.DataType
	width       int
	mandatory   bool
	choices     []string
	annotations []backend.Annotation
}

type dataInfo struct {
	id           uint32
	name         string
	dtype        defs.DataType
	width        int
	readOnly     bool
	mandatory    bool
	defaultValue uint64
	choices      []string
	annotations  []backend.Annotation
	children     []*dataInfo
}

type actionInfo struct {
	id          uint32
	name        string
	annotations []backend.Annotation
	data        []*dataInfo
	dataByID    map[uint32]*dataInfo
}

type tableInfo struct {
	id              uint32
	name            string
	ttype           defs.TableType
	size            uint64
	hasConstDefault bool
	annotations     []backend.Annotation

	keys     []*keyInfo
	keyByID  map[uint32]*keyInfo
	actions  []*actionInfo
	actByID  map[uint32]*actionInfo
	data     []*dataInfo
	dataByID map[uint32]*dataInfo
	allByID  map[uint32]*dataInfo
	apis     []int
	attrs    []int
	ops      []int
}

// dataField looks a data field up the way the backend does: in the action
// first, then anywhere in the table (container children included).
func (t *tableInfo) dataField(field, action uint32) *dataInfo {
	if action != 0 {
		if a, found := t.actByID[action]; found {
			if d, found := a.dataByID[field]; found {
				return d
			}
		}
	}
	if d, found := t.dataByID[field]; found {
		return d
	}
	return t.allByID[field]
}

type program struct {
	tables []*tableInfo
	byID   map[uint32]*tableInfo
	byName map[string]*tableInfo
}

func parseAnnotations(node []byte) []backend.Annotation {
	annotations := []backend.Annotation{}
	jsonparser.ArrayEach(node, func(value []byte, dataType jsonparser.ValueType, offset int, err error) {
		if dataType != jsonparser.Object {
			return
		}
		name, _ := jsonparser.GetString(value, "name")
		val, _ := jsonparser.GetString(value, "value")
		annotations = append(annotations, backend.Annotation{Name: name, Value: val})
	}, "annotations")
	return annotations
}

func parseStrings(node []byte, keys ...string) []string {
	list := []string{}
	jsonparser.ArrayEach(node, func(value []byte, dataType jsonparser.ValueType, offset int, err error) {
		if dataType == jsonparser.String {
			if s, err := jsonparser.ParseString(value); err == nil {
				list = append(list, s)
			}
		}
	}, keys...)
	return list
}

// parseType returns the data type and width of a field node.
func parseType(node []byte) (defs.DataType, int, error) {
	typ, err := jsonparser.GetString(node, "type", "type")
	if err != nil {
		return defs.DataNotImplemented, 0, errors.Wrap(err, "missing type")
	}
	repeated, _ := jsonparser.GetBoolean(node, "repeated")
	width := 0
	if w, err := jsonparser.GetInt(node, "type", "width"); err == nil {
		width = int(w)
	}

	switch typ {
	case "bytes":
		return defs.ByteStream, width, nil
	case "uint64", "uint32", "uint16", "uint8", "int64", "int32", "int16", "int8":
		bits := intWidths[typ]
		if repeated {
			return defs.IntArray, bits, nil
		}
		return defs.UInt, bits, nil
	case "bool":
		if repeated {
			return defs.BoolArray, 1, nil
		}
		return defs.Bool, 1, nil
	case "float":
		return defs.Float, width, nil
	case "string":
		if repeated {
			return defs.StringArray, width, nil
		}
		return defs.String, width, nil
	}
	return defs.DataNotImplemented, width, fmt.Errorf("unknown type %s", typ)
}

func parseKey(node []byte) (*keyInfo, error) {
	id, err := jsonparser.GetInt(node, "id")
	if err != nil {
		return nil, errors.Wrap(err, "key id")
	}
	k := &keyInfo{id: uint32(id), annotations: parseAnnotations(node)}
	if k.name, err = jsonparser.GetString(node, "name"); err != nil {
		return nil, errors.Wrapf(err, "key %d name", id)
	}
	k.mandatory, _ = jsonparser.GetBoolean(node, "mandatory")
	mt, _ := jsonparser.GetString(node, "match_type")
	if m, found := matchTypes[mt]; found {
		k.match = m
	} else {
		k.match = defs.MatchNotImplemented
	}
	if k.dtype, k.width, err = parseType(node); err != nil {
		return nil, errors.Wrapf(err, "key %s", k.name)
	}
	k.choices = parseStrings(node, "type", "choices")
	return k, nil
}

// parseData reads a data entry, either {mandatory, read_only, singleton} or
// a bare field node as found in action specs.
func parseData(node []byte) (*dataInfo, error) {
	d := &dataInfo{}
	d.mandatory, _ = jsonparser.GetBoolean(node, "mandatory")
	d.readOnly, _ = jsonparser.GetBoolean(node, "read_only")
	if single, dt, _, err := jsonparser.Get(node, "singleton"); err == nil && dt == jsonparser.Object {
		node = single
	}

	id, err := jsonparser.GetInt(node, "id")
	if err != nil {
		return nil, errors.Wrap(err, "data id")
	}
	d.id = uint32(id)
	if d.name, err = jsonparser.GetString(node, "name"); err != nil {
		return nil, errors.Wrapf(err, "data %d name", id)
	}
	d.annotations = parseAnnotations(node)

	if _, dt, _, err := jsonparser.Get(node, "container"); err == nil && dt == jsonparser.Array {
		d.dtype = defs.Container
		var cerr error
		jsonparser.ArrayEach(node, func(value []byte, dataType jsonparser.ValueType, offset int, err error) {
			if cerr != nil {
				return
			}
			child, err := parseData(value)
			if err != nil {
				cerr = err
				return
			}
			d.children = append(d.children, child)
		}, "container")
		if cerr != nil {
			return nil, errors.Wrapf(cerr, "container %s", d.name)
		}
		d.width = len(d.children)
		return d, nil
	}

	if d.dtype, d.width, err = parseType(node); err != nil {
		return nil, errors.Wrapf(err, "data %s", d.name)
	}
	if def, err := jsonparser.GetInt(node, "type", "default_value"); err == nil {
		d.defaultValue = uint64(def)
	}
	d.choices = parseStrings(node, "type", "choices")
	return d, nil
}

func parseDataList(node []byte, keys ...string) ([]*dataInfo, error) {
	var list []*dataInfo
	var perr error
	jsonparser.ArrayEach(node, func(value []byte, dataType jsonparser.ValueType, offset int, err error) {
		if perr != nil {
			return
		}
		// a oneof groups alternatives, each of them is a field on its own
		if _, dt, _, err := jsonparser.Get(value, "oneof"); err == nil && dt == jsonparser.Array {
			jsonparser.ArrayEach(value, func(alt []byte, dataType jsonparser.ValueType, offset int, err error) {
				if perr != nil {
					return
				}
				d, err := parseData(alt)
				if err != nil {
					perr = err
					return
				}
				list = append(list, d)
			}, "oneof")
			return
		}
		d, err := parseData(value)
		if err != nil {
			perr = err
			return
		}
		list = append(list, d)
	}, keys...)
	return list, perr
}

func indexData(list []*dataInfo, idx map[uint32]*dataInfo) {
	for _, d := range list {
		if _, found := idx[d.id]; !found {
			idx[d.id] = d
		}
		indexData(d.children, idx)
	}
}

// parseAPIs accepts command names or numeric codes. Tables without the list
// support every API.
func parseAPIs(node []byte) []int {
	apis := []int{}
	_, dt, _, err := jsonparser.Get(node, "supported_apis")
	if err != nil || dt != jsonparser.Array {
		for a := defs.APIAdd; a < defs.APIInvalid; a++ {
			apis = append(apis, int(a))
		}
		return apis
	}
	jsonparser.ArrayEach(node, func(value []byte, dataType jsonparser.ValueType, offset int, err error) {
		switch dataType {
		case jsonparser.Number:
			if n, err := jsonparser.ParseInt(value); err == nil {
				apis = append(apis, int(n))
			}
		case jsonparser.String:
			name, _ := jsonparser.ParseString(value)
			for a := defs.APIAdd; a <= defs.APIInvalid; a++ {
				if a.Command() == name {
					apis = append(apis, int(a))
					break
				}
			}
		}
	}, "supported_apis")
	return apis
}

func parseTable(node []byte) (*tableInfo, error) {
	id, err := jsonparser.GetInt(node, "id")
	if err != nil {
		return nil, errors.Wrap(err, "table id")
	}
	t := &tableInfo{
		id:       uint32(id),
		size:     1024,
		keyByID:  make(map[uint32]*keyInfo),
		actByID:  make(map[uint32]*actionInfo),
		dataByID: make(map[uint32]*dataInfo),
		allByID:  make(map[uint32]*dataInfo),
	}
	if t.name, err = jsonparser.GetString(node, "name"); err != nil {
		return nil, errors.Wrapf(err, "table %d name", id)
	}
	typ, _ := jsonparser.GetString(node, "table_type")
	if tt, found := tableTypes[typ]; found {
		t.ttype = tt
	} else if tt, found := defs.TableTypeByName(typ); found {
		t.ttype = tt
	} else {
		t.ttype = defs.MatchDirect
	}
	if size, err := jsonparser.GetInt(node, "size"); err == nil {
		t.size = uint64(size)
	}
	t.hasConstDefault, _ = jsonparser.GetBoolean(node, "has_const_default_action")
	t.annotations = parseAnnotations(node)

	var perr error
	jsonparser.ArrayEach(node, func(value []byte, dataType jsonparser.ValueType, offset int, err error) {
		if perr != nil {
			return
		}
		k, err := parseKey(value)
		if err != nil {
			perr = err
			return
		}
		t.keys = append(t.keys, k)
		t.keyByID[k.id] = k
	}, "key")
	if perr != nil {
		return nil, errors.Wrapf(perr, "table %s", t.name)
	}

	jsonparser.ArrayEach(node, func(value []byte, dataType jsonparser.ValueType, offset int, err error) {
		if perr != nil {
			return
		}
		aid, err := jsonparser.GetInt(value, "id")
		if err != nil {
			perr = errors.Wrap(err, "action id")
			return
		}
		a := &actionInfo{id: uint32(aid), annotations: parseAnnotations(value), dataByID: make(map[uint32]*dataInfo)}
		a.name, _ = jsonparser.GetString(value, "name")
		if a.data, err = parseDataList(value, "data"); err != nil {
			perr = errors.Wrapf(err, "action %s", a.name)
			return
		}
		indexData(a.data, a.dataByID)
		indexData(a.data, t.allByID)
		t.actions = append(t.actions, a)
		t.actByID[a.id] = a
	}, "action_specs")
	if perr != nil {
		return nil, errors.Wrapf(perr, "table %s", t.name)
	}

	if t.data, err = parseDataList(node, "data"); err != nil {
		return nil, errors.Wrapf(err, "table %s", t.name)
	}
	for _, d := range t.data {
		t.dataByID[d.id] = d
	}
	indexData(t.data, t.allByID)

	t.apis = parseAPIs(node)
	for _, op := range parseStrings(node, "supported_operations") {
		if o, found := operationTypes[op]; found {
			t.ops = append(t.ops, int(o))
		}
	}
	for _, attr := range parseStrings(node, "attributes") {
		if a, found := attributeTypes[attr]; found {
			t.attrs = append(t.attrs, int(a))
		}
	}
	return t, nil
}

// parseProgram reads a program description: {"tables": [...]}.
func parseProgram(raw []byte) (*program, error) {
	p := &program{
		byID:   make(map[uint32]*tableInfo),
		byName: make(map[string]*tableInfo),
	}
	if _, dt, _, err := jsonparser.Get(raw, "tables"); err != nil || dt != jsonparser.Array {
		return nil, fmt.Errorf("Error parsing program: no tables found")
	}

	var perr error
	jsonparser.ArrayEach(raw, func(value []byte, dataType jsonparser.ValueType, offset int, err error) {
		if perr != nil {
			return
		}
		t, err := parseTable(value)
		if err != nil {
			perr = err
			return
		}
		if _, dup := p.byID[t.id]; dup {
			perr = fmt.Errorf("duplicated table id %d (%s)", t.id, t.name)
			return
		}
		p.tables = append(p.tables, t)
		p.byID[t.id] = t
		p.byName[t.name] = t
	}, "tables")
	if perr != nil {
		return nil, errors.Wrap(perr, "Error parsing program")
	}
	return p, nil
}
