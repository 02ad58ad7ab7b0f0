package schema

import (
	"fmt"

	"github.com/tdictl/tdid/tdi/backend"
	"github.com/tdictl/tdid/tdi/defs"
	"github.com/tdictl/tdid/tdi/field"
)

// SchemaError is returned when a metadata query fails while a table is
// built.
type SchemaError struct {
	Table  string
	Query  string
	Status backend.Status
	Msg    string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("Error: get %s for %s failed. [%s]", e.Query, e.Table, e.Msg)
}

type errStringer interface {
	ErrString(backend.Status) string
}

type builder struct {
	info backend.Info
	t    *Table
}

func (b *builder) fail(query string, sts backend.Status) error {
	msg := sts.Message()
	if es, ok := b.info.(errStringer); ok {
		msg = es.ErrString(sts)
	}
	name := b.t.Name
	if name == "" {
		name = fmt.Sprintf("table %d", b.t.ID)
	}
	return &SchemaError{Table: name, Query: query, Status: sts, Msg: msg}
}

// Build queries the backend for the description of one table.
func Build(info backend.Info, id uint32) (*Table, error) {
	b := &builder{info: info, t: &Table{ID: id, commands: make(map[string]bool)}}
	if err := b.build(); err != nil {
		return nil, err
	}
	return b.t, nil
}

// BuildAll builds every table the backend knows about. Tables that can not
// be described are logged and left out.
func BuildAll(info backend.Info) ([]*Table, error) {
	n, sts := info.TableIDListSize()
	if !sts.OK() {
		return nil, &SchemaError{Table: "program", Query: "num tables", Status: sts, Msg: sts.Message()}
	}
	ids := make([]uint32, n)
	if sts := info.TableIDList(ids); !sts.OK() {
		return nil, &SchemaError{Table: "program", Query: "table ids", Status: sts, Msg: sts.Message()}
	}

	tables := make([]*Table, 0, n)
	for _, id := range ids {
		t, err := Build(info, id)
		if err != nil {
			logger("").Error("%s", err)
			continue
		}
		if t.Type.String() == "INVLD" {
			logger(t.Name).Debug("ignoring invalid table")
			continue
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func (b *builder) build() error {
	t := b.t
	info := b.info

	code, sts := info.TableType(t.ID)
	if !sts.OK() {
		return b.fail("table type", sts)
	}
	t.Type = defs.ResolveTableType(code)
	if t.DriverName, sts = info.TableName(t.ID); !sts.OK() {
		return b.fail("table name", sts)
	}
	t.Name = NormalizeName(t.DriverName, t.Type)

	for _, cmd := range baseCommands {
		t.addCommand(cmd)
	}
	if err := b.supportedCommands(); err != nil {
		return err
	}
	if !t.Ready() {
		return nil
	}

	if constDefault, sts := info.TableHasConstDefaultAction(t.ID); sts.OK() {
		t.HasConstDefaultAction = constDefault
	} else {
		logger(t.Name).Warning("const default action query failed. [%s]", sts.Message())
	}

	if err := b.keys(); err != nil {
		return err
	}
	if err := b.actions(); err != nil {
		return err
	}
	if err := b.data(); err != nil {
		return err
	}

	inputs := len(t.DataFields)
	for _, a := range t.Actions {
		if len(a.DataFields) > inputs {
			inputs = len(a.DataFields)
		}
	}
	t.CompressInput = 2*len(t.KeyFields)+inputs > MaxInputs
	return nil
}

func (t *Table) addCommand(cmd string) {
	if cmd == "" || t.commands[cmd] {
		return
	}
	t.commands[cmd] = true
	t.ordered = append(t.ordered, cmd)
}

func (b *builder) codes(query string, size func(uint32) (int, backend.Status), list func(uint32, []int) backend.Status) ([]int, error) {
	n, sts := size(b.t.ID)
	if !sts.OK() {
		return nil, b.fail("num "+query, sts)
	}
	codes := make([]int, n)
	if sts := list(b.t.ID, codes); !sts.OK() {
		return nil, b.fail(query, sts)
	}
	return codes, nil
}

func (b *builder) supportedCommands() error {
	t := b.t
	attrs, err := b.codes("attributes supported", b.info.NumAttributesSupported, b.info.AttributesSupported)
	if err != nil {
		return err
	}
	for _, code := range attrs {
		for _, cmd := range defs.Attribute(code).Commands() {
			t.addCommand(cmd)
		}
	}

	ops, err := b.codes("operations supported", b.info.NumOperationsSupported, b.info.OperationsSupported)
	if err != nil {
		return err
	}
	for _, code := range ops {
		t.addCommand(defs.Operation(code).Command())
	}

	apis, err := b.codes("apis supported", b.info.NumAPISupported, b.info.APISupported)
	if err != nil {
		return err
	}
	for _, code := range apis {
		t.addCommand(defs.API(code).Command())
	}
	if t.SupportsAPI(defs.APIGetDefault) || t.SupportsAPI(defs.APIGetFirst) {
		t.addCommand("dump")
	}
	return nil
}

func (b *builder) keys() error {
	t := b.t
	info := b.info
	n, sts := info.KeyFieldIDListSize(t.ID)
	if !sts.OK() {
		return b.fail("num key fields", sts)
	}
	if n == 0 {
		return nil
	}
	ids := make([]uint32, n)
	if sts := info.KeyFieldIDList(t.ID, ids); !sts.OK() {
		return b.fail("key field ids", sts)
	}

	for _, id := range ids {
		d := &field.Descriptor{ID: id, Category: defs.Key}
		if d.Name, sts = info.KeyFieldName(t.ID, id); !sts.OK() {
			return b.fail("key field name", sts)
		}
		match, sts := info.KeyFieldMatchType(t.ID, id)
		if !sts.OK() {
			return b.fail("key field type", sts)
		}
		d.MatchType = defs.ResolveMatchType(match)
		typ, sts := info.KeyFieldDataType(t.ID, id)
		if !sts.OK() {
			return b.fail("key field data type", sts)
		}
		d.DataType = defs.ResolveDataType(typ)
		if d.Width, sts = info.KeyFieldSize(t.ID, id); !sts.OK() {
			return b.fail("key field size", sts)
		}
		if d.Wide, sts = info.KeyFieldIsPtr(t.ID, id); !sts.OK() {
			return b.fail("key field is_ptr", sts)
		}
		if d.Mandatory, sts = info.KeyFieldIsMandatory(t.ID, id); !sts.OK() {
			return b.fail("key field is_mandatory", sts)
		}
		d.IPv4 = d.DataType.Integer() && isIPv4(d.Name, d.Width)

		t.keyReadables = append(t.keyReadables, readable(0, d.Name, d.MatchType.String(), d.Width))
		t.KeyFields = append(t.KeyFields, d.Bind(info, t.ID, t.Name))
	}
	return nil
}

func (b *builder) actions() error {
	t := b.t
	info := b.info
	n, sts := info.ActionIDListSize(t.ID)
	if !sts.OK() {
		return b.fail("num actions", sts)
	}
	if n == 0 {
		return nil
	}
	ids := make([]uint32, n)
	if sts := info.ActionIDList(t.ID, ids); !sts.OK() {
		return b.fail("action ids", sts)
	}

	for _, id := range ids {
		a := &Action{ID: id}
		if a.Name, sts = info.ActionName(t.ID, id); !sts.OK() {
			return b.fail("action name", sts)
		}
		a.Annotations = b.actionAnnotations(a)
		t.Actions = append(t.Actions, a)
	}
	return nil
}

func (b *builder) actionAnnotations(a *Action) []backend.Annotation {
	n, sts := b.info.ActionNumAnnotations(b.t.ID, a.ID)
	if !sts.OK() {
		logger(b.t.Name).Error("num annotations for action %s failed. [%s]", a.Name, sts.Message())
		return nil
	}
	annotations := make([]backend.Annotation, n)
	if sts := b.info.ActionAnnotations(b.t.ID, a.ID, annotations); !sts.OK() {
		logger(b.t.Name).Error("annotations for action %s failed. [%s]", a.Name, sts.Message())
		return nil
	}
	return annotations
}

func (b *builder) data() error {
	t := b.t
	if len(t.Actions) == 0 {
		fields, err := b.dataFields(0, "", &t.dataReadables)
		if err != nil {
			return err
		}
		t.DataFields = fields
		return nil
	}
	for _, a := range t.Actions {
		fields, err := b.dataFields(a.ID, a.Name, &a.readables)
		if err != nil {
			return err
		}
		a.DataFields = fields
	}
	return nil
}

func (b *builder) dataFields(action uint32, actionName string, readables *[]string) ([]*field.Descriptor, error) {
	t := b.t
	n, sts := b.info.DataFieldIDListSize(t.ID, action)
	if !sts.OK() {
		return nil, b.fail("num data fields", sts)
	}
	if n == 0 {
		return nil, nil
	}
	ids := make([]uint32, n)
	if sts := b.info.DataFieldIDList(t.ID, action, ids); !sts.OK() {
		return nil, b.fail("data field ids", sts)
	}

	fields := make([]*field.Descriptor, 0, n)
	for _, id := range ids {
		d, err := b.dataField(id, action, actionName, 0, readables)
		if err != nil {
			return nil, err
		}
		fields = append(fields, d.Bind(b.info, t.ID, t.Name))
	}
	return fields, nil
}

func (b *builder) dataField(id, action uint32, actionName string, depth int, readables *[]string) (*field.Descriptor, error) {
	t := b.t
	info := b.info
	d := &field.Descriptor{
		ID:         id,
		Category:   defs.Data,
		ActionID:   action,
		ActionName: actionName,
		Depth:      depth,
	}

	typ, sts := info.DataFieldType(t.ID, id, action)
	if !sts.OK() {
		return nil, b.fail("data field type", sts)
	}
	d.DataType = defs.ResolveDataType(typ)
	if d.Name, sts = info.DataFieldName(t.ID, id, action); !sts.OK() {
		return nil, b.fail("data field name", sts)
	}
	if d.Width, sts = info.DataFieldSize(t.ID, id, action); !sts.OK() {
		return nil, b.fail("data field size", sts)
	}
	if d.Wide, sts = info.DataFieldIsPtr(t.ID, id, action); !sts.OK() {
		return nil, b.fail("data field is_ptr", sts)
	}
	if d.ReadOnly, sts = info.DataFieldIsReadOnly(t.ID, id, action); !sts.OK() {
		return nil, b.fail("data field is_read_only", sts)
	}
	if d.Mandatory, sts = info.DataFieldIsMandatory(t.ID, id, action); !sts.OK() {
		return nil, b.fail("data field is_mandatory", sts)
	}
	d.IPv4 = d.DataType.Integer() && isIPv4(d.Name, d.Width)
	*readables = append(*readables, readable(depth, d.Name, d.DataType.String(), d.Width))

	if d.DataType != defs.Container {
		return d, nil
	}
	// the size of a container is its number of children
	children := make([]uint32, d.Width)
	if sts := info.ContainerDataFieldList(t.ID, id, children); !sts.OK() {
		return nil, b.fail("container data field list", sts)
	}
	for _, cid := range children {
		c, err := b.dataField(cid, 0, "", depth+1, readables)
		if err != nil {
			return nil, err
		}
		d.Children = append(d.Children, c)
	}
	return d, nil
}
