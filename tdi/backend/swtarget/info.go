package swtarget

import (
	"github.com/tdictl/tdid/tdi/backend"
	"github.com/tdictl/tdid/tdi/defs"
)

func (t *Target) info(tbl uint32) (*tableInfo, backend.Status) {
	ti, found := t.prog.byID[tbl]
	if !found {
		return nil, backend.TableNotFound
	}
	return ti, backend.Success
}

func (t *Target) key(tbl, field uint32) (*keyInfo, backend.Status) {
	ti, sts := t.info(tbl)
	if !sts.OK() {
		return nil, sts
	}
	k, found := ti.keyByID[field]
	if !found {
		return nil, backend.InvalidArg
	}
	return k, backend.Success
}

func (t *Target) dataInfo(tbl, field, action uint32) (*dataInfo, backend.Status) {
	ti, sts := t.info(tbl)
	if !sts.OK() {
		return nil, sts
	}
	d := ti.dataField(field, action)
	if d == nil {
		return nil, backend.InvalidArg
	}
	return d, backend.Success
}

func (t *Target) action(tbl, action uint32) (*actionInfo, backend.Status) {
	ti, sts := t.info(tbl)
	if !sts.OK() {
		return nil, sts
	}
	a, found := ti.actByID[action]
	if !found {
		return nil, backend.InvalidArg
	}
	return a, backend.Success
}

// fill copies src into dst, failing when dst is too short.
func fillIDs(dst []uint32, src []uint32) backend.Status {
	if len(dst) < len(src) {
		return backend.InvalidArg
	}
	copy(dst, src)
	return backend.Success
}

// TableIDListSize implements backend.Info.
func (t *Target) TableIDListSize() (int, backend.Status) {
	t.Lock()
	defer t.Unlock()
	return len(t.prog.tables), backend.Success
}

// TableIDList implements backend.Info.
func (t *Target) TableIDList(ids []uint32) backend.Status {
	t.Lock()
	defer t.Unlock()
	list := make([]uint32, len(t.prog.tables))
	for i, ti := range t.prog.tables {
		list[i] = ti.id
	}
	return fillIDs(ids, list)
}

// TableName implements backend.Info.
func (t *Target) TableName(tbl uint32) (string, backend.Status) {
	t.Lock()
	defer t.Unlock()
	ti, sts := t.info(tbl)
	if !sts.OK() {
		return "", sts
	}
	return ti.name, sts
}

// TableType implements backend.Info.
func (t *Target) TableType(tbl uint32) (int, backend.Status) {
	t.Lock()
	defer t.Unlock()
	ti, sts := t.info(tbl)
	if !sts.OK() {
		return -1, sts
	}
	return ti.ttype.Code(), sts
}

// TableHasConstDefaultAction implements backend.Info.
func (t *Target) TableHasConstDefaultAction(tbl uint32) (bool, backend.Status) {
	t.Lock()
	defer t.Unlock()
	ti, sts := t.info(tbl)
	if !sts.OK() {
		return false, sts
	}
	return ti.hasConstDefault, sts
}

// KeyFieldIDListSize implements backend.Info.
func (t *Target) KeyFieldIDListSize(tbl uint32) (int, backend.Status) {
	t.Lock()
	defer t.Unlock()
	ti, sts := t.info(tbl)
	if !sts.OK() {
		return 0, sts
	}
	return len(ti.keys), sts
}

// KeyFieldIDList implements backend.Info.
func (t *Target) KeyFieldIDList(tbl uint32, ids []uint32) backend.Status {
	t.Lock()
	defer t.Unlock()
	ti, sts := t.info(tbl)
	if !sts.OK() {
		return sts
	}
	list := make([]uint32, len(ti.keys))
	for i, k := range ti.keys {
		list[i] = k.id
	}
	return fillIDs(ids, list)
}

// KeyFieldName implements backend.Info.
func (t *Target) KeyFieldName(tbl, field uint32) (string, backend.Status) {
	t.Lock()
	defer t.Unlock()
	k, sts := t.key(tbl, field)
	if !sts.OK() {
		return "", sts
	}
	return k.name, sts
}

// KeyFieldMatchType implements backend.Info.
func (t *Target) KeyFieldMatchType(tbl, field uint32) (int, backend.Status) {
	t.Lock()
	defer t.Unlock()
	k, sts := t.key(tbl, field)
	if !sts.OK() {
		return -1, sts
	}
	return k.match.Code(), sts
}

// KeyFieldDataType implements backend.Info.
func (t *Target) KeyFieldDataType(tbl, field uint32) (int, backend.Status) {
	t.Lock()
	defer t.Unlock()
	k, sts := t.key(tbl, field)
	if !sts.OK() {
		return -1, sts
	}
	return k.dtype.Code(), sts
}

// KeyFieldSize implements backend.Info.
func (t *Target) KeyFieldSize(tbl, field uint32) (int, backend.Status) {
	t.Lock()
	defer t.Unlock()
	k, sts := t.key(tbl, field)
	if !sts.OK() {
		return 0, sts
	}
	return k.width, sts
}

// KeyFieldIsPtr implements backend.Info.
func (t *Target) KeyFieldIsPtr(tbl, field uint32) (bool, backend.Status) {
	t.Lock()
	defer t.Unlock()
	k, sts := t.key(tbl, field)
	if !sts.OK() {
		return false, sts
	}
	return k.width > defs.NativeWidth, sts
}

// KeyFieldIsMandatory implements backend.Info.
func (t *Target) KeyFieldIsMandatory(tbl, field uint32) (bool, backend.Status) {
	t.Lock()
	defer t.Unlock()
	k, sts := t.key(tbl, field)
	if !sts.OK() {
		return false, sts
	}
	return k.mandatory, sts
}

// KeyFieldNumAllowedChoices implements backend.Info.
func (t *Target) KeyFieldNumAllowedChoices(tbl, field uint32) (int, backend.Status) {
	t.Lock()
	defer t.Unlock()
	k, sts := t.key(tbl, field)
	if !sts.OK() {
		return 0, sts
	}
	return len(k.choices), sts
}

// KeyFieldAllowedChoices implements backend.Info.
func (t *Target) KeyFieldAllowedChoices(tbl, field uint32, choices []string) backend.Status {
	t.Lock()
	defer t.Unlock()
	k, sts := t.key(tbl, field)
	if !sts.OK() {
		return sts
	}
	if len(choices) < len(k.choices) {
		return backend.InvalidArg
	}
	copy(choices, k.choices)
	return sts
}

// ActionIDListSize implements backend.Info.
func (t *Target) ActionIDListSize(tbl uint32) (int, backend.Status) {
	t.Lock()
	defer t.Unlock()
	ti, sts := t.info(tbl)
	if !sts.OK() {
		return 0, sts
	}
	return len(ti.actions), sts
}

// ActionIDList implements backend.Info.
func (t *Target) ActionIDList(tbl uint32, ids []uint32) backend.Status {
	t.Lock()
	defer t.Unlock()
	ti, sts := t.info(tbl)
	if !sts.OK() {
		return sts
	}
	list := make([]uint32, len(ti.actions))
	for i, a := range ti.actions {
		list[i] = a.id
	}
	return fillIDs(ids, list)
}

// ActionName implements backend.Info.
func (t *Target) ActionName(tbl, action uint32) (string, backend.Status) {
	t.Lock()
	defer t.Unlock()
	a, sts := t.action(tbl, action)
	if !sts.OK() {
		return "", sts
	}
	return a.name, sts
}

// ActionNumAnnotations implements backend.Info.
func (t *Target) ActionNumAnnotations(tbl, action uint32) (int, backend.Status) {
	t.Lock()
	defer t.Unlock()
	a, sts := t.action(tbl, action)
	if !sts.OK() {
		return 0, sts
	}
	return len(a.annotations), sts
}

// ActionAnnotations implements backend.Info.
func (t *Target) ActionAnnotations(tbl, action uint32, annotations []backend.Annotation) backend.Status {
	t.Lock()
	defer t.Unlock()
	a, sts := t.action(tbl, action)
	if !sts.OK() {
		return sts
	}
	if len(annotations) < len(a.annotations) {
		return backend.InvalidArg
	}
	copy(annotations, a.annotations)
	return sts
}

func dataIDs(list []*dataInfo) []uint32 {
	ids := make([]uint32, len(list))
	for i, d := range list {
		ids[i] = d.id
	}
	return ids
}

func (t *Target) dataList(tbl, action uint32) ([]*dataInfo, backend.Status) {
	if action == 0 {
		ti, sts := t.info(tbl)
		if !sts.OK() {
			return nil, sts
		}
		return ti.data, sts
	}
	a, sts := t.action(tbl, action)
	if !sts.OK() {
		return nil, sts
	}
	return a.data, sts
}

// DataFieldIDListSize implements backend.Info.
func (t *Target) DataFieldIDListSize(tbl, action uint32) (int, backend.Status) {
	t.Lock()
	defer t.Unlock()
	list, sts := t.dataList(tbl, action)
	return len(list), sts
}

// DataFieldIDList implements backend.Info.
func (t *Target) DataFieldIDList(tbl, action uint32, ids []uint32) backend.Status {
	t.Lock()
	defer t.Unlock()
	list, sts := t.dataList(tbl, action)
	if !sts.OK() {
		return sts
	}
	return fillIDs(ids, dataIDs(list))
}

// DataFieldName implements backend.Info.
func (t *Target) DataFieldName(tbl, field, action uint32) (string, backend.Status) {
	t.Lock()
	defer t.Unlock()
	d, sts := t.dataInfo(tbl, field, action)
	if !sts.OK() {
		return "", sts
	}
	return d.name, sts
}

// DataFieldType implements backend.Info.
func (t *Target) DataFieldType(tbl, field, action uint32) (int, backend.Status) {
	t.Lock()
	defer t.Unlock()
	d, sts := t.dataInfo(tbl, field, action)
	if !sts.OK() {
		return -1, sts
	}
	return d.dtype.Code(), sts
}

// DataFieldSize implements backend.Info.
func (t *Target) DataFieldSize(tbl, field, action uint32) (int, backend.Status) {
	t.Lock()
	defer t.Unlock()
	d, sts := t.dataInfo(tbl, field, action)
	if !sts.OK() {
		return 0, sts
	}
	return d.width, sts
}

// DataFieldIsPtr implements backend.Info.
func (t *Target) DataFieldIsPtr(tbl, field, action uint32) (bool, backend.Status) {
	t.Lock()
	defer t.Unlock()
	d, sts := t.dataInfo(tbl, field, action)
	if !sts.OK() {
		return false, sts
	}
	return d.dtype.Integer() && d.width > defs.NativeWidth, sts
}

// DataFieldIsReadOnly implements backend.Info.
func (t *Target) DataFieldIsReadOnly(tbl, field, action uint32) (bool, backend.Status) {
	t.Lock()
	defer t.Unlock()
	d, sts := t.dataInfo(tbl, field, action)
	if !sts.OK() {
		return false, sts
	}
	return d.readOnly, sts
}

// DataFieldIsMandatory implements backend.Info.
func (t *Target) DataFieldIsMandatory(tbl, field, action uint32) (bool, backend.Status) {
	t.Lock()
	defer t.Unlock()
	d, sts := t.dataInfo(tbl, field, action)
	if !sts.OK() {
		return false, sts
	}
	return d.mandatory, sts
}

// DataFieldNumAnnotations implements backend.Info.
func (t *Target) DataFieldNumAnnotations(tbl, field, action uint32) (int, backend.Status) {
	t.Lock()
	defer t.Unlock()
	d, sts := t.dataInfo(tbl, field, action)
	if !sts.OK() {
		return 0, sts
	}
	return len(d.annotations), sts
}

// DataFieldAnnotations implements backend.Info.
func (t *Target) DataFieldAnnotations(tbl, field, action uint32, annotations []backend.Annotation) backend.Status {
	t.Lock()
	defer t.Unlock()
	d, sts := t.dataInfo(tbl, field, action)
	if !sts.OK() {
		return sts
	}
	if len(annotations) < len(d.annotations) {
		return backend.InvalidArg
	}
	copy(annotations, d.annotations)
	return sts
}

// DataFieldNumAllowedChoices implements backend.Info.
func (t *Target) DataFieldNumAllowedChoices(tbl, field, action uint32) (int, backend.Status) {
	t.Lock()
	defer t.Unlock()
	d, sts := t.dataInfo(tbl, field, action)
	if !sts.OK() {
		return 0, sts
	}
	return len(d.choices), sts
}

// DataFieldAllowedChoices implements backend.Info.
func (t *Target) DataFieldAllowedChoices(tbl, field, action uint32, choices []string) backend.Status {
	t.Lock()
	defer t.Unlock()
	d, sts := t.dataInfo(tbl, field, action)
	if !sts.OK() {
		return sts
	}
	if len(choices) < len(d.choices) {
		return backend.InvalidArg
	}
	copy(choices, d.choices)
	return sts
}

// ContainerDataFieldList implements backend.Info.
func (t *Target) ContainerDataFieldList(tbl, field uint32, ids []uint32) backend.Status {
	t.Lock()
	defer t.Unlock()
	d, sts := t.dataInfo(tbl, field, 0)
	if !sts.OK() {
		return sts
	}
	if d.dtype != defs.Container {
		return backend.InvalidArg
	}
	return fillIDs(ids, dataIDs(d.children))
}

func (t *Target) supported(tbl uint32, pick func(*tableInfo) []int) (int, []int, backend.Status) {
	t.Lock()
	defer t.Unlock()
	ti, sts := t.info(tbl)
	if !sts.OK() {
		return 0, nil, sts
	}
	list := pick(ti)
	return len(list), list, sts
}

func fillInts(dst, src []int) backend.Status {
	if len(dst) < len(src) {
		return backend.InvalidArg
	}
	copy(dst, src)
	return backend.Success
}

// NumAPISupported implements backend.Info.
func (t *Target) NumAPISupported(tbl uint32) (int, backend.Status) {
	n, _, sts := t.supported(tbl, func(ti *tableInfo) []int { return ti.apis })
	return n, sts
}

// APISupported implements backend.Info.
func (t *Target) APISupported(tbl uint32, apis []int) backend.Status {
	_, list, sts := t.supported(tbl, func(ti *tableInfo) []int { return ti.apis })
	if !sts.OK() {
		return sts
	}
	return fillInts(apis, list)
}

// NumAttributesSupported implements backend.Info.
func (t *Target) NumAttributesSupported(tbl uint32) (int, backend.Status) {
	n, _, sts := t.supported(tbl, func(ti *tableInfo) []int { return ti.attrs })
	return n, sts
}

// AttributesSupported implements backend.Info.
func (t *Target) AttributesSupported(tbl uint32, attrs []int) backend.Status {
	_, list, sts := t.supported(tbl, func(ti *tableInfo) []int { return ti.attrs })
	if !sts.OK() {
		return sts
	}
	return fillInts(attrs, list)
}

// NumOperationsSupported implements backend.Info.
func (t *Target) NumOperationsSupported(tbl uint32) (int, backend.Status) {
	n, _, sts := t.supported(tbl, func(ti *tableInfo) []int { return ti.ops })
	return n, sts
}

// OperationsSupported implements backend.Info.
func (t *Target) OperationsSupported(tbl uint32, ops []int) backend.Status {
	_, list, sts := t.supported(tbl, func(ti *tableInfo) []int { return ti.ops })
	if !sts.OK() {
		return sts
	}
	return fillInts(ops, list)
}
