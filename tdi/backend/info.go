package backend

// Info exposes the program metadata. Action 0 means "no action" in the
// data field queries: the table's own data fields, or a container child.
type Info interface {
	TableIDListSize() (int, Status)
	TableIDList(ids []uint32) Status
	TableName(tbl uint32) (string, Status)
	TableType(tbl uint32) (int, Status)
	TableHasConstDefaultAction(tbl uint32) (bool, Status)

	KeyFieldIDListSize(tbl uint32) (int, Status)
	KeyFieldIDList(tbl uint32, ids []uint32) Status
	KeyFieldName(tbl, field uint32) (string, Status)
	KeyFieldMatchType(tbl, field uint32) (int, Status)
	KeyFieldDataType(tbl, field uint32) (int, Status)
	KeyFieldSize(tbl, field uint32) (int, Status)
	KeyFieldIsPtr(tbl, field uint32) (bool, Status)
	KeyFieldIsMandatory(tbl, field uint32) (bool, Status)
	KeyFieldNumAllowedChoices(tbl, field uint32) (int, Status)
	KeyFieldAllowedChoices(tbl, field uint32, choices []string) Status

	ActionIDListSize(tbl uint32) (int, Status)
	ActionIDList(tbl uint32, ids []uint32) Status
	ActionName(tbl, action uint32) (string, Status)
	ActionNumAnnotations(tbl, action uint32) (int, Status)
	ActionAnnotations(tbl, action uint32, annotations []Annotation) Status

	DataFieldIDListSize(tbl, action uint32) (int, Status)
	DataFieldIDList(tbl, action uint32, ids []uint32) Status
	DataFieldName(tbl, field, action uint32) (string, Status)
	DataFieldType(tbl, field, action uint32) (int, Status)
	DataFieldSize(tbl, field, action uint32) (int, Status)
	DataFieldIsPtr(tbl, field, action uint32) (bool, Status)
	DataFieldIsReadOnly(tbl, field, action uint32) (bool, Status)
	DataFieldIsMandatory(tbl, field, action uint32) (bool, Status)
	DataFieldNumAnnotations(tbl, field, action uint32) (int, Status)
	DataFieldAnnotations(tbl, field, action uint32, annotations []Annotation) Status
	DataFieldNumAllowedChoices(tbl, field, action uint32) (int, Status)
	DataFieldAllowedChoices(tbl, field, action uint32, choices []string) Status
	// ContainerDataFieldList fills the child IDs of a container field; the
	// size of a container field is its number of children.
	ContainerDataFieldList(tbl, field uint32, ids []uint32) Status

	NumAPISupported(tbl uint32) (int, Status)
	APISupported(tbl uint32, apis []int) Status
	NumAttributesSupported(tbl uint32) (int, Status)
	AttributesSupported(tbl uint32, attrs []int) Status
	NumOperationsSupported(tbl uint32) (int, Status)
	OperationsSupported(tbl uint32, ops []int) Status
}
