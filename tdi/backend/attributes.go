package backend

// Notification callbacks. They run on whatever goroutine the backend
// delivers them from.
type (
	IdleTimeoutFunc    func(tgt Target, key Handle)
	PortStatusFunc     func(tgt Target, key Handle, up bool)
	SelectorUpdateFunc func(sess Handle, tgt Target, groupID, memberID uint32, logicalIndex int, isAdd bool)
	OperationFunc      func(tgt Target)
)

// IdleTableState read back from an idle table attribute object.
type IdleTableState struct {
	Mode        int
	Enable      bool
	TTLInterval uint32
	MaxTTL      uint32
	MinTTL      uint32
}

// Attributes configure a table as a whole.
type Attributes interface {
	IdleTableAttributesAllocate(tbl uint32, mode int) (Handle, Status)
	EntryScopeAttributesAllocate(tbl uint32) (Handle, Status)
	PortStatusNotifAttributesAllocate(tbl uint32) (Handle, Status)
	PortStatsPollIntvAttributesAllocate(tbl uint32) (Handle, Status)
	SelectorUpdateAttributesAllocate(tbl uint32) (Handle, Status)
	MeterByteCountAdjustAttributesAllocate(tbl uint32) (Handle, Status)
	DynKeyMaskAttributesAllocate(tbl uint32) (Handle, Status)
	AttributesDeallocate(attr Handle) Status

	AttributesSet(sess Handle, tgt Target, flags Handle, tbl uint32, attr Handle) Status
	AttributesGet(sess Handle, tgt Target, flags Handle, tbl uint32, attr Handle) Status

	IdleTablePollModeSet(attr Handle, enable bool) Status
	IdleTableNotifyModeSet(attr Handle, enable bool, cb IdleTimeoutFunc, interval, maxTTL, minTTL uint32) Status
	IdleTableGet(attr Handle) (IdleTableState, Status)
	SymmetricModeSet(attr Handle, enable bool) Status
	SymmetricModeGet(attr Handle) (bool, Status)
	PortStatusNotifSet(attr Handle, enable bool, cb PortStatusFunc) Status
	PortStatsPollIntvSet(attr Handle, ms uint32) Status
	PortStatsPollIntvGet(attr Handle) (uint32, Status)
	SelectorUpdateSet(attr Handle, enable bool, cb SelectorUpdateFunc) Status
	MeterByteCountAdjustSet(attr Handle, bytes int32) Status
	MeterByteCountAdjustGet(attr Handle) (int32, Status)
	DynKeyMaskSet(attr Handle, field uint32, mask []byte) Status
	DynKeyMaskNumFields(attr Handle) (int, Status)
	DynKeyMaskFields(attr Handle, fields []uint32) Status
	DynKeyMaskBytes(attr Handle, field uint32) ([]byte, Status)
}

// Operations run table wide jobs whose completion is reported through a
// callback.
type Operations interface {
	OperationsAllocate(tbl uint32, op int) (Handle, Status)
	OperationsCounterSyncSet(ops Handle, sess Handle, tgt Target, cb OperationFunc) Status
	OperationsRegisterSyncSet(ops Handle, sess Handle, tgt Target, cb OperationFunc) Status
	OperationsHitStateUpdateSet(ops Handle, sess Handle, tgt Target, cb OperationFunc) Status
	OperationsExecute(tbl uint32, ops Handle) Status
	OperationsDeallocate(ops Handle) Status
}

// Session groups operations into batches and transactions.
type Session interface {
	SessionCreate() (Handle, Status)
	SessionDestroy(sess Handle) Status
	SessionCompleteOperations(sess Handle) Status

	BeginBatch(sess Handle) Status
	FlushBatch(sess Handle) Status
	EndBatch(sess Handle, hwSync bool) Status

	BeginTransaction(sess Handle, atomic bool) Status
	VerifyTransaction(sess Handle) Status
	CommitTransaction(sess Handle, hwSync bool) Status
	AbortTransaction(sess Handle) Status
}
