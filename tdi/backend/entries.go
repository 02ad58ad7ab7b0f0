package backend

// Keys builds and reads key objects. The *Ptr variants carry values as
// big-endian byte arrays, for fields wider than a native integer.
type Keys interface {
	KeyAllocate(tbl uint32) (Handle, Status)
	KeyDeallocate(key Handle) Status

	KeySetValue(key Handle, field uint32, value uint64) Status
	KeySetValuePtr(key Handle, field uint32, value []byte) Status
	KeySetValueString(key Handle, field uint32, value string) Status
	KeySetValueAndMask(key Handle, field uint32, value, mask uint64) Status
	KeySetValueAndMaskPtr(key Handle, field uint32, value, mask []byte) Status
	KeySetValueRange(key Handle, field uint32, start, end uint64) Status
	KeySetValueRangePtr(key Handle, field uint32, start, end []byte) Status
	KeySetValueLPM(key Handle, field uint32, value uint64, prefixLen uint16) Status
	KeySetValueLPMPtr(key Handle, field uint32, value []byte, prefixLen uint16) Status
	KeySetValueOptional(key Handle, field uint32, value uint64, isValid bool) Status
	KeySetValueOptionalPtr(key Handle, field uint32, value []byte, isValid bool) Status

	KeyGetValue(key Handle, field uint32) (uint64, Status)
	KeyGetValuePtr(key Handle, field uint32, size int) ([]byte, Status)
	KeyGetValueStringSize(key Handle, field uint32) (int, Status)
	KeyGetValueString(key Handle, field uint32) (string, Status)
	KeyGetValueAndMask(key Handle, field uint32) (value, mask uint64, sts Status)
	KeyGetValueAndMaskPtr(key Handle, field uint32, size int) (value, mask []byte, sts Status)
	KeyGetValueRange(key Handle, field uint32) (start, end uint64, sts Status)
	KeyGetValueRangePtr(key Handle, field uint32, size int) (start, end []byte, sts Status)
	KeyGetValueLPM(key Handle, field uint32) (value uint64, prefixLen uint16, sts Status)
	KeyGetValueLPMPtr(key Handle, field uint32, size int) (value []byte, prefixLen uint16, sts Status)
	KeyGetValueOptional(key Handle, field uint32) (value uint64, isValid bool, sts Status)
	KeyGetValueOptionalPtr(key Handle, field uint32, size int) (value []byte, isValid bool, sts Status)
}

// Data builds and reads data objects.
type Data interface {
	DataAllocate(tbl uint32) (Handle, Status)
	ActionDataAllocate(tbl, action uint32) (Handle, Status)
	// DataAllocateContainer allocates one record of a container field.
	DataAllocateContainer(tbl, field uint32) (Handle, Status)
	DataDeallocate(data Handle) Status

	DataActionID(data Handle) (uint32, Status)
	DataFieldIsActive(data Handle, field uint32) (bool, Status)

	DataSetValue(data Handle, field uint32, value uint64) Status
	DataSetValuePtr(data Handle, field uint32, value []byte) Status
	DataSetValueArray(data Handle, field uint32, value []uint32) Status
	DataSetValueBoolArray(data Handle, field uint32, value []bool) Status
	// DataSetValueStrArray takes the strings joined by a space.
	DataSetValueStrArray(data Handle, field uint32, value string) Status
	DataSetFloat(data Handle, field uint32, value float32) Status
	DataSetBool(data Handle, field uint32, value bool) Status
	DataSetString(data Handle, field uint32, value string) Status
	// DataSetValueDataFieldArray moves the container records into data;
	// the records must not be deallocated by the caller afterwards.
	DataSetValueDataFieldArray(data Handle, field uint32, records []Handle) Status

	DataGetValue(data Handle, field uint32) (uint64, Status)
	DataGetValuePtr(data Handle, field uint32, size int) ([]byte, Status)
	DataGetValueU64ArraySize(data Handle, field uint32) (int, Status)
	DataGetValueU64Array(data Handle, field uint32, value []uint64) Status
	DataGetValueArraySize(data Handle, field uint32) (int, Status)
	DataGetValueArray(data Handle, field uint32, value []uint32) Status
	DataGetValueBoolArraySize(data Handle, field uint32) (int, Status)
	DataGetValueBoolArray(data Handle, field uint32, value []bool) Status
	DataGetValueStrArraySize(data Handle, field uint32) (int, Status)
	DataGetValueStrArray(data Handle, field uint32) (string, Status)
	DataGetFloat(data Handle, field uint32) (float32, Status)
	DataGetBool(data Handle, field uint32) (bool, Status)
	DataGetStringSize(data Handle, field uint32) (int, Status)
	DataGetString(data Handle, field uint32) (string, Status)
	// DataGetValueDataFieldArray returns handles owned by data.
	DataGetValueDataFieldArraySize(data Handle, field uint32) (int, Status)
	DataGetValueDataFieldArray(data Handle, field uint32, records []Handle) Status
}

// Flags objects qualify entry operations.
type Flags interface {
	FlagsCreate(value uint64) (Handle, Status)
	FlagsSetValue(flags Handle, flag uint64, set bool) Status
	FlagsGetValue(flags Handle) (uint64, Status)
	FlagsDelete(flags Handle) Status
}

// Tables operates on the entries of a table.
type Tables interface {
	EntryAdd(sess Handle, tgt Target, flags Handle, tbl uint32, key, data Handle) Status
	EntryMod(sess Handle, tgt Target, flags Handle, tbl uint32, key, data Handle) Status
	EntryModInc(sess Handle, tgt Target, flags Handle, tbl uint32, key, data Handle, modInc int) Status
	EntryDel(sess Handle, tgt Target, flags Handle, tbl uint32, key Handle) Status
	Clear(sess Handle, tgt Target, flags Handle, tbl uint32) Status

	DefaultEntrySet(sess Handle, tgt Target, flags Handle, tbl uint32, data Handle) Status
	DefaultEntryReset(sess Handle, tgt Target, flags Handle, tbl uint32) Status
	DefaultEntryGet(sess Handle, tgt Target, flags Handle, tbl uint32, data Handle) Status

	EntryGet(sess Handle, tgt Target, flags Handle, tbl uint32, key, data Handle) Status
	EntryGetByHandle(sess Handle, tgt Target, flags Handle, tbl uint32, entry uint32, key, data Handle) Status
	EntryKeyGet(sess Handle, tgt Target, flags Handle, tbl uint32, entry uint32, key Handle) (Target, Status)
	EntryHandleGet(sess Handle, tgt Target, flags Handle, tbl uint32, key Handle) (uint32, Status)
	EntryGetFirst(sess Handle, tgt Target, flags Handle, tbl uint32, key, data Handle) Status
	// EntryGetNextN fills up to len(keys) entries following prevKey and
	// returns how many were read.
	EntryGetNextN(sess Handle, tgt Target, flags Handle, tbl uint32, prevKey Handle, keys, data []Handle) (int, Status)

	UsageGet(sess Handle, tgt Target, flags Handle, tbl uint32) (uint32, Status)
	SizeGet(sess Handle, tgt Target, flags Handle, tbl uint32) (uint64, Status)
}
