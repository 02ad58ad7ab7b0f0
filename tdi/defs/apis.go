package defs

// API identifies one table API a backend may support.
type API int

// APIs, in the order used by the backend.
const (
	APIAdd API = iota
	APIMod
	APIModInc
	APIDelete
	APIClear
	APISetDefault
	APIModDefault
	APIResetDefault
	APIGetDefault
	APIGet
	APIGetFirst
	APIGetNextN
	APIUsageGet
	APIGetSize
	APIGetByHandle
	APIGetKey
	APIGetHandle
	APIInvalid
)

// command names exposed for every supported API.
var apiCommands = map[API]string{
	APIAdd:          "add",
	APIMod:          "mod",
	APIModInc:       "mod_inc",
	APIDelete:       "delete",
	APIClear:        "clear",
	APISetDefault:   "set_default",
	APIModDefault:   "mod_default",
	APIResetDefault: "reset_default",
	APIGetDefault:   "get_default",
	APIGet:          "get",
	APIGetFirst:     "get_first",
	APIGetNextN:     "get_next_n",
	APIUsageGet:     "usage_get",
	APIGetSize:      "get_size",
	APIGetByHandle:  "get_by_handle",
	APIGetKey:       "get_key",
	APIGetHandle:    "get_handle",
	APIInvalid:      "invalid_api",
}

// Command returns the command name of the API, or "" if unknown.
func (a API) Command() string {
	return apiCommands[a]
}

// Attribute identifies a table attribute a backend may support.
type Attribute int

// attributes. 6 is unused by the backend.
const (
	AttrSymmetricMode       Attribute = 0
	AttrDynKeyMask          Attribute = 1
	AttrIdleTable           Attribute = 2
	AttrMeterByteCountAdj   Attribute = 3
	AttrPortStatusNotif     Attribute = 4
	AttrPortStatsPollIntv   Attribute = 5
	AttrSelectorTableUpdate Attribute = 7
)

var attributeCommands = map[Attribute][]string{
	AttrSymmetricMode:       {"symmetric_mode_set", "symmetric_mode_get"},
	AttrDynKeyMask:          {"dyn_key_mask_get", "dyn_key_mask_set"},
	AttrIdleTable:           {"idle_table_set_poll", "idle_table_set_notify", "idle_table_get"},
	AttrMeterByteCountAdj:   {"meter_byte_count_adjust_set", "meter_byte_count_adjust_get"},
	AttrPortStatusNotif:     {"port_status_notif_cb_set"},
	AttrPortStatsPollIntv:   {"port_stats_poll_intv_set", "port_stats_poll_intv_get"},
	AttrSelectorTableUpdate: {"selector_table_update_cb_set"},
}

// Commands returns the command names enabled by the attribute.
func (a Attribute) Commands() []string {
	return attributeCommands[a]
}

// Operation identifies a table operation a backend may support.
type Operation int

// operations
const (
	OpCounterSync Operation = iota
	OpRegisterSync
	OpHitStateUpdate
)

var operationCommands = map[Operation]string{
	OpCounterSync:    "operation_counter_sync",
	OpRegisterSync:   "operation_register_sync",
	OpHitStateUpdate: "operation_hit_state_update",
}

// Command returns the command name of the operation, or "" if unknown.
func (o Operation) Command() string {
	return operationCommands[o]
}

// IdleTableMode of an idle-timeout enabled table.
type IdleTableMode int

// idle table modes
const (
	IdlePollMode IdleTableMode = iota
	IdleNotifyMode
	IdleInvalidMode
)

func (m IdleTableMode) String() string {
	switch m {
	case IdlePollMode:
		return "POLL_MODE"
	case IdleNotifyMode:
		return "NOTIFY_MODE"
	case IdleInvalidMode:
		return "INVALID_MODE"
	}
	return "ERR: Table Mode not implemented"
}

// Flags passed along with entry operations.
type Flags uint64

// flag values
const (
	FlagsCore   Flags = 0
	FlagsArch   Flags = 0x08
	FlagsDevice Flags = 0x10

	// FlagSkipTTLReset keeps the idle timer of a modified entry running.
	FlagSkipTTLReset Flags = 1 << 2
	// FlagFromHW reads the entry from the device instead of the software state.
	FlagFromHW = FlagsDevice + 0
)

// Has reports whether every bit of f2 is set.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}
