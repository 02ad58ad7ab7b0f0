package defs

import "strconv"

// TableTypeDevice is the first table type code reserved for device tables.
const TableTypeDevice = 0x0800

// TableType as reported by the backend.
type TableType int

// table types this package gives special treatment to.
const (
	MatchDirect           TableType = TableTypeDevice + 0
	MatchIndirect         TableType = TableTypeDevice + 1
	MatchIndirectSelector TableType = TableTypeDevice + 2
	ActionProfile         TableType = TableTypeDevice + 3
	Selector              TableType = TableTypeDevice + 4
	Counter               TableType = TableTypeDevice + 5
	Meter                 TableType = TableTypeDevice + 6
	Register              TableType = TableTypeDevice + 7
	PortCfg               TableType = TableTypeDevice + 15
	PortStat              TableType = TableTypeDevice + 16
)

// indexed by code - TableTypeDevice
var tableTypeNames = []string{
	"MATCH_DIRECT",
	"MATCH_INDIRECT",
	"MATCH_INDIRECT_SELECTOR",
	"ACTION_PROFILE",
	"SELECTOR",
	"COUNTER",
	"METER",
	"REGISTER",
	"LPF",
	"WRED",
	"PVS",
	"PORT_METADATA",
	"DYN_HASH_CFG",
	"SNAPSHOT_CFG",
	"SNAPSHOT_LIVENESS",
	"PORT_CFG",
	"PORT_STAT",
	"PORT_HDL_INFO",
	"PORT_FRONT_PANEL_IDX_INFO",
	"PORT_STR_INFO",
	"PKTGEN_PORT_CFG",
	"PKTGEN_APP_CFG",
	"PKTGEN_PKT_BUFF_CFG",
	"PKTGEN_PORT_MASK_CFG",
	"PKTGEN_PORT_DOWN_REPLAY_CFG",
	"PRE_MGID",
	"PRE_NODE",
	"PRE_ECMP",
	"PRE_LAG",
	"PRE_PRUNE",
	"MIRROR_CFG",
	"TM_PPG_OBSOLETE",
	"PRE_PORT",
	"DYN_HASH_ALGO",
	"TM_POOL_CFG",
	"TM_POOL_SKID",
	"DEV_CFG",
	"TM_POOL_APP",
	"TM_QUEUE_CFG",
	"TM_QUEUE_MAP",
	"TM_QUEUE_COLOR",
	"TM_QUEUE_BUFFER",
	"TM_PORT_GROUP_CFG",
	"TM_PORT_GROUP",
	"TM_POOL_COLOR",
	"SNAPSHOT_PHV",
	"SNAPSHOT_TRIG",
	"SNAPSHOT_DATA",
	"TM_POOL_APP_PFC",
	"TM_COUNTER_IG_PORT",
	"TM_COUNTER_EG_PORT",
	"TM_COUNTER_QUEUE",
	"TM_COUNTER_POOL",
	"TM_PORT_CFG",
	"TM_PORT_BUFFER",
	"TM_PORT_FLOWCONTROL",
	"TM_COUNTER_PIPE",
	"DBG_CNT",
	"LOG_DBG_CNT",
	"TM_CFG",
	"TM_PIPE_MULTICAST_FIFO",
	"TM_MIRROR_DPG",
	"TM_PORT_DPG",
	"TM_PPG_CFG",
	"REG_PARAM",
	"TM_COUNTER_PORT_DPG",
	"TM_COUNTER_MIRROR_PORT_DPG",
	"TM_COUNTER_PPG",
	"DYN_HASH_COMPUTE",
	"SELECTOR_GET_MEMBER",
	"TM_QUEUE_SCHED_CFG",
	"TM_QUEUE_SCHED_SHAPING",
	"TM_PORT_SCHED_CFG",
	"TM_PORT_SCHED_SHAPING",
	"TM_PIPE_CFG",
	"TM_PIPE_SCHED_CFG",
	"VALUE_LOOKUP",
	"INVLD",
}

// tables without usage counters.
var noUsageTables = map[string]bool{
	"COUNTER":                   true,
	"METER":                     true,
	"REGISTER":                  true,
	"LPF":                       true,
	"WRED":                      true,
	"PVS":                       true,
	"PORT_CFG":                  true,
	"PORT_STAT":                 true,
	"PORT_HDL_INFO":             true,
	"PORT_FRONT_PANEL_IDX_INFO": true,
	"PORT_STR_INFO":             true,
	"PRE_MGID":                  true,
	"PRE_NODE":                  true,
	"PRE_ECMP":                  true,
	"PRE_LAG":                   true,
	"PRE_PRUNE":                 true,
	"PRE_PORT":                  true,
	"DEV_CFG":                   true,
	"REG_PARAM":                 true,
	"TM_PIPE_CFG":               true,
	"TM_PIPE_SCHED_CFG":         true,
	"TM_MIRROR_DPG":             true,
	"MIRROR_CFG":                true,
}

// ResolveTableType maps a backend code to a TableType. It never fails,
// unknown codes keep their value and print as TODO.
func ResolveTableType(code int) TableType {
	return TableType(code)
}

// TableTypeByName returns the code of a table type name, i.e. MATCH_DIRECT.
func TableTypeByName(name string) (TableType, bool) {
	for i, n := range tableTypeNames {
		if n == name {
			return TableType(TableTypeDevice + i), true
		}
	}
	return 0, false
}

func (t TableType) String() string {
	idx := int(t) - TableTypeDevice
	if idx < 0 || idx >= len(tableTypeNames) {
		return "TODO"
	}
	return tableTypeNames[idx]
}

// Code returns the backend code of the table type.
func (t TableType) Code() int {
	return int(t)
}

// HasUsage reports whether the backend keeps an entry count for this type.
func (t TableType) HasUsage() bool {
	return !noUsageTables[t.String()]
}

// GoString is used by %#v, handy in test failures.
func (t TableType) GoString() string {
	return t.String() + "(" + strconv.Itoa(int(t)) + ")"
}
