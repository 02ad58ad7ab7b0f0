package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// table ids of Program.
const (
	TableLPM      = 1
	TableACL      = 2
	TableRegister = 3
	TablePortCfg  = 4
	TableSelector = 5
	TablePreNode  = 6
)

// action ids of Program.
const (
	ActionForward = 10
	ActionDrop    = 11
	ActionNoop    = 12
	ActionPermit  = 20
	ActionDeny    = 21
)

// Program is a program description covering every match type, every data
// type, attributes and operations.
const Program = `{
  "tables": [
    {
      "name": "pipe.Ingress.ipv4_lpm",
      "id": 1,
      "table_type": "MatchAction_Direct",
      "size": 1024,
      "annotations": [],
      "key": [
        {"id": 1, "name": "hdr.ipv4.dst_addr", "match_type": "LPM", "mandatory": true,
         "type": {"type": "bytes", "width": 32}}
      ],
      "action_specs": [
        {"id": 10, "name": "Ingress.forward", "annotations": [],
         "data": [
           {"id": 1, "name": "port", "repeated": false, "mandatory": true, "read_only": false,
            "type": {"type": "bytes", "width": 9}},
           {"id": 2, "name": "dst_mac", "repeated": false, "mandatory": false, "read_only": false,
            "type": {"type": "bytes", "width": 48}}
         ]},
        {"id": 11, "name": "Ingress.drop", "annotations": [], "data": []},
        {"id": 12, "name": "NoAction",
         "annotations": [{"name": "@defaultonly", "value": ""}], "data": []}
      ],
      "data": [],
      "supported_operations": ["UpdateHitState"],
      "attributes": ["IdleTimeout"]
    },
    {
      "name": "pipe.Ingress.acl",
      "id": 2,
      "table_type": "MatchAction_Direct",
      "size": 4,
      "key": [
        {"id": 1, "name": "hdr.ethernet.ether_type", "match_type": "Ternary", "mandatory": false,
         "type": {"type": "bytes", "width": 16}},
        {"id": 2, "name": "meta.l4_port", "match_type": "Range", "mandatory": false,
         "type": {"type": "bytes", "width": 16}},
        {"id": 3, "name": "meta.vlan", "match_type": "Optional", "mandatory": false,
         "type": {"type": "bytes", "width": 12}},
        {"id": 4, "name": "$MATCH_PRIORITY", "match_type": "Exact", "mandatory": true,
         "type": {"type": "uint32", "width": 32}}
      ],
      "action_specs": [
        {"id": 20, "name": "Ingress.permit", "annotations": [],
         "data": [
           {"id": 1, "name": "$COUNTER_SPEC_PKTS", "repeated": false, "mandatory": false, "read_only": false,
            "type": {"type": "uint64", "width": 64}},
           {"id": 2, "name": "$COUNTER_SPEC_BYTES", "repeated": false, "mandatory": false, "read_only": false,
            "type": {"type": "uint64", "width": 64}}
         ]},
        {"id": 21, "name": "Ingress.deny", "annotations": [], "data": []}
      ],
      "data": [],
      "supported_operations": ["SyncCounters"],
      "attributes": ["DynamicKeyMask", "EntryScope"],
      "supported_apis": ["add", "mod", "delete", "clear", "set_default", "reset_default",
                         "get_default", "get", "get_first", "get_next_n", "usage_get",
                         "get_size", "get_handle"]
    },
    {
      "name": "pipe.Ingress.reg",
      "id": 3,
      "table_type": "Register",
      "size": 16,
      "key": [
        {"id": 1, "name": "$REGISTER_INDEX", "match_type": "Exact", "mandatory": true,
         "type": {"type": "uint32", "width": 32}}
      ],
      "data": [
        {"mandatory": false, "read_only": false,
         "singleton": {"id": 1, "name": "Ingress.reg.f1", "repeated": false,
           "annotations": [{"name": "$bfrt_field_class", "value": "register_data"}],
           "type": {"type": "bytes", "width": 32}}}
      ],
      "supported_operations": ["SyncRegisters"],
      "attributes": []
    },
    {
      "name": "$PORT_CFG",
      "id": 4,
      "table_type": "PortConfigure",
      "size": 512,
      "key": [
        {"id": 1, "name": "$DEV_PORT", "match_type": "Exact", "mandatory": true,
         "type": {"type": "uint32", "width": 32}}
      ],
      "data": [
        {"mandatory": true, "read_only": false,
         "singleton": {"id": 1, "name": "$SPEED", "repeated": false,
           "type": {"type": "string", "choices": ["BF_SPEED_10G", "BF_SPEED_25G", "BF_SPEED_100G"]}}},
        {"mandatory": false, "read_only": false,
         "singleton": {"id": 2, "name": "$FEC", "repeated": false,
           "type": {"type": "string", "choices": ["BF_FEC_TYP_NONE", "BF_FEC_TYP_REED_SOLOMON"]}}},
        {"mandatory": false, "read_only": false,
         "singleton": {"id": 3, "name": "$PORT_ENABLE", "repeated": false,
           "type": {"type": "bool"}}},
        {"mandatory": false, "read_only": false,
         "singleton": {"id": 4, "name": "$LANE_MAP", "repeated": true,
           "type": {"type": "uint32"}}},
        {"mandatory": false, "read_only": true,
         "singleton": {"id": 5, "name": "$N_LANES", "repeated": false,
           "annotations": [{"name": "$bfrt_field_imp_level", "value": "2"}],
           "type": {"type": "uint32", "default_value": 4}}}
      ],
      "supported_operations": [],
      "attributes": ["port_status_notif_cb", "poll_intvl_ms"]
    },
    {
      "name": "pipe.Ingress.sel",
      "id": 5,
      "table_type": "Selector",
      "size": 64,
      "key": [
        {"id": 1, "name": "$SELECTOR_GROUP_ID", "match_type": "Exact", "mandatory": true,
         "type": {"type": "uint32", "width": 32}}
      ],
      "data": [
        {"mandatory": false, "read_only": false,
         "singleton": {"id": 1, "name": "$ACTION_MEMBER_ID", "repeated": true,
           "type": {"type": "uint32"}}},
        {"mandatory": false, "read_only": false,
         "singleton": {"id": 2, "name": "$ACTION_MEMBER_STATUS", "repeated": true,
           "type": {"type": "bool"}}},
        {"mandatory": false, "read_only": false,
         "singleton": {"id": 3, "name": "$MAX_GROUP_SIZE", "repeated": false,
           "type": {"type": "uint32", "default_value": 120}}}
      ],
      "supported_operations": [],
      "attributes": ["SelectorUpdateCb"]
    },
    {
      "name": "$PRE_NODE",
      "id": 6,
      "table_type": "PRE_NODE",
      "size": 128,
      "key": [
        {"id": 1, "name": "$MULTICAST_NODE_ID", "match_type": "Exact", "mandatory": true,
         "type": {"type": "uint32", "width": 32}}
      ],
      "data": [
        {"mandatory": false, "read_only": false,
         "singleton": {"id": 1, "name": "$MULTICAST_RID", "repeated": false,
           "type": {"type": "uint16"}}},
        {"mandatory": false, "read_only": false,
         "singleton": {"id": 2, "name": "$WEIGHT", "repeated": false,
           "type": {"type": "float"}}},
        {"mandatory": false, "read_only": false,
         "singleton": {"id": 3, "name": "$LABELS", "repeated": true,
           "type": {"type": "string"}}},
        {"mandatory": false, "read_only": false,
         "singleton": {"id": 4, "name": "$TAGS", "repeated": true,
           "container": [
             {"mandatory": false, "read_only": false,
              "singleton": {"id": 11, "name": "$TAG_NAME", "repeated": false,
                "type": {"type": "string"}}},
             {"mandatory": false, "read_only": false,
              "singleton": {"id": 12, "name": "$TAG_VALUE", "repeated": false,
                "type": {"type": "uint32"}}}
           ]}}
      ],
      "supported_operations": [],
      "attributes": [],
      "supported_apis": ["add", "mod", "mod_inc", "delete", "clear", "get", "get_first",
                         "get_next_n", "usage_get", "get_size", "get_by_handle",
                         "get_key", "get_handle"]
    }
  ]
}`

// WriteProgram stores Program in a temporary directory and returns its path.
func WriteProgram(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tdi.json")
	if err := os.WriteFile(path, []byte(Program), 0600); err != nil {
		t.Fatalf("Error writing program: %s", err)
	}
	return path
}

// SkipIfNotPrivileged skips tests needing CAP_NET_ADMIN.
func SkipIfNotPrivileged(t *testing.T) {
	t.Helper()
	if os.Getuid() != 0 {
		t.Skip("requires root")
	}
}
