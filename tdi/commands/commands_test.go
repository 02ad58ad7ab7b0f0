package commands

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/tdictl/tdid/internal/testutil"
	"github.com/tdictl/tdid/tdi/backend/swtarget"
	"github.com/tdictl/tdid/tdi/table"
)

var ctx = context.Background()

func registry(t *testing.T) *Registry {
	t.Helper()
	target, err := swtarget.Load([]byte(testutil.Program))
	if err != nil {
		t.Fatalf("Error loading program: %s", err)
	}
	prog, err := table.Open(target)
	if err != nil {
		t.Fatalf("Error opening program: %s", err)
	}
	return New(prog)
}

func run(t *testing.T, r *Registry, line string) string {
	t.Helper()
	out, err := r.Run(ctx, line)
	if err != nil {
		t.Fatalf("%s: %s", line, err)
	}
	return out
}

func TestParamNames(t *testing.T) {
	tests := []struct {
		name     string
		keys     []string
		data     []string
		wantKeys map[string]string
		wantData map[string]string
	}{
		{
			name:     "last component",
			keys:     []string{"hdr.ipv4.dst_addr"},
			data:     []string{"port", "dst_mac"},
			wantKeys: map[string]string{"hdr.ipv4.dst_addr": "dst_addr"},
			wantData: map[string]string{"port": "port", "dst_mac": "dst_mac"},
		},
		{
			name:     "colliding keys",
			keys:     []string{"hdr.ipv4.dst_addr", "hdr.ipv6.dst_addr"},
			data:     []string{"port"},
			wantKeys: map[string]string{"hdr.ipv4.dst_addr": "ipv4_dst_addr", "hdr.ipv6.dst_addr": "ipv6_dst_addr"},
			wantData: map[string]string{"port": "port"},
		},
		{
			name:     "key and data",
			keys:     []string{"meta.port"},
			data:     []string{"port"},
			wantKeys: map[string]string{"meta.port": "meta_port"},
			wantData: map[string]string{"port": "port"},
		},
		{
			name:     "same name",
			keys:     []string{"$DEV_PORT"},
			data:     []string{"DEV_PORT"},
			wantKeys: map[string]string{"$DEV_PORT": "DEV_PORT_key"},
			wantData: map[string]string{"DEV_PORT": "DEV_PORT_data"},
		},
		{
			name:     "special characters",
			keys:     []string{"a-b:c[0]"},
			wantKeys: map[string]string{"a-b:c[0]": "a_b_c_0_"},
			wantData: map[string]string{},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			keys, data := ParamNames(test.keys, test.data)
			if diff := cmp.Diff(test.wantKeys, keys); diff != "" {
				t.Errorf("key names mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(test.wantData, data); diff != "" {
				t.Errorf("data names mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCommands(t *testing.T) {
	r := registry(t)

	lpm := r.Node("pipe.Ingress.ipv4_lpm")
	if lpm == nil {
		t.Fatalf("no commands for the lpm table in %v", r.Tables())
	}
	for _, name := range []string{
		"get", "get_handle", "get_key", "delete",
		"add_with_forward", "add_with_drop", "mod_with_forward", "mod_inc_with_forward", "entry_with_forward",
		"set_default_with_forward", "set_default_with_NoAction",
		"reset_default", "get_default", "dump", "clear", "info", "usage", "add_from_json", "string_choices",
		"operation_hit_state_update", "idle_table_set_poll", "idle_table_get",
	} {
		if lpm.Command(name) == nil {
			t.Errorf("missing command %s in %v", name, lpm.Names())
		}
	}
	for _, name := range []string{"add_with_NoAction", "add", "operation_counter_sync"} {
		if lpm.Command(name) != nil {
			t.Errorf("unexpected command %s", name)
		}
	}
	want := []string{"dst_addr", "dst_addr_p_length", "port", "dst_mac"}
	if diff := cmp.Diff(want, lpm.Command("add_with_forward").Params()); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}

	acl := r.Node("pipe.Ingress.acl")
	want = []string{
		"ether_type", "ether_type_mask", "l4_port_start", "l4_port_end", "vlan", "vlan_is_valid",
		"MATCH_PRIORITY", "COUNTER_SPEC_PKTS", "COUNTER_SPEC_BYTES",
	}
	if diff := cmp.Diff(want, acl.Command("add_with_permit").Params()); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
	for _, name := range []string{"get_key", "mod_inc_with_permit"} {
		if acl.Command(name) != nil {
			t.Errorf("unexpected command %s", name)
		}
	}
	if acl.Command("dyn_key_mask_set") == nil || acl.Command("operation_counter_sync") == nil {
		t.Errorf("missing attribute commands in %v", acl.Names())
	}

	pre := r.Node("pre_node")
	if pre == nil || r.Node("$PRE_NODE") != pre {
		t.Fatal("pre_node should be reachable by both names")
	}
	if pre.Command("add") == nil || pre.Command("mod_inc") == nil || pre.Command("add_with_forward") != nil {
		t.Errorf("unexpected commands %v", pre.Names())
	}

	help, err := r.Help("pipe.Ingress.acl")
	if err != nil || !strings.Contains(help, "pipe.Ingress.acl add_with_permit ether_type=...") {
		t.Errorf("unexpected help %q: %v", help, err)
	}
}

func TestRun(t *testing.T) {
	r := registry(t)

	run(t, r, "pipe.Ingress.ipv4_lpm add_with_forward dst_addr=10.0.0.0 dst_addr_p_length=8 port=3")
	out := run(t, r, "pipe.Ingress.ipv4_lpm get dst_addr=10.0.0.0 dst_addr_p_length=8")
	if !strings.Contains(out, "Entry data (action : Ingress.forward)") {
		t.Errorf("unexpected entry:\n%s", out)
	}

	t.Run("tuple", func(t *testing.T) {
		run(t, r, "pipe.Ingress.ipv4_lpm add_with_forward dst_addr=10.2.0.0,16 port=4")
		out := run(t, r, "pipe.Ingress.ipv4_lpm get dst_addr=10.2.0.0 dst_addr_p_length=16")
		if !strings.Contains(out, "Ingress.forward") {
			t.Errorf("unexpected entry:\n%s", out)
		}
		run(t, r, "pipe.Ingress.ipv4_lpm delete dst_addr=10.2.0.0,16")
	})

	t.Run("handles", func(t *testing.T) {
		h := run(t, r, "pipe.Ingress.ipv4_lpm get_handle dst_addr=10.0.0.0 dst_addr_p_length=8")
		out := run(t, r, "pipe.Ingress.ipv4_lpm get handle="+h)
		if !strings.Contains(out, "Ingress.forward") {
			t.Errorf("unexpected entry:\n%s", out)
		}
		out = run(t, r, "pipe.Ingress.ipv4_lpm get_key handle="+h)
		if !strings.HasPrefix(out, "Entry key:\n") || strings.Contains(out, "Entry data") {
			t.Errorf("unexpected key:\n%s", out)
		}
	})

	t.Run("dump", func(t *testing.T) {
		out := run(t, r, "pipe.Ingress.ipv4_lpm dump")
		if !strings.Contains(out, "pipe.Ingress.ipv4_lpm entries for action: Ingress.forward") {
			t.Errorf("unexpected dump:\n%s", out)
		}
		out = run(t, r, "pipe.Ingress.ipv4_lpm dump json=true")
		if !strings.Contains(out, `"table_name":"pipe.Ingress.ipv4_lpm"`) {
			t.Errorf("unexpected dump:\n%s", out)
		}
	})

	t.Run("quoted values", func(t *testing.T) {
		run(t, r, `pre_node add MULTICAST_NODE_ID=1 LABELS="a b"`)
		out := run(t, r, "pre_node get MULTICAST_NODE_ID=1")
		if !strings.Contains(out, "$LABELS") {
			t.Errorf("unexpected entry:\n%s", out)
		}
		if out := run(t, r, "pre_node usage"); out != "1" {
			t.Errorf("unexpected usage %s", out)
		}
		run(t, r, "pre_node delete MULTICAST_NODE_ID=1")
		if out := run(t, r, "pre_node usage"); out != "0" {
			t.Errorf("unexpected usage %s", out)
		}
	})

	t.Run("operation", func(t *testing.T) {
		if out := run(t, r, "pipe.Ingress.ipv4_lpm operation_hit_state_update"); out != "done" {
			t.Errorf("unexpected output %s", out)
		}
	})

	t.Run("string choices", func(t *testing.T) {
		out := run(t, r, "port.port_cfg string_choices")
		if !strings.Contains(out, "$SPEED: BF_SPEED_10G, BF_SPEED_25G, BF_SPEED_100G") {
			t.Errorf("unexpected choices:\n%s", out)
		}
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			line string
			want error
		}{
			{"pipe.Ingress.foo get", ErrUnknownTable},
			{"pipe.Ingress.acl get_key handle=1", ErrUnknownCommand},
			{"pipe.Ingress.acl", ErrUsage},
			{"pipe.Ingress.acl get foo", ErrUsage},
			{"pipe.Ingress.acl get bar=1", ErrUsage},
			{`pipe.Ingress.acl get "MATCH_PRIORITY=1`, ErrUsage},
			{"pre_node mod_inc MULTICAST_NODE_ID=1 mod_flag=foo", ErrUsage},
			{"pre_node get handle=foo", ErrUsage},
		}
		for _, test := range tests {
			if _, err := r.Run(ctx, test.line); errors.Cause(err) != test.want {
				t.Errorf("%s: expected %v, got %v", test.line, test.want, err)
			}
		}
	})
}
