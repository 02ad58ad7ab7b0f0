package api

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/tdictl/tdid/internal/testutil"
	"github.com/tdictl/tdid/log/loggers"
	"github.com/tdictl/tdid/statistics"
	"github.com/tdictl/tdid/tdi/backend/swtarget"
	"github.com/tdictl/tdid/tdi/commands"
	"github.com/tdictl/tdid/tdi/table"
	"golang.org/x/net/context"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func serve(t *testing.T) (*Server, *Client) {
	t.Helper()
	target, err := swtarget.Load([]byte(testutil.Program))
	if err != nil {
		t.Fatalf("Error loading program: %s", err)
	}
	prog, err := table.Open(target)
	if err != nil {
		t.Fatalf("Error opening program: %s", err)
	}
	stats := statistics.New(loggers.NewLoggerManager(), statistics.StatsConfig{MaxEvents: 10, MaxStats: 10, Workers: 1})
	prog.SetObserver(stats)

	srv := NewServer(prog, commands.New(prog), stats)
	address := "unix://" + filepath.Join(t.TempDir(), "tdid.sock")
	if err := srv.Serve(address); err != nil {
		t.Fatalf("Error serving: %s", err)
	}
	c, err := Dial(address)
	if err != nil {
		t.Fatalf("Error dialing: %s", err)
	}
	t.Cleanup(func() {
		c.Close()
		srv.Stop()
		stats.Stop()
		prog.Close()
	})
	return srv, c
}

func code(err error) codes.Code {
	s, _ := status.FromError(err)
	return s.Code()
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		address, network, addr string
	}{
		{"unix:///run/tdid.sock", "unix", "/run/tdid.sock"},
		{"unix:/run/tdid.sock", "unix", "/run/tdid.sock"},
		{"127.0.0.1:50051", "tcp", "127.0.0.1:50051"},
	}
	for _, test := range tests {
		network, addr := ParseAddress(test.address)
		if network != test.network || addr != test.addr {
			t.Errorf("%s: got %s %s", test.address, network, addr)
		}
	}
}

func TestManager(t *testing.T) {
	srv, c := serve(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	t.Run("tables", func(t *testing.T) {
		tables, err := c.Tables(ctx)
		if err != nil {
			t.Fatalf("Error listing tables: %s", err)
		}
		want := []string{"pipe.Ingress.acl", "pipe.Ingress.ipv4_lpm", "pipe.Ingress.reg", "pipe.Ingress.sel", "port.port_cfg", "pre_node"}
		if diff := cmp.Diff(want, tables); diff != "" {
			t.Errorf("tables mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("info", func(t *testing.T) {
		info, cmds, err := c.Info(ctx, "pipe.Ingress.ipv4_lpm")
		if err != nil {
			t.Fatalf("Error getting info: %s", err)
		}
		if len(info) == 0 {
			t.Error("empty table description")
		}
		found := false
		for _, name := range cmds {
			found = found || name == "add_with_forward"
		}
		if !found {
			t.Errorf("add_with_forward not in %v", cmds)
		}
		if _, _, err := c.Info(ctx, "pipe.Ingress.foo"); code(err) != codes.NotFound {
			t.Errorf("expected NotFound, got %v", err)
		}
	})

	t.Run("entries", func(t *testing.T) {
		key := map[string]interface{}{"hdr.ipv4.dst_addr": []interface{}{"10.1.0.0", 16}}
		if err := c.Add(ctx, "pipe.Ingress.ipv4_lpm", key, map[string]interface{}{"port": 3}, "Ingress.forward"); err != nil {
			t.Fatalf("Error adding entry: %s", err)
		}
		err := c.Add(ctx, "pipe.Ingress.ipv4_lpm", key, map[string]interface{}{"port": 3}, "Ingress.forward")
		if code(err) != codes.AlreadyExists {
			t.Errorf("expected AlreadyExists, got %v", err)
		}

		entry, text, err := c.Get(ctx, "pipe.Ingress.ipv4_lpm", key, false)
		if err != nil {
			t.Fatalf("Error getting entry: %s", err)
		}
		if entry["action"] != "Ingress.forward" || !strings.Contains(text, "Ingress.forward") {
			t.Errorf("unexpected entry %v\n%s", entry, text)
		}
		data, _ := entry["data"].(map[string]interface{})
		if data["port"] != float64(3) {
			t.Errorf("unexpected data %v", entry["data"])
		}

		entries, err := c.Dump(ctx, "pipe.Ingress.ipv4_lpm", false)
		if err != nil {
			t.Fatalf("Error dumping: %s", err)
		}
		if len(entries) != 1 || entries[0]["table_name"] != "pipe.Ingress.ipv4_lpm" {
			t.Errorf("unexpected dump %v", entries)
		}

		if err := c.Delete(ctx, "pipe.Ingress.ipv4_lpm", key); err != nil {
			t.Fatalf("Error deleting entry: %s", err)
		}
		if _, _, err := c.Get(ctx, "pipe.Ingress.ipv4_lpm", key, false); code(err) != codes.NotFound {
			t.Errorf("expected NotFound, got %v", err)
		}
		entries, err = c.Dump(ctx, "pipe.Ingress.ipv4_lpm", false)
		if err != nil || len(entries) != 0 {
			t.Errorf("expected an empty dump, got %v %v", entries, err)
		}
	})

	t.Run("exec", func(t *testing.T) {
		out, err := c.Exec(ctx, "pre_node usage")
		if err != nil || out != "0" {
			t.Errorf("unexpected output %q: %v", out, err)
		}
		tests := []struct {
			line string
			want codes.Code
		}{
			{"pipe.Ingress.foo get", codes.NotFound},
			{"pipe.Ingress.acl get_key handle=1", codes.Unimplemented},
			{"pipe.Ingress.acl get bar=1", codes.InvalidArgument},
		}
		for _, test := range tests {
			if _, err := c.Exec(ctx, test.line); code(err) != test.want {
				t.Errorf("%s: expected %s, got %v", test.line, test.want, err)
			}
		}
	})

	t.Run("stats", func(t *testing.T) {
		stats, err := c.Stats(ctx)
		if err != nil {
			t.Fatalf("Error getting stats: %s", err)
		}
		if stats["session"] != srv.Session() {
			t.Errorf("unexpected session %v", stats["session"])
		}
		if _, found := stats["by_table"]; !found {
			t.Errorf("missing counters in %v", stats)
		}
	})
}
