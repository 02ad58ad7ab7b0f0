package formats

import (
	"strings"
	"testing"
	"time"

	"github.com/tdictl/tdid/tdi/backend"
	"github.com/tdictl/tdid/tdi/table"
)

var ev = table.Event{
	Time:   time.Date(2022, 1, 2, 3, 4, 5, 0, time.UTC),
	Table:  "pipe.Ingress.acl",
	Op:     "add",
	Action: "Ingress.permit",
	Status: backend.Success,
}

func TestTransform(t *testing.T) {
	tests := []struct {
		format string
		want   []string
	}{
		{CSV, []string{"2022-01-02 03:04:05,pipe.Ingress.acl,add,Ingress.permit,OK,extra"}},
		{RFC5424, []string{`[TABLE="pipe.Ingress.acl" OP="add" ACTION="Ingress.permit" STATUS="OK" ARG1="extra"]`}},
		{RFC3164, []string{" myhost mytag[", `]: [TABLE="pipe.Ingress.acl" OP="add"`}},
		{JSON, []string{`"Table":"pipe.Ingress.acl"`, `"Op":"add"`, `"Status":"OK"`, `"Args":["extra"]`}},
	}
	for _, test := range tests {
		t.Run(test.format, func(t *testing.T) {
			out := New(test.format).Transform([]interface{}{ev, "extra"}, "myhost", "mytag")
			for _, want := range test.want {
				if !strings.Contains(out, want) {
					t.Errorf("%q does not contain %q", out, want)
				}
			}
		})
	}

	t.Run("failed operation", func(t *testing.T) {
		failed := ev
		failed.Status = backend.AlreadyExists
		out := NewCSV().Transform([]interface{}{failed})
		if !strings.HasSuffix(out, ","+backend.AlreadyExists.Message()) {
			t.Errorf("unexpected line %q", out)
		}
	})
}
