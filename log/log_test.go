package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	WithColors = false
	defer func() {
		Close()
		WithColors = true
		SetLogLevel(INFO)
	}()

	SetLogLevel(WARNING)
	Info("not printed")
	if buf.Len() != 0 {
		t.Error("info message printed with level WARNING:", buf.String())
	}

	Warning("printed %d", 1)
	if !strings.Contains(buf.String(), " WAR  printed 1\n") {
		t.Error("warning message not printed:", buf.String())
	}

	t.Run("Tagged", func(t *testing.T) {
		buf.Reset()
		NewTagged("table", "pipe.fwd").Error("boom")
		if !strings.Contains(buf.String(), "[table:pipe.fwd] boom") {
			t.Error("tagged message error:", buf.String())
		}
		buf.Reset()
		NewTagged("codec", "").Warning("x")
		if !strings.Contains(buf.String(), "[codec] x") {
			t.Error("tagged message without name error:", buf.String())
		}
	})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]int{
		"debug":   DEBUG,
		"WARNING": WARNING,
		" error ": ERROR,
		"unknown": INFO,
		"":        INFO,
	}
	for name, want := range tests {
		if got := ParseLevel(name); got != want {
			t.Errorf("ParseLevel(%q) = %d, want %d", name, got, want)
		}
	}
}
