package config

import (
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/tdictl/tdid/log/loggers"
)

const testConfig = `{
  "Server": {"Address": "unix:///tmp/tdid.sock", "LogFile": "/var/log/tdid.log"},
  "LogLevel": 0,
  "LogUTC": true,
  "Program": "/etc/tdid/program.json.gz",
  "Device": 1,
  "Ports": {"Enabled": true, "Namespace": "sw0", "Table": "port.port_cfg"},
  "Stats": {"MaxEvents": 50, "MaxStats": 10},
  "Loggers": [{"Name": "remote", "Format": "json", "Protocol": "udp", "Server": "127.0.0.1:514"}]
}`

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := ioutil.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Error writing %s: %s", path, err)
	}
}

func TestParse(t *testing.T) {
	conf, err := Parse([]byte(testConfig))
	if err != nil {
		t.Fatalf("Error parsing configuration: %s", err)
	}
	if conf.LogLevel == nil || *conf.LogLevel != 0 {
		t.Errorf("unexpected log level %v", conf.LogLevel)
	}
	if conf.Server.Address != "unix:///tmp/tdid.sock" || conf.Device != 1 || !conf.Ports.Enabled || conf.Ports.Namespace != "sw0" {
		t.Errorf("unexpected configuration %+v", conf)
	}
	want := []loggers.LoggerConfig{{Name: "remote", Format: "json", Protocol: "udp", Server: "127.0.0.1:514"}}
	if diff := cmp.Diff(want, conf.Loggers); diff != "" {
		t.Errorf("loggers mismatch (-want +got):\n%s", diff)
	}
	if _, err := Parse([]byte("{")); err == nil {
		t.Error("expected a parse error")
	}
}

func TestLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default-config.json")
	l, err := NewLoader(path)
	if err != nil {
		t.Fatalf("Error creating loader: %s", err)
	}
	defer l.StopConfigWatcher()
	if err := l.LoadDiskConfiguration(false); err == nil {
		t.Fatal("expected an error with a missing file")
	}

	write(t, path, testConfig)
	if err := l.LoadDiskConfiguration(false); err != nil {
		t.Fatalf("Error loading configuration: %s", err)
	}
	if l.Current().Program != "/etc/tdid/program.json.gz" {
		t.Errorf("unexpected configuration %+v", l.Current())
	}

	write(t, path, `{"Program": "/tmp/other.json"}`)
	select {
	case reload := <-l.ReloadConfChan:
		if !reload {
			t.Fatal("unexpected stop notification")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("configuration not reloaded")
	}
	if l.Current().Program != "/tmp/other.json" {
		t.Errorf("unexpected configuration %+v", l.Current())
	}
}
