package formats

import (
	"log/syslog"
	"os"
	"strconv"

	"github.com/tdictl/tdid/tdi/table"
)

// LoggerFormat is the common interface that every format must meet.
// Transform expects an arbitrary number of arguments and types, and
// it must transform them to a string.
// Arguments can be of type table.Event, string, int, etc.
type LoggerFormat interface {
	Transform(...interface{}) string
}

var (
	ourPid      = ""
	syslogLevel = ""
)

func init() {
	ourPid = strconv.FormatUint(uint64(os.Getpid()), 10)
	syslogLevel = strconv.FormatUint(uint64(syslog.LOG_NOTICE|syslog.LOG_DAEMON), 10)
}

// New returns the format with the given name, RFC5424 by default.
func New(name string) LoggerFormat {
	switch name {
	case RFC3164:
		return NewRfc3164()
	case JSON:
		return NewJSON()
	case CSV:
		return NewCSV()
	}
	return NewRfc5424()
}

// values returns the arguments a logger received, flattened.
func values(args []interface{}) []interface{} {
	if len(args) == 0 {
		return nil
	}
	if list, ok := args[0].([]interface{}); ok {
		return list
	}
	return args
}

func status(ev table.Event) string {
	if ev.Status.OK() {
		return "OK"
	}
	return ev.Status.Message()
}
