package formats

import (
	"fmt"
	"strings"
	"time"

	"github.com/tdictl/tdid/tdi/table"
)

// RFC3164 name of the output format, used in our json config
const RFC3164 = "rfc3164"

// Rfc3164 object
type Rfc3164 struct {
}

// NewRfc3164 returns a new Rfc3164 object, that transforms a message to
// RFC3164 format.
func NewRfc3164() *Rfc3164 {
	return &Rfc3164{}
}

// Transform takes input arguments and formats them to RFC3164 format.
// The last two arguments, when given, are the hostname and the tag.
func (r *Rfc3164) Transform(args ...interface{}) (out string) {
	if len(args) == 0 {
		return
	}
	hostname := ""
	tag := ""
	if len(args) > 2 {
		hostname, _ = args[1].(string)
		tag, _ = args[2].(string)
	}
	var b strings.Builder
	for n, val := range values(args[:1]) {
		switch v := val.(type) {
		case table.Event:
			b.WriteString(event(v))
		default:
			fmt.Fprint(&b, " ARG", n, "=\"", val, "\"")
		}
	}
	body := b.String()
	if body != "" {
		body = body[1:]
	}
	return fmt.Sprintf("<%s>%s %s %s[%s]: [%s]\n",
		syslogLevel,
		time.Now().Format(time.RFC3339),
		hostname,
		tag,
		ourPid,
		body)
}
