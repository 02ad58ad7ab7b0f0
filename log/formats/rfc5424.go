package formats

import (
	"fmt"
	"strings"

	"github.com/tdictl/tdid/tdi/table"
)

// RFC5424 name of the output format, used in our json config
const RFC5424 = "rfc5424"

// Rfc5424 object
type Rfc5424 struct {
}

// NewRfc5424 returns a new Rfc5424 object, that transforms a message to
// RFC5424 structured data (sort of).
func NewRfc5424() *Rfc5424 {
	return &Rfc5424{}
}

func event(ev table.Event) string {
	return fmt.Sprint(
		" TABLE=\"", ev.Table, "\"",
		" OP=\"", ev.Op, "\"",
		" ACTION=\"", ev.Action, "\"",
		" STATUS=\"", status(ev), "\"",
	)
}

// Transform takes input arguments and formats them to RFC5424 format.
func (r *Rfc5424) Transform(args ...interface{}) (out string) {
	var b strings.Builder
	for n, val := range values(args) {
		switch v := val.(type) {
		case table.Event:
			b.WriteString(event(v))
		default:
			fmt.Fprint(&b, " ARG", n, "=\"", val, "\"")
		}
	}
	if b.Len() == 0 {
		return "[]"
	}
	return fmt.Sprint("[", b.String()[1:], "]")
}
