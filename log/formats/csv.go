package formats

import (
	"fmt"
	"strings"

	"github.com/tdictl/tdid/tdi/table"
)

// CSV name of the output format, used in json configs
const CSV = "csv"

// Csv object
type Csv struct {
}

// NewCSV returns a new CSV transformer object.
func NewCSV() *Csv {
	return &Csv{}
}

// Transform takes input arguments and formats them to CSV.
func (c *Csv) Transform(args ...interface{}) (out string) {
	fields := []string{}
	for _, val := range values(args) {
		switch ev := val.(type) {
		case table.Event:
			fields = append(fields,
				ev.Time.Format("2006-01-02 15:04:05"),
				ev.Table,
				ev.Op,
				ev.Action,
				status(ev),
			)
		default:
			fields = append(fields, fmt.Sprint(val))
		}
	}
	return strings.Join(fields, ",")
}
