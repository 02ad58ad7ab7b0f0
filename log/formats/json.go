package formats

import (
	"encoding/json"
	"fmt"

	"github.com/tdictl/tdid/tdi/table"
)

// JSON name of the output format, used in our json config
const JSON = "json"

// JSONEventFormat object to be sent to the remote service.
type JSONEventFormat struct {
	Time   string   `json:"Time"`
	Table  string   `json:"Table"`
	Op     string   `json:"Op"`
	Action string   `json:"Action,omitempty"`
	Status string   `json:"Status"`
	Args   []string `json:"Args,omitempty"`
}

// NewJSON returns a new Json format, to send events as json.
func NewJSON() *JSONEventFormat {
	return &JSONEventFormat{}
}

// Transform takes input arguments and formats them to JSON format.
func (j *JSONEventFormat) Transform(args ...interface{}) (out string) {
	if len(args) == 0 {
		return
	}
	jObj := &JSONEventFormat{}
	for _, val := range values(args[:1]) {
		switch v := val.(type) {
		case table.Event:
			jObj.Time = v.Time.Format("2006-01-02 15:04:05")
			jObj.Table = v.Table
			jObj.Op = v.Op
			jObj.Action = v.Action
			jObj.Status = status(v)
		default:
			jObj.Args = append(jObj.Args, fmt.Sprint(val))
		}
	}

	raw, err := json.Marshal(jObj)
	if err != nil {
		return
	}
	return fmt.Sprint(string(raw), "\n\n")
}
