package statistics

import (
	"time"

	"github.com/tdictl/tdid/tdi/table"
)

// Event is one table operation kept in the backlog.
type Event struct {
	Time   time.Time
	Table  string
	Op     string
	Action string
	Status string
	OK     bool
}

// NewEvent returns the backlog entry of a table event.
func NewEvent(ev table.Event) *Event {
	e := &Event{
		Time:   ev.Time,
		Table:  ev.Table,
		Op:     ev.Op,
		Action: ev.Action,
		Status: ev.Status.Message(),
		OK:     ev.Status.OK(),
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	return e
}

// Serialize returns the event as plain values.
func (e *Event) Serialize() map[string]interface{} {
	return map[string]interface{}{
		"time":     e.Time.Format("2006-01-02 15:04:05"),
		"unixnano": float64(e.Time.UnixNano()),
		"table":    e.Table,
		"op":       e.Op,
		"action":   e.Action,
		"status":   e.Status,
		"ok":       e.OK,
	}
}
