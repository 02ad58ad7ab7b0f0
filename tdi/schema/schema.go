// Package schema builds the description of a table from the backend
// metadata: its key fields, actions and data fields, and the commands the
// table supports.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tdictl/tdid/log"
	"github.com/tdictl/tdid/tdi/backend"
	"github.com/tdictl/tdid/tdi/defs"
	"github.com/tdictl/tdid/tdi/field"
)

// Commands every table accepts.
var baseCommands = []string{"info", "add_from_json", "entry", "string_choices"}

// MaxInputs is the number of arguments over which table commands take the
// entry as a single mapping instead of one argument per field.
const MaxInputs = 255 - 10

// AnnotationDefaultOnly marks actions that can only be the default action.
const AnnotationDefaultOnly = "@defaultonly"

// Action of a table, with its own data fields.
type Action struct {
	ID          uint32
	Name        string
	Annotations []backend.Annotation
	DataFields  []*field.Descriptor

	readables []string
}

// DefaultOnly reports whether the action can only be the default action.
func (a *Action) DefaultOnly() bool {
	for _, ann := range a.Annotations {
		if ann.Name == AnnotationDefaultOnly {
			return true
		}
	}
	return false
}

// DataField returns the data field of the action with the given name.
func (a *Action) DataField(name string) *field.Descriptor {
	return byName(a.DataFields, name)
}

// Table is the immutable description of a table.
type Table struct {
	ID uint32
	// Name is the one tables are addressed by. DriverName is the one the
	// backend reported; they differ for fixed function tables.
	Name       string
	DriverName string
	Type       defs.TableType

	KeyFields  []*field.Descriptor
	Actions    []*Action
	DataFields []*field.Descriptor

	HasConstDefaultAction bool
	CompressInput         bool

	commands map[string]bool
	ordered  []string

	keyReadables  []string
	dataReadables []string
}

// Ready reports whether the table type is known.
func (t *Table) Ready() bool {
	return t.Type.String() != "TODO"
}

// Supports reports whether the command is available on the table.
func (t *Table) Supports(cmd string) bool {
	return t.commands[cmd]
}

// SupportsAPI reports whether the backend supports the API on the table.
func (t *Table) SupportsAPI(api defs.API) bool {
	return t.commands[api.Command()]
}

// Commands returns the supported commands, in discovery order.
func (t *Table) Commands() []string {
	return append([]string{}, t.ordered...)
}

// KeyField returns the key field with the given name, or nil.
func (t *Table) KeyField(name string) *field.Descriptor {
	return byName(t.KeyFields, name)
}

// Action returns the action with the given name, or nil.
func (t *Table) Action(name string) *Action {
	for _, a := range t.Actions {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// ActionByID returns the action with the given id, or nil.
func (t *Table) ActionByID(id uint32) *Action {
	for _, a := range t.Actions {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// Data returns the data fields entries carry with the given action: the
// action's own fields, or the table's fields when it has no actions.
func (t *Table) Data(action string) ([]*field.Descriptor, error) {
	if len(t.Actions) == 0 {
		if action != "" {
			return nil, fmt.Errorf("table %s has no actions, got %s", t.Name, action)
		}
		return t.DataFields, nil
	}
	if action == "" {
		return nil, fmt.Errorf("table %s requires an action", t.Name)
	}
	a := t.Action(action)
	if a == nil {
		return nil, fmt.Errorf("action %s not found in table %s", action, t.Name)
	}
	return a.DataFields, nil
}

// Info returns the readable description of the key, the data fields and the
// actions of the table.
func (t *Table) Info() []string {
	lines := []string{fmt.Sprintf("Table Name: %s", t.Name), fmt.Sprintf("Table Type: %s", t.Type)}
	lines = append(lines, "Key Fields:")
	lines = append(lines, indent(t.keyReadables)...)
	if len(t.Actions) == 0 {
		lines = append(lines, "Data Fields:")
		lines = append(lines, indent(t.dataReadables)...)
	} else {
		lines = append(lines, "Actions:")
		for _, a := range t.Actions {
			if a.DefaultOnly() {
				lines = append(lines, fmt.Sprintf("      %s (DefaultOnly)", a.Name))
			} else {
				lines = append(lines, fmt.Sprintf("      %s", a.Name))
			}
			lines = append(lines, indent(indent(a.readables))...)
		}
	}
	lines = append(lines, "Supported Operations:")
	lines = append(lines, indent(t.ordered)...)
	return lines
}

func indent(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = "    " + l
	}
	return out
}

func byName(fields []*field.Descriptor, name string) *field.Descriptor {
	for _, f := range fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// SortedByID returns the fields ordered by ascending id.
func SortedByID(fields []*field.Descriptor) []*field.Descriptor {
	out := append([]*field.Descriptor{}, fields...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// tables whose name is normalized, and how.
var portTables = map[string]bool{
	"PORT_CFG":                  true,
	"PORT_STAT":                 true,
	"PORT_HDL_INFO":             true,
	"PORT_FRONT_PANEL_IDX_INFO": true,
	"PORT_STR_INFO":             true,
}

var lowerTables = map[string]bool{
	"PRE_MGID":          true,
	"PRE_NODE":          true,
	"PRE_ECMP":          true,
	"PRE_LAG":           true,
	"PRE_PRUNE":         true,
	"PRE_PORT":          true,
	"MIRROR_CFG":        true,
	"TM_PORT_GROUP_CFG": true,
	"TM_PORT_GROUP":     true,
	"SNAPSHOT_LIVENESS": true,
}

// NormalizeName returns the name a table is addressed by.
func NormalizeName(name string, typ defs.TableType) string {
	lower := strings.ReplaceAll(strings.ToLower(name), "$", "")
	switch {
	case portTables[typ.String()]:
		return "port." + lower
	case lowerTables[typ.String()]:
		return lower
	}
	return name
}

// isIPv4 guesses whether an integer field holds an IPv4 address.
func isIPv4(name string, width int) bool {
	lower := strings.ToLower(name)
	return width == 32 && strings.Contains(lower, "ipv4") && strings.HasSuffix(lower, "addr")
}

func readable(depth int, name, typ string, size int) string {
	return strings.Repeat("\t", depth) + strings.TrimSpace(fmt.Sprintf("%-30s type=%-10s size=%-2d", name, typ, size))
}

func logger(name string) log.Tagged {
	return log.NewTagged("tdi.schema", name)
}
