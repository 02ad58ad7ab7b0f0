// Package commands exposes the operations of the tables of a program as
// named commands taking name=value arguments, the way an operator types
// them.
package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/pkg/errors"
	"github.com/tdictl/tdid/log"
	"github.com/tdictl/tdid/tdi/defs"
	"github.com/tdictl/tdid/tdi/field"
	"github.com/tdictl/tdid/tdi/schema"
	"github.com/tdictl/tdid/tdi/table"
)

var (
	// ErrUnknownTable is returned for a table the program does not have.
	ErrUnknownTable = errors.New("unknown table")
	// ErrUnknownCommand is returned for a command the table does not have.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrUsage is returned for malformed command lines and arguments.
	ErrUsage = errors.New("usage")
)

// Args of a command invocation, by parameter name.
type Args map[string]string

type runFunc func(ctx context.Context, c *Command, args Args) (string, error)

type param struct {
	name string
	// second element of tuple key parameters: mask, prefix length, range
	// end or validity.
	second string
	f      *field.Descriptor
}

// Command is one operation of a table.
type Command struct {
	Name   string
	Action string
	Doc    string

	t       *table.Table
	keys    []param
	data    []param
	options []string
	run     runFunc
}

// Params returns the parameter names of the command, in field order.
func (c *Command) Params() []string {
	var out []string
	if c.t.Schema().CompressInput && (len(c.keys) > 0 || len(c.data) > 0) {
		out = append(out, "key", "data")
	} else {
		for _, p := range c.keys {
			out = append(out, p.name)
			if p.second != "" {
				out = append(out, p.second)
			}
		}
		for _, p := range c.data {
			out = append(out, p.name)
		}
	}
	return append(out, c.options...)
}

// Usage returns the signature of the command.
func (c *Command) Usage() string {
	params := c.Params()
	for i, p := range params {
		params[i] = p + "=..."
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s %s", c.t.Name(), c.Name, strings.Join(params, " ")))
}

func (c *Command) check(args Args) error {
	known := make(map[string]bool)
	for _, p := range c.Params() {
		known[p] = true
	}
	for name := range args {
		if !known[name] {
			return errors.Wrapf(ErrUsage, "%s does not take %s (%s)", c.Name, name, c.Usage())
		}
	}
	return nil
}

// Run invokes the command.
func (c *Command) Run(ctx context.Context, args Args) (string, error) {
	if err := c.check(args); err != nil {
		return "", err
	}
	return c.run(ctx, c, args)
}

// value converts an argument to codec input. Containers take JSON.
func value(f *field.Descriptor, s string) (interface{}, error) {
	if f.DataType != defs.Container {
		return s, nil
	}
	var v interface{}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrapf(err, "%s takes a JSON object or list", f.Name)
	}
	return v, nil
}

func jsonFields(s string) (table.Fields, error) {
	out := table.Fields{}
	if s == "" {
		return out, nil
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, errors.Wrap(err, "expected a JSON object")
	}
	return out, nil
}

func (c *Command) keyFields(args Args) (table.Fields, error) {
	if c.t.Schema().CompressInput {
		return jsonFields(args["key"])
	}
	out := table.Fields{}
	for _, p := range c.keys {
		first, hasFirst := args[p.name]
		second, hasSecond := args[p.second]
		// tuples may also be written value,second
		if p.second != "" && hasFirst && !hasSecond && strings.Contains(first, ",") {
			parts := strings.SplitN(first, ",", 2)
			first, second, hasSecond = parts[0], parts[1], true
		}
		switch {
		case hasFirst && hasSecond:
			out[p.f.Name] = []interface{}{first, second}
		case hasFirst:
			out[p.f.Name] = first
		case hasSecond:
			out[p.f.Name] = []interface{}{nil, second}
		}
	}
	return out, nil
}

func (c *Command) dataFields(args Args) (table.Fields, error) {
	if c.t.Schema().CompressInput {
		return jsonFields(args["data"])
	}
	out := table.Fields{}
	for _, p := range c.data {
		s, found := args[p.name]
		if !found {
			continue
		}
		v, err := value(p.f, s)
		if err != nil {
			return nil, err
		}
		out[p.f.Name] = v
	}
	return out, nil
}

func flag(args Args, name string, def bool) (bool, error) {
	s, found := args[name]
	if !found {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, errors.Wrapf(ErrUsage, "%s must be a boolean", name)
	}
	return b, nil
}

func number(args Args, name string, bits int) (uint64, error) {
	s, found := args[name]
	if !found {
		return 0, errors.Wrapf(ErrUsage, "%s is required", name)
	}
	n, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		return 0, errors.Wrapf(ErrUsage, "%s must be a number", name)
	}
	return n, nil
}

// Node holds the commands of one table.
type Node struct {
	t        *table.Table
	commands map[string]*Command
	order    []string
}

// Table returns the table of the node.
func (n *Node) Table() *table.Table {
	return n.t
}

// Command returns the command with the given name, or nil.
func (n *Node) Command(name string) *Command {
	return n.commands[name]
}

// Commands returns the commands of the table, in creation order.
func (n *Node) Commands() []*Command {
	out := make([]*Command, 0, len(n.order))
	for _, name := range n.order {
		out = append(out, n.commands[name])
	}
	return out
}

// Names returns the sorted command names.
func (n *Node) Names() []string {
	names := append([]string{}, n.order...)
	sort.Strings(names)
	return names
}

func (n *Node) add(c *Command) {
	c.t = n.t
	if _, found := n.commands[c.Name]; !found {
		n.order = append(n.order, c.Name)
	}
	n.commands[c.Name] = c
}

// Registry holds the commands of every table of a program.
type Registry struct {
	prog  *table.Program
	nodes map[string]*Node
}

// New builds the commands of every table of prog.
func New(prog *table.Program) *Registry {
	r := &Registry{prog: prog, nodes: make(map[string]*Node)}
	for _, t := range prog.Tables() {
		n := build(t)
		r.nodes[t.Name()] = n
		if drv := t.Schema().DriverName; drv != t.Name() {
			r.nodes[drv] = n
		}
		log.Debug("%s: %d commands", t.Name(), len(n.order))
	}
	return r
}

// Tables returns the names of the tables, sorted.
func (r *Registry) Tables() []string {
	return r.prog.Names()
}

// Node returns the commands of the named table, or nil.
func (r *Registry) Node(name string) *Node {
	return r.nodes[name]
}

// Invoke runs a command of a table.
func (r *Registry) Invoke(ctx context.Context, tableName, command string, args Args) (string, error) {
	n := r.nodes[tableName]
	if n == nil {
		return "", errors.Wrap(ErrUnknownTable, tableName)
	}
	c := n.Command(command)
	if c == nil {
		return "", errors.Wrapf(ErrUnknownCommand, "%s on %s", command, tableName)
	}
	return c.Run(ctx, args)
}

// Parse splits a command line, "<table> <command> [name=value ...]".
func Parse(line string) (tableName, command string, args Args, err error) {
	words, err := shellwords.Parse(line)
	if err != nil {
		return "", "", nil, errors.Wrapf(ErrUsage, "%s", err)
	}
	if len(words) < 2 {
		return "", "", nil, errors.Wrap(ErrUsage, "<table> <command> [name=value ...]")
	}
	args = Args{}
	for _, w := range words[2:] {
		parts := strings.SplitN(w, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return "", "", nil, errors.Wrapf(ErrUsage, "argument %q is not name=value", w)
		}
		args[parts[0]] = parts[1]
	}
	return words[0], words[1], args, nil
}

// Run parses and runs a command line.
func (r *Registry) Run(ctx context.Context, line string) (string, error) {
	tableName, command, args, err := Parse(line)
	if err != nil {
		return "", err
	}
	return r.Invoke(ctx, tableName, command, args)
}

// Help lists the commands of a table, or the tables when name is empty.
func (r *Registry) Help(name string) (string, error) {
	var b bytes.Buffer
	if name == "" {
		for _, t := range r.Tables() {
			fmt.Fprintln(&b, t)
		}
		return b.String(), nil
	}
	n := r.nodes[name]
	if n == nil {
		return "", errors.Wrap(ErrUnknownTable, name)
	}
	for _, c := range n.Names() {
		cmd := n.commands[c]
		fmt.Fprintf(&b, "%-40s %s\n", cmd.Usage(), cmd.Doc)
	}
	return b.String(), nil
}

func actionSuffix(action string) string {
	return strings.ReplaceAll(action[strings.LastIndex(action, ".")+1:], "$", "")
}

func keyParams(fields []*field.Descriptor, names map[string]string) []param {
	out := make([]param, 0, len(fields))
	for _, f := range schema.SortedByID(fields) {
		p := param{name: names[f.Name], f: f}
		switch f.MatchType {
		case defs.Ternary:
			p.second = p.name + "_mask"
		case defs.Range:
			p.name, p.second = p.name+"_start", p.name+"_end"
		case defs.LPM:
			p.second = p.name + "_p_length"
		case defs.Optional:
			p.second = p.name + "_is_valid"
		}
		out = append(out, p)
	}
	return out
}

func dataParams(fields []*field.Descriptor, names map[string]string) []param {
	out := make([]param, 0, len(fields))
	for _, f := range schema.SortedByID(fields) {
		out = append(out, param{name: names[f.Name], f: f})
	}
	return out
}

func fieldNames(fields []*field.Descriptor) []string {
	names := make([]string, 0, len(fields))
	for _, f := range schema.SortedByID(fields) {
		names = append(names, f.Name)
	}
	return names
}

// params returns the key and data parameters of a command on the given
// data fields.
func params(sch *schema.Table, data []*field.Descriptor) ([]param, []param) {
	keyNames, dataNames := ParamNames(fieldNames(sch.KeyFields), fieldNames(data))
	return keyParams(sch.KeyFields, keyNames), dataParams(data, dataNames)
}
