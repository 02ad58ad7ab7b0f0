// Package table reads and writes the entries of the tables of a program.
//
// Every operation parses user input with the codec, fills backend objects
// with it, calls the backend and releases every object it allocated, on
// every path.
package table

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tdictl/tdid/log"
	"github.com/tdictl/tdid/tdi/backend"
	"github.com/tdictl/tdid/tdi/defs"
	"github.com/tdictl/tdid/tdi/schema"
)

// Event describes one operation done on a table.
type Event struct {
	Time   time.Time
	Table  string
	Op     string
	Action string
	Status backend.Status
}

// Observer receives an Event for every entry operation. It is called
// synchronously and must not block.
type Observer interface {
	OnTableEvent(ev Event)
}

// Table gives access to the entries of one table.
type Table struct {
	schema *schema.Table
	be     backend.Backend
	sess   *Session
	target backend.Target
	log    log.Tagged

	subs *Subscriptions

	obsLock  sync.RWMutex
	observer Observer
}

// New returns the repository of one table. sess can be nil, operations are
// then done outside of any session.
func New(be backend.Backend, sch *schema.Table, sess *Session) *Table {
	return &Table{
		schema: sch,
		be:     be,
		sess:   sess,
		target: backend.Target{PipeID: backend.AllPipes},
		log:    log.NewTagged("tdi.table", sch.Name),
		subs:   NewSubscriptions(),
	}
}

// Name of the table.
func (t *Table) Name() string {
	return t.schema.Name
}

// Schema returns the description of the table.
func (t *Table) Schema() *schema.Table {
	return t.schema
}

// Subscriptions returns the callbacks registered on the table.
func (t *Table) Subscriptions() *Subscriptions {
	return t.subs
}

// SetTarget selects the device and pipes the next operations apply to.
func (t *Table) SetTarget(tgt backend.Target) {
	t.target = tgt
}

// Target returns the device and pipes operations apply to.
func (t *Table) Target() backend.Target {
	return t.target
}

// SetObserver registers the observer of the table operations.
func (t *Table) SetObserver(o Observer) {
	t.obsLock.Lock()
	defer t.obsLock.Unlock()
	t.observer = o
}

// Info returns the readable description of the table.
func (t *Table) Info() []string {
	return t.schema.Info()
}

func (t *Table) session() backend.Handle {
	if t.sess == nil {
		return backend.NilHandle
	}
	return t.sess.Handle()
}

func (t *Table) notify(op, action string, sts backend.Status) {
	t.obsLock.RLock()
	o := t.observer
	t.obsLock.RUnlock()
	if o == nil {
		return
	}
	o.OnTableEvent(Event{
		Time:   time.Now(),
		Table:  t.Name(),
		Op:     op,
		Action: action,
		Status: sts,
	})
}

// check fails when the context is done or the command is not supported.
func (t *Table) check(ctx context.Context, cmd string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !t.schema.Supports(cmd) {
		return t.notSupported(cmd)
	}
	return nil
}

func (t *Table) flags(value defs.Flags) (backend.Handle, error) {
	flags, sts := t.be.FlagsCreate(uint64(value))
	if !sts.OK() {
		return backend.NilHandle, t.fail("flags create", sts)
	}
	return flags, nil
}

func (t *Table) releaseFlags(flags backend.Handle) {
	if sts := t.be.FlagsDelete(flags); !sts.OK() {
		t.log.Error("flags delete failed. [%s]", t.be.ErrString(sts))
	}
}

func readFlags(fromHW bool) defs.Flags {
	if fromHW {
		return defs.FlagFromHW
	}
	return 0
}

// Program holds the tables of a program, built from the backend metadata.
type Program struct {
	be      backend.Backend
	sess    *Session
	tables  []*Table
	byName  map[string]*Table
	schemas []*schema.Table
}

// Open builds every table of the backend and opens a session shared by
// all of them.
func Open(be backend.Backend) (*Program, error) {
	schemas, err := schema.BuildAll(be)
	if err != nil {
		return nil, errors.Wrap(err, "building tables")
	}
	sess, err := NewSession(be)
	if err != nil {
		return nil, err
	}
	p := &Program{
		be:      be,
		sess:    sess,
		byName:  make(map[string]*Table),
		schemas: schemas,
	}
	for _, sch := range schemas {
		t := New(be, sch, sess)
		p.tables = append(p.tables, t)
		p.byName[sch.Name] = t
	}
	return p, nil
}

// Backend returns the backend the program was built from.
func (p *Program) Backend() backend.Backend {
	return p.be
}

// Session returns the session every table operation is done in.
func (p *Program) Session() *Session {
	return p.sess
}

// Tables returns every table, in backend order.
func (p *Program) Tables() []*Table {
	return append([]*Table{}, p.tables...)
}

// Names returns the sorted table names.
func (p *Program) Names() []string {
	names := make([]string, 0, len(p.byName))
	for name := range p.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Table returns the table with the given name, or nil.
func (p *Program) Table(name string) *Table {
	return p.byName[name]
}

// SetObserver registers o on every table.
func (p *Program) SetObserver(o Observer) {
	for _, t := range p.tables {
		t.SetObserver(o)
	}
}

// Close destroys the session of the program.
func (p *Program) Close() error {
	return p.sess.Close()
}
