// Package swtarget is a software implementation of the backend contract.
//
// It loads a program description (the TDI JSON file produced by the
// compiler) and keeps every table in memory. It is used by the daemon when
// no device is available and by the tests of the tdi packages.
package swtarget

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/tdictl/tdid/core"
	"github.com/tdictl/tdid/log"
	"github.com/tdictl/tdid/tdi/backend"
)

var tlog = log.NewTagged("swtarget", "")

var _ backend.Backend = (*Target)(nil)

// Target holds the program, the tables' state and every allocated object.
type Target struct {
	sync.Mutex

	path    string
	prog    *program
	state   map[uint32]*tableState
	objects map[backend.Handle]interface{}
	next    backend.Handle

	watcher  *fsnotify.Watcher
	reloaded chan struct{}
}

// Load parses a program description already in memory.
func Load(raw []byte) (*Target, error) {
	prog, err := parseProgram(raw)
	if err != nil {
		return nil, err
	}
	t := &Target{
		objects:  make(map[backend.Handle]interface{}),
		reloaded: make(chan struct{}, 1),
	}
	t.setProgram(prog)
	return t, nil
}

// Open reads a program description from disk (optionally gzipped).
func Open(path string) (*Target, error) {
	raw, err := core.ReadProgram(path)
	if err != nil {
		return nil, err
	}
	t, err := Load(raw)
	if err != nil {
		return nil, err
	}
	t.path = path
	return t, nil
}

// setProgram replaces the program, keeping the state of the tables that
// still exist with the same name.
func (t *Target) setProgram(prog *program) {
	state := make(map[uint32]*tableState, len(prog.tables))
	for _, ti := range prog.tables {
		if old, found := t.state[ti.id]; found && old.info.name == ti.name {
			old.info = ti
			state[ti.id] = old
			continue
		}
		state[ti.id] = newTableState(ti)
	}
	t.prog = prog
	t.state = state
}

// TableNames returns the names of the loaded tables, in program order.
func (t *Target) TableNames() []string {
	t.Lock()
	defer t.Unlock()
	names := make([]string, 0, len(t.prog.tables))
	for _, ti := range t.prog.tables {
		names = append(names, ti.name)
	}
	return names
}

// ErrString implements backend.Backend.
func (t *Target) ErrString(sts backend.Status) string {
	return sts.Message()
}

// alloc stores an object and returns its new handle. Must be called with
// the lock held.
func (t *Target) alloc(obj interface{}) backend.Handle {
	t.next++
	t.objects[t.next] = obj
	return t.next
}

func (t *Target) release(h backend.Handle) backend.Status {
	if _, found := t.objects[h]; !found {
		return backend.InvalidArg
	}
	delete(t.objects, h)
	return backend.Success
}

// Objects returns how many handles are currently allocated.
func (t *Target) Objects() int {
	t.Lock()
	defer t.Unlock()
	return len(t.objects)
}

func (t *Target) table(tbl uint32) (*tableState, backend.Status) {
	st, found := t.state[tbl]
	if !found {
		return nil, backend.TableNotFound
	}
	return st, backend.Success
}
