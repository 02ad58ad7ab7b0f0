package swtarget

import (
	"github.com/tdictl/tdid/tdi/backend"
)

type entry struct {
	handle uint32
	key    *keyObj
	data   *dataObj
}

// tableState keeps the entries of a table in insertion order, which is the
// order get_first/get_next_n walk them.
type tableState struct {
	info        *tableInfo
	entries     []*entry
	nextHandle  uint32
	defaultData *dataObj

	idle      backend.IdleTableState
	idleCb    backend.IdleTimeoutFunc
	symmetric bool
	portCb    backend.PortStatusFunc
	pollIntv  uint32
	selectCb  backend.SelectorUpdateFunc
	meterAdj  int32
	keyMask   map[uint32][]byte
}

func newTableState(ti *tableInfo) *tableState {
	return &tableState{
		info:     ti,
		keyMask:  make(map[uint32][]byte),
		pollIntv: 200,
	}
}

func (st *tableState) find(canon string) (int, *entry) {
	for i, e := range st.entries {
		if e.key.canonical(st.info) == canon {
			return i, e
		}
	}
	return -1, nil
}

func (st *tableState) byHandle(handle uint32) *entry {
	for _, e := range st.entries {
		if e.handle == handle {
			return e
		}
	}
	return nil
}

func (st *tableState) insert(at int, e *entry) {
	st.entries = append(st.entries, nil)
	copy(st.entries[at+1:], st.entries[at:])
	st.entries[at] = e
}

func (st *tableState) remove(at int) *entry {
	e := st.entries[at]
	st.entries = append(st.entries[:at], st.entries[at+1:]...)
	return e
}

func (st *tableState) removeKey(canon string) {
	if i, _ := st.find(canon); i >= 0 {
		st.remove(i)
	}
}

type sessionObj struct {
	batch   bool
	txn     bool
	atomic  bool
	journal []func()
}

// session resolves a session handle. NilHandle is accepted and means no
// session at all.
func (t *Target) session(sess backend.Handle) (*sessionObj, backend.Status) {
	if sess == backend.NilHandle {
		return nil, backend.Success
	}
	s, found := t.objects[sess].(*sessionObj)
	if !found {
		return nil, backend.SessionNotFound
	}
	return s, backend.Success
}

// journal records how to revert a change made inside a transaction.
func (s *sessionObj) record(undo func()) {
	if s != nil && s.txn {
		s.journal = append(s.journal, undo)
	}
}
