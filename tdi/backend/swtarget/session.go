package swtarget

import (
	"math/big"

	"github.com/tdictl/tdid/tdi/backend"
	"github.com/tdictl/tdid/tdi/defs"
)

// SessionCreate implements backend.Session.
func (t *Target) SessionCreate() (backend.Handle, backend.Status) {
	t.Lock()
	defer t.Unlock()
	return t.alloc(&sessionObj{}), backend.Success
}

// SessionDestroy implements backend.Session. A pending transaction is
// aborted.
func (t *Target) SessionDestroy(sess backend.Handle) backend.Status {
	t.Lock()
	defer t.Unlock()
	s, found := t.objects[sess].(*sessionObj)
	if !found {
		return backend.SessionNotFound
	}
	if s.txn {
		s.rollback()
	}
	return t.release(sess)
}

// SessionCompleteOperations implements backend.Session.
func (t *Target) SessionCompleteOperations(sess backend.Handle) backend.Status {
	t.Lock()
	defer t.Unlock()
	_, sts := t.session(sess)
	return sts
}

func (t *Target) withSession(sess backend.Handle, fn func(*sessionObj) backend.Status) backend.Status {
	t.Lock()
	defer t.Unlock()
	s, found := t.objects[sess].(*sessionObj)
	if !found {
		return backend.SessionNotFound
	}
	return fn(s)
}

// BeginBatch implements backend.Session.
func (t *Target) BeginBatch(sess backend.Handle) backend.Status {
	return t.withSession(sess, func(s *sessionObj) backend.Status {
		if s.batch {
			return backend.InvalidArg
		}
		s.batch = true
		return backend.Success
	})
}

// FlushBatch implements backend.Session.
func (t *Target) FlushBatch(sess backend.Handle) backend.Status {
	return t.withSession(sess, func(s *sessionObj) backend.Status {
		if !s.batch {
			return backend.InvalidArg
		}
		return backend.Success
	})
}

// EndBatch implements backend.Session.
func (t *Target) EndBatch(sess backend.Handle, hwSync bool) backend.Status {
	return t.withSession(sess, func(s *sessionObj) backend.Status {
		if !s.batch {
			return backend.InvalidArg
		}
		s.batch = false
		return backend.Success
	})
}

// BeginTransaction implements backend.Session.
func (t *Target) BeginTransaction(sess backend.Handle, atomic bool) backend.Status {
	return t.withSession(sess, func(s *sessionObj) backend.Status {
		if s.txn {
			return backend.TransactionError
		}
		s.txn = true
		s.atomic = atomic
		s.journal = nil
		return backend.Success
	})
}

// VerifyTransaction implements backend.Session.
func (t *Target) VerifyTransaction(sess backend.Handle) backend.Status {
	return t.withSession(sess, func(s *sessionObj) backend.Status {
		if !s.txn {
			return backend.TransactionError
		}
		return backend.Success
	})
}

// CommitTransaction implements backend.Session.
func (t *Target) CommitTransaction(sess backend.Handle, hwSync bool) backend.Status {
	return t.withSession(sess, func(s *sessionObj) backend.Status {
		if !s.txn {
			return backend.TransactionError
		}
		s.txn = false
		s.journal = nil
		return backend.Success
	})
}

// AbortTransaction implements backend.Session. Every change made since the
// transaction began is reverted.
func (t *Target) AbortTransaction(sess backend.Handle) backend.Status {
	return t.withSession(sess, func(s *sessionObj) backend.Status {
		if !s.txn {
			return backend.TransactionError
		}
		s.rollback()
		return backend.Success
	})
}

func (s *sessionObj) rollback() {
	for i := len(s.journal) - 1; i >= 0; i-- {
		s.journal[i]()
	}
	s.journal = nil
	s.txn = false
}

// PortStatusChange notifies every port table with a registered callback
// that devPort went up or down. It returns the number of callbacks run.
func (t *Target) PortStatusChange(devPort uint32, up bool) int {
	type notification struct {
		cb  backend.PortStatusFunc
		key backend.Handle
	}
	var pending []notification

	t.Lock()
	for _, ti := range t.prog.tables {
		st := t.state[ti.id]
		if st == nil || st.portCb == nil || ti.ttype != defs.PortCfg || len(ti.keys) == 0 {
			continue
		}
		k := newKeyObj(ti.id)
		ki := ti.keys[0]
		k.fields[ki.id] = &keyValue{value: defs.ToBytes(new(big.Int).SetUint64(uint64(devPort)), ki.width)}
		pending = append(pending, notification{cb: st.portCb, key: t.alloc(k)})
	}
	t.Unlock()

	tgt := backend.Target{PipeID: backend.AllPipes}
	for _, n := range pending {
		n.cb(tgt, n.key, up)
		t.KeyDeallocate(n.key)
	}
	return len(pending)
}

// ExpireEntry reports an entry as idle to the callback registered in notify
// mode.
func (t *Target) ExpireEntry(tbl, handle uint32) backend.Status {
	t.Lock()
	st, sts := t.table(tbl)
	if !sts.OK() {
		t.Unlock()
		return sts
	}
	if !st.idle.Enable || st.idle.Mode != int(defs.IdleNotifyMode) || st.idleCb == nil {
		t.Unlock()
		return backend.NotSupported
	}
	e := st.byHandle(handle)
	if e == nil {
		t.Unlock()
		return backend.ObjectNotFound
	}
	cb := st.idleCb
	key := t.alloc(e.key.clone())
	t.Unlock()

	cb(backend.Target{PipeID: backend.AllPipes}, key)
	t.KeyDeallocate(key)
	return backend.Success
}
