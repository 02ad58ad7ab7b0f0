package table

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/tdictl/tdid/tdi/backend"
)

// Session groups table operations into batches and transactions.
type Session struct {
	be  backend.Session
	hdl backend.Handle
}

// NewSession opens a backend session.
func NewSession(be backend.Session) (*Session, error) {
	hdl, sts := be.SessionCreate()
	if !sts.OK() {
		return nil, &BackendError{Table: "-", Op: "session create", Status: sts, Msg: sts.Message()}
	}
	return &Session{be: be, hdl: hdl}, nil
}

// Handle returns the backend handle of the session.
func (s *Session) Handle() backend.Handle {
	return s.hdl
}

// Complete waits for the operations of the session to be done.
func (s *Session) Complete() error {
	return s.status("complete operations", s.be.SessionCompleteOperations(s.hdl))
}

// Close destroys the session.
func (s *Session) Close() error {
	return s.status("session destroy", s.be.SessionDestroy(s.hdl))
}

func (s *Session) status(op string, sts backend.Status) error {
	if sts.OK() {
		return nil
	}
	return &BackendError{Table: fmt.Sprintf("session %d", s.hdl), Op: op, Status: sts, Msg: sts.Message()}
}

// Batch runs fn inside a batch of the session. The batch is ended even
// when fn fails.
func Batch(ctx context.Context, s *Session, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.status("begin batch", s.be.BeginBatch(s.hdl)); err != nil {
		return err
	}
	ferr := fn(ctx)
	if err := s.status("end batch", s.be.EndBatch(s.hdl, true)); err != nil && ferr == nil {
		return err
	}
	return ferr
}

// Transaction runs fn inside a transaction of the session, committed when
// fn succeeds and aborted otherwise.
func Transaction(ctx context.Context, s *Session, atomic bool, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.status("begin transaction", s.be.BeginTransaction(s.hdl, atomic)); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		if aerr := s.status("abort transaction", s.be.AbortTransaction(s.hdl)); aerr != nil {
			return errors.Wrapf(err, "abort failed (%s)", aerr)
		}
		return err
	}
	if err := s.status("verify transaction", s.be.VerifyTransaction(s.hdl)); err != nil {
		s.be.AbortTransaction(s.hdl)
		return err
	}
	return s.status("commit transaction", s.be.CommitTransaction(s.hdl, true))
}
