package table

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/tdictl/tdid/tdi/backend"
)

var (
	// ErrNotFound is returned by quiet reads of a missing entry, and
	// when a table has no entries.
	ErrNotFound = errors.New("entry not found")
	// ErrNotSupported is returned for commands the table does not support.
	ErrNotSupported = errors.New("not supported by the table")
	// ErrAlreadyPending is returned when a callback of the same class is
	// still registered.
	ErrAlreadyPending = errors.New("a callback of this class is already pending")
)

// BackendError reports a failed backend call.
type BackendError struct {
	Table  string
	Op     string
	Status backend.Status
	Msg    string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("Error: %s failed on table %s. [%s]", e.Op, e.Table, e.Msg)
}

// StatusOf returns the backend status carried by err, Success for nil and
// InternalError when err did not come from the backend.
func StatusOf(err error) backend.Status {
	if err == nil {
		return backend.Success
	}
	if be, ok := errors.Cause(err).(*BackendError); ok {
		return be.Status
	}
	if errors.Cause(err) == ErrNotFound {
		return backend.ObjectNotFound
	}
	return backend.InternalError
}

// IsNotFound reports whether err means the entry does not exist.
func IsNotFound(err error) bool {
	return err != nil && StatusOf(err) == backend.ObjectNotFound
}

func (t *Table) fail(op string, sts backend.Status) error {
	err := &BackendError{Table: t.Name(), Op: op, Status: sts, Msg: t.be.ErrString(sts)}
	t.log.Error("%s", err)
	return err
}

func (t *Table) notSupported(cmd string) error {
	t.log.Warning("%s is not supported", cmd)
	return errors.Wrapf(ErrNotSupported, "%s on %s", cmd, t.Name())
}
