// Package backend describes the driver surface the tdi packages are built on.
//
// The contract mirrors the native TDI frontend: every object lives behind an
// opaque Handle, every field, action and table is addressed by an integer ID,
// and every call returns a Status. Lists are always read with two calls, one
// for the size and one filling a caller allocated slice.
package backend

import "fmt"

// Status returned by every backend call.
type Status int

// status codes the tdi packages give a meaning to.
const (
	Success          Status = 0
	NotReady         Status = 1
	NoSysResources   Status = 2
	InvalidArg       Status = 3
	AlreadyExists    Status = 4
	HwCommFail       Status = 5
	ObjectNotFound   Status = 6
	MaxSessions      Status = 7
	SessionNotFound  Status = 8
	NoSpace          Status = 9
	InUse            Status = 12
	NotImplemented   Status = 16
	NotSupported     Status = 17
	TableNotFound    Status = 23
	InternalError    Status = 27
	TransactionError Status = 28
)

var statusNames = map[Status]string{
	Success:          "Success",
	NotReady:         "Not ready",
	NoSysResources:   "No system resources",
	InvalidArg:       "Invalid arguments",
	AlreadyExists:    "Already exists",
	HwCommFail:       "HW access fails",
	ObjectNotFound:   "Object not found",
	MaxSessions:      "Max sessions exceeded",
	SessionNotFound:  "Session not found",
	NoSpace:          "Not enough space",
	InUse:            "Resource in use",
	NotImplemented:   "Not implemented",
	NotSupported:     "Not supported",
	TableNotFound:    "Table not found",
	InternalError:    "Unexpected error",
	TransactionError: "Transaction error",
}

// Message returns the default message of the status, the one a backend
// usually answers from ErrString.
func (s Status) Message() string {
	if msg, found := statusNames[s]; found {
		return msg
	}
	return fmt.Sprintf("Unknown error (%d)", int(s))
}

// OK reports whether the call succeeded.
func (s Status) OK() bool {
	return s == Success
}

// Handle is an opaque reference to an object allocated by the backend.
type Handle uint64

// NilHandle is never returned by a successful allocation.
const NilHandle Handle = 0

// Target selects the device, pipe, direction and parser an operation
// applies to.
type Target struct {
	DevID     int
	PipeID    uint32
	Direction int
	ParserID  int
}

// AllPipes addresses every pipe of a device.
const AllPipes uint32 = 0xffff

func (t Target) String() string {
	return fmt.Sprintf("dev_id=%d, pipe_id=0x%x, direction=%d, prsr_id=%d", t.DevID, t.PipeID, t.Direction, t.ParserID)
}

// Annotation attached to a field or an action.
type Annotation struct {
	Name  string
	Value string
}

// Backend gathers every interface family of the driver surface.
type Backend interface {
	Info
	Keys
	Data
	Flags
	Tables
	Attributes
	Operations
	Session

	// ErrString returns the human readable message of a status.
	ErrString(Status) string
}
