package coresem

import (
	"fmt"

	"github.com/pkg/errors"
)

// Status is the outcome of a semaphore or thread queue operation. It
// is returned by value; none of the outcomes are faults.
type Status uint8

const (
	// StatusSuccessful means a unit was acquired or released.
	StatusSuccessful Status = iota
	// StatusUnsatisfied means a non-blocking acquire found no unit.
	StatusUnsatisfied
	// StatusTimeout means the wait interval expired before a unit
	// was handed over.
	StatusTimeout
	// StatusMaximumCountExceeded means a release found the count
	// already at its bound and nobody waiting.
	StatusMaximumCountExceeded
	// StatusObjectWasDeleted means the object was destroyed, either
	// while the thread waited or before the call was made.
	StatusObjectWasDeleted
	// StatusUnavailable means the waiter was flushed without the
	// object being destroyed.
	StatusUnavailable
)

var statusNames = [...]string{
	StatusSuccessful:           "successful",
	StatusUnsatisfied:          "unsatisfied",
	StatusTimeout:              "timeout",
	StatusMaximumCountExceeded: "maximum count exceeded",
	StatusObjectWasDeleted:     "object was deleted",
	StatusUnavailable:          "unavailable",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Sentinel errors matching the non-successful statuses, for callers
// that would rather propagate an error than switch on a Status.
var (
	ErrUnsatisfied          = errors.New("coresem: unsatisfied")
	ErrTimeout              = errors.New("coresem: timeout")
	ErrMaximumCountExceeded = errors.New("coresem: maximum count exceeded")
	ErrObjectWasDeleted     = errors.New("coresem: object was deleted")
	ErrUnavailable          = errors.New("coresem: unavailable")
)

// Err converts the status into nil or one of the sentinel errors.
func (s Status) Err() error {
	switch s {
	case StatusSuccessful:
		return nil
	case StatusUnsatisfied:
		return ErrUnsatisfied
	case StatusTimeout:
		return ErrTimeout
	case StatusMaximumCountExceeded:
		return ErrMaximumCountExceeded
	case StatusObjectWasDeleted:
		return ErrObjectWasDeleted
	case StatusUnavailable:
		return ErrUnavailable
	default:
		return errors.Errorf("coresem: unknown status %d", uint8(s))
	}
}
