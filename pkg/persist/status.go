package persist

import (
	"errors"
	"fmt"
)

// Status classifies the outcome of a save or load.
type Status int

const (
	None          Status = iota // success
	Corrupted                   // malformed document or inconsistent links
	NotOpen                     // the file could not be opened or written
	NotFound                    // the file does not exist
	Unknown                     // unsupported version or unexpected failure
	MissingPlugin               // a node uses an operator that is not registered
)

func (s Status) String() string {
	switch s {
	case None:
		return "none"
	case Corrupted:
		return "corrupted"
	case NotOpen:
		return "not open"
	case NotFound:
		return "not found"
	case Unknown:
		return "unknown"
	case MissingPlugin:
		return "missing plugin"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Error carries a Status with the failure behind it.
type Error struct {
	Status Status
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("persist: %s: %v", e.Status, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func fail(s Status, format string, args ...any) *Error {
	return &Error{Status: s, Err: fmt.Errorf(format, args...)}
}

// StatusOf reports the Status behind err: None for nil, Unknown for errors
// that did not come from this package.
func StatusOf(err error) Status {
	if err == nil {
		return None
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Status
	}
	return Unknown
}
