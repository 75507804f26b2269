package randomx

import (
	"errors"
	"fmt"
)

// Kind categorizes an Error.
type Kind string

const (
	KindAllocation      Kind = "allocation_failed"
	KindOutOfBounds     Kind = "out_of_bounds"
	KindProtocol        Kind = "protocol_violation"
	KindReleased        Kind = "use_after_release"
	KindInUse           Kind = "in_use"
	KindNotReady        Kind = "not_ready"
	KindInvalidFlags    Kind = "invalid_flags"
	KindInvalidArgument Kind = "invalid_argument"
)

// Sentinels for errors.Is. Every *Error unwraps to the sentinel of its Kind.
var (
	ErrAllocationFailed  = errors.New("randomx: allocation failed")
	ErrOutOfBounds       = errors.New("randomx: dataset range out of bounds")
	ErrProtocolViolation = errors.New("randomx: pipelined hash protocol violation")
	ErrUseAfterRelease   = errors.New("randomx: use after release")
	ErrInUse             = errors.New("randomx: resource is borrowed")
	ErrNotReady          = errors.New("randomx: resource not initialized")
	ErrInvalidFlags      = errors.New("randomx: invalid flags")
	ErrInvalidArgument   = errors.New("randomx: invalid argument")
)

var kindSentinel = map[Kind]error{
	KindAllocation:      ErrAllocationFailed,
	KindOutOfBounds:     ErrOutOfBounds,
	KindProtocol:        ErrProtocolViolation,
	KindReleased:        ErrUseAfterRelease,
	KindInUse:           ErrInUse,
	KindNotReady:        ErrNotReady,
	KindInvalidFlags:    ErrInvalidFlags,
	KindInvalidArgument: ErrInvalidArgument,
}

// Error is returned by every fallible operation in this package.
type Error struct {
	// Op is the operation that failed, e.g. "AllocCache" or "VM.HashNext".
	Op     string
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("randomx: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("randomx: %s: %s: %s", e.Op, e.Kind, e.Detail)
}

// Unwrap returns the sentinel of e's Kind.
func (e *Error) Unwrap() error { return kindSentinel[e.Kind] }

func opError(op string, kind Kind, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
