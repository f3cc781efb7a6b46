package protocol

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. Callers branch on the kind, not on the message.
type Kind int

const (
	KindConfig     Kind = iota + 1 // bad input, nothing touched the network
	KindResolution                 // address lookup failed
	KindConnect                    // no candidate could be connected or bound
	KindIO                         // send/receive failure
	KindTimeout                    // no reply within the deadline
	KindProtocol                   // reply arrived but was not an acceptance
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindResolution:
		return "resolution"
	case KindConnect:
		return "connect"
	case KindIO:
		return "io"
	case KindTimeout:
		return "timeout"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// Error is the error type returned by the client, server and CLI layers.
type Error struct {
	Kind Kind
	Op   string // e.g. "dial", "send", "reply", "bind"
	Addr string // may be empty
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Addr != "" {
		msg += " " + e.Addr
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s error: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind, so errors.Is(err, ErrTimeout) works
// no matter which Op or Addr produced it.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Op == "" && t.Addr == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrConfig     = &Error{Kind: KindConfig}
	ErrResolution = &Error{Kind: KindResolution}
	ErrConnect    = &Error{Kind: KindConnect}
	ErrIO         = &Error{Kind: KindIO}
	ErrTimeout    = &Error{Kind: KindTimeout}
	ErrProtocol   = &Error{Kind: KindProtocol}
)

// NewError builds an *Error.
func NewError(kind Kind, op, addr string, err error) *Error {
	return &Error{Kind: kind, Op: op, Addr: addr, Err: err}
}

// Configf builds a config error from a format string.
func Configf(format string, args ...any) *Error {
	return &Error{Kind: KindConfig, Op: "config", Err: fmt.Errorf(format, args...)}
}

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitTimeout = 2
	ExitConfig  = 3
)

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	var e *Error
	switch {
	case err == nil:
		return ExitOK
	case !errors.As(err, &e):
		return ExitFailure
	case e.Kind == KindTimeout:
		return ExitTimeout
	case e.Kind == KindConfig:
		return ExitConfig
	default:
		return ExitFailure
	}
}
