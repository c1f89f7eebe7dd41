package flowgraph

import (
	"errors"
	"fmt"

	"github.com/flowgraph-go/flowgraph/internal/ringbuf"
)

// ErrorCode is a high-level error category, grounded on the teacher's
// UblkErrorCode taxonomy but covering the flowgraph's own failure modes:
// graph construction/validation errors and buffer-level stream errors.
type ErrorCode string

const (
	ErrCodeInvalidPortCount       ErrorCode = "invalid port count"
	ErrCodePortNotFound           ErrorCode = "port not found"
	ErrCodeUnderlyingPortNotFound ErrorCode = "underlying port not found"
	ErrCodePortAlreadyConnected   ErrorCode = "port already connected"
	ErrCodeInputPortUnconnected   ErrorCode = "input port unconnected"
	ErrCodeCyclicDependency       ErrorCode = "cyclic dependency"
	ErrCodeDataTypeMismatch       ErrorCode = "data type mismatch"
	ErrCodeRateMismatch           ErrorCode = "rate mismatch"
	ErrCodeNotRunning             ErrorCode = "not running"
	ErrCodeAlreadyRunning         ErrorCode = "already running"
	ErrCodeBlockNotFound          ErrorCode = "block not found"
	ErrCodeInitializeFailed       ErrorCode = "initialize failed"
	ErrCodeEndOfStream            ErrorCode = "end of stream"
	ErrCodeBrokenStream           ErrorCode = "broken stream"
	ErrCodeTimeout                ErrorCode = "timeout"
)

// Error is a structured flowgraph error with graph context.
type Error struct {
	Op    string // operation that failed, e.g. "Connect", "Start"
	Code  ErrorCode
	Block string // block name, "" if not applicable
	Port  string // port description, "" if not applicable
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	switch {
	case e.Block != "" && e.Port != "":
		return fmt.Sprintf("flowgraph: %s: %s (block=%s port=%s)", e.Op, msg, e.Block, e.Port)
	case e.Block != "":
		return fmt.Sprintf("flowgraph: %s: %s (block=%s)", e.Op, msg, e.Block)
	default:
		return fmt.Sprintf("flowgraph: %s: %s", e.Op, msg)
	}
}

func (e *Error) Unwrap() error { return e.Inner }

// Is supports errors.Is comparison by error code, so callers can match
// against the ErrCode* sentinels constructed fresh via NewError.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// NewError creates a graph-level error with no block/port context.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewBlockError creates an error scoped to a specific block.
func NewBlockError(op, block string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Block: block, Code: code, Msg: msg}
}

// NewPortError creates an error scoped to a specific block port.
func NewPortError(op, block, port string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Block: block, Port: port, Code: code, Msg: msg}
}

// WrapError wraps an arbitrary error with flowgraph operation context,
// preserving an existing *Error's code if inner is already one.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if fe, ok := inner.(*Error); ok {
		return &Error{Op: op, Block: fe.Block, Port: fe.Port, Code: fe.Code, Msg: fe.Msg, Inner: fe.Inner}
	}
	return &Error{Op: op, Code: ErrCodeIOErrorFallback, Msg: inner.Error(), Inner: inner}
}

// ErrCodeIOErrorFallback categorizes unrecognized wrapped errors.
const ErrCodeIOErrorFallback ErrorCode = "error"

// IsCode reports whether err is a *Error carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// Buffer-level sentinel errors, re-exported from the ring buffer so callers
// never need to import internal/ringbuf directly.
var (
	ErrEndOfStream  = ringbuf.ErrEndOfStream
	ErrBrokenStream = ringbuf.ErrBrokenStream
	ErrTimeout      = ringbuf.ErrTimeout
)
