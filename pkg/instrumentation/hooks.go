package instrumentation

import (
	"errors"
	"sync"

	"github.com/m-mizutani/goerr/v2"
)

// Kind identifies what a guest runtime is doing when it fires a hook.
type Kind uint8

const (
	KindCall Kind = iota + 1
	KindLine
	KindReturn
	KindException
)

// String returns the lower-case event name used by script runtimes.
func (k Kind) String() string {
	switch k {
	case KindCall:
		return "call"
	case KindLine:
		return "line"
	case KindReturn:
		return "return"
	case KindException:
		return "exception"
	default:
		return "unknown"
	}
}

// Hook is an interpreter-wide trace function. arg carries the returned
// value for KindReturn and the raised exception for KindException.
type Hook func(frame FrameInfo, kind Kind, arg any)

// Installer is the settrace/gettrace surface of a guest runtime.
type Installer interface {
	// SetTrace installs h as the global trace hook; nil removes it.
	SetTrace(h Hook) error
	// Trace returns the currently installed hook, or nil.
	Trace() Hook
}

// ErrRuntimeClosed is returned when a hook is installed on a closed Runtime.
var ErrRuntimeClosed = errors.New("runtime is closed")

// Exception is the payload of a KindException event.
type Exception struct {
	Type    string
	Message string
}

func (e Exception) Error() string {
	if e.Message == "" {
		return e.Type
	}
	return e.Type + ": " + e.Message
}

// TypeName lets formatters report the guest exception type instead of the Go type.
func (e Exception) TypeName() string { return e.Type }

// Runtime is an in-process Installer for hosts that drive guest code from Go.
// Emitters fire synchronously on the calling goroutine.
type Runtime struct {
	mu     sync.RWMutex
	hook   Hook
	closed bool
}

// NewRuntime creates a Runtime with no hook installed.
func NewRuntime() *Runtime {
	return &Runtime{}
}

// SetTrace installs h, replacing any previous hook.
func (r *Runtime) SetTrace(h Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRuntimeClosed
	}
	r.hook = h
	return nil
}

// Trace returns the installed hook.
func (r *Runtime) Trace() Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hook
}

// Close detaches the hook and rejects further installs.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.hook = nil
	return nil
}

func (r *Runtime) fire(frame FrameInfo, kind Kind, arg any) {
	h := r.Trace()
	if h == nil {
		return
	}
	h(frame, kind, arg)
}

// FuncEntry fires a call event for frame.
func (r *Runtime) FuncEntry(frame FrameInfo) {
	r.fire(frame, KindCall, nil)
}

// Statement fires a line event for frame.
func (r *Runtime) Statement(frame FrameInfo) {
	r.fire(frame, KindLine, nil)
}

// FuncExit fires a return event carrying value.
func (r *Runtime) FuncExit(frame FrameInfo, value any) {
	r.fire(frame, KindReturn, value)
}

// Exception fires an exception event carrying exc.
func (r *Runtime) Exception(frame FrameInfo, exc any) {
	r.fire(frame, KindException, exc)
}

// Invoke brackets fn with call and return events. fn reports each executed
// line through the supplied callback. An error from fn fires an exception
// event followed by a return event with a nil value, matching how script
// runtimes unwind a frame.
func (r *Runtime) Invoke(frame Frame, fn func(line func(n int)) (any, error)) (any, error) {
	r.FuncEntry(frame)

	current := frame
	value, err := fn(func(n int) {
		current = frame.At(n)
		r.Statement(current)
	})
	if err != nil {
		r.Exception(current, err)
		r.FuncExit(current, nil)
		return nil, goerr.Wrap(err, "guest function raised", goerr.V("function", frame.Function))
	}

	r.FuncExit(current, value)
	return value, nil
}
