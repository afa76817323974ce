package tracer

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Observer receives formatted trace messages from the bridge.
type Observer interface {
	Observe(category, message string)
}

// RecordObserver is implemented by observers that want the full record.
// The bridge prefers it over Observe.
type RecordObserver interface {
	ObserveRecord(rec Record)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(category, message string)

func (fn ObserverFunc) Observe(category, message string) { fn(category, message) }

// Binding is a replaceable reference to the current observer. The host may
// bind or unbind at any time; the bridge reads it on every delivery.
type Binding struct {
	ref atomic.Pointer[observerRef]
}

type observerRef struct {
	obs Observer
}

// Bind sets the current observer. A nil observer unbinds.
func (b *Binding) Bind(obs Observer) {
	if obs == nil {
		b.ref.Store(nil)
		return
	}
	b.ref.Store(&observerRef{obs: obs})
}

// Unbind clears the current observer.
func (b *Binding) Unbind() {
	b.ref.Store(nil)
}

// Current returns the bound observer, or nil.
func (b *Binding) Current() Observer {
	if r := b.ref.Load(); r != nil {
		return r.obs
	}
	return nil
}

// Bridge delivers records to the bound observer, or to a fallback writer
// when none is bound. Observer panics never reach the traced code.
type Bridge struct {
	binding  *Binding
	timeout  time.Duration
	dropped  atomic.Uint64
	fbMu     sync.Mutex
	fallback io.Writer
	catColor *color.Color
	sysColor *color.Color
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithFallback sets the writer used when no observer is bound. Default is os.Stdout.
func WithFallback(w io.Writer) BridgeOption {
	return func(b *Bridge) {
		b.fallback = w
	}
}

// WithDeliveryTimeout runs observers on a helper goroutine and abandons
// them after d, so a hung observer cannot stall the traced goroutine.
// Zero delivers inline.
func WithDeliveryTimeout(d time.Duration) BridgeOption {
	return func(b *Bridge) {
		b.timeout = d
	}
}

// NewBridge creates a Bridge reading observers from binding.
func NewBridge(binding *Binding, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		binding:  binding,
		fallback: os.Stdout,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.binding == nil {
		b.binding = &Binding{}
	}

	b.catColor = color.New(color.FgCyan)
	b.sysColor = color.New(color.FgYellow, color.Bold)
	if !isTerminal(b.fallback) {
		b.catColor.DisableColor()
		b.sysColor.DisableColor()
	}
	return b
}

// Binding returns the observer reference the bridge reads from.
func (b *Bridge) Binding() *Binding {
	return b.binding
}

// Dropped returns how many deliveries panicked or timed out inside an observer.
// Each delivery is counted at most once.
func (b *Bridge) Dropped() uint64 {
	return b.dropped.Load()
}

// Deliver sends rec to the current observer.
func (b *Bridge) Deliver(rec Record) {
	obs := b.binding.Current()
	if obs == nil {
		b.writeFallback(rec)
		return
	}

	if b.timeout <= 0 {
		if !b.invoke(obs, rec) {
			b.dropped.Add(1)
		}
		return
	}

	// counted ensures a delivery that times out and later panics is dropped once.
	var counted atomic.Bool
	drop := func() {
		if counted.CompareAndSwap(false, true) {
			b.dropped.Add(1)
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if !b.invoke(obs, rec) {
			drop()
		}
	}()

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		drop()
	}
}

// invoke calls obs and reports whether it returned without panicking.
func (b *Bridge) invoke(obs Observer, rec Record) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	if ro, isRecord := obs.(RecordObserver); isRecord {
		ro.ObserveRecord(rec)
		return true
	}
	obs.Observe(rec.Category, rec.Message)
	return true
}

func (b *Bridge) writeFallback(rec Record) {
	c := b.catColor
	if rec.System {
		c = b.sysColor
	}

	b.fbMu.Lock()
	defer b.fbMu.Unlock()
	// Write errors on the fallback sink are ignored; tracing must not fail the guest.
	_, _ = fmt.Fprintf(b.fallback, "%s %s\n", c.Sprintf("[%s]", rec.Category), rec.Message)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
