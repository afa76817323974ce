package tracer

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/willibrandon/scripttrace/pkg/instrumentation"
)

var (
	// ErrHookInstall is returned when the pipeline cannot be installed.
	ErrHookInstall = errors.New("failed to install trace hook")
	// ErrHookRestore is returned when the previous hook cannot be restored.
	ErrHookRestore = errors.New("failed to restore previous trace hook")
)

const (
	enabledMarker  = "Tracing ENABLED"
	disabledMarker = "Tracing DISABLED"
)

// State is the controller's tracing state.
type State uint8

const (
	StateDisabled State = iota
	StateEnabled
)

func (s State) String() string {
	if s == StateEnabled {
		return "enabled"
	}
	return "disabled"
}

// Controller installs and removes the filter, formatter and bridge pipeline
// as the runtime's global trace hook.
type Controller struct {
	installer instrumentation.Installer
	filter    *Filter
	formatter *Formatter
	bridge    *Bridge
	logger    *slog.Logger

	// hook is built once so repeated enables install the same function.
	hook instrumentation.Hook

	mu       sync.Mutex
	state    State
	previous instrumentation.Hook
	session  uuid.UUID
	// pending holds markers in transition order until a drainer delivers them.
	pending  []string
	draining bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithFilter replaces the default filter.
func WithFilter(f *Filter) Option {
	return func(c *Controller) {
		c.filter = f
	}
}

// WithFormatter replaces the default formatter.
func WithFormatter(f *Formatter) Option {
	return func(c *Controller) {
		c.formatter = f
	}
}

// WithBridge replaces the default bridge.
func WithBridge(b *Bridge) Option {
	return func(c *Controller) {
		c.bridge = b
	}
}

// WithLogger sets the logger for state transitions. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// NewController creates a disabled Controller for installer.
func NewController(installer instrumentation.Installer, opts ...Option) *Controller {
	c := &Controller{installer: installer}
	for _, opt := range opts {
		opt(c)
	}
	if c.filter == nil {
		c.filter = NewFilter(DefaultFilterOptions())
	}
	if c.formatter == nil {
		c.formatter = NewFormatter(FormatOptions{})
	}
	if c.bridge == nil {
		c.bridge = NewBridge(&Binding{})
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.hook = c.handle
	return c
}

// Bridge returns the controller's bridge.
func (c *Controller) Bridge() *Bridge {
	return c.bridge
}

// Hook returns the pipeline hook the controller installs.
func (c *Controller) Hook() instrumentation.Hook {
	return c.hook
}

// Enable installs the pipeline. It is a no-op when already enabled.
func (c *Controller) Enable() error {
	c.mu.Lock()
	if c.state == StateEnabled {
		c.mu.Unlock()
		return nil
	}

	prev := c.installer.Trace()
	if err := c.installer.SetTrace(c.hook); err != nil {
		c.mu.Unlock()
		return goerr.Wrap(errors.Join(ErrHookInstall, err), "enable tracing")
	}
	c.previous = prev
	c.state = StateEnabled
	c.session = uuid.New()
	session := c.session
	c.pending = append(c.pending, enabledMarker)
	c.mu.Unlock()

	c.logger.Debug("tracing enabled", slog.String("session", session.String()), slog.Bool("had_previous", prev != nil))
	c.flushMarkers()
	return nil
}

// Disable restores the hook captured by Enable. It is a no-op when already disabled.
func (c *Controller) Disable() error {
	c.mu.Lock()
	if c.state == StateDisabled {
		c.mu.Unlock()
		return nil
	}

	if err := c.installer.SetTrace(c.previous); err != nil {
		c.mu.Unlock()
		return goerr.Wrap(errors.Join(ErrHookRestore, err), "disable tracing")
	}
	session := c.session
	c.previous = nil
	c.state = StateDisabled
	c.session = uuid.Nil
	c.pending = append(c.pending, disabledMarker)
	c.mu.Unlock()

	c.logger.Debug("tracing disabled", slog.String("session", session.String()))
	c.flushMarkers()
	return nil
}

// IsEnabled reports whether the pipeline is installed.
func (c *Controller) IsEnabled() bool {
	return c.State() == StateEnabled
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session identifies the current enable cycle; uuid.Nil when disabled.
func (c *Controller) Session() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// flushMarkers delivers queued markers in the order their transitions
// happened. One goroutine drains at a time, outside mu, so observers may call
// back into the controller; a marker queued while another goroutine (or an
// observer callback) is draining is delivered by that drainer.
func (c *Controller) flushMarkers() {
	c.mu.Lock()
	if c.draining {
		c.mu.Unlock()
		return
	}
	c.draining = true
	for len(c.pending) > 0 {
		msg := c.pending[0]
		c.pending = c.pending[1:]
		c.mu.Unlock()
		c.mark(msg)
		c.mu.Lock()
	}
	c.draining = false
	c.mu.Unlock()
}

func (c *Controller) mark(msg string) {
	c.bridge.Deliver(Record{
		Category: SystemCategory,
		Name:     SystemCategory,
		Message:  msg,
		System:   true,
	})
}

func (c *Controller) handle(frame instrumentation.FrameInfo, kind instrumentation.Kind, arg any) {
	if !c.filter.Allow(frame, kind) {
		return
	}
	rec, ok := c.formatter.Format(frame, kind, arg)
	if !ok {
		return
	}
	c.bridge.Deliver(rec)
}
