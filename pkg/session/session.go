// Package session wires settings, recorders, observers and the trace
// controller together for a host process.
package session

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/willibrandon/scripttrace/pkg/config"
	"github.com/willibrandon/scripttrace/pkg/crash"
	"github.com/willibrandon/scripttrace/pkg/instrumentation"
	"github.com/willibrandon/scripttrace/pkg/observer"
	"github.com/willibrandon/scripttrace/pkg/recorder"
	"github.com/willibrandon/scripttrace/pkg/tracer"
)

type options struct {
	host      observer.HostSink
	extra     []tracer.Observer
	logger    *slog.Logger
	fallback  io.Writer
	timeout   time.Duration
	crashInit func(crash.Options) *crash.Reporter
}

// Option configures Start.
type Option func(*options)

// WithHost delivers every record to sink in addition to the recorders.
func WithHost(sink observer.HostSink) Option {
	return func(o *options) {
		o.host = sink
	}
}

// WithObserver adds an observer to the fan-out.
func WithObserver(obs tracer.Observer) Option {
	return func(o *options) {
		o.extra = append(o.extra, obs)
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithFallback sets the writer used while no observer is bound.
func WithFallback(w io.Writer) Option {
	return func(o *options) {
		o.fallback = w
	}
}

// WithDeliveryTimeout bounds how long a single observer delivery may block.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithCrashReporter replaces crash.Enable as the crash reporter factory.
func WithCrashReporter(fn func(crash.Options) *crash.Reporter) Option {
	return func(o *options) {
		o.crashInit = fn
	}
}

// Session is a running tracing setup.
type Session struct {
	settings   config.Settings
	logger     *slog.Logger
	crash      *crash.Reporter
	ring       *recorder.Ring
	autosave   *recorder.FileRecorder
	binding    *tracer.Binding
	controller *tracer.Controller

	closeOnce sync.Once
	closeErr  error
}

// Start validates settings, sets up crash capture and recorders, binds the
// observers and installs the pipeline on installer when EnableTracing is set.
// Crash capture and autosave are best effort; their failures are logged.
func Start(settings config.Settings, installer instrumentation.Installer, opts ...Option) (*Session, error) {
	o := options{crashInit: crash.Enable}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	compression, err := settings.CompressionType()
	if err != nil {
		return nil, goerr.Wrap(err, "start session")
	}

	s := &Session{
		settings: settings,
		logger:   o.logger,
		ring:     recorder.NewRing(settings.RingSize),
		binding:  &tracer.Binding{},
	}

	crashOpts := settings.CrashOptions()
	crashOpts.Logger = o.logger
	s.crash = o.crashInit(crashOpts)

	if settings.AutosaveEnabled {
		s.autosave = openAutosave(settings.AutosavePath, compression, o.logger)
	}

	stamp := observer.WithSession(s.sessionID)
	var observers []tracer.Observer
	if o.host != nil {
		observers = append(observers, observer.Host(o.host))
	}
	observers = append(observers, observer.Recorder(s.ring, stamp))
	if s.autosave != nil {
		observers = append(observers, observer.Recorder(s.autosave, stamp))
	}
	if settings.Debug {
		observers = append(observers, observer.Logger(observer.WithLogger(o.logger)))
	}
	observers = append(observers, o.extra...)
	s.binding.Bind(observer.Multi(observers...))

	var bridgeOpts []tracer.BridgeOption
	if o.fallback != nil {
		bridgeOpts = append(bridgeOpts, tracer.WithFallback(o.fallback))
	}
	if o.timeout > 0 {
		bridgeOpts = append(bridgeOpts, tracer.WithDeliveryTimeout(o.timeout))
	}

	s.controller = tracer.NewController(installer,
		tracer.WithFilter(tracer.NewFilter(settings.FilterOptions())),
		tracer.WithFormatter(tracer.NewFormatter(settings.FormatOptions())),
		tracer.WithBridge(tracer.NewBridge(s.binding, bridgeOpts...)),
		tracer.WithLogger(o.logger),
	)

	if settings.EnableTracing {
		if err := s.controller.Enable(); err != nil {
			_ = s.closeAutosave()
			return nil, goerr.Wrap(err, "start session")
		}
	}
	return s, nil
}

func openAutosave(path string, ct recorder.CompressionType, logger *slog.Logger) *recorder.FileRecorder {
	redactor, err := recorder.NewRedactor(recorder.DefaultRedactionPatterns, "")
	if err != nil {
		logger.Warn("redaction disabled", slog.Any("error", err))
	}
	fr, err := recorder.NewFileRecorderWithOptions(path, recorder.FileRecorderOptions{
		CompressionType: ct,
		Redactor:        redactor,
	})
	if err != nil {
		logger.Warn("autosave disabled", slog.String("path", path), slog.Any("error", err))
		return nil
	}
	return fr
}

func (s *Session) sessionID() string {
	id := s.controller.Session()
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

// Controller returns the trace controller.
func (s *Session) Controller() *tracer.Controller { return s.controller }

// Binding returns the observer reference. Hosts may rebind it at any time.
func (s *Session) Binding() *tracer.Binding { return s.binding }

// Ring returns the in-memory log.
func (s *Session) Ring() *recorder.Ring { return s.ring }

// Autosave returns the autosave recorder, or nil when autosave is off or failed.
func (s *Session) Autosave() *recorder.FileRecorder { return s.autosave }

// Crash returns the crash reporter.
func (s *Session) Crash() *crash.Reporter { return s.crash }

// Settings returns the settings the session was started with.
func (s *Session) Settings() config.Settings { return s.settings }

// Enable turns tracing on.
func (s *Session) Enable() error { return s.controller.Enable() }

// Disable turns tracing off.
func (s *Session) Disable() error { return s.controller.Disable() }

// Close disables tracing and closes the autosave file. It is safe to call twice.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = errors.Join(s.controller.Disable(), s.closeAutosave())
	})
	return s.closeErr
}

func (s *Session) closeAutosave() error {
	if s.autosave == nil {
		return nil
	}
	if err := s.autosave.Close(); err != nil {
		return goerr.Wrap(err, "close autosave", goerr.V("path", s.autosave.Path()))
	}
	return nil
}
