// Package crash routes fatal runtime faults to a per-application log file.
//
// Setup is best effort: a missing configuration directory or an unwritable
// file leaves fault capture disabled and never blocks startup.
package crash

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
)

const (
	// DefaultBaseDirEnv names the environment variable holding the per-user configuration root.
	DefaultBaseDirEnv = "APPDATA"
	DefaultVendor     = "ScriptTrace"
	DefaultApp        = "Host"
	// FileName is the crash log's file name inside the application directory.
	FileName = "python_crash.log"
)

// Options locate the crash log.
type Options struct {
	BaseDirEnv string
	Vendor     string
	App        string

	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
	Logger    *slog.Logger

	// setOutput defaults to debug.SetCrashOutput.
	setOutput func(*os.File, debug.CrashOptions) error
}

func (o Options) withDefaults() Options {
	if o.BaseDirEnv == "" {
		o.BaseDirEnv = DefaultBaseDirEnv
	}
	if o.Vendor == "" {
		o.Vendor = DefaultVendor
	}
	if o.App == "" {
		o.App = DefaultApp
	}
	if o.LookupEnv == nil {
		o.LookupEnv = os.LookupEnv
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.setOutput == nil {
		o.setOutput = debug.SetCrashOutput
	}
	return o
}

// Path resolves <base>/<vendor>/<app>/python_crash.log, with base taken
// from the configured environment variable or "." when it is unset.
func Path(opts Options) string {
	opts = opts.withDefaults()
	base, ok := opts.LookupEnv(opts.BaseDirEnv)
	if !ok || base == "" {
		base = "."
	}
	return filepath.Join(base, opts.Vendor, opts.App, FileName)
}

// Reporter owns the crash log handle for the rest of the process.
type Reporter struct {
	opts Options
	path string
	once sync.Once

	mu      sync.Mutex
	file    *os.File
	enabled bool
}

// New creates a Reporter without touching the filesystem.
func New(opts Options) *Reporter {
	opts = opts.withDefaults()
	return &Reporter{opts: opts, path: Path(opts)}
}

// Setup opens the crash log and registers it for fault dumps. Only the
// first call has any effect. Failures disable fault capture silently.
func (r *Reporter) Setup() {
	r.once.Do(r.setup)
}

func (r *Reporter) setup() {
	log := r.opts.Logger.With(slog.String("path", r.path))

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		log.Debug("crash log unavailable, fault capture disabled", slog.Any("error", err))
		return
	}
	if err := r.opts.setOutput(f, debug.CrashOptions{}); err != nil {
		_ = f.Close()
		log.Debug("crash output rejected, fault capture disabled", slog.Any("error", err))
		return
	}

	r.mu.Lock()
	r.file = f
	r.enabled = true
	r.mu.Unlock()
	log.Debug("fault capture enabled")
}

// Enabled reports whether fault dumps are being captured.
func (r *Reporter) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// Path returns the resolved crash log path.
func (r *Reporter) Path() string {
	return r.path
}

var (
	processOnce     sync.Once
	processReporter *Reporter
)

// Enable sets up the process-wide crash reporter. The options of the first
// call win; later calls return the same Reporter.
func Enable(opts Options) *Reporter {
	processOnce.Do(func() {
		processReporter = New(opts)
		processReporter.Setup()
	})
	return processReporter
}
