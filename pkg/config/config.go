// Package config loads tracing settings from defaults, a YAML or TOML file
// and SCRIPTTRACE_* environment variables.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"

	"github.com/willibrandon/scripttrace/pkg/crash"
	"github.com/willibrandon/scripttrace/pkg/recorder"
	"github.com/willibrandon/scripttrace/pkg/tracer"
)

// DefaultAutosavePath is where the log is saved when autosave is on.
const DefaultAutosavePath = "Trace.log"

var (
	// ErrInvalidSettings is returned when settings fail validation.
	ErrInvalidSettings = errors.New("invalid settings")
	// ErrUnsupportedFormat is returned for settings files that are neither YAML nor TOML.
	ErrUnsupportedFormat = errors.New("unsupported settings format")
)

// validate is a package-level singleton; validators cache struct metadata.
var validate = validator.New()

// Filter selects which frames are traced.
type Filter struct {
	Markers []string `yaml:"markers" toml:"markers"`
	Include []string `yaml:"include" toml:"include"`
	Exclude []string `yaml:"exclude" toml:"exclude"`
}

// Crash locates the crash log.
type Crash struct {
	BaseDirEnv string `yaml:"base_dir_env" toml:"base_dir_env" validate:"required"`
	Vendor     string `yaml:"vendor" toml:"vendor" validate:"required,excludesall=/\\"`
	App        string `yaml:"app" toml:"app" validate:"required,excludesall=/\\"`
}

// Settings controls a tracing session.
type Settings struct {
	// Debug also logs every trace record through slog.
	Debug bool `yaml:"debug" toml:"debug"`
	// EnableFrames appends line numbers to LINE messages.
	EnableFrames bool `yaml:"enable_frames" toml:"enable_frames"`
	// EnableFullFrames traces runtime and library frames too.
	EnableFullFrames bool `yaml:"enable_full_frames" toml:"enable_full_frames"`
	// EnableTracing enables tracing as soon as the session starts.
	EnableTracing bool `yaml:"enable_tracing" toml:"enable_tracing"`

	AutosaveEnabled bool   `yaml:"autosave_enabled" toml:"autosave_enabled"`
	AutosavePath    string `yaml:"autosave_path" toml:"autosave_path" validate:"required_if=AutosaveEnabled true"`
	Compression     string `yaml:"compression" toml:"compression" validate:"omitempty,oneof=none zstd"`
	RingSize        int    `yaml:"ring_size" toml:"ring_size" validate:"gte=0,lte=1000000"`

	Filter Filter `yaml:"filter" toml:"filter"`
	Crash  Crash  `yaml:"crash" toml:"crash"`
}

// Default returns settings with tracing off and the stock filter and crash location.
func Default() Settings {
	return Settings{
		AutosavePath: DefaultAutosavePath,
		Compression:  recorder.NoCompression.String(),
		RingSize:     recorder.DefaultMaxEntries,
		Filter: Filter{
			Markers: append([]string(nil), tracer.DefaultInternalMarkers...),
		},
		Crash: Crash{
			BaseDirEnv: crash.DefaultBaseDirEnv,
			Vendor:     crash.DefaultVendor,
			App:        crash.DefaultApp,
		},
	}
}

// Load reads defaults, overlays the file at path (if non-empty) and the
// environment, then validates the result.
func Load(path string) (Settings, error) {
	s := Default()
	if path != "" {
		if err := s.LoadFile(path); err != nil {
			return Settings{}, err
		}
	}
	s.ApplyEnv(os.LookupEnv)
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// LoadFile overlays the YAML (.yaml, .yml) or TOML (.toml) file at path.
func (s *Settings) LoadFile(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return goerr.Wrap(err, "failed to read settings", goerr.V("path", path))
		}
		if err := yaml.Unmarshal(data, s); err != nil {
			return goerr.Wrap(err, "failed to parse YAML settings", goerr.V("path", path))
		}
	case ".toml":
		if _, err := toml.DecodeFile(path, s); err != nil {
			return goerr.Wrap(err, "failed to parse TOML settings", goerr.V("path", path))
		}
	default:
		return goerr.Wrap(ErrUnsupportedFormat, "load settings", goerr.V("path", path), goerr.V("ext", ext))
	}
	return nil
}

// Validate checks field constraints.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return goerr.Wrap(errors.Join(ErrInvalidSettings, err), "validate settings")
	}
	return nil
}

// FilterOptions converts the settings into tracer filter options.
func (s Settings) FilterOptions() tracer.FilterOptions {
	opts := tracer.DefaultFilterOptions()
	if s.Filter.Markers != nil {
		opts.InternalMarkers = s.Filter.Markers
	}
	opts.FullFrames = s.EnableFullFrames
	opts.IncludeModules = s.Filter.Include
	opts.ExcludeModules = s.Filter.Exclude
	return opts
}

// FormatOptions converts the settings into tracer format options.
func (s Settings) FormatOptions() tracer.FormatOptions {
	return tracer.FormatOptions{LineLocation: s.EnableFrames}
}

// CrashOptions converts the settings into crash reporter options.
func (s Settings) CrashOptions() crash.Options {
	return crash.Options{
		BaseDirEnv: s.Crash.BaseDirEnv,
		Vendor:     s.Crash.Vendor,
		App:        s.Crash.App,
	}
}

// CompressionType parses Compression, treating an empty value as none.
func (s Settings) CompressionType() (recorder.CompressionType, error) {
	return recorder.ParseCompression(s.Compression)
}
