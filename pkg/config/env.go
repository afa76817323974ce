package config

import (
	"strconv"
	"strings"
)

// Environment variables read by ApplyEnv.
const (
	EnvEnabled     = "SCRIPTTRACE_ENABLED"
	EnvDebug       = "SCRIPTTRACE_DEBUG"
	EnvFrames      = "SCRIPTTRACE_FRAMES"
	EnvFullFrames  = "SCRIPTTRACE_FULL_FRAMES"
	EnvAutosave    = "SCRIPTTRACE_AUTOSAVE"
	EnvAutosaveTo  = "SCRIPTTRACE_AUTOSAVE_PATH"
	EnvCompression = "SCRIPTTRACE_COMPRESSION"
	EnvRingSize    = "SCRIPTTRACE_RING_SIZE"
	EnvInclude     = "SCRIPTTRACE_INCLUDE"
	EnvExclude     = "SCRIPTTRACE_EXCLUDE"
)

// LookupFunc looks up an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays SCRIPTTRACE_* variables. Boolean variables are true for
// "1", "true" or "yes" and false for any other non-empty value. Unset or
// empty variables leave the setting alone, and so does an unparsable ring size.
func (s *Settings) ApplyEnv(lookup LookupFunc) {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	setBool := func(key string, dst *bool) {
		if v, ok := get(key); ok {
			*dst = ParseBool(v)
		}
	}
	setBool(EnvEnabled, &s.EnableTracing)
	setBool(EnvDebug, &s.Debug)
	setBool(EnvFrames, &s.EnableFrames)
	setBool(EnvFullFrames, &s.EnableFullFrames)
	setBool(EnvAutosave, &s.AutosaveEnabled)

	if v, ok := get(EnvAutosaveTo); ok {
		s.AutosavePath = v
	}
	if v, ok := get(EnvCompression); ok {
		s.Compression = strings.ToLower(v)
	}
	if v, ok := get(EnvRingSize); ok {
		if n, err := strconv.Atoi(v); err == nil {
			s.RingSize = n
		}
	}
	if v, ok := get(EnvInclude); ok {
		s.Filter.Include = splitList(v)
	}
	if v, ok := get(EnvExclude); ok {
		s.Filter.Exclude = splitList(v)
	}
}

// ParseBool reports whether v is one of "1", "true" or "yes", ignoring case.
func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
