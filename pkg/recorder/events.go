package recorder

import (
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Level is the severity of a log entry.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarning
	LevelError
)

// String returns the display name of the level.
func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "Trace"
	case LevelDebug:
		return "Debug"
	case LevelInfo:
		return "Info"
	case LevelWarning:
		return "Warning"
	case LevelError:
		return "Error"
	default:
		return "Unknown"
	}
}

// ParseLevel converts a case-insensitive level name.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	default:
		return LevelTrace, goerr.New("invalid level (expected: trace|debug|info|warning|error)", goerr.V("level", s))
	}
}

// Entry is one line of the host's script log.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Source    string    `json:"source"`
	Message   string    `json:"message"`
	// Session is the tracing session that produced the entry, if any.
	Session string `json:"session,omitempty"`
}

// String renders the entry the way the script console shows it.
func (e Entry) String() string {
	return fmt.Sprintf("[%s] [%s] [%s] %s", e.Timestamp.Format("15:04:05"), e.Level, e.Source, e.Message)
}
