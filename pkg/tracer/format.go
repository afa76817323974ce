package tracer

import (
	"reflect"
	"strconv"
	"unicode/utf8"

	"github.com/willibrandon/scripttrace/pkg/instrumentation"
)

const (
	// MaxReprLen bounds the representation of a returned value, in runes.
	MaxReprLen = 200

	// UnrepresentableValue replaces a returned value whose representation failed.
	UnrepresentableValue = "<unrepresentable>"

	// UnknownException is reported when an exception payload cannot be unpacked.
	UnknownException = "Unknown Exception"

	// SystemCategory is the category of controller marker records.
	SystemCategory = "System"
)

// Record is a formatted execution event, ready for delivery.
type Record struct {
	// Category is "path:line" for execution events and SystemCategory for markers.
	Category string
	Path     string
	Line     int
	// Name is the logical module or module.function name.
	Name    string
	Kind    instrumentation.Kind
	Message string
	System  bool
}

// Reprer is implemented by guest values that render their own representation.
type Reprer interface {
	Repr() (string, error)
}

// FormatOptions tunes message bodies.
type FormatOptions struct {
	// LineLocation appends the line number to LINE messages.
	LineLocation bool
}

// Formatter turns allowed events into Records.
type Formatter struct {
	opts FormatOptions
}

// NewFormatter creates a Formatter.
func NewFormatter(opts FormatOptions) *Formatter {
	return &Formatter{opts: opts}
}

// Format builds the record for an event. ok is false when nothing should be
// emitted, including when frame metadata could not be extracted.
func (f *Formatter) Format(frame instrumentation.FrameInfo, kind instrumentation.Kind, arg any) (rec Record, ok bool) {
	defer func() {
		if recover() != nil {
			rec, ok = Record{}, false
		}
	}()

	if frame == nil {
		return Record{}, false
	}

	src := frame.SourcePath()
	line := frame.Line()
	name := LogicalName(frame)

	var msg string
	switch kind {
	case instrumentation.KindCall:
		msg = "CALL: " + name
	case instrumentation.KindLine:
		msg = name
		if f.opts.LineLocation {
			msg = name + " (line " + strconv.Itoa(line) + ")"
		}
	case instrumentation.KindReturn:
		msg = "RETURN: " + name + " -> " + Repr(arg)
	case instrumentation.KindException:
		msg = "EXCEPTION: " + describeException(arg)
	default:
		return Record{}, false
	}

	return Record{
		Category: src + ":" + strconv.Itoa(line),
		Path:     src,
		Line:     line,
		Name:     name,
		Kind:     kind,
		Message:  msg,
	}, true
}

// LogicalName returns module for top-level code and module.function otherwise.
// A missing module name falls back to the source file's base name.
func LogicalName(frame instrumentation.FrameInfo) string {
	mod := frame.ModuleName()
	if mod == "" {
		mod = baseName(frame.SourcePath())
	}
	if instrumentation.IsModuleLevel(frame) {
		return mod
	}
	return mod + "." + frame.FunctionName()
}

// describeException unpacks an exception payload into "Type: message".
func describeException(arg any) (s string) {
	defer func() {
		if recover() != nil {
			s = UnknownException
		}
	}()

	switch x := arg.(type) {
	case instrumentation.Exception:
		return exceptionText(x.Type, x.Message)
	case *instrumentation.Exception:
		if x == nil {
			return UnknownException
		}
		return exceptionText(x.Type, x.Message)
	case error:
		if isNilPointer(x) {
			return UnknownException
		}
		typ := goTypeName(x)
		if tn, ok := x.(interface{ TypeName() string }); ok && tn.TypeName() != "" {
			typ = tn.TypeName()
		}
		return exceptionText(typ, x.Error())
	default:
		return UnknownException
	}
}

func exceptionText(typ, msg string) string {
	if typ == "" {
		return UnknownException
	}
	if msg == "" {
		return typ
	}
	return truncate(typ+": "+msg, MaxReprLen)
}

func goTypeName(v any) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
