package tracer

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/scripttrace/pkg/instrumentation"
)

type badStringer struct{}

func (badStringer) String() string { panic("repr exploded") }

type badRepr struct{}

func (badRepr) Repr() (string, error) { return "", errors.New("no repr") }

type guestList []int

func (guestList) Repr() (string, error) { return "[1, 2, 3]", nil }

type nilMessageError struct{}

func (*nilMessageError) Error() string { panic("message unavailable") }

type typedError struct{}

func (typedError) Error() string    { return "list index out of range" }
func (typedError) TypeName() string { return "IndexError" }

func TestLogicalName(t *testing.T) {
	tests := []struct {
		name  string
		frame instrumentation.Frame
		want  string
	}{
		{"module level", instrumentation.Frame{Path: "/s/a.py", Module: "a", Function: instrumentation.ModuleLevel}, "a"},
		{"module level empty function", instrumentation.Frame{Path: "/s/a.py", Module: "a"}, "a"},
		{"function", instrumentation.Frame{Path: "/s/a.py", Module: "a", Function: "f"}, "a.f"},
		{"posix fallback", instrumentation.Frame{Path: "/s/dir/a.py", Function: instrumentation.ModuleLevel}, "a.py"},
		{"windows fallback", instrumentation.Frame{Path: `C:\s\dir\a.py`, Function: instrumentation.ModuleLevel}, "a.py"},
		{"bare fallback", instrumentation.Frame{Path: "a.py"}, "a.py"},
		{"function with fallback module", instrumentation.Frame{Path: `C:\s\a.py`, Function: "f"}, "a.py.f"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LogicalName(tt.frame))
		})
	}
}

func TestFormatKinds(t *testing.T) {
	f := NewFormatter(FormatOptions{})
	frame := instrumentation.Frame{Path: "/s/a.py", LineNo: 2, Module: "a", Function: "f"}

	rec, ok := f.Format(frame, instrumentation.KindCall, nil)
	require.True(t, ok)
	assert.Equal(t, "CALL: a.f", rec.Message)
	assert.Equal(t, "/s/a.py:2", rec.Category)
	assert.Equal(t, "a.f", rec.Name)
	assert.False(t, rec.System)

	rec, ok = f.Format(frame, instrumentation.KindLine, nil)
	require.True(t, ok)
	assert.Equal(t, "a.f", rec.Message)

	rec, ok = f.Format(frame, instrumentation.KindReturn, 42)
	require.True(t, ok)
	assert.Equal(t, "RETURN: a.f -> 42", rec.Message)

	rec, ok = f.Format(frame, instrumentation.KindException, instrumentation.Exception{Type: "ValueError", Message: "bad"})
	require.True(t, ok)
	assert.Equal(t, "EXCEPTION: ValueError: bad", rec.Message)

	_, ok = f.Format(frame, instrumentation.Kind(99), nil)
	assert.False(t, ok)
}

func TestFormatLineLocation(t *testing.T) {
	f := NewFormatter(FormatOptions{LineLocation: true})
	rec, ok := f.Format(instrumentation.Frame{Path: "/s/a.py", LineNo: 9, Module: "a"}, instrumentation.KindLine, nil)
	require.True(t, ok)
	assert.Equal(t, "a (line 9)", rec.Message)
}

func TestFormatReturnNeverPanics(t *testing.T) {
	f := NewFormatter(FormatOptions{})
	frame := instrumentation.Frame{Path: "/s/a.py", Module: "a", Function: "f"}

	tests := []struct {
		name string
		arg  any
		want string
	}{
		{"panicking stringer", badStringer{}, "RETURN: a.f -> " + UnrepresentableValue},
		{"failing repr", badRepr{}, "RETURN: a.f -> " + UnrepresentableValue},
		{"guest repr", guestList{}, "RETURN: a.f -> [1, 2, 3]"},
		{"none", nil, "RETURN: a.f -> None"},
		{"string", "hi", "RETURN: a.f -> hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec Record
			var ok bool
			assert.NotPanics(t, func() {
				rec, ok = f.Format(frame, instrumentation.KindReturn, tt.arg)
			})
			require.True(t, ok)
			assert.Equal(t, tt.want, rec.Message)
		})
	}
}

func TestReprTruncates(t *testing.T) {
	long := strings.Repeat("é", 500)
	got := Repr(long)
	assert.Equal(t, MaxReprLen, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "short", Repr("short"))
}

func TestFormatExceptionFallbacks(t *testing.T) {
	f := NewFormatter(FormatOptions{})
	frame := instrumentation.Frame{Path: "/s/a.py", Module: "a", Function: "f"}
	unknown := "EXCEPTION: " + UnknownException

	var nilExc *instrumentation.Exception
	tests := []struct {
		name string
		arg  any
		want string
	}{
		{"nil payload", nil, unknown},
		{"tuple-like payload", []any{"ValueError"}, unknown},
		{"nil exception pointer", nilExc, unknown},
		{"exception pointer", &instrumentation.Exception{Type: "KeyError", Message: "'x'"}, "EXCEPTION: KeyError: 'x'"},
		{"exception without type", instrumentation.Exception{Message: "x"}, unknown},
		{"panicking error", &nilMessageError{}, unknown},
		{"typed error", typedError{}, "EXCEPTION: IndexError: list index out of range"},
		{"plain go error", errors.New("boom"), "EXCEPTION: errorString: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec Record
			var ok bool
			assert.NotPanics(t, func() {
				rec, ok = f.Format(frame, instrumentation.KindException, tt.arg)
			})
			require.True(t, ok)
			assert.Equal(t, tt.want, rec.Message)
		})
	}
}

func TestFormatUnreadableFrame(t *testing.T) {
	f := NewFormatter(FormatOptions{})
	_, ok := f.Format(panickyFrame{}, instrumentation.KindCall, nil)
	assert.False(t, ok)

	_, ok = f.Format(nil, instrumentation.KindCall, nil)
	assert.False(t, ok)
}
