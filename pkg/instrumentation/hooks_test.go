package instrumentation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type firedEvent struct {
	kind Kind
	line int
	fn   string
	arg  any
}

func captureHook(events *[]firedEvent) Hook {
	return func(frame FrameInfo, kind Kind, arg any) {
		*events = append(*events, firedEvent{kind: kind, line: frame.Line(), fn: frame.FunctionName(), arg: arg})
	}
}

func TestRuntimeSetTrace(t *testing.T) {
	rt := NewRuntime()
	assert.Nil(t, rt.Trace())

	var events []firedEvent
	require.NoError(t, rt.SetTrace(captureHook(&events)))
	assert.NotNil(t, rt.Trace())

	rt.Statement(Frame{Path: "a.py", LineNo: 3, Module: "a"})
	require.Len(t, events, 1)
	assert.Equal(t, KindLine, events[0].kind)

	require.NoError(t, rt.SetTrace(nil))
	rt.Statement(Frame{Path: "a.py", LineNo: 4, Module: "a"})
	assert.Len(t, events, 1)
}

func TestRuntimeClosed(t *testing.T) {
	rt := NewRuntime()
	require.NoError(t, rt.Close())

	err := rt.SetTrace(func(FrameInfo, Kind, any) {})
	assert.ErrorIs(t, err, ErrRuntimeClosed)
	assert.Nil(t, rt.Trace())
}

func TestRuntimeInvoke(t *testing.T) {
	rt := NewRuntime()
	var events []firedEvent
	require.NoError(t, rt.SetTrace(captureHook(&events)))

	f := Frame{Path: "a.py", LineNo: 1, Module: "a", Function: "f"}
	got, err := rt.Invoke(f, func(line func(int)) (any, error) {
		line(2)
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	require.Len(t, events, 3)
	assert.Equal(t, KindCall, events[0].kind)
	assert.Equal(t, KindLine, events[1].kind)
	assert.Equal(t, 2, events[1].line)
	assert.Equal(t, KindReturn, events[2].kind)
	assert.Equal(t, 42, events[2].arg)
}

func TestRuntimeInvokeError(t *testing.T) {
	rt := NewRuntime()
	var events []firedEvent
	require.NoError(t, rt.SetTrace(captureHook(&events)))

	boom := Exception{Type: "ValueError", Message: "bad input"}
	_, err := rt.Invoke(Frame{Path: "a.py", Module: "a", Function: "g"}, func(line func(int)) (any, error) {
		line(7)
		return nil, boom
	})
	require.Error(t, err)

	var exc Exception
	assert.True(t, errors.As(err, &exc))
	assert.Equal(t, "ValueError", exc.TypeName())

	kinds := make([]Kind, 0, len(events))
	for _, ev := range events {
		kinds = append(kinds, ev.kind)
	}
	assert.Equal(t, []Kind{KindCall, KindLine, KindException, KindReturn}, kinds)
	assert.Equal(t, 7, events[2].line)
	assert.Nil(t, events[3].arg)
}

func TestRuntimeWithoutHook(t *testing.T) {
	rt := NewRuntime()
	got, err := rt.Invoke(Frame{Module: "a", Function: "f"}, func(line func(int)) (any, error) {
		line(1)
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindCall, "call"},
		{KindLine, "line"},
		{KindReturn, "return"},
		{KindException, "exception"},
		{Kind(0), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.String())
	}
}

func TestIsModuleLevel(t *testing.T) {
	assert.True(t, IsModuleLevel(Frame{Function: ModuleLevel}))
	assert.True(t, IsModuleLevel(Frame{}))
	assert.False(t, IsModuleLevel(Frame{Function: "f"}))
}

func TestExceptionError(t *testing.T) {
	assert.Equal(t, "KeyError: 'x'", Exception{Type: "KeyError", Message: "'x'"}.Error())
	assert.Equal(t, "StopIteration", Exception{Type: "StopIteration"}.Error())
}
