package observer

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/scripttrace/pkg/instrumentation"
	"github.com/willibrandon/scripttrace/pkg/recorder"
	"github.com/willibrandon/scripttrace/pkg/tracer"
)

type hostCall struct {
	file, line, name string
}

func TestHostScenario(t *testing.T) {
	var calls []hostCall
	sink := HostSinkFunc(func(file, line, name string) {
		calls = append(calls, hostCall{file, line, name})
	})

	rt := instrumentation.NewRuntime()
	binding := &tracer.Binding{}
	binding.Bind(Host(sink))
	ctrl := tracer.NewController(rt, tracer.WithBridge(tracer.NewBridge(binding)))
	require.NoError(t, ctrl.Enable())

	f := instrumentation.Frame{Path: "/s/a.py", LineNo: 1, Module: "a", Function: "f"}
	v, err := rt.Invoke(f, func(line func(int)) (any, error) {
		line(2)
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	require.NoError(t, ctrl.Disable())

	assert.Equal(t, []hostCall{
		{"System", "0", "Tracing ENABLED"},
		{"/s/a.py", "1", "CALL: a.f"},
		{"/s/a.py", "2", "a.f"},
		{"/s/a.py", "2", "RETURN: a.f -> 42"},
		{"System", "0", "Tracing DISABLED"},
	}, calls)
}

func TestHostObserve(t *testing.T) {
	var got hostCall
	Host(HostSinkFunc(func(file, line, name string) {
		got = hostCall{file, line, name}
	})).Observe("/s/a.py:3", "a.g")
	assert.Equal(t, hostCall{"/s/a.py:3", "0", "a.g"}, got)
}

func TestToEntry(t *testing.T) {
	tests := []struct {
		name string
		rec  tracer.Record
		want recorder.Level
	}{
		{"marker", tracer.Record{Category: "System", Message: "Tracing ENABLED", System: true}, recorder.LevelInfo},
		{"exception", tracer.Record{Category: "/s/a.py:4", Kind: instrumentation.KindException, Message: "EXCEPTION: ValueError: x"}, recorder.LevelError},
		{"line", tracer.Record{Category: "/s/a.py:4", Kind: instrumentation.KindLine, Message: "a.f"}, recorder.LevelTrace},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ToEntry(tt.rec)
			assert.Equal(t, tt.want, e.Level)
			assert.Equal(t, tt.rec.Category, e.Source)
			assert.Equal(t, tt.rec.Message, e.Message)
		})
	}
}

func TestRecorderObserver(t *testing.T) {
	ring := recorder.NewRing(10)
	obs := Recorder(ring, WithSession(func() string { return "s1" }))

	obs.(tracer.RecordObserver).ObserveRecord(tracer.Record{Category: "System", Message: "Tracing ENABLED", System: true})
	obs.Observe("/s/a.py:1", "CALL: a.f")

	entries := ring.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, recorder.LevelInfo, entries[0].Level)
	assert.Equal(t, "System", entries[0].Source)
	assert.Equal(t, "s1", entries[1].Session)
	assert.Equal(t, recorder.LevelTrace, entries[1].Level)
}

func TestLoggerObserver(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs := Logger(WithLogger(l))

	ro := obs.(tracer.RecordObserver)
	ro.ObserveRecord(tracer.Record{Category: "System", Message: "Tracing ENABLED", System: true})
	ro.ObserveRecord(tracer.Record{Category: "/s/a.py:2", Path: "/s/a.py", Line: 2, Name: "a.f", Kind: instrumentation.KindLine, Message: "a.f"})
	ro.ObserveRecord(tracer.Record{Category: "/s/a.py:3", Path: "/s/a.py", Line: 3, Kind: instrumentation.KindException, Message: "EXCEPTION: KeyError: k"})

	out := buf.String()
	assert.Contains(t, out, `level=INFO msg="Tracing ENABLED"`)
	assert.Contains(t, out, "level=DEBUG msg=a.f event=line path=/s/a.py line=2")
	assert.Contains(t, out, `level=WARN msg="EXCEPTION: KeyError: k"`)
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	Logger(WithLogger(l)).Observe("/s/a.py:1", "a.f")
	assert.Empty(t, buf.String())

	Logger(WithLogger(l), WithLevel(slog.LevelInfo)).Observe("/s/a.py:1", "a.f")
	assert.Contains(t, buf.String(), "category=/s/a.py:1")
}

func TestMulti(t *testing.T) {
	var plain []string
	ring := recorder.NewRing(10)
	m := Multi(
		Func(func(string, string) { panic("boom") }),
		nil,
		Func(func(category, message string) { plain = append(plain, category+" "+message) }),
		Recorder(ring),
	)

	m.Observe("/s/a.py:1", "CALL: a.f")
	m.(tracer.RecordObserver).ObserveRecord(tracer.Record{Category: "/s/a.py:2", Kind: instrumentation.KindException, Message: "EXCEPTION: Unknown Exception"})

	assert.Equal(t, []string{"/s/a.py:1 CALL: a.f", "/s/a.py:2 EXCEPTION: Unknown Exception"}, plain)
	entries := ring.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, recorder.LevelError, entries[1].Level)
}
