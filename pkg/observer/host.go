package observer

import (
	"strconv"

	"github.com/willibrandon/scripttrace/pkg/tracer"
)

// HostSink is the callback a host injects to receive trace lines.
type HostSink interface {
	Trace(file, line, name string)
}

// HostSinkFunc adapts a function to HostSink.
type HostSinkFunc func(file, line, name string)

func (fn HostSinkFunc) Trace(file, line, name string) { fn(file, line, name) }

type host struct {
	sink HostSink
}

// Host forwards each record to sink as (path, line, message). System
// markers carry the "System" category as file and "0" as line.
func Host(sink HostSink) tracer.Observer {
	return &host{sink: sink}
}

func (h *host) Observe(category, message string) {
	h.sink.Trace(category, "0", message)
}

func (h *host) ObserveRecord(rec tracer.Record) {
	if rec.System {
		h.sink.Trace(rec.Category, "0", rec.Message)
		return
	}
	h.sink.Trace(rec.Path, strconv.Itoa(rec.Line), rec.Message)
}
