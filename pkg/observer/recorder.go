package observer

import (
	"github.com/willibrandon/scripttrace/pkg/instrumentation"
	"github.com/willibrandon/scripttrace/pkg/recorder"
	"github.com/willibrandon/scripttrace/pkg/tracer"
)

type recorderConfig struct {
	session func() string
}

// RecorderOption configures the recorder observer.
type RecorderOption func(*recorderConfig)

// WithSession stamps every entry with the value returned by fn.
func WithSession(fn func() string) RecorderOption {
	return func(c *recorderConfig) {
		c.session = fn
	}
}

type recordObserver struct {
	rec recorder.Recorder
	cfg recorderConfig
}

// Recorder stores records as log entries in rec. Markers become Info
// entries from the System source, exceptions become Error entries and
// everything else is Trace, sourced from the record's category.
// Recording errors are dropped.
func Recorder(rec recorder.Recorder, opts ...RecorderOption) tracer.Observer {
	var cfg recorderConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &recordObserver{rec: rec, cfg: cfg}
}

func (o *recordObserver) Observe(category, message string) {
	o.store(recorder.Entry{Level: recorder.LevelTrace, Source: category, Message: message})
}

func (o *recordObserver) ObserveRecord(rec tracer.Record) {
	o.store(ToEntry(rec))
}

func (o *recordObserver) store(e recorder.Entry) {
	if o.cfg.session != nil {
		e.Session = o.cfg.session()
	}
	_ = o.rec.Record(e)
}

// ToEntry converts a record into an unstamped log entry.
func ToEntry(rec tracer.Record) recorder.Entry {
	e := recorder.Entry{
		Level:   recorder.LevelTrace,
		Source:  rec.Category,
		Message: rec.Message,
	}
	switch {
	case rec.System:
		e.Level = recorder.LevelInfo
	case rec.Kind == instrumentation.KindException:
		e.Level = recorder.LevelError
	}
	return e
}
