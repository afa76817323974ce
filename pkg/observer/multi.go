package observer

import (
	"github.com/willibrandon/scripttrace/pkg/tracer"
)

// multiObserver fans out records to several observers.
type multiObserver struct {
	observers []tracer.Observer
}

// Multi creates an observer that forwards every record to each of obs in
// order. A panicking observer is skipped and the rest still run.
func Multi(obs ...tracer.Observer) tracer.Observer {
	kept := make([]tracer.Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			kept = append(kept, o)
		}
	}
	return &multiObserver{observers: kept}
}

func (m *multiObserver) Observe(category, message string) {
	for _, o := range m.observers {
		safely(func() { o.Observe(category, message) })
	}
}

func (m *multiObserver) ObserveRecord(rec tracer.Record) {
	for _, o := range m.observers {
		safely(func() {
			if ro, ok := o.(tracer.RecordObserver); ok {
				ro.ObserveRecord(rec)
				return
			}
			o.Observe(rec.Category, rec.Message)
		})
	}
}

// Func adapts fn to tracer.Observer.
func Func(fn func(category, message string)) tracer.Observer {
	return tracer.ObserverFunc(fn)
}

func safely(fn func()) {
	defer func() {
		_ = recover()
	}()
	fn()
}
