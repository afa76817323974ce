package tracer

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/scripttrace/pkg/instrumentation"
)

type collector struct {
	mu   sync.Mutex
	cats []string
	msgs []string
}

func (c *collector) Observe(category, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cats = append(c.cats, category)
	c.msgs = append(c.msgs, message)
}

func (c *collector) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.msgs...)
}

type recordCollector struct {
	recs []Record
}

func (r *recordCollector) Observe(string, string) { panic("ObserveRecord should be preferred") }
func (r *recordCollector) ObserveRecord(rec Record) { r.recs = append(r.recs, rec) }

func sampleRecord(msg string) Record {
	return Record{Category: "/s/a.py:1", Path: "/s/a.py", Line: 1, Name: "a", Kind: instrumentation.KindLine, Message: msg}
}

func TestBridgeFallback(t *testing.T) {
	var buf bytes.Buffer
	b := NewBridge(&Binding{}, WithFallback(&buf))

	assert.NotPanics(t, func() {
		b.Deliver(sampleRecord("a"))
		b.Deliver(Record{Category: SystemCategory, Message: "Tracing ENABLED", System: true})
	})
	assert.Equal(t, "[/s/a.py:1] a\n[System] Tracing ENABLED\n", buf.String())
}

func TestBridgeLateBinding(t *testing.T) {
	var buf bytes.Buffer
	binding := &Binding{}
	b := NewBridge(binding, WithFallback(&buf))

	b.Deliver(sampleRecord("before"))

	c := &collector{}
	binding.Bind(c)
	b.Deliver(sampleRecord("bound"))

	binding.Unbind()
	b.Deliver(sampleRecord("after"))

	assert.Equal(t, []string{"bound"}, c.messages())
	assert.Equal(t, "[/s/a.py:1] before\n[/s/a.py:1] after\n", buf.String())
}

func TestBridgeBindNil(t *testing.T) {
	binding := &Binding{}
	binding.Bind(&collector{})
	binding.Bind(nil)
	assert.Nil(t, binding.Current())
}

func TestBridgeSwallowsObserverPanic(t *testing.T) {
	binding := &Binding{}
	binding.Bind(ObserverFunc(func(string, string) { panic("observer broke") }))
	b := NewBridge(binding)

	assert.NotPanics(t, func() {
		b.Deliver(sampleRecord("x"))
		b.Deliver(sampleRecord("y"))
	})
	assert.Equal(t, uint64(2), b.Dropped())
}

func TestBridgePrefersRecordObserver(t *testing.T) {
	binding := &Binding{}
	rc := &recordCollector{}
	binding.Bind(rc)
	b := NewBridge(binding)

	b.Deliver(sampleRecord("x"))
	require.Len(t, rc.recs, 1)
	assert.Equal(t, "a", rc.recs[0].Name)
	assert.Zero(t, b.Dropped())
}

func TestBridgeDeliveryTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	binding := &Binding{}
	binding.Bind(ObserverFunc(func(string, string) { <-release }))
	b := NewBridge(binding, WithDeliveryTimeout(20*time.Millisecond))

	start := time.Now()
	b.Deliver(sampleRecord("stuck"))
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, uint64(1), b.Dropped())
}

func TestBridgeDeliveryTimeoutFastObserver(t *testing.T) {
	c := &collector{}
	binding := &Binding{}
	binding.Bind(c)
	b := NewBridge(binding, WithDeliveryTimeout(time.Second))

	b.Deliver(sampleRecord("one"))
	b.Deliver(sampleRecord("two"))
	assert.Equal(t, []string{"one", "two"}, c.messages())
	assert.Zero(t, b.Dropped())
}

func TestBridgeTimedOutPanicCountedOnce(t *testing.T) {
	release := make(chan struct{})
	panicking := make(chan struct{})

	binding := &Binding{}
	binding.Bind(ObserverFunc(func(string, string) {
		<-release
		close(panicking)
		panic("late failure")
	}))
	b := NewBridge(binding, WithDeliveryTimeout(10*time.Millisecond))

	b.Deliver(sampleRecord("stuck"))
	require.Equal(t, uint64(1), b.Dropped())

	close(release)
	<-panicking
	assert.Never(t, func() bool { return b.Dropped() != 1 }, 100*time.Millisecond, 5*time.Millisecond)
}
