package fs

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/quotesync/pkg/core"
)

func TestDebouncerCoalescesBursts(t *testing.T) {
	d := newDebouncer(30 * time.Millisecond)

	var mu sync.Mutex
	var fired []core.Event
	fire := func(e core.Event) {
		mu.Lock()
		fired = append(fired, e)
		mu.Unlock()
	}

	for i := 0; i < 5; i++ {
		d.add(core.Event{Type: core.EventExternal}, fire)
	}
	d.add(core.Event{Type: core.EventExternal, ID: "other"}, fire)

	time.Sleep(150 * time.Millisecond)
	assert.True(t, d.stopAndWait(time.Second))

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, fired, 2)
}

func TestDebouncerStopDropsPending(t *testing.T) {
	d := newDebouncer(time.Hour)
	called := false
	d.add(core.Event{Type: core.EventExternal}, func(core.Event) { called = true })

	assert.True(t, d.stopAndWait(time.Second))
	assert.False(t, called)

	// Adds after stop are ignored.
	d.add(core.Event{Type: core.EventExternal}, func(core.Event) { called = true })
	assert.False(t, called)
}
