package manager

import (
	"sync"
	"time"
)

// debouncer defers a function per key until a quiet period elapses. A repeat
// call for the same key restarts the wait, so rapid triggers coalesce.
type debouncer struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	delay  time.Duration
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		timers: make(map[string]*time.Timer),
		delay:  delay,
	}
}

func (d *debouncer) trigger(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, ok := d.timers[key]; ok {
		timer.Stop()
	}

	d.timers[key] = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		delete(d.timers, key)
		d.mu.Unlock()
		fn()
	})
}

func (d *debouncer) cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, ok := d.timers[key]; ok {
		timer.Stop()
		delete(d.timers, key)
	}
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, timer := range d.timers {
		timer.Stop()
		delete(d.timers, key)
	}
}
