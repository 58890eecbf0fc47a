// Package hotkey turns global key state into debounced activate/deactivate
// edges for the dictation pipeline.
package hotkey

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrHookUnavailable reports that the platform hook could not be installed,
// typically missing input-device permissions or an unsupported compositor.
var ErrHookUnavailable = errors.New("global hotkey hook unavailable")

// Hook is the platform layer: it watches global input and reports raw
// keydown/keyup signals for the dictation chord.
type Hook interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

// stopGrace bounds how long Stop waits for the listener goroutine before
// detaching it.
const stopGrace = 2 * time.Second

// Listener owns the background listener goroutine and debounces raw key
// signals into exactly one Activate/Deactivate pair per physical press.
// Callbacks run on the listener goroutine.
type Listener struct {
	hook Hook

	mu           sync.Mutex
	running      bool
	onActivate   func()
	onDeactivate func()

	stop chan struct{}
	done chan struct{}
}

// NewListener wraps a platform hook. A nil hook selects the platform default.
func NewListener(hook Hook) *Listener {
	if hook == nil {
		hook = newPlatformHook()
	}
	return &Listener{hook: hook}
}

// SetCallbacks installs the edge callbacks. Either may be nil, which simply
// suppresses delivery of that edge. Safe to call while running.
func (l *Listener) SetCallbacks(onActivate, onDeactivate func()) {
	l.mu.Lock()
	l.onActivate = onActivate
	l.onDeactivate = onDeactivate
	l.mu.Unlock()
}

// Start registers the global hook and spawns the listener goroutine.
// Calling Start while running is a no-op.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return nil
	}
	if err := l.hook.Register(); err != nil {
		return fmt.Errorf("register global hotkey: %w: %w", ErrHookUnavailable, err)
	}

	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	l.running = true
	go l.listen(l.stop, l.done)
	return nil
}

// Stop unregisters the hook and waits briefly for the listener goroutine.
// Calling Stop when not running is a no-op.
func (l *Listener) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	stop, done := l.stop, l.done
	l.mu.Unlock()

	close(stop)
	l.hook.Unregister()

	select {
	case <-done:
	case <-time.After(stopGrace):
		// Listener goroutine is wedged inside the hook; detach it.
	}
}

// IsRunning reports whether the listener goroutine is active.
func (l *Listener) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// listen translates raw key signals into debounced edges. A held key may
// repeat keydown signals; only the first one before a keyup fires Activate.
func (l *Listener) listen(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	active := false
	for {
		select {
		case <-stop:
			return
		case <-l.hook.Keydown():
			if active {
				continue
			}
			active = true
			fire(l.snapshotActivate())
		case <-l.hook.Keyup():
			if !active {
				continue
			}
			active = false
			fire(l.snapshotDeactivate())
		}
	}
}

func (l *Listener) snapshotActivate() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.onActivate
}

func (l *Listener) snapshotDeactivate() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.onDeactivate
}

func fire(cb func()) {
	if cb != nil {
		cb()
	}
}
