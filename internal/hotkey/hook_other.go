//go:build !linux

package hotkey

import (
	hk "golang.design/x/hotkey"
)

// registeredHook binds Ctrl+Shift+Space through the OS hotkey facility on
// macOS and Windows.
type registeredHook struct {
	hk      *hk.Hotkey
	keydown chan struct{}
	keyup   chan struct{}
	quit    chan struct{}
}

func newPlatformHook() Hook {
	return &registeredHook{
		hk:      hk.New([]hk.Modifier{hk.ModCtrl, hk.ModShift}, hk.KeySpace),
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
}

func (h *registeredHook) Register() error {
	if err := h.hk.Register(); err != nil {
		return err
	}
	h.quit = make(chan struct{})
	go h.forward(h.hk.Keydown(), h.keydown)
	go h.forward(h.hk.Keyup(), h.keyup)
	return nil
}

func (h *registeredHook) Unregister() {
	if h.quit != nil {
		close(h.quit)
	}
	h.hk.Unregister()
}

func (h *registeredHook) Keydown() <-chan struct{} { return h.keydown }
func (h *registeredHook) Keyup() <-chan struct{}   { return h.keyup }

func (h *registeredHook) forward(from <-chan hk.Event, to chan<- struct{}) {
	for {
		select {
		case <-h.quit:
			return
		case <-from:
			select {
			case to <- struct{}{}:
			default:
			}
		}
	}
}
