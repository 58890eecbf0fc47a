//go:build linux

package hotkey

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// The dictation chord is Ctrl+Shift+Space. Wayland compositors offer no
// portable registration API, so the hook reads evdev key events directly.
const (
	evKey      = 1
	keyPress   = 1
	keyRelease = 0
	keyLCtrl   = 29
	keyRCtrl   = 97
	keyLShift  = 42
	keyRShift  = 54
	keySpace   = 57
)

const inputEventSize = 24

type evdevHook struct {
	keydown chan struct{}
	keyup   chan struct{}
	files   []*os.File
	quit    chan struct{}
	once    sync.Once
}

func newPlatformHook() Hook {
	return &evdevHook{
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
}

func (h *evdevHook) Register() error {
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	h.quit = make(chan struct{})

	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		h.files = append(h.files, f)
		go h.readEvents(f)
	}

	if len(h.files) == 0 {
		return fmt.Errorf("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}

	return nil
}

func (h *evdevHook) Unregister() {
	h.once.Do(func() {
		if h.quit != nil {
			close(h.quit)
		}
		for _, f := range h.files {
			f.Close()
		}
	})
}

func (h *evdevHook) Keydown() <-chan struct{} { return h.keydown }
func (h *evdevHook) Keyup() <-chan struct{}   { return h.keyup }

func (h *evdevHook) readEvents(f *os.File) {
	buf := make([]byte, inputEventSize*16)
	var ctrlHeld, shiftHeld, spaceHeld bool

	for {
		select {
		case <-h.quit:
			return
		default:
		}

		n, err := f.Read(buf)
		if err != nil {
			return
		}

		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			evType := binary.LittleEndian.Uint16(buf[i+16:])
			evCode := binary.LittleEndian.Uint16(buf[i+18:])
			evValue := int32(binary.LittleEndian.Uint32(buf[i+20:]))

			if evType != evKey {
				continue
			}

			pressed := evValue == keyPress
			released := evValue == keyRelease

			switch evCode {
			case keyLCtrl, keyRCtrl:
				ctrlHeld = pressed || (!released && ctrlHeld)
			case keyLShift, keyRShift:
				shiftHeld = pressed || (!released && shiftHeld)
			case keySpace:
				if pressed && !spaceHeld && ctrlHeld && shiftHeld {
					spaceHeld = true
					select {
					case h.keydown <- struct{}{}:
					default:
					}
				} else if released && spaceHeld {
					spaceHeld = false
					select {
					case h.keyup <- struct{}{}:
					default:
					}
				}
			}
		}
	}
}

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}

	var keyboards []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		if isKeyboard(e.Name()) {
			keyboards = append(keyboards, filepath.Join("/dev/input", e.Name()))
		}
	}
	return keyboards, nil
}

// isKeyboard filters event devices by the breadth of their key capability
// bitmap; pointers and buttons report only a handful of bits.
func isKeyboard(eventName string) bool {
	capsPath := filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key")
	data, err := os.ReadFile(capsPath)
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(data))) > 10
}
