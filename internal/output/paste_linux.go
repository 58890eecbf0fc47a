//go:build linux

package output

import (
	"sync"
	"time"

	"github.com/micmonay/keybd_event"
)

var (
	kb     keybd_event.KeyBonding
	kbOnce sync.Once
	kbErr  error
)

func initKeyBonding() error {
	kbOnce.Do(func() {
		kb, kbErr = keybd_event.NewKeyBonding()
		if kbErr == nil {
			// uinput devices need a moment to register before events land.
			time.Sleep(2 * time.Second)
		}
	})
	return kbErr
}

// synthesizePaste sends Ctrl+V to the focused window.
func synthesizePaste() error {
	if err := initKeyBonding(); err != nil {
		return err
	}
	kb.SetKeys(keybd_event.VK_V)
	kb.HasCTRL(true)
	return kb.Launching()
}
