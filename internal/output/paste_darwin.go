//go:build darwin

package output

import (
	"sync"

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
	})
	return kbErr
}

// synthesizePaste sends Cmd+V to the focused window.
func synthesizePaste() error {
	if err := initKeyBonding(); err != nil {
		return err
	}
	kb.SetKeys(keybd_event.VK_V)
	kb.HasSuper(true)
	return kb.Launching()
}
