// Package hotkey listens for the global Ctrl+Shift+R record shortcut.
package hotkey

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

// Combo is the human-readable shortcut, for help text and diagnostics.
const Combo = "Ctrl+Shift+R"

// Presses turns keydowns into calls of fn until done is closed. Key repeat
// is already folded by the platform listeners, so one press is one call.
func Presses(hk Hotkey, done <-chan struct{}, fn func()) {
	for {
		select {
		case <-done:
			return
		case <-hk.Keydown():
			fn()
		case <-hk.Keyup():
		}
	}
}
