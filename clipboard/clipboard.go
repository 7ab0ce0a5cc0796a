// Package clipboard copies message text to the system clipboard.
package clipboard

import (
	"fmt"

	cb "github.com/atotto/clipboard"
)

// Available reports whether a clipboard backend (xclip, xsel, wl-copy,
// pbcopy, or the Windows API) was found.
func Available() bool { return !cb.Unsupported }

func Copy(text string) error {
	if err := cb.WriteAll(text); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	return nil
}

func Read() (string, error) {
	s, err := cb.ReadAll()
	if err != nil {
		return "", fmt.Errorf("clipboard: %w", err)
	}
	return s, nil
}
