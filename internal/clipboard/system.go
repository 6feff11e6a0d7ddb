//go:build !js

package clipboard

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// SystemSlot stores the payload on the operating system clipboard so it
// survives across processes. It needs xclip/xsel/wl-clipboard on Linux.
type SystemSlot struct{}

func (SystemSlot) Write(data []byte) error {
	if err := clipboard.WriteAll(string(data)); err != nil {
		return fmt.Errorf("write system clipboard: %w", err)
	}
	return nil
}

func (SystemSlot) Read() ([]byte, error) {
	s, err := clipboard.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read system clipboard: %w", err)
	}
	return []byte(s), nil
}

// SystemAvailable reports whether the OS clipboard can be used.
func SystemAvailable() bool {
	return !clipboard.Unsupported
}
