package clipboard

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileSlot keeps the payload in a file so separate processes can share it
// when no system clipboard is available.
type FileSlot struct {
	Path string
}

func (f FileSlot) Write(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("create clipboard dir: %w", err)
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write clipboard file: %w", err)
	}
	return os.Rename(tmp, f.Path)
}

// Read returns nil for a missing file, which pastes nothing.
func (f FileSlot) Read() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read clipboard file: %w", err)
	}
	return data, nil
}
