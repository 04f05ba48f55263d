package textbuf

import (
	"fmt"
	"os"

	"github.com/dshills/ksense/internal/syntax"
)

// Load reads a file into a new buffer, detecting its language from the name.
// A missing file yields an empty buffer bound to that name.
func Load(path string, opts ...Option) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	b := New("", WithFilename(path), WithLanguage(syntax.DetectLanguage(path)))
	b.SetText(string(data))
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Save writes the buffer to its file.
func (b *Buffer) Save() error {
	if b.filename == "" {
		return fmt.Errorf("save: buffer has no file name")
	}
	if err := os.WriteFile(b.filename, []byte(b.Text()), 0o644); err != nil {
		return fmt.Errorf("save %s: %w", b.filename, err)
	}
	return nil
}
