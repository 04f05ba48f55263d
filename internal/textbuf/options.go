package textbuf

// Option is a functional option for configuring a Buffer.
type Option func(*Buffer)

// WithLanguage sets the initial language id.
func WithLanguage(language string) Option {
	return func(b *Buffer) {
		b.language = language
	}
}

// WithFilename records the backing file name.
func WithFilename(name string) Option {
	return func(b *Buffer) {
		b.filename = name
	}
}

// WithCursor places the initial cursor.
func WithCursor(offset int) Option {
	return func(b *Buffer) {
		b.cursor.offset = clamp(offset, 0, b.Len())
		b.selection.offset = b.cursor.offset
	}
}
