// Package key provides the key event types the completion engine and its
// displays consume.
//
//   - Key: identifies a keyboard key (special keys, function keys, or runes)
//   - Modifier: modifier keys (Ctrl, Alt, Shift, Meta)
//   - Event: a single key press with modifiers and timestamp
//
// Key specifications such as "Ctrl+Space", "<C-n>" or "Enter" can be parsed
// with Parse, which is how completion key bindings are configured.
// FromTcell converts terminal events delivered by tcell.
package key
