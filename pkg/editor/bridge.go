// Package editor defines what the attachment pipeline needs from a host
// editor, and ships an in-memory implementation of it.
package editor

// Bridge is the capability surface the insertion pipeline requires from
// the host editor.
type Bridge interface {
	// GetCursor returns the start of the current selection, or the cursor
	// when nothing is selected.
	GetCursor() Position
	GetSelection() string
	// ReplaceSelection replaces the selection (or inserts at the cursor).
	ReplaceSelection(text string)
	// ReplaceRange replaces [start, end) regardless of where the cursor is.
	ReplaceRange(text string, start, end Position)
	// SetReadOnly toggles suppression of user input. Programmatic edits
	// through the Bridge are still applied while read-only.
	SetReadOnly(readOnly bool)
	ReadOnly() bool
	Focus()
	On(name EventName, h Handler)
	Off(name EventName, h Handler)
}
