package editor

import (
	"errors"
	"strings"
	"sync"
	"unicode/utf8"
)

var ErrReadOnly = errors.New("editor is read-only")

// Buffer is an in-memory, goroutine-safe Bridge. It backs headless
// insertions and tests.
type Buffer struct {
	*Events

	mu       sync.Mutex
	text     string
	anchor   int // byte offsets; the selection is [min(anchor, head), max(anchor, head))
	head     int
	readOnly bool
	focused  int
}

var _ Bridge = (*Buffer)(nil)

// NewBuffer creates a buffer holding text with the cursor at the end.
func NewBuffer(text string) *Buffer {
	return &Buffer{
		Events: NewEvents(),
		text:   text,
		anchor: len(text),
		head:   len(text),
	}
}

// OffsetOf converts pos into a byte offset in text. Out-of-range lines and
// columns are clamped to the end of the document or of the line.
func OffsetOf(text string, pos Position) int {
	if pos.Line < 0 {
		return 0
	}
	offset := 0
	for range pos.Line {
		nl := strings.IndexByte(text[offset:], '\n')
		if nl < 0 {
			return len(text)
		}
		offset += nl + 1
	}

	line := text[offset:]
	if nl := strings.IndexByte(line, '\n'); nl >= 0 {
		line = line[:nl]
	}
	if pos.Column <= 0 {
		return offset
	}
	col := 0
	for i := range line {
		if col == pos.Column {
			return offset + i
		}
		col++
	}
	return offset + len(line)
}

// PositionOf converts a byte offset in text into a Position.
func PositionOf(text string, offset int) Position {
	offset = min(max(offset, 0), len(text))
	before := text[:offset]
	line := strings.Count(before, "\n")
	lineStart := strings.LastIndexByte(before, '\n') + 1
	return Position{Line: line, Column: utf8.RuneCountInString(before[lineStart:])}
}

func (b *Buffer) selection() (int, int) {
	return min(b.anchor, b.head), max(b.anchor, b.head)
}

// Value returns the whole document.
func (b *Buffer) Value() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

func (b *Buffer) GetCursor() Position {
	b.mu.Lock()
	defer b.mu.Unlock()

	from, _ := b.selection()
	return PositionOf(b.text, from)
}

func (b *Buffer) GetSelection() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	from, to := b.selection()
	return b.text[from:to]
}

// SetCursor collapses the selection at pos.
func (b *Buffer) SetCursor(pos Position) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.anchor = OffsetOf(b.text, pos)
	b.head = b.anchor
}

// Select selects [start, end).
func (b *Buffer) Select(start, end Position) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.anchor = OffsetOf(b.text, start)
	b.head = OffsetOf(b.text, end)
}

func (b *Buffer) ReplaceSelection(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	from, to := b.selection()
	b.splice(from, to, text)
	b.anchor = from + len(text)
	b.head = b.anchor
}

// ReplaceRange replaces the text between start and end, given in either
// order.
func (b *Buffer) ReplaceRange(text string, start, end Position) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if end.Less(start) {
		start, end = end, start
	}
	from, to := OffsetOf(b.text, start), OffsetOf(b.text, end)
	b.splice(from, to, text)
	b.anchor = shiftOffset(b.anchor, from, to, len(text))
	b.head = shiftOffset(b.head, from, to, len(text))
}

func (b *Buffer) splice(from, to int, text string) {
	b.text = b.text[:from] + text + b.text[to:]
}

// shiftOffset maps an offset across the replacement of [from, to) by n bytes.
func shiftOffset(offset, from, to, n int) int {
	switch {
	case offset <= from:
		return offset
	case offset >= to:
		return offset - (to - from) + n
	default:
		return from + n
	}
}

func (b *Buffer) SetReadOnly(readOnly bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readOnly = readOnly
}

func (b *Buffer) ReadOnly() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readOnly
}

func (b *Buffer) Focus() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.focused++
}

// FocusCount returns how many times Focus was called.
func (b *Buffer) FocusCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.focused
}

// Type simulates user input replacing the selection.
func (b *Buffer) Type(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.readOnly {
		return ErrReadOnly
	}
	from, to := b.selection()
	b.splice(from, to, text)
	b.anchor = from + len(text)
	b.head = b.anchor
	return nil
}

// Snapshot returns the document and the cursor (the moving end of the
// selection) under one lock.
func (b *Buffer) Snapshot() (string, Position) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text, PositionOf(b.text, b.head)
}

// Edit applies a user edit atomically: fn gets the document and cursor and
// returns their replacements. The selection collapses at the new cursor.
func (b *Buffer) Edit(fn func(text string, cursor Position) (string, Position)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.readOnly {
		return ErrReadOnly
	}
	text, cursor := fn(b.text, PositionOf(b.text, b.head))
	b.text = text
	b.head = OffsetOf(text, cursor)
	b.anchor = b.head
	return nil
}

// Paste dispatches a paste event and, unless a handler prevented the
// default, inserts its text.
func (b *Buffer) Paste(ev *Event) error {
	ev.Name = EventPaste
	b.Dispatch(ev)
	if ev.DefaultPrevented() || ev.Text == "" {
		return nil
	}
	return b.Type(ev.Text)
}

// Drop dispatches the drag sequence of a drop: dragenter, dragover, drop.
func (b *Buffer) Drop(ev *Event) {
	for _, name := range []EventName{EventDragEnter, EventDragOver} {
		b.Dispatch(&Event{Name: name, Files: ev.Files, URL: ev.URL})
	}
	ev.Name = EventDrop
	b.Dispatch(ev)
}
