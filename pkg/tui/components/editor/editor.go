// Package editor is the terminal markdown editor hosting the attachment
// pipeline.
package editor

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textarea"
	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"

	mdeditor "github.com/docker/mdattach/pkg/editor"
	"github.com/docker/mdattach/pkg/tui/styles"
)

// Editor is a textarea backed by an editor.Buffer. The buffer is the source
// of truth: uploads resolving in the background edit it directly through
// the Bridge methods, and the textarea is resynchronized before every
// update. Everything entering the buffer is normalized first, so the buffer
// and the textarea always hold the same text.
type Editor struct {
	*mdeditor.Buffer

	textarea       textarea.Model
	focusRequested atomic.Bool
	normalized     bool
	width          int
	height         int
}

var _ mdeditor.Bridge = (*Editor)(nil)

// New creates an editor holding the normalized content with the cursor at
// the start.
func New(content string) *Editor {
	ta := textarea.New()
	ta.SetStyles(styles.InputStyle)
	ta.Placeholder = "Start writing, drop or paste files to attach them..."
	ta.Prompt = ""
	ta.CharLimit = -1
	ta.MaxHeight = MaxLines
	ta.ShowLineNumbers = true
	ta.SetWidth(80)
	ta.SetHeight(20)
	ta.Focus()

	text := Normalize(content)
	e := &Editor{
		Buffer:     mdeditor.NewBuffer(text),
		textarea:   ta,
		normalized: text != content,
		width:      80,
		height:     20,
	}
	e.SetCursor(mdeditor.Position{})
	e.sync()
	return e
}

// Normalized reports whether New had to rewrite tabs, line endings or
// control characters of the content it was given.
func (e *Editor) Normalized() bool {
	return e.normalized
}

// ReplaceSelection implements editor.Bridge.
func (e *Editor) ReplaceSelection(text string) {
	e.Buffer.ReplaceSelection(Normalize(text))
}

// ReplaceRange implements editor.Bridge.
func (e *Editor) ReplaceRange(text string, start, end mdeditor.Position) {
	e.Buffer.ReplaceRange(Normalize(text), start, end)
}

func (e *Editor) Init() tea.Cmd {
	return textarea.Blink
}

// Focus implements editor.Bridge. It may be called from any goroutine, so
// the textarea regains focus on the next update.
func (e *Editor) Focus() {
	e.Buffer.Focus()
	e.focusRequested.Store(true)
}

// FocusInput gives keyboard focus back to the textarea.
func (e *Editor) FocusInput() tea.Cmd {
	return e.textarea.Focus()
}

// BlurInput removes keyboard focus, while a prompt is open.
func (e *Editor) BlurInput() {
	e.textarea.Blur()
}

func (e *Editor) Update(msg tea.Msg) (*Editor, tea.Cmd) {
	var cmds []tea.Cmd
	if e.focusRequested.Swap(false) {
		cmds = append(cmds, e.textarea.Focus())
	}
	e.sync()

	switch msg := msg.(type) {
	case tea.PasteMsg:
		e.HandlePaste(msg.Content)
		e.sync()
		return e, tea.Batch(cmds...)

	case tea.KeyPressMsg:
		if key.Matches(msg, e.textarea.KeyMap.Paste) {
			e.handleClipboardPaste()
			e.sync()
			return e, tea.Batch(cmds...)
		}
		cmds = append(cmds, e.handleKey(msg))
		return e, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	e.textarea, cmd = e.textarea.Update(msg)
	cmds = append(cmds, cmd)
	return e, tea.Batch(cmds...)
}

// handleKey forwards a key to the textarea and commits the result to the
// buffer. Keys are dropped while the buffer is read-only.
func (e *Editor) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	var cmd tea.Cmd
	err := e.Edit(func(text string, cursor mdeditor.Position) (string, mdeditor.Position) {
		e.load(text, cursor)
		e.textarea, cmd = e.textarea.Update(msg)
		// Lossless: the buffer only ever holds normalized text.
		return e.textarea.Value(), e.cursor()
	})
	if errors.Is(err, mdeditor.ErrReadOnly) {
		slog.Debug("Key ignored while the editor is read-only", "key", msg.String())
		e.sync()
		return nil
	}
	return cmd
}

// HandlePaste turns pasted file paths into a drop, a pasted link into a
// link drop, and anything else into a paste event. Text is inserted unless
// a handler consumed it.
func (e *Editor) HandlePaste(content string) {
	if content == "" {
		return
	}
	if files := droppedFiles(content); len(files) > 0 {
		slog.Debug("Paste recognized as a file drop", "files", len(files))
		e.Drop(&mdeditor.Event{Files: files})
		return
	}
	if link := droppedURL(content); link != "" {
		ev := &mdeditor.Event{URL: link}
		e.Drop(ev)
		if ev.DefaultPrevented() {
			slog.Debug("Paste recognized as a link drop")
			return
		}
	}
	if err := e.Paste(&mdeditor.Event{Text: Normalize(content)}); err != nil {
		slog.Debug("Paste ignored", "error", err)
	}
}

func (e *Editor) handleClipboardPaste() {
	content, err := clipboard.ReadAll()
	if err != nil {
		slog.Warn("Failed to read clipboard", "error", err)
		return
	}
	e.HandlePaste(content)
}

// sync copies the buffer into the textarea.
func (e *Editor) sync() {
	text, cursor := e.Snapshot()
	e.load(text, cursor)
}

func (e *Editor) load(text string, cursor mdeditor.Position) {
	if e.textarea.Value() != text {
		e.textarea.SetValue(text)
	}
	if e.cursor() == cursor {
		return
	}

	e.textarea.MoveToBegin()
	// CursorDown moves by visual row, wrapped lines take more than one.
	for range len(text) + 1 {
		if e.textarea.Line() >= cursor.Line {
			break
		}
		e.textarea.CursorDown()
	}
	e.textarea.CursorStart()
	e.textarea.SetCursorColumn(cursor.Column)
}

// cursor returns the textarea cursor as a document position.
func (e *Editor) cursor() mdeditor.Position {
	info := e.textarea.LineInfo()
	return mdeditor.Position{
		Line:   e.textarea.Line(),
		Column: info.StartColumn + info.ColumnOffset,
	}
}

func (e *Editor) View() string {
	style := styles.EditorStyle
	if e.ReadOnly() {
		style = styles.ReadOnlyEditorStyle
	}
	return style.Render(e.textarea.View())
}

// RefreshStyles reapplies the current theme.
func (e *Editor) RefreshStyles() {
	e.textarea.SetStyles(styles.InputStyle)
}

// SetSize sets the outer size of the editor, border included.
func (e *Editor) SetSize(width, height int) {
	e.width = width
	e.height = height
	e.textarea.SetWidth(max(width, 10))
	e.textarea.SetHeight(max(height-styles.EditorStyle.GetVerticalFrameSize(), 1))
}

func (e *Editor) GetSize() (width, height int) {
	return e.width, e.height
}
