package editor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mdeditor "github.com/docker/mdattach/pkg/editor"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestEditor_TypingUpdatesBuffer(t *testing.T) {
	t.Parallel()

	e := New("")
	_, _ = e.Update(tea.KeyPressMsg{Text: "h"})
	_, _ = e.Update(tea.KeyPressMsg{Text: "i"})

	assert.Equal(t, "hi", e.Value())
	assert.Equal(t, mdeditor.Position{Line: 0, Column: 2}, e.GetCursor())
}

func TestEditor_ReadOnlySuppressesKeys(t *testing.T) {
	t.Parallel()

	e := New("locked")
	e.SetReadOnly(true)

	_, _ = e.Update(tea.KeyPressMsg{Text: "x"})
	assert.Equal(t, "locked", e.Value())

	e.SetReadOnly(false)
	_, _ = e.Update(tea.KeyPressMsg{Text: "x"})
	assert.Equal(t, "xlocked", e.Value())
}

func TestEditor_BridgeEditsShowAfterUpdate(t *testing.T) {
	t.Parallel()

	e := New("one\ntwo")
	e.ReplaceRange("2", mdeditor.Position{Line: 1, Column: 0}, mdeditor.Position{Line: 1, Column: 3})

	_, _ = e.Update(nil)
	assert.Equal(t, "one\n2", e.textarea.Value())
}

func TestEditor_PasteTextIsInserted(t *testing.T) {
	t.Parallel()

	e := New("")
	_, _ = e.Update(tea.PasteMsg{Content: "just some words"})

	assert.Equal(t, "just some words", e.Value())
}

func TestEditor_PasteOfPathsBecomesDrop(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeFile(t, dir, "a.png", "aaaa")
	b := writeFile(t, dir, "b c.png", "bb")

	e := New("doc")
	var dropped []string
	h := mdeditor.NewHandler(func(ev *mdeditor.Event) {
		for _, f := range ev.Files {
			dropped = append(dropped, f.Name)
		}
		ev.PreventDefault()
	})
	e.On(mdeditor.EventDrop, h)

	_, _ = e.Update(tea.PasteMsg{Content: a + " '" + b + "'\n"})

	assert.Equal(t, []string{"a.png", "b c.png"}, dropped)
	assert.Equal(t, "doc", e.Value(), "dropped paths are not inserted as text")
}

func TestEditor_FocusIsAppliedOnUpdate(t *testing.T) {
	t.Parallel()

	e := New("")
	e.BlurInput()
	assert.False(t, e.textarea.Focused())

	e.Focus()
	assert.Equal(t, 1, e.FocusCount())

	_, _ = e.Update(nil)
	assert.True(t, e.textarea.Focused())
}

func TestSplitWords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"/a/b.png", []string{"/a/b.png"}},
		{"/a/b\\ c.png /d.txt", []string{"/a/b c.png", "/d.txt"}},
		{"'/tmp/it''s.png'", []string{"/tmp/its.png"}},
		{"\"/x y/z.md\"\n/w.md", []string{"/x y/z.md", "/w.md"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitWords(tt.in), "input %q", tt.in)
	}
}

func TestDroppedFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "notes.md", "# notes")

	files := droppedFiles("file://" + path)
	require.Len(t, files, 1)
	assert.Equal(t, "notes.md", files[0].Name)

	assert.Nil(t, droppedFiles(path+" "+filepath.Join(dir, "missing.md")))
	assert.Nil(t, droppedFiles(dir), "directories are not attachments")
	assert.Nil(t, droppedFiles("hello world"))
}

func TestParseFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "a")

	files, err := ParseFiles("  " + a + "  ")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, int64(1), files[0].SizeBytes)

	_, err = ParseFiles("   ")
	require.Error(t, err)

	_, err = ParseFiles(filepath.Join(dir, "nope.txt"))
	require.Error(t, err)
}

func TestEditor_TabsAndLineEndingsAreConvertedOnLoad(t *testing.T) {
	t.Parallel()

	e := New("a\tb\nline two\r\nthree")
	assert.True(t, e.Normalized())
	assert.Equal(t, "a    b\nline two\nthree", e.Value())

	_, _ = e.Update(tea.KeyPressMsg{Code: tea.KeyRight})
	assert.Equal(t, "a    b\nline two\nthree", e.Value(), "moving the cursor does not edit the document")
	assert.Equal(t, e.textarea.Value(), e.Value())
}

func TestEditor_PlainDocumentIsKeptAsIs(t *testing.T) {
	t.Parallel()

	const doc = "# Title\n\nsome text\n"
	e := New(doc)
	assert.False(t, e.Normalized())

	_, _ = e.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	_, _ = e.Update(tea.KeyPressMsg{Code: tea.KeyRight})
	assert.Equal(t, doc, e.Value())
}

func TestEditor_LongDocumentIsNotTruncated(t *testing.T) {
	t.Parallel()

	doc := strings.Repeat("line\n", 500)
	e := New(doc)
	_, _ = e.Update(tea.KeyPressMsg{Text: "x"})

	assert.Equal(t, "x"+doc, e.Value())
}

func TestEditor_PastedTabsAreConverted(t *testing.T) {
	t.Parallel()

	e := New("")
	_, _ = e.Update(tea.PasteMsg{Content: "a\tb\r\nc"})

	assert.Equal(t, "a    b\nc", e.Value())
	assert.Equal(t, e.textarea.Value(), e.Value())
}

func TestEditor_BridgeEditsAreConverted(t *testing.T) {
	t.Parallel()

	e := New("")
	e.ReplaceSelection("[a\tb](u)")

	_, _ = e.Update(nil)
	assert.Equal(t, "[a    b](u)", e.Value())
	assert.Equal(t, e.textarea.Value(), e.Value())
}

func TestEditor_PastedLinkBecomesDrop(t *testing.T) {
	t.Parallel()

	e := New("doc")
	var dropped []string
	e.On(mdeditor.EventDrop, mdeditor.NewHandler(func(ev *mdeditor.Event) {
		dropped = append(dropped, ev.URL)
		ev.PreventDefault()
	}))

	_, _ = e.Update(tea.PasteMsg{Content: "https://example.com/docs/a.pdf\n"})

	assert.Equal(t, []string{"https://example.com/docs/a.pdf"}, dropped)
	assert.Equal(t, "doc", e.Value())
}

func TestEditor_PastedLinkWithoutHandlerIsText(t *testing.T) {
	t.Parallel()

	e := New("")
	_, _ = e.Update(tea.PasteMsg{Content: "https://example.com/a.pdf"})

	assert.Equal(t, "https://example.com/a.pdf", e.Value())
}

func TestEditor_PastedBareFileNameIsText(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", "module x")
	t.Chdir(dir)

	e := New("")
	var drops int
	e.On(mdeditor.EventDrop, mdeditor.NewHandler(func(ev *mdeditor.Event) {
		drops++
		ev.PreventDefault()
	}))

	_, _ = e.Update(tea.PasteMsg{Content: "go.mod"})

	assert.Zero(t, drops)
	assert.Equal(t, "go.mod", e.Value())

	_, _ = e.Update(tea.PasteMsg{Content: "./go.mod"})
	assert.Equal(t, 1, drops)
}

func TestDroppedURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com/a.pdf", "https://example.com/a.pdf"},
		{" http://example.com\n", "http://example.com"},
		{"ftp://example.com/a", ""},
		{"https:///a.pdf", ""},
		{"see https://example.com", ""},
		{"example.com/a.pdf", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, droppedURL(tt.in), "input %q", tt.in)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"plain\ntext", "plain\ntext"},
		{"a\tb", "a    b"},
		{"a\r\nb", "a\nb"},
		{"a\rb", "a\nb"},
		{"a\x00b\x1bc", "abc"},
		{"bad\xffbyte", "badbyte"},
		{"", ""},
	}
	for _, tt := range tests {
		got := Normalize(tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
		assert.Equal(t, got, Normalize(got), "idempotent for %q", tt.in)
	}
}
