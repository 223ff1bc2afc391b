// Package tui is the terminal markdown editor: a document, a status line
// following the attachment sequences, and prompts to attach files or links.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/mattn/go-runewidth"

	mdeditor "github.com/docker/mdattach/pkg/editor"
	"github.com/docker/mdattach/pkg/insert"
	"github.com/docker/mdattach/pkg/tui/components/editor"
	"github.com/docker/mdattach/pkg/tui/styles"
)

// ProgressMsg wraps an insertion progress event for the program.
type ProgressMsg insert.Progress

// NoticeMsg is a blocking notice, like the size limit being exceeded.
type NoticeMsg struct {
	Text string
}

type savedMsg struct {
	content string
	err     error
}

// DroppedURLs queues the links dropped on the document until the program
// picks them up. Receive is meant for insert.WithDroppedURL: the controller
// calls it from inside an editor event, where the dialog cannot run.
type DroppedURLs struct {
	mu   sync.Mutex
	urls []string
}

func (d *DroppedURLs) Receive(_ mdeditor.Bridge, url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, url)
}

func (d *DroppedURLs) next() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.urls) == 0 {
		return "", false
	}
	url := d.urls[0]
	d.urls = d.urls[1:]
	return url, true
}

// Opt configures the application.
type Opt func(*appModel)

// WithDroppedURLs inserts the links queued in d through the dialog, so a
// link without a name opens the link prompt.
func WithDroppedURLs(d *DroppedURLs) Opt {
	return func(a *appModel) {
		a.drops = d
	}
}

// SaveFunc writes the document back to where it was loaded from.
type SaveFunc func(content string) error

type appModel struct {
	ctx        context.Context
	name       string
	editor     *editor.Editor
	controller *insert.Controller
	dialog     *insert.Dialog
	save       SaveFunc
	keyMap     KeyMap
	drops      *DroppedURLs
	// dropping is set while a dropped link goes through the dialog.
	dropping   bool

	prompt *prompt
	notice string
	status string
	// statusStyle renders status, it follows the last sequence outcome.
	statusStyle lipgloss.Style
	saved       string

	width, height int
}

// New creates the editor application for the document called name. The
// controller must be bound to ed. ctx bounds insertions started from the
// prompts.
func New(ctx context.Context, name string, ed *editor.Editor, c *insert.Controller, save SaveFunc, opts ...Opt) tea.Model {
	a := &appModel{
		ctx:         ctx,
		name:        name,
		editor:      ed,
		controller:  c,
		dialog:      insert.NewDialog(c, ed),
		save:        save,
		keyMap:      DefaultKeyMap(),
		statusStyle: styles.MutedStyle,
		saved:       ed.Value(),
		width:       80,
		height:      24,
	}
	for _, opt := range opts {
		opt(a)
	}
	if ed.Normalized() {
		a.setStatus("Tabs and line endings converted, saving writes them converted", styles.WarningStyle)
	}
	return a
}

func (a *appModel) Init() tea.Cmd {
	return a.editor.Init()
}

func (a *appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height

	case ProgressMsg:
		cmd = a.handleProgress(insert.Progress(msg))

	case NoticeMsg:
		a.notice = msg.Text

	case insertedMsg:
		if msg.DroppedURL != "" {
			a.dropping = false
		}
		cmd = a.handleInserted(msg)

	case savedMsg:
		if msg.err != nil {
			slog.Error("Failed to save document", "name", a.name, "error", msg.err)
			a.setStatus("Save failed: "+msg.err.Error(), styles.ErrorStyle)
		} else {
			a.saved = msg.content
			a.setStatus("Saved "+a.name, styles.SuccessStyle)
		}

	case tea.KeyPressMsg:
		cmd = a.handleKeyPressMsg(msg)

	case tea.PasteMsg:
		if a.prompt != nil {
			cmd = a.prompt.Update(a.ctx, msg)
		} else {
			a.editor, cmd = a.editor.Update(msg)
		}

	default:
		a.editor, cmd = a.editor.Update(msg)
	}

	if drop := a.nextDrop(); drop != nil {
		cmd = tea.Batch(cmd, drop)
	}
	a.layout()
	return a, cmd
}

// nextDrop submits the oldest dropped link through the dialog. Links wait
// in the queue while the prompt is open or another drop is in flight.
func (a *appModel) nextDrop() tea.Cmd {
	if a.drops == nil || a.dropping || a.prompt != nil {
		return nil
	}
	url, ok := a.drops.next()
	if !ok {
		return nil
	}
	a.dropping = true
	a.dialog.Reset()
	dialog, ctx := a.dialog, a.ctx
	return func() tea.Msg {
		res, _, err := dialog.SetLink(ctx, url, insert.SourceDrop)
		return insertedMsg{Result: res, Err: err, DroppedURL: url}
	}
}

func (a *appModel) handleKeyPressMsg(msg tea.KeyPressMsg) tea.Cmd {
	if key.Matches(msg, a.keyMap.Quit) {
		a.dialog.Cancel()
		return tea.Quit
	}

	if a.notice != "" {
		// The notice blocks input until it is acknowledged.
		if key.Matches(msg, a.keyMap.Dismiss) || msg.String() == "enter" {
			a.notice = ""
		}
		return nil
	}

	if a.prompt != nil {
		if key.Matches(msg, a.prompt.keyMap.Cancel) {
			return a.closePrompt()
		}
		return a.prompt.Update(a.ctx, msg)
	}

	switch {
	case key.Matches(msg, a.keyMap.Save):
		return a.saveCmd()
	case key.Matches(msg, a.keyMap.AttachFile):
		return a.openPrompt(insert.TabLocal)
	case key.Matches(msg, a.keyMap.AttachLink):
		return a.openPrompt(insert.TabRemote)
	case key.Matches(msg, a.keyMap.ToggleTheme):
		styles.ToggleTheme()
		a.editor.RefreshStyles()
		return nil
	}

	var cmd tea.Cmd
	a.editor, cmd = a.editor.Update(msg)
	return cmd
}

func (a *appModel) openPrompt(tab insert.Tab) tea.Cmd {
	if a.controller.Active(a.editor) {
		a.setStatus("An attachment is still uploading", styles.WarningStyle)
		return nil
	}
	a.prompt = newPrompt(a.dialog, tab, a.width)
	a.editor.BlurInput()
	return a.prompt.Init()
}

func (a *appModel) closePrompt() tea.Cmd {
	if a.prompt == nil {
		return nil
	}
	if !a.prompt.pending {
		a.dialog.Cancel()
	}
	a.prompt = nil
	return a.editor.FocusInput()
}

func (a *appModel) handleProgress(p insert.Progress) tea.Cmd {
	if p.Editor != a.editor {
		return nil
	}

	var cmd tea.Cmd
	switch p.State {
	case insert.StatePlaceholderInserted:
		// The dialog handed over to the sequence, the document now shows it.
		if a.prompt != nil && a.prompt.pending {
			cmd = a.closePrompt()
		}
	case insert.StateUploading:
		if len(p.Files) == 0 {
			a.setStatus("Inserting link...", styles.InProgressStyle)
		} else {
			a.setStatus(fmt.Sprintf("Uploading %s...", strings.Join(p.Files, ", ")), styles.InProgressStyle)
		}
	case insert.StateResolvedSuccess:
		n := strings.Count(p.Inserted, "\n") + 1
		a.setStatus(fmt.Sprintf("Inserted %d link(s)", n), styles.SuccessStyle)
	case insert.StateResolvedEmpty:
		a.setStatus("Upload failed, placeholder removed", styles.ErrorStyle)
	}

	var editorCmd tea.Cmd
	a.editor, editorCmd = a.editor.Update(nil)
	return tea.Batch(cmd, editorCmd)
}

func (a *appModel) handleInserted(msg insertedMsg) tea.Cmd {
	if msg.Err == nil {
		if msg.Result.Err != nil {
			slog.Debug("Insertion resolved without links", "error", msg.Result.Err)
		}
		return a.closePrompt()
	}

	switch {
	case errors.Is(msg.Err, insert.ErrInvalidForm):
		if a.prompt != nil {
			a.prompt.rejected(msg.Err)
			return nil
		}
		if msg.DroppedURL != "" {
			// The dropped link has no name to show, ask for one.
			a.prompt = newPrompt(a.dialog, insert.TabRemote, a.width)
			a.editor.BlurInput()
			a.prompt.rejected(msg.Err)
			return a.prompt.prefill(msg.DroppedURL)
		}
		return nil
	case errors.Is(msg.Err, insert.ErrSizeLimit):
		// The notice already tells the user.
	case errors.Is(msg.Err, insert.ErrSequenceActive):
		a.setStatus("An attachment is still uploading", styles.WarningStyle)
	default:
		a.setStatus(msg.Err.Error(), styles.ErrorStyle)
	}
	if a.prompt == nil {
		a.dialog.Reset()
		return nil
	}
	a.prompt.rejected(msg.Err)
	return nil
}

func (a *appModel) saveCmd() tea.Cmd {
	if a.save == nil {
		return nil
	}
	if a.controller.Active(a.editor) {
		a.setStatus("Wait for the upload to finish before saving", styles.WarningStyle)
		return nil
	}
	content := a.editor.Value()
	save := a.save
	return func() tea.Msg {
		return savedMsg{content: content, err: save(content)}
	}
}

func (a *appModel) setStatus(text string, style lipgloss.Style) {
	a.status = text
	a.statusStyle = style
}

// layout gives the editor whatever the prompt, the notice and the status
// line leave.
func (a *appModel) layout() {
	if a.prompt != nil {
		a.prompt.setWidth(a.width)
	}
	used := 1
	if a.prompt != nil {
		used += lipgloss.Height(a.prompt.View())
	}
	if a.notice != "" {
		used += lipgloss.Height(a.noticeView())
	}
	a.editor.SetSize(a.width-styles.AppStyle.GetHorizontalFrameSize(), max(a.height-used, 3))
}

func (a *appModel) noticeView() string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		a.notice,
		styles.MutedStyle.Render("press enter to continue"),
	)
	return styles.NoticeStyle.Width(max(a.width-styles.AppStyle.GetHorizontalFrameSize(), 20)).Render(body)
}

func (a *appModel) statusBar() string {
	left := a.name
	if a.editor.Value() != a.saved {
		left += " [modified]"
	}
	if a.editor.ReadOnly() {
		left += " [read-only]"
	}

	help := "ctrl+o file · ctrl+l link · ctrl+s save · ctrl+q quit"
	width := a.width - styles.StatusBarStyle.GetHorizontalFrameSize() - styles.AppStyle.GetHorizontalFrameSize()
	room := width - runewidth.StringWidth(help) - 1
	if room < 10 {
		help = ""
		room = width
	}
	room = max(room, 0)

	left = runewidth.Truncate(left, room, "…")
	status := ""
	if a.status != "" {
		status = runewidth.Truncate("  "+a.status, max(room-runewidth.StringWidth(left), 0), "…")
	}
	used := runewidth.StringWidth(left) + runewidth.StringWidth(status) + runewidth.StringWidth(help)
	gap := strings.Repeat(" ", max(width-used, 1))

	return styles.StatusBarStyle.Render(
		styles.SecondaryStyle.Render(left) + a.statusStyle.Render(status) + gap + styles.MutedStyle.Render(help),
	)
}

func (a *appModel) View() tea.View {
	components := []string{a.editor.View()}
	if a.prompt != nil {
		components = append(components, a.prompt.View())
	}
	if a.notice != "" {
		components = append(components, a.noticeView())
	}
	components = append(components, a.statusBar())

	return toFullscreenView(styles.AppStyle.Render(lipgloss.JoinVertical(lipgloss.Left, components...)))
}

func toFullscreenView(content string) tea.View {
	view := tea.NewView(content)
	view.AltScreen = true
	view.BackgroundColor = styles.Background
	return view
}
