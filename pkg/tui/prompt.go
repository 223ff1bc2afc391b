package tui

import (
	"cmp"
	"context"
	"errors"
	"strings"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/docker/mdattach/pkg/attachment"
	"github.com/docker/mdattach/pkg/insert"
	"github.com/docker/mdattach/pkg/tui/components/editor"
	"github.com/docker/mdattach/pkg/tui/styles"
)

// validationMessages renders the dialog's message keys.
var validationMessages = map[string]string{
	insert.MsgURLRequired:  "Enter the URL of the attachment",
	insert.MsgNameRequired: "Enter a name for the link",
	insert.MsgFileRequired: "Select at least one file",
}

// insertedMsg is sent when a submission from the prompt has resolved.
type insertedMsg struct {
	Result     insert.Result
	Err        error
	// DroppedURL is set when the link was dropped on the document.
	DroppedURL string
}

// prompt is the terminal rendition of the attachment dialog: the primary
// field is the file paths (local tab) or the URL (remote tab), the second
// one the optional link name.
type prompt struct {
	dialog  *insert.Dialog
	primary textinput.Model
	name    textinput.Model
	focused int
	keyMap  promptKeyMap

	// pending is set between a submission and its placeholder showing up.
	pending bool
	err     string
}

func newPrompt(d *insert.Dialog, tab insert.Tab, width int) *prompt {
	primary := textinput.New()
	primary.Prompt = "File: "
	primary.Placeholder = "path/to/file.png, several paths separated by spaces"
	if tab == insert.TabRemote {
		primary.Prompt = "URL:  "
		primary.Placeholder = "https://..."
	}
	primary.CharLimit = 4096

	name := textinput.New()
	name.Prompt = "Name: "
	name.Placeholder = "optional"
	name.CharLimit = 256

	p := &prompt{
		dialog:  d,
		primary: primary,
		name:    name,
		keyMap:  defaultPromptKeyMap(),
	}
	p.setWidth(width)
	d.Show(tab)
	return p
}

// prefill shows a dropped link that still needs a name.
func (p *prompt) prefill(link string) tea.Cmd {
	p.primary.SetValue(link)
	p.focused = 1
	p.primary.Blur()
	return p.name.Focus()
}

func (p *prompt) Init() tea.Cmd {
	return p.primary.Focus()
}

func (p *prompt) setWidth(width int) {
	inner := max(width-styles.PromptStyle.GetHorizontalFrameSize()-8, 10)
	p.primary.SetWidth(inner)
	p.name.SetWidth(inner)
}

func (p *prompt) tab() insert.Tab {
	return p.dialog.Tab()
}

func (p *prompt) Update(ctx context.Context, msg tea.Msg) tea.Cmd {
	if p.pending {
		return nil
	}

	switch msg := msg.(type) {
	case tea.PasteMsg:
		// Dropping a link on the URL field inserts it right away.
		if p.tab() == insert.TabRemote && p.focused == 0 && strings.TrimSpace(msg.Content) != "" {
			p.primary.SetValue(strings.TrimSpace(msg.Content))
			p.dialog.SetName(p.name.Value())
			return p.run(func() (insert.Result, error) {
				res, _, err := p.dialog.SetLink(ctx, p.primary.Value(), insert.SourceDrop)
				return res, err
			})
		}

	case tea.KeyPressMsg:
		switch {
		case key.Matches(msg, p.keyMap.NextField):
			return p.toggleFocus()
		case key.Matches(msg, p.keyMap.Submit):
			return p.submit(ctx)
		}
	}

	var cmd tea.Cmd
	if p.focused == 0 {
		p.primary, cmd = p.primary.Update(msg)
	} else {
		p.name, cmd = p.name.Update(msg)
	}
	return cmd
}

func (p *prompt) toggleFocus() tea.Cmd {
	p.focused = 1 - p.focused
	if p.focused == 0 {
		p.name.Blur()
		return p.primary.Focus()
	}
	p.primary.Blur()
	return p.name.Focus()
}

// submit fills the dialog from the fields and inserts in the background;
// validation happens in the dialog.
func (p *prompt) submit(ctx context.Context) tea.Cmd {
	p.err = ""
	p.dialog.SetName(p.name.Value())

	switch p.tab() {
	case insert.TabRemote:
		if _, _, err := p.dialog.SetLink(ctx, p.primary.Value(), insert.SourceManual); err != nil {
			p.err = err.Error()
			return nil
		}
	default:
		var files []attachment.FileDescriptor
		if strings.TrimSpace(p.primary.Value()) != "" {
			parsed, err := editor.ParseFiles(p.primary.Value())
			if err != nil {
				p.err = err.Error()
				return nil
			}
			files = parsed
		}
		p.dialog.SelectFiles(files)
	}

	return p.run(func() (insert.Result, error) {
		return p.dialog.Submit(ctx)
	})
}

func (p *prompt) run(fn func() (insert.Result, error)) tea.Cmd {
	p.pending = true
	return func() tea.Msg {
		res, err := fn()
		return insertedMsg{Result: res, Err: err}
	}
}

// rejected reopens the prompt for editing after an invalid submission.
func (p *prompt) rejected(err error) {
	p.pending = false
	if !errors.Is(err, insert.ErrInvalidForm) {
		p.err = err.Error()
		return
	}

	msgKey := p.dialog.File().ErrorMessage
	if p.tab() == insert.TabRemote {
		msgKey = cmp.Or(p.dialog.Link().ErrorMessage, p.dialog.Name().ErrorMessage)
	}
	p.err = validationMessages[msgKey]
}

func (p *prompt) View() string {
	title := "Attach a local file"
	if p.tab() == insert.TabRemote {
		title = "Attach a link"
	}

	lines := []string{
		styles.HighlightStyle.Render(title),
		p.primary.View(),
		p.name.View(),
	}
	switch {
	case p.pending:
		lines = append(lines, styles.InProgressStyle.Render("Inserting..."))
	case p.err != "":
		lines = append(lines, styles.ErrorStyle.Render(p.err))
	default:
		lines = append(lines, styles.MutedStyle.Render("enter insert · tab next field · esc cancel"))
	}
	return styles.PromptStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
