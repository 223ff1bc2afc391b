package insert

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/docker/mdattach/pkg/attachment"
	"github.com/docker/mdattach/pkg/editor"
)

// Validation message keys, resolved to text by the UI.
const (
	MsgURLRequired  = "attachment.url.required"
	MsgNameRequired = "attachment.name.required"
	MsgFileRequired = "attachment.file.required"
)

var ErrInvalidForm = errors.New("attachment form is invalid")

// Source tells how the link field was filled.
type Source string

const (
	SourceManual Source = "manual"
	SourceDrop   Source = "drop"
)

// Tab is the active page of the attachment dialog.
type Tab int

const (
	TabLocal Tab = iota
	TabRemote
)

// LinkForm is the state of the remote URL field.
type LinkForm struct {
	Value        string
	IsInvalid    bool
	ErrorMessage string
	Source       Source
}

// NameField is the optional label of the inserted link.
type NameField struct {
	Value        string
	IsInvalid    bool
	ErrorMessage string
}

// FileField is the local file selection.
type FileField struct {
	Files        []attachment.FileDescriptor
	IsInvalid    bool
	ErrorMessage string
}

// Dialog is the two-tab attachment dialog bound to one editor. Its state is
// reset after every successful insertion and on cancel.
type Dialog struct {
	controller *Controller
	bridge     editor.Bridge

	mu      sync.Mutex
	visible bool
	tab     Tab
	link    LinkForm
	name    NameField
	file    FileField
}

func NewDialog(c *Controller, b editor.Bridge) *Dialog {
	d := &Dialog{controller: c, bridge: b}
	d.resetLocked()
	return d
}

// Show opens the dialog on tab.
func (d *Dialog) Show(tab Tab) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.visible = true
	d.tab = tab
}

func (d *Dialog) Visible() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visible
}

func (d *Dialog) Tab() Tab {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tab
}

func (d *Dialog) SetTab(tab Tab) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tab = tab
}

func (d *Dialog) Link() LinkForm {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.link
}

func (d *Dialog) Name() NameField {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.name
}

func (d *Dialog) File() FileField {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.file
}

func (d *Dialog) SetName(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.name = NameField{Value: value}
}

// SelectFiles sets the local selection and, for a single file, proposes its
// name as the label.
func (d *Dialog) SelectFiles(files []attachment.FileDescriptor) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.file = FileField{Files: files}
	if len(files) == 1 && d.name.Value == "" {
		d.name = NameField{Value: files[0].Name}
	}
}

// SetLink updates the URL field. A non-empty value coming from a drop is
// submitted right away; submitted reports whether that happened.
func (d *Dialog) SetLink(ctx context.Context, value string, source Source) (res Result, submitted bool, err error) {
	d.mu.Lock()
	d.link = LinkForm{Value: value, Source: source}
	auto := source == SourceDrop && strings.TrimSpace(value) != ""
	if auto {
		d.visible = true
		d.tab = TabRemote
	}
	d.mu.Unlock()

	if !auto {
		return Result{}, false, nil
	}
	res, err = d.Submit(ctx)
	return res, true, err
}

// Submit validates the active tab and inserts into the bound editor.
// Invalid fields are flagged and ErrInvalidForm is returned without
// touching the document.
func (d *Dialog) Submit(ctx context.Context) (Result, error) {
	d.mu.Lock()
	tab := d.tab
	if !d.validateLocked() {
		d.mu.Unlock()
		return Result{}, ErrInvalidForm
	}
	name := strings.TrimSpace(d.name.Value)
	link := strings.TrimSpace(d.link.Value)
	files := d.file.Files
	d.mu.Unlock()

	var (
		res Result
		err error
	)
	switch tab {
	case TabRemote:
		res, err = d.controller.InsertLink(ctx, d.bridge, name, link)
	default:
		res, err = d.controller.InsertFiles(ctx, d.bridge, files, WithLabel(name))
	}
	if err != nil {
		return res, err
	}

	d.Reset()
	return res, nil
}

func (d *Dialog) validateLocked() bool {
	switch d.tab {
	case TabRemote:
		link := strings.TrimSpace(d.link.Value)
		if link == "" {
			d.link.IsInvalid = true
			d.link.ErrorMessage = MsgURLRequired
			return false
		}
		if strings.TrimSpace(d.name.Value) == "" && DefaultLinkName(link) == "" {
			d.name.IsInvalid = true
			d.name.ErrorMessage = MsgNameRequired
			return false
		}
	default:
		if len(d.file.Files) == 0 {
			d.file.IsInvalid = true
			d.file.ErrorMessage = MsgFileRequired
			return false
		}
	}
	return true
}

// Cancel dismisses the dialog and clears its state.
func (d *Dialog) Cancel() {
	d.Reset()
}

// Reset clears every field and flag and hides the dialog.
func (d *Dialog) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
}

func (d *Dialog) resetLocked() {
	d.visible = false
	d.tab = TabLocal
	d.link = LinkForm{Source: SourceManual}
	d.name = NameField{}
	d.file = FileField{}
}

// DefaultLinkName derives a label from the last path segment of rawURL.
// It returns "" when there is none.
func DefaultLinkName(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Path == "" {
		return ""
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return ""
	}
	return base
}
