package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docker/mdattach/pkg/attachment"
	mdeditor "github.com/docker/mdattach/pkg/editor"
	"github.com/docker/mdattach/pkg/insert"
	"github.com/docker/mdattach/pkg/pubsub"
	"github.com/docker/mdattach/pkg/sizeguard"
	"github.com/docker/mdattach/pkg/tui/components/editor"
	"github.com/docker/mdattach/pkg/upload"
)

var (
	ctrlO = tea.KeyPressMsg{Code: 'o', Mod: tea.ModCtrl}
	ctrlL = tea.KeyPressMsg{Code: 'l', Mod: tea.ModCtrl}
	ctrlS = tea.KeyPressMsg{Code: 's', Mod: tea.ModCtrl}
	enter = tea.KeyPressMsg{Code: tea.KeyEnter}
	esc   = tea.KeyPressMsg{Code: tea.KeyEscape}
)

type fixture struct {
	app        *appModel
	editor     *editor.Editor
	controller *insert.Controller
	saved      []string
}

func newFixture(t *testing.T, content string, uploader upload.UploaderFunc, opts ...sizeguard.Opt) *fixture {
	t.Helper()

	f := &fixture{editor: editor.New(content)}
	f.controller = insert.New(upload.NewOrchestrator(uploader), sizeguard.New(opts...))
	f.controller.Bind(f.editor)
	t.Cleanup(f.controller.Unbind)

	save := func(content string) error {
		f.saved = append(f.saved, content)
		return nil
	}
	f.app = New(t.Context(), "notes.md", f.editor, f.controller, save).(*appModel)
	return f
}

func (f *fixture) send(msg tea.Msg) tea.Cmd {
	_, cmd := f.app.Update(msg)
	return cmd
}

func okUploader(_ context.Context, req upload.Request) (string, error) {
	return "https://files.example/" + req.File.Name, nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestApp_PastedPathIsUploadedAndInserted(t *testing.T) {
	path := writeFile(t, "a.png", "png")
	f := newFixture(t, "intro", okUploader)

	f.send(tea.PasteMsg{Content: path})
	f.controller.Wait()

	assert.Equal(t, "[a.png](https://files.example/a.png)intro", f.editor.Value())
	assert.False(t, f.editor.ReadOnly())
}

func TestApp_AttachFilePrompt(t *testing.T) {
	path := writeFile(t, "diagram.svg", "<svg/>")
	f := newFixture(t, "", okUploader)

	f.send(ctrlO)
	require.NotNil(t, f.app.prompt)
	assert.Equal(t, insert.TabLocal, f.app.prompt.tab())

	f.app.prompt.primary.SetValue(path)
	f.app.prompt.name.SetValue("Architecture")
	cmd := f.send(enter)
	require.NotNil(t, cmd)
	assert.True(t, f.app.prompt.pending)

	f.send(cmd())

	assert.Nil(t, f.app.prompt)
	assert.Equal(t, "[Architecture](https://files.example/diagram.svg)", f.editor.Value())
	assert.False(t, f.app.dialog.Visible())
}

func TestApp_LinkPromptRequiresURL(t *testing.T) {
	f := newFixture(t, "unchanged", okUploader)

	f.send(ctrlL)
	require.NotNil(t, f.app.prompt)

	cmd := f.send(enter)
	require.NotNil(t, cmd)
	f.send(cmd())

	require.NotNil(t, f.app.prompt, "an invalid form keeps the prompt open")
	assert.False(t, f.app.prompt.pending)
	assert.Equal(t, validationMessages[insert.MsgURLRequired], f.app.prompt.err)
	assert.True(t, f.app.dialog.Link().IsInvalid)
	assert.Equal(t, "unchanged", f.editor.Value())
	assert.False(t, f.editor.ReadOnly())

	f.send(esc)
	assert.Nil(t, f.app.prompt)
	assert.False(t, f.app.dialog.Visible())
}

func TestApp_LinkDroppedOnPromptIsInsertedRightAway(t *testing.T) {
	f := newFixture(t, "", okUploader)

	f.send(ctrlL)
	cmd := f.send(tea.PasteMsg{Content: "https://example.com/docs/guide.pdf\n"})
	require.NotNil(t, cmd)
	f.send(cmd())

	assert.Nil(t, f.app.prompt)
	assert.Equal(t, "[guide.pdf](https://example.com/docs/guide.pdf)", f.editor.Value())
}

func TestApp_FailedUploadLeavesDocumentUnchanged(t *testing.T) {
	path := writeFile(t, "a.png", "png")
	f := newFixture(t, "before", func(context.Context, upload.Request) (string, error) {
		return "", errors.New("connection refused")
	})

	f.send(tea.PasteMsg{Content: path})
	f.controller.Wait()

	assert.Equal(t, "before", f.editor.Value())

	f.send(ProgressMsg{Editor: f.editor, State: insert.StateResolvedEmpty})
	assert.Equal(t, "Upload failed, placeholder removed", f.app.status)
}

func TestApp_ProgressOfOtherEditorsIsIgnored(t *testing.T) {
	f := newFixture(t, "", okUploader)

	f.send(ProgressMsg{Editor: mdeditor.NewBuffer(""), State: insert.StateResolvedEmpty})
	assert.Empty(t, f.app.status)
}

func TestApp_NoticeBlocksInputUntilAcknowledged(t *testing.T) {
	f := newFixture(t, "", okUploader)

	f.send(NoticeMsg{Text: "too big"})
	f.send(tea.KeyPressMsg{Text: "x"})
	assert.Empty(t, f.editor.Value())
	assert.Equal(t, "too big", f.app.notice)

	f.send(enter)
	assert.Empty(t, f.app.notice)

	f.send(tea.KeyPressMsg{Text: "x"})
	assert.Equal(t, "x", f.editor.Value())
}

func TestApp_Save(t *testing.T) {
	f := newFixture(t, "draft", okUploader)

	f.send(tea.KeyPressMsg{Text: "!"})
	assert.Contains(t, f.app.statusBar(), "[modified]")

	cmd := f.send(ctrlS)
	require.NotNil(t, cmd)
	f.send(cmd())

	assert.Equal(t, []string{"!draft"}, f.saved)
	assert.Equal(t, "Saved notes.md", f.app.status)
	assert.NotContains(t, f.app.statusBar(), "[modified]")
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (s *recordingSender) Send(msg tea.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func (s *recordingSender) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

func TestForward(t *testing.T) {
	progress := pubsub.NewBroker[insert.Progress]()
	notices := pubsub.NewBroker[string]()

	ctx, cancel := context.WithCancel(t.Context())
	sender := &recordingSender{}
	done := make(chan struct{})
	go func() {
		Forward(ctx, progress, notices, sender)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return progress.SubscriberCount() == 1 && notices.SubscriberCount() == 1
	}, time.Second, 5*time.Millisecond)

	notifier := SizeNotifier(notices)
	notifier.SizeLimitExceeded(50, []attachment.FileDescriptor{{Name: "big.iso", SizeBytes: 60 << 20}})
	progress.Publish(insert.ProgressTopic, insert.Progress{State: insert.StateUploading})

	require.Eventually(t, func() bool { return sender.len() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Forward did not return")
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	var sawNotice, sawProgress bool
	for _, msg := range sender.msgs {
		switch msg := msg.(type) {
		case NoticeMsg:
			sawNotice = true
			assert.Contains(t, msg.Text, "big.iso")
		case ProgressMsg:
			sawProgress = true
			assert.Equal(t, insert.StateUploading, msg.State)
		}
	}
	assert.True(t, sawNotice)
	assert.True(t, sawProgress)
}

func newDropFixture(t *testing.T, content string) *fixture {
	t.Helper()

	drops := &DroppedURLs{}
	f := &fixture{editor: editor.New(content)}
	f.controller = insert.New(upload.NewOrchestrator(upload.UploaderFunc(okUploader)), sizeguard.New(), insert.WithDroppedURL(drops.Receive))
	f.controller.Bind(f.editor)
	t.Cleanup(f.controller.Unbind)

	f.app = New(t.Context(), "notes.md", f.editor, f.controller, nil, WithDroppedURLs(drops)).(*appModel)
	return f
}

// inserted runs cmd and returns the insertion outcome it carries.
func inserted(t *testing.T, cmd tea.Cmd) insertedMsg {
	t.Helper()
	require.NotNil(t, cmd)
	switch msg := cmd().(type) {
	case insertedMsg:
		return msg
	case tea.BatchMsg:
		for _, c := range msg {
			if c == nil {
				continue
			}
			if m, ok := c().(insertedMsg); ok {
				return m
			}
		}
	}
	require.FailNow(t, "no insertion in command")
	return insertedMsg{}
}

func TestApp_LinkDroppedOnDocumentIsInserted(t *testing.T) {
	f := newDropFixture(t, "intro")

	msg := inserted(t, f.send(tea.PasteMsg{Content: "https://example.com/docs/a.pdf"}))
	assert.Equal(t, "https://example.com/docs/a.pdf", msg.DroppedURL)
	f.send(msg)

	assert.Equal(t, "[a.pdf](https://example.com/docs/a.pdf)intro", f.editor.Value())
	assert.Nil(t, f.app.prompt)
	assert.False(t, f.app.dialog.Visible())
}

func TestApp_DroppedLinkWithoutNameOpensPrompt(t *testing.T) {
	f := newDropFixture(t, "intro")

	f.send(inserted(t, f.send(tea.PasteMsg{Content: "https://example.com"})))

	require.NotNil(t, f.app.prompt)
	assert.Equal(t, insert.TabRemote, f.app.prompt.tab())
	assert.Equal(t, "https://example.com", f.app.prompt.primary.Value())
	assert.Equal(t, 1, f.app.prompt.focused)
	assert.Equal(t, validationMessages[insert.MsgNameRequired], f.app.prompt.err)
	assert.Equal(t, "intro", f.editor.Value())
}

func TestApp_PastedLinkWithoutDropQueueIsLinkedDirectly(t *testing.T) {
	f := newFixture(t, "", okUploader)

	f.send(tea.PasteMsg{Content: "https://example.com/a.pdf"})
	f.controller.Wait()

	assert.Equal(t, "[a.pdf](https://example.com/a.pdf)", f.editor.Value())
	assert.Nil(t, f.app.prompt)
}

func TestApp_ConvertedDocumentIsAnnounced(t *testing.T) {
	f := newFixture(t, "a\tb\r\n", okUploader)

	assert.Contains(t, f.app.status, "converted")
	assert.Equal(t, "a    b\n", f.editor.Value())
}
