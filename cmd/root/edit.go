package root

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/docker/mdattach/pkg/cli"
	"github.com/docker/mdattach/pkg/insert"
	"github.com/docker/mdattach/pkg/pubsub"
	"github.com/docker/mdattach/pkg/run"
	"github.com/docker/mdattach/pkg/tui"
	"github.com/docker/mdattach/pkg/tui/components/editor"
	"github.com/docker/mdattach/pkg/tui/styles"
)

func newEditCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <file>",
		Short: "Edit a markdown document in the terminal",
		Long: `Open a markdown document in the terminal editor. Drop or paste files to upload them
and insert links, ctrl+o attaches a local file and ctrl+l a link.`,
		Example: `  mdattach edit notes.md`,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEditCommand(cmd, rf, args[0])
		},
	}
}

func runEditCommand(cmd *cobra.Command, rf *rootFlags, path string) error {
	cfg, err := rf.loadConfig()
	if err != nil {
		return err
	}
	styles.SetTheme(styles.ThemeByName(cfg.Theme))

	doc, err := run.Load(path)
	if err != nil {
		return err
	}
	if lines := strings.Count(doc.Value(), "\n") + 1; lines > editor.MaxLines {
		return fmt.Errorf("%s has %d lines, the editor holds at most %d: use insert instead", path, lines, editor.MaxLines)
	}
	if !cli.IsTerminal(os.Stdin) {
		return errors.New("edit needs a terminal, use insert or link instead")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	notices := pubsub.NewBroker[string]()
	defer notices.Close()

	drops := &tui.DroppedURLs{}
	stack, err := run.NewStack(ctx, cfg,
		run.WithNotifier(tui.SizeNotifier(notices)),
		run.WithControllerOpts(insert.WithDroppedURL(drops.Receive)),
	)
	if err != nil {
		return err
	}
	// Pending uploads are abandoned on exit, cancel before waiting for them.
	defer func() { _ = stack.Close() }()
	defer cancel()

	ed := editor.New(doc.Value())
	stack.Controller.Bind(ed)

	name := filepath.Base(path)
	watcher, err := run.Watch(ctx, path, doc.Value(), func(string) {
		notices.Publish(tui.NoticeTopic, name+" changed on disk. Saving will overwrite those changes.")
	})
	if err != nil {
		slog.Warn("Not watching document for changes", "path", path, "error", err)
	} else {
		defer watcher.Close()
	}

	m := tui.New(ctx, name, ed, stack.Controller, func(content string) error {
		if watcher != nil {
			watcher.Expect(content)
		}
		return run.SaveFile(path, content)
	}, tui.WithDroppedURLs(drops))

	p := tea.NewProgram(m, tea.WithContext(ctx))

	go tui.Forward(ctx, stack.Progress, notices, p)

	_, err = p.Run()
	return err
}
