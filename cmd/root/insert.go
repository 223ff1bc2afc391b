package root

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/docker/mdattach/pkg/attachment"
	"github.com/docker/mdattach/pkg/cli"
	"github.com/docker/mdattach/pkg/editor"
	"github.com/docker/mdattach/pkg/insert"
	"github.com/docker/mdattach/pkg/run"
	"github.com/docker/mdattach/pkg/sizeguard"
)

// positionFlags select where links go, 1-based like editors show them.
type positionFlags struct {
	line   int
	column int
}

func (f *positionFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.line, "line", 0, "Line to insert at, 1-based (default: end of the document)")
	cmd.Flags().IntVar(&f.column, "column", 1, "Column to insert at, 1-based")
}

func (f *positionFlags) position() (*editor.Position, error) {
	if f.line == 0 {
		return nil, nil
	}
	if f.line < 0 || f.column < 1 {
		return nil, fmt.Errorf("invalid position %d:%d", f.line, f.column)
	}
	return &editor.Position{Line: f.line - 1, Column: f.column - 1}, nil
}

type insertFlags struct {
	positionFlags
	name     string
	showDiff bool
}

func newInsertCmd(rf *rootFlags) *cobra.Command {
	var flags insertFlags

	cmd := &cobra.Command{
		Use:   "insert <document> <file|glob>...",
		Short: "Upload files and insert links to them into a document",
		Example: `  mdattach insert notes.md diagram.png
  mdattach insert notes.md a.png b.png --line 3
  mdattach insert notes.md 'screenshots/**/*.png'
  mdattach insert notes.md report.pdf --name "Quarterly report"`,
		GroupID: "core",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.run(cmd, rf, args[0], args[1:])
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&flags.name, "name", "", "Link text, used for every file (default: the file name)")
	cmd.Flags().BoolVar(&flags.showDiff, "diff", false, "Print the change made to the document")

	return cmd
}

func (f *insertFlags) run(cmd *cobra.Command, rf *rootFlags, path string, files []string) error {
	pos, err := f.position()
	if err != nil {
		return err
	}
	cfg, err := rf.loadConfig()
	if err != nil {
		return err
	}
	doc, err := run.Load(path)
	if err != nil {
		return err
	}
	before := doc.Value()

	stack, err := run.NewStack(cmd.Context(), cfg, run.WithNotifier(printNotice(cmd.ErrOrStderr())))
	if err != nil {
		return err
	}
	defer func() { _ = stack.Close() }()

	var opts []insert.InsertOpt
	if f.name != "" {
		opts = append(opts, insert.WithLabel(f.name))
	}
	res, err := run.Files(cmd.Context(), stack.Controller, doc, pos, files, opts...)
	if err != nil {
		return err
	}
	return report(cmd.OutOrStdout(), doc, before, res, f.showDiff)
}

func printNotice(w io.Writer) sizeguard.Notifier {
	out := cli.NewPrinter(w)
	return sizeguard.NotifierFunc(func(limitMiB int, oversized []attachment.FileDescriptor) {
		out.PrintNotice(sizeguard.Notice(limitMiB, oversized))
	})
}

func report(w io.Writer, doc *run.Document, before string, res insert.Result, showDiff bool) error {
	if res.State != insert.StateResolvedSuccess {
		if res.Err != nil {
			return fmt.Errorf("nothing inserted into %s: %w", doc.Path, res.Err)
		}
		return fmt.Errorf("nothing inserted into %s", doc.Path)
	}

	out := cli.NewPrinter(w)
	if showDiff {
		out.PrintDiff(filepath.Base(doc.Path), before, doc.Value())
		return nil
	}
	out.PrintInserted(doc.Path, res)
	return nil
}
