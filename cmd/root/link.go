package root

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/docker/mdattach/pkg/run"
)

type linkFlags struct {
	positionFlags
	name     string
	url      string
	showDiff bool
}

func newLinkCmd(rf *rootFlags) *cobra.Command {
	var flags linkFlags

	cmd := &cobra.Command{
		Use:   "link <document>",
		Short: "Insert a link to a remote file into a document",
		Long:  "Insert [name](url) into a document. Without --name the last path segment of the URL is used.",
		Example: `  mdattach link notes.md --url https://example.com/docs/guide.pdf
  mdattach link notes.md --url https://example.com --name Home --line 1`,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.run(cmd, rf, args[0])
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&flags.url, "url", "", "URL to link to")
	cmd.Flags().StringVar(&flags.name, "name", "", "Link text")
	cmd.Flags().BoolVar(&flags.showDiff, "diff", false, "Print the change made to the document")

	return cmd
}

func (f *linkFlags) run(cmd *cobra.Command, rf *rootFlags, path string) error {
	if f.url == "" {
		return errors.New("--url is required")
	}
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

	stack, err := run.NewStack(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = stack.Close() }()

	res, err := run.Link(cmd.Context(), stack.Controller, doc, pos, f.name, f.url)
	if err != nil {
		return err
	}
	return report(cmd.OutOrStdout(), doc, before, res, f.showDiff)
}
