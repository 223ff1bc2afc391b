package root

import (
	"cmp"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docker/mdattach/pkg/catalog"
	"github.com/docker/mdattach/pkg/cli"
	"github.com/docker/mdattach/pkg/markdown"
	"github.com/docker/mdattach/pkg/paths"
)

func newLinksCmd() *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "links <document>",
		Short: "List the links and images of a document",
		Long:  "List the links and images of a document. Links to attachments recorded in the catalog are marked with *.",
		Example: `  mdattach links notes.md`,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading document: %w", err)
			}

			stored, err := storedURLs(cmd, cmp.Or(catalogPath, paths.GetCatalogPath()))
			if err != nil {
				return err
			}

			cli.NewPrinter(cmd.OutOrStdout()).PrintLinks(markdown.Links(source), func(url string) bool {
				return stored[url]
			})
			return nil
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Path to the catalog database (default: ~/.mdattach/catalog.db)")

	return cmd
}

// storedURLs returns the URLs recorded in the catalog, none when there is
// no catalog yet.
func storedURLs(cmd *cobra.Command, catalogPath string) (map[string]bool, error) {
	if _, err := os.Stat(catalogPath); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	cat, err := catalog.NewSQLiteStore(cmd.Context(), catalogPath)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer cat.Close()

	entries, err := cat.List(cmd.Context())
	if err != nil {
		return nil, err
	}
	urls := make(map[string]bool, len(entries))
	for _, e := range entries {
		urls[e.URL] = true
	}
	return urls, nil
}
