package root

import (
	"cmp"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/docker/mdattach/pkg/catalog"
	"github.com/docker/mdattach/pkg/paths"
	"github.com/docker/mdattach/pkg/upload"
)

type catalogFlags struct {
	catalogPath string
}

func newCatalogCmd(rf *rootFlags) *cobra.Command {
	var flags catalogFlags

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List and remove locally stored attachments",
		Example: `  mdattach catalog ls
  mdattach catalog rm 3f1c2a9e-...`,
		GroupID: "advanced",
	}
	cmd.PersistentFlags().StringVar(&flags.catalogPath, "catalog", "", "Path to the catalog database (default: ~/.mdattach/catalog.db)")

	cmd.AddCommand(&cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List stored attachments, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.list(cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <id>...",
		Short: "Remove attachments from the catalog, and their files when unused",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.remove(cmd, rf, args)
		},
	})

	return cmd
}

func (f *catalogFlags) open(cmd *cobra.Command) (*catalog.SQLiteStore, error) {
	cat, err := catalog.NewSQLiteStore(cmd.Context(), cmp.Or(f.catalogPath, paths.GetCatalogPath()))
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	return cat, nil
}

func (f *catalogFlags) list(cmd *cobra.Command) error {
	cat, err := f.open(cmd)
	if err != nil {
		return err
	}
	defer cat.Close()

	entries, err := cat.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No attachments stored")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAME\tSIZE\tCREATED\tURL\n")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Name, units.HumanSize(float64(e.SizeBytes)), e.CreatedAt.Local().Format(time.DateTime), e.URL)
	}
	return w.Flush()
}

func (f *catalogFlags) remove(cmd *cobra.Command, rf *rootFlags, ids []string) error {
	cfg, err := rf.loadConfig()
	if err != nil {
		return err
	}
	store, err := upload.NewDiskStore(cfg.ResolvedStoreDir(), cfg.BaseURL)
	if err != nil {
		return err
	}

	cat, err := f.open(cmd)
	if err != nil {
		return err
	}
	defer cat.Close()

	for _, id := range ids {
		entry, err := catalog.Forget(cmd.Context(), cat, store, id)
		if err != nil {
			return fmt.Errorf("removing %s: %w", id, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%s)\n", entry.Name, entry.ID)
	}
	return nil
}
