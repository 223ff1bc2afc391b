package root

import (
	"cmp"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/docker/mdattach/pkg/auth"
	"github.com/docker/mdattach/pkg/catalog"
	"github.com/docker/mdattach/pkg/paths"
	"github.com/docker/mdattach/pkg/server"
	"github.com/docker/mdattach/pkg/upload"
)

type serveFlags struct {
	listenAddr  string
	catalogPath string
}

func newServeCmd(rf *rootFlags) *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the attachment upload server",
		Long: `Serve uploads over HTTP. Files are stored under store_dir and recorded in the
catalog, links point at base_url. Set token_env to require a bearer token.`,
		Example: `  mdattach serve
  mdattach serve --listen unix:///tmp/mdattach.sock`,
		GroupID: "advanced",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.run(cmd, rf)
		},
	}

	cmd.Flags().StringVarP(&flags.listenAddr, "listen", "l", ":8080", "Address to listen on")
	cmd.Flags().StringVar(&flags.catalogPath, "catalog", "", "Path to the catalog database (default: ~/.mdattach/catalog.db)")

	return cmd
}

func (f *serveFlags) run(cmd *cobra.Command, rf *rootFlags) error {
	ctx := cmd.Context()

	cfg, err := rf.loadConfig()
	if err != nil {
		return err
	}

	store, err := upload.NewDiskStore(cfg.ResolvedStoreDir(), cfg.BaseURL)
	if err != nil {
		return err
	}

	cat, err := catalog.NewSQLiteStore(ctx, cmp.Or(f.catalogPath, paths.GetCatalogPath()))
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer cat.Close()

	reg := prometheus.NewRegistry()
	observer, err := upload.NewPrometheusObserver("mdattach", reg)
	if err != nil {
		return err
	}

	ln, err := server.Listen(ctx, f.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.listenAddr, err)
	}
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	fmt.Fprintln(cmd.OutOrStdout(), "Listening on "+ln.Addr().String())
	slog.Debug("Starting server", "addr", ln.Addr().String(), "store", store.Dir())

	s := server.New(store, cat,
		server.WithToken(auth.ProviderFor(cfg.TokenEnv)),
		server.WithLimitMiB(cfg.MaxSizeMiB),
		server.WithObserver(observer),
		server.WithGatherer(reg),
	)
	return s.Serve(ctx, ln)
}
