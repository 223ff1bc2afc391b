package root

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docker/mdattach/pkg/configfile"
	"github.com/docker/mdattach/pkg/insert"
	"github.com/docker/mdattach/pkg/logging"
	"github.com/docker/mdattach/pkg/paths"
)

type rootFlags struct {
	enableOtel  bool
	debugMode   bool
	logFilePath string
	configPath  string
	logFile     io.Closer
}

func NewRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "mdattach",
		Short: "mdattach - attach files and links to markdown documents",
		Long:  "mdattach uploads files and inserts markdown links to them, from a terminal editor or the command line",
		Example: `  mdattach edit notes.md
  mdattach insert notes.md diagram.png --line 3
  mdattach link notes.md --url https://example.com/guide.pdf
  mdattach serve --listen :8080`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Logging first, so nothing is written over the editor.
			if err := flags.setupLogging(); err != nil {
				slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
					Level: func() slog.Level {
						if flags.debugMode {
							return slog.LevelDebug
						}
						return slog.LevelInfo
					}(),
				})))
			}

			if flags.enableOtel {
				if err := initOTelSDK(cmd.Context()); err != nil {
					slog.Warn("Failed to initialize OpenTelemetry SDK", "error", err)
				} else {
					slog.Debug("OpenTelemetry SDK initialized successfully")
				}
			}

			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if flags.logFile != nil {
				if err := flags.logFile.Close(); err != nil {
					slog.Error("Failed to close log file", "error", err)
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.debugMode, "debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flags.enableOtel, "otel", "o", false, "Enable OpenTelemetry tracing")
	cmd.PersistentFlags().StringVar(&flags.logFilePath, "log-file", "", "Path to debug log file (default: ~/.mdattach/mdattach.debug.log; only used with --debug)")
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to the config file (default: ~/.mdattach/config.yaml)")

	cmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands:"})
	cmd.AddGroup(&cobra.Group{ID: "advanced", Title: "Advanced Commands:"})

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newEditCmd(&flags))
	cmd.AddCommand(newInsertCmd(&flags))
	cmd.AddCommand(newLinkCmd(&flags))
	cmd.AddCommand(newLinksCmd())
	cmd.AddCommand(newServeCmd(&flags))
	cmd.AddCommand(newCatalogCmd(&flags))
	cmd.AddCommand(newConfigCmd(&flags))

	return cmd
}

func Execute(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args ...string) error {
	rootCmd := NewRootCmd()
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	setContextRecursive(ctx, rootCmd)

	if err := rootCmd.Execute(); err != nil {
		return processErr(ctx, err, stderr, rootCmd)
	}
	return nil
}

func setContextRecursive(ctx context.Context, cmd *cobra.Command) {
	cmd.SetContext(ctx)
	for _, child := range cmd.Commands() {
		setContextRecursive(ctx, child)
	}
}

func processErr(ctx context.Context, err error, stderr io.Writer, rootCmd *cobra.Command) error {
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, insert.ErrSizeLimit):
		// The size notice has already been printed.
	default:
		fmt.Fprintln(stderr, err)
		if strings.HasPrefix(err.Error(), "unknown command ") || strings.HasPrefix(err.Error(), "accepts ") {
			fmt.Fprintln(stderr)
			_ = rootCmd.Usage()
		}
	}
	return err
}

// setupLogging configures slog. With --debug, logs go to a rotating file,
// ~/.mdattach/mdattach.debug.log unless --log-file says otherwise. Without
// it, everything is discarded.
func (f *rootFlags) setupLogging() error {
	if !f.debugMode {
		slog.SetDefault(slog.New(slog.DiscardHandler))
		return nil
	}

	path := cmp.Or(strings.TrimSpace(f.logFilePath), paths.GetLogPath())

	logFile, err := logging.NewRotatingFile(path)
	if err != nil {
		return err
	}
	f.logFile = logFile

	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug})))

	return nil
}

// configManager opens --config, or the default config file.
func (f *rootFlags) configManager() (*configfile.Manager, error) {
	if f.configPath != "" {
		return configfile.NewManagerAt(f.configPath)
	}
	return configfile.NewManager()
}

func (f *rootFlags) loadConfig() (configfile.Config, error) {
	m, err := f.configManager()
	if err != nil {
		return configfile.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return m.GetConfig(), nil
}
