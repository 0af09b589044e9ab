package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"docsearch/app"
	"docsearch/config"
	"docsearch/obs"
	"docsearch/search"
	"docsearch/server"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "docsearch",
		Short:        "Search and preview a document corpus",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			obs.InitLogger(cfg.LogLevel)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(),
		newSearchCmd(),
		newTUICmd(),
		newExtractCmd(),
		newPreviewCmd(),
		newVersionCmd(),
	)
	return root
}

func newServeCmd() *cobra.Command {
	var root, listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search API and the corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if root != "" {
				cfg.CorpusRoot = root
			}
			if listen != "" {
				cfg.Listen = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(cfg, search.NewEngine(cfg), obs.Logger("server"))
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "corpus directory (default from config)")
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config)")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var root string
	var fullText bool
	var workers int
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search the corpus from the command line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if root != "" {
				cfg.CorpusRoot = root
			}
			if workers > 0 {
				cfg.Workers = workers
			}

			query := strings.Join(args, " ")
			start := time.Now()
			results, err := search.NewEngine(cfg).Search(cmd.Context(), query, fullText)
			if err != nil {
				return err
			}
			app.PrintResults(cmd.OutOrStdout(), query, fullText, results, time.Since(start))
			return nil
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "corpus directory (default from config)")
	cmd.Flags().BoolVar(&fullText, "full-text", false, "search inside documents instead of file names")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent extractions (default from config)")
	return cmd
}

func newTUICmd() *cobra.Command {
	var serverURL, root string
	var offline bool
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Interactive search with document preview",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if serverURL != "" {
				cfg.ServerURL = serverURL
			}
			if root != "" {
				cfg.CorpusRoot = root
			}

			logFile, closeLog := tuiLogOutput()
			defer closeLog()
			obs.Redirect(logFile)

			return app.RunTUI(app.TUIOptions{Config: cfg, Offline: offline})
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "search server URL (default from config)")
	cmd.Flags().BoolVar(&offline, "offline", false, "search the local corpus without a server")
	cmd.Flags().StringVar(&root, "root", "", "corpus directory for --offline")
	return cmd
}

// tuiLogOutput opens the TUI log file under the user cache directory. Logs
// are discarded when it cannot be created.
func tuiLogOutput() (io.Writer, func()) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return io.Discard, func() {}
	}
	dir = filepath.Join(dir, "docsearch")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return io.Discard, func() {}
	}
	f, err := os.OpenFile(filepath.Join(dir, "tui.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return io.Discard, func() {}
	}
	return f, func() { _ = f.Close() }
}

func newExtractCmd() *cobra.Command {
	var clean bool
	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Print the text extracted from one file",
		Long: "Print the text extracted from one file.\n\n" +
			"Supported formats: " + config.GetFileTypeDescription() + ".\n" +
			"Anything else is decoded as plain text.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", path)
			}

			reg := search.NewExtractorRegistry()
			reg.MaxFileBytes = cfg.MaxFileBytes
			reg.Timeout = cfg.FileTimeout

			t := config.DetectType(path)
			text := reg.Extract(path, t)
			if clean {
				text = search.Clean(text)
			}
			app.PrintExtraction(cmd.OutOrStdout(), path, t, text)
			return nil
		},
	}
	cmd.Flags().BoolVar(&clean, "clean", false, "apply line cleaning to the whole text")
	return cmd
}

func newPreviewCmd() *cobra.Command {
	var root string
	cmd := &cobra.Command{
		Use:   "preview FILE",
		Short: "Render a corpus file with the document viewers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if root != "" {
				cfg.CorpusRoot = root
			}
			ctx := cmd.Context()
			if cfg.FileTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.FileTimeout)
				defer cancel()
			}
			return app.RenderPreview(ctx, cmd.OutOrStdout(), cfg, args[0])
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "corpus directory (default from config)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			app.ShowVersion(cmd.OutOrStdout())
		},
	}
}
