// Package main provides the ragingest binary entry point.
// Ragingest acquires web and file content, segments it into
// retrieval-ready chunks, and publishes them for indexing.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Daniel2008/ai-rag-sub002/config"
	"github.com/Daniel2008/ai-rag-sub002/source"
	"github.com/Daniel2008/ai-rag-sub002/source/chunker"
	"github.com/Daniel2008/ai-rag-sub002/source/loader"
)

const (
	Version = "0.1.0"
	appName = "ragingest"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Document ingestion for retrieval pipelines",
		Long: `Ragingest acquires page content from URLs and local files, extracts the
main content, segments it into semantically coherent chunks and publishes
the chunks to NATS for downstream indexing.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(ingestCmd(&configPath, &logLevel))
	cmd.AddCommand(watchCmd(&configPath, &logLevel))
	cmd.AddCommand(checkCmd(&configPath, &logLevel))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	})

	return cmd
}

func ingestCmd(configPath, logLevel *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ingest <url-or-file>...",
		Short: "Ingest URLs or local files into chunks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*configPath, *logLevel)
			if err != nil {
				return err
			}

			pipeline, cleanup, err := buildPipeline(cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := signalContext()

			var failed int
			for _, arg := range args {
				var result *source.IngestResult
				var ierr error

				if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
					result, ierr = pipeline.IngestURL(ctx, arg)
				} else {
					result, ierr = pipeline.IngestFile(ctx, arg)
				}

				if ierr != nil {
					logger.Error("ingest failed",
						slog.String("target", arg),
						slog.String("error", ierr.Error()))
					failed++
					continue
				}

				if asJSON {
					data, merr := json.MarshalIndent(result, "", "  ")
					if merr != nil {
						return merr
					}
					fmt.Println(string(data))
				} else {
					fmt.Printf("%s: %d chunks (%s)\n", arg, len(result.Chunks), result.SourceID)
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d targets failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print full results as JSON")
	return cmd
}

func watchCmd(configPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir]",
		Short: "Watch a directory and ingest changed documents",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*configPath, *logLevel)
			if err != nil {
				return err
			}

			dir := cfg.Watch.Dir
			if len(args) > 0 {
				dir = args[0]
			}

			pipeline, cleanup, err := buildPipeline(cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			watcher, err := source.NewWatcher(dir, source.WatcherOptions{
				Debounce:    cfg.Watch.Debounce,
				Extensions:  cfg.Watch.Extensions,
				ExcludeDirs: cfg.Watch.ExcludeDirs,
			}, pipeline, logger)
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}

			ctx := signalContext()
			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
}

func checkCmd(configPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check <url>...",
		Short: "Probe URLs for reachability without ingesting",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(*configPath, *logLevel)
			if err != nil {
				return err
			}

			ld := loader.New(loaderOptions(cfg))
			ctx := signalContext()

			var failed int
			for _, u := range args {
				if cerr := ld.CheckReachable(ctx, u); cerr != nil {
					fmt.Printf("FAIL %s: %v\n", u, cerr)
					failed++
				} else {
					fmt.Printf("OK   %s\n", u)
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d URLs unreachable", failed, len(args))
			}
			return nil
		},
	}
}

// setup loads layered configuration and installs the default logger.
func setup(configPath, logLevel string) (*config.Config, *slog.Logger, error) {
	var cfg *config.Config
	var err error

	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
		if err == nil {
			err = cfg.Validate()
		}
	} else {
		cfg, err = config.NewLoader(nil).Load()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	level := slog.LevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	return cfg, logger, nil
}

// buildPipeline wires loader, chunker and publisher from configuration. The
// returned cleanup closes the NATS connection when one was opened.
func buildPipeline(cfg *config.Config, logger *slog.Logger) (*source.Pipeline, func(), error) {
	ld := loader.New(loaderOptions(cfg))
	ld.SetLogger(logger)
	ld.SetMetrics(loader.NewMetrics(prometheus.DefaultRegisterer))

	ch, err := chunker.New(cfg.Chunker)
	if err != nil {
		return nil, nil, fmt.Errorf("create chunker: %w", err)
	}
	ch.SetLogger(logger)

	cleanup := func() {}
	var pub *source.Publisher
	if cfg.NATS.URL != "" {
		nc, cerr := nats.Connect(cfg.NATS.URL, nats.Name(appName))
		if cerr != nil {
			return nil, nil, fmt.Errorf("connect to NATS: %w", cerr)
		}
		cleanup = nc.Close

		pub, err = source.NewPublisher(nc, logger)
		if err != nil {
			nc.Close()
			return nil, nil, fmt.Errorf("create publisher: %w", err)
		}
	}

	return source.NewPipeline(ld, ch, pub, logger), cleanup, nil
}

// loaderOptions maps file configuration onto loader options.
func loaderOptions(cfg *config.Config) loader.Options {
	opts := loader.DefaultOptions()
	opts.Timeout = cfg.Loader.Timeout
	opts.MaxRetries = cfg.Loader.MaxRetries
	opts.ExtractLinks = cfg.Loader.ExtractLinks
	opts.ExtractMeta = cfg.Loader.ExtractMeta
	opts.MinContentLength = cfg.Loader.MinContentLength
	opts.AllowedHosts = cfg.Loader.AllowedHosts
	opts.AllowPrivateHosts = cfg.Loader.AllowPrivateHosts
	opts.MarkdownOutput = cfg.Loader.MarkdownOutput
	if cfg.Loader.UserAgent != "" {
		opts.UserAgent = cfg.Loader.UserAgent
	}
	return opts
}

// signalContext cancels on SIGINT/SIGTERM. The stop function is discarded:
// the context lives for the whole process.
func signalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return ctx
}
