package main

import (
	"context"
	"time"

	"github.com/siherrmann/paperqa/core/watcher"
	"github.com/siherrmann/paperqa/helper"
	"github.com/siherrmann/paperqa/mcp"
	"github.com/siherrmann/paperqa/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	serveAddr     string
	serveWatchDir string

	watchExisting bool
	watchDebounce time.Duration

	mcpAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the HTTP API. With --watch, documents dropped into the folder are
ingested while the server runs.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest documents dropped into a folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Starts the Model Context Protocol server with the ask, search,
keyword_totals, top_keywords and list_papers tools. It communicates over
stdio unless --addr is given.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from HTTP_ADDR)")
	serveCmd.Flags().StringVar(&serveWatchDir, "watch", "", "folder to watch for new documents")
	rootCmd.AddCommand(serveCmd)

	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "ingest files already in the folder")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "time a file has to stay unchanged")
	rootCmd.AddCommand(watchCmd)

	mcpCmd.Flags().StringVar(&mcpAddr, "addr", "", "HTTP listen address (empty = stdio)")
	rootCmd.AddCommand(mcpCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	return withService(cmd, func(ctx context.Context, s service, config *helper.Configuration) error {
		addr := serveAddr
		if addr == "" {
			addr = config.HTTPAddr
		}
		logger := newLogger(config)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return server.NewServer(s, addr, logger).Start(gctx)
		})
		if serveWatchDir != "" {
			g.Go(func() error {
				return watch(gctx, s, serveWatchDir, false, watcher.DefaultDebounce, config)
			})
		}
		return g.Wait()
	})
}

func runWatch(cmd *cobra.Command, args []string) error {
	return withService(cmd, func(ctx context.Context, s service, config *helper.Configuration) error {
		return watch(ctx, s, args[0], watchExisting, watchDebounce, config)
	})
}

func watch(ctx context.Context, s service, dir string, existing bool, debounce time.Duration, config *helper.Configuration) error {
	w, err := watcher.NewWatcher(s, debounce, newLogger(config))
	if err != nil {
		return err
	}
	defer w.Close()

	return w.Watch(ctx, dir, existing)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	return withService(cmd, func(ctx context.Context, s service, config *helper.Configuration) error {
		mcpServer, err := mcp.NewServer(s, newLogger(config))
		if err != nil {
			return err
		}

		if mcpAddr != "" {
			return mcpServer.RunHTTP(ctx, mcpAddr)
		}
		return mcpServer.Run(ctx)
	})
}
