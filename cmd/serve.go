package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web companion",
	Long: `Start the web companion: a JSON API over the same session, feeds and
forms as the CLI. Logging in or out from a terminal is picked up at once,
and open views are discarded when the user changes.

Examples:
  bloggera serve
  bloggera serve --addr 127.0.0.1:8090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default from serve.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.Serve.Addr
	}

	server := application.WebServer()
	g, ctx := errgroup.WithContext(cmd.Context())

	g.Go(func() error {
		return server.Start(addr)
	})
	g.Go(func() error {
		return application.Store.Watch(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	printer.Info("Serving on http://%s", addr)
	return g.Wait()
}
