package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "memopad",
	Short: "Markdown memo workspace and Google Docs export relay",
	Long: `memopad serves a tabbed markdown memo workspace with autosave, live preview,
search/replace and file export. The relay subcommand runs the OAuth relay
that uploads memos to Google Docs.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the workspace API",
	RunE:  runServe,
}

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the Google Docs export relay",
	RunE:  runRelay,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides MEMOPAD_ADDR)")
	serveCmd.Flags().String("store", "", "store driver: memory, sqlite, postgres, redis, git, s3 (overrides MEMOPAD_STORE)")
	relayCmd.Flags().String("addr", "", "listen address (overrides PORT)")
	rootCmd.AddCommand(serveCmd, relayCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// flagOverride returns the named string flag when it was set on cmd.
func flagOverride(cmd *cobra.Command, name, fallback string) string {
	if !cmd.Flags().Changed(name) {
		return fallback
	}
	value, err := cmd.Flags().GetString(name)
	if err != nil || value == "" {
		return fallback
	}
	return value
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// listenUntilSignal serves until SIGINT or SIGTERM, then shuts the server
// down and runs drain with the remaining shutdown budget.
func listenUntilSignal(name string, server *http.Server, drain func(context.Context)) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("%s listening on %s", name, server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var serveErr error
	select {
	case <-sigCh:
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	if drain != nil {
		drain(shutdownCtx)
	}
	if serveErr != nil {
		return fmt.Errorf("%s failed: %w", name, serveErr)
	}
	return nil
}
