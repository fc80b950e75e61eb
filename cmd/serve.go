package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mapmaker/graphcrawler/internal/api"
	"github.com/mapmaker/graphcrawler/internal/state"
)

// newServeCmd starts the HTTP API. The Task Queue and Graph Watcher are
// already running in the background by the time PersistentPreRunE returns,
// since state.New starts them; serve only needs to host the API and block
// until an interrupt.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and background crawl workers",
		RunE:  runServeCommand,
	}
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	st, err := stateFromContext(cmd.Context())
	if err != nil {
		return err
	}

	srv := api.NewServer(st.Queue, st.Info, st.Config.Crawler, st.Clock, st.Logger)
	httpServer := &http.Server{
		Addr:              st.Config.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		st.Logger.Info("serve: listening", zap.String("addr", st.Config.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
			return
		}
		errCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		st.Logger.Info("serve: shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), state.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		st.Logger.Warn("serve: graceful http shutdown failed", zap.Error(err))
	}
	return <-errCh
}
