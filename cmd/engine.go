// File: cmd/engine.go
package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkaelum/harrier/internal/engine"
	"github.com/xkaelum/harrier/internal/observability"
	"github.com/xkaelum/harrier/internal/rpc"
	"github.com/xkaelum/harrier/internal/store"
)

var enginePort int

// engineCmd runs the long-lived engine process. Normally the supervisor
// spawns this on demand; running it by hand is useful for debugging.
var engineCmd = &cobra.Command{
	Use:   "engine",
	Short: "Run the browser engine process and serve RPC on localhost.",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()
		if enginePort > 0 {
			cfg.Engine.Port = enginePort
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		eng := engine.New(ctx, cfg, logger, engine.WithSink(store.NewMemorySink()))
		defer eng.Close()

		server := rpc.NewServer(cfg.Engine.Port, eng, logger)

		errCh := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		logger.Info("Engine serving RPC", zap.String("addr", server.Addr()))

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("Shutdown signal received; draining.")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Engine.ShutdownGrace)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

func init() {
	engineCmd.Flags().IntVar(&enginePort, "port", 0, "listen port (overrides config)")
	rootCmd.AddCommand(engineCmd)
}
