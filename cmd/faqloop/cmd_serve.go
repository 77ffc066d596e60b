package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nvandessel/faqloop/internal/handler"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the review API over HTTP",
		Long: `Serve the review operations as a JSON API under /api/v1.

Operations are serialized, so concurrent requests run one at a time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")

			return withApp(cmd, func(a *app) error {
				if addr == "" {
					addr = a.cfg.Server.Addr
				}
				gin.SetMode(gin.ReleaseMode)
				srv := &http.Server{
					Addr:              addr,
					Handler:           handler.NewRouter(a.orch, version, a.logger),
					ReadHeaderTimeout: 10 * time.Second,
				}

				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				errCh := make(chan error, 1)
				go func() {
					a.logger.Info("review api listening", zap.String("addr", addr))
					errCh <- srv.ListenAndServe()
				}()

				select {
				case err := <-errCh:
					if errors.Is(err, http.ErrServerClosed) {
						return nil
					}
					return fmt.Errorf("serve: %w", err)
				case <-ctx.Done():
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				a.logger.Info("shutting down review api")
				return srv.Shutdown(shutdownCtx)
			})
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default from config, :8003)")

	return cmd
}
