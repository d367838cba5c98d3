package cmd

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/inject"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/samber/do"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var (
		port    string
		envFile string
	)
	cmd := &cobra.Command{
		Use:          "serve",
		Short:        "Serve the kiosk API over HTTP",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			ctx, cfg, logger, err := setup(true)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}

			injector := inject.Setup(ctx, cfg)
			defer func() { _ = injector.Shutdown() }()
			engine, err := do.Invoke[*gin.Engine](injector)
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              ":" + cfg.Server.Port,
				Handler:           engine,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening", "addr", srv.Addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides PORT)")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Dotenv file loaded when present")
	return cmd
}
