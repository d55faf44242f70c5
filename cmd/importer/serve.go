package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/koharu/importer/api"
	"github.com/koharu/importer/db"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var (
		port        string
		disableCORS bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the normalization HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == "" {
				port = ctx.cfg.Server.Port
			}

			server, err := api.NewServer(api.Config{
				Addr:        ":" + port,
				DBConfig:    db.Config{Path: ctx.cfg.Database.Path},
				Options:     ctx.cfg.Options(),
				CORSEnabled: ctx.cfg.Server.CORS && !disableCORS,
				Logger:      ctx.logger,
			})
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				ctx.logger.Info("importer service starting",
					"port", port,
					"database_path", ctx.cfg.Database.Path,
				)
				errCh <- server.Start()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-cmd.Context().Done():
			}

			ctx.logger.Info("shutting down gracefully")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return err
			}
			ctx.logger.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Server port (defaults to server.port)")
	cmd.Flags().BoolVar(&disableCORS, "disable-cors", false, "Disable CORS")
	return cmd
}
