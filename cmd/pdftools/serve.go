package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/pdftoolkit/internal/app"
	"github.com/Lllllllleong/pdftoolkit/internal/config"
)

const shutdownTimeout = 30 * time.Second

func (c *cli) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.setup()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default :8080)")
	cmd.Flags().Int("rate-limit", 0, "POST requests per minute per client IP, 0 disables")
	cmd.Flags().Duration("retention", 0, "delete scratch files older than this, 0 keeps them")
	cmd.Flags().String("office-binary", "", "LibreOffice binary used for conversions")
	c.bind(cmd.Flags().Lookup("addr"), config.KeyAddr)
	c.bind(cmd.Flags().Lookup("rate-limit"), config.KeyRateLimit)
	c.bind(cmd.Flags().Lookup("retention"), config.KeyRetention)
	c.bind(cmd.Flags().Lookup("office-binary"), config.KeyOfficeBinary)
	return cmd
}

// serve runs the HTTP server and the scratch sweeper until ctx is done, then
// shuts the server down gracefully.
func serve(ctx context.Context, cfg config.Config) error {
	a, err := app.New(cfg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		slog.Info("Server listening.", "addr", srv.Addr, "scratchDir", a.Store.Dir(), "wordToPdf", a.Config.WordToPDF)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		a.Store.RunSweeper(ctx, a.Config.SweepInterval, a.Config.Retention)
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down server.")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}
