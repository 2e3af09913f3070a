package cli

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

	"evalreport-go/internal/api"
	"evalreport-go/internal/notifier"
)

func newServeCmd(app *App) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == "" {
				port = app.Config.Port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, app, port)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (default $PORT or 8080)")
	return cmd
}

func serve(ctx context.Context, app *App, port string) error {
	log := app.Log
	cfg := app.Config

	if err := seedSettings(ctx, app); err != nil {
		return err
	}

	var n api.Notifier
	if cfg.NotifyEnabled() {
		gw := notifier.NewGateway(cfg.Gateway, log)
		n = notifier.New(app.Store, gw, cfg.PublicBaseURL, log)
		log.WithField("gateway", cfg.Gateway.URL).Info("threshold notifications enabled")
	} else {
		log.Warn("WA_GATEWAY_URL not set, threshold notifications disabled")
	}
	if cfg.AdminSecret == "" {
		log.Warn("ADMIN_SECRET not set, admin endpoints are unreachable")
	}

	srv := api.New(app.Store, n, log, api.Options{
		AdminSecret:      cfg.AdminSecret,
		SuperAdminSecret: cfg.SuperAdminSecret,
		Location:         cfg.Location,
		NotifyTimeout:    cfg.Gateway.Timeout * time.Duration(cfg.Gateway.MaxRetries+1) * 2,
	})

	addr := fmt.Sprintf(":%s", port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server terminated: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	srv.Wait()
	return nil
}

// seedSettings stores the configured message header and footer when no
// settings have been saved yet.
func seedSettings(ctx context.Context, app *App) error {
	current, err := app.Store.GetSettings(ctx)
	if err != nil {
		return err
	}
	if current.MessageHeader != "" || current.MessageFooter != "" {
		return nil
	}
	def := app.Config.DefaultSettings
	if def.MessageHeader == "" && def.MessageFooter == "" {
		return nil
	}
	return app.Store.SaveSettings(ctx, def)
}
