// Package serve implements the HTTP server command.
package serve

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/toolkitvision/toolcheck-go/internal/api"
	"github.com/toolkitvision/toolcheck-go/internal/conf"
	"github.com/toolkitvision/toolcheck-go/internal/datastore"
	"github.com/toolkitvision/toolcheck-go/internal/detection"
	"github.com/toolkitvision/toolcheck-go/internal/logging"
	"github.com/toolkitvision/toolcheck-go/internal/observability"
	"github.com/toolkitvision/toolcheck-go/internal/security"
	"github.com/toolkitvision/toolcheck-go/internal/session"
)

const shutdownTimeout = 10 * time.Second

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tool checking HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context(), settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVarP(&settings.WebServer.Port, "port", "p", viper.GetString("webserver.port"), "Port to listen on")
	cmd.Flags().StringVar(&settings.Uploads.Path, "uploads", viper.GetString("uploads.path"), "Directory for uploaded tray images")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}
	return nil
}

// Run wires the datastore, detection backend and HTTP surface together
// and serves until the context is cancelled or a signal arrives.
func Run(ctx context.Context, settings *conf.Settings) error {
	logger := logging.ForService("server")
	if logger == nil {
		logger = slog.Default().With("service", "server")
	}

	store := datastore.New(settings)
	if store == nil {
		return fmt.Errorf("no database output enabled in configuration")
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing datastore", "error", err)
		}
	}()

	backend := detection.Resolve(settings)
	info := backend.Describe()
	logger.Info("detection backend resolved", "backend", info.Backend)

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}
	metrics.SetBackendInfo(info.Backend)

	auth := security.NewAuthService(store)
	if err := auth.EnsureAdmin(settings); err != nil {
		return err
	}

	manager := session.NewManager(store, backend, settings, metrics)

	e := echo.New()
	e.HideBanner = true
	api.New(e, store, settings, manager, backend, auth, metrics)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		addr := ":" + settings.WebServer.Port
		logger.Info("http server starting", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("http server shutting down")
		return e.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
