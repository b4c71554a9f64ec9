package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/i474232898/air-quality-dashboard/internal/airquality"
	httpapi "github.com/i474232898/air-quality-dashboard/internal/api/http"
	"github.com/i474232898/air-quality-dashboard/internal/scheduler"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the air quality dashboard over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		loader := newLoader(cfg)
		loadTimeout := cfg.Refresh.LoadTimeout

		app := fiber.New(fiber.Config{
			AppName:               "air-quality-dashboard",
			DisableStartupMessage: true,
			ReadTimeout:           10 * time.Second,
			WriteTimeout:          10 * time.Second,
			ErrorHandler:          httpapi.ErrorHandler,
		})

		app.Use(recover.New())
		app.Use(httpapi.RequestLogger())

		httpapi.RegisterRoutes(app, httpapi.Options{
			BasePath: cfg.Server.BasePath,
			Loader:   loader,
			Defaults: airquality.SeriesSelection{
				Primary:   cfg.Dashboard.PrimarySeries,
				Secondary: cfg.Dashboard.SecondarySeries,
			},
			BaseContext:   ctx,
			ReloadTimeout: loadTimeout,
		})

		// Mount: one load sequence on startup.
		loader.Start(ctx, loadTimeout)

		sched := scheduler.New(cfg.Refresh.Interval, loadTimeout, loader)
		if err := sched.Start(); err != nil {
			return eris.Wrap(err, "start scheduler")
		}
		defer sched.Stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("starting server",
				zap.Int("port", port),
				zap.String("base_path", cfg.Server.BasePath),
			)
			errCh <- app.Listen(fmt.Sprintf(":%d", port))
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return eris.Wrap(err, "server listen")
			}
			return nil
		case <-ctx.Done():
		}

		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			zap.L().Error("error during shutdown", zap.Error(err))
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
