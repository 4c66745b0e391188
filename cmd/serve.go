package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/medishift/mission-matcher/internal/mission"
	"github.com/medishift/mission-matcher/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the candidate search and mission API over HTTP",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		serve(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	serveCmd.Flags().Bool("no-sweep", false, "do not run the expiry sweep")

	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func serve(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()

	a, err := newApplication(ctx, logger)
	if err != nil {
		logger.Fatal("starting", zap.Error(err))
	}
	defer a.Close()

	logger.Info("starting the mission-matcher", zap.String("version", version))

	cfg := a.config.Server
	if cfg == nil {
		cfg = &ServerConfig{Addr: ":8080"}
	}

	noSweep, _ := cmd.Flags().GetBool("no-sweep")
	if sc := a.config.Sweep; sc != nil && sc.Enabled && !noSweep {
		sweeper := mission.NewSweeper(a.missions, sc.Schedule, logger.Named("sweep"))
		if err := sweeper.Start(ctx); err != nil {
			logger.Fatal("starting the sweep", zap.Error(err))
		}
		defer sweeper.Stop()
	}

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      server.New(a.finder, a.missions, logger.Named("http")).Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serving", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
