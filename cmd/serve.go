package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spigell/hh-screener/internal/httpapi"
	"github.com/spigell/hh-screener/internal/secrets"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	defaultListen      = ":8080"
	shutdownTimeout    = 10 * time.Second
	sessionSweepPeriod = 10 * time.Minute
	sessionIdleTTL     = time.Hour
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the screening conversation API over HTTP",
	Run: func(cmd *cobra.Command, _ []string) {
		serve(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "listen address, e.g. :8080")

	viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
}

func serve(_ *cobra.Command) {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found, using the environment as-is")
	}

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	orchestrator, store, err := buildOrchestrator(config, logger)
	if err != nil {
		logger.Fatal("building the screening core", zap.Error(err))
	}

	authToken, err := secrets.LoadOptional(secrets.Source{
		Name: "api auth token",
		File: config.AuthTokenFile,
		Env:  "HH_SCREENER_API_TOKEN",
	})
	if err != nil {
		logger.Fatal("loading api auth token", zap.Error(err))
	}
	if authToken == "" {
		logger.Warn("api authentication disabled",
			zap.String("hint", "set auth-token-file or HH_SCREENER_API_TOKEN"))
	}

	listen := config.Listen
	if listen == "" {
		listen = defaultListen
	}

	handler := httpapi.NewHandler(orchestrator, store, logger, authToken)
	server := &http.Server{
		Addr:              listen,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Idle sessions are evicted periodically; there is no durable storage.
	go func() {
		ticker := time.NewTicker(sessionSweepPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := store.Cleanup(sessionIdleTTL); removed > 0 {
					logger.Info("evicted idle sessions", zap.Int("count", removed))
				}
			}
		}
	}()

	go func() {
		logger.Info("starting the hh-screener api",
			zap.String("version", version),
			zap.String("listen", listen),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serving http", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
