// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/api"
	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/cache"
	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/config"
	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/decision"
	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/forecast"
	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/repository/postgres"
	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/service"
	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.Configure(cfg.Log.Level, cfg.Log.Format)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	provider, err := forecast.NewProvider(ctx, cfg.Forecast)
	if err != nil {
		logger.Log.Warn().Err(err).Str("provider", cfg.Forecast.Provider).Msg("Forecast provider unavailable, blending disabled")
		provider = nil
	}
	if closer, ok := provider.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	engine := decision.NewEngine(
		postgres.NewStockRepository(db),
		postgres.NewSalesRepository(db),
		provider,
		decision.OptionsFromConfig(cfg.Engine),
	)

	decisionCache, err := cache.NewDecisionCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Decision cache unavailable, serving uncached")
		decisionCache = cache.NewNoopDecisionCache()
	}

	decisionService := service.NewDecisionService(engine, decisionCache)

	if cfg.Cache.Enabled {
		listener, err := cache.NewListener(cfg.Cache, decisionCache)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Cache invalidation listener unavailable")
		} else {
			defer listener.Close()
			decisionService.SetPublisher(listener)
			go func() {
				if err := listener.Run(ctx); err != nil {
					logger.Log.Error().Err(err).Msg("Cache invalidation listener stopped")
				}
			}()
		}
	}

	router := api.NewRouter(&api.Services{DecisionService: decisionService}, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		providerName := "none"
		if provider != nil {
			providerName = provider.Name()
		}
		logger.Log.Info().Str("port", cfg.Server.Port).Str("forecast", providerName).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
