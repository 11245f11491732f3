package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/config"
	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/forecast"
	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.Configure(cfg.Log.Level, cfg.Log.Format)

	r := mux.NewRouter()
	forecast.NewHandler(forecast.NewRegression()).RegisterRoutes(r)

	addr := fmt.Sprintf(":%s", cfg.Forecast.ListenPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Log.Info().Str("addr", addr).Msg("Forecast service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Forecast service failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Forecast service forced to shutdown")
	}
	logger.Log.Info().Msg("Forecast service exiting")
}
