package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/urfave/cli/v2"

	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/config"
	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/decision"
	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/domain"
	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/forecast"
	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/repository/postgres"
)

type contextKey string

const engineKey contextKey = "engine"

// engineHandle is what a command needs: the engine and a way to release it.
type engineHandle struct {
	engine *decision.Engine
	close  func() error
}

// openEngine connects through the pgx driver. Tests replace it.
var openEngine = func(c *cli.Context) (*engineHandle, error) {
	cfg := config.Load()

	db, err := postgres.Open("pgx", c.String("db-url"), cfg.Database.MaxConcurrency)
	if err != nil {
		return nil, err
	}

	forecastCfg := cfg.Forecast
	if p := c.String("forecast"); p != "" {
		forecastCfg.Provider = p
	}
	provider, err := forecast.NewProvider(c.Context, forecastCfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to build forecast provider: %w", err)
	}

	engine := decision.NewEngine(
		postgres.NewStockRepository(db),
		postgres.NewSalesRepository(db),
		provider,
		decision.OptionsFromConfig(cfg.Engine),
	)

	return &engineHandle{
		engine: engine,
		close: func() error {
			if closer, ok := provider.(interface{ Close() error }); ok {
				closer.Close()
			}
			return db.Close()
		},
	}, nil
}

func initEngine(c *cli.Context) error {
	h, err := openEngine(c)
	if err != nil {
		return err
	}
	c.Context = context.WithValue(c.Context, engineKey, h)
	return nil
}

func closeEngine(c *cli.Context) error {
	if h, ok := c.Context.Value(engineKey).(*engineHandle); ok && h != nil && h.close != nil {
		return h.close()
	}
	return nil
}

func engineFrom(c *cli.Context) (*decision.Engine, error) {
	h, ok := c.Context.Value(engineKey).(*engineHandle)
	if !ok || h == nil {
		return nil, fmt.Errorf("engine not initialized")
	}
	return h.engine, nil
}

func optionsFromFlags(c *cli.Context) domain.DecisionOptions {
	opts := domain.DecisionOptions{
		Lookback:       c.Int("lookback"),
		LeadDays:       c.Int("lead-days"),
		StoreID:        domain.NormalizeStoreID(c.String("store")),
		IncludeDetails: c.Bool("details"),
	}
	if c.IsSet("use-ai") {
		useAI := c.Bool("use-ai")
		opts.UseAI = &useAI
	}
	return opts
}

func runDecisions(c *cli.Context) error {
	engine, err := engineFrom(c)
	if err != nil {
		return err
	}

	decisions, err := engine.ComputeDecisions(c.Context, optionsFromFlags(c))
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, decisions)
}

func runHealth(c *cli.Context) error {
	engine, err := engineFrom(c)
	if err != nil {
		return err
	}

	health, err := engine.GetStockHealth(c.Context, optionsFromFlags(c))
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, health)
}

func runTop(c *cli.Context) error {
	engine, err := engineFrom(c)
	if err != nil {
		return err
	}

	items, err := engine.GetTopReorderItems(c.Context, c.Int("limit"), optionsFromFlags(c))
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, items)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
