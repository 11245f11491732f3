package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/pkg/logger"
)

func main() {
	_ = godotenv.Load(".env")

	if err := newApp().Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("reorder failed")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "reorder",
		Usage: "Compute restock decisions from the inventory database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			// logs go to stderr so stdout stays valid JSON
			logger.Configure(c.String("log-level"), "console")
			logger.UseStderr()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "decisions",
				Usage:  "Print every decision, reorders first",
				Flags:  decisionFlags(),
				Before: initEngine,
				After:  closeEngine,
				Action: runDecisions,
			},
			{
				Name:   "health",
				Usage:  "Print the stock health summary",
				Flags:  decisionFlags(),
				Before: initEngine,
				After:  closeEngine,
				Action: runHealth,
			},
			{
				Name:  "top",
				Usage: "Print urgent then warning reorders",
				Flags: append(decisionFlags(), &cli.IntFlag{
					Name:  "limit",
					Usage: "Maximum number of items",
					Value: 8,
				}),
				Before: initEngine,
				After:  closeEngine,
				Action: runTop,
			},
		},
	}
}

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func decisionFlags() []cli.Flag {
	return []cli.Flag{
		newDBURLFlag(),
		&cli.IntFlag{Name: "lookback", Usage: "Lookback window in days (minimum 7)"},
		&cli.IntFlag{Name: "lead-days", Usage: "Supplier lead time in days"},
		&cli.StringFlag{Name: "store", Usage: "Restrict to one store"},
		&cli.BoolFlag{Name: "details", Usage: "Include intermediate metrics"},
		&cli.BoolFlag{Name: "use-ai", Usage: "Blend the external forecast (defaults to ENGINE_USE_AI)"},
		&cli.StringFlag{
			Name:    "forecast",
			Usage:   "Forecast provider: none, regression, http or gemini",
			EnvVars: []string{"FORECAST_PROVIDER"},
		},
	}
}
