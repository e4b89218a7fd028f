package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	app "github.com/rocketscienceinc/bingo-backend/internal"
	"github.com/rocketscienceinc/bingo-backend/internal/config"
)

// main - is the entry point of the application. It wires the serve and watch commands.
func main() {
	var configPath string

	root := &cli.Command{
		Name:  "bingo",
		Usage: "Bingo sessions with real-time cross-game notifications",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("BINGO_CONFIG"),
				Value:       "./config.yml",
				Destination: &configPath,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the HTTP API and the real-time channel",
				Action: func(ctx context.Context, _ *cli.Command) error {
					conf, err := config.Load(configPath)
					if err != nil {
						return err
					}

					if err = app.RunApp(ctx, initLogger(conf.LogLevel), conf); err != nil {
						return fmt.Errorf("app run failed: %w", err)
					}

					return nil
				},
			},
			{
				Name:  "watch",
				Usage: "Print bingo announcements of other sessions",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "url",
						Usage: "real-time endpoint, repeat for fallbacks tried in order",
						Value: []string{"ws://localhost:3000/ws"},
					},
					&cli.StringFlag{
						Name:     "session",
						Usage:    "own session id, its announcements are not printed",
						Sources:  cli.EnvVars("BINGO_SESSION_ID"),
						Required: true,
					},
					&cli.IntFlag{
						Name:  "retries",
						Usage: "reconnect attempts before giving up",
						Value: 5,
					},
					&cli.DurationFlag{
						Name:  "retry-interval",
						Usage: "initial delay between reconnect attempts",
						Value: 500 * time.Millisecond,
					},
					&cli.StringFlag{
						Name:  "log-level",
						Usage: "log level (debug, info, warn, error)",
						Value: "warn",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					retries := c.Int("retries")
					if retries < 1 {
						retries = 1
					}

					return app.RunWatcher(ctx, initLogger(c.String("log-level")), c.Root().Writer, app.WatchOptions{
						URLs:          c.StringSlice("url"),
						SessionID:     c.String("session"),
						MaxRetries:    uint64(retries),
						RetryInterval: c.Duration("retry-interval"),
					})
				},
			},
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// initialize logger.
func initLogger(logLevel string) *slog.Logger {
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
