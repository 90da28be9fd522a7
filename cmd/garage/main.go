// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/garage"
	"github.com/poiesic/garage/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		slog.Error("garage failed", "err", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "garage",
		Usage: "Inspect and maintain a garage object store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the garage YAML configuration",
				Value:   "garage.yaml",
				EnvVars: []string{"GARAGE_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write a new configuration file",
				Action: initCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "dir",
						Usage: "BadgerDB directory, relative to the configuration file",
						Value: "garage-data",
					},
					&cli.StringFlag{
						Name:  "passphrase-env",
						Usage: "Environment variable holding the encryption passphrase (empty disables encryption)",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing configuration file",
					},
				},
			},
			{
				Name:   "records",
				Usage:  "List stored records",
				Action: recordsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Usage:   "Only list records of this type",
					},
					&cli.StringFlag{
						Name:    "status",
						Aliases: []string{"s"},
						Usage:   "Only list records with this sync status (needs-upload, uploaded, needs-download)",
					},
				},
			},
			{
				Name:   "show",
				Usage:  "Print one record and its decoded fields as YAML",
				Action: showCommand,
				Flags:  keyFlags(),
			},
			{
				Name:   "set-status",
				Usage:  "Change the sync status of a record",
				Action: setStatusCommand,
				Flags: append(keyFlags(), &cli.StringFlag{
					Name:     "status",
					Aliases:  []string{"s"},
					Usage:    "New sync status (needs-upload, uploaded, needs-download)",
					Required: true,
				}),
			},
			{
				Name:   "delete",
				Usage:  "Delete a record",
				Action: deleteCommand,
				Flags: append(keyFlags(), &cli.BoolFlag{
					Name:  "cascade",
					Usage: "Also delete every record reachable through its children",
				}),
			},
			{
				Name:   "delete-all",
				Usage:  "Delete every record of the given types, or every record",
				Action: deleteAllCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Usage:   "Type to delete (repeatable); omit to delete everything",
					},
					&cli.BoolFlag{
						Name:     "yes",
						Usage:    "Confirm the deletion",
						Required: true,
					},
				},
			},
			{
				Name:   "rekey",
				Usage:  "Re-encrypt every payload under a new passphrase",
				Action: rekeyCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "new-passphrase-env",
						Usage:    "Environment variable holding the new passphrase",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "new-salt",
						Usage: "Salt for the new key (default: a fresh random salt)",
					},
					&cli.BoolFlag{
						Name:  "write-config",
						Usage: "Point the configuration file at the new passphrase and salt",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records committed together",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum commit attempts per batch",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}
}

func keyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "type",
			Aliases:  []string{"t"},
			Usage:    "Record type",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "id",
			Usage:    "Record identifier",
			Required: true,
		},
	}
}

func setupLogger(c *cli.Context) error {
	var level slog.Level
	switch levelStr := strings.ToLower(c.String("log-level")); levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig reads the configuration named by --config. Relative badger
// locations are resolved against the configuration file's directory.
func loadConfig(c *cli.Context) (*garage.Config, error) {
	path := c.String("config")
	cfg, err := garage.LoadConfig(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("no configuration at %s (run `garage init` first): %w", path, err)
		}
		return nil, err
	}

	base := filepath.Dir(path)
	for i := range cfg.Stores {
		desc := &cfg.Stores[i]
		if desc.Format == storage.FormatBadger && desc.Location != "" && !filepath.IsAbs(desc.Location) {
			desc.Location = filepath.Join(base, desc.Location)
		}
	}
	return cfg, nil
}

// openGarage opens the configured garage with autosave off; commands commit
// explicitly so commit errors reach the exit status.
func openGarage(c *cli.Context) (*garage.Garage, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	g, err := garage.Open(c.Context, cfg, garage.WithAutosave(false))
	if err != nil {
		return nil, fmt.Errorf("failed to open garage: %w", err)
	}
	return g, nil
}
