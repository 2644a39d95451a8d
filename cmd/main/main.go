package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var (
	configPath   string
	logLevel     string
	databasePath string
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "path to the JSON config file (created with defaults if missing)",
			Value:       "./config.json",
			Destination: &configPath,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error), overrides the config file",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "db",
			Usage:       "database path, overrides the config file",
			Destination: &databasePath,
		},
	}
}

func main() {
	app := &cli.Command{
		Name:    "verbena",
		Usage:   "Train Markov text models, generate text and autocomplete words",
		Version: fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate),
		Flags:   globalFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			trainCmd(),
			generateCmd(),
			completeCmd(),
			exportCmd(),
			importCmd(),
			modelsCmd(),
			removeCmd(),
			keyCmd(),
			serveCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
