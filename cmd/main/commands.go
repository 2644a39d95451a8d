package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/natefinch/atomic"
	"github.com/urfave/cli/v3"

	"github.com/CTAG07/Verbena/pkg/markov"
)

func modelFlag(dest *string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "model",
		Aliases:     []string{"m"},
		Usage:       "model name",
		Required:    true,
		Destination: dest,
	}
}

func trainCmd() *cli.Command {
	var (
		modelName string
		order     int
	)

	return &cli.Command{
		Name:      "train",
		Usage:     "Train a model on one or more corpus files (stdin when none are given)",
		ArgsUsage: "[corpus files...]",
		Flags: []cli.Flag{
			modelFlag(&modelName),
			&cli.IntFlag{
				Name:        "order",
				Aliases:     []string{"n"},
				Usage:       "order of a new model (defaults to the configured order)",
				Destination: &order,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			m, err := app.loadOrCreate(ctx, modelName, order)
			if err != nil {
				return err
			}

			files := cmd.Args().Slice()
			if len(files) == 0 {
				files = []string{"-"}
			}
			var total int
			for _, path := range files {
				n, err := trainFile(ctx, m, app.tokenizer, path)
				if err != nil {
					return fmt.Errorf("training on %s: %w", path, err)
				}
				total += n
			}

			if err = app.store.SaveModel(ctx, modelName, m); err != nil {
				return fmt.Errorf("failed to save model: %w", err)
			}
			stats := m.Stats()
			fmt.Printf("trained %q on %d tokens: %d contexts, %d transitions\n", modelName, total, stats.Contexts, stats.Continuations)
			return nil
		},
	}
}

// trainFile trains m on one corpus file, "-" meaning stdin.
func trainFile(ctx context.Context, m *markov.Model, tok markov.Tokenizer, path string) (int, error) {
	if path == "-" {
		return m.TrainReader(ctx, os.Stdin, tok)
	}
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func(file *os.File) {
		_ = file.Close()
	}(file)
	return m.TrainReader(ctx, file, tok)
}

func generateCmd() *cli.Command {
	var (
		modelName string
		length    int
		start     string
		seed      int64
	)

	return &cli.Command{
		Name:  "generate",
		Usage: "Generate a token sequence from a model",
		Flags: []cli.Flag{
			modelFlag(&modelName),
			&cli.IntFlag{
				Name:        "length",
				Aliases:     []string{"l"},
				Usage:       "total number of tokens, start context included",
				Destination: &length,
			},
			&cli.StringFlag{
				Name:        "start",
				Aliases:     []string{"s"},
				Usage:       "start context, exactly order tokens (random when empty)",
				Destination: &start,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "seed for reproducible output",
				Destination: &seed,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if !cmd.IsSet("length") {
				length = app.config.Markov.GenerateLength
			}
			var opts []markov.ModelOption
			if cmd.IsSet("seed") {
				opts = append(opts, markov.WithRand(rand.New(rand.NewPCG(uint64(seed), uint64(seed)))))
			}

			m, err := app.store.LoadModel(ctx, modelName, append(opts, markov.WithLogger(app.logger))...)
			if err != nil {
				return err
			}

			startAt := markov.RandomStart()
			if start != "" {
				tokens, err := markov.ReadTokens(ctx, strings.NewReader(start), app.tokenizer)
				if err != nil {
					return err
				}
				startAt = markov.StartFrom(tokens)
			}

			tokens, err := m.Generate(length, startAt)
			if err != nil {
				return err
			}
			fmt.Println(app.tokenizer.Join(tokens))
			return nil
		},
	}
}

func exportCmd() *cli.Command {
	var (
		modelName string
		outPath   string
	)

	return &cli.Command{
		Name:  "export",
		Usage: "Write a model as JSON",
		Flags: []cli.Flag{
			modelFlag(&modelName),
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output file (stdout when empty)",
				Destination: &outPath,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			m, err := app.store.LoadModel(ctx, modelName, markov.WithLogger(app.logger))
			if err != nil {
				return err
			}
			if outPath == "" {
				return m.Export(os.Stdout)
			}
			var buf bytes.Buffer
			if err = m.Export(&buf); err != nil {
				return err
			}
			return atomic.WriteFile(outPath, &buf)
		},
	}
}

func importCmd() *cli.Command {
	var modelName string

	return &cli.Command{
		Name:      "import",
		Usage:     "Store a model from a JSON export, replacing any model with the same name",
		ArgsUsage: "<file>",
		Flags:     []cli.Flag{modelFlag(&modelName)},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return errors.New("import expects exactly one file")
			}
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			var r io.Reader = os.Stdin
			if path := cmd.Args().First(); path != "-" {
				file, err := os.Open(path)
				if err != nil {
					return err
				}
				defer func(file *os.File) {
					_ = file.Close()
				}(file)
				r = file
			}

			m, err := markov.Import(r, markov.WithLogger(app.logger))
			if err != nil {
				return err
			}
			return app.store.SaveModel(ctx, modelName, m)
		},
	}
}

func modelsCmd() *cli.Command {
	return &cli.Command{
		Name:  "models",
		Usage: "List stored models",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			models, err := app.store.ListModels(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "NAME\tORDER\tCONTEXTS\tTRANSITIONS")
			for _, info := range models {
				stats, err := app.store.Stats(ctx, info.Name)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", info.Name, info.Order, stats.Contexts, stats.Continuations)
			}
			return w.Flush()
		},
	}
}

func removeCmd() *cli.Command {
	var modelName string

	return &cli.Command{
		Name:  "rm",
		Usage: "Remove a stored model",
		Flags: []cli.Flag{modelFlag(&modelName)},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			return app.store.RemoveModel(ctx, modelName)
		},
	}
}

func keyCmd() *cli.Command {
	var (
		scopes      []string
		description string
	)

	return &cli.Command{
		Name:  "key",
		Usage: "Manage HTTP API keys",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create an API key and print it once (the first key always gets the * scope)",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:        "scope",
						Usage:       "scope granted to the key, repeatable (e.g. models:read, models:write, server:control)",
						Destination: &scopes,
					},
					&cli.StringFlag{
						Name:        "description",
						Usage:       "free-form note stored with the key",
						Destination: &description,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					app, err := openApp()
					if err != nil {
						return err
					}
					defer app.Close()

					rawKey, key, err := issueAPIKey(ctx, app.store, scopes, description)
					if err != nil {
						return err
					}
					_, _ = fmt.Fprintf(os.Stderr, "Created key %d with scopes %s\n", key.ID, strings.Join(key.Scopes, " "))
					_, _ = fmt.Fprintln(os.Stdout, rawKey)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List stored API keys",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					app, err := openApp()
					if err != nil {
						return err
					}
					defer app.Close()

					keys, err := app.store.ListKeys(ctx)
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
					_, _ = fmt.Fprintln(w, "ID\tSCOPES\tDESCRIPTION")
					for _, key := range keys {
						_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", key.ID, strings.Join(key.Scopes, " "), key.Description)
					}
					return w.Flush()
				},
			},
		},
	}
}
