package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/CTAG07/Verbena/pkg/markov"
	"github.com/CTAG07/Verbena/pkg/store"
)

// App bundles the resources every command needs: configuration, logger,
// database, model store and tokenizer.
type App struct {
	config    *Config
	logger    *slog.Logger
	db        *sql.DB
	store     *store.Store
	tokenizer *markov.DefaultTokenizer
}

// openApp loads the configuration, applies command line overrides and opens
// the model database.
func openApp() (*App, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		config.Server.LogLevel = logLevel
	}
	if databasePath != "" {
		config.Server.DatabasePath = databasePath
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(config.Server.LogLevel)}))

	dbFile, _, _ := strings.Cut(config.Server.DatabasePath, "?")
	if dir := filepath.Dir(dbFile); dir != "." {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := initDB(config.Server.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err = store.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup markov schema: %w", err)
	}
	st, err := store.New(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create model store: %w", err)
	}
	st.SetLogger(logger)

	return &App{
		config:    config,
		logger:    logger,
		db:        db,
		store:     st,
		tokenizer: markov.NewDefaultTokenizer(markov.WithLowercase(config.Markov.Lowercase)),
	}, nil
}

// Close releases the store and the database connection.
func (a *App) Close() {
	a.store.Close()
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database", "error", err)
	}
}

// loadOrCreate loads the named model, or creates an empty one of the given
// order when it does not exist yet. An order of 0 accepts any existing model
// and falls back to the configured default for new ones.
func (a *App) loadOrCreate(ctx context.Context, name string, order int, opts ...markov.ModelOption) (*markov.Model, error) {
	opts = append([]markov.ModelOption{markov.WithLogger(a.logger)}, opts...)
	m, err := a.store.LoadModel(ctx, name, opts...)
	switch {
	case errors.Is(err, store.ErrModelNotFound):
		if order == 0 {
			order = a.config.Markov.DefaultOrder
		}
		a.logger.InfoContext(ctx, "Creating new model", "model_name", name, "model_order", order)
		return markov.NewModel(order, opts...)
	case err != nil:
		return nil, err
	case order != 0 && m.Order() != order:
		return nil, fmt.Errorf("model %q has order %d, not %d", name, m.Order(), order)
	}
	return m, nil
}
