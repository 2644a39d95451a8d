package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/CTAG07/Verbena/pkg/markov"
	"github.com/CTAG07/Verbena/pkg/store"
)

// errModelExists is returned when creating a model whose name is taken.
var errModelExists = errors.New("model already exists")

// errModelChanged is returned when a model was removed or replaced while a
// training request was running; the trained result is discarded.
var errModelChanged = errors.New("model was removed or replaced during training")

// ModelCache keeps loaded models in memory for the HTTP API. Every model is
// wrapped in a markov.SyncModel so that training requests and generation
// requests can overlap; every change is written back to the store.
type ModelCache struct {
	mu        sync.Mutex
	models    map[string]*markov.SyncModel
	store     *store.Store
	tokenizer markov.Tokenizer
	logger    *slog.Logger
}

// NewModelCache creates an empty cache in front of st.
func NewModelCache(st *store.Store, tokenizer markov.Tokenizer, logger *slog.Logger) *ModelCache {
	return &ModelCache{
		models:    make(map[string]*markov.SyncModel),
		store:     st,
		tokenizer: tokenizer,
		logger:    logger,
	}
}

// Get returns the named model, loading it from the store on first use.
func (c *ModelCache) Get(ctx context.Context, name string) (*markov.SyncModel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.models[name]; ok {
		return m, nil
	}
	m, err := c.store.LoadModel(ctx, name, markov.WithLogger(c.logger))
	if err != nil {
		return nil, err
	}
	sm := markov.NewSyncModel(m)
	c.models[name] = sm
	return sm, nil
}

// Create stores a new empty model.
func (c *ModelCache) Create(ctx context.Context, name string, order int) (*markov.SyncModel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.store.GetModelInfo(ctx, name); err == nil {
		return nil, fmt.Errorf("%w: %q", errModelExists, name)
	} else if !errors.Is(err, store.ErrModelNotFound) {
		return nil, err
	}

	m, err := markov.NewModel(order, markov.WithLogger(c.logger))
	if err != nil {
		return nil, err
	}
	if err = c.store.SaveModel(ctx, name, m); err != nil {
		return nil, err
	}
	sm := markov.NewSyncModel(m)
	c.models[name] = sm
	return sm, nil
}

// Put replaces the named model, both in memory and in the store.
func (c *ModelCache) Put(ctx context.Context, name string, m *markov.Model) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.SaveModel(ctx, name, m); err != nil {
		return err
	}
	c.models[name] = markov.NewSyncModel(m)
	return nil
}

// Train tokenizes data, trains the named model on it and saves the result.
// The save only happens while the trained model is still the cached one.
func (c *ModelCache) Train(ctx context.Context, name string, data io.Reader) (int, error) {
	sm, err := c.Get(ctx, name)
	if err != nil {
		return 0, err
	}
	n, err := sm.TrainReader(ctx, data, c.tokenizer)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.models[name] != sm {
		return 0, fmt.Errorf("%w: %q", errModelChanged, name)
	}
	err = sm.View(func(m *markov.Model) error {
		return c.store.SaveModel(ctx, name, m)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to save trained model: %w", err)
	}
	return n, nil
}

// Remove deletes the named model from the store and the cache.
func (c *ModelCache) Remove(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.RemoveModel(ctx, name); err != nil {
		return err
	}
	delete(c.models, name)
	return nil
}
