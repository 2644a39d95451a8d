package main

import (
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CTAG07/Verbena/pkg/markov"
	"github.com/CTAG07/Verbena/pkg/store"
)

// gatedReader blocks its first Read until released, so a test can act
// while a training request is in flight.
type gatedReader struct {
	r       io.Reader
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func newGatedReader(data string) *gatedReader {
	return &gatedReader{
		r:       strings.NewReader(data),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedReader) Read(p []byte) (int, error) {
	g.once.Do(func() { close(g.started) })
	<-g.release
	return g.r.Read(p)
}

type trainResult struct {
	n   int
	err error
}

// trainInBackground starts Train on a gated reader and waits until the
// model has been looked up and reading has begun.
func trainInBackground(t *testing.T, cache *ModelCache, name string) (*gatedReader, <-chan trainResult) {
	t.Helper()
	gate := newGatedReader(testCorpus)
	done := make(chan trainResult, 1)
	go func() {
		n, err := cache.Train(t.Context(), name, gate)
		done <- trainResult{n: n, err: err}
	}()
	<-gate.started
	return gate, done
}

func TestModelCache_Train(t *testing.T) {
	app := newTestApp(t)
	cache := NewModelCache(app.store, app.tokenizer, app.logger)

	_, err := cache.Create(t.Context(), "fox", 1)
	require.NoError(t, err)

	n, err := cache.Train(t.Context(), "fox", strings.NewReader(testCorpus))
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	stored, err := app.store.LoadModel(t.Context(), "fox")
	require.NoError(t, err)
	assert.Equal(t, 7, stored.Size())

	_, err = cache.Train(t.Context(), "missing", strings.NewReader(testCorpus))
	assert.ErrorIs(t, err, store.ErrModelNotFound)
}

func TestModelCache_TrainDuringRemove(t *testing.T) {
	app := newTestApp(t)
	cache := NewModelCache(app.store, app.tokenizer, app.logger)

	_, err := cache.Create(t.Context(), "fox", 1)
	require.NoError(t, err)

	gate, done := trainInBackground(t, cache, "fox")
	require.NoError(t, cache.Remove(t.Context(), "fox"))
	close(gate.release)

	res := <-done
	assert.ErrorIs(t, res.err, errModelChanged)

	_, err = app.store.LoadModel(t.Context(), "fox")
	assert.ErrorIs(t, err, store.ErrModelNotFound, "a removed model must stay removed")
}

func TestModelCache_TrainDuringPut(t *testing.T) {
	app := newTestApp(t)
	cache := NewModelCache(app.store, app.tokenizer, app.logger)

	_, err := cache.Create(t.Context(), "fox", 1)
	require.NoError(t, err)

	replacement, err := markov.NewModel(2)
	require.NoError(t, err)
	replacement.Train([]string{"a", "b", "c", "d"})
	want := replacement.Stats()

	gate, done := trainInBackground(t, cache, "fox")
	require.NoError(t, cache.Put(t.Context(), "fox", replacement))
	close(gate.release)

	res := <-done
	assert.ErrorIs(t, res.err, errModelChanged)

	stored, err := app.store.LoadModel(t.Context(), "fox")
	require.NoError(t, err)
	assert.Equal(t, want, stored.Stats(), "the put model must not be overwritten")

	cached, err := cache.Get(t.Context(), "fox")
	require.NoError(t, err)
	assert.Equal(t, want, cached.Stats())
}
