package markov

import (
	"context"
	"io"
	"sync"
)

// SyncModel guards a Model with a reader/writer lock so that training and
// generation can run from different goroutines. Training takes the write
// lock; every read operation takes the read lock.
type SyncModel struct {
	mu    sync.RWMutex
	model *Model
}

// NewSyncModel wraps m. The caller must not use m directly afterwards.
func NewSyncModel(m *Model) *SyncModel {
	return &SyncModel{model: m}
}

// Order returns the order of the wrapped model.
func (s *SyncModel) Order() int {
	return s.model.order
}

// Train records every transition in tokens under the write lock.
func (s *SyncModel) Train(tokens []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.Train(tokens)
}

// TrainReader tokenizes data outside the lock and trains under the write lock.
func (s *SyncModel) TrainReader(ctx context.Context, data io.Reader, tok Tokenizer) (int, error) {
	tokens, err := ReadTokens(ctx, data, tok)
	if err != nil {
		return 0, err
	}
	s.Train(tokens)
	return len(tokens), nil
}

// SampleNext draws one continuation of ctx.
func (s *SyncModel) SampleNext(ctx Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model.SampleNext(ctx)
}

// Generate builds a sequence of length tokens from start.
func (s *SyncModel) Generate(length int, start Start) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model.Generate(length, start)
}

// Continuations returns a copy of the continuations recorded for ctx.
func (s *SyncModel) Continuations(ctx Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model.Continuations(ctx)
}

// Stats returns a snapshot of statistics for the model.
func (s *SyncModel) Stats() ModelStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model.Stats()
}

// Export writes the model as JSON under the read lock.
func (s *SyncModel) Export(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model.Export(w)
}

// View runs fn with the read lock held. fn must not retain m.
func (s *SyncModel) View(fn func(m *Model) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.model)
}
