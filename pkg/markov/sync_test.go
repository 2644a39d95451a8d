package markov

import (
	"errors"
	"sync"
	"testing"
)

func TestSyncModelConcurrentUse(t *testing.T) {
	s := NewSyncModel(newTestModel(t, 1))
	s.Train([]string{"a", "b", "a"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Train([]string{"a", "b", "a"})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, err := s.Generate(10, StartFrom(Context{"a"})); err != nil {
					t.Errorf("Generate() error = %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	stats := s.Stats()
	if stats.Continuations != 2*(1+8*100) {
		t.Errorf("Continuations = %d, want %d", stats.Continuations, 2*(1+8*100))
	}

	if _, err := s.SampleNext(Context{"z"}); !errors.Is(err, ErrUnseenContext) {
		t.Errorf("expected ErrUnseenContext, got %v", err)
	}
}
