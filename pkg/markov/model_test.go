package markov

import (
	"errors"
	"reflect"
	"testing"
)

func TestNewModel(t *testing.T) {
	testCases := []struct {
		name    string
		order   int
		wantErr bool
	}{
		{name: "order one", order: 1},
		{name: "order three", order: 3},
		{name: "zero order", order: 0, wantErr: true},
		{name: "negative order", order: -2, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := NewModel(tc.order)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidOrder) {
					t.Errorf("expected ErrInvalidOrder, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewModel() error = %v", err)
			}
			if m.Order() != tc.order {
				t.Errorf("Order() = %d, want %d", m.Order(), tc.order)
			}
			if m.Len() != 0 || m.Size() != 0 {
				t.Errorf("expected an empty model, got %d contexts and %d continuations", m.Len(), m.Size())
			}
		})
	}
}

func TestModelsDoNotShareState(t *testing.T) {
	a := newTestModel(t, 1)
	b := newTestModel(t, 1)

	a.Train([]string{"x", "y"})

	if b.Len() != 0 {
		t.Errorf("training one model leaked %d contexts into another", b.Len())
	}
}

func TestContinuations(t *testing.T) {
	m := newTrainedModel(t)

	next, err := m.Continuations(Context{"the", "cat"})
	if err != nil {
		t.Fatalf("Continuations() error = %v", err)
	}
	if !reflect.DeepEqual(next, []string{"sat", "ran"}) {
		t.Errorf("Continuations() = %v, want [sat ran]", next)
	}

	// The returned slice is a copy.
	next[0] = "changed"
	again, _ := m.Continuations(Context{"the", "cat"})
	if again[0] != "sat" {
		t.Errorf("mutating the returned slice changed the model: %v", again)
	}

	_, err = m.Continuations(Context{"zzz", "qqq"})
	var unseen *UnseenContextError
	if !errors.As(err, &unseen) {
		t.Fatalf("expected *UnseenContextError, got %v", err)
	}
	if !reflect.DeepEqual(unseen.Context, Context{"zzz", "qqq"}) {
		t.Errorf("error context = %v", unseen.Context)
	}

	if _, err = m.Continuations(Context{"the"}); !errors.Is(err, ErrInvalidContext) {
		t.Errorf("expected ErrInvalidContext for a short context, got %v", err)
	}
}

func TestContextKeysAreStructural(t *testing.T) {
	m := newTestModel(t, 2)
	m.Train([]string{"a b", "c", "x"})
	m.Train([]string{"a", "b c", "y"})

	if m.Len() != 2 {
		t.Fatalf("expected 2 distinct contexts, got %d", m.Len())
	}
	next, _ := m.Continuations(Context{"a b", "c"})
	if !reflect.DeepEqual(next, []string{"x"}) {
		t.Errorf("Continuations(a b|c) = %v, want [x]", next)
	}
}

func TestRestore(t *testing.T) {
	original := newTrainedModel(t)

	restored, err := Restore(original.Order(), original.Transitions())
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if !reflect.DeepEqual(restored.Transitions(), original.Transitions()) {
		t.Errorf("restored transitions differ:\n got %v\nwant %v", restored.Transitions(), original.Transitions())
	}

	// Restored models keep training on top of the loaded state.
	restored.Train([]string{"the", "cat", "hid"})
	next, _ := restored.Continuations(Context{"the", "cat"})
	if !reflect.DeepEqual(next, []string{"sat", "ran", "hid"}) {
		t.Errorf("Continuations() after resume = %v", next)
	}

	if _, err = Restore(2, []Transition{{Context: Context{"a"}, Next: []string{"b"}}}); !errors.Is(err, ErrInvalidContext) {
		t.Errorf("expected ErrInvalidContext for a short context, got %v", err)
	}
	if _, err = Restore(1, []Transition{{Context: Context{"a"}}}); !errors.Is(err, ErrInvalidContext) {
		t.Errorf("expected ErrInvalidContext for an empty continuation list, got %v", err)
	}
}

func TestStats(t *testing.T) {
	m := newTrainedModel(t)
	stats := m.Stats()

	want := ModelStats{
		Order:              2,
		Contexts:           3,
		Continuations:      4,
		MaxBranching:       2,
		DistinctNextTokens: 4,
	}
	if stats != want {
		t.Errorf("Stats() = %+v, want %+v", stats, want)
	}
}
