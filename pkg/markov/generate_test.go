package markov

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestSampleNext(t *testing.T) {
	m := newTrainedModel(t)

	token, err := m.SampleNext(Context{"cat", "sat"})
	if err != nil {
		t.Fatalf("SampleNext() error = %v", err)
	}
	if token != "the" {
		t.Errorf("SampleNext(cat sat) = %q, want \"the\"", token)
	}

	_, err = m.SampleNext(Context{"zzz", "qqq"})
	if !errors.Is(err, ErrUnseenContext) {
		t.Errorf("expected ErrUnseenContext, got %v", err)
	}

	_, err = m.SampleNext(Context{"the", "cat", "sat"})
	if !errors.Is(err, ErrInvalidContext) {
		t.Errorf("expected ErrInvalidContext, got %v", err)
	}
}

func TestSampleNextFrequency(t *testing.T) {
	m := newTestModel(t, 1)
	m.Train([]string{"c", "x", "c", "x", "c", "y", "c", "x"})

	const trials = 10000
	counts := make(map[string]int)
	for i := 0; i < trials; i++ {
		token, err := m.SampleNext(Context{"c"})
		if err != nil {
			t.Fatalf("SampleNext() error = %v", err)
		}
		counts[token]++
	}

	share := float64(counts["x"]) / trials
	if math.Abs(share-0.75) > 0.03 {
		t.Errorf("x drawn %.3f of the time, want about 0.75 (counts %v)", share, counts)
	}
	if counts["x"]+counts["y"] != trials {
		t.Errorf("unexpected tokens drawn: %v", counts)
	}
}

func TestGenerate(t *testing.T) {
	m := newTrainedModel(t)

	testCases := []struct {
		name     string
		length   int
		start    Start
		expected []string
		wantErr  error
	}{
		{
			name:     "length equal to order returns the start",
			length:   2,
			start:    StartFrom(Context{"the", "cat"}),
			expected: []string{"the", "cat"},
		},
		{
			name:     "length below order returns the start",
			length:   0,
			start:    StartFrom(Context{"the", "cat"}),
			expected: []string{"the", "cat"},
		},
		{
			name:     "untrained start is fine when nothing is sampled",
			length:   2,
			start:    StartFrom(Context{"zzz", "qqq"}),
			expected: []string{"zzz", "qqq"},
		},
		{
			name:    "untrained start fails once sampling begins",
			length:  3,
			start:   StartFrom(Context{"zzz", "qqq"}),
			wantErr: ErrUnseenContext,
		},
		{
			name:    "wrong start length",
			length:  3,
			start:   StartFrom(Context{"the"}),
			wantErr: ErrInvalidContext,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := m.Generate(tc.length, tc.start)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Errorf("expected %v, got %v", tc.wantErr, err)
				}
				if got != nil {
					t.Errorf("expected no partial result, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("Generate() = %v, want %v", got, tc.expected)
			}
		})
	}
}

func TestGenerateDeterministicChain(t *testing.T) {
	m := newTrainedModel(t)

	// cat sat -> the -> cat, then "the cat" branches.
	got, err := m.Generate(5, StartFrom(Context{"cat", "sat"}))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	want := []string{"cat", "sat", "the", "cat"}
	if len(got) != 5 || !reflect.DeepEqual(got[:4], want) {
		t.Fatalf("Generate() = %v, want prefix %v and length 5", got, want)
	}
	if got[4] != "sat" && got[4] != "ran" {
		t.Errorf("Generate()[4] = %q, want sat or ran", got[4])
	}
}

func TestGenerateHugeLengthUnseenStart(t *testing.T) {
	m := newTrainedModel(t)

	for _, length := range []int{1 << 36, 1 << 45} {
		got, err := m.Generate(length, StartFrom(Context{"zzz", "qqq"}))
		if !errors.Is(err, ErrUnseenContext) {
			t.Errorf("Generate(%d) error = %v, want %v", length, err, ErrUnseenContext)
		}
		if got != nil {
			t.Errorf("Generate(%d) returned a partial result of %d tokens", length, len(got))
		}
	}
}

func TestGenerateBeyondPrealloc(t *testing.T) {
	m := newTestModel(t, 1)
	m.Train([]string{"a", "a"})

	length := maxPrealloc * 3
	got, err := m.Generate(length, StartFrom(Context{"a"}))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(got) != length {
		t.Errorf("len(Generate()) = %d, want %d", len(got), length)
	}
}

func TestGenerateOneStep(t *testing.T) {
	m := newTrainedModel(t)

	got, err := m.Generate(3, StartFrom(Context{"the", "cat"}))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(got) != 3 || got[0] != "the" || got[1] != "cat" {
		t.Fatalf("Generate() = %v", got)
	}
	if got[2] != "sat" && got[2] != "ran" {
		t.Errorf("Generate()[2] = %q, want sat or ran", got[2])
	}
}

func TestGenerateDeadEndFailsWholeCall(t *testing.T) {
	m := newTrainedModel(t)

	// "the cat" -> "ran" leads to the untrained window "cat ran". Keep
	// generating until that branch is taken at least once.
	for i := 0; i < 200; i++ {
		got, err := m.Generate(6, StartFrom(Context{"the", "cat"}))
		if err != nil {
			var unseen *UnseenContextError
			if !errors.As(err, &unseen) {
				t.Fatalf("expected *UnseenContextError, got %v", err)
			}
			if !reflect.DeepEqual(unseen.Context, Context{"cat", "ran"}) {
				t.Errorf("dead end context = %v, want [cat ran]", unseen.Context)
			}
			if got != nil {
				t.Errorf("expected no partial result, got %v", got)
			}
			return
		}
	}
	t.Fatal("the dead-end branch was never sampled")
}

func TestGenerateRandomStart(t *testing.T) {
	m := newTrainedModel(t)

	seen := make(map[string]int)
	for i := 0; i < 3000; i++ {
		got, err := m.Generate(2, RandomStart())
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if _, err = m.Continuations(got); err != nil {
			t.Fatalf("random start %v is not a trained context", got)
		}
		seen[contextKey(got)]++
	}
	if len(seen) != m.Len() {
		t.Fatalf("expected every context to be picked, got %v", seen)
	}
	// Uniform over distinct contexts: "the cat" has two continuations but is
	// not picked more often than the others.
	for key, n := range seen {
		if n < 850 || n > 1150 {
			t.Errorf("context %q picked %d times out of 3000", key, n)
		}
	}
}

func TestGenerateRandomStartEmptyModel(t *testing.T) {
	m := newTestModel(t, 2)

	if _, err := m.Generate(5, RandomStart()); !errors.Is(err, ErrEmptyModel) {
		t.Errorf("expected ErrEmptyModel, got %v", err)
	}
}

func TestGenerateReturnsCopy(t *testing.T) {
	m := newTrainedModel(t)

	got, err := m.Generate(2, RandomStart())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	got[0] = "changed"
	for _, tr := range m.Transitions() {
		if tr.Context[0] == "changed" {
			t.Fatal("mutating the result changed the model")
		}
	}
}

func BenchmarkGenerate(b *testing.B) {
	m := newTestModel(b, 2)
	m.Train(createBenchmarkCorpus())

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// Dead ends are expected with a Go source corpus.
		_, _ = m.Generate(50, RandomStart())
	}
}
