package markov

import (
	"go/build"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// catCorpus is the small corpus most tests train on.
var catCorpus = []string{"the", "cat", "sat", "the", "cat", "ran"}

// newTestModel creates a model with a fixed random source.
func newTestModel(t testing.TB, order int) *Model {
	t.Helper()
	m, err := NewModel(order, WithRand(rand.New(rand.NewPCG(1, 2))))
	if err != nil {
		t.Fatalf("NewModel(%d) error = %v", order, err)
	}
	return m
}

// newTrainedModel is a convenience helper that also trains on catCorpus.
func newTrainedModel(t testing.TB) *Model {
	t.Helper()
	m := newTestModel(t, 2)
	m.Train(catCorpus)
	return m
}

var (
	benchmarkCorpus []string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus reads Go source files to create a corpus for benchmarking.
func createBenchmarkCorpus() []string {
	corpusOnce.Do(func() {
		var sb strings.Builder
		goRoot := build.Default.GOROOT
		filesToRead := []string{
			filepath.Join(goRoot, "src/net/http/server.go"),
			filepath.Join(goRoot, "src/go/parser/parser.go"),
			filepath.Join(goRoot, "src/encoding/json/encode.go"),
		}

		for _, file := range filesToRead {
			content, err := os.ReadFile(file)
			if err != nil {
				sb.Reset()
				sb.WriteString("this is a fallback corpus for benchmarking. it is not very long but will prevent a crash. ")
				break
			}
			sb.Write(content)
			sb.WriteString("\n")
		}
		benchmarkCorpus = strings.Fields(sb.String())
	})
	return benchmarkCorpus
}
