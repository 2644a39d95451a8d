package main

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CTAG07/Verbena/pkg/autocomplete"
	"github.com/CTAG07/Verbena/pkg/markov"
)

func newCompleteLoop(t *testing.T, input string) (*completeLoop, *strings.Builder) {
	t.Helper()
	m, err := markov.NewModel(1)
	require.NoError(t, err)
	m.Train(strings.Fields(". the cat sat . the cat ran . the dog sat ."))

	out := &strings.Builder{}
	return &completeLoop{
		src:         m,
		tokenizer:   markov.NewDefaultTokenizer(),
		suggestions: 2,
		in:          bufio.NewScanner(strings.NewReader(input)),
		out:         out,
	}, out
}

func TestCompleteLoop_PickSuggestions(t *testing.T) {
	// a) the, then a) cat, then b) ran, then c) quit.
	loop, out := newCompleteLoop(t, "a\na\nb\nc\n")

	final, err := loop.run(t.Context(), autocomplete.NewSession(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"the", "cat", "ran"}, final.Text)
	assert.Equal(t, markov.Context{"ran"}, final.Context)
	assert.Contains(t, out.String(), "a) cat  b) dog")
	assert.Contains(t, out.String(), "the cat ran")
}

func TestCompleteLoop_OtherWordAndUnseen(t *testing.T) {
	// c) other word "zebra" leaves no suggestions; the menu then offers only
	// a) other word and b) quit.
	loop, out := newCompleteLoop(t, "a\nc\nzebra\nz\nb\n")

	final, err := loop.run(t.Context(), autocomplete.NewSession(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"the", "zebra"}, final.Text)
	assert.Contains(t, out.String(), `No suggestions after "zebra". Enter a different word.`)
	assert.Contains(t, out.String(), `Unknown option "z".`)
	assert.Contains(t, out.String(), "a) [Other word]  b) [Quit]")
}

func TestCompleteLoop_EndOfInput(t *testing.T) {
	loop, _ := newCompleteLoop(t, "a\n")

	final, err := loop.run(t.Context(), autocomplete.NewSession(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"the"}, final.Text)
}

func TestCompleteLoop_OtherWordIsTokenized(t *testing.T) {
	// b) other word "The Cat" becomes the tokens "the" and "cat", which then
	// offer a) sat; c) then quits.
	loop, _ := newCompleteLoop(t, "b\nThe Cat\na\nc\n")
	loop.tokenizer = markov.NewDefaultTokenizer(markov.WithLowercase(true))

	final, err := loop.run(t.Context(), autocomplete.NewSession(1, "."))
	require.NoError(t, err)
	assert.Equal(t, []string{"the", "cat", "sat"}, final.Text)
	assert.Equal(t, markov.Context{"sat"}, final.Context)
}

func TestCompleteLoop_OtherWordBlank(t *testing.T) {
	// A blank word chooses nothing and shows the menu again.
	loop, _ := newCompleteLoop(t, "b\n   \nc\n")

	final, err := loop.run(t.Context(), autocomplete.NewSession(1, "."))
	require.NoError(t, err)
	assert.Empty(t, final.Text)
}
