package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CTAG07/Verbena/pkg/markov"
)

func TestGenerateStatus(t *testing.T) {
	m, err := markov.NewModel(1)
	assert.NoError(t, err)
	m.Train([]string{"a", "b"})

	_, unseen := m.Generate(3, markov.StartFrom(markov.Context{"z"}))
	_, invalid := m.Generate(3, markov.StartFrom(markov.Context{"a", "b"}))
	empty, _ := markov.NewModel(1)
	_, emptyErr := empty.Generate(3, markov.RandomStart())

	assert.Equal(t, "ok", generateStatus(nil))
	assert.Equal(t, "unseen_context", generateStatus(unseen))
	assert.Equal(t, "invalid_context", generateStatus(invalid))
	assert.Equal(t, "empty_model", generateStatus(emptyErr))
	assert.Equal(t, "error", generateStatus(errors.New("boom")))
}
