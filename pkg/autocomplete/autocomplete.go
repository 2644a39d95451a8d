// Package autocomplete turns a markov model into a word-suggestion loop.
//
// All state of a conversation lives in a Session value. Every step takes a
// Session and returns the next one, so a caller can keep as many independent
// conversations as it likes, or rewind by holding on to an earlier value.
package autocomplete

import (
	"sort"

	"github.com/CTAG07/Verbena/pkg/markov"
)

// DefaultSeed is the context token a fresh order-1 session starts from. A
// sentence end makes the first suggestions sentence openers.
const DefaultSeed = "."

// Source is the part of a model the suggestion loop reads from.
type Source interface {
	Order() int
	Continuations(ctx markov.Context) ([]string, error)
}

// Session is the state of one autocomplete conversation: the tokens chosen
// so far and the context used for the next lookup.
type Session struct {
	Text    []string       `json:"text"`
	Context markov.Context `json:"context"`
}

// Suggestion is a candidate next token and how often it followed the context.
type Suggestion struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// NewSession starts a conversation for a model of the given order. seed
// supplies the initial context; missing leading tokens are filled with
// DefaultSeed, and only the last order tokens are kept. The running text
// starts empty.
func NewSession(order int, seed ...string) Session {
	ctx := make(markov.Context, order)
	for i := range ctx {
		ctx[i] = DefaultSeed
	}
	if len(seed) > order {
		seed = seed[len(seed)-order:]
	}
	copy(ctx[order-len(seed):], seed)
	return Session{Context: ctx}
}

// Choose appends token to the running text and slides the context window
// forward by one. s is left untouched.
func (s Session) Choose(token string) Session {
	text := make([]string, len(s.Text), len(s.Text)+1)
	copy(text, s.Text)
	text = append(text, token)

	ctx := make(markov.Context, len(s.Context))
	if len(ctx) > 0 {
		copy(ctx, s.Context[1:])
		ctx[len(ctx)-1] = token
	}
	return Session{Text: text, Context: ctx}
}

// Suggest ranks the continuations of the session context, most frequent
// first, and returns at most k of them. Ties keep the order in which the
// tokens were first recorded. k <= 0 returns every candidate. An untrained
// context yields the model's unseen-context error.
func Suggest(src Source, s Session, k int) ([]Suggestion, error) {
	next, err := src.Continuations(s.Context)
	if err != nil {
		return nil, err
	}
	return Rank(next, k), nil
}

// Rank counts the tokens of a continuation multiset and returns the k most
// common, ties broken by first occurrence.
func Rank(next []string, k int) []Suggestion {
	index := make(map[string]int)
	var ranked []Suggestion
	for _, token := range next {
		if i, ok := index[token]; ok {
			ranked[i].Count++
			continue
		}
		index[token] = len(ranked)
		ranked = append(ranked, Suggestion{Token: token, Count: 1})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if k > 0 && k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}
