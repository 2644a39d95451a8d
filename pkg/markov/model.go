package markov

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"sync"
)

// Context is an ordered window of exactly Order tokens used as a lookup key.
type Context []string

// Transition is one context together with every continuation recorded for it,
// in the order they were recorded. It is the unit used to persist and restore
// a Model.
type Transition struct {
	Context Context
	Next    []string
}

// entry is the stored form of a single context.
type entry struct {
	context Context
	next    []string
}

// Model is an order-N Markov chain. The zero value is not usable; create one
// with NewModel or Restore.
type Model struct {
	order       int
	transitions map[string]*entry
	// contexts lists every entry in first-seen order. It backs the uniform
	// random start and gives exports a stable order.
	contexts []*entry

	rng    *rand.Rand
	rngMu  sync.Mutex
	logger *slog.Logger
}

// ModelOption configures a Model at construction time.
type ModelOption func(*Model)

// WithRand sets the random source used for sampling. Callers that need
// reproducible output pass a seeded source; by default the package-level
// math/rand/v2 source is used.
func WithRand(r *rand.Rand) ModelOption {
	return func(m *Model) { m.rng = r }
}

// WithLogger sets the logger for the model. By default, all logs are discarded.
func WithLogger(logger *slog.Logger) ModelOption {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewModel creates an empty model of the given order. Every model owns its
// own transition table.
func NewModel(order int, opts ...ModelOption) (*Model, error) {
	if order < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, order)
	}
	m := &Model{
		order:       order,
		transitions: make(map[string]*entry),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Restore rebuilds a model from previously persisted transitions, for example
// the output of Transitions. Transitions sharing a context are merged in the
// order given. Every context must hold exactly order tokens and every
// transition must carry at least one continuation.
func Restore(order int, transitions []Transition, opts ...ModelOption) (*Model, error) {
	m, err := NewModel(order, opts...)
	if err != nil {
		return nil, err
	}
	for i, t := range transitions {
		if len(t.Context) != order {
			return nil, fmt.Errorf("transition %d: %w", i, invalidContext(t.Context, order))
		}
		if len(t.Next) == 0 {
			return nil, fmt.Errorf("transition %d: %w: no continuations recorded", i, ErrInvalidContext)
		}
		for _, next := range t.Next {
			m.record(t.Context, next)
		}
	}
	return m, nil
}

// Order returns the number of tokens in every context of the model.
func (m *Model) Order() int {
	return m.order
}

// Len returns the number of distinct contexts observed in training.
func (m *Model) Len() int {
	return len(m.contexts)
}

// Size returns the total number of recorded continuations across all contexts.
func (m *Model) Size() int {
	var n int
	for _, e := range m.contexts {
		n += len(e.next)
	}
	return n
}

// Continuations returns a copy of every continuation recorded for ctx, in the
// order they were recorded. A token seen k times appears k times.
func (m *Model) Continuations(ctx Context) ([]string, error) {
	e, err := m.lookup(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(e.next))
	copy(out, e.next)
	return out, nil
}

// Transitions returns a snapshot of the whole model in first-seen context
// order. The returned slices do not alias model state.
func (m *Model) Transitions() []Transition {
	out := make([]Transition, 0, len(m.contexts))
	for _, e := range m.contexts {
		ctx := make(Context, len(e.context))
		copy(ctx, e.context)
		next := make([]string, len(e.next))
		copy(next, e.next)
		out = append(out, Transition{Context: ctx, Next: next})
	}
	return out
}

// lookup validates ctx and returns its entry.
func (m *Model) lookup(ctx Context) (*entry, error) {
	if len(ctx) != m.order {
		return nil, invalidContext(ctx, m.order)
	}
	e, ok := m.transitions[contextKey(ctx)]
	if !ok {
		unseen := make(Context, len(ctx))
		copy(unseen, ctx)
		return nil, &UnseenContextError{Context: unseen}
	}
	return e, nil
}

// record appends next to the continuations of ctx, creating the entry when
// the context is new. ctx is copied when it is stored.
func (m *Model) record(ctx Context, next string) {
	key := contextKey(ctx)
	e, ok := m.transitions[key]
	if !ok {
		stored := make(Context, len(ctx))
		copy(stored, ctx)
		e = &entry{context: stored}
		m.transitions[key] = e
		m.contexts = append(m.contexts, e)
	}
	e.next = append(e.next, next)
}

// intN returns a uniform integer in [0, n).
func (m *Model) intN(n int) int {
	if m.rng == nil {
		return rand.IntN(n)
	}
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return m.rng.IntN(n)
}

// contextKey encodes a context as a map key. Each token is length-prefixed so
// that no two distinct contexts share a key, whatever the tokens contain.
func contextKey(ctx Context) string {
	var keyBuf []byte
	for _, token := range ctx {
		keyBuf = strconv.AppendInt(keyBuf, int64(len(token)), 10)
		keyBuf = append(keyBuf, ':')
		keyBuf = append(keyBuf, token...)
	}
	return string(keyBuf)
}
