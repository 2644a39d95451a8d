package markov

// maxPrealloc bounds the tokens reserved up front by Generate.
const maxPrealloc = 1024

// Start selects the initial context of a generated sequence. Use StartFrom for
// an explicit context or RandomStart to pick one of the trained contexts.
type Start struct {
	context Context
	random  bool
}

// StartFrom starts generation from the given context. The context is copied.
func StartFrom(ctx Context) Start {
	c := make(Context, len(ctx))
	copy(c, ctx)
	return Start{context: c}
}

// RandomStart starts generation from a trained context chosen uniformly at
// random. Every distinct context is equally likely, however often it was seen.
func RandomStart() Start {
	return Start{random: true}
}

// IsRandom reports whether the start context is picked at random.
func (s Start) IsRandom() bool {
	return s.random
}

// SampleNext draws one continuation of ctx. Each recorded occurrence is an
// equally likely pick, so a token recorded k times out of n is returned with
// probability k/n. An untrained context yields an *UnseenContextError.
func (m *Model) SampleNext(ctx Context) (string, error) {
	e, err := m.lookup(ctx)
	if err != nil {
		return "", err
	}
	return e.next[m.intN(len(e.next))], nil
}

// Generate builds a sequence of length tokens. The first Order tokens are the
// start context; every following token is sampled from the most recent Order
// tokens of the sequence so far. When length is at most Order the start
// context is returned on its own.
//
// If the rolling context ever reaches an untrained window the whole call fails
// with an *UnseenContextError and no partial sequence is returned.
func (m *Model) Generate(length int, start Start) ([]string, error) {
	var initial Context
	if start.random {
		if len(m.contexts) == 0 {
			return nil, ErrEmptyModel
		}
		initial = m.contexts[m.intN(len(m.contexts))].context
	} else {
		if len(start.context) != m.order {
			return nil, invalidContext(start.context, m.order)
		}
		initial = start.context
	}

	// A huge length must not allocate before the first lookup.
	result := make([]string, m.order, min(max(length, m.order), m.order+maxPrealloc))
	copy(result, initial)

	for i := m.order; i < length; i++ {
		next, err := m.SampleNext(result[i-m.order : i])
		if err != nil {
			return nil, err
		}
		result = append(result, next)
	}

	m.logger.Debug("Generation completed",
		"model_order", m.order,
		"random_start", start.random,
		"generated_length", len(result),
	)
	return result, nil
}
