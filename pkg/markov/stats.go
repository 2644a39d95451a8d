package markov

// ModelStats holds aggregated statistics for a single Markov model.
type ModelStats struct {
	Order              int `json:"order"`                // The number of tokens in every context
	Contexts           int `json:"contexts"`             // The number of distinct contexts
	Continuations      int `json:"continuations"`        // The total number of recorded transitions
	MaxBranching       int `json:"max_branching"`        // The largest number of distinct continuations of any one context
	DistinctNextTokens int `json:"distinct_next_tokens"` // The number of distinct tokens that appear as a continuation
}

// Stats returns a snapshot of statistics for the model.
func (m *Model) Stats() ModelStats {
	stats := ModelStats{
		Order:    m.order,
		Contexts: len(m.contexts),
	}
	vocab := make(map[string]struct{})
	for _, e := range m.contexts {
		stats.Continuations += len(e.next)
		distinct := make(map[string]struct{}, len(e.next))
		for _, next := range e.next {
			distinct[next] = struct{}{}
			vocab[next] = struct{}{}
		}
		if len(distinct) > stats.MaxBranching {
			stats.MaxBranching = len(distinct)
		}
	}
	stats.DistinctNextTokens = len(vocab)
	return stats
}
