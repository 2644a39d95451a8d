package markov

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/goccy/go-json"
)

// ExportedModel is the serializable representation of a trained model, used
// for JSON-based import and export.
type ExportedModel struct {
	Order       int                  `json:"order"`
	Transitions []ExportedTransition `json:"transitions"`
}

// ExportedTransition is the serializable representation of one context and
// its continuations, in recorded order.
type ExportedTransition struct {
	Context []string `json:"context"`
	Next    []string `json:"next"`
}

// Export serializes the model as JSON and writes it to w. Contexts appear in
// first-seen order and continuations in recorded order, so Import reproduces
// the model exactly.
func (m *Model) Export(w io.Writer) error {
	exported := ExportedModel{
		Order:       m.order,
		Transitions: make([]ExportedTransition, 0, len(m.contexts)),
	}
	for _, e := range m.contexts {
		exported.Transitions = append(exported.Transitions, ExportedTransition{
			Context: e.context,
			Next:    e.next,
		})
	}

	m.logger.Info("Model exported",
		slog.Int("model_order", m.order),
		slog.Int("contexts_exported", len(exported.Transitions)),
	)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exported)
}

// Import reads a model previously written by Export.
func Import(r io.Reader, opts ...ModelOption) (*Model, error) {
	var imported ExportedModel
	if err := json.NewDecoder(r).Decode(&imported); err != nil {
		return nil, fmt.Errorf("failed to decode json model: %w", err)
	}

	transitions := make([]Transition, 0, len(imported.Transitions))
	for _, t := range imported.Transitions {
		transitions = append(transitions, Transition{Context: t.Context, Next: t.Next})
	}

	m, err := Restore(imported.Order, transitions, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to restore imported model: %w", err)
	}

	m.logger.Info("Model imported",
		slog.Int("model_order", m.order),
		slog.Int("contexts_imported", m.Len()),
		slog.Int("continuations_imported", m.Size()),
	)
	return m, nil
}
