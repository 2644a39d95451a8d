package markov

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Train records every transition in tokens. For each position i from Order to
// len(tokens)-1, tokens[i] is appended to the continuations of the Order
// tokens before it. Tokens before position Order only ever act as context.
// A corpus shorter than Order records nothing.
//
// Train may be called any number of times; statistics accumulate.
func (m *Model) Train(tokens []string) {
	for i := m.order; i < len(tokens); i++ {
		m.record(tokens[i-m.order:i], tokens[i])
	}
}

// TrainReader tokenizes everything read from data with tok and trains the model
// on the resulting token sequence. It returns the number of tokens read.
func (m *Model) TrainReader(ctx context.Context, data io.Reader, tok Tokenizer) (int, error) {
	tokens, err := ReadTokens(ctx, data, tok)
	if err != nil {
		return 0, err
	}
	before := m.Len()
	m.Train(tokens)

	m.logger.InfoContext(ctx, "Training completed",
		slog.Int("model_order", m.order),
		slog.Int("tokens_processed", len(tokens)),
		slog.Int("contexts_added", m.Len()-before),
	)
	return len(tokens), nil
}

// ReadTokens drains a token stream built by tok over data. The context is
// checked between tokens so that very large inputs can be abandoned.
func ReadTokens(ctx context.Context, data io.Reader, tok Tokenizer) ([]string, error) {
	stream := tok.NewStream(data)
	var tokens []string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		token, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return tokens, nil
			}
			return nil, fmt.Errorf("tokenizer error: %w", err)
		}
		tokens = append(tokens, token)
	}
}
