package markov

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidOrder is returned when a model is created with an order below 1.
	ErrInvalidOrder = errors.New("markov: order must be at least 1")
	// ErrInvalidContext is returned when a context does not hold exactly Order tokens.
	ErrInvalidContext = errors.New("markov: invalid context")
	// ErrEmptyModel is returned when a random start is requested from a model
	// that has no trained contexts.
	ErrEmptyModel = errors.New("markov: model has no trained contexts")
	// ErrUnseenContext is matched by every *UnseenContextError.
	ErrUnseenContext = errors.New("markov: context never observed in training")
)

// UnseenContextError reports a lookup for a context that has no recorded
// continuations.
type UnseenContextError struct {
	Context Context
}

func (e *UnseenContextError) Error() string {
	return fmt.Sprintf("markov: context %q never observed in training", strings.Join(e.Context, " "))
}

// Is makes errors.Is(err, ErrUnseenContext) true for any UnseenContextError.
func (e *UnseenContextError) Is(target error) bool {
	return target == ErrUnseenContext
}

func invalidContext(ctx Context, order int) error {
	return fmt.Errorf("%w: got %d tokens, model order is %d", ErrInvalidContext, len(ctx), order)
}
