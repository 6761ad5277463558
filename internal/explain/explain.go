// Package explain asks a language model to explain or check a solution.
package explain

import (
	"context"
	"errors"
)

var (
	// ErrDisabled is returned when no explanation provider is configured.
	ErrDisabled = errors.New("explain: no provider configured")

	ErrInvalidConfig    = errors.New("explain: invalid configuration")
	ErrInvalidResponse  = errors.New("explain: invalid response")
	ErrContentBlocked   = errors.New("explain: content blocked")
	ErrTransientFailure = errors.New("explain: transient failure")
)

// Disabled is the explainer used when no provider is configured.
type Disabled struct{}

func (Disabled) Explain(context.Context, string) (string, error) {
	return "", ErrDisabled
}
