package llm

import (
	"context"
	"fmt"
)

// Disabled stands in for a model when models are turned off or the provider
// is unknown. It never becomes ready.
type Disabled struct {
	Reason string
}

func NewDisabled(reason string) *Disabled {
	if reason == "" {
		reason = "models disabled by configuration"
	}
	return &Disabled{Reason: reason}
}

func (d *Disabled) Name() string  { return "disabled" }
func (d *Disabled) Model() string { return "none" }

func (d *Disabled) Load(_ context.Context) error {
	return fmt.Errorf("%w: %s", ErrModelUnavailable, d.Reason)
}

func (d *Disabled) Summarize(_ context.Context, _ string, _, _ int) (string, error) {
	return "", fmt.Errorf("%w: %s", ErrModelUnavailable, d.Reason)
}

func (d *Disabled) Classify(_ context.Context, _ string, _ []string) (map[string]float64, error) {
	return nil, fmt.Errorf("%w: %s", ErrModelUnavailable, d.Reason)
}
