// Package notify delivers the confirmation signal fired after a participant's
// dossier is saved.
package notify

import (
	"context"
	"errors"

	"github.com/greatgiftheist/agent-hq/internal/model"
)

// Notifier sends a confirmation for a saved profile.
type Notifier interface {
	NotifyConfirmation(ctx context.Context, profile model.Profile) error
}

// Noop discards confirmations.
type Noop struct{}

// NotifyConfirmation does nothing.
func (Noop) NotifyConfirmation(context.Context, model.Profile) error { return nil }

// Multi fans a confirmation out to every notifier and joins their errors.
type Multi []Notifier

// NotifyConfirmation calls each notifier in order.
func (m Multi) NotifyConfirmation(ctx context.Context, p model.Profile) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyConfirmation(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
