package workflows

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samirrijal/pinpoint/internal/core/domain"
	"github.com/samirrijal/pinpoint/internal/core/ports"
)

// ArchiveActivities holds the activity implementations for the archive
// workflow.
type ArchiveActivities struct {
	Confirmations ports.ConfirmationRepository
	Publisher     ports.ConfirmationPublisher
	Logger        *slog.Logger
}

// SaveConfirmation writes the audit record. Saves are idempotent on the ID.
func (a *ArchiveActivities) SaveConfirmation(ctx context.Context, c domain.Confirmation) error {
	if a.Confirmations == nil {
		return fmt.Errorf("no confirmation repository configured")
	}
	if err := a.Confirmations.Save(ctx, &c); err != nil {
		return fmt.Errorf("save confirmation %s: %w", c.ID, err)
	}
	return nil
}

// AnnounceConfirmation publishes the confirmation for downstream consumers.
func (a *ArchiveActivities) AnnounceConfirmation(ctx context.Context, c domain.Confirmation) error {
	if a.Publisher == nil {
		a.logger().Debug("no confirmation publisher, skipping announce", "confirmation_id", c.ID)
		return nil
	}
	if err := a.Publisher.PublishConfirmation(ctx, &c); err != nil {
		return fmt.Errorf("announce confirmation %s: %w", c.ID, err)
	}
	return nil
}

func (a *ArchiveActivities) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}
