package ports

import (
	"context"

	"github.com/samirrijal/pinpoint/internal/core/domain"
)

// ConfirmationRepository persists the confirmation audit trail.
type ConfirmationRepository interface {
	Save(ctx context.Context, c *domain.Confirmation) error
	GetByID(ctx context.Context, id string) (*domain.Confirmation, error)
	// ListRecent returns one page of confirmations, newest first.
	ListRecent(ctx context.Context, offset, limit int) ([]domain.Confirmation, error)
	Count(ctx context.Context) (int, error)
	ListBySession(ctx context.Context, sessionID string) ([]domain.Confirmation, error)
}

// FormStore is the enrollment form's keyed storage. Merge overwrites only
// the given fields.
type FormStore interface {
	Merge(ctx context.Context, formKey string, fields map[string]string) error
	Load(ctx context.Context, formKey string) (map[string]string, error)
}
