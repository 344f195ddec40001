package workflows

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"

	"github.com/samirrijal/pinpoint/internal/core/domain"
)

// TemporalArchiver implements ports.ConfirmationArchiver by starting an
// archive workflow per confirmation.
type TemporalArchiver struct {
	client    client.Client
	taskQueue string
}

func NewTemporalArchiver(c client.Client, taskQueue string) *TemporalArchiver {
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}
	return &TemporalArchiver{client: c, taskQueue: taskQueue}
}

func (t *TemporalArchiver) Archive(ctx context.Context, c domain.Confirmation) error {
	opts := client.StartWorkflowOptions{
		ID:        "confirmation-" + c.ID,
		TaskQueue: t.taskQueue,
	}
	if _, err := t.client.ExecuteWorkflow(ctx, opts, ArchiveConfirmationWorkflow, c); err != nil {
		return fmt.Errorf("start archive workflow: %w", err)
	}
	return nil
}

// DirectArchiver runs the archive activities inline for deployments
// without a Temporal cluster. Without a repository it only announces, and
// the archiver's stream consumer persists the record.
type DirectArchiver struct {
	activities *ArchiveActivities
}

func NewDirectArchiver(a *ArchiveActivities) *DirectArchiver {
	return &DirectArchiver{activities: a}
}

func (d *DirectArchiver) Archive(ctx context.Context, c domain.Confirmation) error {
	if d.activities.Confirmations != nil {
		if err := d.activities.SaveConfirmation(ctx, c); err != nil {
			return err
		}
	}
	if err := d.activities.AnnounceConfirmation(ctx, c); err != nil {
		d.activities.logger().Warn("announce failed, record kept", "confirmation_id", c.ID, "error", err)
	}
	return nil
}

// LogArchiver only logs. It is used when neither a database nor Temporal
// is reachable.
type LogArchiver struct {
	Logger *slog.Logger
}

func (l LogArchiver) Archive(_ context.Context, c domain.Confirmation) error {
	l.Logger.Info("confirmation not archived, no store configured",
		"confirmation_id", c.ID, "session_id", c.SessionID, "form_key", c.FormKey)
	return nil
}
