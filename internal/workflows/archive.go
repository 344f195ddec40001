package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/pinpoint/internal/core/domain"
)

// DefaultTaskQueue is the queue archive workers poll.
const DefaultTaskQueue = "confirmation-archive"

// ArchiveConfirmationWorkflow persists a confirmation, then announces it.
// An announce failure does not fail the workflow: the record is already
// durable.
func ArchiveConfirmationWorkflow(ctx workflow.Context, c domain.Confirmation) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Archiving confirmation", "confirmationID", c.ID, "sessionID", c.SessionID)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var a *ArchiveActivities
	if err := workflow.ExecuteActivity(ctx, a.SaveConfirmation, c).Get(ctx, nil); err != nil {
		return err
	}

	if err := workflow.ExecuteActivity(ctx, a.AnnounceConfirmation, c).Get(ctx, nil); err != nil {
		logger.Warn("announce failed, record kept", "confirmationID", c.ID, "error", err)
	}

	logger.Info("Confirmation archived", "confirmationID", c.ID)
	return nil
}
