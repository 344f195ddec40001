package workflows_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/pinpoint/internal/core/domain"
	"github.com/samirrijal/pinpoint/internal/workflows"
)

// --- Mock ConfirmationRepository ---

type mockRepo struct {
	mu     sync.Mutex
	saveFn func(ctx context.Context, c *domain.Confirmation) error
	saved  []string
}

func (m *mockRepo) Save(ctx context.Context, c *domain.Confirmation) error {
	if m.saveFn != nil {
		if err := m.saveFn(ctx, c); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.saved = append(m.saved, c.ID)
	m.mu.Unlock()
	return nil
}
func (m *mockRepo) GetByID(context.Context, string) (*domain.Confirmation, error) {
	return nil, domain.ErrConfirmationNotFound
}
func (m *mockRepo) ListRecent(context.Context, int, int) ([]domain.Confirmation, error) {
	return nil, nil
}
func (m *mockRepo) Count(context.Context) (int, error) { return len(m.Saved()), nil }
func (m *mockRepo) ListBySession(context.Context, string) ([]domain.Confirmation, error) {
	return nil, nil
}

func (m *mockRepo) Saved() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.saved...)
}

// --- Mock ConfirmationPublisher ---

type mockPublisher struct {
	mu        sync.Mutex
	err       error
	announced []string
}

func (m *mockPublisher) PublishConfirmation(_ context.Context, c *domain.Confirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.announced = append(m.announced, c.ID)
	return nil
}

func (m *mockPublisher) Announced() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.announced...)
}

func sample() domain.Confirmation {
	return domain.Confirmation{ID: "c-1", SessionID: "s-1", FormKey: "enroll-1"}
}

func TestDirectArchiver_SavesThenAnnounces(t *testing.T) {
	repo, pub := &mockRepo{}, &mockPublisher{}
	a := workflows.NewDirectArchiver(&workflows.ArchiveActivities{Confirmations: repo, Publisher: pub})

	if err := a.Archive(context.Background(), sample()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.Saved(); len(got) != 1 || got[0] != "c-1" {
		t.Fatalf("saved = %v", got)
	}
	if got := pub.Announced(); len(got) != 1 {
		t.Fatalf("announced = %v", got)
	}
}

func TestDirectArchiver_AnnounceOnlyWithoutRepo(t *testing.T) {
	pub := &mockPublisher{}
	a := workflows.NewDirectArchiver(&workflows.ArchiveActivities{Publisher: pub})

	if err := a.Archive(context.Background(), sample()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := pub.Announced(); len(got) != 1 {
		t.Fatalf("announced = %v", got)
	}
}

func TestDirectArchiver_SaveFailureSkipsAnnounce(t *testing.T) {
	repo := &mockRepo{saveFn: func(context.Context, *domain.Confirmation) error { return errors.New("db down") }}
	pub := &mockPublisher{}
	a := workflows.NewDirectArchiver(&workflows.ArchiveActivities{Confirmations: repo, Publisher: pub})

	if err := a.Archive(context.Background(), sample()); err == nil {
		t.Fatal("expected error")
	}
	if got := pub.Announced(); len(got) != 0 {
		t.Fatalf("announced after failed save: %v", got)
	}
}

func TestDirectArchiver_AnnounceFailureKeepsRecord(t *testing.T) {
	repo := &mockRepo{}
	pub := &mockPublisher{err: errors.New("stream unavailable")}
	a := workflows.NewDirectArchiver(&workflows.ArchiveActivities{Confirmations: repo, Publisher: pub})

	if err := a.Archive(context.Background(), sample()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.Saved(); len(got) != 1 {
		t.Fatalf("saved = %v", got)
	}
}

func TestArchiveWorkflow(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	repo, pub := &mockRepo{}, &mockPublisher{}
	env.RegisterActivity(&workflows.ArchiveActivities{Confirmations: repo, Publisher: pub})

	env.ExecuteWorkflow(workflows.ArchiveConfirmationWorkflow, sample())

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.Saved(); len(got) != 1 || got[0] != "c-1" {
		t.Fatalf("saved = %v", got)
	}
	if got := pub.Announced(); len(got) != 1 {
		t.Fatalf("announced = %v", got)
	}
}

func TestArchiveWorkflow_AnnounceFailureDoesNotFail(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	repo := &mockRepo{}
	pub := &mockPublisher{err: errors.New("stream unavailable")}
	env.RegisterActivity(&workflows.ArchiveActivities{Confirmations: repo, Publisher: pub})

	env.ExecuteWorkflow(workflows.ArchiveConfirmationWorkflow, sample())

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.Saved(); len(got) == 0 {
		t.Fatal("expected the record to be saved")
	}
}

func TestArchiveWorkflow_NoRepositoryFails(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivity(&workflows.ArchiveActivities{})

	env.ExecuteWorkflow(workflows.ArchiveConfirmationWorkflow, sample())

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if env.GetWorkflowError() == nil {
		t.Fatal("expected workflow error without a repository")
	}
}
