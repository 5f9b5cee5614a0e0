package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"ideaflow/internal/common/auth"
	"ideaflow/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// ==========================================
// Criteria store fake
// ==========================================

type fakeStore struct {
	mu sync.Mutex

	interactions     models.InteractionCounts
	evaluations      int
	scores           []models.EvaluationScores
	comments         int
	investorInterest int
	documents        int

	failOn string
	delay  time.Duration
	// rendezvous > 0 makes every read wait until that many reads are in flight.
	rendezvous int
	inFlight   int
	arrived    chan struct{}

	calls []string
}

func (f *fakeStore) enter(ctx context.Context, name string) error {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	if f.rendezvous > 0 {
		if f.arrived == nil {
			f.arrived = make(chan struct{})
		}
		f.inFlight++
		if f.inFlight == f.rendezvous {
			close(f.arrived)
		}
	}
	arrived := f.arrived
	f.mu.Unlock()

	if arrived != nil {
		select {
		case <-arrived:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.failOn == name {
		return errors.New("connection refused")
	}
	return nil
}

func (f *fakeStore) calledMethods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeStore) CountVotesAndComments(ctx context.Context, _ string) (models.InteractionCounts, error) {
	if err := f.enter(ctx, "CountVotesAndComments"); err != nil {
		return models.InteractionCounts{}, err
	}
	return f.interactions, nil
}

func (f *fakeStore) CountEvaluations(ctx context.Context, _ string) (int, error) {
	if err := f.enter(ctx, "CountEvaluations"); err != nil {
		return 0, err
	}
	return f.evaluations, nil
}

func (f *fakeStore) FetchEvaluationScores(ctx context.Context, _ string) ([]models.EvaluationScores, error) {
	if err := f.enter(ctx, "FetchEvaluationScores"); err != nil {
		return nil, err
	}
	return f.scores, nil
}

func (f *fakeStore) CountComments(ctx context.Context, _ string) (int, error) {
	if err := f.enter(ctx, "CountComments"); err != nil {
		return 0, err
	}
	return f.comments, nil
}

func (f *fakeStore) CountInvestorInterest(ctx context.Context, _ string) (int, error) {
	if err := f.enter(ctx, "CountInvestorInterest"); err != nil {
		return 0, err
	}
	return f.investorInterest, nil
}

func (f *fakeStore) CountDocuments(ctx context.Context, _ string) (int, error) {
	if err := f.enter(ctx, "CountDocuments"); err != nil {
		return 0, err
	}
	return f.documents, nil
}

// ==========================================
// Transition store fake
// ==========================================

type memTransitionStore struct {
	mu       sync.Mutex
	statuses map[string]models.Status
	history  map[string][]models.WorkflowTransition
	updates  int
	failWith error
	clock    time.Time
}

func newMemTransitionStore(ideas map[string]models.Status) *memTransitionStore {
	return &memTransitionStore{
		statuses: ideas,
		history:  map[string][]models.WorkflowTransition{},
		clock:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *memTransitionStore) UpdateIdeaStatusAndLogTransition(_ context.Context, u StatusUpdate, guard Guard) (*models.WorkflowTransition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++

	if m.failWith != nil {
		return nil, m.failWith
	}
	current, ok := m.statuses[u.IdeaID]
	if !ok {
		return nil, ErrIdeaNotFound
	}
	if err := guard(current); err != nil {
		return nil, err
	}

	m.clock = m.clock.Add(time.Minute)
	t := models.WorkflowTransition{
		ID:         uuid.NewString(),
		IdeaID:     u.IdeaID,
		FromStatus: current.Ptr(),
		ToStatus:   u.NewStatus,
		Reason:     u.Reason,
		ChangedBy:  u.ChangedBy,
		CreatedAt:  m.clock,
	}
	m.statuses[u.IdeaID] = u.NewStatus
	m.history[u.IdeaID] = append(m.history[u.IdeaID], t)
	return &t, nil
}

func (m *memTransitionStore) FetchTransitionHistory(_ context.Context, ideaID string) ([]models.WorkflowTransition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	rows := m.history[ideaID]
	out := make([]models.WorkflowTransition, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		out = append(out, rows[i])
	}
	return out, nil
}

func (m *memTransitionStore) status(ideaID string) models.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statuses[ideaID]
}

func (m *memTransitionStore) rows(ideaID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history[ideaID])
}

// ==========================================
// Notifier mock
// ==========================================

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) StatusChanged(ctx context.Context, t models.WorkflowTransition) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func adminGrant(userID string) auth.AdminGrant {
	grant, err := auth.Principal{UserID: userID, Roles: []string{"admin"}}.RequireAdmin("admin")
	if err != nil {
		panic(err)
	}
	return grant
}
